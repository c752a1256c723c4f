package waitinglist

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ticketbay/tb-marketplace/internal/module/customerapp/event"
	"github.com/ticketbay/tb-marketplace/internal/module/customerapp/mailer"
	"github.com/ticketbay/tb-marketplace/internal/module/customerapp/stripe"
	"github.com/ticketbay/tb-marketplace/internal/module/customerapp/ticket"
	"github.com/ticketbay/tb-marketplace/internal/pkg/session"
	"github.com/ticketbay/tb-marketplace/pkg/applogger"
	"github.com/ticketbay/tb-marketplace/pkg/errors"
	"github.com/ticketbay/tb-marketplace/pkg/gctasks"
	"github.com/ticketbay/tb-marketplace/pkg/status"
)

type fakeWaitingListRepo struct {
	mu      sync.Mutex
	entries map[string]Entry
}

func newFakeWaitingListRepo() *fakeWaitingListRepo {
	return &fakeWaitingListRepo{entries: map[string]Entry{}}
}

func (f *fakeWaitingListRepo) BeginTx(ctx context.Context) (*sql.Tx, error) { return nil, nil }

func (f *fakeWaitingListRepo) CommitTx(ctx context.Context, tx *sql.Tx) error { return nil }

func (f *fakeWaitingListRepo) Rollback(ctx context.Context, tx *sql.Tx) error { return nil }

func (f *fakeWaitingListRepo) Save(ctx context.Context, e Entry, tx *sql.Tx) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.entries[e.ID] = e
	return nil
}

func (f *fakeWaitingListRepo) FindByID(ctx context.Context, ID string, tx *sql.Tx) (Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	e, ok := f.entries[ID]
	if !ok {
		return Entry{}, errors.New(http.StatusNotFound, status.NOT_FOUND, "waiting list entry is not found")
	}
	return e, nil
}

func (f *fakeWaitingListRepo) FindLiveByAllocationIDAndCustomerID(ctx context.Context, allocationID, customerID string, tx *sql.Tx) (Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, e := range f.entries {
		if e.AllocationID == allocationID && e.CustomerID == customerID && e.IsLive() {
			return e, nil
		}
	}
	return Entry{}, errors.New(http.StatusNotFound, status.NOT_FOUND, "waiting list entry is not found")
}

func (f *fakeWaitingListRepo) FindOldestWaitingByAllocationID(ctx context.Context, allocationID string, tx *sql.Tx) (Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var waiting []Entry
	for _, e := range f.entries {
		if e.AllocationID == allocationID && e.Status == StatusWaiting {
			waiting = append(waiting, e)
		}
	}
	if len(waiting) == 0 {
		return Entry{}, errors.New(http.StatusNotFound, status.NOT_FOUND, "waiting list entry is not found")
	}

	sort.Slice(waiting, func(i, j int) bool {
		if waiting[i].CreatedAt.Equal(waiting[j].CreatedAt) {
			return waiting[i].ID < waiting[j].ID
		}
		return waiting[i].CreatedAt.Before(waiting[j].CreatedAt)
	})
	return waiting[0], nil
}

func (f *fakeWaitingListRepo) CountWaitingBefore(ctx context.Context, e Entry, tx *sql.Tx) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var count int64
	for _, other := range f.entries {
		if other.AllocationID != e.AllocationID || other.Status != StatusWaiting {
			continue
		}
		if other.CreatedAt.Before(e.CreatedAt) || (other.CreatedAt.Equal(e.CreatedAt) && other.ID < e.ID) {
			count++
		}
	}
	return count, nil
}

func (f *fakeWaitingListRepo) CountPurchasedByAllocationID(ctx context.Context, allocationID string, tx *sql.Tx) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var count int64
	for _, e := range f.entries {
		if e.AllocationID == allocationID && e.Status == StatusPurchased {
			count++
		}
	}
	return count, nil
}

func (f *fakeWaitingListRepo) CountActiveOfferedByAllocationID(ctx context.Context, allocationID string, now time.Time, tx *sql.Tx) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var count int64
	for _, e := range f.entries {
		if e.AllocationID == allocationID && e.Status == StatusOffered && e.OfferExpiresAt != nil && !e.OfferExpiresAt.Before(now) {
			count++
		}
	}
	return count, nil
}

func (f *fakeWaitingListRepo) UpdateStatus(ctx context.Context, ID string, toStatus string, offerExpiresAt *time.Time, updatedAt time.Time, tx *sql.Tx) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	e, ok := f.entries[ID]
	if !ok {
		return errors.New(http.StatusNotFound, status.NOT_FOUND, "waiting list entry is not found")
	}
	e.Status = toStatus
	e.OfferExpiresAt = offerExpiresAt
	e.UpdatedAt = updatedAt
	f.entries[ID] = e
	return nil
}

func (f *fakeWaitingListRepo) FindManyLapsedOffered(ctx context.Context, now time.Time, limit int, tx *sql.Tx) ([]Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var lapsed []Entry
	for _, e := range f.entries {
		if e.OfferLapsed(now) {
			lapsed = append(lapsed, e)
		}
	}
	if limit > 0 && len(lapsed) > limit {
		lapsed = lapsed[:limit]
	}
	return lapsed, nil
}

func (f *fakeWaitingListRepo) FindManyLapsedOfferedByAllocationID(ctx context.Context, allocationID string, now time.Time, tx *sql.Tx) ([]Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var lapsed []Entry
	for _, e := range f.entries {
		if e.AllocationID == allocationID && e.OfferLapsed(now) {
			lapsed = append(lapsed, e)
		}
	}
	return lapsed, nil
}

func (f *fakeWaitingListRepo) FindManyLiveByEventID(ctx context.Context, eventID string, tx *sql.Tx) ([]Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var live []Entry
	for _, e := range f.entries {
		if e.EventID == eventID && e.IsLive() {
			live = append(live, e)
		}
	}
	return live, nil
}

func (f *fakeWaitingListRepo) get(ID string) Entry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.entries[ID]
}

func (f *fakeWaitingListRepo) lapse(ID string, ago time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()

	e := f.entries[ID]
	past := time.Now().Add(-ago)
	e.OfferExpiresAt = &past
	f.entries[ID] = e
}

type fakeAllocationRepo struct {
	allocations map[string]ticket.Allocation
}

func (f *fakeAllocationRepo) FindByID(ctx context.Context, ID string, tx *sql.Tx) (ticket.Allocation, error) {
	a, ok := f.allocations[ID]
	if !ok {
		return ticket.Allocation{}, errors.New(http.StatusNotFound, status.NOT_FOUND, "ticket allocation is not found")
	}
	return a, nil
}

func (f *fakeAllocationRepo) FindByIDForUpdate(ctx context.Context, ID string, tx *sql.Tx) (ticket.Allocation, error) {
	return f.FindByID(ctx, ID, tx)
}

func (f *fakeAllocationRepo) FindManyByEventID(ctx context.Context, eventID string, tx *sql.Tx) ([]ticket.Allocation, error) {
	var out []ticket.Allocation
	for _, a := range f.allocations {
		if a.EventID == eventID {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakeAcquiredTicketRepo struct {
	mu      sync.Mutex
	tickets map[string]ticket.AcquiredTicket
}

func newFakeAcquiredTicketRepo() *fakeAcquiredTicketRepo {
	return &fakeAcquiredTicketRepo{tickets: map[string]ticket.AcquiredTicket{}}
}

func (f *fakeAcquiredTicketRepo) Save(ctx context.Context, t ticket.AcquiredTicket, tx *sql.Tx) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, existing := range f.tickets {
		if existing.EntryID == t.EntryID {
			return errors.New(http.StatusConflict, status.CONFLICT, "acquired ticket already exists for entry")
		}
	}
	f.tickets[t.ID] = t
	return nil
}

func (f *fakeAcquiredTicketRepo) FindByID(ctx context.Context, ID string, tx *sql.Tx) (ticket.AcquiredTicket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	t, ok := f.tickets[ID]
	if !ok {
		return ticket.AcquiredTicket{}, errors.New(http.StatusNotFound, status.NOT_FOUND, "acquired ticket is not found")
	}
	return t, nil
}

func (f *fakeAcquiredTicketRepo) FindByEntryID(ctx context.Context, entryID string, tx *sql.Tx) (ticket.AcquiredTicket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, t := range f.tickets {
		if t.EntryID == entryID {
			return t, nil
		}
	}
	return ticket.AcquiredTicket{}, errors.New(http.StatusNotFound, status.NOT_FOUND, "acquired ticket is not found")
}

func (f *fakeAcquiredTicketRepo) FindManyByCustomerID(ctx context.Context, customerID string, tx *sql.Tx) ([]ticket.AcquiredTicket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []ticket.AcquiredTicket
	for _, t := range f.tickets {
		if t.CustomerID == customerID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeAcquiredTicketRepo) CountByEventIDAndCustomerID(ctx context.Context, eventID string, customerID string, tx *sql.Tx) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var count int64
	for _, t := range f.tickets {
		if t.EventID == eventID && t.CustomerID == customerID {
			count++
		}
	}
	return count, nil
}

func (f *fakeAcquiredTicketRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tickets)
}

type fakeEventRepo struct {
	events map[string]event.Event
}

func (f *fakeEventRepo) FindByID(ctx context.Context, ID string, tx *sql.Tx) (event.Event, error) {
	ev, ok := f.events[ID]
	if !ok {
		return event.Event{}, errors.New(http.StatusNotFound, status.NOT_FOUND, "event is not found")
	}
	return ev, nil
}

func (f *fakeEventRepo) FindMany(ctx context.Context, offset, limit int64, tx *sql.Tx) ([]event.Event, error) {
	var out []event.Event
	for _, ev := range f.events {
		out = append(out, ev)
	}
	return out, nil
}

func (f *fakeEventRepo) Count(ctx context.Context, tx *sql.Tx) (int64, error) {
	return int64(len(f.events)), nil
}

type fakeStripeRepo struct {
	mu       sync.Mutex
	sessions []stripe.CheckoutSessionRequest
	expired  []string
}

func (f *fakeStripeRepo) CreateCheckoutSession(ctx context.Context, req stripe.CheckoutSessionRequest) (stripe.CheckoutSessionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.sessions = append(f.sessions, req)
	id := fmt.Sprintf("cs_%d", len(f.sessions))
	return stripe.CheckoutSessionResponse{
		ID:        id,
		URL:       "https://checkout.example/" + id,
		ExpiresAt: req.ExpiresAt,
		Status:    "open",
	}, nil
}

func (f *fakeStripeRepo) ExpireCheckoutSession(ctx context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.expired = append(f.expired, sessionID)
	return nil
}

type fakeMailerRepo struct {
	mu            sync.Mutex
	confirmations []mailer.TicketConfirmation
}

func (f *fakeMailerRepo) SendTicketConfirmation(ctx context.Context, confirmation mailer.TicketConfirmation) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.confirmations = append(f.confirmations, confirmation)
	return nil
}

type fakeCheckoutSessionStore struct {
	mu       sync.Mutex
	sessions map[string]string
}

func newFakeCheckoutSessionStore() *fakeCheckoutSessionStore {
	return &fakeCheckoutSessionStore{sessions: map[string]string{}}
}

func (f *fakeCheckoutSessionStore) Set(ctx context.Context, entryID, sessionID string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.sessions[entryID] = sessionID
	return nil
}

func (f *fakeCheckoutSessionStore) Get(ctx context.Context, entryID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	sessionID, ok := f.sessions[entryID]
	if !ok {
		return "", errors.New(http.StatusNotFound, status.NOT_FOUND, "checkout session not found")
	}
	return sessionID, nil
}

func (f *fakeCheckoutSessionStore) Delete(ctx context.Context, entryID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.sessions, entryID)
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	topics []string
}

func (f *fakePublisher) Publish(ctx context.Context, topic string, key string, headers map[string]string, message []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.topics = append(f.topics, topic)
}

func (f *fakePublisher) Close() {}

type fakeTasks struct {
	mu        sync.Mutex
	scheduled []gctasks.Request
}

func (f *fakeTasks) CreateQueue(id string) error { return nil }

func (f *fakeTasks) CreateTask(queueID string, request gctasks.Request) error {
	return f.DeferCreateTaskInDuration(queueID, request, 0)
}

func (f *fakeTasks) DeferCreateTaskInDuration(queueID string, request gctasks.Request, duration time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.scheduled = append(f.scheduled, request)
	return nil
}

func (f *fakeTasks) DeferCreateTaskInTime(queueID string, request gctasks.Request, schedule time.Time) error {
	return f.DeferCreateTaskInDuration(queueID, request, 0)
}

func (f *fakeTasks) Close() error { return nil }

type fixture struct {
	useCase     WaitingListUseCase
	waitingList *fakeWaitingListRepo
	tickets     *fakeAcquiredTicketRepo
	striper     *fakeStripeRepo
	mails       *fakeMailerRepo
	store       *fakeCheckoutSessionStore
	publisher   *fakePublisher
	tasks       *fakeTasks
}

func newFixture(t *testing.T, capacity int64) *fixture {
	t.Helper()

	fx := &fixture{
		waitingList: newFakeWaitingListRepo(),
		tickets:     newFakeAcquiredTicketRepo(),
		striper:     &fakeStripeRepo{},
		mails:       &fakeMailerRepo{},
		store:       newFakeCheckoutSessionStore(),
		publisher:   &fakePublisher{},
		tasks:       &fakeTasks{},
	}

	events := &fakeEventRepo{events: map[string]event.Event{
		"EVT-1": {
			ID:        "EVT-1",
			Name:      "Warehouse Live",
			Location:  "Jakarta",
			EventDate: time.Now().Add(30 * 24 * time.Hour),
		},
		"EVT-GONE": {
			ID:          "EVT-GONE",
			Name:        "Cancelled Show",
			IsCancelled: true,
		},
	}}

	allocations := &fakeAllocationRepo{allocations: map[string]ticket.Allocation{
		"ALC-1": {
			ID:            "ALC-1",
			EventID:       "EVT-1",
			TotalQuantity: capacity,
			UnitPrice:     50,
		},
		"ALC-GONE": {
			ID:            "ALC-GONE",
			EventID:       "EVT-GONE",
			TotalQuantity: capacity,
			UnitPrice:     50,
		},
	}}

	fx.useCase = NewWaitingListUseCase(WaitingListUseCaseProperty{
		Logger:                   applogger.GetLogrus(),
		Timeout:                  5 * time.Second,
		OfferTTL:                 30 * time.Minute,
		SweepBatch:               100,
		BaseURL:                  "http://localhost:8080",
		Currency:                 "usd",
		EventRepository:          events,
		AllocationRepository:     allocations,
		AcquiredTicketRepository: fx.tickets,
		WaitingListRepository:    fx.waitingList,
		StripeRepository:         fx.striper,
		MailerRepository:         fx.mails,
		CheckoutSessionStore:     fx.store,
		Publisher:                fx.publisher,
		CloudTask:                fx.tasks,
	})

	return fx
}

func customerCtx(id string) context.Context {
	return session.ContextWithAccount(context.Background(), session.Account{
		ID:    id,
		Name:  "Customer " + id,
		Email: id + "@example.com",
	})
}

func TestJoinWaitingList_OffersWithinCapacityThenQueues(t *testing.T) {
	fx := newFixture(t, 2)

	a, err := fx.useCase.JoinWaitingList(customerCtx("A"), JoinWaitingListRequest{AllocationID: "ALC-1"})
	require.NoError(t, err)
	assert.Equal(t, StatusOffered, a.Status)
	require.NotNil(t, a.OfferExpiresAt)

	b, err := fx.useCase.JoinWaitingList(customerCtx("B"), JoinWaitingListRequest{AllocationID: "ALC-1"})
	require.NoError(t, err)
	assert.Equal(t, StatusOffered, b.Status)

	c, err := fx.useCase.JoinWaitingList(customerCtx("C"), JoinWaitingListRequest{AllocationID: "ALC-1"})
	require.NoError(t, err)
	assert.Equal(t, StatusWaiting, c.Status)
	require.NotNil(t, c.Position)
	assert.Equal(t, int64(1), *c.Position)
	assert.Nil(t, c.OfferExpiresAt)

	// Two offers scheduled for expiry, none for the queued claim.
	assert.Len(t, fx.tasks.scheduled, 2)
}

func TestJoinWaitingList_DuplicateClaimReturnsExisting(t *testing.T) {
	fx := newFixture(t, 1)

	first, err := fx.useCase.JoinWaitingList(customerCtx("A"), JoinWaitingListRequest{AllocationID: "ALC-1"})
	require.NoError(t, err)

	second, err := fx.useCase.JoinWaitingList(customerCtx("A"), JoinWaitingListRequest{AllocationID: "ALC-1"})
	require.NoError(t, err)

	assert.Equal(t, first.EntryID, second.EntryID)
	assert.Equal(t, StatusOffered, second.Status)
	assert.Len(t, fx.waitingList.entries, 1)
}

func TestJoinWaitingList_LapsedOfferSlotGoesToOldestWaiter(t *testing.T) {
	fx := newFixture(t, 1)

	a, err := fx.useCase.JoinWaitingList(customerCtx("A"), JoinWaitingListRequest{AllocationID: "ALC-1"})
	require.NoError(t, err)
	require.Equal(t, StatusOffered, a.Status)

	b, err := fx.useCase.JoinWaitingList(customerCtx("B"), JoinWaitingListRequest{AllocationID: "ALC-1"})
	require.NoError(t, err)
	require.Equal(t, StatusWaiting, b.Status)

	// A's offer lapses but nothing has retired it yet. The slot it held
	// belongs to B, who queued first; C joining now must wait behind B.
	fx.waitingList.lapse(a.EntryID, time.Minute)

	c, err := fx.useCase.JoinWaitingList(customerCtx("C"), JoinWaitingListRequest{AllocationID: "ALC-1"})
	require.NoError(t, err)
	assert.Equal(t, StatusWaiting, c.Status)
	require.NotNil(t, c.Position)
	assert.Equal(t, int64(1), *c.Position)

	assert.Equal(t, StatusExpired, fx.waitingList.get(a.EntryID).Status)
	assert.Equal(t, StatusOffered, fx.waitingList.get(b.EntryID).Status)
}

func TestJoinWaitingList_CancelledEventIsGone(t *testing.T) {
	fx := newFixture(t, 1)

	_, err := fx.useCase.JoinWaitingList(customerCtx("A"), JoinWaitingListRequest{AllocationID: "ALC-GONE"})
	require.Error(t, err)
	assert.Equal(t, status.GONE, errors.Destruct(err).Status)
}

func TestFinalizePurchase_IssuesOneTicketIdempotently(t *testing.T) {
	fx := newFixture(t, 1)

	joined, err := fx.useCase.JoinWaitingList(customerCtx("A"), JoinWaitingListRequest{AllocationID: "ALC-1"})
	require.NoError(t, err)
	require.Equal(t, StatusOffered, joined.Status)

	req := FinalizePurchaseRequest{
		EntryID:          joined.EntryID,
		PaymentReference: "pi_123",
		Amount:           50,
		CustomerEmail:    "A@example.com",
		CustomerName:     "Customer A",
	}

	require.NoError(t, fx.useCase.FinalizePurchase(context.Background(), req))
	require.NoError(t, fx.useCase.FinalizePurchase(context.Background(), req))

	assert.Equal(t, 1, fx.tickets.count())
	assert.Equal(t, StatusPurchased, fx.waitingList.get(joined.EntryID).Status)

	issued, err := fx.tickets.FindByEntryID(context.Background(), joined.EntryID, nil)
	require.NoError(t, err)
	assert.Equal(t, "pi_123", issued.PaymentReference)
	assert.Equal(t, ticket.StatusValid, issued.Status)

	require.Len(t, fx.mails.confirmations, 1)
	assert.Equal(t, "A@example.com", fx.mails.confirmations[0].RecipientEmail)
}

func TestFinalizePurchase_LapsedOfferIsRejectedAndSlotMovesOn(t *testing.T) {
	fx := newFixture(t, 1)

	a, err := fx.useCase.JoinWaitingList(customerCtx("A"), JoinWaitingListRequest{AllocationID: "ALC-1"})
	require.NoError(t, err)
	b, err := fx.useCase.JoinWaitingList(customerCtx("B"), JoinWaitingListRequest{AllocationID: "ALC-1"})
	require.NoError(t, err)
	require.Equal(t, StatusWaiting, b.Status)

	fx.waitingList.lapse(a.EntryID, time.Minute)

	err = fx.useCase.FinalizePurchase(context.Background(), FinalizePurchaseRequest{
		EntryID:          a.EntryID,
		PaymentReference: "pi_late",
	})
	require.Error(t, err)
	assert.Equal(t, status.OFFER_EXPIRED, errors.Destruct(err).Status)

	assert.Equal(t, 0, fx.tickets.count())
	assert.Equal(t, StatusExpired, fx.waitingList.get(a.EntryID).Status)
	assert.Equal(t, StatusOffered, fx.waitingList.get(b.EntryID).Status, "freed capacity goes to the oldest waiting entry")
}

func TestOnExpireOffer_PromotesOldestWaiting(t *testing.T) {
	fx := newFixture(t, 1)

	a, err := fx.useCase.JoinWaitingList(customerCtx("A"), JoinWaitingListRequest{AllocationID: "ALC-1"})
	require.NoError(t, err)
	b, err := fx.useCase.JoinWaitingList(customerCtx("B"), JoinWaitingListRequest{AllocationID: "ALC-1"})
	require.NoError(t, err)
	c, err := fx.useCase.JoinWaitingList(customerCtx("C"), JoinWaitingListRequest{AllocationID: "ALC-1"})
	require.NoError(t, err)

	// Delivering the callback before the deadline must not move anything.
	require.NoError(t, fx.useCase.OnExpireOffer(context.Background(), ExpireOfferEvent{EntryID: a.EntryID}))
	assert.Equal(t, StatusOffered, fx.waitingList.get(a.EntryID).Status)

	fx.waitingList.lapse(a.EntryID, time.Minute)
	require.NoError(t, fx.useCase.OnExpireOffer(context.Background(), ExpireOfferEvent{EntryID: a.EntryID}))

	assert.Equal(t, StatusExpired, fx.waitingList.get(a.EntryID).Status)
	assert.Equal(t, StatusOffered, fx.waitingList.get(b.EntryID).Status)
	assert.Equal(t, StatusWaiting, fx.waitingList.get(c.EntryID).Status)

	// Redelivery is a no-op.
	require.NoError(t, fx.useCase.OnExpireOffer(context.Background(), ExpireOfferEvent{EntryID: a.EntryID}))
	assert.Equal(t, StatusOffered, fx.waitingList.get(b.EntryID).Status)
}

func TestReleaseOffer_OwnershipAndPromotion(t *testing.T) {
	fx := newFixture(t, 1)

	a, err := fx.useCase.JoinWaitingList(customerCtx("A"), JoinWaitingListRequest{AllocationID: "ALC-1"})
	require.NoError(t, err)
	b, err := fx.useCase.JoinWaitingList(customerCtx("B"), JoinWaitingListRequest{AllocationID: "ALC-1"})
	require.NoError(t, err)

	err = fx.useCase.ReleaseOffer(customerCtx("B"), ReleaseOfferRequest{EntryID: a.EntryID})
	require.Error(t, err)
	assert.Equal(t, status.FORBIDDEN, errors.Destruct(err).Status)

	require.NoError(t, fx.useCase.ReleaseOffer(customerCtx("A"), ReleaseOfferRequest{EntryID: a.EntryID}))
	assert.Equal(t, StatusExpired, fx.waitingList.get(a.EntryID).Status)
	assert.Equal(t, StatusOffered, fx.waitingList.get(b.EntryID).Status)
}

func TestSweepExpiredOffers_RetiresEveryLapsedOffer(t *testing.T) {
	fx := newFixture(t, 2)

	a, err := fx.useCase.JoinWaitingList(customerCtx("A"), JoinWaitingListRequest{AllocationID: "ALC-1"})
	require.NoError(t, err)
	b, err := fx.useCase.JoinWaitingList(customerCtx("B"), JoinWaitingListRequest{AllocationID: "ALC-1"})
	require.NoError(t, err)
	c, err := fx.useCase.JoinWaitingList(customerCtx("C"), JoinWaitingListRequest{AllocationID: "ALC-1"})
	require.NoError(t, err)

	fx.waitingList.lapse(a.EntryID, time.Minute)
	fx.waitingList.lapse(b.EntryID, 2*time.Minute)

	expired, err := fx.useCase.SweepExpiredOffers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, expired)

	assert.Equal(t, StatusExpired, fx.waitingList.get(a.EntryID).Status)
	assert.Equal(t, StatusExpired, fx.waitingList.get(b.EntryID).Status)
	assert.Equal(t, StatusOffered, fx.waitingList.get(c.EntryID).Status)
}

// Capacity two, four buyers: a purchase and an expiry must hand exactly one
// slot to the queue, never more.
func TestCapacityIsNeverExceeded(t *testing.T) {
	fx := newFixture(t, 2)

	a, err := fx.useCase.JoinWaitingList(customerCtx("A"), JoinWaitingListRequest{AllocationID: "ALC-1"})
	require.NoError(t, err)
	b, err := fx.useCase.JoinWaitingList(customerCtx("B"), JoinWaitingListRequest{AllocationID: "ALC-1"})
	require.NoError(t, err)
	c, err := fx.useCase.JoinWaitingList(customerCtx("C"), JoinWaitingListRequest{AllocationID: "ALC-1"})
	require.NoError(t, err)
	d, err := fx.useCase.JoinWaitingList(customerCtx("D"), JoinWaitingListRequest{AllocationID: "ALC-1"})
	require.NoError(t, err)

	assert.Equal(t, StatusOffered, a.Status)
	assert.Equal(t, StatusOffered, b.Status)
	assert.Equal(t, StatusWaiting, c.Status)
	assert.Equal(t, StatusWaiting, d.Status)

	// A pays: the purchase keeps its slot, nobody gets promoted.
	require.NoError(t, fx.useCase.FinalizePurchase(context.Background(), FinalizePurchaseRequest{
		EntryID:          a.EntryID,
		PaymentReference: "pi_a",
	}))
	assert.Equal(t, StatusWaiting, fx.waitingList.get(c.EntryID).Status)

	// B walks away: exactly one slot frees and C, the oldest, takes it.
	fx.waitingList.lapse(b.EntryID, time.Minute)
	require.NoError(t, fx.useCase.OnExpireOffer(context.Background(), ExpireOfferEvent{EntryID: b.EntryID}))

	assert.Equal(t, StatusOffered, fx.waitingList.get(c.EntryID).Status)
	assert.Equal(t, StatusWaiting, fx.waitingList.get(d.EntryID).Status)

	pos, err := fx.useCase.GetQueuePosition(customerCtx("D"), GetQueuePositionRequest{AllocationID: "ALC-1"})
	require.NoError(t, err)
	require.NotNil(t, pos.Position)
	assert.Equal(t, int64(1), *pos.Position)

	// Live offers plus purchases never exceed the allocation's capacity.
	offered, err := fx.waitingList.CountActiveOfferedByAllocationID(context.Background(), "ALC-1", time.Now(), nil)
	require.NoError(t, err)
	purchased, err := fx.waitingList.CountPurchasedByAllocationID(context.Background(), "ALC-1", nil)
	require.NoError(t, err)
	assert.LessOrEqual(t, offered+purchased, int64(2))
}

func TestCheckout_QueuedClaimGetsNoPaymentURL(t *testing.T) {
	fx := newFixture(t, 1)

	_, err := fx.useCase.JoinWaitingList(customerCtx("A"), JoinWaitingListRequest{AllocationID: "ALC-1"})
	require.NoError(t, err)

	out, err := fx.useCase.Checkout(customerCtx("B"), CheckoutRequest{AllocationID: "ALC-1"})
	require.NoError(t, err)
	assert.Equal(t, StatusWaiting, out.Status)
	assert.Empty(t, out.PaymentURL)
	assert.Empty(t, fx.striper.sessions)
}

func TestCheckout_OfferOpensPaymentSession(t *testing.T) {
	fx := newFixture(t, 1)

	out, err := fx.useCase.Checkout(customerCtx("A"), CheckoutRequest{AllocationID: "ALC-1"})
	require.NoError(t, err)
	assert.Equal(t, StatusOffered, out.Status)
	assert.NotEmpty(t, out.PaymentURL)

	require.Len(t, fx.striper.sessions, 1)
	created := fx.striper.sessions[0]
	assert.Equal(t, out.EntryID, created.Metadata["entry_id"])
	assert.Equal(t, "A@example.com", created.CustomerEmail)
	assert.Equal(t, int64(5000), created.AmountCents)

	// The session is remembered so a release can void it.
	sessionID, err := fx.store.Get(context.Background(), out.EntryID)
	require.NoError(t, err)
	assert.NotEmpty(t, sessionID)
}

func TestOnPaymentNotification_RoutesCompletedSessions(t *testing.T) {
	fx := newFixture(t, 1)

	joined, err := fx.useCase.JoinWaitingList(customerCtx("A"), JoinWaitingListRequest{AllocationID: "ALC-1"})
	require.NoError(t, err)

	ignored := stripe.NotificationEvent{Type: "charge.refunded"}
	require.NoError(t, fx.useCase.OnPaymentNotification(context.Background(), ignored))
	assert.Equal(t, 0, fx.tickets.count())

	completed := stripe.NotificationEvent{ID: "evt_1", Type: stripe.EventCheckoutSessionCompleted}
	completed.Data.Object.ID = "cs_1"
	completed.Data.Object.PaymentIntent = "pi_1"
	completed.Data.Object.AmountTotal = 5000
	completed.Data.Object.Metadata = map[string]string{
		"entry_id":       joined.EntryID,
		"customer_email": "A@example.com",
	}

	require.NoError(t, fx.useCase.OnPaymentNotification(context.Background(), completed))
	assert.Equal(t, 1, fx.tickets.count())
	assert.Equal(t, StatusPurchased, fx.waitingList.get(joined.EntryID).Status)
}
