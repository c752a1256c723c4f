package review

import (
	"context"
	"database/sql"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ticketbay/tb-marketplace/internal/module/customerapp/event"
	"github.com/ticketbay/tb-marketplace/internal/module/customerapp/ticket"
	"github.com/ticketbay/tb-marketplace/internal/pkg/session"
	"github.com/ticketbay/tb-marketplace/pkg/applogger"
	"github.com/ticketbay/tb-marketplace/pkg/errors"
	"github.com/ticketbay/tb-marketplace/pkg/status"
)

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
	return nil, nil
}

func (f *fakeEventRepo) Count(ctx context.Context, tx *sql.Tx) (int64, error) {
	return int64(len(f.events)), nil
}

type fakeTicketRepo struct {
	owned map[string]int64 // "eventID/customerID" -> count
}

func (f *fakeTicketRepo) Save(ctx context.Context, t ticket.AcquiredTicket, tx *sql.Tx) error {
	return nil
}

func (f *fakeTicketRepo) FindByID(ctx context.Context, ID string, tx *sql.Tx) (ticket.AcquiredTicket, error) {
	return ticket.AcquiredTicket{}, errors.New(http.StatusNotFound, status.NOT_FOUND, "acquired ticket is not found")
}

func (f *fakeTicketRepo) FindByEntryID(ctx context.Context, entryID string, tx *sql.Tx) (ticket.AcquiredTicket, error) {
	return ticket.AcquiredTicket{}, errors.New(http.StatusNotFound, status.NOT_FOUND, "acquired ticket is not found")
}

func (f *fakeTicketRepo) FindManyByCustomerID(ctx context.Context, customerID string, tx *sql.Tx) ([]ticket.AcquiredTicket, error) {
	return nil, nil
}

func (f *fakeTicketRepo) CountByEventIDAndCustomerID(ctx context.Context, eventID string, customerID string, tx *sql.Tx) (int64, error) {
	return f.owned[eventID+"/"+customerID], nil
}

type fakeReviewRepo struct {
	reviews map[string]Review // "eventID/customerID"
}

func newFakeReviewRepo() *fakeReviewRepo {
	return &fakeReviewRepo{reviews: map[string]Review{}}
}

func (f *fakeReviewRepo) Save(ctx context.Context, rv Review, tx *sql.Tx) error {
	key := rv.EventID + "/" + rv.CustomerID
	if _, ok := f.reviews[key]; ok {
		return errors.New(http.StatusConflict, status.CONFLICT, "event has already been reviewed by this customer")
	}
	f.reviews[key] = rv
	return nil
}

func (f *fakeReviewRepo) Update(ctx context.Context, rv Review, tx *sql.Tx) error {
	key := rv.EventID + "/" + rv.CustomerID
	if _, ok := f.reviews[key]; !ok {
		return errors.New(http.StatusNotFound, status.NOT_FOUND, "review is not found")
	}
	f.reviews[key] = rv
	return nil
}

func (f *fakeReviewRepo) FindByEventIDAndCustomerID(ctx context.Context, eventID, customerID string, tx *sql.Tx) (Review, error) {
	rv, ok := f.reviews[eventID+"/"+customerID]
	if !ok {
		return Review{}, errors.New(http.StatusNotFound, status.NOT_FOUND, "review is not found")
	}
	return rv, nil
}

func (f *fakeReviewRepo) FindManyByEventID(ctx context.Context, eventID string, offset, limit int64, tx *sql.Tx) ([]Review, error) {
	var out []Review
	for _, rv := range f.reviews {
		if rv.EventID == eventID {
			out = append(out, rv)
		}
	}
	return out, nil
}

func (f *fakeReviewRepo) SummaryByEventID(ctx context.Context, eventID string, tx *sql.Tx) (Summary, error) {
	var sum Summary
	var total int64
	for _, rv := range f.reviews {
		if rv.EventID == eventID {
			sum.Count++
			total += rv.Rating
		}
	}
	if sum.Count > 0 {
		sum.AverageRating = float64(total) / float64(sum.Count)
	}
	return sum, nil
}

func newReviewUseCase(owned map[string]int64) (ReviewUseCase, *fakeReviewRepo) {
	reviews := newFakeReviewRepo()
	uc := NewReviewUseCase(ReviewUseCaseProperty{
		Logger:  applogger.GetLogrus(),
		Timeout: 5 * time.Second,
		EventRepository: &fakeEventRepo{events: map[string]event.Event{
			"EVT-1": {ID: "EVT-1", Name: "Warehouse Live"},
		}},
		AcquiredTicketRepository: &fakeTicketRepo{owned: owned},
		ReviewRepository:         reviews,
	})
	return uc, reviews
}

func customerCtx(id string) context.Context {
	return session.ContextWithAccount(context.Background(), session.Account{
		ID:   id,
		Name: "Customer " + id,
	})
}

func TestCreateReview_RequiresTicketOwnership(t *testing.T) {
	uc, _ := newReviewUseCase(map[string]int64{})

	_, err := uc.CreateReview(customerCtx("A"), CreateReviewRequest{EventID: "EVT-1", Rating: 5})
	require.Error(t, err)
	assert.Equal(t, status.FORBIDDEN, errors.Destruct(err).Status)
}

func TestCreateReview_OnePerCustomerPerEvent(t *testing.T) {
	uc, _ := newReviewUseCase(map[string]int64{"EVT-1/A": 1})

	first, err := uc.CreateReview(customerCtx("A"), CreateReviewRequest{EventID: "EVT-1", Rating: 4, Comment: "great show"})
	require.NoError(t, err)
	assert.Equal(t, int64(4), first.Rating)

	_, err = uc.CreateReview(customerCtx("A"), CreateReviewRequest{EventID: "EVT-1", Rating: 2})
	require.Error(t, err)
	assert.Equal(t, status.CONFLICT, errors.Destruct(err).Status)
}

func TestCreateReview_UnknownEvent(t *testing.T) {
	uc, _ := newReviewUseCase(map[string]int64{})

	_, err := uc.CreateReview(customerCtx("A"), CreateReviewRequest{EventID: "EVT-404", Rating: 3})
	require.Error(t, err)
	assert.Equal(t, status.NOT_FOUND, errors.Destruct(err).Status)
}

func TestUpdateReview_ReplacesOwnReview(t *testing.T) {
	uc, _ := newReviewUseCase(map[string]int64{"EVT-1/A": 1})

	_, err := uc.CreateReview(customerCtx("A"), CreateReviewRequest{EventID: "EVT-1", Rating: 3, Comment: "fine"})
	require.NoError(t, err)

	updated, err := uc.UpdateReview(customerCtx("A"), UpdateReviewRequest{EventID: "EVT-1", Rating: 5, Comment: "grew on me"})
	require.NoError(t, err)
	assert.Equal(t, int64(5), updated.Rating)

	out, err := uc.GetManyReview(context.Background(), GetManyReviewRequest{EventID: "EVT-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), out.Count)
	assert.Equal(t, float64(5), out.AverageRating)
}
