package waitinglist

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/cloudtasks/apiv2/cloudtaskspb"
	"github.com/sirupsen/logrus"

	"github.com/ticketbay/tb-marketplace/internal/module/customerapp/event"
	"github.com/ticketbay/tb-marketplace/internal/module/customerapp/mailer"
	"github.com/ticketbay/tb-marketplace/internal/module/customerapp/stripe"
	"github.com/ticketbay/tb-marketplace/internal/module/customerapp/ticket"
	"github.com/ticketbay/tb-marketplace/internal/pkg/session"
	"github.com/ticketbay/tb-marketplace/internal/pkg/util"
	"github.com/ticketbay/tb-marketplace/pkg/errors"
	"github.com/ticketbay/tb-marketplace/pkg/gctasks"
	"github.com/ticketbay/tb-marketplace/pkg/pubsub"
	"github.com/ticketbay/tb-marketplace/pkg/status"
)

// ExpireOfferQueueID is the task queue that delivers deferred offer expiry
// callbacks. Main creates it at startup.
const ExpireOfferQueueID = "expire-offer"

const maxTxAttempts = 3

type WaitingListUseCase interface {
	JoinWaitingList(ctx context.Context, req JoinWaitingListRequest) (EntryResponse, error)
	GetQueuePosition(ctx context.Context, req GetQueuePositionRequest) (EntryResponse, error)
	ReleaseOffer(ctx context.Context, req ReleaseOfferRequest) error
	Checkout(ctx context.Context, req CheckoutRequest) (CheckoutResponse, error)
	OnPaymentNotification(ctx context.Context, notification stripe.NotificationEvent) error
	FinalizePurchase(ctx context.Context, req FinalizePurchaseRequest) error
	OnExpireOffer(ctx context.Context, e ExpireOfferEvent) error
	SweepExpiredOffers(ctx context.Context) (int, error)
}

type WaitingListUseCaseProperty struct {
	Logger     *logrus.Logger
	Timeout    time.Duration
	OfferTTL   time.Duration
	SweepBatch int
	BaseURL    string
	Currency   string

	EventRepository          event.EventRepository
	AllocationRepository     ticket.AllocationRepository
	AcquiredTicketRepository ticket.AcquiredTicketRepository
	WaitingListRepository    WaitingListRepository
	StripeRepository         stripe.StripeRepository
	MailerRepository         mailer.MailerRepository
	CheckoutSessionStore     CheckoutSessionStore
	Publisher                pubsub.Publisher
	CloudTask                gctasks.Client
}

type waitingListUseCase struct {
	logger     *logrus.Logger
	timeout    time.Duration
	offerTTL   time.Duration
	sweepBatch int
	baseURL    string
	currency   string

	eventRepository          event.EventRepository
	allocationRepository     ticket.AllocationRepository
	acquiredTicketRepository ticket.AcquiredTicketRepository
	waitingListRepository    WaitingListRepository
	stripeRepository         stripe.StripeRepository
	mailerRepository         mailer.MailerRepository
	checkoutSessionStore     CheckoutSessionStore
	publisher                pubsub.Publisher
	cloudTask                gctasks.Client
}

func NewWaitingListUseCase(props WaitingListUseCaseProperty) WaitingListUseCase {
	return &waitingListUseCase{
		logger:                   props.Logger,
		timeout:                  props.Timeout,
		offerTTL:                 props.OfferTTL,
		sweepBatch:               props.SweepBatch,
		baseURL:                  props.BaseURL,
		currency:                 props.Currency,
		eventRepository:          props.EventRepository,
		allocationRepository:     props.AllocationRepository,
		acquiredTicketRepository: props.AcquiredTicketRepository,
		waitingListRepository:    props.WaitingListRepository,
		stripeRepository:         props.StripeRepository,
		mailerRepository:         props.MailerRepository,
		checkoutSessionStore:     props.CheckoutSessionStore,
		publisher:                props.Publisher,
		cloudTask:                props.CloudTask,
	}
}

// JoinWaitingList registers one live claim per customer per allocation. When
// capacity is free the claim becomes an offer immediately, otherwise it
// queues behind earlier claims. Joining again while a live claim exists
// returns that claim unchanged.
func (u *waitingListUseCase) JoinWaitingList(ctx context.Context, req JoinWaitingListRequest) (EntryResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	account, err := session.GetAccountFromCtx(ctx)
	if err != nil {
		return EntryResponse{}, err
	}

	var out EntryResponse
	var fx txEffects
	err = u.runInTx(ctx, func(tx *sql.Tx) error {
		fx = txEffects{}

		alloc, err := u.allocationRepository.FindByIDForUpdate(ctx, req.AllocationID, tx)
		if err != nil {
			return err
		}

		ev, err := u.eventRepository.FindByID(ctx, alloc.EventID, tx)
		if err != nil {
			return err
		}
		if ev.IsCancelled {
			return errors.New(http.StatusGone, status.GONE, "event has been cancelled")
		}

		now := time.Now()

		existing, err := u.waitingListRepository.FindLiveByAllocationIDAndCustomerID(ctx, alloc.ID, account.ID, tx)
		switch {
		case err == nil && !existing.OfferLapsed(now):
			out, err = u.entryResponse(ctx, existing, tx)
			return err
		case err != nil && errors.Destruct(err).Status != status.NOT_FOUND:
			return err
		}
		// A caller whose own offer lapsed falls through; the retire pass
		// below handles it with every other stale offer on the unit.

		lapsed, err := u.waitingListRepository.FindManyLapsedOfferedByAllocationID(ctx, alloc.ID, now, tx)
		if err != nil {
			return err
		}
		for _, stale := range lapsed {
			if err := u.waitingListRepository.UpdateStatus(ctx, stale.ID, StatusExpired, stale.OfferExpiresAt, now, tx); err != nil {
				return err
			}
			fx.expired = append(fx.expired, expiredEffect{entry: stale, reason: ExpireReasonLapsed})
		}

		entry := Entry{
			ID:           util.GenerateTimestampWithPrefix("WL"),
			AllocationID: alloc.ID,
			EventID:      alloc.EventID,
			CustomerID:   account.ID,
			Status:       StatusWaiting,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := u.waitingListRepository.Save(ctx, entry, tx); err != nil {
			return err
		}

		// Promotion decides who gets any free capacity. The new claim only
		// receives an immediate offer when no older entry is still waiting.
		promoted, err := u.promoteWaiting(ctx, alloc, now, tx)
		if err != nil {
			return err
		}
		fx.offered = append(fx.offered, promoted...)
		for _, p := range promoted {
			if p.ID == entry.ID {
				entry = p
			}
		}

		out, err = u.entryResponse(ctx, entry, tx)
		return err
	})
	if err != nil {
		return EntryResponse{}, err
	}

	u.applyEffects(ctx, fx)

	return out, nil
}

// GetQueuePosition reports the caller's live claim on an allocation. A claim
// whose offer already lapsed is expired on the spot, which hands the slot to
// the next waiting customer before the caller sees the EXPIRED status.
func (u *waitingListUseCase) GetQueuePosition(ctx context.Context, req GetQueuePositionRequest) (EntryResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	account, err := session.GetAccountFromCtx(ctx)
	if err != nil {
		return EntryResponse{}, err
	}

	entry, err := u.waitingListRepository.FindLiveByAllocationIDAndCustomerID(ctx, req.AllocationID, account.ID, nil)
	if err != nil {
		return EntryResponse{}, err
	}

	if entry.OfferLapsed(time.Now()) {
		if err := u.OnExpireOffer(ctx, ExpireOfferEvent{EntryID: entry.ID}); err != nil {
			return EntryResponse{}, err
		}

		return EntryResponse{
			EntryID:      entry.ID,
			AllocationID: entry.AllocationID,
			EventID:      entry.EventID,
			Status:       StatusExpired,
		}, nil
	}

	return u.entryResponse(ctx, entry, nil)
}

// ReleaseOffer lets a customer walk away from a live claim. The freed
// capacity is handed to the oldest waiting entry in the same transaction.
func (u *waitingListUseCase) ReleaseOffer(ctx context.Context, req ReleaseOfferRequest) error {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	account, err := session.GetAccountFromCtx(ctx)
	if err != nil {
		return err
	}

	var fx txEffects
	err = u.runInTx(ctx, func(tx *sql.Tx) error {
		fx = txEffects{}

		entry, err := u.waitingListRepository.FindByID(ctx, req.EntryID, tx)
		if err != nil {
			return err
		}
		if entry.CustomerID != account.ID {
			return errors.New(http.StatusForbidden, status.FORBIDDEN, "waiting list entry belongs to another customer")
		}
		if !entry.IsLive() {
			return nil
		}

		alloc, err := u.allocationRepository.FindByIDForUpdate(ctx, entry.AllocationID, tx)
		if err != nil {
			return err
		}

		// Re-read under the allocation lock; a concurrent finalize or sweep
		// may have moved the entry while we waited for the lock.
		entry, err = u.waitingListRepository.FindByID(ctx, req.EntryID, tx)
		if err != nil {
			return err
		}
		if !entry.IsLive() {
			return nil
		}

		now := time.Now()
		reason := ExpireReasonReleased
		if entry.OfferLapsed(now) {
			reason = ExpireReasonLapsed
		}

		promoted, err := u.expireEntry(ctx, entry, alloc, now, tx)
		if err != nil {
			return err
		}
		fx.expired = append(fx.expired, expiredEffect{entry: entry, reason: reason})
		fx.offered = append(fx.offered, promoted...)

		return nil
	})
	if err != nil {
		return err
	}

	u.applyEffects(ctx, fx)

	return nil
}

// Checkout joins the waiting list and, when the caller holds an offer,
// opens a payment session bounded by the offer's expiry. A queued caller
// gets their position back instead of a payment URL.
func (u *waitingListUseCase) Checkout(ctx context.Context, req CheckoutRequest) (CheckoutResponse, error) {
	joined, err := u.JoinWaitingList(ctx, JoinWaitingListRequest{AllocationID: req.AllocationID})
	if err != nil {
		return CheckoutResponse{}, err
	}

	out := CheckoutResponse{
		EntryID:        joined.EntryID,
		Status:         joined.Status,
		Position:       joined.Position,
		OfferExpiresAt: joined.OfferExpiresAt,
	}
	if joined.Status != StatusOffered {
		return out, nil
	}

	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	account, err := session.GetAccountFromCtx(ctx)
	if err != nil {
		return CheckoutResponse{}, err
	}

	alloc, err := u.allocationRepository.FindByID(ctx, req.AllocationID, nil)
	if err != nil {
		return CheckoutResponse{}, err
	}

	ev, err := u.eventRepository.FindByID(ctx, alloc.EventID, nil)
	if err != nil {
		return CheckoutResponse{}, err
	}

	productName := ev.Name
	if alloc.TierName != "" {
		productName = fmt.Sprintf("%s (%s)", ev.Name, alloc.TierName)
	}

	sess, err := u.stripeRepository.CreateCheckoutSession(ctx, stripe.CheckoutSessionRequest{
		ProductName:   productName,
		Description:   fmt.Sprintf("Ticket for %s at %s", ev.Name, ev.Location),
		AmountCents:   int64(alloc.UnitPrice * 100),
		Currency:      u.currency,
		CustomerEmail: account.Email,
		SuccessURL:    fmt.Sprintf("%s/tickets/purchase-success", u.baseURL),
		CancelURL:     fmt.Sprintf("%s/events/%s", u.baseURL, ev.ID),
		ExpiresAt:     joined.OfferExpiresAt.Unix(),
		Metadata: map[string]string{
			"entry_id":       joined.EntryID,
			"allocation_id":  alloc.ID,
			"event_id":       ev.ID,
			"customer_id":    account.ID,
			"customer_email": account.Email,
			"customer_name":  account.Name,
		},
	})
	if err != nil {
		return CheckoutResponse{}, err
	}

	if err := u.checkoutSessionStore.Set(ctx, joined.EntryID, sess.ID, time.Until(*joined.OfferExpiresAt)); err != nil {
		u.logger.WithContext(ctx).WithError(err).Warn("checkout session mapping not stored")
	}

	out.PaymentURL = sess.URL

	return out, nil
}

// OnPaymentNotification routes a verified payment notification to the
// purchase finalizer. Unknown notification types are acknowledged and
// dropped so the payment collaborator stops retrying them.
func (u *waitingListUseCase) OnPaymentNotification(ctx context.Context, notification stripe.NotificationEvent) error {
	if notification.Type != stripe.EventCheckoutSessionCompleted {
		u.logger.WithContext(ctx).WithField("type", notification.Type).Info("ignoring payment notification")
		return nil
	}

	object := notification.Data.Object
	entryID := object.Metadata["entry_id"]
	if entryID == "" {
		u.logger.WithContext(ctx).WithField("notification_id", notification.ID).Warn("payment notification carries no entry id")
		return nil
	}

	return u.FinalizePurchase(ctx, FinalizePurchaseRequest{
		EntryID:          entryID,
		PaymentReference: object.PaymentIntent,
		Amount:           float64(object.AmountTotal) / 100,
		CustomerEmail:    object.Metadata["customer_email"],
		CustomerName:     object.Metadata["customer_name"],
	})
}

// FinalizePurchase converts an active offer into an acquired ticket. The
// operation is idempotent on the entry id: a repeated notification for an
// already purchased entry succeeds without issuing a second ticket. A
// notification arriving after the offer lapsed is rejected after the lapsed
// offer has been retired, so capacity is never consumed twice.
func (u *waitingListUseCase) FinalizePurchase(ctx context.Context, req FinalizePurchaseRequest) error {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	var fx txEffects
	var finalizeErr error
	err := u.runInTx(ctx, func(tx *sql.Tx) error {
		fx = txEffects{}
		finalizeErr = nil

		entry, err := u.waitingListRepository.FindByID(ctx, req.EntryID, tx)
		if err != nil {
			if errors.Destruct(err).Status == status.NOT_FOUND {
				u.logger.WithContext(ctx).WithField("entry_id", req.EntryID).Warn("payment notification for unknown waiting list entry")
				return nil
			}
			return err
		}

		alloc, err := u.allocationRepository.FindByIDForUpdate(ctx, entry.AllocationID, tx)
		if err != nil {
			return err
		}

		entry, err = u.waitingListRepository.FindByID(ctx, req.EntryID, tx)
		if err != nil {
			return err
		}

		now := time.Now()
		switch {
		case entry.Status == StatusPurchased:
			return nil
		case entry.Status == StatusExpired:
			finalizeErr = errors.New(http.StatusGone, status.OFFER_EXPIRED, "offer has expired, rejoin the waiting list")
			return nil
		case entry.Status == StatusWaiting:
			finalizeErr = errors.New(http.StatusConflict, status.CONFLICT, "waiting list entry holds no active offer")
			return nil
		case entry.OfferLapsed(now):
			promoted, perr := u.expireEntry(ctx, entry, alloc, now, tx)
			if perr != nil {
				return perr
			}
			fx.expired = append(fx.expired, expiredEffect{entry: entry, reason: ExpireReasonLapsed})
			fx.offered = append(fx.offered, promoted...)
			finalizeErr = errors.New(http.StatusGone, status.OFFER_EXPIRED, "offer has expired, rejoin the waiting list")
			return nil
		}

		if req.Amount > 0 && req.Amount != alloc.UnitPrice {
			u.logger.WithContext(ctx).WithFields(logrus.Fields{
				"entry_id":   entry.ID,
				"amount":     req.Amount,
				"unit_price": alloc.UnitPrice,
			}).Warn("paid amount differs from unit price")
		}

		if err := u.waitingListRepository.UpdateStatus(ctx, entry.ID, StatusPurchased, entry.OfferExpiresAt, now, tx); err != nil {
			return err
		}

		acquired := ticket.AcquiredTicket{
			ID:               util.GenerateUUIDWithPrefix("TKT"),
			EntryID:          entry.ID,
			AllocationID:     alloc.ID,
			EventID:          entry.EventID,
			CustomerID:       entry.CustomerID,
			PaymentReference: req.PaymentReference,
			Status:           ticket.StatusValid,
			PurchasedAt:      now,
		}
		if err := u.acquiredTicketRepository.Save(ctx, acquired, tx); err != nil {
			return err
		}

		ev, err := u.eventRepository.FindByID(ctx, entry.EventID, tx)
		if err != nil {
			return err
		}

		fx.issued = &issuedEffect{
			entry:  entry,
			ticket: acquired,
			confirmation: mailer.TicketConfirmation{
				RecipientEmail: req.CustomerEmail,
				RecipientName:  req.CustomerName,
				EventName:      ev.Name,
				EventDate:      ev.EventDate.Format("Monday, 2 January 2006 15:04"),
				TierName:       alloc.TierName,
				TicketID:       acquired.ID,
			},
		}

		return nil
	})
	if err != nil {
		return err
	}

	u.applyEffects(ctx, fx)

	return finalizeErr
}

// OnExpireOffer retires a lapsed offer and promotes the oldest waiting
// entry. It is safe to deliver the same expiry callback more than once and
// safe to deliver it early; only an OFFERED entry past its deadline moves.
func (u *waitingListUseCase) OnExpireOffer(ctx context.Context, e ExpireOfferEvent) error {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	var fx txEffects
	err := u.runInTx(ctx, func(tx *sql.Tx) error {
		fx = txEffects{}

		entry, err := u.waitingListRepository.FindByID(ctx, e.EntryID, tx)
		if err != nil {
			if errors.Destruct(err).Status == status.NOT_FOUND {
				u.logger.WithContext(ctx).WithField("entry_id", e.EntryID).Warn("expiry callback for unknown waiting list entry")
				return nil
			}
			return err
		}
		if entry.Status != StatusOffered {
			return nil
		}

		alloc, err := u.allocationRepository.FindByIDForUpdate(ctx, entry.AllocationID, tx)
		if err != nil {
			return err
		}

		entry, err = u.waitingListRepository.FindByID(ctx, e.EntryID, tx)
		if err != nil {
			return err
		}

		now := time.Now()
		if entry.Status != StatusOffered || !entry.OfferLapsed(now) {
			return nil
		}

		promoted, err := u.expireEntry(ctx, entry, alloc, now, tx)
		if err != nil {
			return err
		}
		fx.expired = append(fx.expired, expiredEffect{entry: entry, reason: ExpireReasonLapsed})
		fx.offered = append(fx.offered, promoted...)

		return nil
	})
	if err != nil {
		return err
	}

	u.applyEffects(ctx, fx)

	return nil
}

// SweepExpiredOffers is the reconciliation pass behind the deferred expiry
// callbacks. Each lapsed offer is retired in its own transaction so one
// failure does not stall the batch.
func (u *waitingListUseCase) SweepExpiredOffers(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	entries, err := u.waitingListRepository.FindManyLapsedOffered(ctx, time.Now(), u.sweepBatch, nil)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, entry := range entries {
		if err := u.OnExpireOffer(ctx, ExpireOfferEvent{EntryID: entry.ID}); err != nil {
			u.logger.WithContext(ctx).WithField("entry_id", entry.ID).WithError(err).Error("sweep failed to expire offer")
			continue
		}
		expired++
	}

	return expired, nil
}

// runInTx executes fn inside a transaction, retrying a bounded number of
// times when the database reports a serialization conflict.
func (u *waitingListUseCase) runInTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	var err error
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		err = u.attemptTx(ctx, fn)
		if err == nil || errors.Destruct(err).Status != status.SERIALIZATION_CONFLICT {
			return err
		}
	}

	return err
}

func (u *waitingListUseCase) attemptTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := u.waitingListRepository.BeginTx(ctx)
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		u.waitingListRepository.Rollback(ctx, tx)
		return err
	}

	return u.waitingListRepository.CommitTx(ctx, tx)
}

// remainingCapacity derives free capacity from the committed purchases and
// the offers still inside their window. There is no stored counter to
// drift; the allocation row lock makes the two counts a consistent pair.
func (u *waitingListUseCase) remainingCapacity(ctx context.Context, alloc ticket.Allocation, now time.Time, tx *sql.Tx) (int64, error) {
	purchased, err := u.waitingListRepository.CountPurchasedByAllocationID(ctx, alloc.ID, tx)
	if err != nil {
		return 0, err
	}

	offered, err := u.waitingListRepository.CountActiveOfferedByAllocationID(ctx, alloc.ID, now, tx)
	if err != nil {
		return 0, err
	}

	return alloc.TotalQuantity - purchased - offered, nil
}

// promoteWaiting extends offers to the oldest waiting entries until free
// capacity runs out. The caller must hold the allocation row lock.
func (u *waitingListUseCase) promoteWaiting(ctx context.Context, alloc ticket.Allocation, now time.Time, tx *sql.Tx) ([]Entry, error) {
	remaining, err := u.remainingCapacity(ctx, alloc, now, tx)
	if err != nil {
		return nil, err
	}

	var promoted []Entry
	for remaining > 0 {
		next, err := u.waitingListRepository.FindOldestWaitingByAllocationID(ctx, alloc.ID, tx)
		if err != nil {
			if errors.Destruct(err).Status == status.NOT_FOUND {
				break
			}
			return nil, err
		}

		expiresAt := now.Add(u.offerTTL)
		if err := u.waitingListRepository.UpdateStatus(ctx, next.ID, StatusOffered, &expiresAt, now, tx); err != nil {
			return nil, err
		}

		next.Status = StatusOffered
		next.OfferExpiresAt = &expiresAt
		next.UpdatedAt = now
		promoted = append(promoted, next)
		remaining--
	}

	return promoted, nil
}

// expireEntry retires a live entry and immediately reassigns whatever
// capacity that frees. The caller must hold the allocation row lock.
func (u *waitingListUseCase) expireEntry(ctx context.Context, entry Entry, alloc ticket.Allocation, now time.Time, tx *sql.Tx) ([]Entry, error) {
	if !CanTransition(entry.Status, StatusExpired) {
		return nil, errors.New(http.StatusConflict, status.CONFLICT, fmt.Sprintf("waiting list entry cannot move from %s to %s", entry.Status, StatusExpired))
	}

	if err := u.waitingListRepository.UpdateStatus(ctx, entry.ID, StatusExpired, entry.OfferExpiresAt, now, tx); err != nil {
		return nil, err
	}

	return u.promoteWaiting(ctx, alloc, now, tx)
}

func (u *waitingListUseCase) entryResponse(ctx context.Context, e Entry, tx *sql.Tx) (EntryResponse, error) {
	resp := EntryResponse{
		EntryID:        e.ID,
		AllocationID:   e.AllocationID,
		EventID:        e.EventID,
		Status:         e.Status,
		OfferExpiresAt: e.OfferExpiresAt,
	}

	if e.Status == StatusWaiting {
		before, err := u.waitingListRepository.CountWaitingBefore(ctx, e, tx)
		if err != nil {
			return EntryResponse{}, err
		}
		position := before + 1
		resp.Position = &position
	}

	return resp, nil
}

type expiredEffect struct {
	entry  Entry
	reason string
}

type issuedEffect struct {
	entry        Entry
	ticket       ticket.AcquiredTicket
	confirmation mailer.TicketConfirmation
}

type txEffects struct {
	offered []Entry
	expired []expiredEffect
	issued  *issuedEffect
}

// applyEffects runs the side effects collected during a transaction, after
// it has committed. Failures here are logged and absorbed; the sweep and
// the lazy expiry checks reconcile anything a lost task or message leaves
// behind.
func (u *waitingListUseCase) applyEffects(ctx context.Context, fx txEffects) {
	for _, eff := range fx.expired {
		payload, _ := json.Marshal(OfferExpiredEvent{
			EntryID:      eff.entry.ID,
			AllocationID: eff.entry.AllocationID,
			EventID:      eff.entry.EventID,
			CustomerID:   eff.entry.CustomerID,
			Reason:       eff.reason,
		})
		u.publisher.Publish(ctx, TopicOfferExpired, eff.entry.ID, nil, payload)

		if eff.reason == ExpireReasonReleased {
			if sessionID, err := u.checkoutSessionStore.Get(ctx, eff.entry.ID); err == nil {
				if err := u.stripeRepository.ExpireCheckoutSession(ctx, sessionID); err != nil {
					u.logger.WithContext(ctx).WithField("entry_id", eff.entry.ID).WithError(err).Warn("checkout session not expired")
				}
			}
		}
		if err := u.checkoutSessionStore.Delete(ctx, eff.entry.ID); err != nil {
			u.logger.WithContext(ctx).WithField("entry_id", eff.entry.ID).WithError(err).Warn("checkout session mapping not deleted")
		}
	}

	for _, entry := range fx.offered {
		payload, _ := json.Marshal(OfferCreatedEvent{
			EntryID:        entry.ID,
			AllocationID:   entry.AllocationID,
			EventID:        entry.EventID,
			CustomerID:     entry.CustomerID,
			OfferExpiresAt: *entry.OfferExpiresAt,
		})
		u.publisher.Publish(ctx, TopicOfferCreated, entry.ID, nil, payload)
		u.scheduleExpiry(ctx, entry)
	}

	if fx.issued != nil {
		payload, _ := json.Marshal(TicketIssuedEvent{
			TicketID:         fx.issued.ticket.ID,
			EntryID:          fx.issued.entry.ID,
			AllocationID:     fx.issued.ticket.AllocationID,
			EventID:          fx.issued.ticket.EventID,
			CustomerID:       fx.issued.ticket.CustomerID,
			PaymentReference: fx.issued.ticket.PaymentReference,
		})
		u.publisher.Publish(ctx, TopicTicketIssued, fx.issued.ticket.ID, nil, payload)

		if err := u.checkoutSessionStore.Delete(ctx, fx.issued.entry.ID); err != nil {
			u.logger.WithContext(ctx).WithField("entry_id", fx.issued.entry.ID).WithError(err).Warn("checkout session mapping not deleted")
		}

		if fx.issued.confirmation.RecipientEmail == "" {
			u.logger.WithContext(ctx).WithField("ticket_id", fx.issued.ticket.ID).Info("no recipient email on payment notification, skipping confirmation")
		} else if err := u.mailerRepository.SendTicketConfirmation(ctx, fx.issued.confirmation); err != nil {
			u.logger.WithContext(ctx).WithField("ticket_id", fx.issued.ticket.ID).WithError(err).Warn("confirmation email not sent")
		}
	}
}

// scheduleExpiry enqueues the deferred callback that retires the offer
// right after its deadline. A scheduling failure is tolerated because the
// sweep retires lapsed offers on its own.
func (u *waitingListUseCase) scheduleExpiry(ctx context.Context, entry Entry) {
	body, _ := json.Marshal(ExpireOfferEvent{EntryID: entry.ID})

	err := u.cloudTask.DeferCreateTaskInTime(ExpireOfferQueueID, gctasks.Request{
		URL:    fmt.Sprintf("%s/tb-marketplace/v1/internal/waiting-list/expire", u.baseURL),
		Method: cloudtaskspb.HttpMethod_POST,
		Header: map[string]string{"Content-Type": "application/json"},
		Body:   body,
	}, entry.OfferExpiresAt.Add(time.Second))
	if err != nil {
		u.logger.WithContext(ctx).WithField("entry_id", entry.ID).WithError(err).Warn("offer expiry task not scheduled")
	}
}
