package event

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ticketbay/tb-marketplace/internal/pkg/session"
	"github.com/ticketbay/tb-marketplace/internal/pkg/util"
	"github.com/ticketbay/tb-marketplace/pkg/errors"
	"github.com/ticketbay/tb-marketplace/pkg/pubsub"
	"github.com/ticketbay/tb-marketplace/pkg/status"
)

const (
	TopicEventCancelled = "event-cancelled"
	TopicOfferExpired   = "waiting-list-offer-expired"

	expireReasonEventCancelled = "EVENT_CANCELLED"
)

type eventCancelledMessage struct {
	EventID          string `json:"event_id"`
	ExpiredEntries   int64  `json:"expired_entries"`
	CancelledTickets int64  `json:"cancelled_tickets"`
}

type offerExpiredMessage struct {
	EntryID      string `json:"entry_id"`
	AllocationID string `json:"allocation_id"`
	EventID      string `json:"event_id"`
	CustomerID   string `json:"customer_id"`
	Reason       string `json:"reason"`
}

type EventUseCase interface {
	CreateEvent(ctx context.Context, req CreateEventRequest) (CreateEventResponse, error)
	CancelEvent(ctx context.Context, req CancelEventRequest) (CancelEventResponse, error)
}

type EventUseCaseProperty struct {
	Logger  *logrus.Logger
	Timeout time.Duration

	EventRepository       EventRepository
	AllocationRepository  AllocationRepository
	WaitingListRepository WaitingListRepository
	TicketRepository      TicketRepository
	Publisher             pubsub.Publisher
}

type eventUseCase struct {
	logger  *logrus.Logger
	timeout time.Duration

	eventRepository       EventRepository
	allocationRepository  AllocationRepository
	waitingListRepository WaitingListRepository
	ticketRepository      TicketRepository
	publisher             pubsub.Publisher
}

func NewEventUseCase(props EventUseCaseProperty) EventUseCase {
	return &eventUseCase{
		logger:                props.Logger,
		timeout:               props.Timeout,
		eventRepository:       props.EventRepository,
		allocationRepository:  props.AllocationRepository,
		waitingListRepository: props.WaitingListRepository,
		ticketRepository:      props.TicketRepository,
		publisher:             props.Publisher,
	}
}

// CreateEvent stores the event with its ticket allocations. When the
// request names no allocation tiers, the event's base capacity becomes a
// single untiered allocation.
func (u *eventUseCase) CreateEvent(ctx context.Context, req CreateEventRequest) (CreateEventResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	account, err := session.GetAccountFromCtx(ctx)
	if err != nil {
		return CreateEventResponse{}, err
	}

	now := time.Now()
	e := Event{
		ID:           util.GenerateUUIDWithPrefix("EVT"),
		Name:         req.Name,
		Description:  req.Description,
		Location:     req.Location,
		EventDate:    req.EventDate,
		Price:        req.Price,
		TotalTickets: req.TotalTickets,
		OrganizerID:  account.ID,
		IsCancelled:  false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	allocations := make([]Allocation, 0, len(req.Allocations))
	for _, ar := range req.Allocations {
		allocations = append(allocations, Allocation{
			ID:            util.GenerateUUIDWithPrefix("ALC"),
			EventID:       e.ID,
			TierName:      ar.TierName,
			TotalQuantity: ar.TotalQuantity,
			UnitPrice:     ar.UnitPrice,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
	}
	if len(allocations) == 0 {
		allocations = append(allocations, Allocation{
			ID:            util.GenerateUUIDWithPrefix("ALC"),
			EventID:       e.ID,
			TotalQuantity: req.TotalTickets,
			UnitPrice:     req.Price,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
	}

	tx, err := u.eventRepository.BeginTx(ctx)
	if err != nil {
		return CreateEventResponse{}, err
	}

	if err := u.createEventWithAllocations(ctx, e, allocations, tx); err != nil {
		u.eventRepository.Rollback(ctx, tx)
		return CreateEventResponse{}, err
	}

	if err := u.eventRepository.CommitTx(ctx, tx); err != nil {
		return CreateEventResponse{}, err
	}

	resp := CreateEventResponse{
		ID:           e.ID,
		Name:         e.Name,
		Location:     e.Location,
		EventDate:    e.EventDate,
		Price:        e.Price,
		TotalTickets: e.TotalTickets,
		Allocations:  make([]AllocationResponse, len(allocations)),
	}
	for i, a := range allocations {
		resp.Allocations[i] = AllocationResponse{
			ID:            a.ID,
			TierName:      a.TierName,
			TotalQuantity: a.TotalQuantity,
			UnitPrice:     a.UnitPrice,
		}
	}

	return resp, nil
}

func (u *eventUseCase) createEventWithAllocations(ctx context.Context, e Event, allocations []Allocation, tx *sql.Tx) error {
	if err := u.eventRepository.Save(ctx, e, tx); err != nil {
		return err
	}

	for _, a := range allocations {
		if err := u.allocationRepository.Save(ctx, a, tx); err != nil {
			return err
		}
	}

	return nil
}

// CancelEvent marks the event cancelled, retires every live waiting list
// entry and cancels the valid tickets, all in one transaction. Refunds are
// handled outside this service; the cancelled tickets and the published
// message are the input to that process.
func (u *eventUseCase) CancelEvent(ctx context.Context, req CancelEventRequest) (CancelEventResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	var resp CancelEventResponse
	var expired []ExpiredEntry

	tx, err := u.eventRepository.BeginTx(ctx)
	if err != nil {
		return CancelEventResponse{}, err
	}

	e, err := u.eventRepository.FindByID(ctx, req.ID, tx)
	if err != nil {
		u.eventRepository.Rollback(ctx, tx)
		return CancelEventResponse{}, err
	}
	if e.IsCancelled {
		u.eventRepository.Rollback(ctx, tx)
		return CancelEventResponse{}, errors.New(http.StatusConflict, status.CONFLICT, "event has already been cancelled")
	}

	now := time.Now()
	if err := u.eventRepository.UpdateCancelled(ctx, e.ID, now, tx); err != nil {
		u.eventRepository.Rollback(ctx, tx)
		return CancelEventResponse{}, err
	}

	expired, err = u.waitingListRepository.ExpireLiveByEventID(ctx, e.ID, now, tx)
	if err != nil {
		u.eventRepository.Rollback(ctx, tx)
		return CancelEventResponse{}, err
	}

	cancelled, err := u.ticketRepository.CancelByEventID(ctx, e.ID, tx)
	if err != nil {
		u.eventRepository.Rollback(ctx, tx)
		return CancelEventResponse{}, err
	}

	if err := u.eventRepository.CommitTx(ctx, tx); err != nil {
		return CancelEventResponse{}, err
	}

	resp = CancelEventResponse{
		ID:               e.ID,
		ExpiredEntries:   int64(len(expired)),
		CancelledTickets: cancelled,
	}

	for _, entry := range expired {
		payload, _ := json.Marshal(offerExpiredMessage{
			EntryID:      entry.ID,
			AllocationID: entry.AllocationID,
			EventID:      e.ID,
			CustomerID:   entry.CustomerID,
			Reason:       expireReasonEventCancelled,
		})
		u.publisher.Publish(ctx, TopicOfferExpired, entry.ID, nil, payload)
	}

	payload, _ := json.Marshal(eventCancelledMessage{
		EventID:          e.ID,
		ExpiredEntries:   resp.ExpiredEntries,
		CancelledTickets: resp.CancelledTickets,
	})
	u.publisher.Publish(ctx, TopicEventCancelled, e.ID, nil, payload)

	return resp, nil
}
