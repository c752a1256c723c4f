package event

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ticketbay/tb-marketplace/internal/module/customerapp/ticket"
)

type EventUseCase interface {
	GetManyEvent(ctx context.Context, req GetManyEventRequest) (GetManyEventResponse, error)
	GetEvent(ctx context.Context, req GetEventRequest) (GetEventResponse, error)
}

type EventUseCaseProperty struct {
	Logger  *logrus.Logger
	Timeout time.Duration

	EventRepository        EventRepository
	AllocationRepository   ticket.AllocationRepository
	AvailabilityRepository AvailabilityRepository
}

type eventUseCase struct {
	logger  *logrus.Logger
	timeout time.Duration

	eventRepository        EventRepository
	allocationRepository   ticket.AllocationRepository
	availabilityRepository AvailabilityRepository
}

func NewEventUseCase(props EventUseCaseProperty) EventUseCase {
	return &eventUseCase{
		logger:                 props.Logger,
		timeout:                props.Timeout,
		eventRepository:        props.EventRepository,
		allocationRepository:   props.AllocationRepository,
		availabilityRepository: props.AvailabilityRepository,
	}
}

func (u *eventUseCase) GetManyEvent(ctx context.Context, req GetManyEventRequest) (GetManyEventResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	page := req.Page
	if page < 1 {
		page = 1
	}
	size := req.Size
	if size < 1 {
		size = 10
	}

	events, err := u.eventRepository.FindMany(ctx, (page-1)*size, size, nil)
	if err != nil {
		return GetManyEventResponse{}, err
	}

	total, err := u.eventRepository.Count(ctx, nil)
	if err != nil {
		return GetManyEventResponse{}, err
	}

	resp := GetManyEventResponse{
		Events: make([]EventResponse, len(events)),
		Total:  total,
	}
	for i, ev := range events {
		resp.Events[i] = eventResponse(ev)
	}

	return resp, nil
}

// GetEvent returns the event with its allocations and a remaining count per
// allocation. The counts are taken without the allocation lock and can be
// stale by the time a buyer joins; joining re-derives capacity under the
// lock.
func (u *eventUseCase) GetEvent(ctx context.Context, req GetEventRequest) (GetEventResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	ev, err := u.eventRepository.FindByID(ctx, req.ID, nil)
	if err != nil {
		return GetEventResponse{}, err
	}

	allocations, err := u.allocationRepository.FindManyByEventID(ctx, ev.ID, nil)
	if err != nil {
		return GetEventResponse{}, err
	}

	now := time.Now()
	resp := GetEventResponse{
		EventResponse: eventResponse(ev),
		Allocations:   make([]AllocationResponse, len(allocations)),
	}
	for i, alloc := range allocations {
		committed, err := u.availabilityRepository.CountCommittedByAllocationID(ctx, alloc.ID, now, nil)
		if err != nil {
			return GetEventResponse{}, err
		}

		remaining := alloc.TotalQuantity - committed
		if remaining < 0 {
			remaining = 0
		}

		resp.Allocations[i] = AllocationResponse{
			ID:            alloc.ID,
			TierName:      alloc.TierName,
			UnitPrice:     alloc.UnitPrice,
			TotalQuantity: alloc.TotalQuantity,
			Remaining:     remaining,
		}
	}

	return resp, nil
}

func eventResponse(ev Event) EventResponse {
	return EventResponse{
		ID:           ev.ID,
		Name:         ev.Name,
		Description:  ev.Description,
		Location:     ev.Location,
		EventDate:    ev.EventDate,
		Price:        ev.Price,
		TotalTickets: ev.TotalTickets,
		IsCancelled:  ev.IsCancelled,
	}
}
