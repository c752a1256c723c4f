package ticket

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ticketbay/tb-marketplace/internal/pkg/session"
	"github.com/ticketbay/tb-marketplace/pkg/errors"
	"github.com/ticketbay/tb-marketplace/pkg/status"
)

type TicketUseCase interface {
	GetManyTicket(ctx context.Context) (GetManyTicketResponse, error)
	GetTicket(ctx context.Context, req GetTicketRequest) (TicketResponse, error)
}

type TicketUseCaseProperty struct {
	Logger  *logrus.Logger
	Timeout time.Duration

	AcquiredTicketRepository AcquiredTicketRepository
}

type ticketUseCase struct {
	logger  *logrus.Logger
	timeout time.Duration

	acquiredTicketRepository AcquiredTicketRepository
}

func NewTicketUseCase(props TicketUseCaseProperty) TicketUseCase {
	return &ticketUseCase{
		logger:                   props.Logger,
		timeout:                  props.Timeout,
		acquiredTicketRepository: props.AcquiredTicketRepository,
	}
}

func (u *ticketUseCase) GetManyTicket(ctx context.Context) (GetManyTicketResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	account, err := session.GetAccountFromCtx(ctx)
	if err != nil {
		return nil, err
	}

	tickets, err := u.acquiredTicketRepository.FindManyByCustomerID(ctx, account.ID, nil)
	if err != nil {
		return nil, err
	}

	resp := make(GetManyTicketResponse, len(tickets))
	for i, t := range tickets {
		resp[i] = ticketResponse(t)
	}

	return resp, nil
}

func (u *ticketUseCase) GetTicket(ctx context.Context, req GetTicketRequest) (TicketResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	account, err := session.GetAccountFromCtx(ctx)
	if err != nil {
		return TicketResponse{}, err
	}

	t, err := u.acquiredTicketRepository.FindByID(ctx, req.ID, nil)
	if err != nil {
		return TicketResponse{}, err
	}
	if t.CustomerID != account.ID {
		return TicketResponse{}, errors.New(http.StatusForbidden, status.FORBIDDEN, "ticket belongs to another customer")
	}

	return ticketResponse(t), nil
}

func ticketResponse(t AcquiredTicket) TicketResponse {
	return TicketResponse{
		ID:               t.ID,
		EntryID:          t.EntryID,
		AllocationID:     t.AllocationID,
		EventID:          t.EventID,
		PaymentReference: t.PaymentReference,
		Status:           t.Status,
		PurchasedAt:      t.PurchasedAt,
	}
}
