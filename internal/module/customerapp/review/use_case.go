package review

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ticketbay/tb-marketplace/internal/module/customerapp/event"
	"github.com/ticketbay/tb-marketplace/internal/module/customerapp/ticket"
	"github.com/ticketbay/tb-marketplace/internal/pkg/session"
	"github.com/ticketbay/tb-marketplace/internal/pkg/util"
	"github.com/ticketbay/tb-marketplace/pkg/errors"
	"github.com/ticketbay/tb-marketplace/pkg/status"
)

type ReviewUseCase interface {
	CreateReview(ctx context.Context, req CreateReviewRequest) (ReviewResponse, error)
	UpdateReview(ctx context.Context, req UpdateReviewRequest) (ReviewResponse, error)
	GetManyReview(ctx context.Context, req GetManyReviewRequest) (GetManyReviewResponse, error)
}

type ReviewUseCaseProperty struct {
	Logger  *logrus.Logger
	Timeout time.Duration

	EventRepository          event.EventRepository
	AcquiredTicketRepository ticket.AcquiredTicketRepository
	ReviewRepository         ReviewRepository
}

type reviewUseCase struct {
	logger  *logrus.Logger
	timeout time.Duration

	eventRepository          event.EventRepository
	acquiredTicketRepository ticket.AcquiredTicketRepository
	reviewRepository         ReviewRepository
}

func NewReviewUseCase(props ReviewUseCaseProperty) ReviewUseCase {
	return &reviewUseCase{
		logger:                   props.Logger,
		timeout:                  props.Timeout,
		eventRepository:          props.EventRepository,
		acquiredTicketRepository: props.AcquiredTicketRepository,
		reviewRepository:         props.ReviewRepository,
	}
}

// CreateReview accepts one review per customer per event, and only from
// customers holding a ticket for that event. The unique constraint on
// (event_id, customer_id) backs the pre-check under concurrency.
func (u *reviewUseCase) CreateReview(ctx context.Context, req CreateReviewRequest) (ReviewResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	account, err := session.GetAccountFromCtx(ctx)
	if err != nil {
		return ReviewResponse{}, err
	}

	if _, err := u.eventRepository.FindByID(ctx, req.EventID, nil); err != nil {
		return ReviewResponse{}, err
	}

	owned, err := u.acquiredTicketRepository.CountByEventIDAndCustomerID(ctx, req.EventID, account.ID, nil)
	if err != nil {
		return ReviewResponse{}, err
	}
	if owned < 1 {
		return ReviewResponse{}, errors.New(http.StatusForbidden, status.FORBIDDEN, "only ticket holders can review an event")
	}

	if _, err := u.reviewRepository.FindByEventIDAndCustomerID(ctx, req.EventID, account.ID, nil); err == nil {
		return ReviewResponse{}, errors.New(http.StatusConflict, status.CONFLICT, "event has already been reviewed by this customer")
	} else if errors.Destruct(err).Status != status.NOT_FOUND {
		return ReviewResponse{}, err
	}

	now := time.Now()
	rv := Review{
		ID:           util.GenerateUUIDWithPrefix("RV"),
		EventID:      req.EventID,
		CustomerID:   account.ID,
		CustomerName: account.Name,
		Rating:       req.Rating,
		Comment:      req.Comment,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := u.reviewRepository.Save(ctx, rv, nil); err != nil {
		return ReviewResponse{}, err
	}

	return reviewResponse(rv), nil
}

func (u *reviewUseCase) UpdateReview(ctx context.Context, req UpdateReviewRequest) (ReviewResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	account, err := session.GetAccountFromCtx(ctx)
	if err != nil {
		return ReviewResponse{}, err
	}

	rv, err := u.reviewRepository.FindByEventIDAndCustomerID(ctx, req.EventID, account.ID, nil)
	if err != nil {
		return ReviewResponse{}, err
	}

	rv.Rating = req.Rating
	rv.Comment = req.Comment
	rv.UpdatedAt = time.Now()

	if err := u.reviewRepository.Update(ctx, rv, nil); err != nil {
		return ReviewResponse{}, err
	}

	return reviewResponse(rv), nil
}

func (u *reviewUseCase) GetManyReview(ctx context.Context, req GetManyReviewRequest) (GetManyReviewResponse, error) {
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

	reviews, err := u.reviewRepository.FindManyByEventID(ctx, req.EventID, (page-1)*size, size, nil)
	if err != nil {
		return GetManyReviewResponse{}, err
	}

	summary, err := u.reviewRepository.SummaryByEventID(ctx, req.EventID, nil)
	if err != nil {
		return GetManyReviewResponse{}, err
	}

	resp := GetManyReviewResponse{
		Reviews:       make([]ReviewResponse, len(reviews)),
		Count:         summary.Count,
		AverageRating: summary.AverageRating,
	}
	for i, rv := range reviews {
		resp.Reviews[i] = reviewResponse(rv)
	}

	return resp, nil
}

func reviewResponse(rv Review) ReviewResponse {
	return ReviewResponse{
		ID:           rv.ID,
		EventID:      rv.EventID,
		CustomerName: rv.CustomerName,
		Rating:       rv.Rating,
		Comment:      rv.Comment,
		CreatedAt:    rv.CreatedAt,
	}
}
