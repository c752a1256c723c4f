package waitinglist

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/ticketbay/tb-marketplace/internal/module/customerapp/stripe"
	"github.com/ticketbay/tb-marketplace/internal/pkg/middleware"
	"github.com/ticketbay/tb-marketplace/pkg/errors"
	publicMiddleware "github.com/ticketbay/tb-marketplace/pkg/middleware"
	"github.com/ticketbay/tb-marketplace/pkg/response"
	"github.com/ticketbay/tb-marketplace/pkg/status"
)

type HTTPHandler struct {
	Validate           *validator.Validate
	WaitingListUseCase WaitingListUseCase
	WebhookSecret      string
}

func InitHTTPHandler(router *mux.Router, customerSession *middleware.CustomerSession, validate *validator.Validate, waitingListUseCase WaitingListUseCase, webhookSecret string) {
	handler := &HTTPHandler{
		Validate:           validate,
		WaitingListUseCase: waitingListUseCase,
		WebhookSecret:      webhookSecret,
	}

	router.HandleFunc("/tb-marketplace/v1/customerapp/waiting-list", publicMiddleware.SetRouteChain(handler.JoinWaitingList, customerSession.Verify)).Methods(http.MethodPost)
	router.HandleFunc("/tb-marketplace/v1/customerapp/waiting-list/{allocationID}/position", publicMiddleware.SetRouteChain(handler.GetQueuePosition, customerSession.Verify)).Methods(http.MethodGet)
	router.HandleFunc("/tb-marketplace/v1/customerapp/waiting-list/release", publicMiddleware.SetRouteChain(handler.ReleaseOffer, customerSession.Verify)).Methods(http.MethodPost)
	router.HandleFunc("/tb-marketplace/v1/customerapp/checkout", publicMiddleware.SetRouteChain(handler.Checkout, customerSession.Verify)).Methods(http.MethodPost)
	router.HandleFunc("/tb-marketplace/v1/customerapp/waiting-list/on-payment-notification", publicMiddleware.SetRouteChain(handler.OnPaymentNotification)).Methods(http.MethodPost)
	router.HandleFunc("/tb-marketplace/v1/internal/waiting-list/expire", publicMiddleware.SetRouteChain(handler.OnExpireOffer)).Methods(http.MethodPost)
	router.HandleFunc("/tb-marketplace/v1/internal/waiting-list/sweep", publicMiddleware.SetRouteChain(handler.SweepExpiredOffers)).Methods(http.MethodPost)
}

func (handler HTTPHandler) validate(ctx context.Context, payload interface{}) error {
	err := handler.Validate.StructCtx(ctx, payload)
	if err == nil {
		return nil
	}

	errorFields := err.(validator.ValidationErrors)

	errMessages := make([]string, len(errorFields))

	for k, errorField := range errorFields {
		errMessages[k] = fmt.Sprintf("invalid '%s' with value '%v'", errorField.Field(), errorField.Value())
	}

	errorMessage := strings.Join(errMessages, ", ")

	return fmt.Errorf("%s", errorMessage)
}

func (handler HTTPHandler) JoinWaitingList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req := JoinWaitingListRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.JSON(w, http.StatusUnprocessableEntity, response.RESTEnvelope{
			Status:  status.UNPROCESSABLE_ENTITY,
			Message: err.Error(),
		})

		return
	}

	if err := handler.validate(ctx, req); err != nil {
		response.JSON(w, http.StatusBadRequest, response.RESTEnvelope{
			Status:  status.BAD_REQUEST,
			Message: err.Error(),
		})

		return
	}

	resp, err := handler.WaitingListUseCase.JoinWaitingList(ctx, req)
	if err != nil {
		ae := errors.Destruct(err)
		response.JSON(w, ae.HTTPStatusCode, response.RESTEnvelope{
			Status:  ae.Status,
			Message: ae.Message,
		})

		return
	}

	response.JSON(w, http.StatusCreated, response.RESTEnvelope{
		Status:  status.CREATED,
		Message: "waiting list has been successfully joined",
		Data:    resp,
		Meta:    nil,
	})
}

func (handler HTTPHandler) GetQueuePosition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req := GetQueuePositionRequest{
		AllocationID: mux.Vars(r)["allocationID"],
	}

	if err := handler.validate(ctx, req); err != nil {
		response.JSON(w, http.StatusBadRequest, response.RESTEnvelope{
			Status:  status.BAD_REQUEST,
			Message: err.Error(),
		})

		return
	}

	resp, err := handler.WaitingListUseCase.GetQueuePosition(ctx, req)
	if err != nil {
		ae := errors.Destruct(err)
		response.JSON(w, ae.HTTPStatusCode, response.RESTEnvelope{
			Status:  ae.Status,
			Message: ae.Message,
		})

		return
	}

	response.JSON(w, http.StatusOK, response.RESTEnvelope{
		Status:  status.OK,
		Message: "waiting list position",
		Data:    resp,
		Meta:    nil,
	})
}

func (handler HTTPHandler) ReleaseOffer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req := ReleaseOfferRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.JSON(w, http.StatusUnprocessableEntity, response.RESTEnvelope{
			Status:  status.UNPROCESSABLE_ENTITY,
			Message: err.Error(),
		})

		return
	}

	if err := handler.validate(ctx, req); err != nil {
		response.JSON(w, http.StatusBadRequest, response.RESTEnvelope{
			Status:  status.BAD_REQUEST,
			Message: err.Error(),
		})

		return
	}

	if err := handler.WaitingListUseCase.ReleaseOffer(ctx, req); err != nil {
		ae := errors.Destruct(err)
		response.JSON(w, ae.HTTPStatusCode, response.RESTEnvelope{
			Status:  ae.Status,
			Message: ae.Message,
		})

		return
	}

	response.JSON(w, http.StatusOK, response.RESTEnvelope{
		Status:  status.OK,
		Message: "offer has been successfully released",
		Data:    nil,
		Meta:    nil,
	})
}

func (handler HTTPHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req := CheckoutRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.JSON(w, http.StatusUnprocessableEntity, response.RESTEnvelope{
			Status:  status.UNPROCESSABLE_ENTITY,
			Message: err.Error(),
		})

		return
	}

	if err := handler.validate(ctx, req); err != nil {
		response.JSON(w, http.StatusBadRequest, response.RESTEnvelope{
			Status:  status.BAD_REQUEST,
			Message: err.Error(),
		})

		return
	}

	resp, err := handler.WaitingListUseCase.Checkout(ctx, req)
	if err != nil {
		ae := errors.Destruct(err)
		response.JSON(w, ae.HTTPStatusCode, response.RESTEnvelope{
			Status:  ae.Status,
			Message: ae.Message,
		})

		return
	}

	message := "checkout session has been successfully created"
	if resp.Status != StatusOffered {
		message = "no capacity is free yet, the claim has been queued"
	}

	response.JSON(w, http.StatusCreated, response.RESTEnvelope{
		Status:  status.CREATED,
		Message: message,
		Data:    resp,
		Meta:    nil,
	})
}

// OnPaymentNotification receives the payment collaborator's webhook. The
// signature covers the raw body, so the body is read before decoding.
func (handler HTTPHandler) OnPaymentNotification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		response.JSON(w, http.StatusUnprocessableEntity, response.RESTEnvelope{
			Status:  status.UNPROCESSABLE_ENTITY,
			Message: err.Error(),
		})

		return
	}

	if err := stripe.VerifySignature(payload, r.Header.Get("Stripe-Signature"), handler.WebhookSecret, time.Now(), stripe.DefaultSignatureTolerance); err != nil {
		ae := errors.Destruct(err)
		response.JSON(w, ae.HTTPStatusCode, response.RESTEnvelope{
			Status:  ae.Status,
			Message: ae.Message,
		})

		return
	}

	e := stripe.NotificationEvent{}
	if err := json.Unmarshal(payload, &e); err != nil {
		response.JSON(w, http.StatusUnprocessableEntity, response.RESTEnvelope{
			Status:  status.UNPROCESSABLE_ENTITY,
			Message: err.Error(),
		})

		return
	}

	if err := handler.WaitingListUseCase.OnPaymentNotification(ctx, e); err != nil {
		ae := errors.Destruct(err)
		response.JSON(w, ae.HTTPStatusCode, response.RESTEnvelope{
			Status:  ae.Status,
			Message: ae.Message,
		})

		return
	}

	response.JSON(w, http.StatusOK, response.RESTEnvelope{
		Status:  status.OK,
		Message: "payment notification has been processed",
		Data:    nil,
		Meta:    nil,
	})
}

func (handler HTTPHandler) OnExpireOffer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	e := ExpireOfferEvent{}
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		response.JSON(w, http.StatusUnprocessableEntity, response.RESTEnvelope{
			Status:  status.UNPROCESSABLE_ENTITY,
			Message: err.Error(),
		})

		return
	}

	if err := handler.validate(ctx, e); err != nil {
		response.JSON(w, http.StatusBadRequest, response.RESTEnvelope{
			Status:  status.BAD_REQUEST,
			Message: err.Error(),
		})

		return
	}

	if err := handler.WaitingListUseCase.OnExpireOffer(ctx, e); err != nil {
		ae := errors.Destruct(err)
		response.JSON(w, ae.HTTPStatusCode, response.RESTEnvelope{
			Status:  ae.Status,
			Message: ae.Message,
		})

		return
	}

	response.JSON(w, http.StatusOK, response.RESTEnvelope{
		Status:  status.OK,
		Message: "offer has been successfully expired",
		Data:    nil,
		Meta:    nil,
	})
}

func (handler HTTPHandler) SweepExpiredOffers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	expired, err := handler.WaitingListUseCase.SweepExpiredOffers(ctx)
	if err != nil {
		ae := errors.Destruct(err)
		response.JSON(w, ae.HTTPStatusCode, response.RESTEnvelope{
			Status:  ae.Status,
			Message: ae.Message,
		})

		return
	}

	response.JSON(w, http.StatusOK, response.RESTEnvelope{
		Status:  status.OK,
		Message: "lapsed offers have been swept",
		Data:    SweepResponse{ExpiredCount: expired},
		Meta:    nil,
	})
}
