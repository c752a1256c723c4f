package review

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/ticketbay/tb-marketplace/internal/pkg/middleware"
	"github.com/ticketbay/tb-marketplace/pkg/errors"
	publicMiddleware "github.com/ticketbay/tb-marketplace/pkg/middleware"
	"github.com/ticketbay/tb-marketplace/pkg/response"
	"github.com/ticketbay/tb-marketplace/pkg/status"
)

type HTTPHandler struct {
	Validate      *validator.Validate
	ReviewUseCase ReviewUseCase
}

func InitHTTPHandler(router *mux.Router, customerSession *middleware.CustomerSession, validate *validator.Validate, reviewUseCase ReviewUseCase) {
	handler := &HTTPHandler{
		Validate:      validate,
		ReviewUseCase: reviewUseCase,
	}

	router.HandleFunc("/tb-marketplace/v1/customerapp/events/{eventID}/reviews", publicMiddleware.SetRouteChain(handler.GetManyReview)).Methods(http.MethodGet)
	router.HandleFunc("/tb-marketplace/v1/customerapp/events/{eventID}/reviews", publicMiddleware.SetRouteChain(handler.CreateReview, customerSession.Verify)).Methods(http.MethodPost)
	router.HandleFunc("/tb-marketplace/v1/customerapp/events/{eventID}/reviews", publicMiddleware.SetRouteChain(handler.UpdateReview, customerSession.Verify)).Methods(http.MethodPut)
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

func (handler HTTPHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req := CreateReviewRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.JSON(w, http.StatusUnprocessableEntity, response.RESTEnvelope{
			Status:  status.UNPROCESSABLE_ENTITY,
			Message: err.Error(),
		})

		return
	}
	req.EventID = mux.Vars(r)["eventID"]

	if err := handler.validate(ctx, req); err != nil {
		response.JSON(w, http.StatusBadRequest, response.RESTEnvelope{
			Status:  status.BAD_REQUEST,
			Message: err.Error(),
		})

		return
	}

	resp, err := handler.ReviewUseCase.CreateReview(ctx, req)
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
		Message: "review has been successfully created",
		Data:    resp,
		Meta:    nil,
	})
}

func (handler HTTPHandler) UpdateReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req := UpdateReviewRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.JSON(w, http.StatusUnprocessableEntity, response.RESTEnvelope{
			Status:  status.UNPROCESSABLE_ENTITY,
			Message: err.Error(),
		})

		return
	}
	req.EventID = mux.Vars(r)["eventID"]

	if err := handler.validate(ctx, req); err != nil {
		response.JSON(w, http.StatusBadRequest, response.RESTEnvelope{
			Status:  status.BAD_REQUEST,
			Message: err.Error(),
		})

		return
	}

	resp, err := handler.ReviewUseCase.UpdateReview(ctx, req)
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
		Message: "review has been successfully updated",
		Data:    resp,
		Meta:    nil,
	})
}

func (handler HTTPHandler) GetManyReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	qs := r.URL.Query()

	req := GetManyReviewRequest{
		EventID: mux.Vars(r)["eventID"],
	}
	req.Page, _ = strconv.ParseInt(qs.Get("page"), 10, 64)
	req.Size, _ = strconv.ParseInt(qs.Get("size"), 10, 64)

	if err := handler.validate(ctx, req); err != nil {
		response.JSON(w, http.StatusBadRequest, response.RESTEnvelope{
			Status:  status.BAD_REQUEST,
			Message: err.Error(),
		})

		return
	}

	resp, err := handler.ReviewUseCase.GetManyReview(ctx, req)
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
		Message: "list of reviews",
		Data:    resp,
		Meta:    nil,
	})
}
