package ticket

import (
	"context"
	"fmt"
	"net/http"
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
	TicketUseCase TicketUseCase
}

func InitHTTPHandler(router *mux.Router, customerSession *middleware.CustomerSession, validate *validator.Validate, ticketUseCase TicketUseCase) {
	handler := &HTTPHandler{
		Validate:      validate,
		TicketUseCase: ticketUseCase,
	}

	router.HandleFunc("/tb-marketplace/v1/customerapp/tickets", publicMiddleware.SetRouteChain(handler.GetManyTicket, customerSession.Verify)).Methods(http.MethodGet)
	router.HandleFunc("/tb-marketplace/v1/customerapp/tickets/{ticketID}", publicMiddleware.SetRouteChain(handler.GetTicket, customerSession.Verify)).Methods(http.MethodGet)
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

func (handler HTTPHandler) GetManyTicket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	resp, err := handler.TicketUseCase.GetManyTicket(ctx)
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
		Message: "list of acquired tickets",
		Data:    resp,
		Meta:    nil,
	})
}

func (handler HTTPHandler) GetTicket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req := GetTicketRequest{
		ID: mux.Vars(r)["ticketID"],
	}

	if err := handler.validate(ctx, req); err != nil {
		response.JSON(w, http.StatusBadRequest, response.RESTEnvelope{
			Status:  status.BAD_REQUEST,
			Message: err.Error(),
		})

		return
	}

	resp, err := handler.TicketUseCase.GetTicket(ctx, req)
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
		Message: "acquired ticket detail",
		Data:    resp,
		Meta:    nil,
	})
}
