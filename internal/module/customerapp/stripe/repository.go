package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/ticketbay/tb-marketplace/pkg/errors"
	"github.com/ticketbay/tb-marketplace/pkg/status"
)

type StripeRepository interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (CheckoutSessionResponse, error)
	ExpireCheckoutSession(ctx context.Context, sessionID string) error
}

type stripeRepository struct {
	baseURL   string
	secretKey string
	logger    *logrus.Logger
	hc        *http.Client
}

func NewStripeRepository(baseURL string, secretKey string, logger *logrus.Logger, hc *http.Client) StripeRepository {
	return &stripeRepository{
		baseURL:   baseURL,
		secretKey: secretKey,
		logger:    logger,
		hc:        hc,
	}
}

func (r *stripeRepository) do(ctx context.Context, method, path string, form url.Values, out interface{}) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	hr, err := http.NewRequestWithContext(ctx, method, fmt.Sprintf("%s%s", r.baseURL, path), body)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while calling payment provider")
	}

	hr.Header.Add("Content-Type", "application/x-www-form-urlencoded")
	hr.Header.Add("Authorization", fmt.Sprintf("Bearer %s", r.secretKey))

	hresp, err := r.hc.Do(hr)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while calling payment provider")
	}

	defer hresp.Body.Close()

	respBody, err := io.ReadAll(hresp.Body)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while calling payment provider")
	}

	if hresp.StatusCode < 200 || hresp.StatusCode > 299 {
		r.logger.WithContext(ctx).WithField("body", string(respBody)).Error("payment provider returned non-2xx response")
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while calling payment provider")
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			r.logger.WithContext(ctx).WithError(err).Error()
			return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while calling payment provider")
		}
	}

	return nil
}

// CreateCheckoutSession implements StripeRepository.
func (r *stripeRepository) CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (CheckoutSessionResponse, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("payment_method_types[0]", "card")
	form.Set("line_items[0][price_data][currency]", req.Currency)
	form.Set("line_items[0][price_data][product_data][name]", req.ProductName)
	if req.Description != "" {
		form.Set("line_items[0][price_data][product_data][description]", req.Description)
	}
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(req.AmountCents, 10))
	form.Set("line_items[0][quantity]", "1")
	form.Set("success_url", req.SuccessURL)
	form.Set("cancel_url", req.CancelURL)
	form.Set("expires_at", strconv.FormatInt(req.ExpiresAt, 10))
	if req.CustomerEmail != "" {
		form.Set("customer_email", req.CustomerEmail)
	}
	for k, v := range req.Metadata {
		form.Set(fmt.Sprintf("metadata[%s]", k), v)
	}

	var resp CheckoutSessionResponse
	if err := r.do(ctx, http.MethodPost, "/v1/checkout/sessions", form, &resp); err != nil {
		return CheckoutSessionResponse{}, err
	}

	return resp, nil
}

// ExpireCheckoutSession implements StripeRepository. Invoked when an offer
// is released before the payment window closes, so the buyer cannot pay
// against a reservation that no longer exists.
func (r *stripeRepository) ExpireCheckoutSession(ctx context.Context, sessionID string) error {
	return r.do(ctx, http.MethodPost, fmt.Sprintf("/v1/checkout/sessions/%s/expire", sessionID), url.Values{}, nil)
}
