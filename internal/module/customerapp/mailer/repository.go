package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/ticketbay/tb-marketplace/pkg/errors"
	"github.com/ticketbay/tb-marketplace/pkg/status"
)

type MailerRepository interface {
	SendTicketConfirmation(ctx context.Context, confirmation TicketConfirmation) error
}

type mailerRepository struct {
	baseURL string
	apiKey  string
	sender  string
	logger  *logrus.Logger
	hc      *http.Client
}

func NewMailerRepository(baseURL string, apiKey string, sender string, logger *logrus.Logger, hc *http.Client) MailerRepository {
	return &mailerRepository{
		baseURL: baseURL,
		apiKey:  apiKey,
		sender:  sender,
		logger:  logger,
		hc:      hc,
	}
}

// SendTicketConfirmation implements MailerRepository.
func (r *mailerRepository) SendTicketConfirmation(ctx context.Context, confirmation TicketConfirmation) error {
	tierLine := ""
	if confirmation.TierName != "" {
		tierLine = fmt.Sprintf("<p><strong>Tier:</strong> %s</p>", confirmation.TierName)
	}

	req := sendEmailRequest{
		From:    r.sender,
		To:      []string{confirmation.RecipientEmail},
		Subject: fmt.Sprintf("Your Ticket for %s", confirmation.EventName),
		HTML: fmt.Sprintf(`
			<div style="font-family: sans-serif; max-width: 600px; margin: 0 auto;">
				<h1>Your Ticket is Confirmed!</h1>
				<p>Hi %s, thank you for your purchase. Here are your ticket details:</p>
				<div style="border: 1px solid #ddd; border-radius: 5px; padding: 20px; margin: 20px 0;">
					<h2>%s</h2>
					<p><strong>Date:</strong> %s</p>
					%s
					<p><strong>Ticket ID:</strong> %s</p>
				</div>
				<p>Please show this email or your ticket ID at the venue.</p>
			</div>`,
			confirmation.RecipientName, confirmation.EventName, confirmation.EventDate, tierLine, confirmation.TicketID,
		),
	}

	reqBuff, _ := json.Marshal(req)

	hr, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/emails", r.baseURL), bytes.NewBuffer(reqBuff))
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while sending ticket confirmation email")
	}

	hr.Header.Add("Content-Type", "application/json")
	hr.Header.Add("Authorization", fmt.Sprintf("Bearer %s", r.apiKey))

	hresp, err := r.hc.Do(hr)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while sending ticket confirmation email")
	}

	defer hresp.Body.Close()

	respBody, err := io.ReadAll(hresp.Body)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while sending ticket confirmation email")
	}

	if hresp.StatusCode < 200 || hresp.StatusCode > 299 {
		r.logger.WithContext(ctx).WithField("body", string(respBody)).Error("mail provider returned non-2xx response")
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while sending ticket confirmation email")
	}

	var resp sendEmailResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while sending ticket confirmation email")
	}

	r.logger.WithContext(ctx).WithFields(logrus.Fields{
		"emailId":  resp.ID,
		"ticketId": confirmation.TicketID,
	}).Info("ticket confirmation email sent")

	return nil
}
