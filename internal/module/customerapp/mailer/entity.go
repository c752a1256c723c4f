package mailer

// TicketConfirmation carries everything the confirmation email template
// needs. Sending happens after the finalize transaction commits; a failure
// never rolls the ticket back.
type TicketConfirmation struct {
	RecipientEmail string
	RecipientName  string
	EventName      string
	EventDate      string
	TierName       string
	TicketID       string
}

type sendEmailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type sendEmailResponse struct {
	ID string `json:"id"`
}
