package stripe

const (
	EventCheckoutSessionCompleted = "checkout.session.completed"
	EventCheckoutSessionExpired   = "checkout.session.expired"
)

// CheckoutSessionRequest describes one payment for one waiting list offer.
// The metadata round-trips through the payment collaborator and comes back
// on the webhook, carrying the entry id the finalizer is keyed on.
type CheckoutSessionRequest struct {
	ProductName   string
	Description   string
	AmountCents   int64
	Currency      string
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
	ExpiresAt     int64
	Metadata      map[string]string
}

type CheckoutSessionResponse struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	ExpiresAt int64  `json:"expires_at"`
	Status    string `json:"status"`
}

// NotificationEvent is the envelope delivered to the webhook endpoint.
type NotificationEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID            string            `json:"id"`
			PaymentIntent string            `json:"payment_intent"`
			AmountTotal   int64             `json:"amount_total"`
			Metadata      map[string]string `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}
