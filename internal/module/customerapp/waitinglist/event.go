package waitinglist

import "time"

const (
	TopicOfferCreated = "waiting-list-offer-created"
	TopicOfferExpired = "waiting-list-offer-expired"
	TopicTicketIssued = "ticket-issued"
)

const (
	ExpireReasonLapsed   = "LAPSED"
	ExpireReasonReleased = "RELEASED"
)

type OfferCreatedEvent struct {
	EntryID        string    `json:"entry_id"`
	AllocationID   string    `json:"allocation_id"`
	EventID        string    `json:"event_id"`
	CustomerID     string    `json:"customer_id"`
	OfferExpiresAt time.Time `json:"offer_expires_at"`
}

type OfferExpiredEvent struct {
	EntryID      string `json:"entry_id"`
	AllocationID string `json:"allocation_id"`
	EventID      string `json:"event_id"`
	CustomerID   string `json:"customer_id"`
	Reason       string `json:"reason"`
}

type TicketIssuedEvent struct {
	TicketID         string `json:"ticket_id"`
	EntryID          string `json:"entry_id"`
	AllocationID     string `json:"allocation_id"`
	EventID          string `json:"event_id"`
	CustomerID       string `json:"customer_id"`
	PaymentReference string `json:"payment_reference"`
}

// ExpireOfferEvent is the payload of the deferred expiry task scheduled
// when an offer is extended.
type ExpireOfferEvent struct {
	EntryID string `json:"entry_id" validate:"required"`
}
