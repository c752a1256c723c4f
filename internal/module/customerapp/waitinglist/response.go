package waitinglist

import "time"

type EntryResponse struct {
	EntryID        string     `json:"entry_id"`
	AllocationID   string     `json:"allocation_id"`
	EventID        string     `json:"event_id"`
	Status         string     `json:"status"`
	Position       *int64     `json:"position,omitempty"`
	OfferExpiresAt *time.Time `json:"offer_expires_at,omitempty"`
}

type CheckoutResponse struct {
	EntryID        string     `json:"entry_id"`
	Status         string     `json:"status"`
	Position       *int64     `json:"position,omitempty"`
	OfferExpiresAt *time.Time `json:"offer_expires_at,omitempty"`
	PaymentURL     string     `json:"payment_url,omitempty"`
}

type SweepResponse struct {
	ExpiredCount int `json:"expired_count"`
}
