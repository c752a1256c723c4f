package ticket

import "time"

type TicketResponse struct {
	ID               string    `json:"id"`
	EntryID          string    `json:"entry_id"`
	AllocationID     string    `json:"allocation_id"`
	EventID          string    `json:"event_id"`
	PaymentReference string    `json:"payment_reference"`
	Status           string    `json:"status"`
	PurchasedAt      time.Time `json:"purchased_at"`
}

type GetManyTicketResponse []TicketResponse
