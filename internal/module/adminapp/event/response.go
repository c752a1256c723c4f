package event

import "time"

type AllocationResponse struct {
	ID            string  `json:"id"`
	TierName      string  `json:"tier_name,omitempty"`
	TotalQuantity int64   `json:"total_quantity"`
	UnitPrice     float64 `json:"unit_price"`
}

type CreateEventResponse struct {
	ID           string               `json:"id"`
	Name         string               `json:"name"`
	Location     string               `json:"location"`
	EventDate    time.Time            `json:"event_date"`
	Price        float64              `json:"price"`
	TotalTickets int64                `json:"total_tickets"`
	Allocations  []AllocationResponse `json:"allocations"`
}

type CancelEventResponse struct {
	ID               string `json:"id"`
	ExpiredEntries   int64  `json:"expired_entries"`
	CancelledTickets int64  `json:"cancelled_tickets"`
}
