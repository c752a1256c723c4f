package event

import "time"

type AllocationResponse struct {
	ID            string  `json:"id"`
	TierName      string  `json:"tier_name,omitempty"`
	UnitPrice     float64 `json:"unit_price"`
	TotalQuantity int64   `json:"total_quantity"`
	Remaining     int64   `json:"remaining"`
}

type EventResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Location     string    `json:"location"`
	EventDate    time.Time `json:"event_date"`
	Price        float64   `json:"price"`
	TotalTickets int64     `json:"total_tickets"`
	IsCancelled  bool      `json:"is_cancelled"`
}

type GetEventResponse struct {
	EventResponse
	Allocations []AllocationResponse `json:"allocations"`
}

type GetManyEventResponse struct {
	Events []EventResponse `json:"events"`
	Total  int64           `json:"total"`
}
