package event

import "time"

type CreateAllocationRequest struct {
	TierName      string  `json:"tier_name" validate:"max=128"`
	TotalQuantity int64   `json:"total_quantity" validate:"required,gte=1"`
	UnitPrice     float64 `json:"unit_price" validate:"gte=0"`
}

type CreateEventRequest struct {
	Name         string                    `json:"name" validate:"required,max=255"`
	Description  string                    `json:"description"`
	Location     string                    `json:"location" validate:"required,max=255"`
	EventDate    time.Time                 `json:"event_date" validate:"required"`
	Price        float64                   `json:"price" validate:"gte=0"`
	TotalTickets int64                     `json:"total_tickets" validate:"required,gte=1"`
	Allocations  []CreateAllocationRequest `json:"allocations" validate:"dive"`
}

type CancelEventRequest struct {
	ID string `json:"id" validate:"required"`
}
