package event

import "time"

type Event struct {
	ID           string
	Name         string
	Description  string
	Location     string
	EventDate    time.Time
	Price        float64
	TotalTickets int64
	OrganizerID  string
	IsCancelled  bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Allocation struct {
	ID            string
	EventID       string
	TierName      string
	TotalQuantity int64
	UnitPrice     float64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ExpiredEntry identifies a waiting list entry retired by an event
// cancellation, for the post-commit notifications.
type ExpiredEntry struct {
	ID           string
	AllocationID string
	CustomerID   string
}
