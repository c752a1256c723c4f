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
