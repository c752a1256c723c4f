package review

import "time"

const (
	MinRating = 1
	MaxRating = 5
)

// Review is one customer's verdict on an event. A customer may review an
// event only after acquiring a ticket for it, and only once.
type Review struct {
	ID           string
	EventID      string
	CustomerID   string
	CustomerName string
	Rating       int64
	Comment      string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Summary aggregates an event's reviews.
type Summary struct {
	Count         int64
	AverageRating float64
}
