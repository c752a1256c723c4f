package ticket

import "time"

const (
	StatusValid     = "VALID"
	StatusUsed      = "USED"
	StatusRefunded  = "REFUNDED"
	StatusCancelled = "CANCELLED"
)

// Allocation is a sellable unit: either an event's base capacity (TierName
// is empty) or one ticket tier within it. Capacity decisions for a unit are
// serialized by locking its allocation row.
type Allocation struct {
	ID            string
	EventID       string
	TierName      string
	TotalQuantity int64
	UnitPrice     float64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// AcquiredTicket is created only by finalizing a purchased waiting list
// entry. EntryID is unique so a retried payment confirmation can never
// issue a second ticket.
type AcquiredTicket struct {
	ID               string
	EntryID          string
	AllocationID     string
	EventID          string
	CustomerID       string
	PaymentReference string
	Status           string
	PurchasedAt      time.Time
}
