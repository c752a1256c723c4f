package waitinglist

type JoinWaitingListRequest struct {
	AllocationID string `json:"allocation_id" validate:"required"`
}

type GetQueuePositionRequest struct {
	AllocationID string `json:"allocation_id" validate:"required"`
}

type ReleaseOfferRequest struct {
	EntryID string `json:"entry_id" validate:"required"`
}

type CheckoutRequest struct {
	AllocationID string `json:"allocation_id" validate:"required"`
}

// FinalizePurchaseRequest is assembled from a verified payment
// notification; it never comes from buyer input.
type FinalizePurchaseRequest struct {
	EntryID          string
	PaymentReference string
	Amount           float64
	CustomerEmail    string
	CustomerName     string
}
