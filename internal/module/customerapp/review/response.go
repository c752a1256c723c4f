package review

import "time"

type ReviewResponse struct {
	ID           string    `json:"id"`
	EventID      string    `json:"event_id"`
	CustomerName string    `json:"customer_name"`
	Rating       int64     `json:"rating"`
	Comment      string    `json:"comment"`
	CreatedAt    time.Time `json:"created_at"`
}

type GetManyReviewResponse struct {
	Reviews       []ReviewResponse `json:"reviews"`
	Count         int64            `json:"count"`
	AverageRating float64          `json:"average_rating"`
}
