package review

type CreateReviewRequest struct {
	EventID string `json:"event_id" validate:"required"`
	Rating  int64  `json:"rating" validate:"required,gte=1,lte=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

type UpdateReviewRequest struct {
	EventID string `json:"event_id" validate:"required"`
	Rating  int64  `json:"rating" validate:"required,gte=1,lte=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

type GetManyReviewRequest struct {
	EventID string `json:"event_id" validate:"required"`
	Page    int64  `json:"page" validate:"gte=0"`
	Size    int64  `json:"size" validate:"gte=0,lte=100"`
}
