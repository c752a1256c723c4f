package event

type GetManyEventRequest struct {
	Page int64 `json:"page" validate:"gte=0"`
	Size int64 `json:"size" validate:"gte=0,lte=100"`
}

type GetEventRequest struct {
	ID string `json:"id" validate:"required"`
}
