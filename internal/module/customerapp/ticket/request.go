package ticket

type GetTicketRequest struct {
	ID string `json:"id" validate:"required"`
}
