package errors

import (
	"net/http"

	"github.com/ticketbay/tb-marketplace/pkg/status"
)

// ApplicationError carries the HTTP status code and machine-readable status
// alongside the human message, so handlers can translate use-case failures
// without inspecting error strings.
type ApplicationError struct {
	HTTPStatusCode int
	Status         string
	Message        string
}

func (e *ApplicationError) Error() string {
	return e.Message
}

func New(httpStatusCode int, status string, message string) error {
	return &ApplicationError{
		HTTPStatusCode: httpStatusCode,
		Status:         status,
		Message:        message,
	}
}

// Destruct unwraps err into an ApplicationError. Unknown error types are
// treated as internal server errors.
func Destruct(err error) *ApplicationError {
	if ae, ok := err.(*ApplicationError); ok {
		return ae
	}

	return &ApplicationError{
		HTTPStatusCode: http.StatusInternalServerError,
		Status:         status.INTERNAL_SERVER_ERROR,
		Message:        err.Error(),
	}
}
