package waitinglist

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgvalidator "github.com/ticketbay/tb-marketplace/pkg/validator"
)

func TestHTTPHandlerValidate(t *testing.T) {
	handler := HTTPHandler{Validate: pkgvalidator.Get()}

	err := handler.validate(context.Background(), JoinWaitingListRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AllocationID")

	// Field values may carry printf verbs; the message must come through
	// verbatim.
	payload := struct {
		Code string `validate:"max=3"`
	}{Code: "100%d"}
	err = handler.validate(context.Background(), payload)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "100%d")
}
