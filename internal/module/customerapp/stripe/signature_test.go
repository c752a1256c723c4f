package stripe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ticketbay/tb-marketplace/pkg/errors"
	"github.com/ticketbay/tb-marketplace/pkg/status"
)

func TestVerifySignature(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed"}`)
	secret := "whsec_test"
	now := time.Now()

	t.Run("valid signature passes", func(t *testing.T) {
		header := SignPayload(payload, secret, now)
		assert.NoError(t, VerifySignature(payload, header, secret, now, DefaultSignatureTolerance))
	})

	t.Run("wrong secret fails", func(t *testing.T) {
		header := SignPayload(payload, "whsec_other", now)
		err := VerifySignature(payload, header, secret, now, DefaultSignatureTolerance)
		require.Error(t, err)
		assert.Equal(t, status.UNAUTHORIZED, errors.Destruct(err).Status)
	})

	t.Run("tampered payload fails", func(t *testing.T) {
		header := SignPayload(payload, secret, now)
		tampered := []byte(`{"id":"evt_1","type":"checkout.session.expired"}`)
		assert.Error(t, VerifySignature(tampered, header, secret, now, DefaultSignatureTolerance))
	})

	t.Run("stale timestamp fails", func(t *testing.T) {
		header := SignPayload(payload, secret, now.Add(-10*time.Minute))
		assert.Error(t, VerifySignature(payload, header, secret, now, DefaultSignatureTolerance))
	})

	t.Run("missing header fails", func(t *testing.T) {
		assert.Error(t, VerifySignature(payload, "", secret, now, DefaultSignatureTolerance))
	})
}
