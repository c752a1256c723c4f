package stripe

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ticketbay/tb-marketplace/pkg/errors"
	"github.com/ticketbay/tb-marketplace/pkg/status"
)

// DefaultSignatureTolerance bounds how old a webhook may be before it is
// rejected as a possible replay.
const DefaultSignatureTolerance = 5 * time.Minute

// VerifySignature checks the Stripe-Signature header against the raw
// request body: the header carries a timestamp and one or more v1
// signatures, each an HMAC-SHA256 of "<timestamp>.<body>" under the
// webhook secret. A failure here must stop processing before any state is
// touched.
func VerifySignature(payload []byte, sigHeader, secret string, now time.Time, tolerance time.Duration) error {
	var timestamp int64
	var signatures []string

	for _, part := range strings.Split(sigHeader, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}

		switch kv[0] {
		case "t":
			ts, err := strconv.ParseInt(kv[1], 10, 64)
			if err != nil {
				return errors.New(http.StatusUnauthorized, status.UNAUTHORIZED, "malformed signature timestamp")
			}
			timestamp = ts
		case "v1":
			signatures = append(signatures, kv[1])
		}
	}

	if timestamp == 0 || len(signatures) == 0 {
		return errors.New(http.StatusUnauthorized, status.UNAUTHORIZED, "signature header is missing timestamp or signatures")
	}

	if now.Sub(time.Unix(timestamp, 0)) > tolerance {
		return errors.New(http.StatusUnauthorized, status.UNAUTHORIZED, "signature timestamp is outside of tolerance")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, sig := range signatures {
		if hmac.Equal([]byte(expected), []byte(sig)) {
			return nil
		}
	}

	return errors.New(http.StatusUnauthorized, status.UNAUTHORIZED, "no matching signature found")
}

// SignPayload produces a Stripe-Signature header value for payload at the
// given instant. Used by tests and local tooling.
func SignPayload(payload []byte, secret string, at time.Time) string {
	ts := strconv.FormatInt(at.Unix(), 10)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(payload)

	return fmt.Sprintf("t=%s,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}
