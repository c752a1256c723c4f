package status

const (
	OK                    = "OK"
	CREATED               = "CREATED"
	ACCEPTED              = "ACCEPTED"
	BAD_REQUEST           = "BAD_REQUEST"
	UNAUTHORIZED          = "UNAUTHORIZED"
	FORBIDDEN             = "FORBIDDEN"
	NOT_FOUND             = "NOT_FOUND"
	CONFLICT              = "CONFLICT"
	GONE                  = "GONE"
	UNPROCESSABLE_ENTITY  = "UNPROCESSABLE_ENTITY"
	INTERNAL_SERVER_ERROR = "INTERNAL_SERVER_ERROR"

	// domain statuses surfaced by the waiting list allocation flow
	OFFER_EXPIRED = "OFFER_EXPIRED"

	// SERIALIZATION_CONFLICT marks a retryable database conflict; use cases
	// re-run the operation instead of surfacing it to the buyer.
	SERIALIZATION_CONFLICT = "SERIALIZATION_CONFLICT"
)
