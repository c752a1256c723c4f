package waitinglist

import "time"

const (
	StatusWaiting   = "WAITING"
	StatusOffered   = "OFFERED"
	StatusPurchased = "PURCHASED"
	StatusExpired   = "EXPIRED"
)

// transitions is the closed set of legal status moves. PURCHASED and
// EXPIRED are terminal; an expired entry is retired, never reused.
var transitions = map[string]map[string]bool{
	StatusWaiting: {
		StatusOffered: true,
		StatusExpired: true,
	},
	StatusOffered: {
		StatusPurchased: true,
		StatusExpired:   true,
	},
}

func CanTransition(from, to string) bool {
	return transitions[from][to]
}

// Entry is one buyer's claim on one sellable unit. At most one entry per
// (allocation, customer) pair may be live (WAITING or OFFERED) at a time.
type Entry struct {
	ID             string
	AllocationID   string
	EventID        string
	CustomerID     string
	Status         string
	OfferExpiresAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (e Entry) IsLive() bool {
	return e.Status == StatusWaiting || e.Status == StatusOffered
}

// OfferLapsed reports whether the entry holds an offer whose window has
// closed. Entries in any other status never lapse.
func (e Entry) OfferLapsed(now time.Time) bool {
	return e.Status == StatusOffered && e.OfferExpiresAt != nil && e.OfferExpiresAt.Before(now)
}

// ExpireIfStale returns the entry as it should be read at the given
// instant: a lapsed offer comes back EXPIRED, everything else is returned
// untouched. Pure; persisting the transition is the caller's job.
func ExpireIfStale(e Entry, now time.Time) Entry {
	if e.OfferLapsed(now) {
		e.Status = StatusExpired
		e.UpdatedAt = now
	}

	return e
}
