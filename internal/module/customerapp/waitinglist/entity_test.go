package waitinglist

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    string
		to      string
		allowed bool
	}{
		{name: "waiting to offered", from: StatusWaiting, to: StatusOffered, allowed: true},
		{name: "waiting to expired", from: StatusWaiting, to: StatusExpired, allowed: true},
		{name: "waiting to purchased", from: StatusWaiting, to: StatusPurchased, allowed: false},
		{name: "offered to purchased", from: StatusOffered, to: StatusPurchased, allowed: true},
		{name: "offered to expired", from: StatusOffered, to: StatusExpired, allowed: true},
		{name: "offered to waiting", from: StatusOffered, to: StatusWaiting, allowed: false},
		{name: "purchased is terminal", from: StatusPurchased, to: StatusExpired, allowed: false},
		{name: "expired is terminal", from: StatusExpired, to: StatusOffered, allowed: false},
		{name: "unknown status", from: "SOMETHING", to: StatusExpired, allowed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, CanTransition(tt.from, tt.to))
		})
	}
}

func TestEntryIsLive(t *testing.T) {
	assert.True(t, Entry{Status: StatusWaiting}.IsLive())
	assert.True(t, Entry{Status: StatusOffered}.IsLive())
	assert.False(t, Entry{Status: StatusPurchased}.IsLive())
	assert.False(t, Entry{Status: StatusExpired}.IsLive())
}

func TestEntryOfferLapsed(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	tests := []struct {
		name   string
		entry  Entry
		lapsed bool
	}{
		{name: "offered past deadline", entry: Entry{Status: StatusOffered, OfferExpiresAt: &past}, lapsed: true},
		{name: "offered inside window", entry: Entry{Status: StatusOffered, OfferExpiresAt: &future}, lapsed: false},
		{name: "waiting has no offer", entry: Entry{Status: StatusWaiting}, lapsed: false},
		{name: "purchased never lapses", entry: Entry{Status: StatusPurchased, OfferExpiresAt: &past}, lapsed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.lapsed, tt.entry.OfferLapsed(now))
		})
	}
}

func TestExpireIfStale(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	stale := Entry{ID: "WL-1", Status: StatusOffered, OfferExpiresAt: &past}
	got := ExpireIfStale(stale, now)
	assert.Equal(t, StatusExpired, got.Status)
	assert.Equal(t, StatusOffered, stale.Status, "input must not be mutated")

	fresh := Entry{ID: "WL-2", Status: StatusOffered, OfferExpiresAt: &future}
	assert.Equal(t, fresh, ExpireIfStale(fresh, now))

	waiting := Entry{ID: "WL-3", Status: StatusWaiting}
	assert.Equal(t, waiting, ExpireIfStale(waiting, now))
}
