package cache

import "time"

// State classifies an entry by age.
type State int

const (
	// StateFresh is an entry within its TTL, served without a refresh.
	StateFresh State = iota
	// StateStale is past its TTL but inside the stale window; it is served
	// while one background refresh runs.
	StateStale
	// StateExpired is past TTL plus stale window and is reloaded synchronously.
	StateExpired
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateFresh:
		return "fresh"
	case StateStale:
		return "stale"
	default:
		return "expired"
	}
}

// Entry is an immutable snapshot of a cached value. The cache replaces the
// whole entry on refresh, so a reader never observes a partial update.
type Entry[V any] struct {
	Value       V
	StoredAt    time.Time
	TTL         time.Duration
	StaleWindow time.Duration
}

// Age returns how long ago the entry was stored.
func (e *Entry[V]) Age(now time.Time) time.Duration {
	return now.Sub(e.StoredAt)
}

// State classifies the entry at now. The boundaries are inclusive:
// age == TTL is still fresh and age == TTL+StaleWindow is still stale.
func (e *Entry[V]) State(now time.Time) State {
	age := e.Age(now)
	switch {
	case age <= e.TTL:
		return StateFresh
	case age <= e.TTL+e.StaleWindow:
		return StateStale
	default:
		return StateExpired
	}
}

// EntryConfig sets the TTL and stale window used when a value is stored.
// Zero fields fall back to the cache defaults.
type EntryConfig struct {
	TTL         time.Duration `mapstructure:"ttl"`
	StaleWindow time.Duration `mapstructure:"stale_window"`
}

// EntryInfo describes an entry without exposing its value.
type EntryInfo struct {
	Key             string        `json:"key"`
	StoredAt        time.Time     `json:"stored_at"`
	Age             time.Duration `json:"age"`
	TTL             time.Duration `json:"ttl"`
	StaleWindow     time.Duration `json:"stale_window"`
	State           string        `json:"state"`
	RefreshInFlight bool          `json:"refresh_in_flight"`
}
