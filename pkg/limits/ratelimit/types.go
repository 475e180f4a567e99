package ratelimit

import "time"

// Config holds one back-end's guard limits. Zero values disable the
// corresponding dimension.
type Config struct {
	// RequestsPerMinute bounds the average attempt rate.
	RequestsPerMinute int

	// Burst is the token bucket capacity. Defaults to RequestsPerMinute
	// when zero, allowing up to a minute's budget at once.
	Burst int

	// MaxInFlight caps simultaneous attempts.
	MaxInFlight int
}

// Status is a read-only snapshot of one back-end's guard for diagnostics.
type Status struct {
	Backend         string        `json:"backend"`
	Limited         bool          `json:"limited"`
	TokensRemaining int64         `json:"tokens_remaining,omitempty"`
	TokenCapacity   int64         `json:"token_capacity,omitempty"`
	InFlight        int64         `json:"in_flight,omitempty"`
	MaxInFlight     int64         `json:"max_in_flight,omitempty"`
	RetryIn         time.Duration `json:"retry_in,omitempty"`
}
