package ratelimit

import "sync/atomic"

// InFlightLimiter caps simultaneous attempts with a lock-free counting
// semaphore.
type InFlightLimiter struct {
	limit   int64
	current atomic.Int64
}

// NewInFlightLimiter creates a limiter admitting at most limit concurrent
// holders.
func NewInFlightLimiter(limit int) *InFlightLimiter {
	return &InFlightLimiter{limit: int64(limit)}
}

// Acquire attempts to take a slot. A true return obliges the caller to
// Release exactly once.
func (l *InFlightLimiter) Acquire() bool {
	if l.current.Add(1) > l.limit {
		l.current.Add(-1)
		return false
	}
	return true
}

// Release returns a slot taken by a successful Acquire.
func (l *InFlightLimiter) Release() {
	l.current.Add(-1)
}

// Current returns the number of slots currently held.
func (l *InFlightLimiter) Current() int64 {
	return l.current.Load()
}

// Remaining returns the number of free slots.
func (l *InFlightLimiter) Remaining() int64 {
	free := l.limit - l.current.Load()
	if free < 0 {
		return 0
	}
	return free
}

// Limit returns the configured cap.
func (l *InFlightLimiter) Limit() int64 {
	return l.limit
}
