package ratelimit

import (
	"sort"
	"time"
)

// entry is one back-end's guard state. Either limiter may be nil when that
// dimension is unconfigured.
type entry struct {
	bucket   *TokenBucket
	inflight *InFlightLimiter
}

// Guard holds the per-back-end attempt limits. The entry map is built once
// at construction and never mutated, so lookups need no locking; the
// entries themselves synchronize internally.
type Guard struct {
	entries map[string]*entry
}

// NewGuard builds a guard from per-back-end configs. Back-ends absent from
// the map, or present with a zero Config, are unlimited.
func NewGuard(configs map[string]Config) *Guard {
	entries := make(map[string]*entry, len(configs))
	for backend, cfg := range configs {
		e := &entry{}
		if cfg.RequestsPerMinute > 0 {
			burst := cfg.Burst
			if burst <= 0 {
				burst = cfg.RequestsPerMinute
			}
			e.bucket = NewTokenBucket(int64(burst), float64(cfg.RequestsPerMinute)/60.0)
		}
		if cfg.MaxInFlight > 0 {
			e.inflight = NewInFlightLimiter(cfg.MaxInFlight)
		}
		if e.bucket != nil || e.inflight != nil {
			entries[backend] = e
		}
	}
	return &Guard{entries: entries}
}

// HasCapacity reports whether an attempt against backend would currently
// be admitted. It consumes nothing; the answer may be stale by the time
// the attempt runs, which Acquire then catches.
func (g *Guard) HasCapacity(backend string) bool {
	e, ok := g.entries[backend]
	if !ok {
		return true
	}
	if e.bucket != nil && e.bucket.Remaining() < 1 {
		return false
	}
	if e.inflight != nil && e.inflight.Remaining() < 1 {
		return false
	}
	return true
}

// Acquire takes one rate token and one in-flight slot for an attempt
// against backend. On success the returned release function must be called
// when the attempt completes; the rate token is consumed either way.
func (g *Guard) Acquire(backend string) (release func(), ok bool) {
	e, exists := g.entries[backend]
	if !exists {
		return func() {}, true
	}

	if e.inflight != nil {
		if !e.inflight.Acquire() {
			return nil, false
		}
	}
	if e.bucket != nil && !e.bucket.Take(1) {
		if e.inflight != nil {
			e.inflight.Release()
		}
		return nil, false
	}

	if e.inflight != nil {
		return e.inflight.Release, true
	}
	return func() {}, true
}

// RetryIn returns how long until backend's rate bucket holds a token, or
// zero when it already does (or no rate limit is configured).
func (g *Guard) RetryIn(backend string) time.Duration {
	e, ok := g.entries[backend]
	if !ok || e.bucket == nil {
		return 0
	}
	return e.bucket.TimeUntilAvailable(1)
}

// Reset refills backend's rate bucket. In-flight counts are not touched:
// they drain as attempts complete.
func (g *Guard) Reset(backend string) {
	if e, ok := g.entries[backend]; ok && e.bucket != nil {
		e.bucket.Reset()
	}
}

// StatusFor returns backend's guard snapshot.
func (g *Guard) StatusFor(backend string) Status {
	s := Status{Backend: backend}
	e, ok := g.entries[backend]
	if !ok {
		return s
	}

	s.Limited = true
	if e.bucket != nil {
		s.TokensRemaining = e.bucket.Remaining()
		s.TokenCapacity = e.bucket.Capacity()
		s.RetryIn = e.bucket.TimeUntilAvailable(1)
	}
	if e.inflight != nil {
		s.InFlight = e.inflight.Current()
		s.MaxInFlight = e.inflight.Limit()
	}
	return s
}

// Statuses returns every limited back-end's snapshot, sorted by name.
func (g *Guard) Statuses() []Status {
	out := make([]Status, 0, len(g.entries))
	for backend := range g.entries {
		out = append(out, g.StatusFor(backend))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Backend < out[j].Backend })
	return out
}
