// Package breaker implements a per-back-end circuit breaker.
//
// One Breaker guards all traffic to one back-end, independent of which
// credential a given attempt uses. While the circuit is open, attempts are
// rejected locally without touching the network; after the open timeout a
// single probe is admitted to test recovery.
package breaker

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// State is the circuit's position in the failure-detection state machine.
type State string

const (
	// StateClosed passes requests through and counts failures.
	StateClosed State = "closed"

	// StateOpen rejects requests immediately.
	StateOpen State = "open"

	// StateHalfOpen admits one probe at a time to test recovery.
	StateHalfOpen State = "half_open"
)

// Defaults applied by New when the corresponding Config field is zero.
const (
	DefaultFailureThreshold = 5
	DefaultSuccessThreshold = 2
	DefaultOpenTimeout      = 30 * time.Second
)

// Config holds the breaker tunables.
type Config struct {
	// FailureThreshold is the consecutive-failure count that opens the
	// circuit. Default: 5
	FailureThreshold int

	// SuccessThreshold is the consecutive-success count in half-open that
	// closes the circuit. Default: 2
	SuccessThreshold int

	// OpenTimeout is how long the circuit stays open before admitting a
	// probe. Default: 30s
	OpenTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = DefaultFailureThreshold
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = DefaultSuccessThreshold
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = DefaultOpenTimeout
	}
	return c
}

// Operation is the callable guarded by Execute.
type Operation func(ctx context.Context) error

// Breaker is a three-state circuit breaker for one back-end.
//
// All state lives behind a single mutex; breakers for different back-ends
// share nothing. The critical sections cover only counter updates, never
// the guarded operation itself.
type Breaker struct {
	mu      sync.Mutex
	backend string
	cfg     Config
	logger  *slog.Logger

	state                State
	consecutiveFailures  int
	consecutiveSuccesses int
	lastFailure          time.Time
	lastSuccess          time.Time
	openedAt             time.Time
	lastTransition       time.Time

	totalRequests  int64
	totalSuccesses int64
	totalFailures  int64
	totalRejected  int64
	transitions    map[State]int64

	// probeInFlight guards half-open: only one attempt may be out at a
	// time, so concurrent callers cannot stampede a recovering back-end.
	probeInFlight bool

	// nowFunc is replaceable in tests to drive timeout transitions.
	nowFunc func() time.Time
}

// New creates a closed breaker for the named back-end.
func New(backend string, cfg Config) *Breaker {
	b := &Breaker{
		backend:     backend,
		cfg:         cfg.withDefaults(),
		logger:      slog.Default().With("component", "breaker", "backend", backend),
		state:       StateClosed,
		transitions: make(map[State]int64),
		nowFunc:     time.Now,
	}
	b.lastTransition = b.nowFunc()
	return b
}

// Execute runs op under the circuit's protection.
//
// While the circuit is open (and the open timeout has not elapsed) op is
// not invoked and an OpenError is returned. Otherwise op runs, its outcome
// feeds the state machine, and its own error is returned unchanged: the
// caller always sees the operation's error, never a bookkeeping wrapper.
func (b *Breaker) Execute(ctx context.Context, op Operation) error {
	probe, err := b.beforeAttempt()
	if err != nil {
		return err
	}

	opErr := op(ctx)
	b.afterAttempt(probe, opErr)
	return opErr
}

// beforeAttempt decides whether the next attempt may proceed. It performs
// the open→half-open transition when the timeout has elapsed. The returned
// probe flag is true when this attempt is the half-open probe and must be
// handed back to afterAttempt.
func (b *Breaker) beforeAttempt() (probe bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.nowFunc()

	switch b.state {
	case StateOpen:
		elapsed := now.Sub(b.openedAt)
		if elapsed < b.cfg.OpenTimeout {
			b.totalRejected++
			return false, NewOpenError(b.backend, StateOpen, b.cfg.OpenTimeout-elapsed)
		}
		b.transitionTo(StateHalfOpen, now)
		b.probeInFlight = true
		b.totalRequests++
		return true, nil

	case StateHalfOpen:
		if b.probeInFlight {
			b.totalRejected++
			return false, NewOpenError(b.backend, StateHalfOpen, 0)
		}
		b.probeInFlight = true
		b.totalRequests++
		return true, nil

	default: // StateClosed
		b.totalRequests++
		return false, nil
	}
}

// afterAttempt feeds an attempt's outcome into the state machine.
func (b *Breaker) afterAttempt(probe bool, opErr error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if probe {
		b.probeInFlight = false
	}

	now := b.nowFunc()
	if opErr != nil {
		b.recordFailure(now)
	} else {
		b.recordSuccess(now)
	}
}

// recordFailure must be called with the mutex held.
func (b *Breaker) recordFailure(now time.Time) {
	b.totalFailures++
	b.consecutiveFailures++
	b.consecutiveSuccesses = 0
	b.lastFailure = now

	switch b.state {
	case StateClosed:
		if b.consecutiveFailures >= b.cfg.FailureThreshold {
			b.transitionTo(StateOpen, now)
		}
	case StateHalfOpen:
		// A failed probe reopens the circuit with a fresh timeout.
		b.transitionTo(StateOpen, now)
	}
}

// recordSuccess must be called with the mutex held.
func (b *Breaker) recordSuccess(now time.Time) {
	b.totalSuccesses++
	b.consecutiveSuccesses++
	b.consecutiveFailures = 0
	b.lastSuccess = now

	if b.state == StateHalfOpen && b.consecutiveSuccesses >= b.cfg.SuccessThreshold {
		b.transitionTo(StateClosed, now)
	}
}

// transitionTo changes state and resets the counters the new state starts
// from. Must be called with the mutex held.
func (b *Breaker) transitionTo(next State, now time.Time) {
	prev := b.state
	if prev == next {
		return
	}
	b.state = next
	b.lastTransition = now
	b.transitions[next]++

	switch next {
	case StateOpen:
		b.openedAt = now
		b.consecutiveSuccesses = 0
		b.logger.Warn("circuit opened",
			"from", string(prev),
			"consecutive_failures", b.consecutiveFailures,
			"retry_after", b.cfg.OpenTimeout,
		)
	case StateHalfOpen:
		b.consecutiveSuccesses = 0
		b.probeInFlight = false
		b.logger.Info("circuit half-open, probing", "from", string(prev))
	case StateClosed:
		b.consecutiveFailures = 0
		b.consecutiveSuccesses = 0
		b.probeInFlight = false
		b.logger.Info("circuit closed", "from", string(prev))
	}
}

// State returns the current circuit state without side effects: an open
// circuit past its timeout still reads as open until the next attempt
// performs the transition.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Allows reports whether an attempt made now would be admitted. Unlike
// beforeAttempt it mutates nothing; the manager uses it to exclude
// unavailable back-ends during candidate selection.
func (b *Breaker) Allows() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		return b.nowFunc().Sub(b.openedAt) >= b.cfg.OpenTimeout
	case StateHalfOpen:
		return !b.probeInFlight
	default:
		return true
	}
}

// ForceOpen opens the circuit immediately, as if the failure threshold had
// just been crossed. Used by diagnostics and admin endpoints only.
func (b *Breaker) ForceOpen() {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.nowFunc()
	if b.state == StateOpen {
		b.openedAt = now
		return
	}
	b.logger.Warn("circuit force-opened")
	b.transitionTo(StateOpen, now)
}

// ForceClose closes the circuit and clears the consecutive counters. Used
// by diagnostics and admin endpoints only.
func (b *Breaker) ForceClose() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateClosed {
		return
	}
	b.logger.Info("circuit force-closed")
	b.transitionTo(StateClosed, b.nowFunc())
}

// Stats is a read-only snapshot of a breaker's state and counters.
type Stats struct {
	Backend              string    `json:"backend"`
	State                State     `json:"state"`
	ConsecutiveFailures  int       `json:"consecutive_failures"`
	ConsecutiveSuccesses int       `json:"consecutive_successes"`
	TotalRequests        int64     `json:"total_requests"`
	TotalSuccesses       int64     `json:"total_successes"`
	TotalFailures        int64     `json:"total_failures"`
	TotalRejected        int64     `json:"total_rejected"`
	SuccessRate          float64   `json:"success_rate"`
	LastFailure          time.Time `json:"last_failure,omitempty"`
	LastSuccess          time.Time `json:"last_success,omitempty"`
	OpenedAt             time.Time `json:"opened_at,omitempty"`
	LastTransition       time.Time `json:"last_transition"`

	// Transitions counts entries into each state since construction.
	Transitions map[State]int64 `json:"transitions"`
}

// Stats returns a point-in-time snapshot for diagnostics. The hot path
// never calls it.
func (b *Breaker) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	rate := 0.0
	if b.totalRequests > 0 {
		rate = float64(b.totalSuccesses) / float64(b.totalRequests)
	}

	transitions := make(map[State]int64, len(b.transitions))
	for state, count := range b.transitions {
		transitions[state] = count
	}

	return Stats{
		Backend:              b.backend,
		State:                b.state,
		ConsecutiveFailures:  b.consecutiveFailures,
		ConsecutiveSuccesses: b.consecutiveSuccesses,
		TotalRequests:        b.totalRequests,
		TotalSuccesses:       b.totalSuccesses,
		TotalFailures:        b.totalFailures,
		TotalRejected:        b.totalRejected,
		SuccessRate:          rate,
		LastFailure:          b.lastFailure,
		LastSuccess:          b.lastSuccess,
		OpenedAt:             b.openedAt,
		LastTransition:       b.lastTransition,
		Transitions:          transitions,
	}
}

// Backend returns the guarded back-end's name.
func (b *Breaker) Backend() string {
	return b.backend
}
