// Package routing drives task execution across back-ends.
//
// The router asks the provider manager for the best eligible back-end,
// leases a credential, and runs the attempt through the back-end's circuit
// breaker. Failures are classified: retryable classes move the request to
// the next back-end with the failed one excluded, request faults abort
// immediately. Every attempt is journaled and reported to the metrics
// observer.
//
// Routers are safe for concurrent use.
package routing

import (
	"encoding/json"
	"log/slog"
	"time"

	"baatcheet/relay/pkg/backends"
	"baatcheet/relay/pkg/config"
	"baatcheet/relay/pkg/journal"
	"baatcheet/relay/pkg/providers"
)

// Recorder persists one attempt record. *recorder.Recorder satisfies it.
// A nil Recorder disables journaling.
type Recorder interface {
	Record(record *journal.AttemptRecord) error
}

// Observer receives routing events for instrumentation. *metrics.Collector
// satisfies it. A nil Observer disables instrumentation.
type Observer interface {
	RecordAttempt(task, backend, outcome string, duration time.Duration)
	RecordFallbackDepth(depth int)
	RecordExhaustion(task string)
	RecordCredentialError(backend, class string)
}

// Router executes tasks against back-ends with fallback. It owns no
// back-end state itself; selection, credentials, breakers, and rate guards
// all live in the provider manager.
type Router struct {
	manager  *providers.Manager
	cfg      config.RouterConfig
	recorder Recorder
	observer Observer
	stats    *AtomicStats
	logger   *slog.Logger
}

// New creates a router over manager. recorder and observer may be nil.
func New(manager *providers.Manager, cfg config.RouterConfig, recorder Recorder, observer Observer) *Router {
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = config.DefaultAttemptTimeout
	}
	return &Router{
		manager:  manager,
		cfg:      cfg,
		recorder: recorder,
		observer: observer,
		stats:    NewAtomicStats(),
		logger:   slog.Default().With("component", "routing"),
	}
}

// Result is the outcome of a routed non-streaming request.
type Result struct {
	// Body is the upstream response body, unparsed.
	Body json.RawMessage

	// StatusCode is the upstream HTTP status.
	StatusCode int

	// Backend is the back-end that served the request.
	Backend string

	// Latency is the duration of the winning attempt.
	Latency time.Duration

	// Fallbacks is how many attempts failed before this one.
	Fallbacks int
}

// Stats returns a snapshot of the router's counters.
func (r *Router) Stats() *Stats {
	return r.stats.Snapshot()
}

// record writes one attempt record, logging and dropping on failure. The
// journal never blocks routing.
func (r *Router) record(rec *journal.AttemptRecord) {
	if r.recorder == nil {
		return
	}
	if err := r.recorder.Record(rec); err != nil {
		r.logger.Warn("journal write failed", "error", err)
	}
}

// markCredential reports a failed attempt to the credential pool. A
// circuit-open rejection never reached the back-end, so the lease goes
// unmarked and no capacity is charged. A request fault says nothing about
// the credential, so it goes unmarked too. Auth rejections quarantine the
// credential immediately.
func (r *Router) markCredential(backend string, index int, class backends.Class, message string) {
	switch class {
	case backends.ClassCircuitOpen, backends.ClassInvalid:
		return
	}
	r.manager.MarkError(backend, index, message, class == backends.ClassAuth)
	if r.observer != nil {
		r.observer.RecordCredentialError(backend, string(class))
	}
}
