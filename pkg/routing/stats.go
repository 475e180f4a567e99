package routing

import (
	"sync"
	"sync/atomic"
	"time"
)

// Stats is a point-in-time snapshot of router activity, safe to read
// without locks.
type Stats struct {
	// TotalRequests is the number of routed requests, streaming included.
	TotalRequests int64 `json:"total_requests"`

	// TotalSuccesses counts requests that returned a result.
	TotalSuccesses int64 `json:"total_successes"`

	// TotalFailures counts requests that returned an error: aborts,
	// exhaustions, and cancellations alike.
	TotalFailures int64 `json:"total_failures"`

	// TotalFallbacks counts attempts made beyond the first back-end.
	TotalFallbacks int64 `json:"total_fallbacks"`

	// TotalExhaustions counts requests that ran out of back-ends.
	TotalExhaustions int64 `json:"total_exhaustions"`

	// AttemptsPerBackend tracks attempts sent to each back-end.
	AttemptsPerBackend map[string]int64 `json:"attempts_per_backend"`

	// RequestsPerTask tracks requests received for each task.
	RequestsPerTask map[string]int64 `json:"requests_per_task"`

	// LastResetTime is when the counters were last reset.
	LastResetTime time.Time `json:"last_reset_time"`
}

// AtomicStats accumulates router counters using atomic operations.
// All counters are updated atomically for lock-free performance.
type AtomicStats struct {
	totalRequests    atomic.Int64
	totalSuccesses   atomic.Int64
	totalFailures    atomic.Int64
	totalFallbacks   atomic.Int64
	totalExhaustions atomic.Int64

	// attemptsPerBackend tracks attempts sent to each back-end
	// Uses sync.Map for thread-safe concurrent access
	attemptsPerBackend sync.Map // map[string]*atomic.Int64

	// requestsPerTask tracks requests received for each task
	requestsPerTask sync.Map // map[string]*atomic.Int64

	// lastResetTime is when statistics were last reset
	lastResetTime time.Time

	// mu protects lastResetTime
	mu sync.RWMutex
}

// NewAtomicStats creates a new atomic statistics tracker.
func NewAtomicStats() *AtomicStats {
	return &AtomicStats{
		lastResetTime: time.Now(),
	}
}

// RecordRequest counts one incoming request for task.
func (s *AtomicStats) RecordRequest(task string) {
	s.totalRequests.Add(1)
	val, _ := s.requestsPerTask.LoadOrStore(task, &atomic.Int64{})
	val.(*atomic.Int64).Add(1)
}

// RecordAttempt counts one attempt sent to backend.
func (s *AtomicStats) RecordAttempt(backend string) {
	val, _ := s.attemptsPerBackend.LoadOrStore(backend, &atomic.Int64{})
	val.(*atomic.Int64).Add(1)
}

// RecordSuccess counts one request that returned a result.
func (s *AtomicStats) RecordSuccess() {
	s.totalSuccesses.Add(1)
}

// RecordFailure counts one request that returned an error.
func (s *AtomicStats) RecordFailure() {
	s.totalFailures.Add(1)
}

// RecordFallback counts one attempt made beyond the first back-end.
func (s *AtomicStats) RecordFallback() {
	s.totalFallbacks.Add(1)
}

// RecordExhaustion counts one request that ran out of back-ends.
func (s *AtomicStats) RecordExhaustion() {
	s.totalExhaustions.Add(1)
}

// Snapshot returns a point-in-time snapshot of the statistics.
func (s *AtomicStats) Snapshot() *Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	perBackend := make(map[string]int64)
	s.attemptsPerBackend.Range(func(key, value interface{}) bool {
		perBackend[key.(string)] = value.(*atomic.Int64).Load()
		return true
	})

	perTask := make(map[string]int64)
	s.requestsPerTask.Range(func(key, value interface{}) bool {
		perTask[key.(string)] = value.(*atomic.Int64).Load()
		return true
	})

	return &Stats{
		TotalRequests:      s.totalRequests.Load(),
		TotalSuccesses:     s.totalSuccesses.Load(),
		TotalFailures:      s.totalFailures.Load(),
		TotalFallbacks:     s.totalFallbacks.Load(),
		TotalExhaustions:   s.totalExhaustions.Load(),
		AttemptsPerBackend: perBackend,
		RequestsPerTask:    perTask,
		LastResetTime:      s.lastResetTime,
	}
}

// Reset resets all statistics to zero.
func (s *AtomicStats) Reset() {
	s.totalRequests.Store(0)
	s.totalSuccesses.Store(0)
	s.totalFailures.Store(0)
	s.totalFallbacks.Store(0)
	s.totalExhaustions.Store(0)

	s.attemptsPerBackend.Range(func(key, value interface{}) bool {
		s.attemptsPerBackend.Delete(key)
		return true
	})
	s.requestsPerTask.Range(func(key, value interface{}) bool {
		s.requestsPerTask.Delete(key)
		return true
	})

	s.mu.Lock()
	s.lastResetTime = time.Now()
	s.mu.Unlock()
}
