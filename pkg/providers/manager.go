package providers

import (
	"io"
	"log/slog"
	"sort"

	"baatcheet/relay/pkg/backends"
	"baatcheet/relay/pkg/breaker"
	"baatcheet/relay/pkg/capability"
	"baatcheet/relay/pkg/credentials"
	"baatcheet/relay/pkg/limits/ratelimit"
	"baatcheet/relay/pkg/tasks"
)

// BackendState bundles the components one back-end owns. Pool and Breaker
// must be non-nil for every registered back-end; Executor may be nil in
// assemblies that never execute (selection-only tests).
type BackendState struct {
	Pool     *credentials.Pool
	Breaker  *breaker.Breaker
	Executor backends.Executor
}

// Manager composes pools, breakers, executors, the capability registry,
// and the rate guard behind one selection and bookkeeping surface.
//
// The back-end map is fixed at construction, so lookups need no locking;
// each pool and breaker serializes only itself.
type Manager struct {
	states   map[string]*BackendState
	registry *capability.Registry
	guard    *ratelimit.Guard
	logger   *slog.Logger
}

// NewManager builds a manager over pre-assembled back-end state. The map
// is captured as-is and must not be mutated afterwards. A nil registry
// falls back to the built-in capability table; a nil guard means no rate
// limits.
func NewManager(registry *capability.Registry, guard *ratelimit.Guard, states map[string]*BackendState) *Manager {
	if registry == nil {
		registry = capability.Default()
	}
	if guard == nil {
		guard = ratelimit.NewGuard(nil)
	}
	if states == nil {
		states = make(map[string]*BackendState)
	}
	return &Manager{
		states:   states,
		registry: registry,
		guard:    guard,
		logger:   slog.Default().With("component", "providers"),
	}
}

// candidate is one eligible back-end during selection.
type candidate struct {
	name      string
	remaining int
	priority  int
}

// BestBackendForTask returns the back-end the next attempt for task should
// go to, or ("", false) when none is currently eligible.
//
// Eligibility walks the registry order for the task and drops back-ends
// that are in the exclude set, hold no credentials here, have a breaker
// rejecting attempts (an open breaker past its timeout still admits the
// probe), have no remaining credential capacity, or have an empty rate
// budget. Survivors are ranked by remaining capacity descending, then by
// declared registry priority.
func (m *Manager) BestBackendForTask(task tasks.Task, exclude map[string]bool) (string, bool) {
	refs := m.registry.BackendsFor(task)

	candidates := make([]candidate, 0, len(refs))
	for _, ref := range refs {
		if exclude[ref.Name] {
			continue
		}
		state, ok := m.states[ref.Name]
		if !ok {
			continue
		}
		if !state.Breaker.Allows() {
			continue
		}
		remaining := state.Pool.RemainingCapacity()
		if remaining <= 0 {
			continue
		}
		// An empty rate bucket is pacing, not failure: the back-end is
		// skipped this pass and becomes eligible again as tokens refill.
		if !m.guard.HasCapacity(ref.Name) {
			continue
		}
		candidates = append(candidates, candidate{
			name:      ref.Name,
			remaining: remaining,
			priority:  ref.Priority,
		})
	}

	if len(candidates) == 0 {
		return "", false
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].remaining != candidates[j].remaining {
			return candidates[i].remaining > candidates[j].remaining
		}
		return candidates[i].priority < candidates[j].priority
	})

	return candidates[0].name, true
}

// NextCredential leases the best available credential from backend's pool.
// It returns false when the back-end is unknown or its pool is exhausted.
func (m *Manager) NextCredential(backend string) (*credentials.Lease, bool) {
	state, ok := m.states[backend]
	if !ok {
		return nil, false
	}
	return state.Pool.Next()
}

// MarkSuccess records a successful attempt against the credential at index
// in backend's pool. Unknown back-ends are ignored.
func (m *Manager) MarkSuccess(backend string, index int) {
	if state, ok := m.states[backend]; ok {
		state.Pool.MarkSuccess(index)
	}
}

// MarkError records a failed attempt against the credential at index in
// backend's pool. A fatal mark quarantines the credential immediately,
// bypassing the consecutive-failure threshold. Unknown back-ends are
// ignored.
func (m *Manager) MarkError(backend string, index int, message string, fatal bool) {
	if state, ok := m.states[backend]; ok {
		state.Pool.MarkError(index, message, fatal)
	}
}

// Breaker returns backend's circuit breaker, or nil for unknown back-ends.
// The router executes every attempt through this breaker.
func (m *Manager) Breaker(backend string) *breaker.Breaker {
	if state, ok := m.states[backend]; ok {
		return state.Breaker
	}
	return nil
}

// Executor returns backend's executor. The second return is false when the
// back-end is unknown or was assembled without one.
func (m *Manager) Executor(backend string) (backends.Executor, bool) {
	state, ok := m.states[backend]
	if !ok || state.Executor == nil {
		return nil, false
	}
	return state.Executor, true
}

// Guard returns the shared rate guard. The router acquires from it around
// each attempt.
func (m *Manager) Guard() *ratelimit.Guard {
	return m.guard
}

// Registry returns the capability registry the manager selects through.
func (m *Manager) Registry() *capability.Registry {
	return m.registry
}

// Backends returns the registered back-end names in sorted order.
func (m *Manager) Backends() []string {
	names := make([]string, 0, len(m.states))
	for name := range m.states {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether backend is registered with the manager.
func (m *Manager) Has(backend string) bool {
	_, ok := m.states[backend]
	return ok
}

// ForceOpen trips backend's breaker open until ForceClose or recovery.
func (m *Manager) ForceOpen(backend string) error {
	state, ok := m.states[backend]
	if !ok {
		return &UnknownBackendError{Backend: backend}
	}
	state.Breaker.ForceOpen()
	m.logger.Info("breaker forced open", "backend", backend)
	return nil
}

// ForceClose resets backend's breaker to closed.
func (m *Manager) ForceClose(backend string) error {
	state, ok := m.states[backend]
	if !ok {
		return &UnknownBackendError{Backend: backend}
	}
	state.Breaker.ForceClose()
	m.logger.Info("breaker forced closed", "backend", backend)
	return nil
}

// ResetPool clears backend's daily counters and quarantines, restoring
// every credential to full capacity.
func (m *Manager) ResetPool(backend string) error {
	state, ok := m.states[backend]
	if !ok {
		return &UnknownBackendError{Backend: backend}
	}
	state.Pool.Reset()
	m.logger.Info("credential pool reset", "backend", backend)
	return nil
}

// ResetAllPools resets every pool. The daily reset scheduler calls this at
// the configured boundary; each pool takes its own lock, so in-flight
// marks on other back-ends proceed unblocked.
func (m *Manager) ResetAllPools() {
	for _, name := range m.Backends() {
		m.states[name].Pool.Reset()
	}
	m.logger.Info("all credential pools reset", "backends", len(m.states))
}

// RotateCredentials swaps backend's secrets in place, preserving usage
// counters where old and new keys overlap.
func (m *Manager) RotateCredentials(backend string, secrets []string) error {
	state, ok := m.states[backend]
	if !ok {
		return &UnknownBackendError{Backend: backend}
	}
	state.Pool.Rotate(secrets)
	m.logger.Info("credentials rotated", "backend", backend, "keys", len(secrets))
	return nil
}

// Close releases every executor that holds resources.
func (m *Manager) Close() error {
	var firstErr error
	for _, name := range m.Backends() {
		closer, ok := m.states[name].Executor.(io.Closer)
		if !ok {
			continue
		}
		if err := closer.Close(); err != nil {
			m.logger.Error("error closing executor", "backend", name, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
