package providers

import (
	"baatcheet/relay/pkg/breaker"
	"baatcheet/relay/pkg/credentials"
)

// BackendHealth is one back-end's availability snapshot for diagnostics.
type BackendHealth struct {
	// Backend is the back-end name.
	Backend string `json:"backend"`

	// Available reports whether the back-end could serve an attempt
	// right now: breaker admitting and credential capacity remaining.
	Available bool `json:"available"`

	// TotalKeys is the number of credentials in the pool.
	TotalKeys int `json:"total_keys"`

	// AvailableKeys is the number of credentials currently eligible.
	AvailableKeys int `json:"available_keys"`

	// TotalCapacity is the pool's aggregate daily request budget.
	TotalCapacity int `json:"total_capacity"`

	// UsedToday is the number of requests served since the last reset.
	UsedToday int `json:"used_today"`

	// Remaining is the aggregate capacity left on eligible credentials.
	Remaining int `json:"remaining"`

	// BreakerState is the circuit breaker's current state.
	BreakerState breaker.State `json:"breaker_state"`
}

// Summary aggregates availability across every back-end.
type Summary struct {
	// ActiveBackends is how many back-ends are currently available.
	ActiveBackends int `json:"active_backends"`

	// TotalBackends is how many back-ends hold credentials.
	TotalBackends int `json:"total_backends"`

	// TotalKeys is the credential count across all pools.
	TotalKeys int `json:"total_keys"`

	// AvailableKeys is the eligible credential count across all pools.
	AvailableKeys int `json:"available_keys"`

	// TotalCapacity is the aggregate daily budget across all pools.
	TotalCapacity int `json:"total_capacity"`

	// UsedToday is the aggregate requests served since the last reset.
	UsedToday int `json:"used_today"`
}

// HealthStatus returns every back-end's availability snapshot, sorted by
// name. Snapshots are taken per back-end without a global lock, so the
// slice is eventually consistent across back-ends.
func (m *Manager) HealthStatus() []BackendHealth {
	out := make([]BackendHealth, 0, len(m.states))
	for _, name := range m.Backends() {
		out = append(out, m.healthFor(name))
	}
	return out
}

// healthFor snapshots one back-end.
func (m *Manager) healthFor(backend string) BackendHealth {
	state := m.states[backend]
	snap := state.Pool.Snapshot()

	return BackendHealth{
		Backend:       backend,
		Available:     state.Breaker.Allows() && snap.Remaining > 0,
		TotalKeys:     snap.TotalKeys,
		AvailableKeys: snap.AvailableKeys,
		TotalCapacity: snap.TotalCapacity,
		UsedToday:     snap.UsedToday,
		Remaining:     snap.Remaining,
		BreakerState:  state.Breaker.State(),
	}
}

// BreakerStatus returns every breaker's statistics, sorted by back-end.
func (m *Manager) BreakerStatus() []breaker.Stats {
	out := make([]breaker.Stats, 0, len(m.states))
	for _, name := range m.Backends() {
		out = append(out, m.states[name].Breaker.Stats())
	}
	return out
}

// PoolStatus returns every pool's full snapshot, credential detail
// included, sorted by back-end. Credentials appear as fingerprints only.
func (m *Manager) PoolStatus() []credentials.PoolSnapshot {
	out := make([]credentials.PoolSnapshot, 0, len(m.states))
	for _, name := range m.Backends() {
		out = append(out, m.states[name].Pool.Snapshot())
	}
	return out
}

// Summary aggregates HealthStatus into a single overview.
func (m *Manager) Summary() Summary {
	var s Summary
	for _, health := range m.HealthStatus() {
		s.TotalBackends++
		if health.Available {
			s.ActiveBackends++
		}
		s.TotalKeys += health.TotalKeys
		s.AvailableKeys += health.AvailableKeys
		s.TotalCapacity += health.TotalCapacity
		s.UsedToday += health.UsedToday
	}
	return s
}

// ActiveBackends returns how many back-ends are currently available. The
// readiness check compares this against its configured minimum.
func (m *Manager) ActiveBackends() int {
	count := 0
	for _, name := range m.Backends() {
		state := m.states[name]
		if state.Breaker.Allows() && state.Pool.RemainingCapacity() > 0 {
			count++
		}
	}
	return count
}
