// Package providers composes the per-back-end resilience state into a
// single Manager the router selects back-ends through.
//
// Each registered back-end carries its own credential pool, circuit
// breaker, and HTTP executor. The Manager itself holds no lock: the
// back-end map is fixed at construction and every component serializes
// its own state, so snapshots taken across back-ends are eventually
// consistent rather than atomic.
//
// Selection is capability-driven. BestBackendForTask walks the registry
// order for a task, drops back-ends that are excluded, tripped open, out
// of credential capacity, or out of rate budget, and ranks the survivors
// by remaining capacity so traffic drains the healthiest pool first.
//
// This package performs no network I/O. Executors are carried for the
// router's benefit; only the router invokes them.
package providers
