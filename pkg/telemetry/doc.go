// Package telemetry groups the relay's observability concerns: structured
// logging with secret redaction, Prometheus metrics, and health checks.
//
// Each concern lives in its own subpackage so components depend only on
// what they use:
//
//   - logging: slog setup, level/format parsing, credential redaction,
//     request-scoped context fields
//   - metrics: the Prometheus collector and metric groups
//   - health: liveness/readiness checker and HTTP handlers
package telemetry
