// Package metrics exposes the relay's Prometheus instrumentation.
//
// A Collector owns a private registry and groups the instruments by
// concern: RoutingMetrics counts upstream requests and fallback behavior,
// CredentialMetrics counts credential failures, and a StateCollector
// reads pool and breaker snapshots at scrape time so gauges never go
// stale between updates.
//
// The usual wiring:
//
//	collector := metrics.NewCollector(cfg.Telemetry.Metrics, nil)
//	collector.RegisterStateSource(manager)
//	mux.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
//
// Recording methods are safe for concurrent use and become no-ops when
// metrics are disabled in configuration.
package metrics
