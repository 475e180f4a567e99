package metrics

import (
	"time"

	"baatcheet/relay/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector is the single entry point for relay metrics. It owns the
// registry, groups the instruments by concern, and hides Prometheus types
// from the packages that record.
//
// All recording methods are cheap, concurrency-safe, and become no-ops
// when metrics are disabled in configuration. Label cardinality is bounded
// by construction: tasks, back-ends, and outcome classes are all closed
// sets.
type Collector struct {
	cfg      config.MetricsConfig
	disabled bool
	registry *prometheus.Registry

	routing     *RoutingMetrics
	credentials *CredentialMetrics
}

// NewCollector creates a metrics collector backed by the given registry.
// If registry is nil, a private registry is created, which keeps the
// relay's metrics separate from anything else living in the process.
func NewCollector(cfg config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "baatcheet"
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = "relay"
	}

	c := &Collector{
		cfg:      cfg,
		disabled: cfg.Disabled,
		registry: registry,
	}

	c.routing = NewRoutingMetrics(cfg, registry)
	c.credentials = NewCredentialMetrics(cfg, registry)

	return c
}

// RegisterStateSource registers a scrape-time collector over the given
// pool and breaker snapshots. Call it once, after the provider manager is
// built.
func (c *Collector) RegisterStateSource(source StateSource) {
	if c.disabled || source == nil {
		return
	}
	c.registry.MustRegister(NewStateCollector(c.cfg, source))
}

// RecordAttempt records one upstream attempt with its outcome class and
// wall time.
func (c *Collector) RecordAttempt(task, backend, outcome string, duration time.Duration) {
	if c.disabled {
		return
	}
	c.routing.RecordAttempt(task, backend, outcome, duration)
}

// RecordFallbackDepth records how many back-ends beyond the first a
// completed request consumed.
func (c *Collector) RecordFallbackDepth(depth int) {
	if c.disabled {
		return
	}
	c.routing.RecordFallbackDepth(depth)
}

// RecordExhaustion records a request that failed on every eligible back-end.
func (c *Collector) RecordExhaustion(task string) {
	if c.disabled {
		return
	}
	c.routing.RecordExhaustion(task)
}

// RecordCredentialError records a failure attributed to a specific
// credential.
func (c *Collector) RecordCredentialError(backend, class string) {
	if c.disabled {
		return
	}
	c.credentials.RecordError(backend, class)
}

// Registry returns the Prometheus registry used by this collector,
// for mounting via promhttp or for test scrapes.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
