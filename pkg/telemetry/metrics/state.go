package metrics

import (
	"baatcheet/relay/pkg/breaker"
	"baatcheet/relay/pkg/config"
	"baatcheet/relay/pkg/providers"

	"github.com/prometheus/client_golang/prometheus"
)

// StateSource supplies point-in-time pool and breaker snapshots.
// *providers.Manager satisfies it.
type StateSource interface {
	HealthStatus() []providers.BackendHealth
	BreakerStatus() []breaker.Stats
}

// StateCollector is a prometheus.Collector that reads pool and breaker
// state at scrape time. Gauges built this way cannot drift: every scrape
// sees the same numbers the router sees.
//
// Metrics:
//   - baatcheet_relay_pool_available_keys: usable credentials per back-end
//   - baatcheet_relay_pool_remaining_capacity: remaining daily capacity per back-end
//   - baatcheet_relay_breaker_state: breaker state per back-end (0=closed, 1=open, 2=half-open)
//   - baatcheet_relay_breaker_transitions_total: breaker transitions per back-end and target state
//   - baatcheet_relay_breaker_rejections_total: requests rejected by an open circuit
type StateCollector struct {
	source StateSource

	availableKeys      *prometheus.Desc
	remainingCapacity  *prometheus.Desc
	breakerState       *prometheus.Desc
	breakerTransitions *prometheus.Desc
	breakerRejections  *prometheus.Desc
}

// NewStateCollector creates a collector over the given source. The caller
// registers it with a registry.
func NewStateCollector(cfg config.MetricsConfig, source StateSource) *StateCollector {
	fqName := func(name string) string {
		return prometheus.BuildFQName(cfg.Namespace, cfg.Subsystem, name)
	}

	return &StateCollector{
		source: source,

		availableKeys: prometheus.NewDesc(
			fqName("pool_available_keys"),
			"Number of usable credentials per back-end",
			[]string{"backend"}, nil,
		),
		remainingCapacity: prometheus.NewDesc(
			fqName("pool_remaining_capacity"),
			"Remaining daily request capacity per back-end",
			[]string{"backend"}, nil,
		),
		breakerState: prometheus.NewDesc(
			fqName("breaker_state"),
			"Circuit breaker state per back-end (0=closed, 1=open, 2=half-open)",
			[]string{"backend"}, nil,
		),
		breakerTransitions: prometheus.NewDesc(
			fqName("breaker_transitions_total"),
			"Total circuit breaker transitions per back-end and target state",
			[]string{"backend", "to"}, nil,
		),
		breakerRejections: prometheus.NewDesc(
			fqName("breaker_rejections_total"),
			"Total requests rejected by an open circuit per back-end",
			[]string{"backend"}, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (sc *StateCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- sc.availableKeys
	ch <- sc.remainingCapacity
	ch <- sc.breakerState
	ch <- sc.breakerTransitions
	ch <- sc.breakerRejections
}

// Collect implements prometheus.Collector.
func (sc *StateCollector) Collect(ch chan<- prometheus.Metric) {
	for _, h := range sc.source.HealthStatus() {
		ch <- prometheus.MustNewConstMetric(
			sc.availableKeys, prometheus.GaugeValue, float64(h.AvailableKeys), h.Backend,
		)
		ch <- prometheus.MustNewConstMetric(
			sc.remainingCapacity, prometheus.GaugeValue, float64(h.Remaining), h.Backend,
		)
	}

	for _, s := range sc.source.BreakerStatus() {
		ch <- prometheus.MustNewConstMetric(
			sc.breakerState, prometheus.GaugeValue, stateValue(s.State), s.Backend,
		)
		ch <- prometheus.MustNewConstMetric(
			sc.breakerRejections, prometheus.CounterValue, float64(s.TotalRejected), s.Backend,
		)
		for state, count := range s.Transitions {
			ch <- prometheus.MustNewConstMetric(
				sc.breakerTransitions, prometheus.CounterValue, float64(count), s.Backend, string(state),
			)
		}
	}
}

// stateValue maps a breaker state onto the gauge encoding.
func stateValue(s breaker.State) float64 {
	switch s {
	case breaker.StateOpen:
		return 1
	case breaker.StateHalfOpen:
		return 2
	default:
		return 0
	}
}
