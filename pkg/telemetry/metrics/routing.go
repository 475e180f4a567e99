package metrics

import (
	"time"

	"baatcheet/relay/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// RoutingMetrics tracks upstream request flow through the router.
//
// Metrics:
//   - baatcheet_relay_requests_total: upstream requests by task, back-end, and outcome
//   - baatcheet_relay_attempt_duration_seconds: per-attempt latency by back-end
//   - baatcheet_relay_fallback_depth: extra back-ends tried per relay request
//   - baatcheet_relay_exhaustions_total: relay requests that ran out of back-ends
type RoutingMetrics struct {
	// Upstream requests by task, back-end, and outcome class.
	requests *prometheus.CounterVec

	// Per-attempt wall time, including rejected and failed attempts.
	attemptDuration *prometheus.HistogramVec

	// How many back-ends beyond the first a request needed.
	fallbackDepth prometheus.Histogram

	// Requests that exhausted every eligible back-end.
	exhaustions *prometheus.CounterVec
}

// Attempt latencies cluster between fast rejects and slow generations, so
// the buckets span 100ms to 30s.
var attemptDurationBuckets = []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0}

// Fallback depth is bounded by the number of configured back-ends.
var fallbackDepthBuckets = []float64{0, 1, 2, 3, 4, 5, 8}

// NewRoutingMetrics creates and registers routing metrics with the provided registry.
func NewRoutingMetrics(cfg config.MetricsConfig, registry *prometheus.Registry) *RoutingMetrics {
	rm := &RoutingMetrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "requests_total",
				Help:      "Total upstream requests by task, back-end, and outcome",
			},
			[]string{"task", "backend", "outcome"},
		),

		attemptDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "attempt_duration_seconds",
				Help:      "Upstream attempt latency in seconds",
				Buckets:   attemptDurationBuckets,
			},
			[]string{"backend"},
		),

		fallbackDepth: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "fallback_depth",
				Help:      "Number of additional back-ends tried per relay request",
				Buckets:   fallbackDepthBuckets,
			},
		),

		exhaustions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "exhaustions_total",
				Help:      "Total relay requests that ran out of eligible back-ends",
			},
			[]string{"task"},
		),
	}

	registry.MustRegister(
		rm.requests,
		rm.attemptDuration,
		rm.fallbackDepth,
		rm.exhaustions,
	)

	return rm
}

// RecordAttempt records one upstream attempt. The outcome is a failure
// class string, or "success".
func (rm *RoutingMetrics) RecordAttempt(task, backend, outcome string, duration time.Duration) {
	rm.requests.WithLabelValues(task, backend, outcome).Inc()
	rm.attemptDuration.WithLabelValues(backend).Observe(duration.Seconds())
}

// RecordFallbackDepth records how many back-ends beyond the first a
// completed request consumed.
func (rm *RoutingMetrics) RecordFallbackDepth(depth int) {
	rm.fallbackDepth.Observe(float64(depth))
}

// RecordExhaustion records a request that failed on every eligible back-end.
func (rm *RoutingMetrics) RecordExhaustion(task string) {
	rm.exhaustions.WithLabelValues(task).Inc()
}
