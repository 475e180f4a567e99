package metrics

import (
	"baatcheet/relay/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// CredentialMetrics tracks credential failures per back-end. Pool gauges
// (available keys, remaining capacity) are served at scrape time by the
// StateCollector instead, so they cannot drift from the pools themselves.
type CredentialMetrics struct {
	// Credential-level errors by back-end and failure class.
	errors *prometheus.CounterVec
}

// NewCredentialMetrics creates and registers credential metrics with the
// provided registry.
func NewCredentialMetrics(cfg config.MetricsConfig, registry *prometheus.Registry) *CredentialMetrics {
	cm := &CredentialMetrics{
		errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "credential_errors_total",
				Help:      "Total credential errors by back-end and failure class",
			},
			[]string{"backend", "class"},
		),
	}

	registry.MustRegister(cm.errors)

	return cm
}

// RecordError records a failure attributed to a specific credential, such
// as a revoked key or an exhausted quota.
func (cm *CredentialMetrics) RecordError(backend, class string) {
	cm.errors.WithLabelValues(backend, class).Inc()
}
