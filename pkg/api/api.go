// Package api is the relay's HTTP surface: task execution and streaming,
// diagnostics over pools and breakers, the attempt journal query endpoint,
// health probes, Prometheus metrics, and the administrative breaker and
// pool controls.
package api

import (
	"log/slog"
	"net/http"

	"baatcheet/relay/pkg/api/middleware"
	"baatcheet/relay/pkg/config"
	"baatcheet/relay/pkg/journal"
	"baatcheet/relay/pkg/providers"
	"baatcheet/relay/pkg/routing"
	"baatcheet/relay/pkg/telemetry/health"
	"baatcheet/relay/pkg/telemetry/logging"
	"baatcheet/relay/pkg/telemetry/metrics"
)

// API holds the handlers and their dependencies.
type API struct {
	router    *routing.Router
	manager   *providers.Manager
	storage   journal.Storage
	checker   *health.Checker
	collector *metrics.Collector
	cfg       *config.Config
	version   string
	commit    string
	buildTime string
	logger    *slog.Logger
}

// Options collects the API's optional dependencies and build metadata.
type Options struct {
	// Storage answers the attempt diagnostics endpoint. Nil when the
	// journal is disabled; the endpoint then returns empty results.
	Storage journal.Storage

	// Checker runs the readiness probes. Nil gets a probe-less checker
	// that always reports ready.
	Checker *health.Checker

	// Collector serves the metrics endpoint. Nil leaves it unmounted.
	Collector *metrics.Collector

	// Version, Commit, and BuildTime feed the version endpoint.
	Version   string
	Commit    string
	BuildTime string
}

// New creates the API. Router and manager are required.
func New(cfg *config.Config, router *routing.Router, manager *providers.Manager, opts Options) *API {
	checker := opts.Checker
	if checker == nil {
		checker = health.New(0)
	}

	return &API{
		router:    router,
		manager:   manager,
		storage:   opts.Storage,
		checker:   checker,
		collector: opts.Collector,
		cfg:       cfg,
		version:   opts.Version,
		commit:    opts.Commit,
		buildTime: opts.BuildTime,
		logger:    slog.Default().With("component", "api"),
	}
}

// Handler assembles the route table and the middleware chain. Outermost
// first the chain is recovery, request ID, logging, CORS; the request ID
// runs outside logging so every access line carries it. The per-request
// deadline is applied per route, leaving the streaming route unbounded.
func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()
	timed := middleware.TimeoutMiddleware(a.cfg.Server.RequestTimeout)

	mux.Handle("POST /v1/tasks/{task}", timed(http.HandlerFunc(a.handleExecuteTask)))
	mux.Handle("POST /v1/tasks/{task}/stream", http.HandlerFunc(a.handleStreamTask))

	mux.Handle("GET /v1/diagnostics/providers", timed(http.HandlerFunc(a.handleDiagnosticsProviders)))
	mux.Handle("GET /v1/diagnostics/breakers", timed(http.HandlerFunc(a.handleDiagnosticsBreakers)))
	mux.Handle("GET /v1/diagnostics/summary", timed(http.HandlerFunc(a.handleDiagnosticsSummary)))
	mux.Handle("GET /v1/diagnostics/attempts", timed(http.HandlerFunc(a.handleDiagnosticsAttempts)))

	// An empty admin token disables the endpoints entirely; they are not
	// mounted, so probes cannot tell them apart from unknown paths.
	if a.cfg.Server.AdminToken != "" {
		mux.Handle("POST /v1/admin/breakers/{backend}/open", timed(a.adminOnly(a.handleBreakerOpen)))
		mux.Handle("POST /v1/admin/breakers/{backend}/close", timed(a.adminOnly(a.handleBreakerClose)))
		mux.Handle("POST /v1/admin/pools/{backend}/reset", timed(a.adminOnly(a.handlePoolReset)))
		mux.Handle("POST /v1/admin/pools/reset", timed(a.adminOnly(a.handlePoolResetAll)))
	}

	mux.Handle("GET "+a.cfg.Telemetry.Health.LivenessPath, a.checker.LivenessHandler())
	mux.Handle("GET "+a.cfg.Telemetry.Health.ReadinessPath, a.checker.ReadinessHandler())
	mux.Handle("GET /version", health.VersionHandler(a.version, a.commit, a.buildTime))

	if a.collector != nil {
		mux.Handle("GET "+a.cfg.Telemetry.Metrics.Path, a.collector.Handler())
	}

	mux.HandleFunc("/", a.handleNotFound)

	var handler http.Handler = mux
	handler = middleware.CORSMiddleware(corsConfig(a.cfg.Server.CORS))(handler)
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.RequestIDMiddleware(handler)
	handler = middleware.RecoveryMiddleware(handler)
	return handler
}

// handleNotFound answers unmatched paths with the JSON envelope instead
// of the stdlib text response.
func (a *API) handleNotFound(w http.ResponseWriter, r *http.Request) {
	requestID := logging.GetRequestID(r.Context())
	writeErrorResponse(w, NewErrorResponse(ErrTypeNotFound, "no such endpoint", requestID))
}

// corsConfig converts the file configuration into middleware form.
func corsConfig(cfg config.CORSConfig) middleware.CORSConfig {
	return middleware.CORSConfig{
		Enabled:          cfg.Enabled,
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   cfg.AllowedMethods,
		AllowedHeaders:   cfg.AllowedHeaders,
		ExposedHeaders:   cfg.ExposedHeaders,
		MaxAge:           cfg.MaxAge,
		AllowCredentials: cfg.AllowCredentials,
	}
}
