package config

import (
	"fmt"
	"sort"
	"time"
)

// Config is the root configuration structure for the relay. It contains
// all configuration sections for the HTTP server, back-ends, capability
// table, credentials, circuit breakers, routing, the attempt journal,
// and telemetry.
type Config struct {
	// Server contains HTTP server configuration including listen
	// address, timeouts, CORS, TLS, and the admin token.
	Server ServerConfig `yaml:"server"`

	// Backends contains configuration for the inference back-ends.
	// Keys are back-end names (e.g., "groq", "gemini"). The nine known
	// back-ends are present by default; entries here override them.
	Backends map[string]BackendConfig `yaml:"backends"`

	// Capabilities maps task names to the ordered list of back-ends
	// that can serve them. Order is preference order. Empty sections
	// fall back to the built-in table.
	Capabilities map[string][]string `yaml:"capabilities"`

	// Credentials controls where API keys are loaded from.
	Credentials CredentialsConfig `yaml:"credentials"`

	// Pool contains credential pool tuning shared by all back-ends.
	Pool PoolConfig `yaml:"pool"`

	// Breaker contains circuit breaker thresholds shared by all
	// back-ends.
	Breaker BreakerConfig `yaml:"breaker"`

	// Router contains fallback routing tuning.
	Router RouterConfig `yaml:"router"`

	// Journal contains configuration for the attempt journal.
	Journal JournalConfig `yaml:"journal"`

	// ResetSchedule is the cron expression for the daily credential
	// counter reset.
	// Default: "0 0 * * *" (midnight)
	ResetSchedule string `yaml:"reset_schedule"`

	// Telemetry contains logging, metrics, and health configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Format: "host:port" (e.g., "127.0.0.1:8080", "0.0.0.0:8080").
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire
	// request, including the body.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of
	// the response. Zero means no timeout; the default is zero because
	// streamed responses stay open for as long as the back-end keeps
	// producing chunks.
	// Default: 0
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum amount of time to wait for the next
	// request when keep-alives are enabled.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful
	// shutdown before in-flight requests are dropped.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes controls the maximum number of bytes the server
	// will read parsing request headers.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// RequestTimeout bounds each non-streaming request end to end,
	// fallback attempts included, as a context deadline. Streaming
	// routes are exempt; they run for as long as the back-end keeps
	// producing chunks. Zero disables the deadline.
	// Default: 0
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// AdminToken is the bearer token required by the administrative
	// endpoints (breaker force-open/close, pool resets). When empty,
	// the admin endpoints are disabled entirely.
	// Default: "" (admin endpoints disabled)
	AdminToken string `yaml:"admin_token"`

	// CORS contains Cross-Origin Resource Sharing configuration.
	CORS CORSConfig `yaml:"cors"`

	// TLS contains TLS listener configuration.
	TLS TLSConfig `yaml:"tls"`
}

// CORSConfig contains CORS (Cross-Origin Resource Sharing) configuration.
type CORSConfig struct {
	// Enabled controls whether CORS headers are emitted.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// AllowedOrigins is a list of allowed origins for CORS requests.
	// Use ["*"] to allow all origins.
	// Default: ["*"]
	AllowedOrigins []string `yaml:"allowed_origins"`

	// AllowedMethods is a list of allowed HTTP methods.
	// Default: ["GET", "POST", "OPTIONS"]
	AllowedMethods []string `yaml:"allowed_methods"`

	// AllowedHeaders is a list of allowed HTTP headers.
	// Default: ["Authorization", "Content-Type", "X-Request-ID"]
	AllowedHeaders []string `yaml:"allowed_headers"`

	// ExposedHeaders is a list of headers exposed to the client.
	// Default: ["X-Request-ID"]
	ExposedHeaders []string `yaml:"exposed_headers"`

	// MaxAge is the maximum age in seconds for preflight caching.
	// Default: 3600
	MaxAge int `yaml:"max_age"`

	// AllowCredentials controls whether credentials are allowed in
	// CORS requests.
	// Default: false
	AllowCredentials bool `yaml:"allow_credentials"`
}

// TLSConfig contains TLS listener configuration.
type TLSConfig struct {
	// Enabled controls whether the server listens with TLS.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// CertFile is the path to the PEM certificate. Required when
	// Enabled is true.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM private key. Required when
	// Enabled is true.
	KeyFile string `yaml:"key_file"`
}

// BackendConfig contains configuration for a single inference back-end.
type BackendConfig struct {
	// Endpoints maps task names to the URL the payload is POSTed to.
	// The built-in back-ends carry defaults for every task they serve.
	Endpoints map[string]string `yaml:"endpoints"`

	// StreamEndpoint is the URL used for streaming requests. When
	// empty, the task endpoint is used (OpenAI-style APIs stream from
	// the same URL).
	StreamEndpoint string `yaml:"stream_endpoint"`

	// AuthStyle is how the credential is injected into requests.
	// Options: "bearer" (Authorization header), "header" (custom
	// header named by AuthName), "query" (query parameter named by
	// AuthName).
	AuthStyle string `yaml:"auth_style"`

	// AuthName is the header or query parameter name for the "header"
	// and "query" auth styles. Ignored for "bearer".
	AuthName string `yaml:"auth_name"`

	// EnvKey is the base environment variable name for this back-end's
	// credentials. Additional keys use numbered suffixes (EnvKey2,
	// EnvKey3, ...).
	EnvKey string `yaml:"env_key"`

	// DailyLimit is the number of requests each credential may serve
	// per day before it is considered exhausted until the daily reset.
	// Default: 1000
	DailyLimit int `yaml:"daily_limit"`

	// RequestsPerMinute limits the sustained request rate to this
	// back-end across all credentials. Zero means unlimited.
	// Default: 0
	RequestsPerMinute int `yaml:"requests_per_minute"`

	// Burst is the token bucket capacity for the rate limit. Zero
	// falls back to RequestsPerMinute.
	// Default: 0
	Burst int `yaml:"burst"`

	// MaxInFlight caps concurrent requests to this back-end. Zero
	// means unlimited.
	// Default: 0
	MaxInFlight int `yaml:"max_in_flight"`

	// Timeout bounds how long the back-end may take to start
	// responding (response headers received). It does not bound
	// streaming bodies.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout"`
}

// AuthSpec returns the auth style in the combined "style" or
// "style:name" form the executor layer parses.
func (b BackendConfig) AuthSpec() string {
	if b.AuthName == "" {
		return b.AuthStyle
	}
	return fmt.Sprintf("%s:%s", b.AuthStyle, b.AuthName)
}

// CredentialsConfig controls where API keys come from.
type CredentialsConfig struct {
	// Source selects the credential sources.
	// Options: "env" (environment only), "file" (file only), "both"
	// (file overrides environment per back-end).
	// Default: "env"
	Source string `yaml:"source"`

	// File is the path to a YAML credentials file mapping back-end
	// name to a list of keys. Required when Source is "file" or
	// "both".
	File string `yaml:"file"`

	// Watch enables watching the credentials file and rotating pool
	// keys in place when it changes.
	// Default: false
	Watch bool `yaml:"watch"`
}

// PoolConfig contains credential pool tuning.
type PoolConfig struct {
	// FailureThreshold is the number of consecutive errors after which
	// a credential is quarantined until the daily reset.
	// Default: 5
	FailureThreshold int `yaml:"failure_threshold"`
}

// BreakerConfig contains circuit breaker thresholds.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that trip
	// the breaker open.
	// Default: 5
	FailureThreshold int `yaml:"failure_threshold"`

	// SuccessThreshold is the number of consecutive probe successes in
	// the half-open state required to close the breaker.
	// Default: 2
	SuccessThreshold int `yaml:"success_threshold"`

	// OpenTimeout is how long an open breaker rejects requests before
	// admitting a probe.
	// Default: 30s
	OpenTimeout time.Duration `yaml:"open_timeout"`
}

// RouterConfig contains fallback routing tuning.
type RouterConfig struct {
	// AttemptTimeout bounds each non-streaming attempt against a
	// back-end. Streaming attempts are bounded by the request context
	// instead.
	// Default: 60s
	AttemptTimeout time.Duration `yaml:"attempt_timeout"`

	// MaxFallbacks caps how many back-ends a single request may try.
	// Zero means every eligible back-end.
	// Default: 0
	MaxFallbacks int `yaml:"max_fallbacks"`
}

// JournalConfig contains configuration for the attempt journal.
type JournalConfig struct {
	// Disabled turns the journal off entirely. Routing works without
	// it; diagnostics endpoints return empty results.
	// Default: false
	Disabled bool `yaml:"disabled"`

	// Backend selects the journal storage backend.
	// Options: "sqlite", "memory"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite contains SQLite storage configuration.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Recorder contains async recorder configuration.
	Recorder RecorderConfig `yaml:"recorder"`

	// Retention contains journal retention configuration.
	Retention RetentionConfig `yaml:"retention"`
}

// SQLiteConfig contains SQLite storage configuration.
type SQLiteConfig struct {
	// Path is the SQLite database file path.
	// Default: "data/journal.db"
	Path string `yaml:"path"`

	// MaxOpenConns is the maximum number of open database connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle database connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables write-ahead logging.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is how long SQLite waits on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// RecorderConfig contains async journal recorder configuration.
type RecorderConfig struct {
	// AsyncBuffer is the channel buffer size for asynchronous writes.
	// When the buffer is full, records are dropped with a log line
	// rather than blocking the routing path.
	// Default: 1000
	AsyncBuffer int `yaml:"async_buffer"`

	// WriteTimeout bounds each storage write.
	// Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// MaxErrorLength truncates recorded error messages to this many
	// bytes.
	// Default: 500
	MaxErrorLength int `yaml:"max_error_length"`
}

// RetentionConfig contains journal retention configuration.
type RetentionConfig struct {
	// Days is how many days of attempt records to keep.
	// Default: 30
	Days int `yaml:"days"`

	// PruneSchedule is the cron expression for the prune job.
	// Default: "0 3 * * *" (3 AM daily)
	PruneSchedule string `yaml:"prune_schedule"`

	// MaxRecords caps the total number of records, oldest deleted
	// first. Zero means no cap.
	// Default: 0
	MaxRecords int64 `yaml:"max_records"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains Prometheus metrics configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Health contains health endpoint configuration.
	Health HealthConfig `yaml:"health"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes source file and line in log records.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Disabled turns the /metrics endpoint off.
	// Default: false
	Disabled bool `yaml:"disabled"`

	// Path is the metrics endpoint path.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the Prometheus metric namespace.
	// Default: "baatcheet"
	Namespace string `yaml:"namespace"`

	// Subsystem is the Prometheus metric subsystem.
	// Default: "relay"
	Subsystem string `yaml:"subsystem"`
}

// HealthConfig contains health endpoint configuration.
type HealthConfig struct {
	// LivenessPath is the liveness endpoint path.
	// Default: "/health"
	LivenessPath string `yaml:"liveness_path"`

	// ReadinessPath is the readiness endpoint path.
	// Default: "/ready"
	ReadinessPath string `yaml:"readiness_path"`

	// MinHealthyBackends is the number of back-ends that must be
	// active for the readiness check to pass.
	// Default: 1
	MinHealthyBackends int `yaml:"min_healthy_backends"`
}

// BackendNames returns the configured back-end names in sorted order.
func (c *Config) BackendNames() []string {
	names := make([]string, 0, len(c.Backends))
	for name := range c.Backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
