package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1048576 // 1MB

	// CORS defaults
	DefaultCORSEnabled = true
	DefaultCORSMaxAge  = 3600 // 1 hour

	// Back-end defaults
	DefaultDailyLimit     = 1000
	DefaultBackendTimeout = 30 * time.Second

	// Credential defaults
	DefaultCredentialsSource    = "env"
	DefaultPoolFailureThreshold = 5

	// Breaker defaults
	DefaultBreakerFailureThreshold = 5
	DefaultBreakerSuccessThreshold = 2
	DefaultBreakerOpenTimeout      = 30 * time.Second

	// Router defaults
	DefaultAttemptTimeout = 60 * time.Second

	// Journal defaults
	DefaultJournalBackend        = "sqlite"
	DefaultJournalSQLitePath     = "data/journal.db"
	DefaultJournalMaxOpenConns   = 10
	DefaultJournalMaxIdleConns   = 5
	DefaultJournalBusyTimeout    = 5 * time.Second
	DefaultJournalAsyncBuffer    = 1000
	DefaultJournalWriteTimeout   = 5 * time.Second
	DefaultJournalMaxErrorLen    = 500
	DefaultJournalRetentionDays  = 30
	DefaultJournalPruneSchedule  = "0 3 * * *"

	// Reset defaults
	DefaultResetSchedule = "0 0 * * *"

	// Telemetry defaults
	DefaultLoggingLevel       = "info"
	DefaultLoggingFormat      = "json"
	DefaultMetricsPath        = "/metrics"
	DefaultMetricsNamespace   = "baatcheet"
	DefaultMetricsSubsystem   = "relay"
	DefaultLivenessPath       = "/health"
	DefaultReadinessPath      = "/ready"
	DefaultMinHealthyBackends = 1
)

// builtinBackends returns the configuration the nine known back-ends
// ship with: endpoint URLs per task, auth style, and the environment
// variable their keys are numbered under.
func builtinBackends() map[string]BackendConfig {
	return map[string]BackendConfig{
		"groq": {
			Endpoints: map[string]string{
				"chat":   "https://api.groq.com/openai/v1/chat/completions",
				"vision": "https://api.groq.com/openai/v1/chat/completions",
			},
			AuthStyle: "bearer",
			EnvKey:    "GROQ_API_KEY",
		},
		"deepseek": {
			Endpoints: map[string]string{
				"chat": "https://api.deepseek.com/chat/completions",
			},
			AuthStyle: "bearer",
			EnvKey:    "DEEPSEEK_API_KEY",
		},
		"openrouter": {
			Endpoints: map[string]string{
				"chat":   "https://openrouter.ai/api/v1/chat/completions",
				"vision": "https://openrouter.ai/api/v1/chat/completions",
			},
			AuthStyle: "bearer",
			EnvKey:    "OPENROUTER_API_KEY",
		},
		"huggingface": {
			Endpoints: map[string]string{
				"embedding":        "https://api-inference.huggingface.co/models/sentence-transformers/all-MiniLM-L6-v2",
				"tts":              "https://api-inference.huggingface.co/models/espnet/kan-bayashi_ljspeech_vits",
				"image-generation": "https://api-inference.huggingface.co/models/stabilityai/stable-diffusion-xl-base-1.0",
			},
			AuthStyle: "bearer",
			EnvKey:    "HUGGINGFACE_API_KEY",
		},
		"gemini": {
			Endpoints: map[string]string{
				"chat":             "https://generativelanguage.googleapis.com/v1beta/models/gemini-1.5-flash:generateContent",
				"vision":           "https://generativelanguage.googleapis.com/v1beta/models/gemini-1.5-flash:generateContent",
				"ocr":              "https://generativelanguage.googleapis.com/v1beta/models/gemini-1.5-flash:generateContent",
				"embedding":        "https://generativelanguage.googleapis.com/v1beta/models/text-embedding-004:embedContent",
				"image-generation": "https://generativelanguage.googleapis.com/v1beta/models/imagen-3.0-generate-002:predict",
			},
			StreamEndpoint: "https://generativelanguage.googleapis.com/v1beta/models/gemini-1.5-flash:streamGenerateContent?alt=sse",
			AuthStyle:      "query",
			AuthName:       "key",
			EnvKey:         "GEMINI_API_KEY",
		},
		"ocrspace": {
			Endpoints: map[string]string{
				"ocr": "https://api.ocr.space/parse/image",
			},
			AuthStyle: "header",
			AuthName:  "apikey",
			EnvKey:    "OCR_SPACE_API_KEY",
		},
		"brave": {
			Endpoints: map[string]string{
				"search": "https://api.search.brave.com/res/v1/web/search",
			},
			AuthStyle: "header",
			AuthName:  "X-Subscription-Token",
			EnvKey:    "BRAVE_SEARCH_KEY",
		},
		"serpapi": {
			Endpoints: map[string]string{
				"search": "https://serpapi.com/search",
			},
			AuthStyle: "query",
			AuthName:  "api_key",
			EnvKey:    "SERPAPI_KEY",
		},
		"elevenlabs": {
			Endpoints: map[string]string{
				"tts": "https://api.elevenlabs.io/v1/text-to-speech",
			},
			AuthStyle: "header",
			AuthName:  "xi-api-key",
			EnvKey:    "ELEVENLABS_API_KEY",
		},
	}
}

// KnownBackends returns the names of the built-in back-ends.
func KnownBackends() []string {
	builtin := builtinBackends()
	names := make([]string, 0, len(builtin))
	for name := range builtin {
		names = append(names, name)
	}
	return names
}

// ApplyDefaults applies default values to a Config struct. It sets
// defaults for any fields that have zero values and merges the built-in
// back-end catalog under whatever the file configured. This function is
// idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	// WriteTimeout stays zero unless configured: a write deadline would
	// cut off long streamed responses.
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	applyCORSDefaults(cfg)

	// Back-end defaults: built-ins first, configured entries override
	// field by field, then generic defaults fill remaining zeros.
	merged := builtinBackends()
	for name, override := range cfg.Backends {
		merged[name] = mergeBackend(merged[name], override)
	}
	for name, b := range merged {
		if b.DailyLimit == 0 {
			b.DailyLimit = DefaultDailyLimit
		}
		if b.Timeout == 0 {
			b.Timeout = DefaultBackendTimeout
		}
		if b.Burst == 0 {
			b.Burst = b.RequestsPerMinute
		}
		merged[name] = b
	}
	cfg.Backends = merged

	// Credential defaults
	if cfg.Credentials.Source == "" {
		cfg.Credentials.Source = DefaultCredentialsSource
	}
	if cfg.Pool.FailureThreshold == 0 {
		cfg.Pool.FailureThreshold = DefaultPoolFailureThreshold
	}

	// Breaker defaults
	if cfg.Breaker.FailureThreshold == 0 {
		cfg.Breaker.FailureThreshold = DefaultBreakerFailureThreshold
	}
	if cfg.Breaker.SuccessThreshold == 0 {
		cfg.Breaker.SuccessThreshold = DefaultBreakerSuccessThreshold
	}
	if cfg.Breaker.OpenTimeout == 0 {
		cfg.Breaker.OpenTimeout = DefaultBreakerOpenTimeout
	}

	// Router defaults
	if cfg.Router.AttemptTimeout == 0 {
		cfg.Router.AttemptTimeout = DefaultAttemptTimeout
	}

	// Journal defaults
	if cfg.Journal.Backend == "" {
		cfg.Journal.Backend = DefaultJournalBackend
	}
	if cfg.Journal.SQLite.Path == "" {
		cfg.Journal.SQLite.Path = DefaultJournalSQLitePath
	}
	if cfg.Journal.SQLite.MaxOpenConns == 0 {
		cfg.Journal.SQLite.MaxOpenConns = DefaultJournalMaxOpenConns
	}
	if cfg.Journal.SQLite.MaxIdleConns == 0 {
		cfg.Journal.SQLite.MaxIdleConns = DefaultJournalMaxIdleConns
	}
	if !cfg.Journal.SQLite.WALMode {
		cfg.Journal.SQLite.WALMode = true
	}
	if cfg.Journal.SQLite.BusyTimeout == 0 {
		cfg.Journal.SQLite.BusyTimeout = DefaultJournalBusyTimeout
	}
	if cfg.Journal.Recorder.AsyncBuffer == 0 {
		cfg.Journal.Recorder.AsyncBuffer = DefaultJournalAsyncBuffer
	}
	if cfg.Journal.Recorder.WriteTimeout == 0 {
		cfg.Journal.Recorder.WriteTimeout = DefaultJournalWriteTimeout
	}
	if cfg.Journal.Recorder.MaxErrorLength == 0 {
		cfg.Journal.Recorder.MaxErrorLength = DefaultJournalMaxErrorLen
	}
	if cfg.Journal.Retention.Days == 0 {
		cfg.Journal.Retention.Days = DefaultJournalRetentionDays
	}
	if cfg.Journal.Retention.PruneSchedule == "" {
		cfg.Journal.Retention.PruneSchedule = DefaultJournalPruneSchedule
	}

	// Reset schedule default
	if cfg.ResetSchedule == "" {
		cfg.ResetSchedule = DefaultResetSchedule
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Metrics.Subsystem == "" {
		cfg.Telemetry.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	if cfg.Telemetry.Health.LivenessPath == "" {
		cfg.Telemetry.Health.LivenessPath = DefaultLivenessPath
	}
	if cfg.Telemetry.Health.ReadinessPath == "" {
		cfg.Telemetry.Health.ReadinessPath = DefaultReadinessPath
	}
	if cfg.Telemetry.Health.MinHealthyBackends == 0 {
		cfg.Telemetry.Health.MinHealthyBackends = DefaultMinHealthyBackends
	}
}

// mergeBackend overlays override onto base field by field. Endpoint
// entries merge per task so a file can replace a single URL without
// restating the rest.
func mergeBackend(base, override BackendConfig) BackendConfig {
	out := base
	if len(override.Endpoints) > 0 {
		if out.Endpoints == nil {
			out.Endpoints = make(map[string]string, len(override.Endpoints))
		}
		for task, url := range override.Endpoints {
			out.Endpoints[task] = url
		}
	}
	if override.StreamEndpoint != "" {
		out.StreamEndpoint = override.StreamEndpoint
	}
	if override.AuthStyle != "" {
		out.AuthStyle = override.AuthStyle
		out.AuthName = override.AuthName
	} else if override.AuthName != "" {
		out.AuthName = override.AuthName
	}
	if override.EnvKey != "" {
		out.EnvKey = override.EnvKey
	}
	if override.DailyLimit != 0 {
		out.DailyLimit = override.DailyLimit
	}
	if override.RequestsPerMinute != 0 {
		out.RequestsPerMinute = override.RequestsPerMinute
	}
	if override.Burst != 0 {
		out.Burst = override.Burst
	}
	if override.MaxInFlight != 0 {
		out.MaxInFlight = override.MaxInFlight
	}
	if override.Timeout != 0 {
		out.Timeout = override.Timeout
	}
	return out
}

// applyCORSDefaults applies default values to CORS configuration.
func applyCORSDefaults(cfg *Config) {
	cors := &cfg.Server.CORS

	if !cors.Enabled {
		// Only default to enabled when the section is untouched.
		hasAnyConfig := len(cors.AllowedOrigins) > 0 ||
			len(cors.AllowedMethods) > 0 ||
			len(cors.AllowedHeaders) > 0 ||
			len(cors.ExposedHeaders) > 0 ||
			cors.MaxAge > 0

		if !hasAnyConfig {
			cors.Enabled = DefaultCORSEnabled
		}
	}

	if len(cors.AllowedOrigins) == 0 {
		cors.AllowedOrigins = []string{"*"}
	}
	if len(cors.AllowedMethods) == 0 {
		cors.AllowedMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(cors.AllowedHeaders) == 0 {
		cors.AllowedHeaders = []string{"Authorization", "Content-Type", "X-Request-ID"}
	}
	if len(cors.ExposedHeaders) == 0 {
		cors.ExposedHeaders = []string{"X-Request-ID"}
	}
	if cors.MaxAge == 0 {
		cors.MaxAge = DefaultCORSMaxAge
	}
}
