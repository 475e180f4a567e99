package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified
// path. It applies default values, validates the configuration, and
// returns any errors. Environment variables are not consulted; use
// LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// DefaultConfig returns a configuration with every default applied and
// no file involved. Used when the relay runs without a config file.
func DefaultConfig() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	return &cfg
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and
// applies environment variable overrides. Variables follow the naming
// convention RELAY_SECTION_FIELD (e.g., RELAY_SERVER_LISTEN_ADDRESS)
// and always take precedence over file-based configuration.
//
// The loading sequence is:
//  1. Load YAML from file
//  2. Apply default values
//  3. Apply environment variable overrides
//  4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// DefaultConfigWithEnvOverrides returns the default configuration with
// environment variable overrides applied, for running the relay without
// a configuration file.
func DefaultConfigWithEnvOverrides() (*Config, error) {
	cfg := DefaultConfig()
	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the
// configuration. Variables use the format RELAY_SECTION_FIELD.
func applyEnvOverrides(cfg *Config) {
	// Server overrides
	if val := os.Getenv("RELAY_SERVER_LISTEN_ADDRESS"); val != "" {
		cfg.Server.ListenAddress = val
	}
	if val := os.Getenv("RELAY_SERVER_READ_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if val := os.Getenv("RELAY_SERVER_WRITE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}
	if val := os.Getenv("RELAY_SERVER_IDLE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.IdleTimeout = d
		}
	}
	if val := os.Getenv("RELAY_SERVER_SHUTDOWN_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.ShutdownTimeout = d
		}
	}
	if val := os.Getenv("RELAY_SERVER_REQUEST_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.RequestTimeout = d
		}
	}
	if val := os.Getenv("RELAY_SERVER_ADMIN_TOKEN"); val != "" {
		cfg.Server.AdminToken = val
	}
	if val := os.Getenv("RELAY_SERVER_TLS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Server.TLS.Enabled = b
		}
	}
	if val := os.Getenv("RELAY_SERVER_TLS_CERT_FILE"); val != "" {
		cfg.Server.TLS.CertFile = val
	}
	if val := os.Getenv("RELAY_SERVER_TLS_KEY_FILE"); val != "" {
		cfg.Server.TLS.KeyFile = val
	}

	// Back-end overrides for the known back-ends
	for _, name := range KnownBackends() {
		applyBackendEnvOverrides(cfg, name)
	}

	// Credential overrides
	if val := os.Getenv("RELAY_CREDENTIALS_SOURCE"); val != "" {
		cfg.Credentials.Source = val
	}
	if val := os.Getenv("RELAY_CREDENTIALS_FILE"); val != "" {
		cfg.Credentials.File = val
	}
	if val := os.Getenv("RELAY_CREDENTIALS_WATCH"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Credentials.Watch = b
		}
	}
	if val := os.Getenv("RELAY_POOL_FAILURE_THRESHOLD"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Pool.FailureThreshold = i
		}
	}

	// Breaker overrides
	if val := os.Getenv("RELAY_BREAKER_FAILURE_THRESHOLD"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Breaker.FailureThreshold = i
		}
	}
	if val := os.Getenv("RELAY_BREAKER_SUCCESS_THRESHOLD"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Breaker.SuccessThreshold = i
		}
	}
	if val := os.Getenv("RELAY_BREAKER_OPEN_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Breaker.OpenTimeout = d
		}
	}

	// Router overrides
	if val := os.Getenv("RELAY_ROUTER_ATTEMPT_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Router.AttemptTimeout = d
		}
	}
	if val := os.Getenv("RELAY_ROUTER_MAX_FALLBACKS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Router.MaxFallbacks = i
		}
	}

	// Journal overrides
	if val := os.Getenv("RELAY_JOURNAL_DISABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Journal.Disabled = b
		}
	}
	if val := os.Getenv("RELAY_JOURNAL_BACKEND"); val != "" {
		cfg.Journal.Backend = val
	}
	if val := os.Getenv("RELAY_JOURNAL_SQLITE_PATH"); val != "" {
		cfg.Journal.SQLite.Path = val
	}
	if val := os.Getenv("RELAY_JOURNAL_RETENTION_DAYS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Journal.Retention.Days = i
		}
	}

	// Reset schedule override
	if val := os.Getenv("RELAY_RESET_SCHEDULE"); val != "" {
		cfg.ResetSchedule = val
	}

	// Telemetry overrides
	if val := os.Getenv("RELAY_TELEMETRY_LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("RELAY_TELEMETRY_LOGGING_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := os.Getenv("RELAY_TELEMETRY_METRICS_DISABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Disabled = b
		}
	}
	if val := os.Getenv("RELAY_TELEMETRY_METRICS_PATH"); val != "" {
		cfg.Telemetry.Metrics.Path = val
	}
}

// applyBackendEnvOverrides applies environment variable overrides for a
// specific back-end. Back-end variables follow the format
// RELAY_BACKENDS_<NAME>_<FIELD> where NAME is the uppercase back-end
// name.
func applyBackendEnvOverrides(cfg *Config, name string) {
	if cfg.Backends == nil {
		cfg.Backends = make(map[string]BackendConfig)
	}

	backend := cfg.Backends[name]
	prefix := fmt.Sprintf("RELAY_BACKENDS_%s_", strings.ToUpper(name))
	modified := false

	if val := os.Getenv(prefix + "ENV_KEY"); val != "" {
		backend.EnvKey = val
		modified = true
	}
	if val := os.Getenv(prefix + "DAILY_LIMIT"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			backend.DailyLimit = i
			modified = true
		}
	}
	if val := os.Getenv(prefix + "REQUESTS_PER_MINUTE"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			backend.RequestsPerMinute = i
			modified = true
		}
	}
	if val := os.Getenv(prefix + "MAX_IN_FLIGHT"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			backend.MaxInFlight = i
			modified = true
		}
	}
	if val := os.Getenv(prefix + "TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			backend.Timeout = d
			modified = true
		}
	}

	if modified {
		cfg.Backends[name] = backend
	}
}
