package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"

	"baatcheet/relay/pkg/tasks"
)

// FieldError represents a validation error for a specific configuration
// field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g.,
	// "server.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a
// configuration. It implements the error interface and provides access
// to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a
// ValidationError if any validation rules fail. All validation errors
// are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateBackends(cfg.Backends)...)
	errs = append(errs, validateCapabilities(cfg.Capabilities, cfg.Backends)...)
	errs = append(errs, validateCredentials(&cfg.Credentials)...)
	errs = append(errs, validatePool(&cfg.Pool)...)
	errs = append(errs, validateBreaker(&cfg.Breaker)...)
	errs = append(errs, validateRouter(&cfg.Router)...)
	errs = append(errs, validateJournal(&cfg.Journal)...)
	errs = append(errs, validateSchedule("reset_schedule", cfg.ResetSchedule)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

// validateServer validates server configuration.
func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: "listen address is required",
		})
	}
	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.read_timeout",
			Message: "read timeout must be non-negative",
		})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.write_timeout",
			Message: "write timeout must be non-negative",
		})
	}
	if cfg.IdleTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.idle_timeout",
			Message: "idle timeout must be non-negative",
		})
	}
	if cfg.MaxHeaderBytes < 0 {
		errs = append(errs, FieldError{
			Field:   "server.max_header_bytes",
			Message: "max header bytes must be non-negative",
		})
	}
	if cfg.RequestTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.request_timeout",
			Message: "request timeout must be non-negative",
		})
	}
	if cfg.MaxHeaderBytes > 10*1024*1024 {
		errs = append(errs, FieldError{
			Field:   "server.max_header_bytes",
			Message: "max header bytes exceeds reasonable limit (10MB)",
		})
	}
	if cfg.TLS.Enabled {
		if cfg.TLS.CertFile == "" {
			errs = append(errs, FieldError{
				Field:   "server.tls.cert_file",
				Message: "certificate file is required when TLS is enabled",
			})
		}
		if cfg.TLS.KeyFile == "" {
			errs = append(errs, FieldError{
				Field:   "server.tls.key_file",
				Message: "key file is required when TLS is enabled",
			})
		}
	}
	if cfg.CORS.MaxAge < 0 {
		errs = append(errs, FieldError{
			Field:   "server.cors.max_age",
			Message: "max age must be non-negative",
		})
	}

	return errs
}

// validateBackends validates back-end configurations.
func validateBackends(backends map[string]BackendConfig) []FieldError {
	var errs []FieldError

	if len(backends) == 0 {
		errs = append(errs, FieldError{
			Field:   "backends",
			Message: "at least one back-end must be configured",
		})
		return errs
	}

	for name, backend := range backends {
		prefix := fmt.Sprintf("backends.%s", name)

		if len(backend.Endpoints) == 0 {
			errs = append(errs, FieldError{
				Field:   prefix + ".endpoints",
				Message: "at least one task endpoint is required",
			})
		}
		for task, endpoint := range backend.Endpoints {
			if _, err := tasks.Parse(task); err != nil {
				errs = append(errs, FieldError{
					Field:   fmt.Sprintf("%s.endpoints.%s", prefix, task),
					Message: fmt.Sprintf("unknown task %q", task),
				})
			}
			errs = append(errs, validateURL(fmt.Sprintf("%s.endpoints.%s", prefix, task), endpoint)...)
		}
		if backend.StreamEndpoint != "" {
			errs = append(errs, validateURL(prefix+".stream_endpoint", backend.StreamEndpoint)...)
		}

		switch backend.AuthStyle {
		case "bearer":
		case "header", "query":
			if backend.AuthName == "" {
				errs = append(errs, FieldError{
					Field:   prefix + ".auth_name",
					Message: fmt.Sprintf("auth name is required for the %q auth style", backend.AuthStyle),
				})
			}
		case "":
			errs = append(errs, FieldError{
				Field:   prefix + ".auth_style",
				Message: "auth style is required",
			})
		default:
			errs = append(errs, FieldError{
				Field:   prefix + ".auth_style",
				Message: fmt.Sprintf("unknown auth style %q (must be bearer, header, or query)", backend.AuthStyle),
			})
		}

		if backend.DailyLimit < 0 {
			errs = append(errs, FieldError{
				Field:   prefix + ".daily_limit",
				Message: "daily limit must be non-negative",
			})
		}
		if backend.RequestsPerMinute < 0 {
			errs = append(errs, FieldError{
				Field:   prefix + ".requests_per_minute",
				Message: "requests per minute must be non-negative",
			})
		}
		if backend.Burst < 0 {
			errs = append(errs, FieldError{
				Field:   prefix + ".burst",
				Message: "burst must be non-negative",
			})
		}
		if backend.MaxInFlight < 0 {
			errs = append(errs, FieldError{
				Field:   prefix + ".max_in_flight",
				Message: "max in flight must be non-negative",
			})
		}
		if backend.Timeout < 0 {
			errs = append(errs, FieldError{
				Field:   prefix + ".timeout",
				Message: "timeout must be non-negative",
			})
		}
	}

	return errs
}

// validateURL checks that a value parses as an absolute http or https
// URL.
func validateURL(field, value string) []FieldError {
	if value == "" {
		return []FieldError{{Field: field, Message: "URL is required"}}
	}
	parsed, err := url.Parse(value)
	if err != nil {
		return []FieldError{{Field: field, Message: fmt.Sprintf("invalid URL: %v", err)}}
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return []FieldError{{Field: field, Message: "URL scheme must be http or https"}}
	}
	if parsed.Host == "" {
		return []FieldError{{Field: field, Message: "URL host is required"}}
	}
	return nil
}

// validateCapabilities validates the task capability table against the
// configured back-ends.
func validateCapabilities(capabilities map[string][]string, backends map[string]BackendConfig) []FieldError {
	var errs []FieldError

	for task, names := range capabilities {
		if _, err := tasks.Parse(task); err != nil {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("capabilities.%s", task),
				Message: fmt.Sprintf("unknown task %q", task),
			})
			continue
		}
		if len(names) == 0 {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("capabilities.%s", task),
				Message: "at least one back-end is required",
			})
			continue
		}
		seen := make(map[string]bool, len(names))
		for i, name := range names {
			field := fmt.Sprintf("capabilities.%s[%d]", task, i)
			if name == "" {
				errs = append(errs, FieldError{Field: field, Message: "back-end name is empty"})
				continue
			}
			if seen[name] {
				errs = append(errs, FieldError{
					Field:   field,
					Message: fmt.Sprintf("back-end %q is listed twice", name),
				})
				continue
			}
			seen[name] = true
			if _, ok := backends[name]; !ok {
				errs = append(errs, FieldError{
					Field:   field,
					Message: fmt.Sprintf("back-end %q is not configured", name),
				})
			}
		}
	}

	return errs
}

// validateCredentials validates the credential source configuration.
func validateCredentials(cfg *CredentialsConfig) []FieldError {
	var errs []FieldError

	switch cfg.Source {
	case "env", "file", "both":
	case "":
		errs = append(errs, FieldError{
			Field:   "credentials.source",
			Message: "source is required",
		})
	default:
		errs = append(errs, FieldError{
			Field:   "credentials.source",
			Message: fmt.Sprintf("unknown source %q (must be env, file, or both)", cfg.Source),
		})
	}

	if (cfg.Source == "file" || cfg.Source == "both") && cfg.File == "" {
		errs = append(errs, FieldError{
			Field:   "credentials.file",
			Message: fmt.Sprintf("file path is required when source is %q", cfg.Source),
		})
	}
	if cfg.Watch && cfg.File == "" {
		errs = append(errs, FieldError{
			Field:   "credentials.watch",
			Message: "watch requires a credentials file",
		})
	}

	return errs
}

// validatePool validates credential pool tuning.
func validatePool(cfg *PoolConfig) []FieldError {
	var errs []FieldError

	if cfg.FailureThreshold < 1 {
		errs = append(errs, FieldError{
			Field:   "pool.failure_threshold",
			Message: "failure threshold must be at least 1",
		})
	}

	return errs
}

// validateBreaker validates circuit breaker thresholds.
func validateBreaker(cfg *BreakerConfig) []FieldError {
	var errs []FieldError

	if cfg.FailureThreshold < 1 {
		errs = append(errs, FieldError{
			Field:   "breaker.failure_threshold",
			Message: "failure threshold must be at least 1",
		})
	}
	if cfg.SuccessThreshold < 1 {
		errs = append(errs, FieldError{
			Field:   "breaker.success_threshold",
			Message: "success threshold must be at least 1",
		})
	}
	if cfg.OpenTimeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "breaker.open_timeout",
			Message: "open timeout must be positive",
		})
	}

	return errs
}

// validateRouter validates routing tuning.
func validateRouter(cfg *RouterConfig) []FieldError {
	var errs []FieldError

	if cfg.AttemptTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "router.attempt_timeout",
			Message: "attempt timeout must be non-negative",
		})
	}
	if cfg.MaxFallbacks < 0 {
		errs = append(errs, FieldError{
			Field:   "router.max_fallbacks",
			Message: "max fallbacks must be non-negative",
		})
	}

	return errs
}

// validateJournal validates journal configuration.
func validateJournal(cfg *JournalConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "sqlite", "memory":
	case "":
		errs = append(errs, FieldError{
			Field:   "journal.backend",
			Message: "backend is required",
		})
	default:
		errs = append(errs, FieldError{
			Field:   "journal.backend",
			Message: fmt.Sprintf("unknown backend %q (must be sqlite or memory)", cfg.Backend),
		})
	}

	if cfg.Backend == "sqlite" {
		if cfg.SQLite.Path == "" {
			errs = append(errs, FieldError{
				Field:   "journal.sqlite.path",
				Message: "path is required for the sqlite backend",
			})
		}
		if cfg.SQLite.MaxOpenConns < 1 {
			errs = append(errs, FieldError{
				Field:   "journal.sqlite.max_open_conns",
				Message: "max open connections must be at least 1",
			})
		}
		if cfg.SQLite.MaxIdleConns < 0 {
			errs = append(errs, FieldError{
				Field:   "journal.sqlite.max_idle_conns",
				Message: "max idle connections must be non-negative",
			})
		}
		if cfg.SQLite.BusyTimeout < 0 {
			errs = append(errs, FieldError{
				Field:   "journal.sqlite.busy_timeout",
				Message: "busy timeout must be non-negative",
			})
		}
	}

	if cfg.Recorder.AsyncBuffer < 1 {
		errs = append(errs, FieldError{
			Field:   "journal.recorder.async_buffer",
			Message: "async buffer must be at least 1",
		})
	}
	if cfg.Recorder.WriteTimeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "journal.recorder.write_timeout",
			Message: "write timeout must be positive",
		})
	}
	if cfg.Recorder.MaxErrorLength < 1 {
		errs = append(errs, FieldError{
			Field:   "journal.recorder.max_error_length",
			Message: "max error length must be at least 1",
		})
	}

	if cfg.Retention.Days < 0 {
		errs = append(errs, FieldError{
			Field:   "journal.retention.days",
			Message: "retention days must be non-negative",
		})
	}
	if cfg.Retention.MaxRecords < 0 {
		errs = append(errs, FieldError{
			Field:   "journal.retention.max_records",
			Message: "max records must be non-negative",
		})
	}
	errs = append(errs, validateSchedule("journal.retention.prune_schedule", cfg.Retention.PruneSchedule)...)

	return errs
}

// validateSchedule checks that a value parses as a standard cron
// expression.
func validateSchedule(field, value string) []FieldError {
	if value == "" {
		return []FieldError{{Field: field, Message: "cron expression is required"}}
	}
	if _, err := cron.ParseStandard(value); err != nil {
		return []FieldError{{
			Field:   field,
			Message: fmt.Sprintf("invalid cron expression: %v", err),
		}}
	}
	return nil
}

// validateTelemetry validates telemetry configuration.
func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("unknown level %q (must be debug, info, warn, or error)", cfg.Logging.Level),
		})
	}
	switch cfg.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("unknown format %q (must be json or text)", cfg.Logging.Format),
		})
	}

	if !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: "path must start with /",
		})
	}
	if !strings.HasPrefix(cfg.Health.LivenessPath, "/") {
		errs = append(errs, FieldError{
			Field:   "telemetry.health.liveness_path",
			Message: "path must start with /",
		})
	}
	if !strings.HasPrefix(cfg.Health.ReadinessPath, "/") {
		errs = append(errs, FieldError{
			Field:   "telemetry.health.readiness_path",
			Message: "path must start with /",
		})
	}
	if cfg.Health.MinHealthyBackends < 0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.health.min_healthy_backends",
			Message: "min healthy backends must be non-negative",
		})
	}

	return errs
}
