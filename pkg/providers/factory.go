package providers

import (
	"fmt"
	"log/slog"
	"sort"

	"baatcheet/relay/pkg/backends"
	"baatcheet/relay/pkg/backends/httpexec"
	"baatcheet/relay/pkg/breaker"
	"baatcheet/relay/pkg/capability"
	"baatcheet/relay/pkg/config"
	"baatcheet/relay/pkg/credentials"
	"baatcheet/relay/pkg/limits/ratelimit"
	"baatcheet/relay/pkg/secrets"
	"baatcheet/relay/pkg/tasks"
)

// SecretSources builds the resolver sources selected by the credentials
// configuration. The returned FileSource is non-nil whenever a file is in
// play, so the caller can start rotation watching on it; it is already
// included in the sources slice.
func SecretSources(cfg *config.Config) ([]secrets.Source, *secrets.FileSource, error) {
	bases := make(map[string]string, len(cfg.Backends))
	for name, bc := range cfg.Backends {
		if bc.EnvKey != "" {
			bases[name] = bc.EnvKey
		}
	}

	switch cfg.Credentials.Source {
	case "", "env":
		return []secrets.Source{secrets.NewEnvSource(bases)}, nil, nil

	case "file":
		if cfg.Credentials.File == "" {
			return nil, nil, fmt.Errorf("credentials.file is required when credentials.source is %q", cfg.Credentials.Source)
		}
		file := secrets.NewFileSource(cfg.Credentials.File)
		return []secrets.Source{file}, file, nil

	case "both":
		if cfg.Credentials.File == "" {
			return nil, nil, fmt.Errorf("credentials.file is required when credentials.source is %q", cfg.Credentials.Source)
		}
		// The file loads after the environment so its keys win for any
		// back-end it names.
		file := secrets.NewFileSource(cfg.Credentials.File)
		return []secrets.Source{secrets.NewEnvSource(bases), file}, file, nil

	default:
		return nil, nil, fmt.Errorf("unknown credentials source %q (want env, file, or both)", cfg.Credentials.Source)
	}
}

// Build assembles a Manager from configuration and resolved secrets. A
// pool, breaker, and executor are created only for back-ends that hold at
// least one secret; keyless back-ends stay configured but unroutable.
func Build(cfg *config.Config, resolved map[string][]string) (*Manager, error) {
	logger := slog.Default().With("component", "providers")

	registry, err := buildRegistry(cfg)
	if err != nil {
		return nil, err
	}

	guard := ratelimit.NewGuard(guardConfigs(cfg))

	names := make([]string, 0, len(resolved))
	for name := range resolved {
		names = append(names, name)
	}
	sort.Strings(names)

	states := make(map[string]*BackendState)
	for _, name := range names {
		keys := resolved[name]
		if len(keys) == 0 {
			continue
		}

		bc, ok := cfg.Backends[name]
		if !ok {
			logger.Warn("credentials for unconfigured back-end ignored", "backend", name)
			continue
		}

		executor, err := buildExecutor(name, bc)
		if err != nil {
			return nil, err
		}

		states[name] = &BackendState{
			Pool: credentials.NewPool(credentials.PoolConfig{
				Backend:          name,
				Secrets:          keys,
				DailyLimit:       bc.DailyLimit,
				FailureThreshold: cfg.Pool.FailureThreshold,
			}),
			Breaker: breaker.New(name, breaker.Config{
				FailureThreshold: cfg.Breaker.FailureThreshold,
				SuccessThreshold: cfg.Breaker.SuccessThreshold,
				OpenTimeout:      cfg.Breaker.OpenTimeout,
			}),
			Executor: executor,
		}

		logger.Info("back-end registered",
			"backend", name,
			"keys", len(keys),
			"daily_limit", bc.DailyLimit,
		)
	}

	if len(states) == 0 {
		logger.Warn("no back-end holds credentials, every request will be rejected until keys arrive")
	}

	return NewManager(registry, guard, states), nil
}

// buildRegistry parses the configured capability table, falling back to
// the built-in table when the configuration leaves it empty.
func buildRegistry(cfg *config.Config) (*capability.Registry, error) {
	if len(cfg.Capabilities) == 0 {
		return capability.Default(), nil
	}

	known := make(map[string]bool, len(cfg.Backends))
	for name := range cfg.Backends {
		known[name] = true
	}

	table := make(map[tasks.Task][]string, len(cfg.Capabilities))
	for taskName, backendNames := range cfg.Capabilities {
		task, err := tasks.Parse(taskName)
		if err != nil {
			return nil, fmt.Errorf("capabilities: %w", err)
		}
		table[task] = backendNames
	}

	return capability.New(table, known)
}

// guardConfigs collects the per-back-end rate limits. Back-ends with no
// limits configured are absent, leaving them unlimited.
func guardConfigs(cfg *config.Config) map[string]ratelimit.Config {
	configs := make(map[string]ratelimit.Config, len(cfg.Backends))
	for name, bc := range cfg.Backends {
		if bc.RequestsPerMinute <= 0 && bc.MaxInFlight <= 0 {
			continue
		}
		configs[name] = ratelimit.Config{
			RequestsPerMinute: bc.RequestsPerMinute,
			Burst:             bc.Burst,
			MaxInFlight:       bc.MaxInFlight,
		}
	}
	return configs
}

// buildExecutor creates the HTTP executor for one back-end.
func buildExecutor(name string, bc config.BackendConfig) (backends.Executor, error) {
	auth, err := httpexec.ParseAuthStyle(bc.AuthSpec())
	if err != nil {
		return nil, fmt.Errorf("back-end %q: %w", name, err)
	}

	endpoints := make(map[tasks.Task]string, len(bc.Endpoints))
	for taskName, url := range bc.Endpoints {
		task, err := tasks.Parse(taskName)
		if err != nil {
			return nil, fmt.Errorf("back-end %q endpoints: %w", name, err)
		}
		endpoints[task] = url
	}

	return httpexec.New(httpexec.Config{
		Name:                  name,
		Endpoints:             endpoints,
		StreamEndpoint:        bc.StreamEndpoint,
		Auth:                  auth,
		ResponseHeaderTimeout: bc.Timeout,
	}), nil
}
