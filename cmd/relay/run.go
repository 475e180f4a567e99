package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"baatcheet/relay/pkg/api"
	"baatcheet/relay/pkg/cli"
	"baatcheet/relay/pkg/config"
	"baatcheet/relay/pkg/journal"
	"baatcheet/relay/pkg/journal/recorder"
	"baatcheet/relay/pkg/journal/retention"
	"baatcheet/relay/pkg/journal/storage"
	"baatcheet/relay/pkg/providers"
	"baatcheet/relay/pkg/routing"
	"baatcheet/relay/pkg/secrets"
	"baatcheet/relay/pkg/server"
	"baatcheet/relay/pkg/telemetry/health"
	"baatcheet/relay/pkg/telemetry/logging"
	"baatcheet/relay/pkg/telemetry/metrics"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the relay server",
	Long: `Start the relay server with the specified configuration.

The server resolves credentials, builds a pool, breaker, and executor per
back-end that holds keys, and serves task requests with fallback routing.

Examples:
  # Start with the default config
  relay run

  # Start with a custom config
  relay run --config /etc/relay/relay.yaml

  # Override the listen address
  relay run --listen 0.0.0.0:8080

  # Validate config and credentials without starting the server
  relay run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config and credentials without starting the server")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Flag overrides
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	if _, err := logging.Init(logging.Config{
		Level:     cfg.Telemetry.Logging.Level,
		Format:    cfg.Telemetry.Logging.Format,
		AddSource: cfg.Telemetry.Logging.AddSource,
	}); err != nil {
		return err
	}

	printBanner(cfg)

	// Credentials and back-end assembly. Keyless back-ends stay
	// configured but unroutable.
	sources, fileSource, err := providers.SecretSources(cfg)
	if err != nil {
		return err
	}
	resolved, err := secrets.NewResolver(nil, sources...).Resolve()
	if err != nil {
		return fmt.Errorf("resolving credentials: %w", err)
	}

	manager, err := providers.Build(cfg, resolved)
	if err != nil {
		return err
	}
	defer manager.Close()

	fmt.Printf("✓ %d of %d configured back-ends hold credentials\n",
		len(manager.Backends()), len(cfg.Backends))

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid, dry run complete")
		return nil
	}

	ctx := cli.SetupSignalHandler()

	if cfg.Credentials.Watch {
		if fileSource == nil {
			slog.Warn("credentials.watch enabled without a credentials file, nothing to watch")
		} else {
			err := fileSource.Watch(func(backend string, keys []string) {
				if err := manager.RotateCredentials(backend, keys); err != nil {
					slog.Warn("rotation for unregistered back-end ignored until restart",
						"backend", backend)
				}
			})
			if err != nil {
				return fmt.Errorf("starting credentials watch: %w", err)
			}
			defer fileSource.Close()
			fmt.Println("✓ Watching credentials file for rotation")
		}
	}

	// Attempt journal: storage, async recorder, retention. The recorder
	// closes before the storage it writes to.
	var store journal.Storage
	var attempts *recorder.Recorder
	if !cfg.Journal.Disabled {
		store, err = buildJournalStorage(cfg)
		if err != nil {
			return fmt.Errorf("opening journal storage: %w", err)
		}
		defer store.Close()

		attempts = recorder.NewRecorder(store, &recorder.Config{
			AsyncBuffer:    cfg.Journal.Recorder.AsyncBuffer,
			WriteTimeout:   cfg.Journal.Recorder.WriteTimeout,
			MaxErrorLength: cfg.Journal.Recorder.MaxErrorLength,
		})
		defer attempts.Close()

		pruner := retention.NewPruner(store, &retention.Config{
			RetentionDays: cfg.Journal.Retention.Days,
			PruneSchedule: cfg.Journal.Retention.PruneSchedule,
			MaxRecords:    cfg.Journal.Retention.MaxRecords,
		})
		if cfg.Journal.Retention.PruneSchedule != "" {
			if err := pruner.Start(ctx); err != nil {
				slog.Warn("failed to start journal retention scheduler", "error", err)
			} else {
				defer pruner.Stop()
			}
		}

		fmt.Printf("✓ Journal: %s\n", journalDescription(cfg))
	}

	resetSched := providers.NewResetScheduler(manager, cfg.ResetSchedule)
	if err := resetSched.Start(ctx); err != nil {
		return fmt.Errorf("starting daily reset scheduler: %w", err)
	}
	defer resetSched.Stop()
	if next := resetSched.NextRun(); next != nil {
		slog.Info("daily credential reset scheduled", "next", next.Format(time.RFC3339))
	}

	var collector *metrics.Collector
	if !cfg.Telemetry.Metrics.Disabled {
		collector = metrics.NewCollector(cfg.Telemetry.Metrics, nil)
		collector.RegisterStateSource(manager)
	}

	checker := health.New(0)
	checker.RegisterCheck("backends", health.BackendsCheck(manager, cfg.Telemetry.Health.MinHealthyBackends))
	if store != nil {
		checker.RegisterCheck("journal", health.StorageCheck(store))
	}

	// The router takes its collaborators as interfaces; leave them nil
	// rather than wrapping nil pointers.
	var rec routing.Recorder
	if attempts != nil {
		rec = attempts
	}
	var obs routing.Observer
	if collector != nil {
		obs = collector
	}
	router := routing.New(manager, cfg.Router, rec, obs)

	a := api.New(cfg, router, manager, api.Options{
		Storage:   store,
		Checker:   checker,
		Collector: collector,
		Version:   Version,
		Commit:    GitCommit,
		BuildTime: BuildDate,
	})
	srv := server.New(cfg.Server, a.Handler())

	fmt.Printf("\n✓ Starting server on %s\n", cfg.Server.ListenAddress)
	fmt.Printf("  Liveness:  http://%s%s\n", cfg.Server.ListenAddress, cfg.Telemetry.Health.LivenessPath)
	fmt.Printf("  Readiness: http://%s%s\n", cfg.Server.ListenAddress, cfg.Telemetry.Health.ReadinessPath)
	if collector != nil {
		fmt.Printf("  Metrics:   http://%s%s\n", cfg.Server.ListenAddress, cfg.Telemetry.Metrics.Path)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}

	fmt.Println("✓ Server stopped")
	return nil
}

func printBanner(cfg *config.Config) {
	fmt.Printf("Relay v%s\n", Version)
	fmt.Printf("Configuration: %s\n", configSource())

	slog.Debug("configuration loaded",
		"backends", len(cfg.Backends),
		"journal_disabled", cfg.Journal.Disabled,
		"metrics_disabled", cfg.Telemetry.Metrics.Disabled,
	)
}

// buildJournalStorage opens the configured journal storage backend.
func buildJournalStorage(cfg *config.Config) (journal.Storage, error) {
	switch cfg.Journal.Backend {
	case "", "sqlite":
		return storage.NewSQLiteStorage(&storage.SQLiteConfig{
			Path:         cfg.Journal.SQLite.Path,
			MaxOpenConns: cfg.Journal.SQLite.MaxOpenConns,
			MaxIdleConns: cfg.Journal.SQLite.MaxIdleConns,
			WALMode:      cfg.Journal.SQLite.WALMode,
			BusyTimeout:  cfg.Journal.SQLite.BusyTimeout,
		})
	case "memory":
		return storage.NewMemoryStorage(), nil
	default:
		return nil, fmt.Errorf("unsupported journal backend: %s", cfg.Journal.Backend)
	}
}

func journalDescription(cfg *config.Config) string {
	if cfg.Journal.Backend == "memory" {
		return "memory (records lost on restart)"
	}
	return fmt.Sprintf("sqlite (%s)", cfg.Journal.SQLite.Path)
}
