package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"baatcheet/relay/pkg/cli"
	"baatcheet/relay/pkg/config"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "relay",
	Short: "Relay - resilience layer for third-party inference back-ends",
	Long: `Relay sits between an application and interchangeable inference
back-ends and keeps requests flowing when individual providers degrade.

Per request it decides which back-end and which credential serve each
attempt, providing:
  - Credential pools with daily capacity tracking and rotation
  - Per-back-end circuit breakers with automatic recovery probes
  - Capability-based routing with ordered fallback across back-ends
  - An attempt journal for after-the-fact routing diagnostics`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Errors print once and map to the exit
// status carried by the command's error chain.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "relay.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (forces debug logging)")
}

// loadConfig loads the configuration every subcommand starts from. A
// missing file at the default path is not an error: the relay runs on
// built-in defaults plus environment overrides, so an env-only setup
// needs no file at all. An explicit --config that does not exist fails.
func loadConfig() (*config.Config, error) {
	if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
		if rootCmd.PersistentFlags().Changed("config") {
			return nil, fmt.Errorf("config file %q does not exist", cfgFile)
		}
		return config.DefaultConfigWithEnvOverrides()
	}
	return config.LoadConfigWithEnvOverrides(cfgFile)
}

// configSource describes where the active configuration came from, for
// banners and validate output.
func configSource() string {
	if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
		return "built-in defaults + environment"
	}
	return cfgFile
}
