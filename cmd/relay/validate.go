package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"baatcheet/relay/pkg/cli"
	"baatcheet/relay/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Long: `Validate the configuration file without starting the server.

Checks YAML syntax, field values, back-end names, cron schedules, and
cross-field constraints, and reports every problem found.

Examples:
  # Validate the default config
  relay validate

  # Validate a specific config
  relay validate --config /etc/relay/relay.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		var verr config.ValidationError
		if errors.As(err, &verr) {
			fmt.Fprintf(os.Stderr, "Configuration invalid (%d errors):\n", len(verr.Errors))
			for _, fe := range verr.Errors {
				fmt.Fprintf(os.Stderr, "  ✗ %s: %s\n", fe.Field, fe.Message)
			}
			return cli.NewExitError(1, fmt.Errorf("%d validation errors", len(verr.Errors)))
		}
		return err
	}

	fmt.Printf("✓ Configuration valid: %s\n", configSource())
	fmt.Printf("  Listen address: %s\n", cfg.Server.ListenAddress)
	fmt.Printf("  Back-ends:      %d configured\n", len(cfg.Backends))
	if cfg.Journal.Disabled {
		fmt.Println("  Journal:        disabled")
	} else {
		fmt.Printf("  Journal:        %s\n", journalDescription(cfg))
	}
	return nil
}
