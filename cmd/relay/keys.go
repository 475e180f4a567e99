package main

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"baatcheet/relay/pkg/cli"
	"baatcheet/relay/pkg/config"
	"baatcheet/relay/pkg/credentials"
	"baatcheet/relay/pkg/providers"
	"baatcheet/relay/pkg/secrets"
)

var keysFlags struct {
	output string
}

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Inspect resolved credentials",
	Long: `Inspect the credentials the server would resolve at startup.

Credentials come from RELAY_CREDENTIALS_* environment variables, the
configured credentials file, or both. Secrets are never printed; keys
are identified by fingerprint only.`,
}

var keysListCmd = &cobra.Command{
	Use:   "list",
	Short: "List resolved keys per back-end",
	Long: `List every resolved key with its fingerprint and daily limit.

Examples:
  # List keys from the default config
  relay keys list

  # JSON output
  relay keys list --output json`,
	RunE: runKeysList,
}

var keysCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check credential formats per back-end",
	Long: `Check that resolved credentials match each back-end's key format.

Exits 1 when any credential is malformed and 2 when no back-end holds
credentials at all.

Examples:
  relay keys check
  relay keys check --config /etc/relay/relay.yaml`,
	RunE: runKeysCheck,
}

func init() {
	rootCmd.AddCommand(keysCmd)
	keysCmd.AddCommand(keysListCmd)
	keysCmd.AddCommand(keysCheckCmd)

	keysCmd.PersistentFlags().StringVarP(&keysFlags.output, "output", "o", "table", "output format: table, json")
}

// resolveSecrets loads credentials the same way the server does at
// startup, format validation included.
func resolveSecrets(cfg *config.Config) (map[string][]string, error) {
	sources, _, err := providers.SecretSources(cfg)
	if err != nil {
		return nil, err
	}
	return secrets.NewResolver(nil, sources...).Resolve()
}

type keyRow struct {
	Backend     string `json:"backend"`
	Index       int    `json:"index"`
	Fingerprint string `json:"fingerprint"`
	DailyLimit  int    `json:"daily_limit"`
}

func runKeysList(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(keysFlags.output)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	resolved, err := resolveSecrets(cfg)
	if err != nil {
		return cli.NewCommandError("keys list", err)
	}

	var rows []keyRow
	for backend, keys := range resolved {
		limit := 0
		if bc, ok := cfg.Backends[backend]; ok {
			limit = bc.DailyLimit
		}
		for i, key := range keys {
			rows = append(rows, keyRow{
				Backend:     backend,
				Index:       i,
				Fingerprint: credentials.Fingerprint(key),
				DailyLimit:  limit,
			})
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Backend != rows[j].Backend {
			return rows[i].Backend < rows[j].Backend
		}
		return rows[i].Index < rows[j].Index
	})

	if format == cli.FormatJSON {
		return cli.WriteJSON(os.Stdout, rows)
	}

	if len(rows) == 0 {
		fmt.Println("No credentials resolved.")
		return nil
	}

	table := &cli.Table{Headers: []string{"BACKEND", "KEY", "FINGERPRINT", "DAILY LIMIT"}}
	for _, row := range rows {
		table.AddRow(row.Backend, strconv.Itoa(row.Index), row.Fingerprint, strconv.Itoa(row.DailyLimit))
	}
	return table.Render(os.Stdout)
}

type checkRow struct {
	Backend string `json:"backend"`
	Keys    int    `json:"keys"`
	Status  string `json:"status"`
}

func runKeysCheck(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(keysFlags.output)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	resolved, err := resolveSecrets(cfg)
	if err != nil {
		var verr secrets.ValidationError
		if errors.As(err, &verr) {
			fmt.Fprintf(os.Stderr, "Credential check failed (%d errors):\n", len(verr.Errors))
			for _, fe := range verr.Errors {
				fmt.Fprintf(os.Stderr, "  ✗ %s: %s\n", fe.Field, fe.Message)
			}
			return cli.NewExitError(1, fmt.Errorf("%d malformed credentials", len(verr.Errors)))
		}
		return cli.NewCommandError("keys check", err)
	}

	var rows []checkRow
	usable := 0
	backendsWithKeys := 0
	for _, name := range cfg.BackendNames() {
		keys := len(resolved[name])
		usable += keys
		status := "ok"
		if keys == 0 {
			status = "no credentials"
		} else {
			backendsWithKeys++
		}
		rows = append(rows, checkRow{Backend: name, Keys: keys, Status: status})
	}
	// Credentials for back-ends missing from the config resolve fine
	// but the server will ignore them.
	var extras []string
	for backend := range resolved {
		if _, ok := cfg.Backends[backend]; !ok {
			extras = append(extras, backend)
		}
	}
	sort.Strings(extras)
	for _, backend := range extras {
		rows = append(rows, checkRow{Backend: backend, Keys: len(resolved[backend]), Status: "not configured"})
	}

	if format == cli.FormatJSON {
		if err := cli.WriteJSON(os.Stdout, rows); err != nil {
			return err
		}
	} else {
		table := &cli.Table{Headers: []string{"BACKEND", "KEYS", "STATUS"}}
		for _, row := range rows {
			table.AddRow(row.Backend, strconv.Itoa(row.Keys), row.Status)
		}
		if err := table.Render(os.Stdout); err != nil {
			return err
		}
	}

	if usable == 0 {
		return cli.NewExitError(2, errors.New("no back-end holds credentials"))
	}
	fmt.Printf("\n✓ %d keys across %d back-ends\n", usable, backendsWithKeys)
	return nil
}
