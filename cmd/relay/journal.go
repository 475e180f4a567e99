package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"baatcheet/relay/pkg/cli"
	"baatcheet/relay/pkg/config"
	"baatcheet/relay/pkg/journal"
	"baatcheet/relay/pkg/journal/retention"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query and prune the attempt journal",
	Long: `Query and prune the attempt journal directly.

These commands open the journal database themselves; the server does not
need to be running. They require the sqlite journal backend.`,
}

var journalListFlags struct {
	task      string
	backend   string
	outcome   string
	requestID string
	since     string
	until     string
	limit     int
	offset    int
	output    string
}

var journalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded attempts",
	Long: `List recorded attempts, newest first.

Examples:
  # The last 100 attempts
  relay journal list

  # Failed chat attempts against groq in a time window
  relay journal list --task chat --backend groq --outcome auth \
    --since 2026-08-01T00:00:00Z --until 2026-08-02T00:00:00Z

  # Every attempt for one request
  relay journal list --request-id 9f1b2c3d`,
	RunE: runJournalList,
}

var journalPruneFlags struct {
	days       int
	maxRecords int64
}

var journalPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old journal records",
	Long: `Delete journal records past the retention window.

Uses the retention settings from the configuration unless overridden by
flags.

Examples:
  # Prune with the configured retention
  relay journal prune

  # Keep only the last 7 days
  relay journal prune --days 7

  # Cap the journal at 100000 records
  relay journal prune --max-records 100000`,
	RunE: runJournalPrune,
}

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalListCmd)
	journalCmd.AddCommand(journalPruneCmd)

	journalListCmd.Flags().StringVar(&journalListFlags.task, "task", "", "filter by task")
	journalListCmd.Flags().StringVar(&journalListFlags.backend, "backend", "", "filter by back-end")
	journalListCmd.Flags().StringVar(&journalListFlags.outcome, "outcome", "", "filter by outcome")
	journalListCmd.Flags().StringVar(&journalListFlags.requestID, "request-id", "", "filter by request ID")
	journalListCmd.Flags().StringVar(&journalListFlags.since, "since", "", "records started at or after this RFC 3339 time")
	journalListCmd.Flags().StringVar(&journalListFlags.until, "until", "", "records started before this RFC 3339 time")
	journalListCmd.Flags().IntVar(&journalListFlags.limit, "limit", 0, "maximum records to return")
	journalListCmd.Flags().IntVar(&journalListFlags.offset, "offset", 0, "records to skip")
	journalListCmd.Flags().StringVarP(&journalListFlags.output, "output", "o", "table", "output format: table, json")

	journalPruneCmd.Flags().IntVar(&journalPruneFlags.days, "days", 0, "override retention window in days")
	journalPruneCmd.Flags().Int64Var(&journalPruneFlags.maxRecords, "max-records", 0, "override maximum record count")
}

// openQueryStorage opens the journal for out-of-process access. Only the
// sqlite backend can be read from outside the server.
func openQueryStorage(cfg *config.Config) (journal.Storage, error) {
	if cfg.Journal.Disabled {
		return nil, errors.New("journal is disabled in the configuration")
	}
	if cfg.Journal.Backend == "memory" {
		return nil, errors.New("the memory journal lives inside the server process and cannot be queried here")
	}
	return buildJournalStorage(cfg)
}

type recordView struct {
	ID                    string    `json:"id"`
	RequestID             string    `json:"request_id"`
	Task                  string    `json:"task"`
	Backend               string    `json:"backend"`
	CredentialIndex       int       `json:"credential_index"`
	CredentialFingerprint string    `json:"credential_fingerprint,omitempty"`
	Outcome               string    `json:"outcome"`
	Error                 string    `json:"error,omitempty"`
	StartedAt             time.Time `json:"started_at"`
	LatencyMS             int64     `json:"latency_ms"`
	Streamed              bool      `json:"streamed"`
	FallbackDepth         int       `json:"fallback_depth"`
}

func runJournalList(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(journalListFlags.output)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openQueryStorage(cfg)
	if err != nil {
		return cli.NewCommandError("journal list", err)
	}
	defer store.Close()

	query := &journal.Query{
		RequestID: journalListFlags.requestID,
		Task:      journalListFlags.task,
		Backend:   journalListFlags.backend,
		Outcome:   journal.Outcome(journalListFlags.outcome),
		Limit:     journalListFlags.limit,
		Offset:    journalListFlags.offset,
	}
	if journalListFlags.since != "" {
		t, err := time.Parse(time.RFC3339, journalListFlags.since)
		if err != nil {
			return fmt.Errorf("invalid --since: %w", err)
		}
		query.Since = &t
	}
	if journalListFlags.until != "" {
		t, err := time.Parse(time.RFC3339, journalListFlags.until)
		if err != nil {
			return fmt.Errorf("invalid --until: %w", err)
		}
		query.Until = &t
	}
	if err := query.Validate(); err != nil {
		return err
	}
	query.ApplyDefaults()

	ctx := context.Background()
	records, err := store.Query(ctx, query)
	if err != nil {
		return cli.NewCommandError("journal list", err)
	}
	total, err := store.Count(ctx, query)
	if err != nil {
		return cli.NewCommandError("journal list", err)
	}

	if format == cli.FormatJSON {
		views := make([]recordView, 0, len(records))
		for _, r := range records {
			views = append(views, recordView{
				ID:                    r.ID,
				RequestID:             r.RequestID,
				Task:                  r.Task,
				Backend:               r.Backend,
				CredentialIndex:       r.CredentialIndex,
				CredentialFingerprint: r.CredentialFingerprint,
				Outcome:               string(r.Outcome),
				Error:                 r.Error,
				StartedAt:             r.StartedAt,
				LatencyMS:             r.Latency.Milliseconds(),
				Streamed:              r.Streamed,
				FallbackDepth:         r.FallbackDepth,
			})
		}
		return cli.WriteJSON(os.Stdout, views)
	}

	if len(records) == 0 {
		fmt.Println("No records found.")
		return nil
	}

	table := &cli.Table{Headers: []string{"STARTED", "REQUEST", "TASK", "BACKEND", "OUTCOME", "LATENCY", "DEPTH"}}
	for _, r := range records {
		table.AddRow(
			r.StartedAt.Format(time.RFC3339),
			r.RequestID,
			r.Task,
			r.Backend,
			string(r.Outcome),
			r.Latency.Round(time.Millisecond).String(),
			strconv.Itoa(r.FallbackDepth),
		)
	}
	if err := table.Render(os.Stdout); err != nil {
		return err
	}
	fmt.Printf("\nShowing %d of %d records\n", len(records), total)
	return nil
}

func runJournalPrune(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openQueryStorage(cfg)
	if err != nil {
		return cli.NewCommandError("journal prune", err)
	}
	defer store.Close()

	retCfg := &retention.Config{
		RetentionDays: cfg.Journal.Retention.Days,
		PruneSchedule: cfg.Journal.Retention.PruneSchedule,
		MaxRecords:    cfg.Journal.Retention.MaxRecords,
	}
	if cmd.Flags().Changed("days") {
		retCfg.RetentionDays = journalPruneFlags.days
	}
	if cmd.Flags().Changed("max-records") {
		retCfg.MaxRecords = journalPruneFlags.maxRecords
	}

	pruned, err := retention.NewPruner(store, retCfg).Prune(context.Background())
	if err != nil {
		return cli.NewCommandError("journal prune", err)
	}
	fmt.Printf("✓ Pruned %d records\n", pruned)
	return nil
}
