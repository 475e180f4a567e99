package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"baatcheet/relay/pkg/journal"
	"baatcheet/relay/pkg/journal/storage"
)

func resetJournalListFlags() {
	journalListFlags.task = ""
	journalListFlags.backend = ""
	journalListFlags.outcome = ""
	journalListFlags.requestID = ""
	journalListFlags.since = ""
	journalListFlags.until = ""
	journalListFlags.limit = 0
	journalListFlags.offset = 0
	journalListFlags.output = "table"
}

// seedJournal creates a sqlite journal at path with the given records.
func seedJournal(t *testing.T, path string, records []*journal.AttemptRecord) {
	t.Helper()

	store, err := storage.NewSQLiteStorage(&storage.SQLiteConfig{Path: path})
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	ctx := context.Background()
	for _, record := range records {
		if err := store.Store(ctx, record); err != nil {
			t.Fatal(err)
		}
	}
}

func sqliteConfig(path string) string {
	return fmt.Sprintf("server:\n  listen_address: \"127.0.0.1:0\"\njournal:\n  backend: sqlite\n  sqlite:\n    path: %q\n", path)
}

func TestJournalListMemoryBackend(t *testing.T) {
	clearCredentialEnv(t)
	writeTestConfig(t, "journal:\n  backend: memory\n")
	resetJournalListFlags()

	err := runJournalList(nil, nil)
	if err == nil {
		t.Fatal("runJournalList() should reject the memory backend")
	}
	if !strings.Contains(err.Error(), "cannot be queried") {
		t.Errorf("error = %v, want mention of unqueryable backend", err)
	}
}

func TestJournalListDisabled(t *testing.T) {
	clearCredentialEnv(t)
	writeTestConfig(t, "journal:\n  disabled: true\n")
	resetJournalListFlags()

	err := runJournalList(nil, nil)
	if err == nil {
		t.Fatal("runJournalList() should fail when the journal is disabled")
	}
	if !strings.Contains(err.Error(), "disabled") {
		t.Errorf("error = %v, want mention of disabled journal", err)
	}
}

func TestJournalListSQLite(t *testing.T) {
	clearCredentialEnv(t)
	dbPath := filepath.Join(t.TempDir(), "journal.db")
	now := time.Now().UTC()
	seedJournal(t, dbPath, []*journal.AttemptRecord{
		{
			ID:              "attempt-1",
			RequestID:       "req-1",
			Task:            "chat",
			Backend:         "groq",
			Outcome:         journal.OutcomeSuccess,
			StartedAt:       now.Add(-time.Minute),
			Latency:         120 * time.Millisecond,
			FallbackDepth:   0,
			CredentialIndex: 0,
		},
		{
			ID:              "attempt-2",
			RequestID:       "req-2",
			Task:            "vision",
			Backend:         "gemini",
			Outcome:         journal.OutcomeAuth,
			Error:           "401 from upstream",
			StartedAt:       now,
			Latency:         80 * time.Millisecond,
			FallbackDepth:   1,
			CredentialIndex: 2,
		},
	})
	writeTestConfig(t, sqliteConfig(dbPath))

	resetJournalListFlags()
	if err := runJournalList(nil, nil); err != nil {
		t.Errorf("runJournalList() error = %v", err)
	}

	resetJournalListFlags()
	journalListFlags.outcome = "auth"
	journalListFlags.output = "json"
	if err := runJournalList(nil, nil); err != nil {
		t.Errorf("runJournalList() filtered error = %v", err)
	}
}

func TestJournalListRejectsBadOutcome(t *testing.T) {
	clearCredentialEnv(t)
	dbPath := filepath.Join(t.TempDir(), "journal.db")
	seedJournal(t, dbPath, nil)
	writeTestConfig(t, sqliteConfig(dbPath))

	resetJournalListFlags()
	journalListFlags.outcome = "exploded"

	err := runJournalList(nil, nil)
	if err == nil {
		t.Fatal("runJournalList() should reject an unknown outcome")
	}
	if !strings.Contains(err.Error(), "invalid outcome") {
		t.Errorf("error = %v, want invalid outcome", err)
	}
}

func TestJournalPruneDaysOverride(t *testing.T) {
	clearCredentialEnv(t)
	dbPath := filepath.Join(t.TempDir(), "journal.db")
	now := time.Now().UTC()
	seedJournal(t, dbPath, []*journal.AttemptRecord{
		{
			ID:        "attempt-old",
			RequestID: "old-1",
			Task:      "chat",
			Backend:   "groq",
			Outcome:   journal.OutcomeSuccess,
			StartedAt: now.Add(-10 * 24 * time.Hour),
			Latency:   time.Millisecond,
		},
		{
			ID:        "attempt-fresh",
			RequestID: "fresh-1",
			Task:      "chat",
			Backend:   "groq",
			Outcome:   journal.OutcomeSuccess,
			StartedAt: now,
			Latency:   time.Millisecond,
		},
	})
	writeTestConfig(t, sqliteConfig(dbPath))

	if err := journalPruneCmd.Flags().Set("days", "7"); err != nil {
		t.Fatal(err)
	}
	if err := runJournalPrune(journalPruneCmd, nil); err != nil {
		t.Fatalf("runJournalPrune() error = %v", err)
	}

	store, err := storage.NewSQLiteStorage(&storage.SQLiteConfig{Path: dbPath})
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	count, err := store.Count(context.Background(), &journal.Query{})
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("records after prune = %d, want 1", count)
	}
}
