package retention

import (
	"context"
	"fmt"
	"testing"
	"time"

	"baatcheet/relay/pkg/journal"
	"baatcheet/relay/pkg/journal/storage"
)

// storeAttempts stores count records with the given start time.
func storeAttempts(t *testing.T, s journal.Storage, prefix string, count int, startedAt time.Time) {
	t.Helper()

	ctx := context.Background()
	for i := 0; i < count; i++ {
		record := &journal.AttemptRecord{
			ID:        fmt.Sprintf("%s-%d", prefix, i),
			RequestID: fmt.Sprintf("req-%s-%d", prefix, i),
			Task:      "chat",
			Backend:   "groq",
			Outcome:   journal.OutcomeSuccess,
			StartedAt: startedAt.Add(time.Duration(i) * time.Second),
		}
		if err := s.Store(ctx, record); err != nil {
			t.Fatalf("Store() failed: %v", err)
		}
	}
}

func TestPruner_PruneByAge(t *testing.T) {
	memStorage := storage.NewMemoryStorage()

	// 3 records well past retention, 2 fresh ones
	storeAttempts(t, memStorage, "old", 3, time.Now().AddDate(0, 0, -60))
	storeAttempts(t, memStorage, "new", 2, time.Now().Add(-time.Hour))

	pruner := NewPruner(memStorage, &Config{
		RetentionDays: 30,
	})

	deleted, err := pruner.Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune() failed: %v", err)
	}
	if deleted != 3 {
		t.Errorf("Prune() deleted %d, want 3", deleted)
	}

	count, err := memStorage.Count(context.Background(), &journal.Query{})
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if count != 2 {
		t.Errorf("remaining records = %d, want 2", count)
	}
}

func TestPruner_PruneByCount(t *testing.T) {
	memStorage := storage.NewMemoryStorage()

	base := time.Now().Add(-time.Hour)
	storeAttempts(t, memStorage, "rec", 5, base)

	pruner := NewPruner(memStorage, &Config{
		RetentionDays: 0, // age phase disabled
		MaxRecords:    2,
	})

	deleted, err := pruner.Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune() failed: %v", err)
	}
	if deleted != 3 {
		t.Errorf("Prune() deleted %d, want 3", deleted)
	}

	// The newest records survive
	remaining, err := memStorage.Query(context.Background(), &journal.Query{
		SortBy:    "started_at",
		SortOrder: "asc",
	})
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if len(remaining) != 2 {
		t.Fatalf("remaining records = %d, want 2", len(remaining))
	}
	if remaining[0].ID != "rec-3" || remaining[1].ID != "rec-4" {
		t.Errorf("survivors = [%s, %s], want [rec-3, rec-4]", remaining[0].ID, remaining[1].ID)
	}
}

func TestPruner_PruneByCountWithinLimit(t *testing.T) {
	memStorage := storage.NewMemoryStorage()

	storeAttempts(t, memStorage, "rec", 3, time.Now().Add(-time.Hour))

	pruner := NewPruner(memStorage, &Config{
		MaxRecords: 10,
	})

	deleted, err := pruner.Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune() failed: %v", err)
	}
	if deleted != 0 {
		t.Errorf("Prune() deleted %d, want 0", deleted)
	}
}

func TestPruner_BothPhases(t *testing.T) {
	memStorage := storage.NewMemoryStorage()

	// 4 expired records plus 6 fresh ones; retention removes the old 4,
	// the count cap then trims the fresh set down to 3
	storeAttempts(t, memStorage, "old", 4, time.Now().AddDate(0, 0, -90))
	storeAttempts(t, memStorage, "new", 6, time.Now().Add(-time.Hour))

	pruner := NewPruner(memStorage, &Config{
		RetentionDays: 30,
		MaxRecords:    3,
	})

	deleted, err := pruner.Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune() failed: %v", err)
	}
	if deleted != 7 {
		t.Errorf("Prune() deleted %d, want 7", deleted)
	}

	count, err := memStorage.Count(context.Background(), &journal.Query{})
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if count != 3 {
		t.Errorf("remaining records = %d, want 3", count)
	}
}

func TestPruner_ZeroConfigNoop(t *testing.T) {
	memStorage := storage.NewMemoryStorage()

	storeAttempts(t, memStorage, "old", 5, time.Now().AddDate(0, 0, -365))

	pruner := NewPruner(memStorage, &Config{
		RetentionDays: 0,
		MaxRecords:    0,
	})

	deleted, err := pruner.Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune() failed: %v", err)
	}
	if deleted != 0 {
		t.Errorf("Prune() with zero config deleted %d, want 0", deleted)
	}

	if memStorage.Size() != 5 {
		t.Errorf("Size() = %d, want 5", memStorage.Size())
	}
}

func TestPruner_DefaultConfig(t *testing.T) {
	pruner := NewPruner(storage.NewMemoryStorage(), nil)

	if pruner.config.RetentionDays != 30 {
		t.Errorf("default RetentionDays = %d, want 30", pruner.config.RetentionDays)
	}
	if pruner.config.PruneSchedule != "0 3 * * *" {
		t.Errorf("default PruneSchedule = %q, want %q", pruner.config.PruneSchedule, "0 3 * * *")
	}
	if pruner.config.MaxRecords != 0 {
		t.Errorf("default MaxRecords = %d, want 0", pruner.config.MaxRecords)
	}
}
