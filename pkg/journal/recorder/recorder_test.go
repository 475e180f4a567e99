package recorder

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"baatcheet/relay/pkg/journal"
	"baatcheet/relay/pkg/journal/storage"
)

// blockingStorage blocks every Store call until released. Used to wedge the
// recorder worker so the channel fills up.
type blockingStorage struct {
	release chan struct{}
	mu      sync.Mutex
	stored  []*journal.AttemptRecord
}

func newBlockingStorage() *blockingStorage {
	return &blockingStorage{release: make(chan struct{})}
}

func (b *blockingStorage) Store(ctx context.Context, record *journal.AttemptRecord) error {
	<-b.release
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stored = append(b.stored, record)
	return nil
}

func (b *blockingStorage) Query(ctx context.Context, q *journal.Query) ([]*journal.AttemptRecord, error) {
	return nil, nil
}

func (b *blockingStorage) Count(ctx context.Context, q *journal.Query) (int64, error) {
	return 0, nil
}

func (b *blockingStorage) Delete(ctx context.Context, q *journal.Query) (int64, error) {
	return 0, nil
}

func (b *blockingStorage) Close() error { return nil }

func (b *blockingStorage) storedCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.stored)
}

func TestRecorder_RecordAssignsID(t *testing.T) {
	memStorage := storage.NewMemoryStorage()
	rec := NewRecorder(memStorage, nil)

	record := &journal.AttemptRecord{
		RequestID: "req-1",
		Task:      "chat",
		Backend:   "groq",
		Outcome:   journal.OutcomeSuccess,
		StartedAt: time.Now(),
	}

	if err := rec.Record(record); err != nil {
		t.Fatalf("Record() failed: %v", err)
	}

	if record.ID == "" {
		t.Error("Record() did not assign an ID")
	}
	if len(record.ID) != 36 {
		t.Errorf("Record() ID = %q, want UUID format", record.ID)
	}

	if err := rec.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
}

func TestRecorder_KeepsExplicitID(t *testing.T) {
	memStorage := storage.NewMemoryStorage()
	rec := NewRecorder(memStorage, nil)
	defer rec.Close()

	record := &journal.AttemptRecord{
		ID:        "explicit-id",
		RequestID: "req-1",
		Outcome:   journal.OutcomeSuccess,
		StartedAt: time.Now(),
	}

	if err := rec.Record(record); err != nil {
		t.Fatalf("Record() failed: %v", err)
	}
	if record.ID != "explicit-id" {
		t.Errorf("Record() replaced explicit ID with %q", record.ID)
	}
}

func TestRecorder_CloseDrains(t *testing.T) {
	memStorage := storage.NewMemoryStorage()
	rec := NewRecorder(memStorage, &Config{
		AsyncBuffer:    100,
		WriteTimeout:   time.Second,
		MaxErrorLength: 500,
	})

	for i := 0; i < 25; i++ {
		record := &journal.AttemptRecord{
			RequestID: "req-drain",
			Task:      "chat",
			Backend:   "groq",
			Outcome:   journal.OutcomeSuccess,
			StartedAt: time.Now(),
		}
		if err := rec.Record(record); err != nil {
			t.Fatalf("Record() %d failed: %v", i, err)
		}
	}

	if err := rec.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	// Everything enqueued before Close must be persisted
	if memStorage.Size() != 25 {
		t.Errorf("storage has %d records after Close(), want 25", memStorage.Size())
	}
}

func TestRecorder_TruncatesError(t *testing.T) {
	memStorage := storage.NewMemoryStorage()
	rec := NewRecorder(memStorage, &Config{
		AsyncBuffer:    10,
		WriteTimeout:   time.Second,
		MaxErrorLength: 20,
	})

	record := &journal.AttemptRecord{
		RequestID: "req-1",
		Outcome:   journal.OutcomeTransient,
		Error:     strings.Repeat("x", 100),
		StartedAt: time.Now(),
	}

	if err := rec.Record(record); err != nil {
		t.Fatalf("Record() failed: %v", err)
	}
	rec.Close()

	if len(record.Error) != 20 {
		t.Errorf("Error length = %d, want 20", len(record.Error))
	}
	if !strings.HasSuffix(record.Error, "...") {
		t.Errorf("Error = %q, want ellipsis suffix", record.Error)
	}
}

func TestRecorder_DropsWhenBufferFull(t *testing.T) {
	blocked := newBlockingStorage()
	rec := NewRecorder(blocked, &Config{
		AsyncBuffer:    1,
		WriteTimeout:   50 * time.Millisecond,
		MaxErrorLength: 500,
	})

	mkRecord := func(id string) *journal.AttemptRecord {
		return &journal.AttemptRecord{
			ID:        id,
			RequestID: "req-full",
			Outcome:   journal.OutcomeSuccess,
			StartedAt: time.Now(),
		}
	}

	// First record: picked up by the worker, which blocks in Store.
	if err := rec.Record(mkRecord("first")); err != nil {
		t.Fatalf("Record() first failed: %v", err)
	}

	// Give the worker time to take it off the channel.
	time.Sleep(20 * time.Millisecond)

	// Second record fills the buffer.
	if err := rec.Record(mkRecord("second")); err != nil {
		t.Fatalf("Record() second failed: %v", err)
	}

	// Third record finds the buffer full and must be dropped.
	err := rec.Record(mkRecord("third"))
	if err == nil {
		t.Fatal("Record() on full buffer returned nil, want drop error")
	}

	var recErr *journal.RecorderError
	if !errors.As(err, &recErr) {
		t.Fatalf("Record() error type = %T, want *RecorderError", err)
	}
	if recErr.RecordID != "third" {
		t.Errorf("RecorderError.RecordID = %q, want %q", recErr.RecordID, "third")
	}

	// Release the storage and shut down; the two accepted records land.
	close(blocked.release)
	rec.Close()

	if got := blocked.storedCount(); got != 2 {
		t.Errorf("stored %d records, want 2", got)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		s    string
		max  int
		want string
	}{
		{"short string unchanged", "hello", 10, "hello"},
		{"exact length unchanged", "hello", 5, "hello"},
		{"long string truncated", "hello world", 8, "hello..."},
		{"tiny max skips ellipsis", "hello", 3, "hel"},
		{"zero max disables truncation", "hello world", 0, "hello world"},
		{"empty string", "", 5, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Truncate(tt.s, tt.max); got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.s, tt.max, got, tt.want)
			}
		})
	}
}
