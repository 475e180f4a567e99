package storage

import (
	"context"
	"sort"
	"strings"
	"sync"

	"baatcheet/relay/pkg/journal"
)

// MemoryStorage implements the journal.Storage interface using an in-memory
// map. Useful for tests and for running the relay without a database file.
type MemoryStorage struct {
	records map[string]*journal.AttemptRecord
	mu      sync.RWMutex
}

// NewMemoryStorage creates a new in-memory storage backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		records: make(map[string]*journal.AttemptRecord),
	}
}

// Store persists an attempt record to memory.
func (s *MemoryStorage) Store(ctx context.Context, record *journal.AttemptRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recordCopy := *record
	s.records[record.ID] = &recordCopy

	return nil
}

// Query retrieves attempt records matching the query filters.
func (s *MemoryStorage) Query(ctx context.Context, query *journal.Query) ([]*journal.AttemptRecord, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []*journal.AttemptRecord
	for _, record := range s.records {
		if matchesQuery(record, query) {
			recordCopy := *record
			results = append(results, &recordCopy)
		}
	}

	sortRecords(results, query)

	// Pagination
	start := query.Offset
	if start > len(results) {
		return []*journal.AttemptRecord{}, nil
	}

	limit := journal.DefaultLimit
	if query.Limit > 0 {
		limit = query.Limit
	}
	end := start + limit
	if end > len(results) {
		end = len(results)
	}

	return results[start:end], nil
}

// Count returns the number of attempt records matching the query filters.
func (s *MemoryStorage) Count(ctx context.Context, query *journal.Query) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, record := range s.records {
		if matchesQuery(record, query) {
			count++
		}
	}

	return count, nil
}

// Delete removes attempt records matching the query filters.
func (s *MemoryStorage) Delete(ctx context.Context, query *journal.Query) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	toDelete := []string{}
	for id, record := range s.records {
		if matchesQuery(record, query) {
			toDelete = append(toDelete, id)
		}
	}

	for _, id := range toDelete {
		delete(s.records, id)
		deleted++
	}

	return deleted, nil
}

// Close releases resources held by the storage backend.
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]*journal.AttemptRecord)
	return nil
}

// matchesQuery checks if a record matches the query filters.
func matchesQuery(record *journal.AttemptRecord, query *journal.Query) bool {
	if query.Since != nil && record.StartedAt.Before(*query.Since) {
		return false
	}
	if query.Until != nil && record.StartedAt.After(*query.Until) {
		return false
	}

	if query.RequestID != "" && record.RequestID != query.RequestID {
		return false
	}
	if query.Task != "" && record.Task != query.Task {
		return false
	}
	if query.Backend != "" && record.Backend != query.Backend {
		return false
	}
	if query.Outcome != "" && record.Outcome != query.Outcome {
		return false
	}

	return true
}

// sortRecords orders results the way the SQLite backend would.
func sortRecords(records []*journal.AttemptRecord, query *journal.Query) {
	sortBy := "started_at"
	if query.SortBy != "" {
		sortBy = query.SortBy
	}
	desc := !strings.EqualFold(query.SortOrder, "asc")

	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if desc {
			a, b = b, a
		}
		switch sortBy {
		case "latency_ms":
			return a.Latency < b.Latency
		case "backend":
			return a.Backend < b.Backend
		case "task":
			return a.Task < b.Task
		case "outcome":
			return a.Outcome < b.Outcome
		default:
			return a.StartedAt.Before(b.StartedAt)
		}
	})
}

// Clear removes all records from storage (for testing).
func (s *MemoryStorage) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]*journal.AttemptRecord)
}

// Size returns the number of records in storage (for testing).
func (s *MemoryStorage) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.records)
}
