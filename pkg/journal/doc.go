// Package journal provides the attempt journal: a diagnostics trail of every
// routing attempt the relay makes against a back-end.
//
// # Attempt Records
//
// Each record captures decision metadata only:
//   - Which back-end and credential served the attempt
//   - The outcome (success, transient, rate_limited, auth, invalid,
//     circuit_open, timeout)
//   - Timing (start time, latency) and fallback depth
//   - A truncated error message for failed attempts
//
// Request and response payloads are never persisted. Credentials appear only
// as fingerprints, never as values.
//
// # Architecture
//
// The journal consists of three layers:
//
//  1. Recorder - Accepts attempt records from the router asynchronously
//  2. Storage Backend - Persists records (SQLite, in-memory)
//  3. Retention - Prunes records by age and total count on a cron schedule
//
// # Basic Usage
//
//	store, err := storage.NewSQLiteStorage(&storage.SQLiteConfig{
//		Path: "data/journal.db",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer store.Close()
//
//	rec := recorder.NewRecorder(store, nil)
//	defer rec.Close()
//
//	rec.Record(&journal.AttemptRecord{
//		RequestID: "req-123",
//		Task:      "chat",
//		Backend:   "groq",
//		Outcome:   journal.OutcomeSuccess,
//		StartedAt: time.Now(),
//		Latency:   420 * time.Millisecond,
//	})
package journal
