// Package storage provides storage backends for attempt records.
//
// Two implementations of the journal.Storage interface are available:
//
//   - SQLite: durable storage with WAL mode, busy timeout handling, and
//     indexes on the columns diagnostics queries filter by. The driver is
//     chosen at build time: cgo builds link mattn/go-sqlite3, pure-Go
//     builds use modernc.org/sqlite.
//   - Memory: mutex-guarded map for tests and ephemeral deployments.
//
// All backends are safe for concurrent use.
package storage
