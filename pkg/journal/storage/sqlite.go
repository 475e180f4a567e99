package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"baatcheet/relay/pkg/journal"
)

// SQLiteConfig contains configuration for the SQLite storage backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections to the database.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/journal.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStorage implements the journal.Storage interface using SQLite.
// The driver is selected at build time: cgo builds use mattn/go-sqlite3,
// pure-Go builds fall back to modernc.org/sqlite.
type SQLiteStorage struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStorage creates a new SQLite storage backend.
// It initializes the database schema and enables WAL mode if configured.
func NewSQLiteStorage(config *SQLiteConfig) (*SQLiteStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}

	logger := slog.Default().With("component", "journal.storage.sqlite")

	db, err := sql.Open(driverName, config.Path)
	if err != nil {
		return nil, journal.NewStorageError("sqlite", "open", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)

	s := &SQLiteStorage{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("journal storage initialized",
		"path", config.Path,
		"driver", driverName,
		"wal_mode", config.WALMode,
		"max_open_conns", config.MaxOpenConns,
	)

	return s, nil
}

// initialize sets up the database schema and enables WAL mode.
func (s *SQLiteStorage) initialize() error {
	if s.config.WALMode {
		_, err := s.db.Exec("PRAGMA journal_mode=WAL;")
		if err != nil {
			return journal.NewStorageError("sqlite", "enable_wal", err)
		}
		s.logger.Debug("WAL mode enabled")
	}

	busyTimeoutMs := s.config.BusyTimeout.Milliseconds()
	_, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeoutMs))
	if err != nil {
		return journal.NewStorageError("sqlite", "set_busy_timeout", err)
	}

	_, err = s.db.Exec(Schema)
	if err != nil {
		return journal.NewStorageError("sqlite", "create_schema", err)
	}

	_, err = s.db.Exec(InsertSchemaVersion, SchemaVersion)
	if err != nil {
		return journal.NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	err = s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return journal.NewStorageError("sqlite", "get_schema_version", err)
	}

	if version != SchemaVersion {
		return journal.NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	s.logger.Debug("schema version verified", "version", version)

	return nil
}

// Store persists an attempt record to the database.
func (s *SQLiteStorage) Store(ctx context.Context, record *journal.AttemptRecord) error {
	query := `
		INSERT INTO attempts (
			id, request_id, task, backend,
			credential_index, credential_fingerprint,
			outcome, error,
			started_at, latency_ms, streamed, fallback_depth
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	// Empty error becomes NULL so failure queries stay cheap
	var errorVal interface{}
	if record.Error != "" {
		errorVal = record.Error
	}
	var fingerprintVal interface{}
	if record.CredentialFingerprint != "" {
		fingerprintVal = record.CredentialFingerprint
	}

	_, err := s.db.ExecContext(ctx, query,
		record.ID, record.RequestID, record.Task, record.Backend,
		record.CredentialIndex, fingerprintVal,
		string(record.Outcome), errorVal,
		record.StartedAt.UTC(), record.Latency.Milliseconds(), record.Streamed, record.FallbackDepth,
	)

	if err != nil {
		return journal.NewStorageError("sqlite", "store", err)
	}

	return nil
}

// Query retrieves attempt records matching the query filters.
func (s *SQLiteStorage) Query(ctx context.Context, query *journal.Query) ([]*journal.AttemptRecord, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	whereClause, args := buildWhereClause(query)

	sqlQuery := "SELECT id, request_id, task, backend, credential_index, credential_fingerprint, outcome, error, started_at, latency_ms, streamed, fallback_depth FROM attempts"
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}
	sqlQuery += buildOrderBy(query)

	limit := journal.DefaultLimit
	if query.Limit > 0 {
		limit = query.Limit
	}
	sqlQuery += fmt.Sprintf(" LIMIT %d", limit)

	if query.Offset > 0 {
		sqlQuery += fmt.Sprintf(" OFFSET %d", query.Offset)
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, journal.NewStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	records := []*journal.AttemptRecord{}
	for rows.Next() {
		record, err := scanRow(rows)
		if err != nil {
			return nil, journal.NewStorageError("sqlite", "scan", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, journal.NewStorageError("sqlite", "query", err)
	}

	return records, nil
}

// Count returns the number of attempt records matching the query filters.
func (s *SQLiteStorage) Count(ctx context.Context, query *journal.Query) (int64, error) {
	whereClause, args := buildWhereClause(query)

	sqlQuery := "SELECT COUNT(*) FROM attempts"
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}

	var count int64
	err := s.db.QueryRowContext(ctx, sqlQuery, args...).Scan(&count)
	if err != nil {
		return 0, journal.NewStorageError("sqlite", "count", err)
	}

	return count, nil
}

// Delete removes attempt records matching the query filters.
// Returns the number of records deleted.
func (s *SQLiteStorage) Delete(ctx context.Context, query *journal.Query) (int64, error) {
	whereClause, args := buildWhereClause(query)

	sqlQuery := "DELETE FROM attempts"
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}

	result, err := s.db.ExecContext(ctx, sqlQuery, args...)
	if err != nil {
		return 0, journal.NewStorageError("sqlite", "delete", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, journal.NewStorageError("sqlite", "delete", err)
	}

	return count, nil
}

// Close releases resources held by the storage backend.
func (s *SQLiteStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return journal.NewStorageError("sqlite", "close", err)
	}

	s.logger.Info("journal storage closed")
	return nil
}

// buildWhereClause builds a SQL WHERE clause from query filters.
// Returns the WHERE clause (without "WHERE" keyword) and the query arguments.
func buildWhereClause(query *journal.Query) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if query.Since != nil {
		conditions = append(conditions, "started_at >= ?")
		args = append(args, query.Since.UTC())
	}
	if query.Until != nil {
		conditions = append(conditions, "started_at <= ?")
		args = append(args, query.Until.UTC())
	}

	if query.RequestID != "" {
		conditions = append(conditions, "request_id = ?")
		args = append(args, query.RequestID)
	}
	if query.Task != "" {
		conditions = append(conditions, "task = ?")
		args = append(args, query.Task)
	}
	if query.Backend != "" {
		conditions = append(conditions, "backend = ?")
		args = append(args, query.Backend)
	}
	if query.Outcome != "" {
		conditions = append(conditions, "outcome = ?")
		args = append(args, string(query.Outcome))
	}

	return strings.Join(conditions, " AND "), args
}

// buildOrderBy builds the ORDER BY clause. Sort column and order are checked
// against the whitelists before interpolation.
func buildOrderBy(query *journal.Query) string {
	sortBy := "started_at"
	sortOrder := "DESC"
	if query.SortBy != "" && journal.ValidSortFields[query.SortBy] {
		sortBy = query.SortBy
	}
	if query.SortOrder != "" && journal.ValidSortOrders[strings.ToLower(query.SortOrder)] {
		sortOrder = strings.ToUpper(query.SortOrder)
	}
	return fmt.Sprintf(" ORDER BY %s %s", sortBy, sortOrder)
}

// scanRow scans a single attempts row into an AttemptRecord.
func scanRow(rows *sql.Rows) (*journal.AttemptRecord, error) {
	var record journal.AttemptRecord
	var outcome string
	var errorVal, fingerprintVal sql.NullString
	var latencyMs int64

	err := rows.Scan(
		&record.ID, &record.RequestID, &record.Task, &record.Backend,
		&record.CredentialIndex, &fingerprintVal,
		&outcome, &errorVal,
		&record.StartedAt, &latencyMs, &record.Streamed, &record.FallbackDepth,
	)
	if err != nil {
		return nil, err
	}

	record.Outcome = journal.Outcome(outcome)
	record.Error = errorVal.String
	record.CredentialFingerprint = fingerprintVal.String
	record.Latency = time.Duration(latencyMs) * time.Millisecond

	return &record, nil
}
