package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema contains the SQL statements to create the journal database schema.
const Schema = `
-- Attempt records table
CREATE TABLE IF NOT EXISTS attempts (
    id TEXT PRIMARY KEY,
    request_id TEXT NOT NULL,
    task TEXT NOT NULL,
    backend TEXT NOT NULL,

    -- Credential identity (fingerprint only, never the value)
    credential_index INTEGER NOT NULL,
    credential_fingerprint TEXT,

    -- Outcome
    outcome TEXT NOT NULL,
    error TEXT,

    -- Timing
    started_at TIMESTAMP NOT NULL,
    latency_ms INTEGER NOT NULL,
    streamed BOOLEAN NOT NULL,
    fallback_depth INTEGER NOT NULL
);

-- Schema version table
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

-- Indexes for common queries
CREATE INDEX IF NOT EXISTS idx_attempts_started_at ON attempts(started_at);
CREATE INDEX IF NOT EXISTS idx_attempts_backend ON attempts(backend);
CREATE INDEX IF NOT EXISTS idx_attempts_task ON attempts(task);
CREATE INDEX IF NOT EXISTS idx_attempts_outcome ON attempts(outcome);
CREATE INDEX IF NOT EXISTS idx_attempts_request_id ON attempts(request_id);
`

// InsertSchemaVersion inserts the schema version into the schema_version table.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion retrieves the current schema version from the database.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`
