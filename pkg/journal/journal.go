package journal

import (
	"context"
	"fmt"
	"time"
)

// Outcome classifies how an attempt ended. The values mirror the relay's
// error taxonomy so journal queries line up with breaker and pool behavior.
type Outcome string

const (
	// OutcomeSuccess is a completed attempt.
	OutcomeSuccess Outcome = "success"

	// OutcomeTransient is a retryable back-end failure (5xx, connection
	// error, malformed response).
	OutcomeTransient Outcome = "transient"

	// OutcomeRateLimited is a back-end 429 or payment-required response.
	OutcomeRateLimited Outcome = "rate_limited"

	// OutcomeAuth is a rejected credential (401/403).
	OutcomeAuth Outcome = "auth"

	// OutcomeInvalid is a request the back-end rejected as malformed.
	// Invalid requests are not retried.
	OutcomeInvalid Outcome = "invalid"

	// OutcomeCircuitOpen means the breaker refused the attempt before any
	// network traffic.
	OutcomeCircuitOpen Outcome = "circuit_open"

	// OutcomeTimeout is an attempt cancelled by its deadline.
	OutcomeTimeout Outcome = "timeout"
)

// ValidOutcomes contains every outcome value a record or query may carry.
var ValidOutcomes = map[Outcome]bool{
	OutcomeSuccess:     true,
	OutcomeTransient:   true,
	OutcomeRateLimited: true,
	OutcomeAuth:        true,
	OutcomeInvalid:     true,
	OutcomeCircuitOpen: true,
	OutcomeTimeout:     true,
}

// AttemptRecord is one routing attempt against one back-end. Records hold
// decision metadata only; request and response payloads are never stored.
type AttemptRecord struct {
	// ID uniquely identifies the record (UUID, assigned by the recorder
	// when empty).
	ID string

	// RequestID is the relay request this attempt belongs to. Fallback
	// attempts for the same request share a RequestID.
	RequestID string

	// Task is the task kind the request asked for ("chat", "ocr", ...).
	Task string

	// Backend is the back-end the attempt was sent to.
	Backend string

	// CredentialIndex is the position of the credential in its pool.
	// -1 when the attempt never reached credential selection.
	CredentialIndex int

	// CredentialFingerprint identifies the credential without revealing
	// it. Empty when no credential was selected.
	CredentialFingerprint string

	// Outcome classifies how the attempt ended.
	Outcome Outcome

	// Error is the failure message, truncated by the recorder. Empty for
	// successful attempts. Never contains credential values.
	Error string

	// StartedAt is when the attempt began.
	StartedAt time.Time

	// Latency is how long the attempt took.
	Latency time.Duration

	// Streamed reports whether the attempt used the streaming path.
	Streamed bool

	// FallbackDepth is how many back-ends were tried before this one.
	// 0 for the first attempt of a request.
	FallbackDepth int
}

// Query filters journal records. Zero-value fields are ignored.
type Query struct {
	// Since bounds StartedAt from below (inclusive).
	Since *time.Time

	// Until bounds StartedAt from above (inclusive).
	Until *time.Time

	// RequestID selects all attempts of one relay request.
	RequestID string

	// Task filters by task kind.
	Task string

	// Backend filters by back-end name.
	Backend string

	// Outcome filters by attempt outcome.
	Outcome Outcome

	// Limit caps the number of records returned. Defaults to
	// DefaultLimit when zero.
	Limit int

	// Offset skips records for pagination.
	Offset int

	// SortBy is the sort column. Must be a key of ValidSortFields.
	// Defaults to "started_at".
	SortBy string

	// SortOrder is "asc" or "desc". Defaults to "desc".
	SortOrder string
}

const (
	// DefaultLimit is the number of records returned when a query does
	// not set one.
	DefaultLimit = 100

	// MaxLimit is the largest number of records a single query may
	// return.
	MaxLimit = 10000
)

// ValidSortFields contains the columns queries may sort by.
var ValidSortFields = map[string]bool{
	"started_at": true,
	"latency_ms": true,
	"backend":    true,
	"task":       true,
	"outcome":    true,
}

// ValidSortOrders contains the valid sort orders.
var ValidSortOrders = map[string]bool{
	"asc":  true,
	"desc": true,
}

// Validate checks query parameters and returns a QueryError describing the
// first invalid one.
func (q *Query) Validate() error {
	if q.Limit < 0 {
		return NewQueryError(q, fmt.Errorf("limit must be >= 0, got %d", q.Limit))
	}
	if q.Limit > MaxLimit {
		return NewQueryError(q, fmt.Errorf("limit must be <= %d, got %d", MaxLimit, q.Limit))
	}
	if q.Offset < 0 {
		return NewQueryError(q, fmt.Errorf("offset must be >= 0, got %d", q.Offset))
	}
	if q.SortBy != "" && !ValidSortFields[q.SortBy] {
		return NewQueryError(q, fmt.Errorf("invalid sort field: %s", q.SortBy))
	}
	if q.SortOrder != "" && !ValidSortOrders[q.SortOrder] {
		return NewQueryError(q, fmt.Errorf("invalid sort order: %s (must be 'asc' or 'desc')", q.SortOrder))
	}
	if q.Outcome != "" && !ValidOutcomes[q.Outcome] {
		return NewQueryError(q, fmt.Errorf("invalid outcome: %s", q.Outcome))
	}
	if q.Since != nil && q.Until != nil && q.Since.After(*q.Until) {
		return NewQueryError(q, fmt.Errorf("since must be before until"))
	}
	return nil
}

// ApplyDefaults fills unset query parameters with their defaults.
func (q *Query) ApplyDefaults() {
	if q.Limit == 0 {
		q.Limit = DefaultLimit
	}
	if q.SortBy == "" {
		q.SortBy = "started_at"
	}
	if q.SortOrder == "" {
		q.SortOrder = "desc"
	}
}

// Storage persists attempt records. Implementations must be safe for
// concurrent use.
type Storage interface {
	// Store persists a record.
	Store(ctx context.Context, record *AttemptRecord) error

	// Query retrieves records matching the query filters.
	Query(ctx context.Context, query *Query) ([]*AttemptRecord, error)

	// Count returns the number of records matching the query filters.
	Count(ctx context.Context, query *Query) (int64, error)

	// Delete removes records matching the query filters and returns how
	// many were removed.
	Delete(ctx context.Context, query *Query) (int64, error)

	// Close releases resources held by the storage backend.
	Close() error
}
