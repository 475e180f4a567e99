package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"baatcheet/relay/pkg/breaker"
	"baatcheet/relay/pkg/journal"
	"baatcheet/relay/pkg/providers"
	"baatcheet/relay/pkg/routing"
	"baatcheet/relay/pkg/telemetry/logging"
)

type providersResponse struct {
	Providers []providers.BackendHealth `json:"providers"`
}

type breakersResponse struct {
	Breakers []breaker.Stats `json:"breakers"`
}

type summaryResponse struct {
	Backends providers.Summary `json:"backends"`
	Routing  routing.Stats     `json:"routing"`
}

type attemptsResponse struct {
	Attempts []attemptView `json:"attempts"`
	Count    int64         `json:"count"`
}

// attemptView is the wire form of a journal record.
type attemptView struct {
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

// handleDiagnosticsProviders reports per-back-end availability.
func (a *API) handleDiagnosticsProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, providersResponse{Providers: a.manager.HealthStatus()})
}

// handleDiagnosticsBreakers reports per-back-end breaker statistics.
func (a *API) handleDiagnosticsBreakers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, breakersResponse{Breakers: a.manager.BreakerStatus()})
}

// handleDiagnosticsSummary aggregates availability and routing counters.
func (a *API) handleDiagnosticsSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, summaryResponse{
		Backends: a.manager.Summary(),
		Routing:  *a.router.Stats(),
	})
}

// handleDiagnosticsAttempts queries the attempt journal. With the journal
// disabled the endpoint stays mounted and answers empty.
func (a *API) handleDiagnosticsAttempts(w http.ResponseWriter, r *http.Request) {
	requestID := logging.GetRequestID(r.Context())

	if a.storage == nil {
		writeJSON(w, http.StatusOK, attemptsResponse{Attempts: []attemptView{}})
		return
	}

	query, err := attemptQueryFromURL(r.URL.Query())
	if err != nil {
		writeErrorResponse(w, NewErrorResponse(ErrTypeInvalidRequest, err.Error(), requestID))
		return
	}

	records, err := a.storage.Query(r.Context(), query)
	if err != nil {
		a.writeStorageError(w, requestID, err)
		return
	}
	count, err := a.storage.Count(r.Context(), query)
	if err != nil {
		a.writeStorageError(w, requestID, err)
		return
	}

	views := make([]attemptView, 0, len(records))
	for _, rec := range records {
		views = append(views, attemptView{
			ID:                    rec.ID,
			RequestID:             rec.RequestID,
			Task:                  rec.Task,
			Backend:               rec.Backend,
			CredentialIndex:       rec.CredentialIndex,
			CredentialFingerprint: rec.CredentialFingerprint,
			Outcome:               string(rec.Outcome),
			Error:                 rec.Error,
			StartedAt:             rec.StartedAt,
			LatencyMS:             rec.Latency.Milliseconds(),
			Streamed:              rec.Streamed,
			FallbackDepth:         rec.FallbackDepth,
		})
	}

	writeJSON(w, http.StatusOK, attemptsResponse{Attempts: views, Count: count})
}

// writeStorageError distinguishes caller mistakes from journal faults.
func (a *API) writeStorageError(w http.ResponseWriter, requestID string, err error) {
	resp := errorResponseFor(err, requestID)
	if resp.Error.Type == ErrTypeInternal {
		a.logger.Error("journal query failed", "error", err, "request_id", requestID)
		resp = NewErrorResponse(ErrTypeInternal, "journal query failed", requestID)
	}
	writeErrorResponse(w, resp)
}

// attemptQueryFromURL builds a journal query from request parameters.
// Storage validates ranges and enumerations; this only parses shapes.
func attemptQueryFromURL(values url.Values) (*journal.Query, error) {
	q := &journal.Query{
		RequestID: values.Get("request_id"),
		Task:      values.Get("task"),
		Backend:   values.Get("backend"),
		Outcome:   journal.Outcome(values.Get("outcome")),
		SortBy:    values.Get("sort_by"),
		SortOrder: values.Get("sort_order"),
	}

	if v := values.Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, fmt.Errorf("invalid since: %w", err)
		}
		q.Since = &t
	}
	if v := values.Get("until"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, fmt.Errorf("invalid until: %w", err)
		}
		q.Until = &t
	}
	if v := values.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid limit: %w", err)
		}
		q.Limit = n
	}
	if v := values.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid offset: %w", err)
		}
		q.Offset = n
	}

	return q, nil
}
