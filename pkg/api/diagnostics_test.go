package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"baatcheet/relay/pkg/breaker"
	"baatcheet/relay/pkg/journal/storage"
)

func TestDiagnosticsProviders(t *testing.T) {
	tr := newTestRelay(t, testRelayOptions{})

	rec := tr.do(t, http.MethodGet, "/v1/diagnostics/providers", "", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp providersResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Providers) != 2 {
		t.Fatalf("providers = %d, want 2", len(resp.Providers))
	}
	for _, p := range resp.Providers {
		if p.TotalKeys != 1 || !p.Available {
			t.Errorf("%s: keys=%d available=%v, want 1/true", p.Backend, p.TotalKeys, p.Available)
		}
		if p.BreakerState != breaker.StateClosed {
			t.Errorf("%s: breaker state = %s, want closed", p.Backend, p.BreakerState)
		}
	}
}

func TestDiagnosticsBreakers(t *testing.T) {
	tr := newTestRelay(t, testRelayOptions{})
	if err := tr.manager.ForceOpen("groq"); err != nil {
		t.Fatalf("forcing breaker open: %v", err)
	}

	rec := tr.do(t, http.MethodGet, "/v1/diagnostics/breakers", "", nil)

	var resp breakersResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	states := make(map[string]breaker.State, len(resp.Breakers))
	for _, b := range resp.Breakers {
		states[b.Backend] = b.State
	}
	if states["groq"] != breaker.StateOpen {
		t.Errorf("groq state = %s, want open", states["groq"])
	}
	if states["gemini"] != breaker.StateClosed {
		t.Errorf("gemini state = %s, want closed", states["gemini"])
	}
}

func TestDiagnosticsSummary(t *testing.T) {
	tr := newTestRelay(t, testRelayOptions{})
	tr.execs["groq"].EnqueueSuccess(`{}`)
	tr.do(t, http.MethodPost, "/v1/tasks/chat", `{}`, nil)

	rec := tr.do(t, http.MethodGet, "/v1/diagnostics/summary", "", nil)

	var resp summaryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Backends.TotalBackends != 2 {
		t.Errorf("total backends = %d, want 2", resp.Backends.TotalBackends)
	}
	if resp.Backends.UsedToday != 1 {
		t.Errorf("used today = %d, want 1", resp.Backends.UsedToday)
	}
	if resp.Routing.TotalRequests != 1 || resp.Routing.TotalSuccesses != 1 {
		t.Errorf("routing counters = %+v", resp.Routing)
	}
}

func TestDiagnosticsAttempts(t *testing.T) {
	store := storage.NewMemoryStorage()
	tr := newTestRelay(t, testRelayOptions{storage: store})
	tr.execs["groq"].EnqueueSuccess(`{}`)

	header := http.Header{}
	header.Set("X-Request-ID", "req-42")
	tr.do(t, http.MethodPost, "/v1/tasks/chat", `{}`, header)

	rec := tr.do(t, http.MethodGet, "/v1/diagnostics/attempts?task=chat&outcome=success", "", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var resp attemptsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Count != 1 || len(resp.Attempts) != 1 {
		t.Fatalf("count = %d, attempts = %d, want 1/1", resp.Count, len(resp.Attempts))
	}
	attempt := resp.Attempts[0]
	if attempt.Backend != "groq" || attempt.Outcome != "success" {
		t.Errorf("attempt = %+v", attempt)
	}
	if attempt.RequestID != "req-42" {
		t.Errorf("request_id = %q, want req-42", attempt.RequestID)
	}
	if attempt.CredentialFingerprint == "" {
		t.Error("attempt is missing the credential fingerprint")
	}
}

func TestDiagnosticsAttemptsFiltersOut(t *testing.T) {
	store := storage.NewMemoryStorage()
	tr := newTestRelay(t, testRelayOptions{storage: store})
	tr.execs["groq"].EnqueueSuccess(`{}`)
	tr.do(t, http.MethodPost, "/v1/tasks/chat", `{}`, nil)

	rec := tr.do(t, http.MethodGet, "/v1/diagnostics/attempts?backend=gemini", "", nil)

	var resp attemptsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Count != 0 || len(resp.Attempts) != 0 {
		t.Errorf("count = %d, attempts = %d, want 0/0", resp.Count, len(resp.Attempts))
	}
}

func TestDiagnosticsAttemptsBadParams(t *testing.T) {
	store := storage.NewMemoryStorage()
	tr := newTestRelay(t, testRelayOptions{storage: store})

	for _, path := range []string{
		"/v1/diagnostics/attempts?limit=wat",
		"/v1/diagnostics/attempts?since=yesterday",
		"/v1/diagnostics/attempts?outcome=sideways",
	} {
		rec := tr.do(t, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", path, rec.Code)
			continue
		}
		if got := decodeError(t, rec).Type; got != ErrTypeInvalidRequest {
			t.Errorf("%s: type = %q, want %q", path, got, ErrTypeInvalidRequest)
		}
	}
}

func TestDiagnosticsAttemptsJournalDisabled(t *testing.T) {
	tr := newTestRelay(t, testRelayOptions{})

	rec := tr.do(t, http.MethodGet, "/v1/diagnostics/attempts", "", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp attemptsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Count != 0 || len(resp.Attempts) != 0 {
		t.Errorf("disabled journal answered %d attempts", len(resp.Attempts))
	}
}
