package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"baatcheet/relay/pkg/breaker"
	"baatcheet/relay/pkg/config"
	"baatcheet/relay/pkg/providers"
)

func adminRelay(t *testing.T) *testRelay {
	t.Helper()
	return newTestRelay(t, testRelayOptions{
		mutate: func(cfg *config.Config) {
			cfg.Server.AdminToken = "secret-admin"
		},
	})
}

func adminHeader(token string) http.Header {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	return header
}

func backendHealth(t *testing.T, manager *providers.Manager, backend string) providers.BackendHealth {
	t.Helper()
	for _, h := range manager.HealthStatus() {
		if h.Backend == backend {
			return h
		}
	}
	t.Fatalf("no health snapshot for %q", backend)
	return providers.BackendHealth{}
}

func TestAdminRequiresToken(t *testing.T) {
	tr := adminRelay(t)

	rec := tr.do(t, http.MethodPost, "/v1/admin/breakers/groq/open", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", rec.Code)
	}

	rec = tr.do(t, http.MethodPost, "/v1/admin/breakers/groq/open", "", adminHeader("wrong"))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong token: status = %d, want 401", rec.Code)
	}
	if got := decodeError(t, rec).Type; got != ErrTypeUnauthorized {
		t.Errorf("type = %q, want %q", got, ErrTypeUnauthorized)
	}

	if state := tr.manager.Breaker("groq").State(); state != breaker.StateClosed {
		t.Errorf("rejected request still flipped the breaker to %s", state)
	}
}

func TestAdminBreakerOpenClose(t *testing.T) {
	tr := adminRelay(t)

	rec := tr.do(t, http.MethodPost, "/v1/admin/breakers/groq/open", "", adminHeader("secret-admin"))
	if rec.Code != http.StatusOK {
		t.Fatalf("open: status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var resp breakerActionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Backend != "groq" || resp.State != breaker.StateOpen {
		t.Errorf("response = %+v", resp)
	}
	if state := tr.manager.Breaker("groq").State(); state != breaker.StateOpen {
		t.Errorf("manager state = %s, want open", state)
	}

	rec = tr.do(t, http.MethodPost, "/v1/admin/breakers/groq/close", "", adminHeader("secret-admin"))
	if rec.Code != http.StatusOK {
		t.Fatalf("close: status = %d, want 200", rec.Code)
	}
	if state := tr.manager.Breaker("groq").State(); state != breaker.StateClosed {
		t.Errorf("manager state = %s, want closed", state)
	}
}

func TestAdminUnknownBackend(t *testing.T) {
	tr := adminRelay(t)

	rec := tr.do(t, http.MethodPost, "/v1/admin/breakers/nope/open", "", adminHeader("secret-admin"))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if got := decodeError(t, rec).Type; got != ErrTypeNotFound {
		t.Errorf("type = %q, want %q", got, ErrTypeNotFound)
	}
}

func TestAdminPoolReset(t *testing.T) {
	tr := adminRelay(t)
	tr.execs["groq"].EnqueueSuccess(`{}`)
	tr.do(t, http.MethodPost, "/v1/tasks/chat", `{}`, nil)

	if used := backendHealth(t, tr.manager, "groq").UsedToday; used != 1 {
		t.Fatalf("used today = %d before reset, want 1", used)
	}

	rec := tr.do(t, http.MethodPost, "/v1/admin/pools/groq/reset", "", adminHeader("secret-admin"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	if used := backendHealth(t, tr.manager, "groq").UsedToday; used != 0 {
		t.Errorf("used today = %d after reset, want 0", used)
	}
}

func TestAdminPoolResetAll(t *testing.T) {
	tr := adminRelay(t)
	tr.execs["groq"].EnqueueSuccess(`{}`)
	tr.do(t, http.MethodPost, "/v1/tasks/chat", `{}`, nil)

	rec := tr.do(t, http.MethodPost, "/v1/admin/pools/reset", "", adminHeader("secret-admin"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp poolResetResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Status != "reset" || len(resp.Backends) != 2 {
		t.Errorf("response = %+v", resp)
	}
	if used := backendHealth(t, tr.manager, "groq").UsedToday; used != 0 {
		t.Errorf("used today = %d after reset, want 0", used)
	}
}

func TestAdminDisabledWithoutToken(t *testing.T) {
	tr := newTestRelay(t, testRelayOptions{})

	rec := tr.do(t, http.MethodPost, "/v1/admin/breakers/groq/open", "", adminHeader("anything"))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 when admin is disabled", rec.Code)
	}
}
