package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"baatcheet/relay/pkg/breaker"
	"baatcheet/relay/pkg/telemetry/logging"
)

type breakerActionResponse struct {
	Backend string        `json:"backend"`
	State   breaker.State `json:"state"`
}

type poolResetResponse struct {
	Status   string   `json:"status"`
	Backends []string `json:"backends"`
}

// adminOnly guards a handler behind the configured bearer token. The
// comparison is constant-time.
func (a *API) adminOnly(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(a.cfg.Server.AdminToken)) != 1 {
			requestID := logging.GetRequestID(r.Context())
			writeErrorResponse(w, NewErrorResponse(ErrTypeUnauthorized, "admin token required", requestID))
			return
		}
		next(w, r)
	})
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) (string, bool) {
	const prefix = "Bearer "
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, prefix) {
		return "", false
	}
	return strings.TrimPrefix(auth, prefix), true
}

// handleBreakerOpen forces a breaker open, taking the back-end out of
// rotation until it is forced closed again.
func (a *API) handleBreakerOpen(w http.ResponseWriter, r *http.Request) {
	a.breakerAction(w, r, a.manager.ForceOpen)
}

// handleBreakerClose forces a breaker closed, restoring the back-end and
// clearing its failure counters.
func (a *API) handleBreakerClose(w http.ResponseWriter, r *http.Request) {
	a.breakerAction(w, r, a.manager.ForceClose)
}

func (a *API) breakerAction(w http.ResponseWriter, r *http.Request, action func(string) error) {
	requestID := logging.GetRequestID(r.Context())
	backend := r.PathValue("backend")

	if err := action(backend); err != nil {
		writeErrorResponse(w, NewErrorResponse(ErrTypeNotFound, err.Error(), requestID))
		return
	}

	writeJSON(w, http.StatusOK, breakerActionResponse{
		Backend: backend,
		State:   a.manager.Breaker(backend).State(),
	})
}

// handlePoolReset clears one back-end's daily counters and quarantines.
func (a *API) handlePoolReset(w http.ResponseWriter, r *http.Request) {
	requestID := logging.GetRequestID(r.Context())
	backend := r.PathValue("backend")

	if err := a.manager.ResetPool(backend); err != nil {
		writeErrorResponse(w, NewErrorResponse(ErrTypeNotFound, err.Error(), requestID))
		return
	}

	writeJSON(w, http.StatusOK, poolResetResponse{
		Status:   "reset",
		Backends: []string{backend},
	})
}

// handlePoolResetAll clears every pool, same as the scheduled daily reset.
func (a *API) handlePoolResetAll(w http.ResponseWriter, r *http.Request) {
	a.manager.ResetAllPools()

	writeJSON(w, http.StatusOK, poolResetResponse{
		Status:   "reset",
		Backends: a.manager.Backends(),
	})
}
