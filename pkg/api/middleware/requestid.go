package middleware

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"

	"baatcheet/relay/pkg/telemetry/logging"
)

// RequestIDHeader is the HTTP header carrying the request ID.
const RequestIDHeader = "X-Request-ID"

// RequestIDMiddleware tags every request with an ID: the client's
// X-Request-ID when present, a generated one otherwise. The ID goes into
// the request context, where the router and the attempt journal read it
// back, and is echoed in the response headers so callers can correlate
// their request with journal entries and log lines.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = generateRequestID()
		}

		ctx := logging.WithRequestID(r.Context(), requestID)
		w.Header().Set(RequestIDHeader, requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// generateRequestID returns 16 random bytes as 32 hex characters.
func generateRequestID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "unidentified"
	}
	return hex.EncodeToString(b)
}
