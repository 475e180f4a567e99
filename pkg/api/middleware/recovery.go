package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"

	"baatcheet/relay/pkg/telemetry/logging"
)

// panicBody mirrors the api error envelope. The middleware package sits
// below pkg/api in the import graph, so it carries its own copy of the
// shape.
type panicBody struct {
	Error panicDetail `json:"error"`
}

type panicDetail struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// RecoveryMiddleware recovers from handler panics, logs the panic with
// its stack trace, and answers 500 with the standard error envelope.
// Internal details stay out of the response.
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				requestID := logging.GetRequestID(r.Context())

				slog.ErrorContext(r.Context(), "panic in handler",
					"panic", rec,
					"request_id", requestID,
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(debug.Stack()),
				)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(panicBody{
					Error: panicDetail{
						Type:      "internal_error",
						Message:   "internal server error",
						RequestID: requestID,
					},
				})
			}
		}()

		next.ServeHTTP(w, r)
	})
}
