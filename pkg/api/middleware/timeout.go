package middleware

import (
	"context"
	"net/http"
	"time"
)

// TimeoutMiddleware bounds the request through its context. Handlers see
// the deadline via ctx and map the resulting error themselves; the
// response writer is never touched from a second goroutine, which keeps
// the middleware safe in front of handlers that flush incrementally.
// A zero timeout disables the deadline.
func TimeoutMiddleware(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if timeout <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
