package logging

import (
	"context"
)

// Context keys for common log fields.
type contextKey string

const (
	// RequestIDKey is the context key for request IDs.
	RequestIDKey contextKey = "request_id"
)

// WithRequestID adds a request ID to the context. The HTTP layer sets it
// once per request; the router and the attempt journal read it back so a
// single ID ties an access log line to every upstream attempt made on its
// behalf.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// ContextAttrs extracts common fields from the context as key-value pairs
// suitable for slog's variadic args.
func ContextAttrs(ctx context.Context) []any {
	var attrs []any

	if requestID := GetRequestID(ctx); requestID != "" {
		attrs = append(attrs, "request_id", requestID)
	}

	return attrs
}
