package api

import (
	"context"
	"errors"
	"net/http"

	"baatcheet/relay/pkg/backends"
	"baatcheet/relay/pkg/journal"
	"baatcheet/relay/pkg/routing"
	"baatcheet/relay/pkg/tasks"
)

// Error type identifiers carried in the envelope. Clients branch on these
// rather than on message text.
const (
	ErrTypeInvalidRequest = "invalid_request"
	ErrTypeUnknownTask    = "unknown_task"
	ErrTypeUnauthorized   = "unauthorized"
	ErrTypeNotFound       = "not_found"
	ErrTypeCanceled       = "canceled"
	ErrTypeUnavailable    = "service_unavailable"
	ErrTypeTimeout        = "request_timeout"
	ErrTypeInternal       = "internal_error"
)

// ErrorResponse is the JSON envelope for every API failure.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes one failure.
type ErrorDetail struct {
	// Type is one of the ErrType identifiers.
	Type string `json:"type"`

	// Message is a human-readable description. Never contains
	// credential material.
	Message string `json:"message"`

	// RequestID correlates the failure with journal entries and log
	// lines.
	RequestID string `json:"request_id,omitempty"`
}

// NewErrorResponse creates an error envelope.
func NewErrorResponse(errType, message, requestID string) *ErrorResponse {
	return &ErrorResponse{
		Error: ErrorDetail{
			Type:      errType,
			Message:   message,
			RequestID: requestID,
		},
	}
}

// HTTPStatusCode maps the error type to its HTTP status.
func (e *ErrorResponse) HTTPStatusCode() int {
	switch e.Error.Type {
	case ErrTypeInvalidRequest:
		return http.StatusBadRequest
	case ErrTypeUnauthorized:
		return http.StatusUnauthorized
	case ErrTypeUnknownTask, ErrTypeNotFound:
		return http.StatusNotFound
	case ErrTypeCanceled:
		return http.StatusRequestTimeout
	case ErrTypeUnavailable:
		return http.StatusServiceUnavailable
	case ErrTypeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// errorResponseFor maps routing and journal errors onto the client-facing
// taxonomy. Exhaustion is matched before the context sentinels: an
// exhausted request whose last attempt timed out still reports 503, not
// 504.
func errorResponseFor(err error, requestID string) *ErrorResponse {
	var exhaustion *routing.ExhaustionError
	if errors.As(err, &exhaustion) {
		return NewErrorResponse(ErrTypeUnavailable, exhaustion.Error(), requestID)
	}
	var unknownTask *tasks.UnknownTaskError
	if errors.As(err, &unknownTask) {
		return NewErrorResponse(ErrTypeUnknownTask, unknownTask.Error(), requestID)
	}
	var invalid *backends.InvalidRequestError
	if errors.As(err, &invalid) {
		return NewErrorResponse(ErrTypeInvalidRequest, invalid.Error(), requestID)
	}
	var query *journal.QueryError
	if errors.As(err, &query) {
		return NewErrorResponse(ErrTypeInvalidRequest, query.Error(), requestID)
	}

	// Raw upstream failures only surface here from committed streams;
	// the non-streaming path always folds them into an exhaustion.
	var transient *backends.TransientError
	if errors.As(err, &transient) {
		return NewErrorResponse(ErrTypeUnavailable, transient.Error(), requestID)
	}
	var rateLimited *backends.RateLimitError
	if errors.As(err, &rateLimited) {
		return NewErrorResponse(ErrTypeUnavailable, rateLimited.Error(), requestID)
	}
	var auth *backends.AuthError
	if errors.As(err, &auth) {
		return NewErrorResponse(ErrTypeUnavailable, auth.Error(), requestID)
	}
	var timeout *backends.TimeoutError
	if errors.As(err, &timeout) {
		return NewErrorResponse(ErrTypeTimeout, timeout.Error(), requestID)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewErrorResponse(ErrTypeTimeout, "request deadline exceeded", requestID)
	}
	if errors.Is(err, context.Canceled) {
		return NewErrorResponse(ErrTypeCanceled, "request canceled", requestID)
	}
	return NewErrorResponse(ErrTypeInternal, "internal server error", requestID)
}
