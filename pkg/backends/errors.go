package backends

import (
	"context"
	"errors"
	"fmt"
	"time"

	"baatcheet/relay/pkg/breaker"
)

// TransientError represents a retryable back-end failure: a 5xx response,
// a connection failure, or any upstream condition expected to clear on its
// own.
type TransientError struct {
	// Backend is the name of the back-end that failed
	Backend string

	// StatusCode is the HTTP status code (0 if not applicable)
	StatusCode int

	// Message is the error message
	Message string

	// Cause is the underlying error (if any)
	Cause error
}

// Error implements the error interface.
func (e *TransientError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("backend %q transient error (status %d): %s", e.Backend, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("backend %q transient error: %s", e.Backend, e.Message)
}

// Unwrap returns the underlying error for error chain support.
func (e *TransientError) Unwrap() error {
	return e.Cause
}

// TimeoutError represents an attempt that exceeded its deadline.
type TimeoutError struct {
	// Backend is the name of the back-end where the timeout occurred
	Backend string

	// Timeout is the deadline the attempt ran against (0 if unknown)
	Timeout time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	if e.Timeout > 0 {
		return fmt.Sprintf("backend %q attempt timed out after %s", e.Backend, e.Timeout)
	}
	return fmt.Sprintf("backend %q attempt timed out", e.Backend)
}

// Is makes errors.Is(err, context.DeadlineExceeded) match.
func (e *TimeoutError) Is(target error) bool {
	return target == context.DeadlineExceeded
}

// RateLimitError represents a rate-limited attempt (HTTP 429, or 402 quota
// exhaustion). It counts against the credential like any other retryable
// error.
type RateLimitError struct {
	// Backend is the name of the back-end that rate limited the request
	Backend string

	// RetryAfter is the wait the back-end asked for (if provided)
	RetryAfter time.Duration

	// Message is the error message
	Message string
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("backend %q rate limited (retry after %s): %s",
			e.Backend, e.RetryAfter, e.Message)
	}
	return fmt.Sprintf("backend %q rate limited: %s", e.Backend, e.Message)
}

// AuthError represents a permanently rejected credential (HTTP 401 or 403).
// The credential is quarantined immediately, bypassing the error threshold.
type AuthError struct {
	// Backend is the name of the back-end that rejected the credential
	Backend string

	// StatusCode is the HTTP status code
	StatusCode int

	// Message is the error message
	Message string
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	return fmt.Sprintf("backend %q rejected credential (status %d): %s", e.Backend, e.StatusCode, e.Message)
}

// InvalidRequestError represents a fault in the request itself (HTTP 400,
// 404, 422). Retrying elsewhere would fail identically, so the router
// aborts without fallback.
type InvalidRequestError struct {
	// Backend is the name of the back-end that rejected the request
	Backend string

	// StatusCode is the HTTP status code
	StatusCode int

	// Message is the error message
	Message string
}

// Error implements the error interface.
func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("backend %q rejected request (status %d): %s", e.Backend, e.StatusCode, e.Message)
}

// Class buckets every attempt failure for the fallback decision, the
// journal, and metrics labels.
type Class string

const (
	ClassTransient   Class = "transient"
	ClassTimeout     Class = "timeout"
	ClassRateLimit   Class = "rate_limited"
	ClassAuth        Class = "auth"
	ClassInvalid     Class = "invalid"
	ClassCircuitOpen Class = "circuit_open"
)

// Retryable reports whether the router should fall back to the next
// candidate after a failure of this class. Auth failures are retryable:
// the rejected credential is quarantined, but the request itself moves
// on. Only a fault in the request is terminal.
func (c Class) Retryable() bool {
	switch c {
	case ClassTransient, ClassTimeout, ClassRateLimit, ClassAuth, ClassCircuitOpen:
		return true
	}
	return false
}

// FatalForCredential reports whether a failure of this class quarantines
// the credential immediately, bypassing the error threshold.
func (c Class) FatalForCredential() bool {
	return c == ClassAuth
}

// Classify maps any attempt error to its taxonomy class. Unknown errors
// (connection resets, DNS failures) classify as transient.
func Classify(err error) Class {
	if err == nil {
		return ""
	}

	var openErr *breaker.OpenError
	if errors.As(err, &openErr) {
		return ClassCircuitOpen
	}
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return ClassAuth
	}
	var invalidErr *InvalidRequestError
	if errors.As(err, &invalidErr) {
		return ClassInvalid
	}
	var rateErr *RateLimitError
	if errors.As(err, &rateErr) {
		return ClassRateLimit
	}
	var timeoutErr *TimeoutError
	if errors.As(err, &timeoutErr) {
		return ClassTimeout
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ClassTimeout
	}
	return ClassTransient
}
