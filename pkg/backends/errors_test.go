package backends

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"baatcheet/relay/pkg/breaker"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Class
	}{
		{
			name: "transient",
			err:  &TransientError{Backend: "groq", StatusCode: 502, Message: "bad gateway"},
			want: ClassTransient,
		},
		{
			name: "timeout",
			err:  &TimeoutError{Backend: "groq", Timeout: 10 * time.Second},
			want: ClassTimeout,
		},
		{
			name: "rate limit",
			err:  &RateLimitError{Backend: "groq", RetryAfter: time.Minute},
			want: ClassRateLimit,
		},
		{
			name: "auth",
			err:  &AuthError{Backend: "groq", StatusCode: 401, Message: "invalid key"},
			want: ClassAuth,
		},
		{
			name: "invalid request",
			err:  &InvalidRequestError{Backend: "groq", StatusCode: 400, Message: "bad payload"},
			want: ClassInvalid,
		},
		{
			name: "circuit open",
			err:  breaker.NewOpenError("groq", breaker.StateOpen, 5*time.Second),
			want: ClassCircuitOpen,
		},
		{
			name: "wrapped taxonomy error",
			err:  fmt.Errorf("attempt failed: %w", &AuthError{Backend: "groq", StatusCode: 403}),
			want: ClassAuth,
		},
		{
			name: "bare deadline",
			err:  context.DeadlineExceeded,
			want: ClassTimeout,
		},
		{
			name: "unknown error",
			err:  errors.New("connection reset by peer"),
			want: ClassTransient,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestClassRetryable(t *testing.T) {
	retryable := []Class{ClassTransient, ClassTimeout, ClassRateLimit, ClassAuth, ClassCircuitOpen}
	for _, c := range retryable {
		if !c.Retryable() {
			t.Errorf("%s.Retryable() = false, want true", c)
		}
	}

	if ClassInvalid.Retryable() {
		t.Error("invalid.Retryable() = true, want false: a bad request fails everywhere")
	}
}

func TestClassFatalForCredential(t *testing.T) {
	if !ClassAuth.FatalForCredential() {
		t.Error("auth errors must quarantine the credential")
	}
	for _, c := range []Class{ClassTransient, ClassTimeout, ClassRateLimit, ClassCircuitOpen, ClassInvalid} {
		if c.FatalForCredential() {
			t.Errorf("%s.FatalForCredential() = true, want false", c)
		}
	}
}

func TestTimeoutErrorMatchesDeadline(t *testing.T) {
	err := fmt.Errorf("wrap: %w", &TimeoutError{Backend: "groq"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("TimeoutError should match context.DeadlineExceeded")
	}
}
