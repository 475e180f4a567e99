package routing

import (
	"errors"
	"strings"
	"testing"

	"baatcheet/relay/pkg/backends"
	"baatcheet/relay/pkg/tasks"
)

func TestExhaustionErrorMatching(t *testing.T) {
	tests := []struct {
		name          string
		err           *ExhaustionError
		wantNoBackend bool
		wantExhausted bool
	}{
		{
			name:          "no attempts",
			err:           &ExhaustionError{Task: tasks.TaskChat},
			wantNoBackend: true,
			wantExhausted: false,
		},
		{
			name: "with attempts",
			err: &ExhaustionError{
				Task: tasks.TaskChat,
				Attempts: []AttemptDetail{
					{Backend: "groq", Class: backends.ClassTransient},
				},
			},
			wantNoBackend: false,
			wantExhausted: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.Is(tt.err, ErrNoBackends); got != tt.wantNoBackend {
				t.Errorf("Is(ErrNoBackends) = %v, want %v", got, tt.wantNoBackend)
			}
			if got := errors.Is(tt.err, ErrExhausted); got != tt.wantExhausted {
				t.Errorf("Is(ErrExhausted) = %v, want %v", got, tt.wantExhausted)
			}
		})
	}
}

func TestExhaustionErrorMessage(t *testing.T) {
	empty := &ExhaustionError{Task: tasks.TaskOCR}
	if got := empty.Error(); !strings.Contains(got, `"ocr"`) {
		t.Errorf("Error() = %q, want the task named", got)
	}

	full := &ExhaustionError{
		Task: tasks.TaskChat,
		Attempts: []AttemptDetail{
			{Backend: "groq", Class: backends.ClassTransient},
			{Backend: "gemini", Class: backends.ClassRateLimit},
		},
	}
	got := full.Error()
	for _, want := range []string{"2 back-ends", "groq: transient", "gemini: rate_limited"} {
		if !strings.Contains(got, want) {
			t.Errorf("Error() = %q, missing %q", got, want)
		}
	}
}

func TestExhaustionErrorUnwrap(t *testing.T) {
	cause := &backends.TransientError{Backend: "groq", Message: "down"}
	err := &ExhaustionError{
		Task:      tasks.TaskChat,
		Attempts:  []AttemptDetail{{Backend: "groq", Class: backends.ClassTransient}},
		LastError: cause,
	}

	var transient *backends.TransientError
	if !errors.As(err, &transient) {
		t.Fatal("the last attempt's error should be reachable through the chain")
	}
	if transient.Backend != "groq" {
		t.Errorf("unwrapped backend = %q", transient.Backend)
	}
}
