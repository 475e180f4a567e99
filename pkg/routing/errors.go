package routing

import (
	"errors"
	"fmt"
	"strings"

	"baatcheet/relay/pkg/backends"
	"baatcheet/relay/pkg/tasks"
)

// Routing errors that can be checked with errors.Is(). Both match through
// *ExhaustionError; which one depends on whether any attempt was made.
var (
	// ErrNoBackends is returned when no back-end was eligible for the
	// task at all: nothing advertises it, or every candidate is
	// capacity-exhausted or circuit-open.
	ErrNoBackends = errors.New("no back-end available for task")

	// ErrExhausted is returned when at least one back-end was attempted
	// and every eligible one failed.
	ErrExhausted = errors.New("all eligible back-ends failed")
)

// AttemptDetail summarizes one failed attempt inside an ExhaustionError.
type AttemptDetail struct {
	// Backend is the back-end that was tried.
	Backend string `json:"backend"`

	// Fingerprint identifies the credential used, when one was leased.
	Fingerprint string `json:"fingerprint,omitempty"`

	// Class is the failure classification for the attempt.
	Class backends.Class `json:"class"`
}

// ExhaustionError is returned when a request ran out of back-ends before
// any attempt succeeded.
type ExhaustionError struct {
	// Task is the requested task.
	Task tasks.Task

	// Attempts holds the per-back-end failures in the order they were
	// tried. It is empty when no candidate was ever eligible.
	Attempts []AttemptDetail

	// LastError is the error from the final attempt, if any.
	LastError error
}

// Error implements the error interface.
func (e *ExhaustionError) Error() string {
	if len(e.Attempts) == 0 {
		return fmt.Sprintf("no back-end available for task %q", e.Task)
	}
	parts := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		parts[i] = fmt.Sprintf("%s: %s", a.Backend, a.Class)
	}
	return fmt.Sprintf("task %q exhausted %d back-ends (%s)",
		e.Task, len(e.Attempts), strings.Join(parts, ", "))
}

// Is implements error matching for errors.Is(). An exhaustion with zero
// attempts matches ErrNoBackends, one with attempts matches ErrExhausted;
// never both.
func (e *ExhaustionError) Is(target error) bool {
	switch target {
	case ErrNoBackends:
		return len(e.Attempts) == 0
	case ErrExhausted:
		return len(e.Attempts) > 0
	}
	return false
}

// Unwrap returns the last attempt's error for error chain traversal.
func (e *ExhaustionError) Unwrap() error {
	return e.LastError
}
