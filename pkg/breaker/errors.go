package breaker

import (
	"errors"
	"fmt"
	"time"
)

// ErrOpen is the sentinel matched by errors.Is for any rejection caused by
// a non-closed circuit.
var ErrOpen = errors.New("circuit open")

// OpenError is returned by Execute when the circuit rejects an attempt
// without running the operation. It is synthesized locally; no network
// call was made.
type OpenError struct {
	// Backend is the guarded back-end's name.
	Backend string

	// State is the circuit state that caused the rejection.
	State State

	// RetryIn is the remaining wait before the circuit will admit a probe.
	// Zero when the circuit is half-open and merely busy with a probe.
	RetryIn time.Duration
}

func (e *OpenError) Error() string {
	if e.RetryIn > 0 {
		return fmt.Sprintf("circuit for %s is %s, retry in %s", e.Backend, e.State, e.RetryIn.Round(time.Millisecond))
	}
	return fmt.Sprintf("circuit for %s is %s", e.Backend, e.State)
}

// Is makes errors.Is(err, ErrOpen) match any OpenError.
func (e *OpenError) Is(target error) bool {
	return target == ErrOpen
}

// NewOpenError creates an OpenError for the given back-end and state.
func NewOpenError(backend string, state State, retryIn time.Duration) *OpenError {
	if retryIn < 0 {
		retryIn = 0
	}
	return &OpenError{Backend: backend, State: state, RetryIn: retryIn}
}
