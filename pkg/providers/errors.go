package providers

import "fmt"

// UnknownBackendError is returned by administrative operations naming a
// back-end the manager does not hold.
type UnknownBackendError struct {
	// Backend is the name that failed to resolve.
	Backend string
}

// Error implements the error interface.
func (e *UnknownBackendError) Error() string {
	return fmt.Sprintf("unknown back-end %q", e.Backend)
}
