package capability

import (
	"fmt"
	"strings"
)

// FieldError is a validation error for one entry of the capability table.
type FieldError struct {
	// Field is the dotted path to the entry (e.g., "capabilities.chat[1]").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError collects every problem found while building a registry,
// so a misconfigured table reports all entries at once.
type ValidationError struct {
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "capability table validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("capability table validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("capability table validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}
