package secrets

import (
	"fmt"
	"strings"
)

// FieldError is a validation error for one credential entry.
type FieldError struct {
	// Field is the dotted path to the entry (e.g., "credentials.groq[2]").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError collects every malformed credential found during
// resolution. Secret values never appear in the messages.
type ValidationError struct {
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "credential validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("credential validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("credential validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}
