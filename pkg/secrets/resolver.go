package secrets

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultKeyPrefixes maps back-end names to the prefix their API keys
// are issued with. Back-ends without an entry only get the generic
// non-empty, no-whitespace check.
var DefaultKeyPrefixes = map[string]string{
	"groq":        "gsk_",
	"deepseek":    "sk-",
	"openrouter":  "sk-or-",
	"huggingface": "hf_",
	"gemini":      "AIza",
}

// Resolver merges secrets from multiple sources and validates key
// formats. Later sources override earlier ones per back-end, so a
// credentials file beats the environment for any back-end it names.
type Resolver struct {
	sources  []Source
	prefixes map[string]string
}

// NewResolver creates a resolver over the given sources. A nil prefix
// map falls back to DefaultKeyPrefixes.
func NewResolver(prefixes map[string]string, sources ...Source) *Resolver {
	if prefixes == nil {
		prefixes = DefaultKeyPrefixes
	}
	return &Resolver{sources: sources, prefixes: prefixes}
}

// Resolve loads every source in order and returns the merged, validated
// secrets per back-end. A source load failure aborts resolution; format
// problems across all back-ends are collected into a ValidationError.
func (r *Resolver) Resolve() (map[string][]string, error) {
	merged := make(map[string][]string)
	for _, source := range r.sources {
		loaded, err := source.Load()
		if err != nil {
			return nil, err
		}
		for backend, values := range loaded {
			merged[backend] = append([]string(nil), values...)
		}
	}

	var fieldErrors []FieldError
	backends := make([]string, 0, len(merged))
	for backend := range merged {
		backends = append(backends, backend)
	}
	sort.Strings(backends)

	for _, backend := range backends {
		prefix := r.prefixes[backend]
		for i, secret := range merged[backend] {
			if msg := checkSecret(secret, prefix); msg != "" {
				fieldErrors = append(fieldErrors, FieldError{
					Field:   fmt.Sprintf("credentials.%s[%d]", backend, i),
					Message: msg,
				})
			}
		}
	}

	if len(fieldErrors) > 0 {
		return nil, ValidationError{Errors: fieldErrors}
	}
	return merged, nil
}

// checkSecret returns an empty string when the secret passes the format
// check, otherwise a message describing the problem. The secret value
// itself is never part of the message.
func checkSecret(secret, prefix string) string {
	if secret == "" {
		return "secret is empty"
	}
	if strings.ContainsAny(secret, " \t\r\n") {
		return "secret contains whitespace"
	}
	if prefix != "" && !strings.HasPrefix(secret, prefix) {
		return fmt.Sprintf("key must start with %q", prefix)
	}
	return ""
}
