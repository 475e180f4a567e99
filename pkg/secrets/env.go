// Package secrets loads back-end API keys from the process environment
// and from credential files, merges them, and validates their format
// before they reach a credential pool.
package secrets

import (
	"fmt"
	"os"
	"strings"
)

// Source supplies an ordered list of secrets per back-end name.
type Source interface {
	// Load returns a map of back-end name to ordered secrets. Back-ends
	// with no secrets are absent from the map.
	Load() (map[string][]string, error)
}

// EnvSource reads secrets from environment variables. Each back-end
// declares a base variable name; additional keys use numbered suffixes:
//
//	GROQ_API_KEY, GROQ_API_KEY2, GROQ_API_KEY3, ...
//
// Scanning stops at the first unset or empty variable, so the numbering
// must be contiguous.
type EnvSource struct {
	bases map[string]string
}

// NewEnvSource creates an environment source from a map of back-end
// name to base variable name.
func NewEnvSource(bases map[string]string) *EnvSource {
	copied := make(map[string]string, len(bases))
	for backend, base := range bases {
		copied[backend] = base
	}
	return &EnvSource{bases: copied}
}

// Load scans the environment for every configured back-end.
func (s *EnvSource) Load() (map[string][]string, error) {
	out := make(map[string][]string)
	for backend, base := range s.bases {
		if base == "" {
			continue
		}
		values := scanNumbered(base)
		if len(values) > 0 {
			out[backend] = values
		}
	}
	return out, nil
}

// scanNumbered collects BASE, BASE2, BASE3, ... until the first gap.
func scanNumbered(base string) []string {
	var values []string
	for i := 1; ; i++ {
		name := base
		if i > 1 {
			name = fmt.Sprintf("%s%d", base, i)
		}
		value, ok := os.LookupEnv(name)
		if !ok {
			break
		}
		value = strings.TrimSpace(value)
		if value == "" {
			break
		}
		values = append(values, value)
	}
	return values
}
