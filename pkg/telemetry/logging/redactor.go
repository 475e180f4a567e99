package logging

import (
	"log/slog"
	"regexp"
	"strings"
)

// Redactor masks credential material in log output. It is installed as a
// slog ReplaceAttr hook, so every attribute and message passes through it
// before reaching the handler.
type Redactor struct {
	patterns map[string]*redactPattern
}

// redactPattern contains a compiled regex and replacement string.
type redactPattern struct {
	name        string
	regex       *regexp.Regexp
	replacement string
}

// Built-in pattern names.
const (
	PatternAPIKey      = "api_key"
	PatternBearerToken = "bearer_token"
	PatternQueryKey    = "query_key"
)

// NewRedactor creates a Redactor with the built-in credential patterns.
func NewRedactor() *Redactor {
	r := &Redactor{
		patterns: make(map[string]*redactPattern),
	}
	r.addDefaultPatterns()
	return r
}

// addDefaultPatterns adds the built-in credential patterns.
func (r *Redactor) addDefaultPatterns() {
	patterns := map[string]struct {
		regex       string
		replacement string
	}{
		// Raw API keys by their well-known prefixes. Order within the
		// alternation matters: sk-or- must match before sk-.
		PatternAPIKey: {
			regex:       `(gsk_|sk-or-|sk-|hf_|AIza)[A-Za-z0-9_\-]{8,}`,
			replacement: "$1***",
		},

		// Authorization header values.
		PatternBearerToken: {
			regex:       `Bearer\s+[a-zA-Z0-9\-._~+/]+=*`,
			replacement: "Bearer ***",
		},

		// Keys carried in query strings, as gemini and serpapi do.
		PatternQueryKey: {
			regex:       `([?&](?:key|api_key|apikey|token|access_token)=)[^&\s"]+`,
			replacement: "$1***",
		},
	}

	for name, p := range patterns {
		r.patterns[name] = &redactPattern{
			name:        name,
			regex:       regexp.MustCompile(p.regex),
			replacement: p.replacement,
		}
	}
}

// RedactString masks credential material in a string value.
func (r *Redactor) RedactString(value string) string {
	if value == "" {
		return value
	}

	redacted := value
	for _, pattern := range r.patterns {
		redacted = pattern.regex.ReplaceAllString(redacted, pattern.replacement)
	}

	return redacted
}

// ReplaceAttr is a slog.HandlerOptions.ReplaceAttr hook. Attributes whose
// key names credential material are masked wholesale; every other string
// value is scanned for the built-in patterns.
func (r *Redactor) ReplaceAttr(groups []string, a slog.Attr) slog.Attr {
	switch a.Key {
	case slog.TimeKey, slog.LevelKey, slog.SourceKey:
		return a
	}

	if a.Value.Kind() != slog.KindString {
		return a
	}

	if a.Key != slog.MessageKey && r.isSensitiveKey(a.Key) {
		a.Value = slog.StringValue(maskValue(a.Value.String()))
		return a
	}

	a.Value = slog.StringValue(r.RedactString(a.Value.String()))
	return a
}

// isSensitiveKey reports whether a key name indicates credential material.
func (r *Redactor) isSensitiveKey(key string) bool {
	lowerKey := strings.ToLower(key)

	sensitiveKeys := []string{
		"password", "passwd",
		"secret", "token",
		"api_key", "apikey",
		"authorization", "credential",
	}

	for _, sensitive := range sensitiveKeys {
		if strings.Contains(lowerKey, sensitive) {
			return true
		}
	}

	return false
}

// maskValue masks a sensitive value, keeping a short prefix as a hint.
func maskValue(v string) string {
	if v == "" {
		return ""
	}
	if len(v) <= 4 {
		return "***"
	}
	return v[:4] + "***"
}
