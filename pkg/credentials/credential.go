// Package credentials manages per-back-end API key pools.
//
// Each back-end owns one Pool holding every credential usable against it.
// The pool is the exclusive owner of the credentials' mutable counters:
// selection, success/error bookkeeping, and the daily reset all serialize
// on the pool's mutex. Selection spreads load evenly across available
// credentials instead of exhausting one before touching the next.
package credentials

import (
	"fmt"
	"time"
)

// Credential is one API key bound to one back-end, together with its live
// usage state. All fields are owned and mutated only by the containing Pool.
type Credential struct {
	// secret is the raw API key. It never appears in snapshots or logs.
	secret string

	// index is the credential's ordinal position within its pool.
	index int

	// requestCount is the number of attempts charged to this credential
	// since the last daily reset.
	requestCount int

	// errorCount is the number of consecutive failed attempts. Reset to
	// zero by any success.
	errorCount int

	// lastUsed is when this credential was last selected or marked.
	lastUsed time.Time

	// lastError is the message of the most recent failure.
	lastError string

	// available is false while the credential is quarantined, either by
	// crossing the error threshold or by a fatal error.
	available bool

	// dailyLimit is the capacity ceiling: once requestCount reaches it the
	// credential is ineligible until the next daily reset.
	dailyLimit int
}

// Fingerprint returns a loggable identifier for a secret: the last four
// characters prefixed with an ellipsis. Short secrets are fully masked.
func Fingerprint(secret string) string {
	const visible = 4
	if len(secret) <= visible {
		return "****"
	}
	return "…" + secret[len(secret)-visible:]
}

// remaining returns the credential's unused daily capacity.
func (c *Credential) remaining() int {
	r := c.dailyLimit - c.requestCount
	if r < 0 {
		return 0
	}
	return r
}

// eligible reports whether the credential may be selected: it must be
// available and under its daily limit.
func (c *Credential) eligible() bool {
	return c.available && c.requestCount < c.dailyLimit
}

// Lease is a loan of one credential to the caller for a single attempt.
// It carries everything the caller needs without exposing the pool's
// internal record.
type Lease struct {
	// Backend is the owning back-end's name.
	Backend string

	// Index identifies the credential for MarkSuccess/MarkError.
	Index int

	// Secret is the raw API key for the attempt.
	Secret string

	// Fingerprint is the redacted form of Secret for logs and diagnostics.
	Fingerprint string
}

// String implements fmt.Stringer without leaking the secret.
func (l *Lease) String() string {
	return fmt.Sprintf("%s[%d] %s", l.Backend, l.Index, l.Fingerprint)
}
