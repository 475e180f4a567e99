// Package limits groups the relay's self-imposed pacing mechanisms.
//
// Free-tier back-ends enforce their own quotas server-side; the
// subpackages here keep the relay from tripping those quotas in the
// first place:
//
//   - ratelimit: per-back-end request rate and in-flight attempt guards.
//
// Daily credential budgets are deliberately not part of this package:
// per-key bookkeeping belongs to the credential pools in pkg/credentials.
package limits
