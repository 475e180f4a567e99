// Package ratelimit guards back-ends against being hammered by the relay
// itself.
//
// Each back-end gets an independent Guard entry combining two dimensions:
//
//   - Request rate: a token bucket refilled at the configured
//     requests-per-minute rate, with a configurable burst.
//   - In-flight attempts: a counting semaphore capping simultaneous
//     attempts against the back-end.
//
// The provider manager consults HasCapacity during candidate selection (a
// non-consuming read), and the router calls Acquire around each attempt.
// A back-end with no configured limits is unlimited.
//
// All entries are independent: exhausting one back-end's budget never
// blocks another's.
package ratelimit
