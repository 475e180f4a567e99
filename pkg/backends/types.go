// Package backends defines the executor contract between the router and
// the third-party services, plus the error taxonomy the router's fallback
// decisions are based on.
//
// Payloads and response bodies are opaque byte blobs: the relay forwards
// them untouched and never parses model output.
package backends

import (
	"context"
	"encoding/json"
	"time"

	"baatcheet/relay/pkg/tasks"
)

// TaskRequest is one attempt against one back-end with one credential.
type TaskRequest struct {
	// Task is the capability being exercised.
	Task tasks.Task

	// Payload is the caller's request body, forwarded verbatim.
	Payload json.RawMessage

	// Secret is the credential for this attempt.
	Secret string
}

// TaskResult is a successful attempt's outcome.
type TaskResult struct {
	// Body is the back-end's response body, unparsed.
	Body json.RawMessage

	// StatusCode is the upstream HTTP status.
	StatusCode int

	// Latency is the attempt's wall-clock duration.
	Latency time.Duration
}

// ChunkKind discriminates stream events.
type ChunkKind string

const (
	// ChunkStart opens a stream. Emitted once by the router, never by
	// executors.
	ChunkStart ChunkKind = "start"

	// ChunkContent carries one piece of model output.
	ChunkContent ChunkKind = "content"

	// ChunkError terminates a stream after a failure.
	ChunkError ChunkKind = "error"

	// ChunkDone terminates a stream normally.
	ChunkDone ChunkKind = "done"
)

// StreamChunk is one event of a streaming attempt. A stream carries zero or
// more content chunks followed by exactly one terminal chunk (done or
// error), after which the channel is closed.
type StreamChunk struct {
	Kind ChunkKind

	// Data is the chunk payload for content chunks, forwarded verbatim.
	Data []byte

	// Err is set on error chunks.
	Err error
}

// Executor performs attempts against one back-end. Implementations must be
// safe for concurrent use; the router calls one executor from many logical
// requests at once.
type Executor interface {
	// Name returns the back-end's name.
	Name() string

	// Do performs a non-streaming attempt. A non-nil error is one of the
	// taxonomy types in this package.
	Do(ctx context.Context, req *TaskRequest) (*TaskResult, error)

	// DoStream performs a streaming attempt. An error return means the
	// stream could not be established and nothing was emitted. Once the
	// channel is returned, all outcomes including failures arrive as
	// chunks.
	DoStream(ctx context.Context, req *TaskRequest) (<-chan *StreamChunk, error)
}
