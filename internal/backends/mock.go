// Package backends provides test doubles for the executor contract.
package backends

import (
	"context"
	"encoding/json"
	"sync"

	"baatcheet/relay/pkg/backends"
	"baatcheet/relay/pkg/tasks"
)

// Call records one attempt a MockExecutor received.
type Call struct {
	Task     tasks.Task
	Payload  json.RawMessage
	Secret   string
	Streamed bool
}

type step struct {
	res    *backends.TaskResult
	chunks []*backends.StreamChunk
	err    error
}

// MockExecutor replays scripted outcomes in order and records every call.
// With an empty script every attempt succeeds with an empty JSON body.
// Safe for concurrent use.
type MockExecutor struct {
	BackendName string

	mu    sync.Mutex
	steps []step
	calls []Call
}

var _ backends.Executor = (*MockExecutor)(nil)

// NewMockExecutor creates a mock executor reporting the given name.
func NewMockExecutor(name string) *MockExecutor {
	return &MockExecutor{BackendName: name}
}

// Name returns the configured back-end name.
func (m *MockExecutor) Name() string {
	return m.BackendName
}

// EnqueueSuccess scripts one successful attempt returning body.
func (m *MockExecutor) EnqueueSuccess(body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = append(m.steps, step{
		res: &backends.TaskResult{Body: []byte(body), StatusCode: 200},
	})
}

// EnqueueError scripts one failed attempt. For streams the failure happens
// before anything is emitted.
func (m *MockExecutor) EnqueueError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = append(m.steps, step{err: err})
}

// EnqueueStream scripts one streaming attempt emitting exactly the given
// chunks. The caller includes the terminal done or error chunk.
func (m *MockExecutor) EnqueueStream(chunks ...*backends.StreamChunk) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = append(m.steps, step{chunks: chunks})
}

// Calls returns a copy of every recorded call in order.
func (m *MockExecutor) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns how many attempts the mock has received.
func (m *MockExecutor) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// nextLocked pops the next scripted step, defaulting to success when the
// script has run out.
func (m *MockExecutor) nextLocked() step {
	if len(m.steps) == 0 {
		return step{}
	}
	next := m.steps[0]
	m.steps = m.steps[1:]
	return next
}

// Do replays the next scripted outcome for a non-streaming attempt.
func (m *MockExecutor) Do(_ context.Context, req *backends.TaskRequest) (*backends.TaskResult, error) {
	m.mu.Lock()
	next := m.nextLocked()
	m.calls = append(m.calls, Call{
		Task:     req.Task,
		Payload:  req.Payload,
		Secret:   req.Secret,
		Streamed: false,
	})
	m.mu.Unlock()

	if next.err != nil {
		return nil, next.err
	}
	if next.res != nil {
		return next.res, nil
	}
	return &backends.TaskResult{Body: []byte(`{}`), StatusCode: 200}, nil
}

// DoStream replays the next scripted outcome for a streaming attempt. The
// scripted chunks arrive on a pre-filled channel that closes after the
// last one.
func (m *MockExecutor) DoStream(_ context.Context, req *backends.TaskRequest) (<-chan *backends.StreamChunk, error) {
	m.mu.Lock()
	next := m.nextLocked()
	m.calls = append(m.calls, Call{
		Task:     req.Task,
		Payload:  req.Payload,
		Secret:   req.Secret,
		Streamed: true,
	})
	m.mu.Unlock()

	if next.err != nil {
		return nil, next.err
	}
	out := make(chan *backends.StreamChunk, len(next.chunks))
	for _, chunk := range next.chunks {
		out <- chunk
	}
	close(out)
	return out, nil
}
