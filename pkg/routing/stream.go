package routing

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"baatcheet/relay/pkg/backends"
	"baatcheet/relay/pkg/journal"
	"baatcheet/relay/pkg/tasks"
	"baatcheet/relay/pkg/telemetry/logging"
)

// ExecuteStream routes one streaming request. Every outcome arrives on the
// returned channel: exactly one start chunk precedes the first event of
// the winning attempt, and exactly one done or error chunk ends the
// stream. The channel closes after the terminal chunk.
//
// Fallback only happens while nothing has reached the caller. Once the
// stream has started, a failure ends it with an error chunk; the partial
// output cannot be replayed against another back-end.
func (r *Router) ExecuteStream(ctx context.Context, task tasks.Task, payload json.RawMessage) <-chan *backends.StreamChunk {
	out := make(chan *backends.StreamChunk)
	go r.streamLoop(ctx, task, payload, out)
	return out
}

func (r *Router) streamLoop(ctx context.Context, task tasks.Task, payload json.RawMessage, out chan<- *backends.StreamChunk) {
	defer close(out)

	requestID := logging.GetRequestID(ctx)
	if requestID == "" {
		requestID = uuid.New().String()
		ctx = logging.WithRequestID(ctx, requestID)
	}
	logger := r.logger.With("request_id", requestID, "task", string(task))

	r.stats.RecordRequest(string(task))

	send := func(chunk *backends.StreamChunk) bool {
		select {
		case out <- chunk:
			return true
		case <-ctx.Done():
			return false
		}
	}

	tried := make(map[string]bool)
	var details []AttemptDetail
	var lastErr error
	depth := 0

	// committed flips once anything has reached the caller; from then on
	// fallback is off the table.
	committed := false

	for {
		if ctx.Err() != nil {
			r.stats.RecordFailure()
			return
		}
		if r.cfg.MaxFallbacks > 0 && depth > r.cfg.MaxFallbacks {
			logger.Warn("fallback cap reached", "max_fallbacks", r.cfg.MaxFallbacks)
			break
		}

		backend, ok := r.manager.BestBackendForTask(task, tried)
		if !ok {
			break
		}
		executor, ok := r.manager.Executor(backend)
		if !ok {
			logger.Debug("back-end has no executor", "backend", backend)
			tried[backend] = true
			continue
		}
		lease, ok := r.manager.NextCredential(backend)
		if !ok {
			logger.Debug("no credential available", "backend", backend)
			tried[backend] = true
			continue
		}
		release, ok := r.manager.Guard().Acquire(backend)
		if !ok {
			logger.Debug("rate guard declined", "backend", backend)
			tried[backend] = true
			continue
		}

		req := &backends.TaskRequest{Task: task, Payload: payload, Secret: lease.Secret}
		started := time.Now()

		// No attempt timeout for streams: the executor bounds the wait
		// for response headers, and a healthy stream may run long. The
		// caller's context bounds everything else. The breaker holds the
		// attempt open for the whole stream, so a half-open probe only
		// closes the circuit after a stream completes.
		err := r.manager.Breaker(backend).Execute(ctx, func(opCtx context.Context) error {
			chunks, opErr := executor.DoStream(opCtx, req)
			if opErr != nil {
				return opErr
			}
			for chunk := range chunks {
				if chunk.Kind == backends.ChunkError {
					return chunk.Err
				}
				if !committed {
					if !send(&backends.StreamChunk{Kind: backends.ChunkStart}) {
						return opCtx.Err()
					}
					committed = true
				}
				if !send(chunk) {
					return opCtx.Err()
				}
				if chunk.Kind == backends.ChunkDone {
					return nil
				}
			}
			return opCtx.Err()
		})
		release()
		elapsed := time.Since(started)

		r.stats.RecordAttempt(backend)
		if depth > 0 {
			r.stats.RecordFallback()
		}

		if err == nil {
			if !committed {
				// Upstream closed cleanly without a terminal chunk; the
				// caller still gets a well-formed empty stream.
				if send(&backends.StreamChunk{Kind: backends.ChunkStart}) {
					send(&backends.StreamChunk{Kind: backends.ChunkDone})
				}
				committed = true
			}
			r.manager.MarkSuccess(backend, lease.Index)
			r.record(&journal.AttemptRecord{
				RequestID:             requestID,
				Task:                  string(task),
				Backend:               backend,
				CredentialIndex:       lease.Index,
				CredentialFingerprint: lease.Fingerprint,
				Outcome:               journal.OutcomeSuccess,
				StartedAt:             started,
				Latency:               elapsed,
				Streamed:              true,
				FallbackDepth:         depth,
			})
			if r.observer != nil {
				r.observer.RecordAttempt(string(task), backend, string(journal.OutcomeSuccess), elapsed)
				r.observer.RecordFallbackDepth(depth)
			}
			r.stats.RecordSuccess()
			logger.Info("stream served",
				"backend", backend,
				"fallbacks", depth,
				"duration_ms", elapsed.Milliseconds())
			return
		}

		if errors.Is(err, context.Canceled) {
			r.stats.RecordFailure()
			logger.Debug("stream canceled", "backend", backend)
			return
		}

		class := backends.Classify(err)
		r.record(&journal.AttemptRecord{
			RequestID:             requestID,
			Task:                  string(task),
			Backend:               backend,
			CredentialIndex:       lease.Index,
			CredentialFingerprint: lease.Fingerprint,
			Outcome:               journal.Outcome(class),
			Error:                 err.Error(),
			StartedAt:             started,
			Latency:               elapsed,
			Streamed:              true,
			FallbackDepth:         depth,
		})
		if r.observer != nil {
			r.observer.RecordAttempt(string(task), backend, string(class), elapsed)
		}
		r.markCredential(backend, lease.Index, class, err.Error())

		if committed || !class.Retryable() {
			r.stats.RecordFailure()
			logger.Warn("stream failed",
				"backend", backend,
				"class", string(class),
				"committed", committed,
				"error", err.Error())
			send(&backends.StreamChunk{Kind: backends.ChunkError, Err: err})
			return
		}

		details = append(details, AttemptDetail{
			Backend:     backend,
			Fingerprint: lease.Fingerprint,
			Class:       class,
		})
		lastErr = err
		depth++
		tried[backend] = true
		logger.Warn("stream attempt failed, falling back",
			"backend", backend,
			"class", string(class),
			"error", err.Error())
	}

	r.stats.RecordFailure()
	r.stats.RecordExhaustion()
	if r.observer != nil {
		r.observer.RecordExhaustion(string(task))
	}
	exhaustion := &ExhaustionError{Task: task, Attempts: details, LastError: lastErr}
	logger.Error("stream exhausted", "attempts", len(details))
	send(&backends.StreamChunk{Kind: backends.ChunkError, Err: exhaustion})
}
