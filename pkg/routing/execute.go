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

// Execute routes one non-streaming request. It walks back-ends in
// preference order, excluding each failed one, until an attempt succeeds,
// the failure class rules out fallback, or no eligible back-end remains.
//
// A request fault (bad payload, unsupported parameters) aborts with the
// attempt's error: it would fail identically everywhere. Every other
// failure class moves on to the next back-end. When nothing is left the
// request fails with an *ExhaustionError.
func (r *Router) Execute(ctx context.Context, task tasks.Task, payload json.RawMessage) (*Result, error) {
	requestID := logging.GetRequestID(ctx)
	if requestID == "" {
		requestID = uuid.New().String()
		ctx = logging.WithRequestID(ctx, requestID)
	}
	logger := r.logger.With("request_id", requestID, "task", string(task))

	r.stats.RecordRequest(string(task))

	tried := make(map[string]bool)
	var details []AttemptDetail
	var lastErr error
	depth := 0

	for {
		if err := ctx.Err(); err != nil {
			r.stats.RecordFailure()
			return nil, err
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
			// Capacity raced away between selection and lease.
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

		var res *backends.TaskResult
		attemptCtx, cancel := context.WithTimeout(ctx, r.cfg.AttemptTimeout)
		err := r.manager.Breaker(backend).Execute(attemptCtx, func(opCtx context.Context) error {
			var opErr error
			res, opErr = executor.Do(opCtx, req)
			return opErr
		})
		cancel()
		release()
		elapsed := time.Since(started)

		r.stats.RecordAttempt(backend)
		if depth > 0 {
			r.stats.RecordFallback()
		}

		if err == nil {
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
				FallbackDepth:         depth,
			})
			if r.observer != nil {
				r.observer.RecordAttempt(string(task), backend, string(journal.OutcomeSuccess), elapsed)
				r.observer.RecordFallbackDepth(depth)
			}
			r.stats.RecordSuccess()
			logger.Info("request served",
				"backend", backend,
				"fallbacks", depth,
				"latency_ms", elapsed.Milliseconds())
			return &Result{
				Body:       res.Body,
				StatusCode: res.StatusCode,
				Backend:    backend,
				Latency:    elapsed,
				Fallbacks:  depth,
			}, nil
		}

		if errors.Is(err, context.Canceled) {
			// The caller is gone; there is no outcome to score.
			r.stats.RecordFailure()
			logger.Debug("request canceled", "backend", backend)
			return nil, err
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
			FallbackDepth:         depth,
		})
		if r.observer != nil {
			r.observer.RecordAttempt(string(task), backend, string(class), elapsed)
		}
		r.markCredential(backend, lease.Index, class, err.Error())

		if !class.Retryable() {
			r.stats.RecordFailure()
			logger.Warn("request aborted",
				"backend", backend,
				"class", string(class),
				"error", err.Error())
			return nil, err
		}

		details = append(details, AttemptDetail{
			Backend:     backend,
			Fingerprint: lease.Fingerprint,
			Class:       class,
		})
		lastErr = err
		depth++
		tried[backend] = true
		logger.Warn("attempt failed, falling back",
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
	logger.Error("request exhausted", "attempts", len(details))
	return nil, exhaustion
}
