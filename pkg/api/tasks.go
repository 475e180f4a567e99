package api

import (
	"encoding/json"
	"io"
	"net/http"

	"baatcheet/relay/pkg/backends"
	"baatcheet/relay/pkg/tasks"
	"baatcheet/relay/pkg/telemetry/logging"
)

// taskResponse is the envelope for a completed task request.
type taskResponse struct {
	// RequestID ties the response to journal entries and log lines.
	RequestID string `json:"request_id"`

	// Task is the task kind that was executed.
	Task string `json:"task"`

	// Backend is the back-end that served the request.
	Backend string `json:"backend"`

	// LatencyMS is the serving attempt's duration in milliseconds.
	LatencyMS int64 `json:"latency_ms"`

	// Fallbacks is how many back-ends failed before this one served.
	Fallbacks int `json:"fallbacks"`

	// Result is the back-end's response body: verbatim when it is
	// JSON, base64-encoded otherwise (audio, images).
	Result json.RawMessage `json:"result"`
}

// streamStartEvent opens the SSE stream, giving the caller the request ID
// before any upstream bytes arrive.
type streamStartEvent struct {
	Kind      string `json:"kind"`
	RequestID string `json:"request_id"`
	Task      string `json:"task"`
}

// handleExecuteTask drives one non-streaming request through the router.
func (a *API) handleExecuteTask(w http.ResponseWriter, r *http.Request) {
	requestID := logging.GetRequestID(r.Context())

	task, err := tasks.Parse(r.PathValue("task"))
	if err != nil {
		writeErrorResponse(w, errorResponseFor(err, requestID))
		return
	}

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		writeErrorResponse(w, NewErrorResponse(ErrTypeInvalidRequest, "failed to read request body", requestID))
		return
	}

	result, err := a.router.Execute(r.Context(), task, payload)
	if err != nil {
		writeErrorResponse(w, errorResponseFor(err, requestID))
		return
	}

	writeJSON(w, http.StatusOK, taskResponse{
		RequestID: requestID,
		Task:      task.String(),
		Backend:   result.Backend,
		LatencyMS: result.Latency.Milliseconds(),
		Fallbacks: result.Fallbacks,
		Result:    jsonSafe(result.Body),
	})
}

// handleStreamTask drives one streaming request and relays its chunks as
// server-sent events. Failures before the first delivered chunk map to a
// plain HTTP error response; after that the headers are committed and
// failures arrive as a terminal SSE error event.
func (a *API) handleStreamTask(w http.ResponseWriter, r *http.Request) {
	requestID := logging.GetRequestID(r.Context())

	task, err := tasks.Parse(r.PathValue("task"))
	if err != nil {
		writeErrorResponse(w, errorResponseFor(err, requestID))
		return
	}

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		writeErrorResponse(w, NewErrorResponse(ErrTypeInvalidRequest, "failed to read request body", requestID))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeErrorResponse(w, NewErrorResponse(ErrTypeInternal, "streaming not supported by this connection", requestID))
		return
	}

	events := a.router.ExecuteStream(r.Context(), task, payload)

	first, ok := <-events
	if !ok {
		writeErrorResponse(w, NewErrorResponse(ErrTypeInternal, "stream produced no events", requestID))
		return
	}
	if first.Kind == backends.ChunkError {
		writeErrorResponse(w, errorResponseFor(first.Err, requestID))
		return
	}

	setSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	start, _ := json.Marshal(streamStartEvent{
		Kind:      string(backends.ChunkStart),
		RequestID: requestID,
		Task:      task.String(),
	})
	if err := writeSSEData(w, flusher, start); err != nil {
		return
	}

	for chunk := range events {
		switch chunk.Kind {
		case backends.ChunkContent:
			if err := writeSSEData(w, flusher, chunk.Data); err != nil {
				// The client is gone; r.Context() cancellation
				// stops the router.
				return
			}
		case backends.ChunkError:
			errEvent, _ := json.Marshal(errorResponseFor(chunk.Err, requestID))
			_ = writeSSEData(w, flusher, errEvent)
			return
		case backends.ChunkDone:
			writeSSEDone(w, flusher)
			return
		}
	}
}

// jsonSafe embeds an upstream body in the envelope. Non-JSON bodies
// marshal to a base64 string.
func jsonSafe(body []byte) json.RawMessage {
	if json.Valid(body) {
		return body
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		return json.RawMessage(`""`)
	}
	return encoded
}
