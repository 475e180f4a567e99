// Package httpexec implements the backends.Executor contract over HTTP.
//
// Each Backend posts the caller's payload verbatim to the endpoint
// configured for the task, injects the leased credential per the back-end's
// auth style, and maps upstream status codes onto the error taxonomy. For
// streaming it scans Server-Sent Events into content chunks without parsing
// the event payloads.
package httpexec

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"baatcheet/relay/pkg/backends"
	"baatcheet/relay/pkg/tasks"
)

// Defaults applied by New when the corresponding Config field is zero.
const (
	DefaultResponseHeaderTimeout = 30 * time.Second
	DefaultMaxIdleConns          = 100
	DefaultMaxIdleConnsPerHost   = 10
	DefaultIdleConnTimeout       = 90 * time.Second
)

// Config configures one HTTP back-end executor.
type Config struct {
	// Name is the back-end's name.
	Name string

	// Endpoints maps each supported task to its absolute endpoint URL.
	Endpoints map[tasks.Task]string

	// StreamEndpoint, when set, is used for streaming attempts instead
	// of the task endpoint. OpenAI-style APIs stream from the same URL
	// and leave this empty.
	StreamEndpoint string

	// Auth is how the credential is injected.
	Auth AuthStyle

	// ResponseHeaderTimeout bounds the wait for upstream response headers.
	// It is the only client-side deadline this package owns: overall
	// attempt deadlines arrive through the request context.
	// Default: 30s
	ResponseHeaderTimeout time.Duration

	// Connection pool tuning.
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
}

// Backend executes task attempts against one HTTP back-end.
type Backend struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
}

var _ backends.Executor = (*Backend)(nil)

// New creates an executor for the given back-end configuration.
func New(cfg Config) *Backend {
	if cfg.ResponseHeaderTimeout <= 0 {
		cfg.ResponseHeaderTimeout = DefaultResponseHeaderTimeout
	}
	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = DefaultMaxIdleConns
	}
	if cfg.MaxIdleConnsPerHost <= 0 {
		cfg.MaxIdleConnsPerHost = DefaultMaxIdleConnsPerHost
	}
	if cfg.IdleConnTimeout <= 0 {
		cfg.IdleConnTimeout = DefaultIdleConnTimeout
	}

	transport := &http.Transport{
		MaxIdleConns:          cfg.MaxIdleConns,
		MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:       cfg.IdleConnTimeout,
		ResponseHeaderTimeout: cfg.ResponseHeaderTimeout,
		ForceAttemptHTTP2:     true,
	}

	return &Backend{
		cfg: cfg,
		// No client Timeout: it would cap whole streaming responses. The
		// attempt context carries the deadline instead.
		client: &http.Client{Transport: transport},
		logger: slog.Default().With("component", "httpexec", "backend", cfg.Name),
	}
}

// Name returns the back-end's name.
func (b *Backend) Name() string {
	return b.cfg.Name
}

// Do performs one non-streaming attempt. The payload goes out verbatim and
// the response body comes back unparsed.
func (b *Backend) Do(ctx context.Context, req *backends.TaskRequest) (*backends.TaskResult, error) {
	start := time.Now()

	resp, err := b.send(ctx, req, "application/json", false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := b.checkStatus(resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, b.wrapTransportError(err)
	}

	return &backends.TaskResult{
		Body:       body,
		StatusCode: resp.StatusCode,
		Latency:    time.Since(start),
	}, nil
}

// DoStream performs one streaming attempt. A non-nil error means nothing
// was emitted and the attempt may be retried elsewhere; once the channel is
// returned every outcome arrives as a chunk, terminated by exactly one done
// or error chunk.
func (b *Backend) DoStream(ctx context.Context, req *backends.TaskRequest) (<-chan *backends.StreamChunk, error) {
	resp, err := b.send(ctx, req, "text/event-stream", true)
	if err != nil {
		return nil, err
	}
	if err := b.checkStatus(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}

	out := make(chan *backends.StreamChunk)
	go b.scanStream(ctx, resp.Body, out)
	return out, nil
}

// send builds and performs the HTTP request for one attempt.
func (b *Backend) send(ctx context.Context, req *backends.TaskRequest, accept string, stream bool) (*http.Response, error) {
	endpoint, ok := b.cfg.Endpoints[req.Task]
	if stream && b.cfg.StreamEndpoint != "" {
		endpoint, ok = b.cfg.StreamEndpoint, true
	}
	if !ok {
		return nil, &backends.InvalidRequestError{
			Backend: b.cfg.Name,
			Message: fmt.Sprintf("no endpoint configured for task %q", req.Task),
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(req.Payload))
	if err != nil {
		return nil, &backends.InvalidRequestError{
			Backend: b.cfg.Name,
			Message: fmt.Sprintf("building request: %v", err),
		}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", accept)
	b.cfg.Auth.apply(httpReq, req.Secret)

	b.logger.Debug("sending attempt", "task", string(req.Task), "endpoint", endpoint)

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return nil, b.wrapTransportError(err)
	}
	return resp, nil
}

// wrapTransportError maps a transport-level failure onto the taxonomy.
func (b *Backend) wrapTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &backends.TimeoutError{Backend: b.cfg.Name}
	}
	if errors.Is(err, context.Canceled) {
		// The transport error's string embeds the request URL, which for
		// query-auth back-ends carries the credential. The bare
		// cancellation is all callers need.
		return context.Canceled
	}
	return &backends.TransientError{
		Backend: b.cfg.Name,
		Message: "request failed",
		Cause:   err,
	}
}

// checkStatus maps a non-2xx response onto the taxonomy. The response body
// is consumed for the error message; on success it is left unread.
func (b *Backend) checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	errorBody, _ := io.ReadAll(resp.Body)
	message := strings.TrimSpace(string(errorBody))
	if message == "" {
		message = resp.Status
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &backends.AuthError{
			Backend:    b.cfg.Name,
			StatusCode: resp.StatusCode,
			Message:    message,
		}

	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusPaymentRequired:
		// 402 is how some back-ends report an exhausted quota.
		return &backends.RateLimitError{
			Backend:    b.cfg.Name,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Message:    message,
		}

	case resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode >= 500:
		return &backends.TransientError{
			Backend:    b.cfg.Name,
			StatusCode: resp.StatusCode,
			Message:    message,
		}

	default:
		return &backends.InvalidRequestError{
			Backend:    b.cfg.Name,
			StatusCode: resp.StatusCode,
			Message:    message,
		}
	}
}

// scanStream reads SSE lines from body and emits them as chunks. Lines
// other than data lines (comments, event names) are skipped; the payload of
// a data line is forwarded without parsing.
func (b *Backend) scanStream(ctx context.Context, body io.ReadCloser, out chan<- *backends.StreamChunk) {
	defer close(out)
	defer body.Close()

	emit := func(chunk *backends.StreamChunk) bool {
		select {
		case out <- chunk:
			return true
		case <-ctx.Done():
			return false
		}
	}

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		data, found := strings.CutPrefix(line, "data: ")
		if !found {
			continue
		}
		if data == "[DONE]" {
			emit(&backends.StreamChunk{Kind: backends.ChunkDone})
			return
		}
		if !emit(&backends.StreamChunk{Kind: backends.ChunkContent, Data: []byte(data)}) {
			return
		}
	}

	if err := scanner.Err(); err != nil {
		emit(&backends.StreamChunk{
			Kind: backends.ChunkError,
			Err:  b.wrapTransportError(err),
		})
		return
	}

	// EOF without [DONE] still ends the stream normally: not every
	// back-end sends the marker.
	emit(&backends.StreamChunk{Kind: backends.ChunkDone})
}

// Close releases idle connections.
func (b *Backend) Close() error {
	b.client.CloseIdleConnections()
	return nil
}

// parseRetryAfter parses a Retry-After header value. It supports both
// delay-seconds and HTTP-date formats.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}

	var seconds int
	if _, err := fmt.Sscanf(header, "%d", &seconds); err == nil {
		return time.Duration(seconds) * time.Second
	}

	if t, err := http.ParseTime(header); err == nil {
		return time.Until(t)
	}

	return 0
}
