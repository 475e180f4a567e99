package breaker

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

var errUpstream = errors.New("upstream 500")

// fakeClock lets tests drive the open-timeout transition.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newTestBreaker(cfg Config) (*Breaker, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}
	b := New("groq", cfg)
	b.nowFunc = clock.Now
	return b, clock
}

func fail(ctx context.Context) error    { return errUpstream }
func succeed(ctx context.Context) error { return nil }

func TestStartsClosed(t *testing.T) {
	b, _ := newTestBreaker(Config{})
	if got := b.State(); got != StateClosed {
		t.Fatalf("initial state = %s, want %s", got, StateClosed)
	}
	if !b.Allows() {
		t.Fatal("closed breaker does not allow attempts")
	}
}

func TestOpensAfterFailureThreshold(t *testing.T) {
	b, _ := newTestBreaker(Config{FailureThreshold: 3})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := b.Execute(ctx, fail); !errors.Is(err, errUpstream) {
			t.Fatalf("attempt %d: err = %v, want upstream error", i, err)
		}
		if got := b.State(); got != StateClosed {
			t.Fatalf("state after %d failures = %s, want %s", i+1, got, StateClosed)
		}
	}

	if err := b.Execute(ctx, fail); !errors.Is(err, errUpstream) {
		t.Fatalf("threshold attempt: err = %v, want upstream error", err)
	}
	if got := b.State(); got != StateOpen {
		t.Fatalf("state after threshold = %s, want %s", got, StateOpen)
	}

	// While open, the operation must never run.
	invoked := false
	err := b.Execute(ctx, func(ctx context.Context) error {
		invoked = true
		return nil
	})
	if invoked {
		t.Fatal("operation invoked while circuit open")
	}
	if !errors.Is(err, ErrOpen) {
		t.Fatalf("err = %v, want ErrOpen", err)
	}

	var openErr *OpenError
	if !errors.As(err, &openErr) {
		t.Fatalf("err type = %T, want *OpenError", err)
	}
	if openErr.Backend != "groq" || openErr.State != StateOpen {
		t.Errorf("OpenError = %+v", openErr)
	}
	if openErr.RetryIn <= 0 {
		t.Errorf("RetryIn = %s, want positive", openErr.RetryIn)
	}
}

func TestSuccessResetsFailureCount(t *testing.T) {
	b, _ := newTestBreaker(Config{FailureThreshold: 3})
	ctx := context.Background()

	b.Execute(ctx, fail)
	b.Execute(ctx, fail)
	b.Execute(ctx, succeed)
	b.Execute(ctx, fail)
	b.Execute(ctx, fail)

	// Two failures since the success: still under the threshold.
	if got := b.State(); got != StateClosed {
		t.Fatalf("state = %s, want %s", got, StateClosed)
	}

	b.Execute(ctx, fail)
	if got := b.State(); got != StateOpen {
		t.Fatalf("state after third consecutive failure = %s, want %s", got, StateOpen)
	}
}

func TestRecoversThroughHalfOpen(t *testing.T) {
	b, clock := newTestBreaker(Config{
		FailureThreshold: 2,
		SuccessThreshold: 2,
		OpenTimeout:      30 * time.Second,
	})
	ctx := context.Background()

	b.Execute(ctx, fail)
	b.Execute(ctx, fail)
	if got := b.State(); got != StateOpen {
		t.Fatalf("state = %s, want %s", got, StateOpen)
	}

	// Before the timeout the circuit still rejects.
	clock.Advance(29 * time.Second)
	if err := b.Execute(ctx, succeed); !errors.Is(err, ErrOpen) {
		t.Fatalf("err before timeout = %v, want ErrOpen", err)
	}

	// After the timeout the next call goes through as a probe.
	clock.Advance(2 * time.Second)
	if err := b.Execute(ctx, succeed); err != nil {
		t.Fatalf("probe err = %v, want nil", err)
	}
	if got := b.State(); got != StateHalfOpen {
		t.Fatalf("state after first probe success = %s, want %s", got, StateHalfOpen)
	}

	// The second consecutive success closes the circuit.
	if err := b.Execute(ctx, succeed); err != nil {
		t.Fatalf("second probe err = %v, want nil", err)
	}
	if got := b.State(); got != StateClosed {
		t.Fatalf("state after recovery = %s, want %s", got, StateClosed)
	}
}

func TestHalfOpenFailureReopens(t *testing.T) {
	b, clock := newTestBreaker(Config{
		FailureThreshold: 1,
		OpenTimeout:      30 * time.Second,
	})
	ctx := context.Background()

	b.Execute(ctx, fail)
	if got := b.State(); got != StateOpen {
		t.Fatalf("state = %s, want %s", got, StateOpen)
	}

	clock.Advance(31 * time.Second)
	if err := b.Execute(ctx, fail); !errors.Is(err, errUpstream) {
		t.Fatalf("probe err = %v, want upstream error", err)
	}
	if got := b.State(); got != StateOpen {
		t.Fatalf("state after failed probe = %s, want %s", got, StateOpen)
	}

	// The failed probe restarted the open timeout.
	clock.Advance(29 * time.Second)
	if err := b.Execute(ctx, succeed); !errors.Is(err, ErrOpen) {
		t.Fatalf("err = %v, want ErrOpen (timeout restarted)", err)
	}
	clock.Advance(2 * time.Second)
	if err := b.Execute(ctx, succeed); err != nil {
		t.Fatalf("probe after restarted timeout err = %v", err)
	}
}

func TestHalfOpenAdmitsOneProbeAtATime(t *testing.T) {
	b, clock := newTestBreaker(Config{
		FailureThreshold: 1,
		OpenTimeout:      time.Second,
	})
	ctx := context.Background()

	b.Execute(ctx, fail)
	clock.Advance(2 * time.Second)

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- b.Execute(ctx, func(ctx context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()

	<-started

	// With the probe in flight, further attempts are rejected.
	if b.Allows() {
		t.Error("Allows() = true while probe in flight")
	}
	err := b.Execute(ctx, succeed)
	var openErr *OpenError
	if !errors.As(err, &openErr) {
		t.Fatalf("concurrent attempt err = %v, want *OpenError", err)
	}
	if openErr.State != StateHalfOpen {
		t.Errorf("OpenError.State = %s, want %s", openErr.State, StateHalfOpen)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("probe err = %v", err)
	}

	// Probe finished, the next attempt is admitted.
	if !b.Allows() {
		t.Error("Allows() = false after probe completed")
	}
}

func TestExecuteReturnsOperationError(t *testing.T) {
	b, _ := newTestBreaker(Config{})
	marker := errors.New("very specific failure")

	err := b.Execute(context.Background(), func(ctx context.Context) error {
		return marker
	})
	if err != marker {
		t.Fatalf("err = %v, want the operation's own error", err)
	}
}

func TestForceOpenAndForceClose(t *testing.T) {
	b, _ := newTestBreaker(Config{OpenTimeout: time.Hour})
	ctx := context.Background()

	b.ForceOpen()
	if got := b.State(); got != StateOpen {
		t.Fatalf("state after ForceOpen = %s, want %s", got, StateOpen)
	}
	if err := b.Execute(ctx, succeed); !errors.Is(err, ErrOpen) {
		t.Fatalf("err = %v, want ErrOpen", err)
	}

	b.ForceClose()
	if got := b.State(); got != StateClosed {
		t.Fatalf("state after ForceClose = %s, want %s", got, StateClosed)
	}
	if err := b.Execute(ctx, succeed); err != nil {
		t.Fatalf("err after ForceClose = %v", err)
	}
}

func TestStats(t *testing.T) {
	b, _ := newTestBreaker(Config{FailureThreshold: 10})
	ctx := context.Background()

	b.Execute(ctx, succeed)
	b.Execute(ctx, succeed)
	b.Execute(ctx, fail)
	b.Execute(ctx, fail)
	b.Execute(ctx, fail)

	stats := b.Stats()
	if stats.Backend != "groq" {
		t.Errorf("Backend = %q, want %q", stats.Backend, "groq")
	}
	if stats.TotalRequests != 5 {
		t.Errorf("TotalRequests = %d, want 5", stats.TotalRequests)
	}
	if stats.TotalSuccesses != 2 {
		t.Errorf("TotalSuccesses = %d, want 2", stats.TotalSuccesses)
	}
	if stats.TotalFailures != 3 {
		t.Errorf("TotalFailures = %d, want 3", stats.TotalFailures)
	}
	if stats.ConsecutiveFailures != 3 {
		t.Errorf("ConsecutiveFailures = %d, want 3", stats.ConsecutiveFailures)
	}
	if stats.SuccessRate != 0.4 {
		t.Errorf("SuccessRate = %v, want 0.4", stats.SuccessRate)
	}
}

func TestStatsCountsRejections(t *testing.T) {
	b, _ := newTestBreaker(Config{FailureThreshold: 1, OpenTimeout: time.Hour})
	ctx := context.Background()

	b.Execute(ctx, fail)
	b.Execute(ctx, succeed)
	b.Execute(ctx, succeed)

	stats := b.Stats()
	if stats.TotalRejected != 2 {
		t.Errorf("TotalRejected = %d, want 2", stats.TotalRejected)
	}
	if stats.TotalRequests != 1 {
		t.Errorf("TotalRequests = %d, want 1 (rejections are not requests)", stats.TotalRequests)
	}
}

func TestOpenErrorMessage(t *testing.T) {
	err := NewOpenError("gemini", StateOpen, 12*time.Second)
	msg := err.Error()
	if !strings.Contains(msg, "gemini") || !strings.Contains(msg, "open") {
		t.Errorf("message %q missing backend or state", msg)
	}

	busy := NewOpenError("gemini", StateHalfOpen, 0)
	if strings.Contains(busy.Error(), "retry in") {
		t.Errorf("half-open message %q should not promise a retry window", busy.Error())
	}
}
