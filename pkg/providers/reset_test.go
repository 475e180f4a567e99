package providers

import (
	"context"
	"testing"
	"time"
)

func TestResetSchedulerStart(t *testing.T) {
	tests := []struct {
		name      string
		schedule  string
		wantError bool
	}{
		{name: "valid midnight schedule", schedule: "0 0 * * *"},
		{name: "valid hourly schedule", schedule: "0 * * * *"},
		{name: "empty falls back to default", schedule: ""},
		{name: "invalid schedule", schedule: "every midnight", wantError: true},
		{name: "too many fields", schedule: "0 0 * * * *", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager(nil, nil, map[string]*BackendState{
				"groq": stateFor("groq", 1, 10),
			})
			scheduler := NewResetScheduler(m, tt.schedule)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			err := scheduler.Start(ctx)
			if (err != nil) != tt.wantError {
				t.Errorf("Start() error = %v, wantError %v", err, tt.wantError)
			}

			wantRunning := !tt.wantError
			if scheduler.IsRunning() != wantRunning {
				t.Errorf("IsRunning() = %v, want %v",
					scheduler.IsRunning(), wantRunning)
			}

			if !tt.wantError {
				if next := scheduler.NextRun(); next == nil {
					t.Error("NextRun() returned nil for running scheduler")
				}
			}

			scheduler.Stop()
			if scheduler.IsRunning() {
				t.Error("scheduler still running after Stop()")
			}
		})
	}
}

func TestResetSchedulerGracefulShutdown(t *testing.T) {
	m := NewManager(nil, nil, map[string]*BackendState{
		"groq": stateFor("groq", 1, 10),
	})
	scheduler := NewResetScheduler(m, "0 0 * * *")

	ctx, cancel := context.WithCancel(context.Background())
	if err := scheduler.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	cancel()
	time.Sleep(100 * time.Millisecond)

	if scheduler.IsRunning() {
		t.Error("scheduler still running after context cancelled")
	}
}

func TestResetSchedulerRunReset(t *testing.T) {
	// Drive the reset body directly rather than waiting for cron to fire.
	m := NewManager(nil, nil, map[string]*BackendState{
		"groq": stateFor("groq", 1, 1),
	})
	scheduler := NewResetScheduler(m, "")

	lease, _ := m.NextCredential("groq")
	m.MarkSuccess("groq", lease.Index)
	if _, ok := m.NextCredential("groq"); ok {
		t.Fatal("pool should be exhausted before the reset")
	}

	scheduler.runReset()

	if _, ok := m.NextCredential("groq"); !ok {
		t.Fatal("reset should restore the pool")
	}
}

func TestResetSchedulerDefaultSchedule(t *testing.T) {
	m := NewManager(nil, nil, nil)
	scheduler := NewResetScheduler(m, "")

	if scheduler.schedule != DefaultResetSchedule {
		t.Fatalf("schedule = %q, want %q", scheduler.schedule, DefaultResetSchedule)
	}
}
