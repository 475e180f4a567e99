package providers

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultResetSchedule resets credential counters at midnight local time.
const DefaultResetSchedule = "0 0 * * *"

// ResetScheduler runs the daily credential counter reset on a cron
// schedule.
type ResetScheduler struct {
	manager  *Manager
	schedule string
	cron     *cron.Cron
	mu       sync.Mutex
	logger   *slog.Logger
	running  bool
}

// NewResetScheduler creates a reset scheduler. An empty schedule falls
// back to DefaultResetSchedule.
func NewResetScheduler(manager *Manager, schedule string) *ResetScheduler {
	if schedule == "" {
		schedule = DefaultResetSchedule
	}
	return &ResetScheduler{
		manager:  manager,
		schedule: schedule,
		cron:     cron.New(),
		logger:   slog.Default().With("component", "providers.reset"),
	}
}

// Start begins scheduled resets. The scheduler stops itself when ctx is
// cancelled.
func (s *ResetScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := cron.ParseStandard(s.schedule)
	if err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.schedule, err)
	}

	_, err = s.cron.AddFunc(s.schedule, s.runReset)
	if err != nil {
		return fmt.Errorf("failed to schedule reset: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("reset scheduler started", "schedule", s.schedule)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// runReset executes one reset cycle.
func (s *ResetScheduler) runReset() {
	s.logger.Info("starting scheduled credential reset")
	s.manager.ResetAllPools()
}

// Stop stops the scheduler and waits for a running reset to complete.
func (s *ResetScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil && s.running {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.running = false
		s.logger.Info("reset scheduler stopped")
	}
}

// IsRunning returns true if the scheduler is running.
func (s *ResetScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.running
}

// NextRun returns the next scheduled reset time.
func (s *ResetScheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		return nil
	}

	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}

	next := entries[0].Next
	return &next
}
