// Package recorder provides asynchronous attempt recording for the relay.
// The router hands it one complete record per attempt; writes happen on a
// background worker so recording never blocks the request path longer than
// the configured enqueue timeout.
package recorder

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"baatcheet/relay/pkg/journal"
)

// Config contains configuration for the attempt recorder.
type Config struct {
	// AsyncBuffer is the size of the async write channel buffer.
	// Default: 1000
	AsyncBuffer int

	// WriteTimeout bounds both the enqueue wait when the buffer is full
	// and the storage write itself.
	// Default: 5 seconds
	WriteTimeout time.Duration

	// MaxErrorLength is the maximum length of the stored error message
	// before truncation.
	// Default: 500
	MaxErrorLength int
}

// DefaultConfig returns the default recorder configuration.
func DefaultConfig() *Config {
	return &Config{
		AsyncBuffer:    1000,
		WriteTimeout:   5 * time.Second,
		MaxErrorLength: 500,
	}
}

// Recorder records routing attempts asynchronously. Records are enqueued on
// a buffered channel and drained by a background worker; a full buffer drops
// the record with a log line rather than stalling routing.
type Recorder struct {
	storage    journal.Storage
	config     *Config
	recordChan chan *journal.AttemptRecord
	wg         sync.WaitGroup
	done       chan struct{}
	logger     *slog.Logger
}

// NewRecorder creates a new attempt recorder with the provided storage
// backend and configuration.
func NewRecorder(storage journal.Storage, config *Config) *Recorder {
	if config == nil {
		config = DefaultConfig()
	}

	r := &Recorder{
		storage:    storage,
		config:     config,
		recordChan: make(chan *journal.AttemptRecord, config.AsyncBuffer),
		done:       make(chan struct{}),
		logger:     slog.Default().With("component", "journal.recorder"),
	}

	r.wg.Add(1)
	go r.worker()

	r.logger.Info("attempt recorder initialized",
		"async_buffer", config.AsyncBuffer,
		"write_timeout", config.WriteTimeout,
	)

	return r
}

// Record enqueues an attempt record for async writing. An empty ID is
// replaced with a fresh UUID and the error message is truncated to the
// configured maximum before the record is handed off.
//
// Record returns immediately unless the buffer is full, in which case it
// waits up to WriteTimeout before dropping the record.
func (r *Recorder) Record(record *journal.AttemptRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	record.Error = Truncate(record.Error, r.config.MaxErrorLength)

	select {
	case r.recordChan <- record:
		return nil
	case <-time.After(r.config.WriteTimeout):
		r.logger.Error("attempt channel full, dropping record",
			"record_id", record.ID,
			"request_id", record.RequestID,
			"channel_capacity", r.config.AsyncBuffer,
		)
		return journal.NewRecorderError(record.ID, context.DeadlineExceeded)
	case <-r.done:
		r.logger.Warn("recorder shutting down, dropping record",
			"record_id", record.ID,
			"request_id", record.RequestID,
		)
		return journal.NewRecorderError(record.ID, context.Canceled)
	}
}

// Close gracefully shuts down the recorder by draining the async channel and
// waiting for all pending writes to complete.
func (r *Recorder) Close() error {
	r.logger.Info("shutting down attempt recorder")

	close(r.done)
	r.wg.Wait()

	r.logger.Info("attempt recorder shut down complete")
	return nil
}

// worker is the background goroutine that drains the record channel and
// writes records to storage.
func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case record := <-r.recordChan:
			r.writeRecord(record)

		case <-r.done:
			// Drain remaining records from channel before exit
			r.logger.Info("draining attempt channel before shutdown",
				"pending_count", len(r.recordChan),
			)

			for {
				select {
				case record := <-r.recordChan:
					r.writeRecord(record)
				default:
					r.logger.Info("attempt channel drained")
					return
				}
			}
		}
	}
}

// writeRecord writes a single attempt record to storage.
func (r *Recorder) writeRecord(record *journal.AttemptRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	start := time.Now()

	err := r.storage.Store(ctx, record)
	if err != nil {
		r.logger.Error("failed to store attempt record",
			"record_id", record.ID,
			"request_id", record.RequestID,
			"error", err,
		)
		return
	}

	duration := time.Since(start)

	r.logger.Debug("attempt recorded",
		"record_id", record.ID,
		"request_id", record.RequestID,
		"backend", record.Backend,
		"outcome", record.Outcome,
		"duration_ms", duration.Milliseconds(),
	)

	if duration > r.config.WriteTimeout/2 {
		r.logger.Warn("slow journal write",
			"record_id", record.ID,
			"duration_ms", duration.Milliseconds(),
			"threshold_ms", (r.config.WriteTimeout / 2).Milliseconds(),
		)
	}
}

// Truncate shortens s to at most max bytes, appending "..." when content was
// cut. A max of zero or less disables truncation.
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
