// Package reaper runs the periodic cleanup of expired secrets in the
// background. Reads already refuse expired secrets on their own; the reaper
// only reconciles rows nobody asked for again.
package reaper

import (
	"context"
	"fmt"
	"time"

	"github.com/0101Programmer/one-time-secrets/internal/logging"
	"github.com/0101Programmer/one-time-secrets/internal/server/services"
	"github.com/google/uuid"
)

const (
	// DefaultInterval between cleanup cycles.
	DefaultInterval = time.Hour

	// maxConsecutiveFailures before the loop gives up. A store that fails
	// this many cycles in a row needs an operator, not more retries.
	maxConsecutiveFailures = 3
)

// CycleRunner runs one cleanup cycle. Implemented by services.SecretService.
type CycleRunner interface {
	RunCleanupCycle(ctx context.Context, batchSize int) (*services.CleanupResult, error)
}

// Reaper drives CycleRunner on a fixed interval until stopped.
type Reaper struct {
	runner    CycleRunner
	logger    logging.Logger
	interval  time.Duration
	batchSize int

	cancel context.CancelFunc
	done   chan struct{}
}

func New(runner CycleRunner, logger logging.Logger, interval time.Duration, batchSize int) *Reaper {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Reaper{
		runner:    runner,
		logger:    logger.With("module", "reaper"),
		interval:  interval,
		batchSize: batchSize,
	}
}

// Start launches the loop. The first cycle runs immediately rather than one
// interval from now, so a restart after downtime catches up at once.
func (r *Reaper) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.done = make(chan struct{})

	go r.loop(ctx)
}

func (r *Reaper) loop(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	var failures int
	for {
		if !r.runCycle(ctx) {
			failures++
			if failures >= maxConsecutiveFailures {
				r.logger.Error(ctx, "cleanup failed repeatedly, stopping loop",
					"consecutive_failures", failures)
				return
			}
		} else {
			failures = 0
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// runCycle reports whether the cycle completed without error.
func (r *Reaper) runCycle(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}

	log := r.logger.With("run_id", uuid.NewString())
	log.Info(ctx, "cleanup cycle started")

	result, err := r.runner.RunCleanupCycle(ctx, r.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return true
		}
		log.Error(ctx, "cleanup cycle failed", "error", err)
		return false
	}

	log.Info(ctx, "cleanup cycle finished",
		"deleted_count", result.DeletedCount,
		"status", result.Status,
	)
	return result.Status == services.CleanupStatusSuccess
}

// Stop cancels the loop and waits for it to exit, up to timeout.
func (r *Reaper) Stop(timeout time.Duration) error {
	if r.cancel == nil {
		return nil
	}
	r.cancel()

	select {
	case <-r.done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("reaper did not stop within %s", timeout)
	}
}
