package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/hazz-dev/smokeprobe/internal/config"
	"github.com/hazz-dev/smokeprobe/internal/harness"
	"github.com/hazz-dev/smokeprobe/internal/storage"
)

// Store defines the storage operations required by the scheduler.
type Store interface {
	InsertRun(ctx context.Context, rep harness.Report) (int64, error)
	LatestRun(ctx context.Context) (*storage.Run, error)
}

// RunFunc executes one full smoke run and returns its report.
type RunFunc func(ctx context.Context) harness.Report

// Scheduler repeats smoke runs on an interval or a cron schedule.
// Runs never overlap.
type Scheduler struct {
	schedule config.ScheduleConfig
	run      RunFunc
	store    Store
	onResult func(harness.Report, *bool)
	logger   *slog.Logger
	mu       sync.Mutex
	wg       sync.WaitGroup
}

// New creates a new Scheduler. Pass nil logger to use slog.Default().
func New(schedule config.ScheduleConfig, run RunFunc, store Store, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		schedule: schedule,
		run:      run,
		store:    store,
		logger:   logger,
	}
}

// SetOnResult sets the callback invoked after each run.
// prevOK is whether the previous archived run passed (nil on the first run).
func (s *Scheduler) SetOnResult(fn func(rep harness.Report, prevOK *bool)) {
	s.onResult = fn
}

// Start runs once immediately and then on schedule until ctx is done.
// It is non-blocking; an invalid cron spec is returned as an error.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.schedule.Cron != "" {
		c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
		if _, err := c.AddFunc(s.schedule.Cron, func() { s.runOnce(ctx) }); err != nil {
			return fmt.Errorf("scheduling %q: %w", s.schedule.Cron, err)
		}
		s.wg.Add(1)
		go s.loopCron(ctx, c)
		return nil
	}

	if s.schedule.Interval.Duration <= 0 {
		return fmt.Errorf("schedule interval must be positive, got %s", s.schedule.Interval.Duration)
	}
	s.wg.Add(1)
	go s.loopInterval(ctx, s.schedule.Interval.Duration)
	return nil
}

// Wait blocks until the scheduling goroutine has exited.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) loopInterval(ctx context.Context, interval time.Duration) {
	defer s.wg.Done()

	// Run immediately.
	s.runOnce(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) loopCron(ctx context.Context, c *cron.Cron) {
	defer s.wg.Done()

	s.runOnce(ctx)
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
}

func (s *Scheduler) runOnce(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ctx.Err() != nil {
		return
	}

	// Fetch previous outcome before running.
	prev, err := s.store.LatestRun(ctx)
	if err != nil {
		s.logger.Warn("fetching previous run", "error", err)
	}

	rep := s.run(ctx)

	// A run cut short by shutdown is partial: neither archived nor alerted on.
	if ctx.Err() != nil {
		s.logger.Info("smoke run interrupted, discarding partial report",
			"recorded", rep.Summary.Total,
		)
		return
	}

	s.logger.Info("smoke run finished",
		"total", rep.Summary.Total,
		"passed", rep.Summary.Passed,
		"failed", rep.Summary.Failed,
		"success_rate", rep.Summary.SuccessRateText(),
		"elapsed", rep.Summary.Elapsed,
	)

	if _, err := s.store.InsertRun(ctx, rep); err != nil {
		s.logger.Error("storing run", "error", err)
	}

	if s.onResult != nil {
		var prevOK *bool
		if prev != nil {
			ok := prev.OK()
			prevOK = &ok
		}
		s.onResult(rep, prevOK)
	}
}
