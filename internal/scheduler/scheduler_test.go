package scheduler_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hazz-dev/smokeprobe/internal/config"
	"github.com/hazz-dev/smokeprobe/internal/harness"
	"github.com/hazz-dev/smokeprobe/internal/scheduler"
	"github.com/hazz-dev/smokeprobe/internal/storage"
)

// mockStore records inserted runs.
type mockStore struct {
	mu     sync.Mutex
	runs   []harness.Report
	latest *storage.Run
	err    error
}

func (m *mockStore) InsertRun(_ context.Context, rep harness.Report) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, rep)
	m.latest = &storage.Run{ID: int64(len(m.runs)), Failed: rep.Summary.Failed}
	return int64(len(m.runs)), nil
}

func (m *mockStore) LatestRun(_ context.Context) (*storage.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.latest, nil
}

func (m *mockStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.runs)
}

func reportWith(failed int) harness.Report {
	return harness.Report{Summary: harness.Summary{Total: 3, Passed: 3 - failed, Failed: failed}}
}

func fixedRun(failed int) scheduler.RunFunc {
	return func(ctx context.Context) harness.Report {
		return reportWith(failed)
	}
}

func every(d time.Duration) config.ScheduleConfig {
	return config.ScheduleConfig{Interval: config.Duration{Duration: d}}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestScheduler_RunsImmediately(t *testing.T) {
	store := &mockStore{}
	sched := scheduler.New(every(time.Hour), fixedRun(0), store, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := sched.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	waitFor(t, func() bool { return store.count() >= 1 })
	if store.count() < 1 {
		t.Error("expected at least one run to happen immediately")
	}
}

func TestScheduler_RunsPeriodically(t *testing.T) {
	store := &mockStore{}
	sched := scheduler.New(every(50*time.Millisecond), fixedRun(0), store, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	if err := sched.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	<-ctx.Done()
	sched.Wait()

	// 1 immediate + ~5 ticks in 300ms
	if n := store.count(); n < 3 {
		t.Errorf("expected at least 3 runs in 300ms, got %d", n)
	}
}

func TestScheduler_RunsNeverOverlap(t *testing.T) {
	store := &mockStore{}
	var active, maxActive int32
	run := func(ctx context.Context) harness.Report {
		n := atomic.AddInt32(&active, 1)
		for {
			m := atomic.LoadInt32(&maxActive)
			if n <= m || atomic.CompareAndSwapInt32(&maxActive, m, n) {
				break
			}
		}
		time.Sleep(30 * time.Millisecond)
		atomic.AddInt32(&active, -1)
		return reportWith(0)
	}
	sched := scheduler.New(every(5*time.Millisecond), run, store, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	if err := sched.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	<-ctx.Done()
	sched.Wait()

	if m := atomic.LoadInt32(&maxActive); m != 1 {
		t.Errorf("expected at most one concurrent run, saw %d", m)
	}
}

func TestScheduler_ContextCancellation(t *testing.T) {
	store := &mockStore{}
	sched := scheduler.New(every(time.Hour), fixedRun(0), store, nil)

	ctx, cancel := context.WithCancel(context.Background())
	if err := sched.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	cancel()

	done := make(chan struct{})
	go func() {
		sched.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Error("Wait() did not return within 2s after context cancel")
	}
}

func TestScheduler_OnResultReceivesPreviousOutcome(t *testing.T) {
	store := &mockStore{}
	var mu sync.Mutex
	var prevs []*bool

	failed := int32(1)
	run := func(ctx context.Context) harness.Report {
		// First run fails, later runs pass.
		return reportWith(int(atomic.SwapInt32(&failed, 0)))
	}

	sched := scheduler.New(every(20*time.Millisecond), run, store, nil)
	sched.SetOnResult(func(rep harness.Report, prevOK *bool) {
		mu.Lock()
		prevs = append(prevs, prevOK)
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	if err := sched.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(prevs) >= 3
	})
	cancel()
	sched.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(prevs) < 3 {
		t.Fatalf("expected at least 3 callbacks, got %d", len(prevs))
	}
	if prevs[0] != nil {
		t.Errorf("expected nil previous outcome on first run, got %v", *prevs[0])
	}
	if prevs[1] == nil || *prevs[1] {
		t.Error("expected second run to see a failed previous run")
	}
	if prevs[2] == nil || !*prevs[2] {
		t.Error("expected third run to see a passing previous run")
	}
}

func TestScheduler_StoreErrorDoesNotCrash(t *testing.T) {
	store := &mockStore{err: context.DeadlineExceeded}
	var calls int32
	sched := scheduler.New(every(time.Hour), fixedRun(0), store, nil)
	sched.SetOnResult(func(harness.Report, *bool) { atomic.AddInt32(&calls, 1) })

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	if err := sched.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	<-ctx.Done()
	sched.Wait()

	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("expected callback despite store error, got %d calls", calls)
	}
}

func TestScheduler_CronRunsImmediately(t *testing.T) {
	store := &mockStore{}
	sched := scheduler.New(config.ScheduleConfig{Cron: "0 3 * * *"}, fixedRun(0), store, nil)

	ctx, cancel := context.WithCancel(context.Background())
	if err := sched.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	waitFor(t, func() bool { return store.count() >= 1 })
	cancel()
	sched.Wait()

	if n := store.count(); n != 1 {
		t.Errorf("expected exactly the immediate run, got %d", n)
	}
}

func TestScheduler_InvalidCron(t *testing.T) {
	sched := scheduler.New(config.ScheduleConfig{Cron: "not a cron"}, fixedRun(0), &mockStore{}, nil)
	if err := sched.Start(context.Background()); err == nil {
		t.Error("expected error for invalid cron spec")
	}
}

func TestScheduler_ZeroInterval(t *testing.T) {
	sched := scheduler.New(config.ScheduleConfig{}, fixedRun(0), &mockStore{}, nil)
	if err := sched.Start(context.Background()); err == nil {
		t.Error("expected error for zero interval")
	}
}

func TestScheduler_InterruptedRunIsDiscarded(t *testing.T) {
	store := &mockStore{latest: &storage.Run{ID: 1, Total: 3, Failed: 2}}
	var calls int32

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Only the first check gets to record before shutdown; a failing one never runs.
	run := func(ctx context.Context) harness.Report {
		cancel()
		results := []harness.Result{{Name: "GetBritEdgeInfo API", Status: harness.StatusPass}}
		return harness.Report{Results: results, Summary: harness.Summarize(results, time.Millisecond)}
	}

	sched := scheduler.New(every(time.Hour), run, store, nil)
	sched.SetOnResult(func(harness.Report, *bool) { atomic.AddInt32(&calls, 1) })

	if err := sched.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	sched.Wait()

	if n := store.count(); n != 0 {
		t.Errorf("expected partial run not to be archived, got %d runs", n)
	}
	if n := atomic.LoadInt32(&calls); n != 0 {
		t.Errorf("expected no callback for an interrupted run, got %d", n)
	}
}
