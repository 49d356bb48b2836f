package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/team-weather-dashboard/internal/domain"
	"github.com/robfig/cron/v3"
)

// Runner performs one refresh run.
type Runner interface {
	RunOnce(ctx context.Context) (*domain.Dataset, error)
}

// Scheduler runs a Runner on a cron schedule. Overlapping runs are skipped
// and a panicking run is logged instead of crashing the process.
type Scheduler struct {
	cron   *cron.Cron
	job    cron.Job
	runner Runner
	logger *slog.Logger

	mu      sync.Mutex
	ctx     context.Context
	stopped bool
	wg      sync.WaitGroup
}

// NewScheduler parses spec (standard five-field cron or a descriptor such
// as "@every 5m") and prepares the job without starting it.
func NewScheduler(runner Runner, spec string, logger *slog.Logger) (*Scheduler, error) {
	cl := cronLogger{logger: logger}
	s := &Scheduler{
		cron:   cron.New(cron.WithLogger(cl)),
		runner: runner,
		logger: logger,
		ctx:    context.Background(),
	}
	s.job = cron.NewChain(
		cron.SkipIfStillRunning(cl),
		cron.Recover(cl),
	).Then(cron.FuncJob(s.run))

	if _, err := s.cron.AddJob(spec, s.job); err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start triggers an immediate run and then follows the schedule. ctx is
// passed to every run; cancelling it aborts a run in progress.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.Trigger()
	s.cron.Start()
	s.logger.Info("scheduler started", "next_run", s.NextRun())
}

// Trigger starts a run outside the schedule. It is a no-op while another
// run is in progress or once Stop has been called.
func (s *Scheduler) Trigger() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		s.logger.Debug("refresh trigger ignored, scheduler stopped")
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.job.Run()
	}()
}

// Stop prevents new runs and waits for running ones, or for ctx to end.
func (s *Scheduler) Stop(ctx context.Context) error {
	// wg.Add in Trigger happens under mu, so no Add races the Wait below.
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	cronDone := s.cron.Stop()
	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop: %w", ctx.Err())
	}
}

func (s *Scheduler) run() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	if ctx.Err() != nil {
		return
	}
	if _, err := s.runner.RunOnce(ctx); err != nil {
		s.logger.Error("refresh run failed", "error", err)
	}
}

// NextRun reports when the schedule fires next; zero before Start.
func (s *Scheduler) NextRun() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// cronLogger routes cron's internal logging through slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
