package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"expentrax/internal/log"
)

// Job is one unit of daily batch work.
type Job interface {
	Name() string
	Run(ctx context.Context, now time.Time) error
}

// SchedulerOptions configures the daily firing time.
type SchedulerOptions struct {
	Hour       int
	Minute     int
	Location   *time.Location // nil means UTC
	RunOnStart bool
}

// Scheduler fires its jobs once a day at a fixed wall-clock time. Missed
// fire times are not caught up.
type Scheduler struct {
	opts SchedulerOptions

	mu   sync.Mutex
	jobs []Job

	now func() time.Time
}

func NewScheduler(opts SchedulerOptions, jobs ...Job) *Scheduler {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Scheduler{opts: opts, jobs: jobs, now: time.Now}
}

// Register adds a job; it runs from the next tick on.
func (s *Scheduler) Register(job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, job)
}

// Jobs returns the registered job names in run order.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, len(s.jobs))
	for i, j := range s.jobs {
		names[i] = j.Name()
	}
	return names
}

// NextRun returns the first fire time strictly after now.
func (s *Scheduler) NextRun(now time.Time) time.Time {
	local := now.In(s.opts.Location)
	y, m, d := local.Date()
	next := time.Date(y, m, d, s.opts.Hour, s.opts.Minute, 0, 0, s.opts.Location)
	if !next.After(local) {
		next = time.Date(y, m, d+1, s.opts.Hour, s.opts.Minute, 0, 0, s.opts.Location)
	}
	return next
}

// Run blocks until ctx is cancelled, running every job at each fire time.
func (s *Scheduler) Run(ctx context.Context) error {
	slog.InfoContext(ctx, "Scheduler started",
		"component", log.ComponentScheduler,
		"run_at", fmt.Sprintf("%02d:%02d", s.opts.Hour, s.opts.Minute),
		"timezone", s.opts.Location.String(),
		"jobs", s.Jobs())

	if s.opts.RunOnStart {
		s.RunOnce(ctx, s.now())
	}

	for {
		now := s.now()
		next := s.NextRun(now)
		slog.DebugContext(ctx, "Next scheduler tick", "component", log.ComponentScheduler, "next_run", next)

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			slog.InfoContext(ctx, "Scheduler stopped", "component", log.ComponentScheduler, "reason", ctx.Err())
			return ctx.Err()
		case <-timer.C:
			s.RunOnce(ctx, s.now())
		}
	}
}

// RunOnce runs every job sequentially and returns how many failed. A failing
// or panicking job does not stop the others.
func (s *Scheduler) RunOnce(ctx context.Context, now time.Time) int {
	s.mu.Lock()
	jobs := append([]Job(nil), s.jobs...)
	s.mu.Unlock()

	failed := 0
	for _, job := range jobs {
		if ctx.Err() != nil {
			break
		}
		start := time.Now()
		err := runJob(ctx, job, now)
		fields := log.NewFields().
			WithComponent(log.ComponentScheduler).
			WithJob(job.Name(), time.Since(start).Milliseconds(), err == nil)
		if err != nil {
			failed++
			slog.ErrorContext(ctx, "Scheduled job failed", fields.WithError(err).ToSlice()...)
			continue
		}
		slog.InfoContext(ctx, "Scheduled job complete", fields.ToSlice()...)
	}
	return failed
}

func runJob(ctx context.Context, job Job, now time.Time) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", job.Name(), r)
		}
	}()
	return job.Run(ctx, now)
}
