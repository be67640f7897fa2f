// Package scheduler runs the periodic sync and enrichment jobs in-process.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Job is one scheduled unit of work.
type Job struct {
	Name     string
	Schedule string // cron spec, including "@every" shorthand
	Run      func(ctx context.Context)
}

// Scheduler wraps a cron runner with context-aware jobs. Jobs that are still
// running when Stop is called get their context cancelled.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a scheduler. Jobs do not run until Start is called.
func New(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Add registers a job under its cron spec.
func (s *Scheduler) Add(job Job) error {
	if job.Schedule == "" {
		return fmt.Errorf("job %s: empty schedule", job.Name)
	}
	_, err := s.cron.AddFunc(job.Schedule, func() {
		s.logger.Info("scheduled job starting", "job", job.Name)
		job.Run(s.ctx)
	})
	if err != nil {
		return fmt.Errorf("job %s: bad schedule %q: %w", job.Name, job.Schedule, err)
	}
	return nil
}

// Start begins running jobs on their schedules.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop cancels running jobs and waits for the cron runner to drain.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
}
