package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

var errNoJobs = errors.New("scheduler: no jobs registered")

// Job is one periodic task.
type Job struct {
	Name     string
	Interval time.Duration
	// Timeout bounds a single run; zero means the interval.
	Timeout time.Duration
	Run     func(ctx context.Context) error
}

// Scheduler runs a set of named jobs at fixed intervals.
type Scheduler struct {
	scheduler *gocron.Scheduler
	logger    *slog.Logger
	jobs      []Job
}

// New creates a new Scheduler.
func New(logger *slog.Logger) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		logger:    logger,
	}
}

// Add registers a job. It must be called before Start.
func (s *Scheduler) Add(job Job) error {
	if job.Interval <= 0 {
		return fmt.Errorf("scheduler: job %q: interval must be positive, got %s", job.Name, job.Interval)
	}
	if job.Run == nil {
		return fmt.Errorf("scheduler: job %q: nil run func", job.Name)
	}
	s.jobs = append(s.jobs, job)
	return nil
}

// Start schedules every registered job and starts the underlying scheduler.
// The first run of each job happens one interval after Start.
func (s *Scheduler) Start() error {
	if len(s.jobs) == 0 {
		return errNoJobs
	}

	for _, job := range s.jobs {
		job := job
		timeout := job.Timeout
		if timeout <= 0 {
			timeout = job.Interval
		}

		_, err := s.scheduler.Every(job.Interval).WaitForSchedule().Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			start := time.Now()
			if err := job.Run(ctx); err != nil {
				s.logger.Warn("scheduled job failed", "job", job.Name, "error", err)
				return
			}
			s.logger.Debug("scheduled job completed", "job", job.Name, "took", time.Since(start))
		})
		if err != nil {
			return fmt.Errorf("scheduler: schedule %q: %w", job.Name, err)
		}
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
