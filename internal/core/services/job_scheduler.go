package services

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/semaphore"

	"github.com/manthysbr/seao/internal/core/domain"
)

// SchedulerConfig defines admission limits for stepper runs
type SchedulerConfig struct {
	// MaxActiveJobs caps concurrently running steppers. Zero means no cap:
	// every job starts its stage table as soon as it is dequeued.
	MaxActiveJobs int64
	QueueSize     int
}

// JobRunner executes one job and calls done when the job is terminal.
type JobRunner func(ctx context.Context, id domain.JobID, done func())

// JobScheduler admits jobs into the stepper. With a cap, a job holds one
// semaphore unit from the moment its first stage is written until it reaches
// a terminal status.
type JobScheduler struct {
	logger       *slog.Logger
	pendingQueue chan domain.JobID
	semaphore    *semaphore.Weighted // nil when uncapped
}

func NewJobScheduler(logger *slog.Logger, cfg SchedulerConfig) *JobScheduler {
	size := cfg.QueueSize
	if size <= 0 {
		size = 256
	}

	s := &JobScheduler{
		logger:       logger,
		pendingQueue: make(chan domain.JobID, size),
	}
	if cfg.MaxActiveJobs > 0 {
		s.semaphore = semaphore.NewWeighted(cfg.MaxActiveJobs)
	}
	return s
}

// SubmitJob queues a job for execution without blocking.
func (s *JobScheduler) SubmitJob(_ context.Context, id domain.JobID) error {
	select {
	case s.pendingQueue <- id:
		s.logger.Debug("job submitted", "job_id", id)
		return nil
	default:
		return errors.Wrapf(domain.ErrQueueFull, "submit %s", id)
	}
}

// Run consumes the queue until ctx is cancelled.
func (s *JobScheduler) Run(ctx context.Context, runner JobRunner) error {
	s.logger.Info("starting job scheduler")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("stopping scheduler")
			return nil
		case id := <-s.pendingQueue:
			if s.semaphore == nil {
				runner(ctx, id, func() {})
				continue
			}
			if err := s.semaphore.Acquire(ctx, 1); err != nil {
				// Only fails when ctx is done. JobService.Shutdown fails every
				// job left behind.
				s.logger.Warn("scheduler stopped while waiting for a slot", "job_id", id)
				return nil
			}
			runner(ctx, id, func() { s.semaphore.Release(1) })
		}
	}
}

// Pending returns the number of jobs waiting for a slot.
func (s *JobScheduler) Pending() int {
	return len(s.pendingQueue)
}
