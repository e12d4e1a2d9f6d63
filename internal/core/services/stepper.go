package services

import (
	"context"
	"log/slog"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/jonboulle/clockwork"

	"github.com/manthysbr/seao/internal/core/domain"
)

// Stepper walks jobs through the stage table. Each pending transition is a
// timer armed on the clock only after the current stage has been written, so
// stages of one job never overlap and a run can be stopped between any two.
type Stepper struct {
	logger *slog.Logger
	clock  clockwork.Clock
	store  *JobStore
	bus    *EventBus

	mu     sync.Mutex
	runs   map[domain.JobID]*stepperRun
	closed bool
}

type stepperRun struct {
	timer  clockwork.Timer
	onDone func()
}

func NewStepper(logger *slog.Logger, clock clockwork.Clock, store *JobStore, bus *EventBus) *Stepper {
	return &Stepper{
		logger: logger,
		clock:  clock,
		store:  store,
		bus:    bus,
		runs:   make(map[domain.JobID]*stepperRun),
	}
}

// Run writes the first stage synchronously and schedules the rest.
// onDone is called exactly once, when the job reaches a terminal status.
func (s *Stepper) Run(ctx context.Context, id domain.JobID, onDone func()) {
	s.mu.Lock()
	if _, running := s.runs[id]; running {
		s.mu.Unlock()
		s.logger.Warn("stepper already running for job", "job_id", id)
		return
	}
	s.runs[id] = &stepperRun{onDone: onDone}
	closed := s.closed
	s.mu.Unlock()

	if closed {
		_, _ = s.stop(ctx, id, domain.ReasonShutdown)
		return
	}
	s.advance(ctx, id, 0)
}

func (s *Stepper) advance(ctx context.Context, id domain.JobID, idx int) {
	if ctx.Err() != nil {
		_, _ = s.stop(context.WithoutCancel(ctx), id, domain.ReasonShutdown)
		return
	}

	stage, ok := domain.StageAt(idx)
	if !ok {
		s.finish(id)
		return
	}

	job, err := s.store.Update(ctx, id, func(j *domain.Job) error {
		if j.Status.IsTerminal() {
			return domain.ErrJobTerminal
		}
		j.Advance(stage, s.clock.Now())
		return nil
	})
	if err != nil {
		// Cancelled or failed while the timer was pending.
		s.finish(id)
		return
	}

	s.logger.Info("job stage advanced", "job_id", id, "status", job.Status, "progress", job.Progress)
	s.publish(EventTypeStatus, job)

	if job.Status.IsTerminal() {
		s.publish(EventTypeDone, job)
		s.finish(id)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok {
		return
	}
	run.timer = s.clock.AfterFunc(stage.Pause, func() {
		s.advance(ctx, id, idx+1)
	})
}

// Cancel stops a job between stages and fails it.
func (s *Stepper) Cancel(ctx context.Context, id domain.JobID) (domain.Job, error) {
	return s.stop(ctx, id, domain.ReasonCancelled)
}

// Shutdown stops every pending transition and fails the jobs that were still
// running. Runs started afterwards fail immediately.
func (s *Stepper) Shutdown(ctx context.Context) {
	s.mu.Lock()
	s.closed = true
	ids := make([]domain.JobID, 0, len(s.runs))
	for id := range s.runs {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	for _, id := range ids {
		if _, err := s.stop(ctx, id, domain.ReasonShutdown); err != nil && !errors.Is(err, domain.ErrJobTerminal) {
			s.logger.Error("failed to stop job", "job_id", id, "error", err)
		}
	}
	if len(ids) > 0 {
		s.logger.Info("stepper shut down", "interrupted_jobs", len(ids))
	}
}

// Active returns the number of jobs with a pending transition.
func (s *Stepper) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.runs)
}

// stop detaches the run (if any), fails the job unless it already finished,
// and releases the run. Whoever removes a run from s.runs calls its onDone.
func (s *Stepper) stop(ctx context.Context, id domain.JobID, reason string) (domain.Job, error) {
	s.mu.Lock()
	run, hadRun := s.runs[id]
	if hadRun {
		delete(s.runs, id)
		if run.timer != nil {
			run.timer.Stop()
		}
	}
	s.mu.Unlock()

	if hadRun && run.onDone != nil {
		defer run.onDone()
	}

	job, err := s.store.Update(ctx, id, func(j *domain.Job) error {
		if j.Status.IsTerminal() {
			return domain.ErrJobTerminal
		}
		j.Fail(reason, s.clock.Now())
		return nil
	})
	if err != nil {
		return job, errors.Wrapf(err, "stop %s", id)
	}

	s.logger.Info("job stopped", "job_id", id, "reason", reason, "progress", job.Progress)
	s.publish(EventTypeStatus, job)
	s.publish(EventTypeDone, job)
	return job, nil
}

func (s *Stepper) finish(id domain.JobID) {
	s.mu.Lock()
	run, ok := s.runs[id]
	if ok {
		delete(s.runs, id)
	}
	s.mu.Unlock()

	if ok && run.onDone != nil {
		run.onDone()
	}
}

func (s *Stepper) publish(typ EventType, job domain.Job) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(NewStatusEvent(typ, job, s.clock.Now()))
}
