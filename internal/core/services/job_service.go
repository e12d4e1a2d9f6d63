package services

import (
	"context"
	"iter"
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/jonboulle/clockwork"

	"github.com/manthysbr/seao/internal/core/domain"
)

// CreateJobRequest carries the credentials submitted by the client. The
// password is only checked for presence and never stored.
type CreateJobRequest struct {
	Username    string
	Password    string
	SearchTerms []string
}

type CreateJobResult struct {
	Job     domain.Job
	Session domain.Session
}

// JobService is the application layer behind the HTTP facade.
type JobService struct {
	logger    *slog.Logger
	clock     clockwork.Clock
	store     *JobStore
	stepper   *Stepper
	scheduler *JobScheduler
	sessions  *SessionStore
	ids       *JobIDGenerator
}

func NewJobService(
	logger *slog.Logger,
	clock clockwork.Clock,
	store *JobStore,
	stepper *Stepper,
	scheduler *JobScheduler,
	sessions *SessionStore,
) *JobService {
	return &JobService{
		logger:    logger,
		clock:     clock,
		store:     store,
		stepper:   stepper,
		scheduler: scheduler,
		sessions:  sessions,
		ids:       NewJobIDGenerator(clock),
	}
}

// CreateJob validates the credentials, records the job on its first stage and
// hands it to the scheduler. It returns before any stage transition happens.
func (s *JobService) CreateJob(ctx context.Context, req CreateJobRequest) (CreateJobResult, error) {
	if req.Username == "" || req.Password == "" {
		return CreateJobResult{}, domain.ErrInvalidCredentials
	}

	job := domain.NewJob(s.ids.Next(), req.Username, req.SearchTerms, s.clock.Now())
	if err := s.store.Create(ctx, job); err != nil {
		return CreateJobResult{}, err
	}

	if err := s.scheduler.SubmitJob(ctx, job.ID); err != nil {
		// Not admitted: the caller gets no job id, so no record is kept either.
		if derr := s.store.Delete(ctx, job.ID); derr != nil {
			s.logger.Error("failed to roll back unscheduled job", "job_id", job.ID, "error", derr)
		}
		s.logger.Warn("job rejected", "job_id", job.ID, "error", err)
		return CreateJobResult{}, err
	}
	s.logger.Info("job created", "job_id", job.ID, "username", job.Username, "search_terms", len(job.SearchTerms))

	session := s.sessions.Open(job.ID, job.Username)
	return CreateJobResult{Job: job, Session: session}, nil
}

func (s *JobService) GetJob(ctx context.Context, id domain.JobID) (domain.Job, error) {
	return s.store.Get(ctx, id)
}

func (s *JobService) ListJobs(ctx context.Context) iter.Seq[domain.JobSummary] {
	return s.store.List(ctx)
}

func (s *JobService) CountJobs() int {
	return s.store.Count()
}

// CancelJob fails a job that has not reached a terminal status yet.
func (s *JobService) CancelJob(ctx context.Context, id domain.JobID) (domain.Job, error) {
	if _, err := s.store.Get(ctx, id); err != nil {
		return domain.Job{}, err
	}
	return s.stepper.Cancel(ctx, id)
}

// VerifyCode completes the simulated security-code step.
func (s *JobService) VerifyCode(_ context.Context, sessionID domain.SessionID, code string, jobID domain.JobID) (string, error) {
	token, err := s.sessions.Verify(sessionID, code, jobID)
	if err != nil {
		return "", err
	}
	s.logger.Info("security code accepted", "session_id", sessionID, "job_id", jobID)
	return token, nil
}

// Restore reloads persisted jobs and makes sure new ids never collide with them.
func (s *JobService) Restore(ctx context.Context) error {
	n, err := s.store.Restore(ctx)
	if err != nil {
		return err
	}
	for sum := range s.store.List(ctx) {
		s.ids.Observe(sum.ID)
	}
	if n > 0 {
		s.logger.Info("jobs restored", "count", n)
	}
	return nil
}

// Run drives the scheduler loop until ctx is cancelled.
func (s *JobService) Run(ctx context.Context) error {
	return s.scheduler.Run(ctx, s.stepper.Run)
}

// Shutdown stops pending transitions and fails every job that is not terminal,
// including jobs still waiting in the scheduler queue.
func (s *JobService) Shutdown(ctx context.Context) {
	s.stepper.Shutdown(ctx)

	for sum := range s.store.List(ctx) {
		if sum.Status.IsTerminal() {
			continue
		}
		_, err := s.store.Update(ctx, sum.ID, func(j *domain.Job) error {
			if j.Status.IsTerminal() {
				return domain.ErrJobTerminal
			}
			j.Fail(domain.ReasonShutdown, s.clock.Now())
			return nil
		})
		if err != nil && !errors.Is(err, domain.ErrJobTerminal) {
			s.logger.Error("failed to fail queued job", "job_id", sum.ID, "error", err)
		}
	}
}
