package services

import (
	"context"
	"iter"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jonboulle/clockwork"

	"github.com/manthysbr/seao/internal/core/domain"
	"github.com/manthysbr/seao/internal/core/ports"
)

// JobStore owns every job record for the lifetime of the process.
// All mutations go through Update, which serialises read-modify-write under
// the store lock and mirrors the result into the repository when one is set.
type JobStore struct {
	logger *slog.Logger
	clock  clockwork.Clock
	repo   ports.JobRepository // optional

	mu    sync.RWMutex
	jobs  map[domain.JobID]*domain.Job
	order []domain.JobID
}

func NewJobStore(logger *slog.Logger, clock clockwork.Clock, repo ports.JobRepository) *JobStore {
	return &JobStore{
		logger: logger,
		clock:  clock,
		repo:   repo,
		jobs:   make(map[domain.JobID]*domain.Job),
	}
}

// Create inserts a new record. It fails only when the id is already taken.
func (s *JobStore) Create(ctx context.Context, job domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.ID]; exists {
		return errors.Wrapf(domain.ErrJobExists, "create %s", job.ID)
	}

	rec := job.Clone()
	s.jobs[job.ID] = &rec
	s.order = append(s.order, job.ID)
	s.persist(ctx, rec)
	return nil
}

// Get returns a copy of the record.
func (s *JobStore) Get(_ context.Context, id domain.JobID) (domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.jobs[id]
	if !ok {
		return domain.Job{}, errors.Wrapf(domain.ErrJobNotFound, "get %s", id)
	}
	return rec.Clone(), nil
}

// Update applies fn to the record under the store lock and returns the result.
func (s *JobStore) Update(ctx context.Context, id domain.JobID, fn func(*domain.Job) error) (domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.jobs[id]
	if !ok {
		return domain.Job{}, errors.Wrapf(domain.ErrJobNotFound, "update %s", id)
	}

	next := rec.Clone()
	if err := fn(&next); err != nil {
		return rec.Clone(), err
	}
	*rec = next
	s.persist(ctx, next)
	return next.Clone(), nil
}

// List returns the job summaries in insertion order. The sequence is lazy: the
// snapshot is taken when iteration starts, so it can be ranged over again.
func (s *JobStore) List(_ context.Context) iter.Seq[domain.JobSummary] {
	return func(yield func(domain.JobSummary) bool) {
		s.mu.RLock()
		summaries := make([]domain.JobSummary, 0, len(s.order))
		for _, id := range s.order {
			summaries = append(summaries, s.jobs[id].Summary())
		}
		s.mu.RUnlock()

		for _, sum := range summaries {
			if !yield(sum) {
				return
			}
		}
	}
}

// Delete drops a record that never got scheduled.
func (s *JobStore) Delete(ctx context.Context, id domain.JobID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[id]; !ok {
		return errors.Wrapf(domain.ErrJobNotFound, "delete %s", id)
	}
	delete(s.jobs, id)
	s.order = slices.DeleteFunc(s.order, func(o domain.JobID) bool { return o == id })

	if s.repo != nil {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := s.repo.DeleteJob(ctx, id); err != nil {
			s.logger.Error("failed to delete persisted job", "job_id", id, "error", err)
		}
	}
	return nil
}

func (s *JobStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Restore loads persisted jobs. Jobs that were still running when the previous
// process stopped cannot be resumed and are failed.
func (s *JobStore) Restore(ctx context.Context) (int, error) {
	if s.repo == nil {
		return 0, nil
	}

	jobs, err := s.repo.ListJobs(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "restore jobs")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	restored := 0
	for _, job := range jobs {
		if _, exists := s.jobs[job.ID]; exists {
			continue
		}
		if !job.Status.IsTerminal() {
			job.Fail(domain.ReasonRestart, now)
			s.persist(ctx, job)
		}
		rec := job.Clone()
		s.jobs[job.ID] = &rec
		s.order = append(s.order, job.ID)
		restored++
	}
	return restored, nil
}

// persist mirrors a snapshot into the repository. Callers hold s.mu, which keeps
// writes for one job in mutation order. Failures are logged: memory stays authoritative.
func (s *JobStore) persist(ctx context.Context, job domain.Job) {
	if s.repo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.repo.SaveJob(ctx, job); err != nil {
		s.logger.Error("failed to persist job", "job_id", job.ID, "error", err)
	}
}
