package ports

import (
	"context"

	"github.com/manthysbr/seao/internal/core/domain"
)

// JobRepository abstracts the persistent storage of job snapshots (DuckDB).
// The in-memory JobStore stays authoritative; the repository only mirrors it.
type JobRepository interface {
	// SaveJob upserts the full job snapshot.
	SaveJob(ctx context.Context, job domain.Job) error

	// DeleteJob removes a snapshot. Deleting an unknown id is not an error.
	DeleteJob(ctx context.Context, id domain.JobID) error

	// ListJobs returns every persisted job ordered by start time.
	ListJobs(ctx context.Context) ([]domain.Job, error)
}
