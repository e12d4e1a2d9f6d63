package duckdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	_ "github.com/marcboeker/go-duckdb"

	"github.com/manthysbr/seao/internal/core/domain"
	"github.com/manthysbr/seao/internal/core/ports"
)

// Repository persists job snapshots in a DuckDB file.
type Repository struct {
	db *sql.DB
}

// Ensure Repository implements the JobRepository port
var _ ports.JobRepository = (*Repository)(nil)

// NewRepository opens (or creates) the database at path and runs migrations.
// An empty path opens an in-memory database.
func NewRepository(path string) (*Repository, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, errors.Wrap(err, "open duckdb")
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "ping duckdb")
	}

	r := &Repository{db: db}
	if err := r.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repository) migrate(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS jobs (
		id VARCHAR PRIMARY KEY,
		username VARCHAR NOT NULL,
		search_terms VARCHAR NOT NULL,
		status VARCHAR NOT NULL,
		progress INTEGER NOT NULL,
		start_time TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		results VARCHAR,
		error VARCHAR
	);
	`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return errors.Wrap(err, "migrate jobs table")
	}
	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) SaveJob(ctx context.Context, job domain.Job) error {
	terms, err := json.Marshal(job.SearchTerms)
	if err != nil {
		return errors.Wrap(err, "marshal search terms")
	}

	var results *string
	if job.Results != nil {
		b, err := json.Marshal(job.Results)
		if err != nil {
			return errors.Wrap(err, "marshal results")
		}
		s := string(b)
		results = &s
	}

	var jobErr *string
	if job.Error != "" {
		jobErr = &job.Error
	}

	query := `
	INSERT INTO jobs (id, username, search_terms, status, progress, start_time, updated_at, results, error)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE SET
		status = excluded.status,
		progress = excluded.progress,
		updated_at = excluded.updated_at,
		results = excluded.results,
		error = excluded.error;
	`
	_, err = r.db.ExecContext(ctx, query,
		string(job.ID), job.Username, string(terms),
		string(job.Status), job.Progress,
		job.StartTime.UTC(), job.UpdatedAt.UTC(),
		results, jobErr,
	)
	if err != nil {
		return errors.Wrapf(err, "save job %s", job.ID)
	}
	return nil
}

func (r *Repository) DeleteJob(ctx context.Context, id domain.JobID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, string(id)); err != nil {
		return errors.Wrapf(err, "delete job %s", id)
	}
	return nil
}

// ListJobs returns every job, oldest first.
func (r *Repository) ListJobs(ctx context.Context) ([]domain.Job, error) {
	query := `SELECT id, username, search_terms, status, progress, start_time, updated_at, results, error FROM jobs ORDER BY start_time ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "list jobs")
	}
	defer rows.Close()

	jobs := []domain.Job{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (domain.Job, error) {
	var (
		id, username, terms, status string
		progress                    int
		startTime, updatedAt        time.Time
		results, jobErr             sql.NullString
	)
	if err := row.Scan(&id, &username, &terms, &status, &progress, &startTime, &updatedAt, &results, &jobErr); err != nil {
		return domain.Job{}, err
	}

	job := domain.Job{
		ID:        domain.JobID(id),
		Username:  username,
		Status:    domain.JobStatus(status),
		Progress:  progress,
		StartTime: startTime.UTC(),
		UpdatedAt: updatedAt.UTC(),
		Error:     jobErr.String,
	}
	if err := json.Unmarshal([]byte(terms), &job.SearchTerms); err != nil {
		return domain.Job{}, errors.Wrapf(err, "decode search terms of %s", id)
	}
	if results.Valid {
		if err := json.Unmarshal([]byte(results.String), &job.Results); err != nil {
			return domain.Job{}, errors.Wrapf(err, "decode results of %s", id)
		}
	}
	return job, nil
}
