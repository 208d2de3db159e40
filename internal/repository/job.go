package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jonesrussell/jobscout/internal/domain"
	"github.com/jonesrussell/jobscout/internal/logger"
)

// JobRepository persists search jobs.
type JobRepository struct {
	db     *sql.DB
	logger logger.Logger
}

// NewJobRepository creates a JobRepository.
func NewJobRepository(db *sql.DB, log logger.Logger) *JobRepository {
	return &JobRepository{db: db, logger: log}
}

const jobColumns = `id, status, pause_requested, progress, live_stats,
	recent_activity, results, api_usage, performance, created_at, updated_at`

// Create inserts a new search job.
func (r *JobRepository) Create(ctx context.Context, job *domain.SearchJob) error {
	query := `
		INSERT INTO search_jobs (` + jobColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.db.ExecContext(ctx, query,
		job.ID,
		string(job.Status),
		job.PauseRequested,
		domain.JSONB[domain.Progress]{V: job.Progress},
		domain.JSONB[domain.LiveStats]{V: job.LiveStats},
		domain.JSONB[[]domain.Activity]{V: job.RecentActivity},
		domain.JSONB[domain.Results]{V: job.Results},
		domain.JSONB[domain.APIUsage]{V: job.APIUsage},
		domain.JSONB[domain.Performance]{V: job.Performance},
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}

	r.logger.Debug("job created", logger.String("job_id", job.ID))
	return nil
}

// Update flushes the full in-memory job state back to the row. It
// deliberately leaves pause_requested alone; that column belongs to
// SetPauseRequested so a user's pause cannot be lost to a progress flush.
func (r *JobRepository) Update(ctx context.Context, job *domain.SearchJob) error {
	query := `
		UPDATE search_jobs
		SET status = $2, progress = $3, live_stats = $4, recent_activity = $5,
		    results = $6, api_usage = $7, performance = $8, updated_at = $9
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query,
		job.ID,
		string(job.Status),
		domain.JSONB[domain.Progress]{V: job.Progress},
		domain.JSONB[domain.LiveStats]{V: job.LiveStats},
		domain.JSONB[[]domain.Activity]{V: job.RecentActivity},
		domain.JSONB[domain.Results]{V: job.Results},
		domain.JSONB[domain.APIUsage]{V: job.APIUsage},
		domain.JSONB[domain.Performance]{V: job.Performance},
		job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update job rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("update job %s: %w", job.ID, ErrNotFound)
	}

	return nil
}

// GetByID fetches one job.
func (r *JobRepository) GetByID(ctx context.Context, id string) (*domain.SearchJob, error) {
	query := `SELECT ` + jobColumns + ` FROM search_jobs WHERE id = $1`
	return r.scanJob(r.db.QueryRowContext(ctx, query, id))
}

// Latest fetches the most recently created job, if any.
func (r *JobRepository) Latest(ctx context.Context) (*domain.SearchJob, error) {
	query := `SELECT ` + jobColumns + ` FROM search_jobs ORDER BY created_at DESC LIMIT 1`
	return r.scanJob(r.db.QueryRowContext(ctx, query))
}

// SetPauseRequested flips the pause flag on a job.
func (r *JobRepository) SetPauseRequested(ctx context.Context, id string, requested bool) error {
	query := `UPDATE search_jobs SET pause_requested = $2, updated_at = now() WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, requested)
	if err != nil {
		return fmt.Errorf("set pause requested: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set pause requested rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("set pause on job %s: %w", id, ErrNotFound)
	}

	return nil
}

// SetStatus updates only the lifecycle status of a job.
func (r *JobRepository) SetStatus(ctx context.Context, id string, status domain.JobStatus) error {
	query := `UPDATE search_jobs SET status = $2, updated_at = now() WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, string(status))
	if err != nil {
		return fmt.Errorf("set job status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set job status rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("set status on job %s: %w", id, ErrNotFound)
	}

	return nil
}

func (r *JobRepository) scanJob(row *sql.Row) (*domain.SearchJob, error) {
	var (
		job      domain.SearchJob
		status   string
		progress domain.JSONB[domain.Progress]
		stats    domain.JSONB[domain.LiveStats]
		activity domain.JSONB[[]domain.Activity]
		results  domain.JSONB[domain.Results]
		usage    domain.JSONB[domain.APIUsage]
		perf     domain.JSONB[domain.Performance]
	)

	err := row.Scan(&job.ID, &status, &job.PauseRequested, &progress, &stats,
		&activity, &results, &usage, &perf, &job.CreatedAt, &job.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan job: %w", err)
	}

	job.Status = domain.JobStatus(status)
	job.Progress = progress.V
	job.LiveStats = stats.V
	job.RecentActivity = activity.V
	job.Results = results.V
	job.APIUsage = usage.V
	job.Performance = perf.V

	return &job, nil
}
