package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/jobscout/internal/domain"
	"github.com/jonesrussell/jobscout/internal/logger"
)

func newJobRepo(t *testing.T) (*JobRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewJobRepository(db, logger.NewNop()), mock
}

func TestJobCreate(t *testing.T) {
	repo, mock := newJobRepo(t)

	mock.ExpectExec("INSERT INTO search_jobs").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), domain.NewSearchJob())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobUpdateNotFound(t *testing.T) {
	repo, mock := newJobRepo(t)

	mock.ExpectExec("UPDATE search_jobs").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), domain.NewSearchJob())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestJobGetByID(t *testing.T) {
	repo, mock := newJobRepo(t)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "status", "pause_requested", "progress", "live_stats",
		"recent_activity", "results", "api_usage", "performance",
		"created_at", "updated_at",
	}).AddRow(
		"job-1", "running", false,
		`{"phase":"company-processing","percent":72,"step":"processing Acme"}`,
		`{"companies_generated":40,"companies_saved":12}`,
		`[]`, `{}`, `{"generative_calls":9}`, `{}`,
		now, now,
	)

	mock.ExpectQuery("SELECT (.+) FROM search_jobs WHERE id").
		WithArgs("job-1").
		WillReturnRows(rows)

	job, err := repo.GetByID(context.Background(), "job-1")
	require.NoError(t, err)

	assert.Equal(t, domain.JobRunning, job.Status)
	assert.Equal(t, domain.PhaseCompanyProcessing, job.Progress.Phase)
	assert.Equal(t, 72, job.Progress.Percent)
	assert.Equal(t, 40, job.LiveStats.CompaniesGenerated)
	assert.Equal(t, 9, job.APIUsage.GenerativeCalls)
}

func TestJobGetByIDNotFound(t *testing.T) {
	repo, mock := newJobRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM search_jobs WHERE id").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestJobSetStatus(t *testing.T) {
	repo, mock := newJobRepo(t)

	mock.ExpectExec("UPDATE search_jobs SET status").
		WithArgs("job-1", "paused").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SetStatus(context.Background(), "job-1", domain.JobPaused)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
