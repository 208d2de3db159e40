package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jonesrussell/jobscout/internal/domain"
	"github.com/jonesrussell/jobscout/internal/logger"
)

// ProfileRepository persists the user profile keyed by email, so repeated
// searches by the same person reuse their latest profile and analysis.
type ProfileRepository struct {
	db     *sql.DB
	logger logger.Logger
}

// NewProfileRepository creates a ProfileRepository.
func NewProfileRepository(db *sql.DB, log logger.Logger) *ProfileRepository {
	return &ProfileRepository{db: db, logger: log}
}

// Upsert stores the profile and its analysis, replacing any previous record
// for the same email.
func (r *ProfileRepository) Upsert(ctx context.Context, profile *domain.UserProfile) error {
	query := `
		INSERT INTO user_profiles (email, profile, analysis, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO UPDATE
		SET profile = EXCLUDED.profile,
		    analysis = EXCLUDED.analysis,
		    updated_at = EXCLUDED.updated_at`

	_, err := r.db.ExecContext(ctx, query,
		profile.Personal.Email,
		domain.JSONB[domain.UserProfile]{V: *profile},
		profile.Analysis,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}

	r.logger.Debug("profile upserted", logger.String("email", profile.Personal.Email))
	return nil
}

// Latest fetches the most recently updated profile. With a single user this
// is the profile on file.
func (r *ProfileRepository) Latest(ctx context.Context) (*domain.UserProfile, error) {
	var (
		stored   domain.JSONB[domain.UserProfile]
		analysis string
	)

	query := `SELECT profile, analysis FROM user_profiles ORDER BY updated_at DESC LIMIT 1`
	err := r.db.QueryRowContext(ctx, query).Scan(&stored, &analysis)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("latest profile: %w", err)
	}

	profile := stored.V
	profile.Analysis = analysis
	return &profile, nil
}

// Get fetches the stored profile for an email.
func (r *ProfileRepository) Get(ctx context.Context, email string) (*domain.UserProfile, error) {
	var (
		stored   domain.JSONB[domain.UserProfile]
		analysis string
	)

	query := `SELECT profile, analysis FROM user_profiles WHERE email = $1`
	err := r.db.QueryRowContext(ctx, query, email).Scan(&stored, &analysis)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}

	profile := stored.V
	profile.Analysis = analysis
	return &profile, nil
}
