package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"circles-service/internal/models"
)

// ProfileRepository is the minimal profile store used for display names and
// lazy provisioning.
type ProfileRepository interface {
	EnsureProfile(ctx context.Context, profile models.Profile) error
	GetProfile(ctx context.Context, userID int) (models.Profile, error)
	FindByEmail(ctx context.Context, email string) (models.Profile, error)
	GetProfilesByIDs(ctx context.Context, ids []int) ([]models.Profile, error)
}

// ProfileRepo is a sqlx implementation of ProfileRepository.
type ProfileRepo struct {
	db *sqlx.DB
}

// NewProfileRepo constructs a ProfileRepo.
func NewProfileRepo(db *sqlx.DB) *ProfileRepo {
	return &ProfileRepo{db: db}
}

const profileColumns = `id, email, display_name, avatar_url, created_at`

// EnsureProfile inserts the profile unless one already exists.
func (r *ProfileRepo) EnsureProfile(ctx context.Context, profile models.Profile) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO profiles (id, email, display_name, avatar_url) VALUES ($1, $2, $3, $4) ON CONFLICT DO NOTHING`,
		profile.ID, profile.Email, profile.DisplayName, profile.AvatarURL)
	return err
}

// GetProfile fetches a profile by user id.
func (r *ProfileRepo) GetProfile(ctx context.Context, userID int) (models.Profile, error) {
	var p models.Profile
	err := r.db.GetContext(ctx, &p, `SELECT `+profileColumns+` FROM profiles WHERE id=$1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Profile{}, ErrProfileNotFound
	}
	return p, err
}

// FindByEmail fetches a profile by its lower-cased email.
func (r *ProfileRepo) FindByEmail(ctx context.Context, email string) (models.Profile, error) {
	var p models.Profile
	err := r.db.GetContext(ctx, &p, `SELECT `+profileColumns+` FROM profiles WHERE LOWER(email)=$1`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Profile{}, ErrProfileNotFound
	}
	return p, err
}

// GetProfilesByIDs fetches all profiles in ids with a single query.
func (r *ProfileRepo) GetProfilesByIDs(ctx context.Context, ids []int) ([]models.Profile, error) {
	if len(ids) == 0 {
		return []models.Profile{}, nil
	}
	var profiles []models.Profile
	err := r.db.SelectContext(ctx, &profiles, `SELECT `+profileColumns+` FROM profiles WHERE id = ANY($1)`, toInt64s(ids))
	return profiles, err
}
