package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"circles-service/internal/models"
)

// InviteCodeRepository abstracts invite code persistence.
type InviteCodeRepository interface {
	CreateInviteCode(ctx context.Context, code string, groupID, createdBy int) (models.InviteCode, error)
	GetInviteCode(ctx context.Context, code string) (models.InviteCode, error)
	ListInviteCodes(ctx context.Context, groupID int) ([]models.InviteCode, error)
}

// InviteCodeRepo is a sqlx implementation of InviteCodeRepository.
type InviteCodeRepo struct {
	db *sqlx.DB
}

// NewInviteCodeRepo constructs an InviteCodeRepo.
func NewInviteCodeRepo(db *sqlx.DB) *InviteCodeRepo {
	return &InviteCodeRepo{db: db}
}

// CreateInviteCode stores a code; a collision returns ErrDuplicate.
func (r *InviteCodeRepo) CreateInviteCode(ctx context.Context, code string, groupID, createdBy int) (models.InviteCode, error) {
	var ic models.InviteCode
	err := r.db.GetContext(ctx, &ic, `INSERT INTO invite_codes (code, group_id, created_by) VALUES ($1, $2, $3) RETURNING code, group_id, created_by, created_at`, code, groupID, createdBy)
	if err != nil {
		return models.InviteCode{}, mapWriteError(err)
	}
	return ic, nil
}

// GetInviteCode looks up a normalized code.
func (r *InviteCodeRepo) GetInviteCode(ctx context.Context, code string) (models.InviteCode, error) {
	var ic models.InviteCode
	err := r.db.GetContext(ctx, &ic, `SELECT code, group_id, created_by, created_at FROM invite_codes WHERE code=$1`, code)
	if errors.Is(err, sql.ErrNoRows) {
		return models.InviteCode{}, ErrInviteCodeNotFound
	}
	return ic, err
}

// ListInviteCodes returns the group's codes, newest first.
func (r *InviteCodeRepo) ListInviteCodes(ctx context.Context, groupID int) ([]models.InviteCode, error) {
	var codes []models.InviteCode
	err := r.db.SelectContext(ctx, &codes, `SELECT code, group_id, created_by, created_at FROM invite_codes WHERE group_id=$1 ORDER BY created_at DESC`, groupID)
	return codes, err
}
