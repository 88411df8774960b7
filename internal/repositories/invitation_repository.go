package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"circles-service/internal/models"
)

// InvitationRepository abstracts invitation persistence.
type InvitationRepository interface {
	CreateInvitation(ctx context.Context, inv models.Invitation) (models.Invitation, error)
	GetInvitation(ctx context.Context, invitationID int) (models.Invitation, error)
	FindPending(ctx context.Context, groupID int, email string) (models.Invitation, error)
	ListPending(ctx context.Context, groupID int) ([]models.Invitation, error)
	DeleteInvitation(ctx context.Context, invitationID int) error
	RotateToken(ctx context.Context, invitationID int, tokenHash string, expiresAt time.Time) error
	Accept(ctx context.Context, invitationID, groupID, userID int) error
}

// InvitationRepo is a sqlx implementation of InvitationRepository.
type InvitationRepo struct {
	db *sqlx.DB
}

// NewInvitationRepo constructs an InvitationRepo.
func NewInvitationRepo(db *sqlx.DB) *InvitationRepo {
	return &InvitationRepo{db: db}
}

const invitationColumns = `id, group_id, email, token_hash, invited_by, expires_at, accepted_at, accepted_by, created_at`

// CreateInvitation inserts a new pending invitation. A second pending row for
// the same (group, email) or a colliding digest returns ErrDuplicate.
func (r *InvitationRepo) CreateInvitation(ctx context.Context, inv models.Invitation) (models.Invitation, error) {
	var created models.Invitation
	err := r.db.GetContext(ctx, &created, `INSERT INTO invitations (group_id, email, token_hash, invited_by, expires_at) VALUES ($1, $2, $3, $4, $5) RETURNING `+invitationColumns,
		inv.GroupID, inv.Email, inv.TokenHash, inv.InvitedBy, inv.ExpiresAt)
	if err != nil {
		return models.Invitation{}, mapWriteError(err)
	}
	return created, nil
}

// GetInvitation fetches a single invitation.
func (r *InvitationRepo) GetInvitation(ctx context.Context, invitationID int) (models.Invitation, error) {
	var inv models.Invitation
	err := r.db.GetContext(ctx, &inv, `SELECT `+invitationColumns+` FROM invitations WHERE id=$1`, invitationID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Invitation{}, ErrInvitationNotFound
	}
	return inv, err
}

// FindPending returns the unaccepted invitation for (groupID, email), expired or not.
func (r *InvitationRepo) FindPending(ctx context.Context, groupID int, email string) (models.Invitation, error) {
	var inv models.Invitation
	err := r.db.GetContext(ctx, &inv, `SELECT `+invitationColumns+` FROM invitations WHERE group_id=$1 AND email=$2 AND accepted_at IS NULL`, groupID, email)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Invitation{}, ErrInvitationNotFound
	}
	return inv, err
}

// ListPending returns unaccepted invitations of a group, newest first.
func (r *InvitationRepo) ListPending(ctx context.Context, groupID int) ([]models.Invitation, error) {
	var invs []models.Invitation
	err := r.db.SelectContext(ctx, &invs, `SELECT `+invitationColumns+` FROM invitations WHERE group_id=$1 AND accepted_at IS NULL ORDER BY created_at DESC`, groupID)
	return invs, err
}

// DeleteInvitation removes an unaccepted invitation.
func (r *InvitationRepo) DeleteInvitation(ctx context.Context, invitationID int) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM invitations WHERE id=$1 AND accepted_at IS NULL`, invitationID)
	return err
}

// RotateToken replaces the digest and expiry of a pending invitation.
func (r *InvitationRepo) RotateToken(ctx context.Context, invitationID int, tokenHash string, expiresAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE invitations SET token_hash=$2, expires_at=$3 WHERE id=$1 AND accepted_at IS NULL`, invitationID, tokenHash, expiresAt)
	if err != nil {
		return mapWriteError(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrInvitationNotFound
	}
	return nil
}

// Accept marks the invitation accepted and creates the member row in one
// transaction. The accepted_at guard makes the mark conditional, so of two
// racing calls only one can commit.
func (r *InvitationRepo) Accept(ctx context.Context, invitationID, groupID, userID int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `UPDATE invitations SET accepted_at=NOW(), accepted_by=$2 WHERE id=$1 AND accepted_at IS NULL`, invitationID, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		err = ErrAlreadyAccepted
		return err
	}

	if _, err = tx.ExecContext(ctx, `INSERT INTO memberships (group_id, user_id, role) VALUES ($1, $2, $3)`, groupID, userID, models.RoleMember); err != nil {
		err = mapWriteError(err)
		return err
	}

	err = tx.Commit()
	return err
}
