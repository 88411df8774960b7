package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"circles-service/internal/models"
)

// MembershipRepository is the single source of truth for who belongs to
// which group and with what role.
type MembershipRepository interface {
	GetMembership(ctx context.Context, groupID, userID int) (models.Membership, error)
	IsMember(ctx context.Context, groupID, userID int) (bool, error)
	AddMember(ctx context.Context, groupID, userID int) error
	RemoveMember(ctx context.Context, groupID, userID int) error
	ListMembers(ctx context.Context, groupID int) ([]models.Member, error)
	ListGroupIDsForUser(ctx context.Context, userID int) ([]int, error)
}

// MembershipRepo is a sqlx implementation of MembershipRepository.
type MembershipRepo struct {
	db *sqlx.DB
}

// NewMembershipRepo constructs a MembershipRepo.
func NewMembershipRepo(db *sqlx.DB) *MembershipRepo {
	return &MembershipRepo{db: db}
}

// GetMembership fetches the membership row for (groupID, userID).
func (r *MembershipRepo) GetMembership(ctx context.Context, groupID, userID int) (models.Membership, error) {
	var m models.Membership
	err := r.db.GetContext(ctx, &m, `SELECT group_id, user_id, role, joined_at FROM memberships WHERE group_id=$1 AND user_id=$2`, groupID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Membership{}, ErrMembershipNotFound
	}
	return m, err
}

// IsMember checks membership.
func (r *MembershipRepo) IsMember(ctx context.Context, groupID, userID int) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM memberships WHERE group_id=$1 AND user_id=$2)`, groupID, userID)
	return exists, err
}

// AddMember inserts a member-role row. A racing insert for the same pair
// surfaces as ErrDuplicate.
func (r *MembershipRepo) AddMember(ctx context.Context, groupID, userID int) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO memberships (group_id, user_id, role) VALUES ($1, $2, $3)`, groupID, userID, models.RoleMember)
	return mapWriteError(err)
}

// RemoveMember deletes a non-owner membership. Owner rows never match.
func (r *MembershipRepo) RemoveMember(ctx context.Context, groupID, userID int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM memberships WHERE group_id=$1 AND user_id=$2 AND role <> $3`, groupID, userID, models.RoleOwner)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrMembershipNotFound
	}
	return nil
}

// ListMembers returns the group's members joined with their profiles, owner first.
func (r *MembershipRepo) ListMembers(ctx context.Context, groupID int) ([]models.Member, error) {
	var members []models.Member
	err := r.db.SelectContext(ctx, &members, `
        SELECT m.group_id, m.user_id, m.role, m.joined_at,
               COALESCE(p.email, '') AS email,
               COALESCE(p.display_name, '') AS display_name,
               COALESCE(p.avatar_url, '') AS avatar_url
        FROM memberships m
        LEFT JOIN profiles p ON p.id = m.user_id
        WHERE m.group_id=$1
        ORDER BY (m.role = 'owner') DESC, m.joined_at ASC`, groupID)
	return members, err
}

// ListGroupIDsForUser returns the ids of every group the user belongs to.
func (r *MembershipRepo) ListGroupIDsForUser(ctx context.Context, userID int) ([]int, error) {
	var ids []int
	err := r.db.SelectContext(ctx, &ids, `SELECT group_id FROM memberships WHERE user_id=$1`, userID)
	return ids, err
}
