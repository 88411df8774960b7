package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"circles-service/internal/models"
)

// GroupRepository abstracts group persistence.
type GroupRepository interface {
	CreateGroup(ctx context.Context, ownerID int, name, description string) (models.Group, error)
	GetGroup(ctx context.Context, groupID int) (models.Group, error)
	GetGroupsByIDs(ctx context.Context, ids []int) ([]models.Group, error)
	ListGroupsForUser(ctx context.Context, userID int) ([]models.Group, error)
	UpdateGroup(ctx context.Context, groupID int, name, description string) (models.Group, error)
	DeleteGroup(ctx context.Context, groupID int) error
}

// GroupRepo is a sqlx implementation of GroupRepository.
type GroupRepo struct {
	db *sqlx.DB
}

// NewGroupRepo constructs a GroupRepo.
func NewGroupRepo(db *sqlx.DB) *GroupRepo {
	return &GroupRepo{db: db}
}

const groupColumns = `id, name, description, owner_id, created_at, updated_at`

// CreateGroup creates a group and its owner membership atomically.
func (r *GroupRepo) CreateGroup(ctx context.Context, ownerID int, name, description string) (models.Group, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Group{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var group models.Group
	if err = tx.GetContext(ctx, &group, `INSERT INTO groups (name, description, owner_id) VALUES ($1, $2, $3) RETURNING `+groupColumns, name, description, ownerID); err != nil {
		return models.Group{}, err
	}

	if _, err = tx.ExecContext(ctx, `INSERT INTO memberships (group_id, user_id, role) VALUES ($1, $2, $3)`, group.ID, ownerID, models.RoleOwner); err != nil {
		err = mapWriteError(err)
		return models.Group{}, err
	}

	if err = tx.Commit(); err != nil {
		return models.Group{}, err
	}
	return group, nil
}

// GetGroup fetches a single group.
func (r *GroupRepo) GetGroup(ctx context.Context, groupID int) (models.Group, error) {
	var group models.Group
	err := r.db.GetContext(ctx, &group, `SELECT `+groupColumns+` FROM groups WHERE id=$1`, groupID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Group{}, ErrGroupNotFound
	}
	return group, err
}

// GetGroupsByIDs fetches every group in ids with a single query.
func (r *GroupRepo) GetGroupsByIDs(ctx context.Context, ids []int) ([]models.Group, error) {
	if len(ids) == 0 {
		return []models.Group{}, nil
	}
	var groups []models.Group
	err := r.db.SelectContext(ctx, &groups, `SELECT `+groupColumns+` FROM groups WHERE id = ANY($1)`, toInt64s(ids))
	return groups, err
}

// ListGroupsForUser returns groups that include the user.
func (r *GroupRepo) ListGroupsForUser(ctx context.Context, userID int) ([]models.Group, error) {
	var groups []models.Group
	err := r.db.SelectContext(ctx, &groups, `SELECT g.id, g.name, g.description, g.owner_id, g.created_at, g.updated_at FROM groups g INNER JOIN memberships m ON m.group_id = g.id WHERE m.user_id=$1 ORDER BY g.created_at DESC`, userID)
	return groups, err
}

// UpdateGroup overwrites name and description.
func (r *GroupRepo) UpdateGroup(ctx context.Context, groupID int, name, description string) (models.Group, error) {
	var group models.Group
	err := r.db.GetContext(ctx, &group, `UPDATE groups SET name=$2, description=$3, updated_at=NOW() WHERE id=$1 RETURNING `+groupColumns, groupID, name, description)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Group{}, ErrGroupNotFound
	}
	return group, err
}

// DeleteGroup removes the group; memberships, invitations, invite codes and
// activities go with it through ON DELETE CASCADE.
func (r *GroupRepo) DeleteGroup(ctx context.Context, groupID int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM groups WHERE id=$1`, groupID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrGroupNotFound
	}
	return nil
}
