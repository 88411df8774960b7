package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"circles-service/internal/models"
)

// ActivityQuery selects a page of activities. GroupIDs is required; an empty
// Types slice means every type.
type ActivityQuery struct {
	GroupIDs []int
	Types    []models.ActivityType
	Limit    int
	Offset   int
}

// ActivityRepository is the append-only activity log.
type ActivityRepository interface {
	CreateActivity(ctx context.Context, activity models.Activity) (models.Activity, error)
	ListActivities(ctx context.Context, q ActivityQuery) ([]models.Activity, error)
	CountActivities(ctx context.Context, q ActivityQuery) (int, error)
}

// ActivityRepo is a sqlx implementation of ActivityRepository.
type ActivityRepo struct {
	db *sqlx.DB
}

// NewActivityRepo constructs an ActivityRepo.
func NewActivityRepo(db *sqlx.DB) *ActivityRepo {
	return &ActivityRepo{db: db}
}

const activityColumns = `id, group_id, user_id, activity_type, target_movie_id, target_user_id, metadata, created_at`

// CreateActivity appends a record.
func (r *ActivityRepo) CreateActivity(ctx context.Context, activity models.Activity) (models.Activity, error) {
	metadata := activity.Metadata
	if len(metadata) == 0 {
		metadata = []byte("{}")
	}
	var created models.Activity
	err := r.db.GetContext(ctx, &created, `INSERT INTO activities (group_id, user_id, activity_type, target_movie_id, target_user_id, metadata) VALUES ($1, $2, $3, $4, $5, $6) RETURNING `+activityColumns,
		activity.GroupID, activity.UserID, activity.Type, activity.TargetMovieID, activity.TargetUserID, metadata)
	return created, err
}

// ListActivities returns one page, newest first.
func (r *ActivityRepo) ListActivities(ctx context.Context, q ActivityQuery) ([]models.Activity, error) {
	where, args := activityWhere(q)
	args = append(args, q.Limit, q.Offset)
	query := fmt.Sprintf(`SELECT %s FROM activities WHERE %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		activityColumns, where, len(args)-1, len(args))

	var activities []models.Activity
	err := r.db.SelectContext(ctx, &activities, query, args...)
	return activities, err
}

// CountActivities returns the total number of rows matching q, ignoring paging.
func (r *ActivityRepo) CountActivities(ctx context.Context, q ActivityQuery) (int, error) {
	where, args := activityWhere(q)
	var total int
	err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM activities WHERE `+where, args...)
	return total, err
}

func activityWhere(q ActivityQuery) (string, []interface{}) {
	clauses := []string{"group_id = ANY($1)"}
	args := []interface{}{toInt64s(q.GroupIDs)}
	if len(q.Types) > 0 {
		types := make(pq.StringArray, 0, len(q.Types))
		for _, t := range q.Types {
			types = append(types, string(t))
		}
		args = append(args, types)
		clauses = append(clauses, fmt.Sprintf("activity_type = ANY($%d)", len(args)))
	}
	return strings.Join(clauses, " AND "), args
}
