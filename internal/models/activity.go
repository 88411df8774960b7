package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// ActivityType enumerates the events that can appear in a feed.
type ActivityType string

const (
	ActivityGroupCreated   ActivityType = "group_created"
	ActivityGroupUpdated   ActivityType = "group_updated"
	ActivityMovieRated     ActivityType = "movie_rated"
	ActivityRatingUpdated  ActivityType = "rating_updated"
	ActivityMovieAdded     ActivityType = "movie_added"
	ActivityWatchlistAdded ActivityType = "watchlist_added"
	ActivityCommentAdded   ActivityType = "comment_added"
	ActivityMemberJoined   ActivityType = "member_joined"
	ActivityMemberLeft     ActivityType = "member_left"
	ActivityMemberRemoved  ActivityType = "member_removed"
)

var knownActivityTypes = map[ActivityType]struct{}{
	ActivityGroupCreated:   {},
	ActivityGroupUpdated:   {},
	ActivityMovieRated:     {},
	ActivityRatingUpdated:  {},
	ActivityMovieAdded:     {},
	ActivityWatchlistAdded: {},
	ActivityCommentAdded:   {},
	ActivityMemberJoined:   {},
	ActivityMemberLeft:     {},
	ActivityMemberRemoved:  {},
}

// Valid reports whether t belongs to the closed set of activity types.
func (t ActivityType) Valid() bool {
	_, ok := knownActivityTypes[t]
	return ok
}

// Activity is an append-only feed record.
type Activity struct {
	ID            int            `db:"id" json:"id"`
	GroupID       int            `db:"group_id" json:"group_id"`
	UserID        int            `db:"user_id" json:"user_id"`
	Type          ActivityType   `db:"activity_type" json:"activity_type"`
	TargetMovieID *int           `db:"target_movie_id" json:"target_movie_id,omitempty"`
	TargetUserID  *int           `db:"target_user_id" json:"target_user_id,omitempty"`
	Metadata      types.JSONText `db:"metadata" json:"metadata"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
}

// FeedItem is an activity joined with its referenced entities.
type FeedItem struct {
	Activity
	UserName       string `json:"user_name,omitempty"`
	UserAvatarURL  string `json:"user_avatar_url,omitempty"`
	GroupName      string `json:"group_name,omitempty"`
	MovieTitle     string `json:"movie_title,omitempty"`
	MoviePosterURL string `json:"movie_poster_url,omitempty"`
	TargetUserName string `json:"target_user_name,omitempty"`
	Description    string `json:"description"`
}

// ActivityEvent is pushed to live feed websocket subscribers.
type ActivityEvent struct {
	Type     string    `json:"type"`
	Activity *FeedItem `json:"activity,omitempty"`
}
