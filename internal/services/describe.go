package services

import (
	"fmt"
	"strconv"
	"strings"

	"circles-service/internal/models"
)

// Describe renders a feed item as a sentence. It depends only on the item.
func Describe(item models.FeedItem) string {
	meta := metadataOf(item.Activity)
	actor := orDefault(item.UserName, "Someone")
	group := orDefault(item.GroupName, "the group")
	movie := orDefault(item.MovieTitle, "a movie")

	switch item.Type {
	case models.ActivityGroupCreated:
		return fmt.Sprintf("%s created %s", actor, group)
	case models.ActivityGroupUpdated:
		return fmt.Sprintf("%s updated the details of %s", actor, group)
	case models.ActivityMovieRated:
		if score, ok := metaNumber(meta, "rating"); ok {
			return fmt.Sprintf("%s rated %s %s/10", actor, movie, score)
		}
		return fmt.Sprintf("%s rated %s", actor, movie)
	case models.ActivityRatingUpdated:
		if score, ok := metaNumber(meta, "rating"); ok {
			return fmt.Sprintf("%s changed their rating of %s to %s/10", actor, movie, score)
		}
		return fmt.Sprintf("%s changed their rating of %s", actor, movie)
	case models.ActivityMovieAdded:
		return fmt.Sprintf("%s added %s to %s", actor, movie, group)
	case models.ActivityWatchlistAdded:
		return fmt.Sprintf("%s added %s to the watchlist", actor, movie)
	case models.ActivityCommentAdded:
		return fmt.Sprintf("%s commented on %s", actor, movie)
	case models.ActivityMemberJoined:
		return fmt.Sprintf("%s joined %s", actor, group)
	case models.ActivityMemberLeft:
		name := orDefault(metaString(meta, "display_name"), actor)
		return fmt.Sprintf("%s left %s", name, group)
	case models.ActivityMemberRemoved:
		target := orDefault(metaString(meta, "display_name"), orDefault(item.TargetUserName, "a member"))
		return fmt.Sprintf("%s removed %s from %s", actor, target, group)
	default:
		return fmt.Sprintf("%s was active in %s", actor, group)
	}
}

func metadataOf(a models.Activity) map[string]interface{} {
	if len(a.Metadata) == 0 {
		return nil
	}
	var meta map[string]interface{}
	if err := a.Metadata.Unmarshal(&meta); err != nil {
		return nil
	}
	return meta
}

func metaString(meta map[string]interface{}, key string) string {
	if v, ok := meta[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func metaNumber(meta map[string]interface{}, key string) (string, bool) {
	switch v := meta[key].(type) {
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case string:
		if v != "" {
			return v, true
		}
	}
	return "", false
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

// displayName falls back to the local part of the email.
func displayName(p models.Profile) string {
	if name := strings.TrimSpace(p.DisplayName); name != "" {
		return name
	}
	if local, _, ok := strings.Cut(p.Email, "@"); ok && local != "" {
		return local
	}
	return ""
}
