package services_test

import (
	"testing"

	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"

	"circles-service/internal/models"
	"circles-service/internal/services"
)

func TestDescribe(t *testing.T) {
	item := func(kind models.ActivityType, meta string) models.FeedItem {
		return models.FeedItem{
			Activity:   models.Activity{Type: kind, Metadata: types.JSONText(meta)},
			UserName:   "Olivia",
			GroupName:  "Movie Club",
			MovieTitle: "Heat",
		}
	}

	tests := []struct {
		name string
		item models.FeedItem
		want string
	}{
		{name: "group created", item: item(models.ActivityGroupCreated, ""), want: "Olivia created Movie Club"},
		{name: "group updated", item: item(models.ActivityGroupUpdated, ""), want: "Olivia updated the details of Movie Club"},
		{name: "rated with score", item: item(models.ActivityMovieRated, `{"rating":7.5}`), want: "Olivia rated Heat 7.5/10"},
		{name: "rated without score", item: item(models.ActivityMovieRated, `{}`), want: "Olivia rated Heat"},
		{name: "rating updated", item: item(models.ActivityRatingUpdated, `{"rating":"9"}`), want: "Olivia changed their rating of Heat to 9/10"},
		{name: "movie added", item: item(models.ActivityMovieAdded, ""), want: "Olivia added Heat to Movie Club"},
		{name: "watchlist", item: item(models.ActivityWatchlistAdded, ""), want: "Olivia added Heat to the watchlist"},
		{name: "comment", item: item(models.ActivityCommentAdded, ""), want: "Olivia commented on Heat"},
		{name: "joined", item: item(models.ActivityMemberJoined, `{"via":"invite_code"}`), want: "Olivia joined Movie Club"},
		{name: "left uses snapshot", item: item(models.ActivityMemberLeft, `{"display_name":"Ana"}`), want: "Ana left Movie Club"},
		{name: "left without snapshot", item: item(models.ActivityMemberLeft, ""), want: "Olivia left Movie Club"},
		{name: "removed uses snapshot", item: item(models.ActivityMemberRemoved, `{"display_name":"Bruno"}`), want: "Olivia removed Bruno from Movie Club"},
		{name: "removed without snapshot", item: item(models.ActivityMemberRemoved, ""), want: "Olivia removed a member from Movie Club"},
		{name: "unknown type", item: item(models.ActivityType("party_started"), ""), want: "Olivia was active in Movie Club"},
		{name: "malformed metadata", item: item(models.ActivityMovieRated, `{not json`), want: "Olivia rated Heat"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, services.Describe(tc.item))
		})
	}
}

func TestDescribeFallsBackWhenUnenriched(t *testing.T) {
	got := services.Describe(models.FeedItem{Activity: models.Activity{Type: models.ActivityWatchlistAdded}})
	assert.Equal(t, "Someone added a movie to the watchlist", got)
}
