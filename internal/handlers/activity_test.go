package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"circles-service/internal/mocks"
	"circles-service/internal/models"
	"circles-service/internal/services"
)

func setupActivityRouter(handler *ActivityHandler) *gin.Engine {
	r := newTestRouter()
	r.GET("/groups/:group_id/activities", handler.GroupActivities)
	r.GET("/activities", handler.UserActivities)
	return r
}

func TestGroupActivitiesPassesPage(t *testing.T) {
	svc := new(mocks.ActivityServiceMock)
	router := setupActivityRouter(NewActivityHandler(svc))
	feed := services.FeedPage{
		Activities: []models.FeedItem{{
			Activity:    models.Activity{ID: 3, GroupID: 9, UserID: 1, Type: models.ActivityMemberJoined},
			Description: "Olivia joined Movie Club",
		}},
		HasMore: true,
	}
	svc.On("QueryForGroup", mock.Anything, 9, 1, services.Page{Limit: 5, Offset: 10, Filter: "ratings"}).Return(feed, nil).Once()

	rec := doRequest(router, http.MethodGet, "/groups/9/activities?limit=5&offset=10&filter=ratings", "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["hasMore"])
	items := body["activities"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, "Olivia joined Movie Club", items[0].(map[string]interface{})["description"])
}

func TestGroupActivitiesInvalidLimit(t *testing.T) {
	svc := new(mocks.ActivityServiceMock)
	router := setupActivityRouter(NewActivityHandler(svc))

	rec := doRequest(router, http.MethodGet, "/groups/9/activities?limit=ten", "")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	fields := decodeBody(t, rec)["fieldErrors"].(map[string]interface{})
	assert.Equal(t, "limit must be a number", fields["limit"])
	svc.AssertNotCalled(t, "QueryForGroup", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGroupActivitiesForbidden(t *testing.T) {
	svc := new(mocks.ActivityServiceMock)
	router := setupActivityRouter(NewActivityHandler(svc))
	svc.On("QueryForGroup", mock.Anything, 9, 1, services.Page{}).Return(nil, services.ErrForbidden).Once()

	rec := doRequest(router, http.MethodGet, "/groups/9/activities", "")

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUserActivitiesUnknownFilter(t *testing.T) {
	svc := new(mocks.ActivityServiceMock)
	router := setupActivityRouter(NewActivityHandler(svc))
	svc.On("QueryForUser", mock.Anything, 1, services.Page{Filter: "bogus"}).
		Return(nil, &services.ValidationError{Fields: map[string]string{"filter": "unknown filter"}}).Once()

	rec := doRequest(router, http.MethodGet, "/activities?filter=bogus", "")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody(t, rec), "fieldErrors")
}

func TestUserActivitiesEmptyFeed(t *testing.T) {
	svc := new(mocks.ActivityServiceMock)
	router := setupActivityRouter(NewActivityHandler(svc))
	svc.On("QueryForUser", mock.Anything, 1, services.Page{}).
		Return(services.FeedPage{Activities: []models.FeedItem{}}, nil).Once()

	rec := doRequest(router, http.MethodGet, "/activities", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"activities":[],"hasMore":false}`, rec.Body.String())
}

func TestPostActivityRecordsForCaller(t *testing.T) {
	svc := new(mocks.ActivityServiceMock)
	r := newTestRouter()
	r.POST("/groups/:group_id/activities", NewActivityHandler(svc).PostActivity)
	svc.On("Ingest", mock.Anything, mock.MatchedBy(func(e services.ActivityEntry) bool {
		return e.GroupID == 9 && e.UserID == 1 && e.Type == models.ActivityMovieRated &&
			e.TargetMovieID != nil && *e.TargetMovieID == 603 && e.Metadata["rating"] == float64(5)
	})).Return(nil).Once()

	rec := doRequest(r, http.MethodPost, "/groups/9/activities", `{"type":"movie_rated","movie_id":603,"metadata":{"rating":5}}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "recorded", decodeBody(t, rec)["status"])
	svc.AssertExpectations(t)
}

func TestPostActivityErrors(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		body   string
		err    error
		status int
	}{
		{name: "malformed body", path: "/groups/9/activities", body: `{"type":`, status: http.StatusBadRequest},
		{name: "missing movie", path: "/groups/9/activities", body: `{"type":"movie_rated"}`, status: http.StatusBadRequest},
		{name: "bad group id", path: "/groups/x/activities", body: `{"type":"movie_rated","movie_id":1}`, status: http.StatusBadRequest},
		{name: "not a member", path: "/groups/9/activities", body: `{"type":"movie_rated","movie_id":1}`, err: services.ErrForbidden, status: http.StatusForbidden},
		{name: "lifecycle type", path: "/groups/9/activities", body: `{"type":"member_joined","movie_id":1}`, err: &services.ValidationError{Fields: map[string]string{"type": "bad"}}, status: http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := new(mocks.ActivityServiceMock)
			r := newTestRouter()
			r.POST("/groups/:group_id/activities", NewActivityHandler(svc).PostActivity)
			if tc.err != nil {
				svc.On("Ingest", mock.Anything, mock.Anything).Return(tc.err).Once()
			}

			rec := doRequest(r, http.MethodPost, tc.path, tc.body)

			assert.Equal(t, tc.status, rec.Code)
			if tc.err == nil {
				svc.AssertNotCalled(t, "Ingest", mock.Anything, mock.Anything)
			}
		})
	}
}
