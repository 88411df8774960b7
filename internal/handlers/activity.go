package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"circles-service/internal/models"
	"circles-service/internal/services"
)

// ActivityService serves activity feeds.
type ActivityService interface {
	QueryForGroup(ctx context.Context, groupID, callerID int, page services.Page) (services.FeedPage, error)
	QueryForUser(ctx context.Context, userID int, page services.Page) (services.FeedPage, error)
	Ingest(ctx context.Context, entry services.ActivityEntry) error
}

type ActivityHandler struct {
	activity ActivityService
}

func NewActivityHandler(activity ActivityService) *ActivityHandler {
	return &ActivityHandler{activity: activity}
}

// GroupActivities handles GET /groups/:group_id/activities.
func (h *ActivityHandler) GroupActivities(c *gin.Context) {
	groupID, ok := parsePathID(c, "group_id")
	if !ok {
		return
	}
	page, ok := parsePage(c)
	if !ok {
		return
	}
	feed, err := h.activity.QueryForGroup(c.Request.Context(), groupID, c.GetInt("userID"), page)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, feed)
}

type postActivityRequest struct {
	Type     string                 `json:"type" binding:"required"`
	MovieID  int                    `json:"movie_id" binding:"required"`
	Metadata map[string]interface{} `json:"metadata"`
}

// PostActivity handles POST /groups/:group_id/activities.
func (h *ActivityHandler) PostActivity(c *gin.Context) {
	groupID, ok := parsePathID(c, "group_id")
	if !ok {
		return
	}
	var req postActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.activity.Ingest(c.Request.Context(), services.ActivityEntry{
		GroupID:       groupID,
		UserID:        c.GetInt("userID"),
		Type:          models.ActivityType(req.Type),
		TargetMovieID: &req.MovieID,
		Metadata:      req.Metadata,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "recorded"})
}

// UserActivities handles GET /activities.
func (h *ActivityHandler) UserActivities(c *gin.Context) {
	page, ok := parsePage(c)
	if !ok {
		return
	}
	feed, err := h.activity.QueryForUser(c.Request.Context(), c.GetInt("userID"), page)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, feed)
}

func parsePage(c *gin.Context) (services.Page, bool) {
	page := services.Page{Filter: c.Query("filter")}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			fieldError(c, "limit", "limit must be a number")
			return services.Page{}, false
		}
		page.Limit = limit
	}
	if raw := c.Query("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil {
			fieldError(c, "offset", "offset must be a number")
			return services.Page{}, false
		}
		page.Offset = offset
	}
	return page, true
}
