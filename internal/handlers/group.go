package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"circles-service/internal/models"
	"circles-service/internal/services"
	"circles-service/internal/telemetry"
)

// GroupService is the group lifecycle used by GroupHandler.
type GroupService interface {
	Create(ctx context.Context, input services.CreateGroupInput, owner models.Identity) (services.CreateGroupResult, error)
	Get(ctx context.Context, groupID, userID int) (models.Group, error)
	ListForUser(ctx context.Context, userID int) ([]models.Group, error)
	ListMembers(ctx context.Context, groupID, userID int) ([]models.Member, error)
	Update(ctx context.Context, groupID, callerID int, input services.UpdateGroupInput) (models.Group, error)
	Delete(ctx context.Context, groupID, callerID int) error
	Leave(ctx context.Context, groupID, callerID int) error
	RemoveMember(ctx context.Context, groupID, callerID, targetID int) error
}

// GroupHandler manages group-related endpoints.
type GroupHandler struct {
	groups GroupService
	audit  *telemetry.AuditEmitter
}

// NewGroupHandler constructs a GroupHandler.
func NewGroupHandler(groups GroupService, audit *telemetry.AuditEmitter) *GroupHandler {
	return &GroupHandler{groups: groups, audit: audit}
}

// CreateGroup handles POST /groups.
func (h *GroupHandler) CreateGroup(c *gin.Context) {
	var req struct {
		Name        string `json:"name" binding:"required"`
		Description string `json:"description"`
		MemberIDs   []int  `json:"member_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.emitAudit(c, "ERROR", "group_create", 0, "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.groups.Create(c.Request.Context(), services.CreateGroupInput{
		Name:        req.Name,
		Description: req.Description,
		MemberIDs:   req.MemberIDs,
	}, identityFromContext(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}

	h.emitAudit(c, "INFO", "group_create", res.Group.ID, "Group created")
	c.JSON(http.StatusCreated, res)
}

// ListGroups returns groups the caller belongs to.
func (h *GroupHandler) ListGroups(c *gin.Context) {
	groups, err := h.groups.ListForUser(c.Request.Context(), c.GetInt("userID"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

// GetGroup handles GET /groups/:group_id.
func (h *GroupHandler) GetGroup(c *gin.Context) {
	groupID, ok := parsePathID(c, "group_id")
	if !ok {
		return
	}
	group, err := h.groups.Get(c.Request.Context(), groupID, c.GetInt("userID"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"group": group})
}

// UpdateGroup handles PATCH /groups/:group_id.
func (h *GroupHandler) UpdateGroup(c *gin.Context) {
	groupID, ok := parsePathID(c, "group_id")
	if !ok {
		return
	}
	var req struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	group, err := h.groups.Update(c.Request.Context(), groupID, c.GetInt("userID"), services.UpdateGroupInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	h.emitAudit(c, "INFO", "group_update", groupID, "Group updated")
	c.JSON(http.StatusOK, gin.H{"group": group})
}

// DeleteGroup handles DELETE /groups/:group_id. Owner only.
func (h *GroupHandler) DeleteGroup(c *gin.Context) {
	groupID, ok := parsePathID(c, "group_id")
	if !ok {
		return
	}
	if err := h.groups.Delete(c.Request.Context(), groupID, c.GetInt("userID")); err != nil {
		if errors.Is(err, services.ErrForbidden) {
			h.emitAudit(c, "ERROR", "group_delete", groupID, "not allowed")
		}
		writeServiceError(c, err)
		return
	}
	h.emitAudit(c, "INFO", "group_delete", groupID, "Group deleted")
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ListMembers handles GET /groups/:group_id/members.
func (h *GroupHandler) ListMembers(c *gin.Context) {
	groupID, ok := parsePathID(c, "group_id")
	if !ok {
		return
	}
	members, err := h.groups.ListMembers(c.Request.Context(), groupID, c.GetInt("userID"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": members})
}

// LeaveGroup handles POST /groups/:group_id/leave. The owner gets 400
// rather than 403 since leaving is never permitted for them.
func (h *GroupHandler) LeaveGroup(c *gin.Context) {
	groupID, ok := parsePathID(c, "group_id")
	if !ok {
		return
	}
	if err := h.groups.Leave(c.Request.Context(), groupID, c.GetInt("userID")); err != nil {
		status := statusFor(err)
		if status == http.StatusForbidden {
			status = http.StatusBadRequest
		}
		writeServiceErrorStatus(c, status, err)
		return
	}
	h.emitAudit(c, "INFO", "member_leave", groupID, "Member left group")
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// RemoveMember handles DELETE /groups/:group_id/members/:user_id.
func (h *GroupHandler) RemoveMember(c *gin.Context) {
	groupID, ok := parsePathID(c, "group_id")
	if !ok {
		return
	}
	targetID, ok := parsePathID(c, "user_id")
	if !ok {
		return
	}
	if err := h.groups.RemoveMember(c.Request.Context(), groupID, c.GetInt("userID"), targetID); err != nil {
		if errors.Is(err, services.ErrForbidden) {
			h.emitAudit(c, "ERROR", "member_remove", groupID, "not allowed")
		}
		writeServiceError(c, err)
		return
	}
	h.emitAudit(c, "INFO", "member_remove", groupID, fmt.Sprintf("Member %d removed", targetID))
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *GroupHandler) emitAudit(c *gin.Context, level, action string, groupID int, text string) {
	emitAudit(c, h.audit, level, action, groupID, text)
}

func emitAudit(c *gin.Context, audit *telemetry.AuditEmitter, level, action string, groupID int, text string) {
	if audit == nil {
		return
	}
	audit.Emit(c.Request.Context(), level, action, int64(groupID), text, requestIDFromContext(c), userIDFromContext(c))
}
