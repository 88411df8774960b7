package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"circles-service/internal/services"
	"circles-service/internal/telemetry"
)

// InviteCodeService issues and redeems join codes.
type InviteCodeService interface {
	GetOrCreate(ctx context.Context, groupID, userID int) (string, error)
	Redeem(ctx context.Context, code string, userID int) (services.RedeemResult, error)
}

// InviteCodeHandler serves invite-code endpoints.
type InviteCodeHandler struct {
	codes InviteCodeService
	audit *telemetry.AuditEmitter
}

func NewInviteCodeHandler(codes InviteCodeService, audit *telemetry.AuditEmitter) *InviteCodeHandler {
	return &InviteCodeHandler{codes: codes, audit: audit}
}

// GetInviteCode handles POST /groups/:group_id/invite-code.
func (h *InviteCodeHandler) GetInviteCode(c *gin.Context) {
	groupID, ok := parsePathID(c, "group_id")
	if !ok {
		return
	}
	code, err := h.codes.GetOrCreate(c.Request.Context(), groupID, c.GetInt("userID"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": code})
}

// JoinGroup handles POST /groups/join. Any non-internal failure is a 400.
func (h *InviteCodeHandler) JoinGroup(c *gin.Context) {
	var req struct {
		Code string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code is required"})
		return
	}

	res, err := h.codes.Redeem(c.Request.Context(), req.Code, c.GetInt("userID"))
	if err != nil {
		status := statusFor(err)
		if status < http.StatusInternalServerError {
			status = http.StatusBadRequest
		}
		writeServiceErrorStatus(c, status, err)
		return
	}
	if !res.AlreadyMember {
		emitAudit(c, h.audit, "INFO", "invite_code_join", res.GroupID, "Joined via invite code")
	}
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"alreadyMember": res.AlreadyMember,
		"groupId":       res.GroupID,
		"groupName":     res.GroupName,
	})
}
