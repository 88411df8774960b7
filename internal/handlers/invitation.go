package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"circles-service/internal/models"
	"circles-service/internal/services"
	"circles-service/internal/telemetry"
)

// InvitationService is the email invitation flow used by InvitationHandler.
type InvitationService interface {
	Send(ctx context.Context, groupID, inviterID int, email string) (models.Invitation, error)
	Resend(ctx context.Context, groupID, inviterID int, email string) error
	ListPending(ctx context.Context, groupID, userID int) ([]models.Invitation, error)
	Accept(ctx context.Context, invitationID int, rawToken string, groupID, userID int) error
}

// InvitationHandler serves invitation endpoints.
type InvitationHandler struct {
	invitations InvitationService
	audit       *telemetry.AuditEmitter
}

func NewInvitationHandler(invitations InvitationService, audit *telemetry.AuditEmitter) *InvitationHandler {
	return &InvitationHandler{invitations: invitations, audit: audit}
}

type invitationRequest struct {
	Email string `json:"email"`
}

// SendInvitation handles POST /groups/:group_id/invitations.
func (h *InvitationHandler) SendInvitation(c *gin.Context) {
	groupID, ok := parsePathID(c, "group_id")
	if !ok {
		return
	}
	var req invitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fieldError(c, "email", "email is required")
		return
	}

	inv, err := h.invitations.Send(c.Request.Context(), groupID, c.GetInt("userID"), req.Email)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	emitAudit(c, h.audit, "INFO", "invitation_send", groupID, "Invitation sent")
	c.JSON(http.StatusCreated, gin.H{"success": true, "invitation_id": inv.ID})
}

// ResendInvitation handles POST /groups/:group_id/invitations/resend.
func (h *InvitationHandler) ResendInvitation(c *gin.Context) {
	groupID, ok := parsePathID(c, "group_id")
	if !ok {
		return
	}
	var req invitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fieldError(c, "email", "email is required")
		return
	}

	if err := h.invitations.Resend(c.Request.Context(), groupID, c.GetInt("userID"), req.Email); err != nil {
		writeServiceError(c, err)
		return
	}
	emitAudit(c, h.audit, "INFO", "invitation_resend", groupID, "Invitation resent")
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ListInvitations handles GET /groups/:group_id/invitations.
func (h *InvitationHandler) ListInvitations(c *gin.Context) {
	groupID, ok := parsePathID(c, "group_id")
	if !ok {
		return
	}
	invs, err := h.invitations.ListPending(c.Request.Context(), groupID, c.GetInt("userID"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invitations": invs})
}

// AcceptInvitation handles POST /invitations/:invitation_id/accept. Every
// business failure except a missing invitation is a 400.
func (h *InvitationHandler) AcceptInvitation(c *gin.Context) {
	invitationID, ok := parsePathID(c, "invitation_id")
	if !ok {
		return
	}
	var req struct {
		Token   string `json:"token" binding:"required"`
		GroupID int    `json:"groupId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token and groupId are required"})
		return
	}

	err := h.invitations.Accept(c.Request.Context(), invitationID, req.Token, req.GroupID, c.GetInt("userID"))
	if err != nil {
		status := statusFor(err)
		switch {
		case errors.Is(err, services.ErrNotFound):
			status = http.StatusNotFound
		case status < http.StatusInternalServerError:
			status = http.StatusBadRequest
		}
		writeServiceErrorStatus(c, status, err)
		return
	}
	emitAudit(c, h.audit, "INFO", "invitation_accept", req.GroupID, "Invitation accepted")
	c.JSON(http.StatusOK, gin.H{"success": true})
}
