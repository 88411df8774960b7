package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"circles-service/internal/models"
	"circles-service/internal/observability"
	"circles-service/internal/repositories"
	"circles-service/internal/tokens"
)

// InvitationTTL is how long an emailed invitation stays valid.
const InvitationTTL = 7 * 24 * time.Hour

// InvitationNotifier delivers invitation emails. Delivery is best effort.
type InvitationNotifier interface {
	SendInvitation(ctx context.Context, email models.InvitationEmail) error
}

// InvitationService manages email invitations: issuing, superseding expired
// ones, resending and accepting.
type InvitationService struct {
	invitations repositories.InvitationRepository
	memberships repositories.MembershipRepository
	profiles    repositories.ProfileRepository
	groups      repositories.GroupRepository
	notifier    InvitationNotifier
	activity    ActivityRecorder
	baseURL     string
	now         func() time.Time
}

// NewInvitationService constructs an InvitationService. baseURL is the public
// origin used to build accept links.
func NewInvitationService(
	invitations repositories.InvitationRepository,
	memberships repositories.MembershipRepository,
	profiles repositories.ProfileRepository,
	groups repositories.GroupRepository,
	notifier InvitationNotifier,
	activity ActivityRecorder,
	baseURL string,
) *InvitationService {
	return &InvitationService{
		invitations: invitations,
		memberships: memberships,
		profiles:    profiles,
		groups:      groups,
		notifier:    notifier,
		activity:    activity,
		baseURL:     strings.TrimRight(baseURL, "/"),
		now:         time.Now,
	}
}

// Send issues an invitation for email to join groupID. The raw token only
// leaves the process inside the emailed link.
func (s *InvitationService) Send(ctx context.Context, groupID, inviterID int, email string) (models.Invitation, error) {
	email = NormalizeEmail(email)
	logCtx := logrus.WithFields(logrus.Fields{"group_id": groupID, "inviter_id": inviterID, "email": email})

	if err := s.requireMember(ctx, groupID, inviterID); err != nil {
		return models.Invitation{}, err
	}
	if err := validateEmail(email); err != nil {
		return models.Invitation{}, err
	}

	profile, err := s.profiles.FindByEmail(ctx, email)
	switch {
	case err == nil:
		member, err := s.memberships.IsMember(ctx, groupID, profile.ID)
		if err != nil {
			logCtx.WithError(err).Error("Send: invitee membership check failed")
			return models.Invitation{}, ErrInternal
		}
		if member {
			return models.Invitation{}, fmt.Errorf("%w: already a member", ErrConflict)
		}
	case !errors.Is(err, repositories.ErrProfileNotFound):
		logCtx.WithError(err).Error("Send: profile lookup failed")
		return models.Invitation{}, ErrInternal
	}

	now := s.now()
	pending, err := s.invitations.FindPending(ctx, groupID, email)
	switch {
	case err == nil:
		if !pending.IsExpired(now) {
			return models.Invitation{}, fmt.Errorf("%w: invitation already pending", ErrConflict)
		}
		if err := s.invitations.DeleteInvitation(ctx, pending.ID); err != nil {
			logCtx.WithError(err).Error("Send: failed to delete expired invitation")
			return models.Invitation{}, ErrInternal
		}
		observability.IncInvitation("superseded")
		logCtx.WithField("invitation_id", pending.ID).Info("Expired invitation superseded")
	case !errors.Is(err, repositories.ErrInvitationNotFound):
		logCtx.WithError(err).Error("Send: pending invitation lookup failed")
		return models.Invitation{}, ErrInternal
	}

	rawToken, err := tokens.GenerateSecureToken(tokens.DefaultByteLength)
	if err != nil {
		logCtx.WithError(err).Error("Send: token generation failed")
		return models.Invitation{}, ErrInternal
	}

	inv, err := s.invitations.CreateInvitation(ctx, models.Invitation{
		GroupID:   groupID,
		Email:     email,
		TokenHash: tokens.Hash(rawToken),
		InvitedBy: inviterID,
		ExpiresAt: now.Add(InvitationTTL),
	})
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return models.Invitation{}, fmt.Errorf("%w: invitation already pending", ErrConflict)
		}
		logCtx.WithError(err).Error("Send: failed to store invitation")
		return models.Invitation{}, ErrInternal
	}

	observability.IncInvitation("sent")
	logCtx.WithField("invitation_id", inv.ID).Info("Invitation created")

	s.dispatch(ctx, inv, rawToken)
	return inv, nil
}

// Resend rotates the token of the pending invitation for (groupID, email)
// and emails it again with a fresh expiry.
func (s *InvitationService) Resend(ctx context.Context, groupID, inviterID int, email string) error {
	email = NormalizeEmail(email)
	logCtx := logrus.WithFields(logrus.Fields{"group_id": groupID, "inviter_id": inviterID, "email": email})

	if err := s.requireMember(ctx, groupID, inviterID); err != nil {
		return err
	}
	if err := validateEmail(email); err != nil {
		return err
	}

	pending, err := s.invitations.FindPending(ctx, groupID, email)
	if err != nil {
		if errors.Is(err, repositories.ErrInvitationNotFound) {
			return fmt.Errorf("%w: no pending invitation for this address", ErrNotFound)
		}
		logCtx.WithError(err).Error("Resend: pending invitation lookup failed")
		return ErrInternal
	}

	rawToken, err := tokens.GenerateSecureToken(tokens.DefaultByteLength)
	if err != nil {
		logCtx.WithError(err).Error("Resend: token generation failed")
		return ErrInternal
	}
	pending.TokenHash = tokens.Hash(rawToken)
	pending.ExpiresAt = s.now().Add(InvitationTTL)

	if err := s.invitations.RotateToken(ctx, pending.ID, pending.TokenHash, pending.ExpiresAt); err != nil {
		if errors.Is(err, repositories.ErrInvitationNotFound) {
			return fmt.Errorf("%w: no pending invitation for this address", ErrNotFound)
		}
		logCtx.WithError(err).Error("Resend: failed to rotate token")
		return ErrInternal
	}

	observability.IncInvitation("resent")
	s.dispatch(ctx, pending, rawToken)
	return nil
}

// ListPending returns the group's unaccepted invitations. Digests are never
// serialized.
func (s *InvitationService) ListPending(ctx context.Context, groupID, userID int) ([]models.Invitation, error) {
	if err := s.requireMember(ctx, groupID, userID); err != nil {
		return nil, err
	}
	invs, err := s.invitations.ListPending(ctx, groupID)
	if err != nil {
		logrus.WithError(err).WithField("group_id", groupID).Error("ListPending failed")
		return nil, ErrInternal
	}
	return invs, nil
}

// Accept redeems an invitation for userID. Checks run in order and the first
// failure wins: not found, invalid token, already used, expired, already a
// member.
func (s *InvitationService) Accept(ctx context.Context, invitationID int, rawToken string, groupID, userID int) error {
	logCtx := logrus.WithFields(logrus.Fields{"invitation_id": invitationID, "group_id": groupID, "user_id": userID})

	inv, err := s.invitations.GetInvitation(ctx, invitationID)
	if err != nil {
		if errors.Is(err, repositories.ErrInvitationNotFound) {
			return fmt.Errorf("%w: invitation not found", ErrNotFound)
		}
		logCtx.WithError(err).Error("Accept: invitation lookup failed")
		return ErrInternal
	}
	if inv.GroupID != groupID {
		return fmt.Errorf("%w: invitation not found", ErrNotFound)
	}
	if !tokens.Verify(rawToken, inv.TokenHash) {
		return ErrInvalidToken
	}
	if inv.IsAccepted() {
		return ErrAlreadyUsed
	}
	if inv.IsExpired(s.now()) {
		return ErrExpired
	}

	member, err := s.memberships.IsMember(ctx, inv.GroupID, userID)
	if err != nil {
		logCtx.WithError(err).Error("Accept: membership check failed")
		return ErrInternal
	}
	if member {
		return fmt.Errorf("%w: already a member", ErrConflict)
	}

	if err := s.invitations.Accept(ctx, inv.ID, inv.GroupID, userID); err != nil {
		switch {
		case errors.Is(err, repositories.ErrAlreadyAccepted):
			return ErrAlreadyUsed
		case errors.Is(err, repositories.ErrDuplicate):
			return fmt.Errorf("%w: already a member", ErrConflict)
		}
		logCtx.WithError(err).Error("Accept: transaction failed")
		return ErrInternal
	}

	observability.IncInvitation("accepted")
	s.activity.Record(ctx, ActivityEntry{
		GroupID:  inv.GroupID,
		UserID:   userID,
		Type:     models.ActivityMemberJoined,
		Metadata: map[string]interface{}{"via": "invitation"},
	})
	logCtx.Info("Invitation accepted")
	return nil
}

func (s *InvitationService) requireMember(ctx context.Context, groupID, userID int) error {
	member, err := s.memberships.IsMember(ctx, groupID, userID)
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{"group_id": groupID, "user_id": userID}).Error("Membership check failed")
		return ErrInternal
	}
	if !member {
		return fmt.Errorf("%w: not a member of this group", ErrForbidden)
	}
	return nil
}

// dispatch emails the invitation after it has been committed. Failures are
// logged and counted only; the invitation stays valid and can be resent.
func (s *InvitationService) dispatch(ctx context.Context, inv models.Invitation, rawToken string) {
	logCtx := logrus.WithFields(logrus.Fields{"invitation_id": inv.ID, "group_id": inv.GroupID})
	if s.notifier == nil {
		return
	}

	email := models.InvitationEmail{
		To:        inv.Email,
		InviteURL: s.inviteURL(inv, rawToken),
		ExpiresAt: inv.ExpiresAt,
	}
	if group, err := s.groups.GetGroup(ctx, inv.GroupID); err == nil {
		email.GroupName = group.Name
	} else {
		logCtx.WithError(err).Warn("Invitation email without group name")
	}
	if inviter, err := s.profiles.GetProfile(ctx, inv.InvitedBy); err == nil {
		email.InviterName = displayName(inviter)
	}

	if err := s.notifier.SendInvitation(ctx, email); err != nil {
		observability.IncNotificationFailure()
		logCtx.WithError(err).Warn("Invitation email dispatch failed; invitation kept")
		return
	}
	logCtx.Info("Invitation email dispatched")
}

func (s *InvitationService) inviteURL(inv models.Invitation, rawToken string) string {
	q := url.Values{}
	q.Set("token", rawToken)
	q.Set("group", strconv.Itoa(inv.GroupID))
	return fmt.Sprintf("%s/invitations/%d/accept?%s", s.baseURL, inv.ID, q.Encode())
}
