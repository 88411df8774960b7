package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"circles-service/internal/models"
	"circles-service/internal/observability"
	"circles-service/internal/repositories"
)

const (
	InviteCodeLength = 6
	// No 0/O or 1/I so codes survive being read aloud. 32 symbols keep
	// byte%len unbiased.
	inviteCodeAlphabet    = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	maxInviteCodeAttempts = 5
)

// RedeemResult is the outcome of joining through an invite code.
type RedeemResult struct {
	GroupID       int    `json:"groupId"`
	GroupName     string `json:"groupName"`
	AlreadyMember bool   `json:"alreadyMember"`
}

// InviteCodeService issues and redeems reusable group join codes.
type InviteCodeService struct {
	codes       repositories.InviteCodeRepository
	memberships repositories.MembershipRepository
	groups      repositories.GroupRepository
	activity    ActivityRecorder
	randRead    func([]byte) (int, error)
}

// NewInviteCodeService constructs an InviteCodeService.
func NewInviteCodeService(codes repositories.InviteCodeRepository, memberships repositories.MembershipRepository, groups repositories.GroupRepository, activity ActivityRecorder) *InviteCodeService {
	return &InviteCodeService{
		codes:       codes,
		memberships: memberships,
		groups:      groups,
		activity:    activity,
		randRead:    rand.Read,
	}
}

// Generate creates and stores a new code for the group, retrying on collision.
func (s *InviteCodeService) Generate(ctx context.Context, groupID, creatorID int) (string, error) {
	logCtx := logrus.WithFields(logrus.Fields{"group_id": groupID, "creator_id": creatorID})

	for attempt := 1; attempt <= maxInviteCodeAttempts; attempt++ {
		code, err := s.randomCode()
		if err != nil {
			logCtx.WithError(err).Error("Failed to generate random invite code")
			return "", ErrInternal
		}

		created, err := s.codes.CreateInviteCode(ctx, code, groupID, creatorID)
		if err == nil {
			logCtx.WithField("invite_code", created.Code).Info("Invite code created")
			return created.Code, nil
		}
		if !errors.Is(err, repositories.ErrDuplicate) {
			logCtx.WithError(err).Error("Failed to store invite code")
			return "", ErrInternal
		}
		logCtx.WithField("attempt", attempt).Warn("Invite code collision, retrying")
	}
	return "", fmt.Errorf("%w: could not allocate a unique invite code", ErrConflict)
}

// ListActive returns the group's codes, newest first.
func (s *InviteCodeService) ListActive(ctx context.Context, groupID int) ([]models.InviteCode, error) {
	codes, err := s.codes.ListInviteCodes(ctx, groupID)
	if err != nil {
		logrus.WithError(err).WithField("group_id", groupID).Error("Failed to list invite codes")
		return nil, ErrInternal
	}
	return codes, nil
}

// GetOrCreate returns the newest existing code, generating one only when the
// group has none. The caller must be a member.
func (s *InviteCodeService) GetOrCreate(ctx context.Context, groupID, userID int) (string, error) {
	member, err := s.memberships.IsMember(ctx, groupID, userID)
	if err != nil {
		logrus.WithError(err).WithField("group_id", groupID).Error("GetOrCreate: membership check failed")
		return "", ErrInternal
	}
	if !member {
		return "", fmt.Errorf("%w: not a member of this group", ErrForbidden)
	}

	codes, err := s.ListActive(ctx, groupID)
	if err != nil {
		return "", err
	}
	if len(codes) > 0 {
		return codes[0].Code, nil
	}
	return s.Generate(ctx, groupID, userID)
}

// Redeem joins userID to the group owning code. Redeeming as an existing
// member succeeds without mutation.
func (s *InviteCodeService) Redeem(ctx context.Context, code string, userID int) (RedeemResult, error) {
	normalized := NormalizeInviteCode(code)
	logCtx := logrus.WithFields(logrus.Fields{"user_id": userID, "invite_code": normalized})

	if len(normalized) != InviteCodeLength {
		return RedeemResult{}, newValidationError("code", "invite code must be 6 letters or digits")
	}

	ic, err := s.codes.GetInviteCode(ctx, normalized)
	if err != nil {
		if errors.Is(err, repositories.ErrInviteCodeNotFound) {
			observability.IncInviteCodeRedemption("not_found")
			return RedeemResult{}, fmt.Errorf("%w: invalid invite code", ErrNotFound)
		}
		logCtx.WithError(err).Error("Failed to look up invite code")
		return RedeemResult{}, ErrInternal
	}

	group, err := s.groups.GetGroup(ctx, ic.GroupID)
	if err != nil {
		if errors.Is(err, repositories.ErrGroupNotFound) {
			return RedeemResult{}, fmt.Errorf("%w: invalid invite code", ErrNotFound)
		}
		logCtx.WithError(err).Error("Failed to load group for invite code")
		return RedeemResult{}, ErrInternal
	}
	result := RedeemResult{GroupID: group.ID, GroupName: group.Name}

	member, err := s.memberships.IsMember(ctx, group.ID, userID)
	if err != nil {
		logCtx.WithError(err).Error("Redeem: membership check failed")
		return RedeemResult{}, ErrInternal
	}
	if member {
		observability.IncInviteCodeRedemption("already_member")
		result.AlreadyMember = true
		return result, nil
	}

	if err := s.memberships.AddMember(ctx, group.ID, userID); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			// A concurrent redemption by the same user won the insert.
			observability.IncInviteCodeRedemption("already_member")
			result.AlreadyMember = true
			return result, nil
		}
		logCtx.WithError(err).Error("Failed to add member via invite code")
		return RedeemResult{}, ErrInternal
	}

	observability.IncInviteCodeRedemption("joined")
	s.activity.Record(ctx, ActivityEntry{
		GroupID:  group.ID,
		UserID:   userID,
		Type:     models.ActivityMemberJoined,
		Metadata: map[string]interface{}{"via": "invite_code"},
	})
	logCtx.WithField("group_id", group.ID).Info("User joined group via invite code")
	return result, nil
}

// NormalizeInviteCode trims, upper-cases and strips everything that is not
// an ASCII letter or digit.
func NormalizeInviteCode(code string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(strings.TrimSpace(code)) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (s *InviteCodeService) randomCode() (string, error) {
	buf := make([]byte, InviteCodeLength)
	if _, err := s.randRead(buf); err != nil {
		return "", err
	}
	for i := range buf {
		buf[i] = inviteCodeAlphabet[int(buf[i])%len(inviteCodeAlphabet)]
	}
	return string(buf), nil
}
