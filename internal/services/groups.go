package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"circles-service/internal/models"
	"circles-service/internal/repositories"
)

// InviteCodeIssuer hands out the reusable join code of a group.
type InviteCodeIssuer interface {
	GetOrCreate(ctx context.Context, groupID, userID int) (string, error)
}

// MembershipRevoker cuts live access of users who are no longer members.
type MembershipRevoker interface {
	DisconnectMember(groupID, userID int)
	CloseRoom(groupID int)
}

// CreateGroupInput is the payload for Create.
type CreateGroupInput struct {
	Name        string
	Description string
	MemberIDs   []int
}

// UpdateGroupInput carries optional field changes.
type UpdateGroupInput struct {
	Name        *string
	Description *string
}

// CreateGroupResult reports a created group. FailedMemberIDs lists requested
// members that could not be added; the group itself still exists.
type CreateGroupResult struct {
	Group           models.Group `json:"group"`
	InviteCode      string       `json:"invite_code"`
	FailedMemberIDs []int        `json:"failed_member_ids"`
}

// GroupService owns group creation, update, deletion, leave and removal.
type GroupService struct {
	groups      repositories.GroupRepository
	memberships repositories.MembershipRepository
	profiles    repositories.ProfileRepository
	codes       InviteCodeIssuer
	activity    ActivityRecorder
	revoker     MembershipRevoker

	// user ids whose profile row is known to exist
	provisioned sync.Map
}

// NewGroupService constructs a GroupService. revoker may be nil.
func NewGroupService(
	groups repositories.GroupRepository,
	memberships repositories.MembershipRepository,
	profiles repositories.ProfileRepository,
	codes InviteCodeIssuer,
	activity ActivityRecorder,
	revoker MembershipRevoker,
) *GroupService {
	return &GroupService{
		groups:      groups,
		memberships: memberships,
		profiles:    profiles,
		codes:       codes,
		activity:    activity,
		revoker:     revoker,
	}
}

// EnsureProfile lazily provisions the caller's profile row, once per user
// per process.
func (s *GroupService) EnsureProfile(ctx context.Context, identity models.Identity) error {
	email := NormalizeEmail(identity.Email)
	if email == "" {
		return nil
	}
	if _, ok := s.provisioned.Load(identity.UserID); ok {
		return nil
	}
	err := s.profiles.EnsureProfile(ctx, models.Profile{
		ID:          identity.UserID,
		Email:       email,
		DisplayName: strings.TrimSpace(identity.DisplayName),
	})
	if err != nil {
		logrus.WithError(err).WithField("user_id", identity.UserID).Error("Failed to provision profile")
		return ErrInternal
	}
	s.provisioned.Store(identity.UserID, struct{}{})
	return nil
}

// Create makes a group owned by owner. Extra members are added one by one
// and failures are reported rather than undoing the group.
func (s *GroupService) Create(ctx context.Context, input CreateGroupInput, owner models.Identity) (CreateGroupResult, error) {
	logCtx := logrus.WithField("owner_id", owner.UserID)

	name := strings.TrimSpace(input.Name)
	description := strings.TrimSpace(input.Description)
	if err := validateGroupFields(name, description); err != nil {
		return CreateGroupResult{}, err
	}
	if err := s.EnsureProfile(ctx, owner); err != nil {
		return CreateGroupResult{}, err
	}

	group, err := s.groups.CreateGroup(ctx, owner.UserID, name, description)
	if err != nil {
		logCtx.WithError(err).Error("Failed to create group")
		return CreateGroupResult{}, ErrInternal
	}
	logCtx = logCtx.WithField("group_id", group.ID)

	result := CreateGroupResult{Group: group, FailedMemberIDs: []int{}}
	result.FailedMemberIDs = s.addInitialMembers(ctx, group.ID, owner.UserID, input.MemberIDs)
	if len(result.FailedMemberIDs) > 0 {
		logCtx.WithField("failed_member_ids", result.FailedMemberIDs).Warn("Group created with partial member import")
	}

	code, err := s.codes.GetOrCreate(ctx, group.ID, owner.UserID)
	if err != nil {
		logCtx.WithError(err).Warn("Group created without invite code")
	}
	result.InviteCode = code

	s.activity.Record(ctx, ActivityEntry{GroupID: group.ID, UserID: owner.UserID, Type: models.ActivityGroupCreated})
	logCtx.Info("Group created")
	return result, nil
}

func (s *GroupService) addInitialMembers(ctx context.Context, groupID, ownerID int, memberIDs []int) []int {
	failed := []int{}
	if len(memberIDs) == 0 {
		return failed
	}

	seen := map[int]struct{}{ownerID: {}}
	candidates := make([]int, 0, len(memberIDs))
	for _, id := range memberIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if id <= 0 {
			failed = append(failed, id)
			continue
		}
		candidates = append(candidates, id)
	}
	if len(candidates) == 0 {
		return failed
	}

	profiles, err := s.profiles.GetProfilesByIDs(ctx, candidates)
	if err != nil {
		logrus.WithError(err).WithField("group_id", groupID).Warn("Could not resolve initial members")
		return append(failed, candidates...)
	}
	known := make(map[int]struct{}, len(profiles))
	for _, p := range profiles {
		known[p.ID] = struct{}{}
	}

	for _, id := range candidates {
		if _, ok := known[id]; !ok {
			failed = append(failed, id)
			continue
		}
		if err := s.memberships.AddMember(ctx, groupID, id); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{"group_id": groupID, "user_id": id}).Warn("Failed to add initial member")
			failed = append(failed, id)
			continue
		}
		s.activity.Record(ctx, ActivityEntry{GroupID: groupID, UserID: id, Type: models.ActivityMemberJoined, Metadata: map[string]interface{}{"via": "group_created"}})
	}
	return failed
}

// Get returns a group visible to a member.
func (s *GroupService) Get(ctx context.Context, groupID, userID int) (models.Group, error) {
	group, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return models.Group{}, err
	}
	if _, err := s.membership(ctx, groupID, userID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return models.Group{}, fmt.Errorf("%w: not a member of this group", ErrForbidden)
		}
		return models.Group{}, err
	}
	return group, nil
}

// ListForUser returns the groups userID belongs to.
func (s *GroupService) ListForUser(ctx context.Context, userID int) ([]models.Group, error) {
	groups, err := s.groups.ListGroupsForUser(ctx, userID)
	if err != nil {
		logrus.WithError(err).WithField("user_id", userID).Error("Failed to list groups")
		return nil, ErrInternal
	}
	if groups == nil {
		groups = []models.Group{}
	}
	return groups, nil
}

// ListMembers returns the members of a group with their profiles.
func (s *GroupService) ListMembers(ctx context.Context, groupID, userID int) ([]models.Member, error) {
	if _, err := s.membership(ctx, groupID, userID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: not a member of this group", ErrForbidden)
		}
		return nil, err
	}
	members, err := s.memberships.ListMembers(ctx, groupID)
	if err != nil {
		logrus.WithError(err).WithField("group_id", groupID).Error("Failed to list members")
		return nil, ErrInternal
	}
	return members, nil
}

// Update changes name and/or description. Owner only.
func (s *GroupService) Update(ctx context.Context, groupID, callerID int, input UpdateGroupInput) (models.Group, error) {
	group, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return models.Group{}, err
	}
	if group.OwnerID != callerID {
		return models.Group{}, fmt.Errorf("%w: only the owner can edit this group", ErrForbidden)
	}

	name, description := group.Name, group.Description
	if input.Name != nil {
		name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		description = strings.TrimSpace(*input.Description)
	}
	if err := validateGroupFields(name, description); err != nil {
		return models.Group{}, err
	}

	updated, err := s.groups.UpdateGroup(ctx, groupID, name, description)
	if err != nil {
		if errors.Is(err, repositories.ErrGroupNotFound) {
			return models.Group{}, fmt.Errorf("%w: group not found", ErrNotFound)
		}
		logrus.WithError(err).WithField("group_id", groupID).Error("Failed to update group")
		return models.Group{}, ErrInternal
	}
	s.activity.Record(ctx, ActivityEntry{GroupID: groupID, UserID: callerID, Type: models.ActivityGroupUpdated})
	return updated, nil
}

// Delete removes the group and, by cascade, everything it owns. Owner only.
func (s *GroupService) Delete(ctx context.Context, groupID, callerID int) error {
	group, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if group.OwnerID != callerID {
		return fmt.Errorf("%w: only the owner can delete this group", ErrForbidden)
	}
	if err := s.groups.DeleteGroup(ctx, groupID); err != nil {
		if errors.Is(err, repositories.ErrGroupNotFound) {
			return fmt.Errorf("%w: group not found", ErrNotFound)
		}
		logrus.WithError(err).WithField("group_id", groupID).Error("Failed to delete group")
		return ErrInternal
	}
	if s.revoker != nil {
		s.revoker.CloseRoom(groupID)
	}
	logrus.WithFields(logrus.Fields{"group_id": groupID, "owner_id": callerID}).Info("Group deleted")
	return nil
}

// Leave removes the caller's own membership. The owner cannot leave; there is
// no ownership transfer, so the owner deletes the group instead.
func (s *GroupService) Leave(ctx context.Context, groupID, callerID int) error {
	logCtx := logrus.WithFields(logrus.Fields{"group_id": groupID, "user_id": callerID})

	m, err := s.membership(ctx, groupID, callerID)
	if err != nil {
		return err
	}
	if m.IsOwner() {
		return fmt.Errorf("%w: the owner cannot leave the group; delete it instead", ErrForbidden)
	}

	// Snapshot before deleting: afterwards the profile is no longer reachable
	// through the group's member list.
	name := s.snapshotName(ctx, callerID)

	if err := s.memberships.RemoveMember(ctx, groupID, callerID); err != nil {
		if errors.Is(err, repositories.ErrMembershipNotFound) {
			return fmt.Errorf("%w: not a member of this group", ErrNotFound)
		}
		logCtx.WithError(err).Error("Failed to leave group")
		return ErrInternal
	}
	s.revoke(groupID, callerID)

	s.activity.Record(ctx, ActivityEntry{
		GroupID:  groupID,
		UserID:   callerID,
		Type:     models.ActivityMemberLeft,
		Metadata: map[string]interface{}{"display_name": name},
	})
	logCtx.Info("Member left group")
	return nil
}

// RemoveMember lets the owner remove another member.
func (s *GroupService) RemoveMember(ctx context.Context, groupID, callerID, targetID int) error {
	logCtx := logrus.WithFields(logrus.Fields{"group_id": groupID, "user_id": callerID, "target_id": targetID})

	group, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if group.OwnerID != callerID {
		return fmt.Errorf("%w: only the owner can remove members", ErrForbidden)
	}
	// caller is the owner here, so this also rejects self-removal
	if targetID == group.OwnerID {
		return fmt.Errorf("%w: the owner cannot be removed", ErrForbidden)
	}

	if _, err := s.membership(ctx, groupID, targetID); err != nil {
		return err
	}
	name := s.snapshotName(ctx, targetID)

	if err := s.memberships.RemoveMember(ctx, groupID, targetID); err != nil {
		if errors.Is(err, repositories.ErrMembershipNotFound) {
			return fmt.Errorf("%w: not a member of this group", ErrNotFound)
		}
		logCtx.WithError(err).Error("Failed to remove member")
		return ErrInternal
	}
	s.revoke(groupID, targetID)

	s.activity.Record(ctx, ActivityEntry{
		GroupID:      groupID,
		UserID:       callerID,
		Type:         models.ActivityMemberRemoved,
		TargetUserID: &targetID,
		Metadata:     map[string]interface{}{"display_name": name},
	})
	logCtx.Info("Member removed from group")
	return nil
}

// revoke runs before the departure is recorded so the departed user does not
// receive it on the live feed.
func (s *GroupService) revoke(groupID, userID int) {
	if s.revoker != nil {
		s.revoker.DisconnectMember(groupID, userID)
	}
}

func (s *GroupService) loadGroup(ctx context.Context, groupID int) (models.Group, error) {
	group, err := s.groups.GetGroup(ctx, groupID)
	if err != nil {
		if errors.Is(err, repositories.ErrGroupNotFound) {
			return models.Group{}, fmt.Errorf("%w: group not found", ErrNotFound)
		}
		logrus.WithError(err).WithField("group_id", groupID).Error("Failed to load group")
		return models.Group{}, ErrInternal
	}
	return group, nil
}

func (s *GroupService) membership(ctx context.Context, groupID, userID int) (models.Membership, error) {
	m, err := s.memberships.GetMembership(ctx, groupID, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrMembershipNotFound) {
			return models.Membership{}, fmt.Errorf("%w: not a member of this group", ErrNotFound)
		}
		logrus.WithError(err).WithFields(logrus.Fields{"group_id": groupID, "user_id": userID}).Error("Failed to load membership")
		return models.Membership{}, ErrInternal
	}
	return m, nil
}

func (s *GroupService) snapshotName(ctx context.Context, userID int) string {
	profile, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		if !errors.Is(err, repositories.ErrProfileNotFound) {
			logrus.WithError(err).WithField("user_id", userID).Warn("Profile snapshot unavailable")
		}
		return "A member"
	}
	if name := displayName(profile); name != "" {
		return name
	}
	return "A member"
}
