package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"circles-service/internal/models"
	"circles-service/internal/repositories"
)

type GroupRepositoryMock struct {
	mock.Mock
}

func (m *GroupRepositoryMock) CreateGroup(ctx context.Context, ownerID int, name, description string) (models.Group, error) {
	args := m.Called(ctx, ownerID, name, description)
	var group models.Group
	if val := args.Get(0); val != nil {
		group = val.(models.Group)
	}
	return group, args.Error(1)
}

func (m *GroupRepositoryMock) GetGroup(ctx context.Context, groupID int) (models.Group, error) {
	args := m.Called(ctx, groupID)
	var group models.Group
	if val := args.Get(0); val != nil {
		group = val.(models.Group)
	}
	return group, args.Error(1)
}

func (m *GroupRepositoryMock) GetGroupsByIDs(ctx context.Context, ids []int) ([]models.Group, error) {
	args := m.Called(ctx, ids)
	var groups []models.Group
	if val := args.Get(0); val != nil {
		groups = val.([]models.Group)
	}
	return groups, args.Error(1)
}

func (m *GroupRepositoryMock) ListGroupsForUser(ctx context.Context, userID int) ([]models.Group, error) {
	args := m.Called(ctx, userID)
	var groups []models.Group
	if val := args.Get(0); val != nil {
		groups = val.([]models.Group)
	}
	return groups, args.Error(1)
}

func (m *GroupRepositoryMock) UpdateGroup(ctx context.Context, groupID int, name, description string) (models.Group, error) {
	args := m.Called(ctx, groupID, name, description)
	var group models.Group
	if val := args.Get(0); val != nil {
		group = val.(models.Group)
	}
	return group, args.Error(1)
}

func (m *GroupRepositoryMock) DeleteGroup(ctx context.Context, groupID int) error {
	args := m.Called(ctx, groupID)
	return args.Error(0)
}

type MembershipRepositoryMock struct {
	mock.Mock
}

func (m *MembershipRepositoryMock) GetMembership(ctx context.Context, groupID, userID int) (models.Membership, error) {
	args := m.Called(ctx, groupID, userID)
	var membership models.Membership
	if val := args.Get(0); val != nil {
		membership = val.(models.Membership)
	}
	return membership, args.Error(1)
}

func (m *MembershipRepositoryMock) IsMember(ctx context.Context, groupID, userID int) (bool, error) {
	args := m.Called(ctx, groupID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MembershipRepositoryMock) AddMember(ctx context.Context, groupID, userID int) error {
	args := m.Called(ctx, groupID, userID)
	return args.Error(0)
}

func (m *MembershipRepositoryMock) RemoveMember(ctx context.Context, groupID, userID int) error {
	args := m.Called(ctx, groupID, userID)
	return args.Error(0)
}

func (m *MembershipRepositoryMock) ListMembers(ctx context.Context, groupID int) ([]models.Member, error) {
	args := m.Called(ctx, groupID)
	var members []models.Member
	if val := args.Get(0); val != nil {
		members = val.([]models.Member)
	}
	return members, args.Error(1)
}

func (m *MembershipRepositoryMock) ListGroupIDsForUser(ctx context.Context, userID int) ([]int, error) {
	args := m.Called(ctx, userID)
	var ids []int
	if val := args.Get(0); val != nil {
		ids = val.([]int)
	}
	return ids, args.Error(1)
}

type InvitationRepositoryMock struct {
	mock.Mock
}

func (m *InvitationRepositoryMock) CreateInvitation(ctx context.Context, inv models.Invitation) (models.Invitation, error) {
	args := m.Called(ctx, inv)
	var created models.Invitation
	if val := args.Get(0); val != nil {
		created = val.(models.Invitation)
	}
	return created, args.Error(1)
}

func (m *InvitationRepositoryMock) GetInvitation(ctx context.Context, invitationID int) (models.Invitation, error) {
	args := m.Called(ctx, invitationID)
	var inv models.Invitation
	if val := args.Get(0); val != nil {
		inv = val.(models.Invitation)
	}
	return inv, args.Error(1)
}

func (m *InvitationRepositoryMock) FindPending(ctx context.Context, groupID int, email string) (models.Invitation, error) {
	args := m.Called(ctx, groupID, email)
	var inv models.Invitation
	if val := args.Get(0); val != nil {
		inv = val.(models.Invitation)
	}
	return inv, args.Error(1)
}

func (m *InvitationRepositoryMock) ListPending(ctx context.Context, groupID int) ([]models.Invitation, error) {
	args := m.Called(ctx, groupID)
	var invs []models.Invitation
	if val := args.Get(0); val != nil {
		invs = val.([]models.Invitation)
	}
	return invs, args.Error(1)
}

func (m *InvitationRepositoryMock) DeleteInvitation(ctx context.Context, invitationID int) error {
	args := m.Called(ctx, invitationID)
	return args.Error(0)
}

func (m *InvitationRepositoryMock) RotateToken(ctx context.Context, invitationID int, tokenHash string, expiresAt time.Time) error {
	args := m.Called(ctx, invitationID, tokenHash, expiresAt)
	return args.Error(0)
}

func (m *InvitationRepositoryMock) Accept(ctx context.Context, invitationID, groupID, userID int) error {
	args := m.Called(ctx, invitationID, groupID, userID)
	return args.Error(0)
}

type InviteCodeRepositoryMock struct {
	mock.Mock
}

func (m *InviteCodeRepositoryMock) CreateInviteCode(ctx context.Context, code string, groupID, createdBy int) (models.InviteCode, error) {
	args := m.Called(ctx, code, groupID, createdBy)
	var ic models.InviteCode
	if val := args.Get(0); val != nil {
		ic = val.(models.InviteCode)
	}
	return ic, args.Error(1)
}

func (m *InviteCodeRepositoryMock) GetInviteCode(ctx context.Context, code string) (models.InviteCode, error) {
	args := m.Called(ctx, code)
	var ic models.InviteCode
	if val := args.Get(0); val != nil {
		ic = val.(models.InviteCode)
	}
	return ic, args.Error(1)
}

func (m *InviteCodeRepositoryMock) ListInviteCodes(ctx context.Context, groupID int) ([]models.InviteCode, error) {
	args := m.Called(ctx, groupID)
	var codes []models.InviteCode
	if val := args.Get(0); val != nil {
		codes = val.([]models.InviteCode)
	}
	return codes, args.Error(1)
}

type ProfileRepositoryMock struct {
	mock.Mock
}

func (m *ProfileRepositoryMock) EnsureProfile(ctx context.Context, profile models.Profile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

func (m *ProfileRepositoryMock) GetProfile(ctx context.Context, userID int) (models.Profile, error) {
	args := m.Called(ctx, userID)
	var p models.Profile
	if val := args.Get(0); val != nil {
		p = val.(models.Profile)
	}
	return p, args.Error(1)
}

func (m *ProfileRepositoryMock) FindByEmail(ctx context.Context, email string) (models.Profile, error) {
	args := m.Called(ctx, email)
	var p models.Profile
	if val := args.Get(0); val != nil {
		p = val.(models.Profile)
	}
	return p, args.Error(1)
}

func (m *ProfileRepositoryMock) GetProfilesByIDs(ctx context.Context, ids []int) ([]models.Profile, error) {
	args := m.Called(ctx, ids)
	var profiles []models.Profile
	if val := args.Get(0); val != nil {
		profiles = val.([]models.Profile)
	}
	return profiles, args.Error(1)
}

type MovieRepositoryMock struct {
	mock.Mock
}

func (m *MovieRepositoryMock) GetMoviesByIDs(ctx context.Context, ids []int) ([]models.Movie, error) {
	args := m.Called(ctx, ids)
	var movies []models.Movie
	if val := args.Get(0); val != nil {
		movies = val.([]models.Movie)
	}
	return movies, args.Error(1)
}

type ActivityRepositoryMock struct {
	mock.Mock
}

func (m *ActivityRepositoryMock) CreateActivity(ctx context.Context, activity models.Activity) (models.Activity, error) {
	args := m.Called(ctx, activity)
	var created models.Activity
	if val := args.Get(0); val != nil {
		created = val.(models.Activity)
	}
	return created, args.Error(1)
}

func (m *ActivityRepositoryMock) ListActivities(ctx context.Context, q repositories.ActivityQuery) ([]models.Activity, error) {
	args := m.Called(ctx, q)
	var activities []models.Activity
	if val := args.Get(0); val != nil {
		activities = val.([]models.Activity)
	}
	return activities, args.Error(1)
}

func (m *ActivityRepositoryMock) CountActivities(ctx context.Context, q repositories.ActivityQuery) (int, error) {
	args := m.Called(ctx, q)
	return args.Int(0), args.Error(1)
}

var _ repositories.GroupRepository = (*GroupRepositoryMock)(nil)
var _ repositories.MembershipRepository = (*MembershipRepositoryMock)(nil)
var _ repositories.InvitationRepository = (*InvitationRepositoryMock)(nil)
var _ repositories.InviteCodeRepository = (*InviteCodeRepositoryMock)(nil)
var _ repositories.ProfileRepository = (*ProfileRepositoryMock)(nil)
var _ repositories.MovieRepository = (*MovieRepositoryMock)(nil)
var _ repositories.ActivityRepository = (*ActivityRepositoryMock)(nil)
