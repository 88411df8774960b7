package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"circles-service/internal/models"
	"circles-service/internal/services"
)

type GroupServiceMock struct {
	mock.Mock
}

func (m *GroupServiceMock) EnsureProfile(ctx context.Context, identity models.Identity) error {
	args := m.Called(ctx, identity)
	return args.Error(0)
}

func (m *GroupServiceMock) Create(ctx context.Context, input services.CreateGroupInput, owner models.Identity) (services.CreateGroupResult, error) {
	args := m.Called(ctx, input, owner)
	var res services.CreateGroupResult
	if val := args.Get(0); val != nil {
		res = val.(services.CreateGroupResult)
	}
	return res, args.Error(1)
}

func (m *GroupServiceMock) Get(ctx context.Context, groupID, userID int) (models.Group, error) {
	args := m.Called(ctx, groupID, userID)
	var group models.Group
	if val := args.Get(0); val != nil {
		group = val.(models.Group)
	}
	return group, args.Error(1)
}

func (m *GroupServiceMock) ListForUser(ctx context.Context, userID int) ([]models.Group, error) {
	args := m.Called(ctx, userID)
	var groups []models.Group
	if val := args.Get(0); val != nil {
		groups = val.([]models.Group)
	}
	return groups, args.Error(1)
}

func (m *GroupServiceMock) ListMembers(ctx context.Context, groupID, userID int) ([]models.Member, error) {
	args := m.Called(ctx, groupID, userID)
	var members []models.Member
	if val := args.Get(0); val != nil {
		members = val.([]models.Member)
	}
	return members, args.Error(1)
}

func (m *GroupServiceMock) Update(ctx context.Context, groupID, callerID int, input services.UpdateGroupInput) (models.Group, error) {
	args := m.Called(ctx, groupID, callerID, input)
	var group models.Group
	if val := args.Get(0); val != nil {
		group = val.(models.Group)
	}
	return group, args.Error(1)
}

func (m *GroupServiceMock) Delete(ctx context.Context, groupID, callerID int) error {
	args := m.Called(ctx, groupID, callerID)
	return args.Error(0)
}

func (m *GroupServiceMock) Leave(ctx context.Context, groupID, callerID int) error {
	args := m.Called(ctx, groupID, callerID)
	return args.Error(0)
}

func (m *GroupServiceMock) RemoveMember(ctx context.Context, groupID, callerID, targetID int) error {
	args := m.Called(ctx, groupID, callerID, targetID)
	return args.Error(0)
}

type InvitationServiceMock struct {
	mock.Mock
}

func (m *InvitationServiceMock) Send(ctx context.Context, groupID, inviterID int, email string) (models.Invitation, error) {
	args := m.Called(ctx, groupID, inviterID, email)
	var inv models.Invitation
	if val := args.Get(0); val != nil {
		inv = val.(models.Invitation)
	}
	return inv, args.Error(1)
}

func (m *InvitationServiceMock) Resend(ctx context.Context, groupID, inviterID int, email string) error {
	args := m.Called(ctx, groupID, inviterID, email)
	return args.Error(0)
}

func (m *InvitationServiceMock) ListPending(ctx context.Context, groupID, userID int) ([]models.Invitation, error) {
	args := m.Called(ctx, groupID, userID)
	var invs []models.Invitation
	if val := args.Get(0); val != nil {
		invs = val.([]models.Invitation)
	}
	return invs, args.Error(1)
}

func (m *InvitationServiceMock) Accept(ctx context.Context, invitationID int, rawToken string, groupID, userID int) error {
	args := m.Called(ctx, invitationID, rawToken, groupID, userID)
	return args.Error(0)
}

type InviteCodeServiceMock struct {
	mock.Mock
}

func (m *InviteCodeServiceMock) GetOrCreate(ctx context.Context, groupID, userID int) (string, error) {
	args := m.Called(ctx, groupID, userID)
	return args.String(0), args.Error(1)
}

func (m *InviteCodeServiceMock) Redeem(ctx context.Context, code string, userID int) (services.RedeemResult, error) {
	args := m.Called(ctx, code, userID)
	var res services.RedeemResult
	if val := args.Get(0); val != nil {
		res = val.(services.RedeemResult)
	}
	return res, args.Error(1)
}

type ActivityServiceMock struct {
	mock.Mock
}

func (m *ActivityServiceMock) QueryForGroup(ctx context.Context, groupID, callerID int, page services.Page) (services.FeedPage, error) {
	args := m.Called(ctx, groupID, callerID, page)
	var feed services.FeedPage
	if val := args.Get(0); val != nil {
		feed = val.(services.FeedPage)
	}
	return feed, args.Error(1)
}

func (m *ActivityServiceMock) QueryForUser(ctx context.Context, userID int, page services.Page) (services.FeedPage, error) {
	args := m.Called(ctx, userID, page)
	var feed services.FeedPage
	if val := args.Get(0); val != nil {
		feed = val.(services.FeedPage)
	}
	return feed, args.Error(1)
}

func (m *ActivityServiceMock) Ingest(ctx context.Context, entry services.ActivityEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}
