package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"circles-service/internal/models"
	"circles-service/internal/services"
)

type NotifierMock struct {
	mock.Mock
}

func (m *NotifierMock) SendInvitation(ctx context.Context, email models.InvitationEmail) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

type ActivityRecorderMock struct {
	mock.Mock
}

func (m *ActivityRecorderMock) Record(ctx context.Context, entry services.ActivityEntry) bool {
	args := m.Called(ctx, entry)
	return args.Bool(0)
}

type InviteCodeIssuerMock struct {
	mock.Mock
}

func (m *InviteCodeIssuerMock) GetOrCreate(ctx context.Context, groupID, userID int) (string, error) {
	args := m.Called(ctx, groupID, userID)
	return args.String(0), args.Error(1)
}

type BroadcasterMock struct {
	mock.Mock
}

func (m *BroadcasterMock) BroadcastActivity(groupID int, item models.FeedItem) {
	m.Called(groupID, item)
}

type RevokerMock struct {
	mock.Mock
}

func (m *RevokerMock) DisconnectMember(groupID, userID int) {
	m.Called(groupID, userID)
}

func (m *RevokerMock) CloseRoom(groupID int) {
	m.Called(groupID)
}

var _ services.InvitationNotifier = (*NotifierMock)(nil)
var _ services.ActivityRecorder = (*ActivityRecorderMock)(nil)
var _ services.InviteCodeIssuer = (*InviteCodeIssuerMock)(nil)
var _ services.ActivityBroadcaster = (*BroadcasterMock)(nil)
var _ services.MembershipRevoker = (*RevokerMock)(nil)
