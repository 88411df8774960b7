package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"circles-service/internal/mocks"
	"circles-service/internal/services"
	"circles-service/internal/telemetry"
)

func setupInviteCodeRouter(handler *InviteCodeHandler) *gin.Engine {
	r := newTestRouter()
	r.POST("/groups/:group_id/invite-code", handler.GetInviteCode)
	r.POST("/groups/join", handler.JoinGroup)
	return r
}

func TestGetInviteCode(t *testing.T) {
	svc := new(mocks.InviteCodeServiceMock)
	router := setupInviteCodeRouter(NewInviteCodeHandler(svc, nil))
	svc.On("GetOrCreate", mock.Anything, 9, 1).Return("K7M2QX", nil).Once()

	rec := doRequest(router, http.MethodPost, "/groups/9/invite-code", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "K7M2QX", decodeBody(t, rec)["code"])
}

func TestGetInviteCodeForbidden(t *testing.T) {
	svc := new(mocks.InviteCodeServiceMock)
	router := setupInviteCodeRouter(NewInviteCodeHandler(svc, nil))
	svc.On("GetOrCreate", mock.Anything, 9, 1).
		Return("", fmt.Errorf("%w: not a member of this group", services.ErrForbidden)).Once()

	rec := doRequest(router, http.MethodPost, "/groups/9/invite-code", "")

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestJoinGroupNewMember(t *testing.T) {
	svc := new(mocks.InviteCodeServiceMock)
	pub := new(mocks.PublisherMock)
	audit := telemetry.NewAuditEmitter(pub, "audit.log", "circles-service", "test")
	router := setupInviteCodeRouter(NewInviteCodeHandler(svc, audit))
	svc.On("Redeem", mock.Anything, "k7m-2qx", 1).
		Return(services.RedeemResult{GroupID: 9, GroupName: "Movie Club"}, nil).Once()
	pub.On("Publish", mock.Anything, "audit.log", mock.MatchedBy(func(e telemetry.AuditEnvelope) bool {
		return e.Payload.Action == "invite_code_join" && e.Payload.GroupID == 9
	})).Return(nil).Once()

	rec := doRequest(router, http.MethodPost, "/groups/join", `{"code":"k7m-2qx"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, false, body["alreadyMember"])
	assert.Equal(t, float64(9), body["groupId"])
	assert.Equal(t, "Movie Club", body["groupName"])
	pub.AssertExpectations(t)
}

func TestJoinGroupAlreadyMemberSkipsAudit(t *testing.T) {
	svc := new(mocks.InviteCodeServiceMock)
	pub := new(mocks.PublisherMock)
	audit := telemetry.NewAuditEmitter(pub, "audit.log", "circles-service", "test")
	router := setupInviteCodeRouter(NewInviteCodeHandler(svc, audit))
	svc.On("Redeem", mock.Anything, "K7M2QX", 1).
		Return(services.RedeemResult{GroupID: 9, GroupName: "Movie Club", AlreadyMember: true}, nil).Once()

	rec := doRequest(router, http.MethodPost, "/groups/join", `{"code":"K7M2QX"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["alreadyMember"])
	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestJoinGroupFailures(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{name: "unknown code", err: fmt.Errorf("%w: invalid invite code", services.ErrNotFound), status: http.StatusBadRequest},
		{name: "malformed code", err: &services.ValidationError{Fields: map[string]string{"code": "invite code must be 6 characters"}}, status: http.StatusBadRequest},
		{name: "internal", err: services.ErrInternal, status: http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := new(mocks.InviteCodeServiceMock)
			router := setupInviteCodeRouter(NewInviteCodeHandler(svc, nil))
			svc.On("Redeem", mock.Anything, "ZZZZZZ", 1).Return(nil, tc.err).Once()

			rec := doRequest(router, http.MethodPost, "/groups/join", `{"code":"ZZZZZZ"}`)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestJoinGroupMissingCode(t *testing.T) {
	svc := new(mocks.InviteCodeServiceMock)
	router := setupInviteCodeRouter(NewInviteCodeHandler(svc, nil))

	rec := doRequest(router, http.MethodPost, "/groups/join", `{}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "code is required", decodeBody(t, rec)["error"])
}
