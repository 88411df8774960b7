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
	"circles-service/internal/models"
	"circles-service/internal/services"
)

func setupInvitationRouter(handler *InvitationHandler) *gin.Engine {
	r := newTestRouter()
	r.POST("/groups/:group_id/invitations", handler.SendInvitation)
	r.POST("/groups/:group_id/invitations/resend", handler.ResendInvitation)
	r.GET("/groups/:group_id/invitations", handler.ListInvitations)
	r.POST("/invitations/:invitation_id/accept", handler.AcceptInvitation)
	return r
}

func TestSendInvitationCreated(t *testing.T) {
	svc := new(mocks.InvitationServiceMock)
	router := setupInvitationRouter(NewInvitationHandler(svc, nil))
	svc.On("Send", mock.Anything, 9, 1, "friend@x.com").Return(models.Invitation{ID: 42, GroupID: 9}, nil).Once()

	rec := doRequest(router, http.MethodPost, "/groups/9/invitations", `{"email":"friend@x.com"}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(42), body["invitation_id"])
	svc.AssertExpectations(t)
}

func TestSendInvitationStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{name: "invalid email", err: &services.ValidationError{Fields: map[string]string{"email": "invalid email address"}}, status: http.StatusBadRequest},
		{name: "not a member", err: fmt.Errorf("%w: not a member of this group", services.ErrForbidden), status: http.StatusForbidden},
		{name: "already member", err: fmt.Errorf("%w: user is already a member", services.ErrConflict), status: http.StatusConflict},
		{name: "pending", err: fmt.Errorf("%w: an invitation is already pending for this email", services.ErrConflict), status: http.StatusConflict},
		{name: "internal", err: services.ErrInternal, status: http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := new(mocks.InvitationServiceMock)
			router := setupInvitationRouter(NewInvitationHandler(svc, nil))
			svc.On("Send", mock.Anything, 9, 1, mock.Anything).Return(nil, tc.err).Once()

			rec := doRequest(router, http.MethodPost, "/groups/9/invitations", `{"email":"friend@x.com"}`)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestSendInvitationFieldErrors(t *testing.T) {
	svc := new(mocks.InvitationServiceMock)
	router := setupInvitationRouter(NewInvitationHandler(svc, nil))
	svc.On("Send", mock.Anything, 9, 1, "nope").
		Return(nil, &services.ValidationError{Fields: map[string]string{"email": "invalid email address"}}).Once()

	rec := doRequest(router, http.MethodPost, "/groups/9/invitations", `{"email":"nope"}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	fields := decodeBody(t, rec)["fieldErrors"].(map[string]interface{})
	assert.Equal(t, "invalid email address", fields["email"])
}

func TestSendInvitationMalformedBody(t *testing.T) {
	svc := new(mocks.InvitationServiceMock)
	router := setupInvitationRouter(NewInvitationHandler(svc, nil))

	rec := doRequest(router, http.MethodPost, "/groups/9/invitations", `{"email":`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody(t, rec), "fieldErrors")
	svc.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestResendInvitation(t *testing.T) {
	svc := new(mocks.InvitationServiceMock)
	router := setupInvitationRouter(NewInvitationHandler(svc, nil))
	svc.On("Resend", mock.Anything, 9, 1, "friend@x.com").Return(nil).Once()

	rec := doRequest(router, http.MethodPost, "/groups/9/invitations/resend", `{"email":"friend@x.com"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestResendInvitationNotFound(t *testing.T) {
	svc := new(mocks.InvitationServiceMock)
	router := setupInvitationRouter(NewInvitationHandler(svc, nil))
	svc.On("Resend", mock.Anything, 9, 1, "friend@x.com").
		Return(fmt.Errorf("%w: no pending invitation for this email", services.ErrNotFound)).Once()

	rec := doRequest(router, http.MethodPost, "/groups/9/invitations/resend", `{"email":"friend@x.com"}`)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "no pending invitation for this email", decodeBody(t, rec)["error"])
}

func TestListInvitations(t *testing.T) {
	svc := new(mocks.InvitationServiceMock)
	router := setupInvitationRouter(NewInvitationHandler(svc, nil))
	svc.On("ListPending", mock.Anything, 9, 1).Return([]models.Invitation{
		{ID: 1, GroupID: 9, Email: "a@x.com", TokenHash: "secret-digest"},
	}, nil).Once()

	rec := doRequest(router, http.MethodGet, "/groups/9/invitations", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret-digest")
	assert.Len(t, decodeBody(t, rec)["invitations"], 1)
}

func TestAcceptInvitationSuccess(t *testing.T) {
	svc := new(mocks.InvitationServiceMock)
	router := setupInvitationRouter(NewInvitationHandler(svc, nil))
	svc.On("Accept", mock.Anything, 42, "raw-token", 9, 1).Return(nil).Once()

	rec := doRequest(router, http.MethodPost, "/invitations/42/accept", `{"token":"raw-token","groupId":9}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["success"])
}

func TestAcceptInvitationMissingFields(t *testing.T) {
	svc := new(mocks.InvitationServiceMock)
	router := setupInvitationRouter(NewInvitationHandler(svc, nil))

	rec := doRequest(router, http.MethodPost, "/invitations/42/accept", `{"token":"raw-token"}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "Accept", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAcceptInvitationStatusMapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{name: "missing", err: fmt.Errorf("%w: invitation not found", services.ErrNotFound), status: http.StatusNotFound, message: "invitation not found"},
		{name: "bad token", err: services.ErrInvalidToken, status: http.StatusBadRequest, message: "invalid invitation token"},
		{name: "expired", err: services.ErrExpired, status: http.StatusBadRequest, message: "invitation expired"},
		{name: "used", err: services.ErrAlreadyUsed, status: http.StatusBadRequest, message: "invitation already used"},
		{name: "member", err: fmt.Errorf("%w: already a member of this group", services.ErrConflict), status: http.StatusBadRequest, message: "already a member of this group"},
		{name: "internal", err: services.ErrInternal, status: http.StatusInternalServerError, message: "internal server error"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := new(mocks.InvitationServiceMock)
			router := setupInvitationRouter(NewInvitationHandler(svc, nil))
			svc.On("Accept", mock.Anything, 42, "raw-token", 9, 1).Return(tc.err).Once()

			rec := doRequest(router, http.MethodPost, "/invitations/42/accept", `{"token":"raw-token","groupId":9}`)

			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.message, decodeBody(t, rec)["error"])
		})
	}
}
