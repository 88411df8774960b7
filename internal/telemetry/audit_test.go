package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"circles-service/internal/mocks"
)

func TestEmitPublishesEnvelope(t *testing.T) {
	pub := new(mocks.PublisherMock)
	e := NewAuditEmitter(pub, "audit.log", "circles-service", "test")
	e.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	var got AuditEnvelope
	pub.On("Publish", mock.Anything, "audit.log", mock.AnythingOfType("telemetry.AuditEnvelope")).
		Run(func(args mock.Arguments) { got = args.Get(2).(AuditEnvelope) }).
		Return(nil).Once()

	uid := int64(7)
	e.Emit(context.Background(), "info", "member_removed", 10, "owner removed member 5", "req-1", &uid)

	pub.AssertExpectations(t)
	assert.Equal(t, "audit_log", got.EventType)
	assert.Equal(t, "2026-01-02T03:04:05Z", got.OccurredAt)
	assert.Equal(t, "req-1", got.RequestID)
	require.NotNil(t, got.UserID)
	assert.Equal(t, int64(7), *got.UserID)
	assert.Equal(t, "member_removed", got.Payload.Action)
	assert.Equal(t, int64(10), got.Payload.GroupID)
}

func TestEmitSwallowsPublishErrors(t *testing.T) {
	pub := new(mocks.PublisherMock)
	pub.On("Publish", mock.Anything, "audit.log", mock.Anything).Return(errors.New("closed")).Once()

	e := NewAuditEmitter(pub, "audit.log", "circles-service", "test")
	assert.NotPanics(t, func() {
		e.Emit(context.Background(), "info", "group_deleted", 10, "deleted", "", nil)
	})
	pub.AssertExpectations(t)
}

func TestEmitOnNilEmitter(t *testing.T) {
	var e *AuditEmitter
	assert.NotPanics(t, func() {
		e.Emit(context.Background(), "info", "group_deleted", 1, "x", "", nil)
	})
}
