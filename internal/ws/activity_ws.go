package ws

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"circles-service/internal/middleware"
	"circles-service/internal/models"
	"circles-service/internal/observability"
)

// TokenVerifier turns a bearer token into a caller identity.
type TokenVerifier interface {
	Verify(token string) (models.Identity, error)
}

// MembershipChecker reports whether a user belongs to a group.
type MembershipChecker interface {
	IsMember(ctx context.Context, groupID, userID int) (bool, error)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ActivityWebSocketHandler streams a group's new activity to its members.
type ActivityWebSocketHandler struct {
	hub         *Hub
	memberships MembershipChecker
	verifier    TokenVerifier
}

// NewActivityWebSocketHandler constructs an ActivityWebSocketHandler.
func NewActivityWebSocketHandler(hub *Hub, memberships MembershipChecker, verifier TokenVerifier) *ActivityWebSocketHandler {
	return &ActivityWebSocketHandler{hub: hub, memberships: memberships, verifier: verifier}
}

// Handle authenticates, checks membership, upgrades and subscribes the
// connection. Browsers may pass the token as ?token= since they cannot set
// headers on a websocket handshake.
func (h *ActivityWebSocketHandler) Handle(c *gin.Context) {
	groupID, err := strconv.Atoi(c.Param("group_id"))
	if err != nil || groupID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid group id"})
		return
	}

	ctx, span := otel.Tracer("circles-service/ws").Start(c.Request.Context(), "ws.handshake",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.Int("group.id", groupID)),
	)
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token, ok := middleware.BearerToken(c.GetHeader("Authorization"))
	if !ok {
		token = c.Query("token")
	}
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
		return
	}
	identity, err := h.verifier.Verify(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	member, err := h.memberships.IsMember(ctx, groupID, identity.UserID)
	if err != nil {
		logrus.WithError(err).WithField("group_id", groupID).Error("websocket: membership check failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	if !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a member of this group"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	client := observability.ClientFromRequest(c.Request)
	info := ConnInfo{
		ConnID:      newConnID(),
		GroupID:     groupID,
		UserID:      identity.UserID,
		DeviceID:    client.DeviceID,
		IP:          client.IP,
		RequestID:   client.RequestID,
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	h.hub.AddClient(groupID, conn, info)
	observability.IncWSActive(wsKind)
	publishWSEvent(ctx, "ws_connect", info, "")

	// The stream is server-to-client; reads only detect the close.
	go func() {
		var closeReason string
		defer func() {
			h.hub.RemoveClient(groupID, conn)
			observability.DecWSActive(wsKind)
			publishWSEvent(context.Background(), "ws_disconnect", info, closeReason)
			_ = conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				closeReason = err.Error()
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					publishWSEvent(context.Background(), "ws_error", info, closeReason)
				}
				return
			}
		}
	}()
}
