package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"circles-service/internal/models"
	"circles-service/internal/observability"
)

const (
	wsKind        = "group_activity"
	wsRoutingKey  = "ws_events.groups"
	writeTimeout  = 5 * time.Second
	activityEvent = "activity"
)

// Hub fans recorded activity out to the subscribers of each group.
type Hub struct {
	rooms map[int]map[*websocket.Conn]*client
	mu    sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{rooms: make(map[int]map[*websocket.Conn]*client)}
}

// AddClient registers a connection in the group's room and starts its writer.
func (h *Hub) AddClient(groupID int, conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[groupID]; !ok {
		h.rooms[groupID] = make(map[*websocket.Conn]*client)
	}
	info.GroupID = groupID
	cl := newClient(conn, info)
	h.rooms[groupID][conn] = cl
	if conn != nil {
		go cl.writePump()
	}
}

// RemoveClient drops a connection; empty rooms are deleted.
func (h *Hub) RemoveClient(groupID int, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cl, ok := h.rooms[groupID][conn]; ok {
		cl.close()
		h.dropLocked(groupID, conn)
	}
}

// DisconnectMember closes every connection userID holds on the group's feed.
func (h *Hub) DisconnectMember(groupID, userID int) {
	h.mu.Lock()
	var revoked []ConnInfo
	for conn, cl := range h.rooms[groupID] {
		if cl.info.UserID != userID {
			continue
		}
		cl.closeWith("membership revoked")
		h.dropLocked(groupID, conn)
		revoked = append(revoked, cl.info)
	}
	h.mu.Unlock()

	for _, info := range revoked {
		publishWSEvent(context.Background(), "ws_revoked", info, "membership revoked")
	}
}

// CloseRoom closes every connection on the group's feed.
func (h *Hub) CloseRoom(groupID int) {
	h.mu.Lock()
	conns := h.rooms[groupID]
	delete(h.rooms, groupID)
	h.mu.Unlock()

	for _, cl := range conns {
		cl.closeWith("group deleted")
		publishWSEvent(context.Background(), "ws_revoked", cl.info, "group deleted")
	}
}

func (h *Hub) dropLocked(groupID int, conn *websocket.Conn) {
	conns := h.rooms[groupID]
	delete(conns, conn)
	if len(conns) == 0 {
		delete(h.rooms, groupID)
	}
}

// Subscribers reports the number of open connections for a group.
func (h *Hub) Subscribers(groupID int) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[groupID])
}

// BroadcastActivity queues an enriched feed item for every subscriber of the
// group. It never waits on a socket; subscribers whose queue is full are
// dropped.
func (h *Hub) BroadcastActivity(groupID int, item models.FeedItem) {
	clients := h.snapshot(groupID)
	if len(clients) == 0 {
		return
	}

	payload, err := json.Marshal(models.ActivityEvent{Type: activityEvent, Activity: &item})
	if err != nil {
		logrus.WithError(err).WithField("group_id", groupID).Error("websocket: marshal activity event")
		return
	}

	for _, cl := range clients {
		if cl.enqueue(payload) {
			continue
		}
		logrus.WithFields(logrus.Fields{"group_id": groupID, "conn_id": cl.info.ConnID}).Warn("websocket subscriber stalled, dropping")
		h.RemoveClient(groupID, cl.conn)
		publishWSEvent(context.Background(), "ws_error", cl.info, "send queue full")
	}
}

func (h *Hub) snapshot(groupID int) []*client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	conns := h.rooms[groupID]
	out := make([]*client, 0, len(conns))
	for _, cl := range conns {
		out = append(out, cl)
	}
	return out
}

func publishWSEvent(ctx context.Context, event string, info ConnInfo, reason string) {
	var duration int64
	if !info.ConnectedAt.IsZero() {
		duration = time.Since(info.ConnectedAt).Milliseconds()
	}
	observability.IncWSEvent(wsKind, event)
	_ = observability.PublishEvent(ctx, wsRoutingKey, observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		RequestID: info.RequestID,
		TraceID:   info.TraceID,
		Payload: map[string]interface{}{
			"ws": map[string]interface{}{
				"kind":        wsKind,
				"resource_id": info.GroupID,
				"event":       event,
				"conn_id":     info.ConnID,
				"duration_ms": duration,
				"reason":      reason,
			},
			"identity": map[string]interface{}{
				"user_id":   info.UserID,
				"device_id": info.DeviceID,
				"ip":        info.IP,
			},
		},
	})
}
