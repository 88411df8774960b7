package ws

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"circles-service/internal/observability"
)

// sendBuffer bounds the events queued for one subscriber before it is
// treated as stalled and dropped.
const sendBuffer = 32

// ConnInfo identifies a subscriber for operational events.
type ConnInfo struct {
	ConnID      string
	GroupID     int
	UserID      int
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}

// client owns one connection. Only writePump writes to conn.
type client struct {
	conn *websocket.Conn
	info ConnInfo
	send chan []byte
	done chan struct{}
	once sync.Once

	// set before done is closed; non-empty means send a close frame
	reason string
}

func newClient(conn *websocket.Conn, info ConnInfo) *client {
	return &client{
		conn: conn,
		info: info,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
}

// enqueue never blocks; false means the queue is full.
func (c *client) enqueue(payload []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// close stops the write pump, which then closes the connection.
func (c *client) close() {
	c.closeWith("")
}

// closeWith stops the write pump after telling the peer why.
func (c *client) closeWith(reason string) {
	c.once.Do(func() {
		c.reason = reason
		close(c.done)
	})
}

// writePump drains the send queue until the client is closed or a write fails.
func (c *client) writePump() {
	defer func() {
		_ = c.conn.Close()
	}()
	for {
		select {
		case <-c.done:
			if c.reason != "" {
				_ = c.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.ClosePolicyViolation, c.reason),
					time.Now().Add(writeTimeout))
			}
			return
		case payload := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				logrus.WithError(err).WithFields(logrus.Fields{"group_id": c.info.GroupID, "conn_id": c.info.ConnID}).Warn("websocket write error")
				return
			}
			observability.IncWSEvent(wsKind, "ws_push")
		}
	}
}

func newConnID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}
