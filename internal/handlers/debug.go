package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"circles-service/internal/telemetry"
)

// SubscriberCounter reports live feed connections per group.
type SubscriberCounter interface {
	Subscribers(groupID int) int
}

// DebugDeps are the collaborators inspected by the debug routes. Either may be nil.
type DebugDeps struct {
	Audit       *telemetry.AuditEmitter
	Subscribers SubscriberCounter
}

// RegisterDebugRoutes wires operator-only endpoints when enabled.
func RegisterDebugRoutes(router gin.IRoutes, deps DebugDeps, enabled bool) {
	if !enabled {
		return
	}

	router.POST("/debug/audit-test", func(c *gin.Context) {
		if deps.Audit == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit emitter not configured"})
			return
		}
		deps.Audit.Emit(c.Request.Context(), "INFO", "audit_test", 0, "audit pipeline check", requestIDFromContext(c), userIDFromContext(c))
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/debug/groups/:group_id/subscribers", func(c *gin.Context) {
		if deps.Subscribers == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "live feed not configured"})
			return
		}
		groupID, ok := parsePathID(c, "group_id")
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{"group_id": groupID, "subscribers": deps.Subscribers.Subscribers(groupID)})
	})
}
