package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"circles-service/internal/observability"
	"circles-service/internal/ratelimit"
)

// RateLimit rejects clients that exceed limiter with 429. Limiter errors let
// the request through.
func RateLimit(limiter ratelimit.Limiter, scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := scope + ":" + c.ClientIP()
		allowed, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			logrus.WithError(err).WithField("scope", scope).Warn("RateLimit: limiter unavailable, allowing request")
			c.Next()
			return
		}
		if !allowed {
			observability.IncRateLimited(scope)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
