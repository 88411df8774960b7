package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"circles-service/internal/models"
)

// Context keys set by AuthMiddleware.
const (
	UserIDKey   = "userID"
	IdentityKey = "identity"
)

// TokenVerifier turns a bearer token into a caller identity.
type TokenVerifier interface {
	Verify(token string) (models.Identity, error)
}

// ProfileProvisioner creates the caller's profile row on first sight.
type ProfileProvisioner interface {
	EnsureProfile(ctx context.Context, identity models.Identity) error
}

// AuthMiddleware validates the Authorization header and stores the caller.
// provisioner may be nil.
func AuthMiddleware(verifier TokenVerifier, provisioner ProfileProvisioner) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := BearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}

		identity, err := verifier.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		if provisioner != nil {
			if err := provisioner.EnsureProfile(c.Request.Context(), identity); err != nil {
				logrus.WithError(err).WithField("user_id", identity.UserID).Warn("profile provisioning failed")
			}
		}

		c.Set(UserIDKey, identity.UserID)
		c.Set(IdentityKey, identity)
		c.Next()
	}
}

// BearerToken extracts the token from an "Authorization: Bearer ..." value.
func BearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
