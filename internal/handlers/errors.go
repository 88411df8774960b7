package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"circles-service/internal/services"
)

// statusFor maps a service error to an HTTP status.
func statusFor(err error) int {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, services.ErrInvalidToken),
		errors.Is(err, services.ErrExpired),
		errors.Is(err, services.ErrAlreadyUsed):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError renders err with its mapped status.
func writeServiceError(c *gin.Context, err error) {
	writeServiceErrorStatus(c, statusFor(err), err)
}

// writeServiceErrorStatus renders err with an explicit status. Validation
// errors always carry their field map.
func writeServiceErrorStatus(c *gin.Context, status int, err error) {
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fieldErrors": verr.Fields})
		return
	}
	if status >= http.StatusInternalServerError {
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": publicMessage(err)})
}

// publicMessage drops the sentinel prefix of a wrapped error.
func publicMessage(err error) string {
	msg := err.Error()
	if _, detail, ok := strings.Cut(msg, ": "); ok && detail != "" {
		return detail
	}
	return msg
}

func fieldError(c *gin.Context, field, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fieldErrors": gin.H{field: message}})
}
