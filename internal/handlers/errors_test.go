package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"circles-service/internal/services"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{err: &services.ValidationError{Fields: map[string]string{"name": "required"}}, status: http.StatusBadRequest},
		{err: fmt.Errorf("%w: no identity", services.ErrUnauthenticated), status: http.StatusUnauthorized},
		{err: fmt.Errorf("%w: owner only", services.ErrForbidden), status: http.StatusForbidden},
		{err: fmt.Errorf("%w: group not found", services.ErrNotFound), status: http.StatusNotFound},
		{err: fmt.Errorf("%w: pending", services.ErrConflict), status: http.StatusConflict},
		{err: services.ErrInvalidToken, status: http.StatusBadRequest},
		{err: services.ErrExpired, status: http.StatusBadRequest},
		{err: services.ErrAlreadyUsed, status: http.StatusBadRequest},
		{err: errors.New("boom"), status: http.StatusInternalServerError},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.status, statusFor(tc.err), tc.err.Error())
	}
}

func TestPublicMessage(t *testing.T) {
	assert.Equal(t, "group not found", publicMessage(fmt.Errorf("%w: group not found", services.ErrNotFound)))
	assert.Equal(t, "invitation expired", publicMessage(services.ErrExpired))
}
