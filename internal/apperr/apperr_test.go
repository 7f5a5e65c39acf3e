package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", Validation("All fields are required"), http.StatusBadRequest},
		{"conflict", Conflict("User already exists"), http.StatusBadRequest},
		{"not found", NotFound("Task not found"), http.StatusNotFound},
		{"auth", Auth("Invalid credentials"), http.StatusUnauthorized},
		{"forbidden", Forbidden("Not allowed"), http.StatusForbidden},
		{"configuration", Configuration("JWT_SECRET not configured", nil), http.StatusInternalServerError},
		{"internal", Internal("insert task", errors.New("boom")), http.StatusInternalServerError},
		{"foreign error", errors.New("plain"), http.StatusInternalServerError},
		{"wrapped", fmt.Errorf("service: %w", Forbidden("Not allowed")), http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusCode(tt.err))
		})
	}
}

func TestPublicMessage_HidesInternalDetail(t *testing.T) {
	err := Internal("insert task", errors.New("connection reset by peer"))
	assert.Equal(t, "Server error", PublicMessage(err))
	assert.Equal(t, "Server error", PublicMessage(errors.New("raw driver error")))
	assert.Equal(t, "Task not found", PublicMessage(NotFound("Task not found")))
}

func TestError_UnwrapAndIs(t *testing.T) {
	cause := errors.New("cause")
	err := Internal("store", cause)
	assert.ErrorIs(t, err, cause)
	assert.True(t, Is(err, KindInternal))
	assert.False(t, Is(nil, KindInternal))
	assert.Equal(t, "store: cause", err.Error())
}
