package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/chepyr/taskboard/internal/apperr"
	"github.com/chepyr/taskboard/internal/auth"
)

type contextKey string

const userIDKey contextKey = "user_id"

func withUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns the authenticated user id, or "" outside
// AuthMiddleware.
func UserIDFromContext(ctx context.Context) string {
	userID, _ := ctx.Value(userIDKey).(string)
	return userID
}

/*
Verify the bearer token locally with the shared secret.
Put the user id from the token into the request context.
*/
func (h *Handler) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenString, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || strings.TrimSpace(tokenString) == "" {
			sendMessage(w, "Not authorized", http.StatusUnauthorized)
			return
		}

		// A token can only be checked once a secret is configured.
		if h.Tokens == nil || !h.Tokens.Configured() {
			h.sendError(w, r, apperr.Configuration(auth.ErrNoSecret.Error(), auth.ErrNoSecret))
			return
		}

		userID, err := h.Tokens.Verify(strings.TrimSpace(tokenString))
		if err != nil {
			if errors.Is(err, auth.ErrExpiredToken) {
				h.logger().WithField("event", "token_expired").Debug("rejected expired token")
			}
			sendMessage(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		next(w, r.WithContext(withUserID(r.Context(), userID)))
	}
}
