package handlers

import (
	"context"
	"net/http"

	"github.com/chepyr/taskboard/internal/models"
	"github.com/chepyr/taskboard/internal/services"
)

type registerResponse struct {
	Message string            `json:"message"`
	User    models.PublicUser `json:"user"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if !h.allowAuthAttempt(w, r) {
		return
	}

	var input services.RegisterInput
	if err := decodeJSON(w, r, &input); err != nil {
		h.sendError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	user, err := h.Auth.Register(ctx, input)
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, registerResponse{Message: "User registered successfully", User: user})
}

func (h *Handler) allowAuthAttempt(w http.ResponseWriter, r *http.Request) bool {
	ip := clientIP(r, h.Proxies)
	if h.AuthLimiter != nil && !h.AuthLimiter.Allow(ip) {
		h.logger().WithField("event", "rate_limited").WithField("ip", ip).Warn("too many auth attempts")
		sendMessage(w, "Too many attempts. Please try again later.", http.StatusTooManyRequests)
		return false
	}
	return true
}
