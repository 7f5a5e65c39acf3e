package handlers

import (
	"context"
	"net/http"

	"github.com/chepyr/taskboard/internal/models"
	"github.com/chepyr/taskboard/internal/services"
)

type loginResponse struct {
	Message string            `json:"message"`
	Token   string            `json:"token"`
	User    models.PublicUser `json:"user"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if !h.allowAuthAttempt(w, r) {
		return
	}

	var input services.LoginInput
	if err := decodeJSON(w, r, &input); err != nil {
		h.sendError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	res, err := h.Auth.Login(ctx, input)
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Message: "Login successful", Token: res.Token, User: res.User})
}
