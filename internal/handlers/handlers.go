package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/chepyr/taskboard/internal/apperr"
	"github.com/chepyr/taskboard/internal/auth"
	"github.com/chepyr/taskboard/internal/realtime"
	"github.com/chepyr/taskboard/internal/services"
	"github.com/sirupsen/logrus"
)

const (
	requestTimeout = 5 * time.Second
	maxBodyBytes   = 1 << 20
)

type Handler struct {
	Auth          *services.AuthService
	Tasks         *services.TaskService
	Tokens        *auth.TokenManager
	Hub           *realtime.Hub
	AuthLimiter   *RateLimiter
	SocketLimiter *RateLimiter
	Origins       OriginPolicy
	Proxies       TrustedProxies
	Log           logrus.FieldLogger
}

type errorResponse struct {
	Message string `json:"message"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func sendMessage(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, errorResponse{Message: message})
}

// sendError is the single place where service errors become responses.
func (h *Handler) sendError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.StatusCode(err)
	if status >= http.StatusInternalServerError {
		h.logger().WithFields(logrus.Fields{
			"event":  "request_failed",
			"method": r.Method,
			"path":   r.URL.Path,
			"kind":   apperr.KindOf(err).String(),
		}).WithError(err).Error("request failed")
	}
	sendMessage(w, apperr.PublicMessage(err), status)
}

// decodeJSON reads a JSON body of at most maxBodyBytes into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apperr.Validation("Request body too large")
		}
		return apperr.Validation("Invalid JSON body")
	}
	return nil
}

func (h *Handler) logger() logrus.FieldLogger {
	if h.Log == nil {
		return logrus.StandardLogger()
	}
	return h.Log
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
