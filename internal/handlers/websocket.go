package handlers

import (
	"net/http"
)

// HandleWebSocket is open to anonymous clients, like the rest of the
// signal channel. Only the upgrade rate is limited.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ip := clientIP(r, h.Proxies)
	if h.SocketLimiter != nil && !h.SocketLimiter.Allow(ip) {
		sendMessage(w, "Too many WebSocket connection attempts", http.StatusTooManyRequests)
		return
	}
	if !h.checkOrigin(r) {
		sendMessage(w, "Origin not allowed", http.StatusForbidden)
		return
	}
	h.Hub.ServeWS(w, r)
}
