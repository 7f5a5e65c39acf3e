package handlers

import (
	"net/http"
	"runtime/debug"

	"github.com/sirupsen/logrus"
)

// OriginPolicy decides which browser origins may call the API and open the
// socket. An empty policy allows every origin.
type OriginPolicy struct {
	allowed map[string]bool
}

func NewOriginPolicy(origins []string) OriginPolicy {
	p := OriginPolicy{allowed: make(map[string]bool, len(origins))}
	for _, o := range origins {
		p.allowed[o] = true
	}
	return p
}

func (p OriginPolicy) AllowAll() bool {
	return len(p.allowed) == 0
}

func (p OriginPolicy) Allowed(origin string) bool {
	return p.AllowAll() || p.allowed[origin]
}

// CheckOrigin is the websocket upgrader hook. Requests without an Origin
// header come from non-browser clients and are accepted.
func (p OriginPolicy) CheckOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	return origin == "" || p.Allowed(origin)
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	return h.Origins.CheckOrigin(r)
}

func (h *Handler) enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		switch {
		case h.Origins.AllowAll():
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "" && h.Origins.Allowed(origin):
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				h.logger().WithFields(logrus.Fields{
					"event":  "panic",
					"method": r.Method,
					"path":   r.URL.Path,
					"panic":  rec,
				}).Error(string(debug.Stack()))
				sendMessage(w, "Server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
