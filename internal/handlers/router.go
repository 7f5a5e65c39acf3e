package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter wires every route. CORS runs before routing so preflight
// requests never reach the method matchers.
func NewRouter(h *Handler) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sendMessage(w, "Route not found", http.StatusNotFound)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sendMessage(w, "Method not allowed", http.StatusMethodNotAllowed)
	})

	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	r.HandleFunc("/socket", h.HandleWebSocket).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/auth/register", h.Register).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", h.Login).Methods(http.MethodPost)
	api.HandleFunc("/users", h.AuthMiddleware(h.ListUsers)).Methods(http.MethodGet)

	api.HandleFunc("/tasks", h.AuthMiddleware(h.CreateTask)).Methods(http.MethodPost)
	api.HandleFunc("/tasks", h.AuthMiddleware(h.ListTasks)).Methods(http.MethodGet)
	api.HandleFunc("/tasks/{id}", h.AuthMiddleware(h.GetTask)).Methods(http.MethodGet)
	api.HandleFunc("/tasks/{id}", h.AuthMiddleware(h.UpdateTask)).Methods(http.MethodPut)
	api.HandleFunc("/tasks/{id}", h.AuthMiddleware(h.DeleteTask)).Methods(http.MethodDelete)
	api.HandleFunc("/tasks/{id}/toggle-status", h.AuthMiddleware(h.ToggleTaskStatus)).Methods(http.MethodPatch)

	return h.recoverPanic(h.enableCORS(r))
}
