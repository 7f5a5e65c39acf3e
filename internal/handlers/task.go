package handlers

import (
	"context"
	"net/http"

	"github.com/chepyr/taskboard/internal/services"
	"github.com/gorilla/mux"
)

/*
handles routes:
- POST   /api/tasks                        create a task
- GET    /api/tasks                        tasks the caller created or is assigned to
- GET    /api/tasks/{id}                   one task
- PUT    /api/tasks/{id}                   update (creator only)
- DELETE /api/tasks/{id}                   delete (creator only)
- PATCH  /api/tasks/{id}/toggle-status     toggle (assignee only)
*/

func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var input services.CreateTaskInput
	if err := decodeJSON(w, r, &input); err != nil {
		h.sendError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	task, err := h.Tasks.Create(ctx, UserIDFromContext(r.Context()), input)
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	tasks, err := h.Tasks.ListMine(ctx, UserIDFromContext(r.Context()))
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	task, err := h.Tasks.Get(ctx, mux.Vars(r)["id"], UserIDFromContext(r.Context()))
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	var input services.UpdateTaskInput
	if err := decodeJSON(w, r, &input); err != nil {
		h.sendError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	task, err := h.Tasks.Update(ctx, mux.Vars(r)["id"], UserIDFromContext(r.Context()), input)
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	res, err := h.Tasks.Delete(ctx, mux.Vars(r)["id"], UserIDFromContext(r.Context()))
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: res.Message})
}

func (h *Handler) ToggleTaskStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	task, err := h.Tasks.ToggleStatus(ctx, mux.Vars(r)["id"], UserIDFromContext(r.Context()))
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}
