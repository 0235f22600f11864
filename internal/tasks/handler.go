package tasks

import (
	"errors"
	"log/slog"
	"net/http"

	"notesync/internal/httpx"
	"notesync/internal/session"
	"notesync/internal/syncvm"
)

type Handler struct {
	svc *Service
	log *slog.Logger
}

func NewHandler(svc *Service, log *slog.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

func (h *Handler) Register(mux *http.ServeMux, wrap func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("GET /api/tasks", wrap(h.ListTasks))
	mux.HandleFunc("POST /api/tasks", wrap(h.CreateTask))
	mux.HandleFunc("POST /api/tasks/refresh", wrap(h.RefreshTasks))
	mux.HandleFunc("GET /api/tasks/{id}", wrap(h.GetTask))
	mux.HandleFunc("PATCH /api/tasks/{id}", wrap(h.UpdateTask))
	mux.HandleFunc("POST /api/tasks/{id}/toggle", wrap(h.ToggleTask))
	mux.HandleFunc("DELETE /api/tasks/{id}", wrap(h.DeleteTask))
}

// ListTasks handles GET /api/tasks?pending=true
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	sess, ok := httpx.Session(w, r)
	if !ok {
		return
	}

	tasks, err := h.svc.List(r.Context(), sess, r.URL.Query().Get("pending") == "true")
	if err != nil {
		h.fail(w, "failed to list tasks", err)
		return
	}
	if tasks == nil {
		tasks = []Task{}
	}
	httpx.JSON(w, tasks, http.StatusOK)
}

// CreateTask handles POST /api/tasks
func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	sess, ok := httpx.Session(w, r)
	if !ok {
		return
	}
	var input TaskInput
	if !httpx.Decode(w, r, &input) {
		return
	}

	task, err := h.svc.Create(r.Context(), sess, input)
	if err != nil {
		h.fail(w, "failed to create task", err)
		return
	}
	httpx.JSON(w, task, http.StatusCreated)
}

// GetTask handles GET /api/tasks/{id}
func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	sess, ok := httpx.Session(w, r)
	if !ok {
		return
	}

	task, err := h.svc.Get(r.Context(), sess, r.PathValue("id"))
	if err != nil {
		h.fail(w, "failed to get task", err)
		return
	}
	httpx.JSON(w, task, http.StatusOK)
}

// UpdateTask handles PATCH /api/tasks/{id}. Omitted fields are kept and a
// null reminderDate clears the reminder.
func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	sess, ok := httpx.Session(w, r)
	if !ok {
		return
	}
	var input TaskPatch
	if !httpx.Decode(w, r, &input) {
		return
	}

	task, err := h.svc.Patch(r.Context(), sess, r.PathValue("id"), input)
	if err != nil {
		h.fail(w, "failed to update task", err)
		return
	}
	httpx.JSON(w, task, http.StatusOK)
}

// ToggleTask handles POST /api/tasks/{id}/toggle
func (h *Handler) ToggleTask(w http.ResponseWriter, r *http.Request) {
	sess, ok := httpx.Session(w, r)
	if !ok {
		return
	}

	task, err := h.svc.Toggle(r.Context(), sess, r.PathValue("id"))
	if err != nil {
		h.fail(w, "failed to toggle task", err)
		return
	}
	httpx.JSON(w, task, http.StatusOK)
}

// DeleteTask handles DELETE /api/tasks/{id}
func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	sess, ok := httpx.Session(w, r)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), sess, r.PathValue("id")); err != nil {
		h.fail(w, "failed to delete task", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RefreshTasks handles POST /api/tasks/refresh
func (h *Handler) RefreshTasks(w http.ResponseWriter, r *http.Request) {
	sess, ok := httpx.Session(w, r)
	if !ok {
		return
	}

	tasks, err := h.svc.Refresh(r.Context(), sess)
	if err != nil {
		h.fail(w, "failed to refresh tasks", err)
		return
	}
	if tasks == nil {
		tasks = []Task{}
	}
	httpx.JSON(w, tasks, http.StatusOK)
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, ErrTitleRequired), errors.Is(err, syncvm.ErrMissingRemoteID):
		httpx.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrTaskNotFound):
		httpx.Error(w, "task not found", http.StatusNotFound)
	case errors.Is(err, session.ErrNoSession):
		httpx.Error(w, "unauthorized", http.StatusUnauthorized)
	default:
		h.log.Error(msg, "error", err)
		httpx.Error(w, "internal error", http.StatusInternalServerError)
	}
}
