package notes

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

// Register mounts the note routes on mux
func (h *Handler) Register(mux *http.ServeMux, wrap func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("GET /api/notes", wrap(h.ListNotes))
	mux.HandleFunc("POST /api/notes", wrap(h.CreateNote))
	mux.HandleFunc("POST /api/notes/refresh", wrap(h.RefreshNotes))
	mux.HandleFunc("GET /api/notes/{id}", wrap(h.GetNote))
	mux.HandleFunc("PATCH /api/notes/{id}", wrap(h.UpdateNote))
	mux.HandleFunc("DELETE /api/notes/{id}", wrap(h.DeleteNote))
}

// ListNotes handles GET /api/notes
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	sess, ok := httpx.Session(w, r)
	if !ok {
		return
	}

	var category Category
	if c := r.URL.Query().Get("category"); c != "" {
		parsed, err := ParseCategory(c)
		if err != nil {
			httpx.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		category = parsed
	}

	notes, err := h.svc.List(r.Context(), sess, category)
	if err != nil {
		h.fail(w, "failed to list notes", err)
		return
	}
	if notes == nil {
		notes = []Note{}
	}
	httpx.JSON(w, notes, http.StatusOK)
}

// CreateNote handles POST /api/notes
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	sess, ok := httpx.Session(w, r)
	if !ok {
		return
	}
	var input NoteInput
	if !httpx.Decode(w, r, &input) {
		return
	}

	note, err := h.svc.Create(r.Context(), sess, input)
	if err != nil {
		h.fail(w, "failed to create note", err)
		return
	}
	httpx.JSON(w, note, http.StatusCreated)
}

// GetNote handles GET /api/notes/{id}
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	sess, ok := httpx.Session(w, r)
	if !ok {
		return
	}

	note, err := h.svc.Get(r.Context(), sess, r.PathValue("id"))
	if err != nil {
		h.fail(w, "failed to get note", err)
		return
	}
	httpx.JSON(w, note, http.StatusOK)
}

// UpdateNote handles PATCH /api/notes/{id}. Omitted fields are kept.
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	sess, ok := httpx.Session(w, r)
	if !ok {
		return
	}
	var input NotePatch
	if !httpx.Decode(w, r, &input) {
		return
	}

	note, err := h.svc.Patch(r.Context(), sess, r.PathValue("id"), input)
	if err != nil {
		h.fail(w, "failed to update note", err)
		return
	}
	httpx.JSON(w, note, http.StatusOK)
}

// DeleteNote handles DELETE /api/notes/{id}
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	sess, ok := httpx.Session(w, r)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), sess, r.PathValue("id")); err != nil {
		h.fail(w, "failed to delete note", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RefreshNotes handles POST /api/notes/refresh
func (h *Handler) RefreshNotes(w http.ResponseWriter, r *http.Request) {
	sess, ok := httpx.Session(w, r)
	if !ok {
		return
	}

	notes, err := h.svc.Refresh(r.Context(), sess)
	if err != nil {
		h.fail(w, "failed to refresh notes", err)
		return
	}
	if notes == nil {
		notes = []Note{}
	}
	httpx.JSON(w, notes, http.StatusOK)
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, ErrTitleRequired), errors.Is(err, ErrInvalidCategory), errors.Is(err, syncvm.ErrMissingRemoteID):
		httpx.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNoteNotFound):
		httpx.Error(w, "note not found", http.StatusNotFound)
	case errors.Is(err, session.ErrNoSession):
		httpx.Error(w, "unauthorized", http.StatusUnauthorized)
	default:
		h.log.Error(msg, "error", err)
		httpx.Error(w, "internal error", http.StatusInternalServerError)
	}
}
