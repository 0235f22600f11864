package profile

import (
	"errors"
	"log/slog"
	"net/http"

	"notesync/internal/httpx"
	"notesync/internal/session"
)

type Handler struct {
	svc *Service
	log *slog.Logger
}

func NewHandler(svc *Service, log *slog.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

func (h *Handler) Register(mux *http.ServeMux, wrap func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("GET /api/profile", wrap(h.GetProfile))
	mux.HandleFunc("PATCH /api/profile", wrap(h.UpdateProfile))
}

type profileResponse struct {
	*Profile
	AvatarURL string `json:"avatarURL"`
}

// GetProfile handles GET /api/profile
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	sess, ok := httpx.Session(w, r)
	if !ok {
		return
	}

	p, err := h.svc.Get(r.Context(), sess)
	if err != nil {
		h.fail(w, "failed to get profile", err)
		return
	}
	httpx.JSON(w, profileResponse{Profile: p, AvatarURL: AvatarURL(p)}, http.StatusOK)
}

// UpdateProfile handles PATCH /api/profile
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	sess, ok := httpx.Session(w, r)
	if !ok {
		return
	}
	var u Update
	if !httpx.Decode(w, r, &u) {
		return
	}

	p, err := h.svc.Save(r.Context(), sess, u)
	if err != nil {
		h.fail(w, "failed to update profile", err)
		return
	}
	httpx.JSON(w, profileResponse{Profile: p, AvatarURL: AvatarURL(p)}, http.StatusOK)
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, ErrProfileNotFound):
		httpx.Error(w, "profile not found", http.StatusNotFound)
		return
	case errors.Is(err, session.ErrNoSession):
		httpx.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	h.log.Error(msg, "error", err)
	httpx.Error(w, "internal error", http.StatusInternalServerError)
}
