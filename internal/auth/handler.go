package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"notesync/internal/httpx"
	"notesync/internal/session"
)

// SignOutHook runs after a user signs out, e.g. to purge the local cache.
type SignOutHook func(ctx context.Context, ownerID string) error

type Handler struct {
	gw    *Gateway
	log   *slog.Logger
	hooks []SignOutHook
}

func NewHandler(gw *Gateway, log *slog.Logger, hooks ...SignOutHook) *Handler {
	return &Handler{gw: gw, log: log, hooks: hooks}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth/signin", h.SignIn)
	mux.HandleFunc("POST /api/auth/signup", h.SignUp)
	mux.HandleFunc("POST /api/auth/signout", h.gw.Require(h.SignOut))
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignIn handles POST /api/auth/signin
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if !httpx.Decode(w, r, &req) {
		return
	}

	sess, err := h.gw.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(w, "failed to sign in", err)
		return
	}
	h.setCookie(w, sess)
	httpx.JSON(w, sess, http.StatusOK)
}

// SignUp handles POST /api/auth/signup
func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	var in SignUpInput
	if !httpx.Decode(w, r, &in) {
		return
	}

	sess, err := h.gw.SignUp(r.Context(), in)
	if err != nil {
		h.fail(w, "failed to sign up", err)
		return
	}
	h.setCookie(w, sess)
	httpx.JSON(w, sess, http.StatusCreated)
}

// SignOut handles POST /api/auth/signout
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	sess, ok := httpx.Session(w, r)
	if !ok {
		return
	}

	if err := h.gw.SignOut(r.Context(), sess); err != nil {
		h.fail(w, "failed to sign out", err)
		return
	}
	for _, hook := range h.hooks {
		if err := hook(r.Context(), sess.UserID); err != nil {
			h.log.Error("sign out hook failed", "user_id", sess.UserID, "error", err)
		}
	}

	http.SetCookie(w, &http.Cookie{Name: CookieName, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) setCookie(w http.ResponseWriter, sess *session.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		httpx.Error(w, verr.Message, http.StatusBadRequest)
	case errors.Is(err, ErrInvalidCredentials):
		httpx.Error(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, ErrEmailTaken):
		httpx.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrTokenRevoked), errors.Is(err, session.ErrNoSession):
		httpx.Error(w, "unauthorized", http.StatusUnauthorized)
	default:
		h.log.Error(msg, "error", err)
		httpx.Error(w, "internal error", http.StatusInternalServerError)
	}
}
