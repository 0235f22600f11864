package auth

import (
	"net/http"
	"strings"

	"notesync/internal/httpx"
	"notesync/internal/session"
)

// CookieName carries the session token for the HTML view.
const CookieName = "notesync_token"

// Middleware resolves the request's token into a session on the context.
// With requireAuth, requests without a valid session get a 401.
func (g *Gateway) Middleware(next http.HandlerFunc, requireAuth bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := TokenFromRequest(r)
		if token == "" {
			if requireAuth {
				httpx.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next(w, r)
			return
		}

		sess, err := g.Authenticate(token)
		if err != nil {
			if requireAuth {
				httpx.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			next(w, r)
			return
		}

		next(w, r.WithContext(session.WithSession(r.Context(), sess)))
	}
}

// Require is Middleware with authentication enforced.
func (g *Gateway) Require(next http.HandlerFunc) http.HandlerFunc {
	return g.Middleware(next, true)
}

// TokenFromRequest reads a bearer token, falling back to the session cookie.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
		return ""
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return c.Value
	}
	return ""
}
