// Package httpx holds the JSON response helpers shared by the REST handlers.
package httpx

import (
	"encoding/json"
	"net/http"

	"notesync/internal/session"
)

func JSON(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func Error(w http.ResponseWriter, message string, status int) {
	JSON(w, map[string]string{"error": message}, status)
}

// Decode reads a JSON body into v, writing a 400 on failure.
func Decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		Error(w, "invalid JSON body", http.StatusBadRequest)
		return false
	}
	return true
}

// Session returns the request's session, writing a 401 when there is none.
func Session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		Error(w, "unauthorized", http.StatusUnauthorized)
		return nil, false
	}
	return sess, true
}
