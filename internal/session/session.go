// Package session holds the identity context of a signed-in user.
//
// Every store operation receives the session explicitly; nothing reads the
// current user from process-wide state.
package session

import (
	"context"
	"errors"
	"time"
)

// ErrNoSession is returned by operations invoked without a resolved user.
var ErrNoSession = errors.New("no active session")

// Session is created on sign-in or sign-up and dropped on sign-out.
type Session struct {
	UserID      string    `json:"userId"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	Token       string    `json:"token,omitempty"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// OwnerID returns the user id that scopes remote and local queries.
func (s *Session) OwnerID() (string, error) {
	if s == nil || s.UserID == "" {
		return "", ErrNoSession
	}
	return s.UserID, nil
}

type ctxKey struct{}

// WithSession returns a copy of ctx carrying s.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session stored by WithSession, if any.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(*Session)
	return s, ok && s != nil
}
