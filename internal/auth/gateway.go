// Package auth signs users in and up against the identity provider and
// turns the result into an explicit session.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"notesync/internal/profile"
	"notesync/internal/session"
)

// ProfileCreator stores the profile of a newly registered user.
type ProfileCreator interface {
	Create(ctx context.Context, p *profile.Profile) error
}

type Gateway struct {
	idp      IdentityProvider
	profiles ProfileCreator
	tokens   *Tokens
	log      *slog.Logger
	now      func() time.Time
}

func NewGateway(idp IdentityProvider, profiles ProfileCreator, tokens *Tokens, log *slog.Logger) *Gateway {
	return &Gateway{
		idp:      idp,
		profiles: profiles,
		tokens:   tokens,
		log:      log,
		now:      time.Now,
	}
}

// SignIn authenticates the user. A failure carries a displayable message and
// leaves no session behind.
func (g *Gateway) SignIn(ctx context.Context, email, password string) (*session.Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, &ValidationError{Field: "required", Message: MsgRequiredFields}
	}

	u, err := g.idp.SignIn(ctx, email, password)
	if err != nil {
		g.log.Warn("sign in failed", "email", email, "error", err)
		if errors.Is(err, ErrInvalidCredentials) {
			return nil, err
		}
		return nil, fmt.Errorf("sign in: %w", err)
	}

	g.log.Info("user signed in", "user_id", u.UID)
	return g.newSession(u)
}

// SignUp validates the form locally, creates the account and its profile,
// and signs the new user in. A validation failure makes no remote call.
func (g *Gateway) SignUp(ctx context.Context, in SignUpInput) (*session.Session, error) {
	now := g.now()
	if _, err := ValidateSignUp(in, now); err != nil {
		return nil, err
	}

	u, err := g.idp.CreateUser(ctx, in.Email, in.Password)
	if err != nil {
		g.log.Warn("sign up failed", "email", in.Email, "error", err)
		if errors.Is(err, ErrEmailTaken) {
			return nil, err
		}
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, passwordTooLong()
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	p := &profile.Profile{
		UserID:      u.UID,
		FullName:    strings.TrimSpace(in.FullName),
		Username:    strings.TrimSpace(in.Username),
		Email:       u.Email,
		PhoneNumber: strings.TrimSpace(in.PhoneNumber),
		DateOfBirth: in.DateOfBirth(),
		CreatedAt:   now.UTC(),
	}
	if err := g.profiles.Create(ctx, p); err != nil {
		g.log.Error("failed to create profile", "user_id", u.UID, "error", err)
		// Roll the account back so the email can register again.
		if derr := g.idp.DeleteUser(ctx, u.UID); derr != nil {
			g.log.Error("orphaned account without profile", "user_id", u.UID, "email", u.Email, "error", derr)
		}
		return nil, fmt.Errorf("create profile: %w", err)
	}

	g.log.Info("user registered", "user_id", u.UID)
	return g.newSession(u)
}

// SignOut revokes the session token. Callers clear their own state.
func (g *Gateway) SignOut(_ context.Context, sess *session.Session) error {
	if sess == nil || sess.Token == "" {
		return session.ErrNoSession
	}
	claims, err := g.tokens.Parse(sess.Token)
	if err != nil {
		return err
	}
	g.tokens.Revoke(claims)
	g.log.Info("user signed out", "user_id", claims.Subject)
	return nil
}

// Authenticate rebuilds the session carried by a bearer token.
func (g *Gateway) Authenticate(token string) (*session.Session, error) {
	claims, err := g.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	s := &session.Session{
		UserID:      claims.Subject,
		Email:       claims.Email,
		DisplayName: claims.Email,
		Token:       token,
	}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
	}
	return s, nil
}

func (g *Gateway) newSession(u *User) (*session.Session, error) {
	token, expires, err := g.tokens.Issue(u)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &session.Session{
		UserID:      u.UID,
		Email:       u.Email,
		DisplayName: u.Email,
		Token:       token,
		ExpiresAt:   expires,
	}, nil
}
