package profile

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"notesync/internal/session"
)

// Store is the persistence the profile service needs.
type Store interface {
	Create(ctx context.Context, p *Profile) error
	Get(ctx context.Context, userID string) (*Profile, error)
	Update(ctx context.Context, userID string, fields map[string]any) error
}

type Service struct {
	store Store
	log   *slog.Logger
}

func NewService(store Store, log *slog.Logger) *Service {
	return &Service{store: store, log: log}
}

// Get loads the signed-in user's profile.
func (s *Service) Get(ctx context.Context, sess *session.Session) (*Profile, error) {
	uid, err := sess.OwnerID()
	if err != nil {
		s.log.Warn("no authenticated user for profile")
		return nil, err
	}
	return s.store.Get(ctx, uid)
}

// Save applies u to the signed-in user's profile and returns the result.
func (s *Service) Save(ctx context.Context, sess *session.Session, u Update) (*Profile, error) {
	uid, err := sess.OwnerID()
	if err != nil {
		return nil, err
	}
	if fields := u.Fields(); len(fields) > 0 {
		if err := s.store.Update(ctx, uid, fields); err != nil {
			s.log.Error("failed to update profile", "user_id", uid, "error", err)
			return nil, err
		}
		s.log.Info("profile updated", "user_id", uid)
	}
	return s.store.Get(ctx, uid)
}

// AvatarURL returns the stored picture, or a generated avatar built from the
// user's initials.
func AvatarURL(p *Profile) string {
	if p.ProfileImageURL != "" {
		return p.ProfileImageURL
	}
	return "https://ui-avatars.com/api/?name=" + url.QueryEscape(Initials(p.FullName)) + "&background=random&color=fff"
}

// Initials returns the upper-cased first letters of up to two words of name.
func Initials(name string) string {
	var b strings.Builder
	for i, w := range strings.Fields(name) {
		if i == 2 {
			break
		}
		r := []rune(w)
		b.WriteString(strings.ToUpper(string(r[0])))
	}
	return b.String()
}
