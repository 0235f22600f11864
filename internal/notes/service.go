package notes

import (
	"bytes"
	"context"
	"errors"
	"log/slog"

	"github.com/yuin/goldmark"

	"notesync/internal/session"
	"notesync/internal/syncvm"
)

// ViewModel is the note instance of the generic sync view model.
type ViewModel = syncvm.ViewModel[Note, Fields]

type Service struct {
	vm *ViewModel
	md goldmark.Markdown
}

func NewService(remote syncvm.RemoteStore[Note, Fields], local syncvm.LocalStore[Note], log *slog.Logger, opts ...syncvm.Option) *Service {
	return &Service{
		vm: syncvm.New[Note, Fields]("note", remote, local, log, opts...),
		md: goldmark.New(),
	}
}

// ViewModel exposes the observable state for the view layer.
func (s *Service) ViewModel() *ViewModel {
	return s.vm
}

// Create adds a note and returns it as cached after the refresh.
func (s *Service) Create(ctx context.Context, sess *session.Session, input NoteInput) (*Note, error) {
	fields, err := input.Fields()
	if err != nil {
		return nil, err
	}
	id, err := s.vm.Add(ctx, sess, fields)
	if err != nil {
		return nil, err
	}
	return s.cachedOrPending(ctx, sess, id, fields), nil
}

// Update edits the cached note with the given remote id.
func (s *Service) Update(ctx context.Context, sess *session.Session, remoteID string, input NoteInput) (*Note, error) {
	fields, err := input.Fields()
	if err != nil {
		return nil, err
	}
	note, err := s.Get(ctx, sess, remoteID)
	if err != nil {
		return nil, err
	}
	if err := s.vm.Update(ctx, sess, *note, fields); err != nil {
		return nil, err
	}
	return s.cachedOrPending(ctx, sess, remoteID, fields), nil
}

// Patch writes only the fields present in p. An empty patch makes no write.
func (s *Service) Patch(ctx context.Context, sess *session.Session, remoteID string, p NotePatch) (*Note, error) {
	patch, err := p.Patch()
	if err != nil {
		return nil, err
	}
	note, err := s.Get(ctx, sess, remoteID)
	if err != nil {
		return nil, err
	}
	if len(patch) == 0 {
		return note, nil
	}
	if err := s.vm.Apply(ctx, sess, *note, patch); err != nil {
		return nil, err
	}
	return s.cachedOrPending(ctx, sess, remoteID, p.Merge(*note)), nil
}

// Delete removes the note with the given remote id.
func (s *Service) Delete(ctx context.Context, sess *session.Session, remoteID string) error {
	note, err := s.Get(ctx, sess, remoteID)
	if err != nil {
		return err
	}
	return s.vm.Delete(ctx, sess, *note)
}

// Get returns a cached note by remote id.
func (s *Service) Get(ctx context.Context, sess *session.Session, remoteID string) (*Note, error) {
	note, err := s.vm.Find(ctx, sess, remoteID)
	if errors.Is(err, syncvm.ErrNotFound) {
		return nil, ErrNoteNotFound
	}
	if err != nil {
		return nil, err
	}
	return &note, nil
}

// List returns the cached notes, optionally filtered by category.
func (s *Service) List(ctx context.Context, sess *session.Session, category Category) ([]Note, error) {
	owner, err := sess.OwnerID()
	if err != nil {
		return nil, err
	}
	all := s.vm.Items(owner)
	if all == nil {
		if all, err = s.vm.Load(ctx, sess); err != nil {
			return nil, err
		}
	}
	if category == "" {
		return all, nil
	}
	var out []Note
	for _, n := range all {
		if n.Category == category {
			out = append(out, n)
		}
	}
	return out, nil
}

// Refresh reloads the cache from the remote store.
func (s *Service) Refresh(ctx context.Context, sess *session.Session) ([]Note, error) {
	return s.vm.Refresh(ctx, sess)
}

// Purge drops the owner's cached notes.
func (s *Service) Purge(ctx context.Context, ownerID string) error {
	return s.vm.Purge(ctx, ownerID)
}

// RenderMarkdown converts note details to HTML
func (s *Service) RenderMarkdown(content string) string {
	var buf bytes.Buffer
	if err := s.md.Convert([]byte(content), &buf); err != nil {
		return content // Return raw content on error
	}
	return buf.String()
}

// cachedOrPending returns the cached note, or a record built from fields
// when the post-write refresh did not land.
func (s *Service) cachedOrPending(ctx context.Context, sess *session.Session, remoteID string, f Fields) *Note {
	if note, err := s.vm.Find(ctx, sess, remoteID); err == nil {
		return &note
	}
	return &Note{
		RemoteID: remoteID,
		Title:    f.Title,
		Details:  f.Details,
		Category: f.category(),
		OwnerID:  sess.UserID,
	}
}
