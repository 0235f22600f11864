// Package syncvmtest provides an in-memory RemoteStore for tests.
package syncvmtest

import (
	"context"
	"errors"
	"sync"

	"notesync/internal/syncvm"
)

// ErrMissing is returned when patching or deleting an unknown document.
var ErrMissing = errors.New("document not found")

// Remote keeps documents per owner in insertion order.
type Remote[E syncvm.Entity, F syncvm.Fields] struct {
	// Build turns inserted fields into a stored entity.
	Build func(ownerID, remoteID string, f F) E
	// Apply returns e with patch applied.
	Apply func(e E, patch syncvm.Patch) E

	mu     sync.Mutex
	docs   map[string][]E
	writes int
	err    error
}

func NewRemote[E syncvm.Entity, F syncvm.Fields](build func(ownerID, remoteID string, f F) E, apply func(E, syncvm.Patch) E) *Remote[E, F] {
	return &Remote[E, F]{Build: build, Apply: apply, docs: make(map[string][]E)}
}

// Fail makes every following call return err until cleared with nil.
func (r *Remote[E, F]) Fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// Writes counts successful and failed write calls.
func (r *Remote[E, F]) Writes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes
}

// Docs returns the owner's stored documents.
func (r *Remote[E, F]) Docs(ownerID string) []E {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]E(nil), r.docs[ownerID]...)
}

func (r *Remote[E, F]) Insert(_ context.Context, ownerID, remoteID string, f F) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes++
	if r.err != nil {
		return r.err
	}
	for i, e := range r.docs[ownerID] {
		if e.Key() == remoteID {
			r.docs[ownerID][i] = r.Build(ownerID, remoteID, f)
			return nil
		}
	}
	r.docs[ownerID] = append(r.docs[ownerID], r.Build(ownerID, remoteID, f))
	return nil
}

func (r *Remote[E, F]) Patch(_ context.Context, ownerID, remoteID string, patch syncvm.Patch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes++
	if r.err != nil {
		return r.err
	}
	for i, e := range r.docs[ownerID] {
		if e.Key() == remoteID {
			r.docs[ownerID][i] = r.Apply(e, patch)
			return nil
		}
	}
	return ErrMissing
}

func (r *Remote[E, F]) Delete(_ context.Context, ownerID, remoteID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes++
	if r.err != nil {
		return r.err
	}
	docs := r.docs[ownerID]
	for i, e := range docs {
		if e.Key() == remoteID {
			r.docs[ownerID] = append(docs[:i:i], docs[i+1:]...)
			return nil
		}
	}
	return ErrMissing
}

func (r *Remote[E, F]) FetchAll(_ context.Context, ownerID string) ([]E, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	return append([]E(nil), r.docs[ownerID]...), nil
}
