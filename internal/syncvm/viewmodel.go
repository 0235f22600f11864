// Package syncvm mediates between the remote document store, which is the
// source of truth, and the local cache the view layer reads from.
//
// Mutations are written to the remote store only. After every successful
// write the view model fetches the owner's full remote snapshot and replaces
// the local cache with it, so local rows are only ever created by Refresh.
package syncvm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"notesync/internal/session"
)

var (
	ErrMissingRemoteID = errors.New("entity has no remote id")
	ErrNotFound        = errors.New("entity not found")
)

// Entity is a cached record identified by its remote document key.
type Entity interface {
	Key() string
}

// Fields is the user-editable part of an entity.
type Fields interface {
	Validate() error
	Patch() Patch
}

// Patch maps remote document field names to new values.
type Patch map[string]any

// Policy selects how Refresh reconciles the local cache with a snapshot.
type Policy int

const (
	// PolicyMerge upserts the snapshot by remote id and removes the owner's
	// rows missing from it. Other owners' rows are left alone.
	PolicyMerge Policy = iota
	// PolicyWipe deletes every local row of the kind, regardless of owner,
	// before inserting the snapshot.
	PolicyWipe
)

// ParsePolicy maps a config value to a Policy. Empty means merge.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "merge":
		return PolicyMerge, nil
	case "wipe":
		return PolicyWipe, nil
	}
	return PolicyMerge, fmt.Errorf("unknown refresh policy %q", s)
}

func (p Policy) String() string {
	if p == PolicyWipe {
		return "wipe"
	}
	return "merge"
}

// RemoteStore is the authoritative per-user document collection of one kind.
type RemoteStore[E Entity, F Fields] interface {
	Insert(ctx context.Context, ownerID, remoteID string, fields F) error
	Patch(ctx context.Context, ownerID, remoteID string, patch Patch) error
	Delete(ctx context.Context, ownerID, remoteID string) error
	FetchAll(ctx context.Context, ownerID string) ([]E, error)
}

// LocalStore is the on-device cache of one kind.
type LocalStore[E Entity] interface {
	// Replace persists batch as the owner's cached set in one transaction
	// and returns the stored rows with their local ids.
	Replace(ctx context.Context, ownerID string, batch []E, policy Policy) ([]E, error)
	List(ctx context.Context, ownerID string) ([]E, error)
	Purge(ctx context.Context, ownerID string) error
}

// Snapshot is published to subscribers after every applied refresh.
type Snapshot[E Entity] struct {
	OwnerID string
	Items   []E
}

type Option func(*options)

type options struct {
	policy Policy
	newID  func() string
}

// WithPolicy sets the refresh policy. The default is PolicyMerge.
func WithPolicy(p Policy) Option {
	return func(o *options) { o.policy = p }
}

// WithIDGenerator overrides how remote ids are generated for new entities.
func WithIDGenerator(fn func() string) Option {
	return func(o *options) { o.newID = fn }
}

// ViewModel keeps the local cache of one entity kind in step with the remote store.
type ViewModel[E Entity, F Fields] struct {
	kind   string
	remote RemoteStore[E, F]
	local  LocalStore[E]
	log    *slog.Logger
	opts   options

	mu      sync.Mutex
	tickets map[string]uint64
	applied map[string]uint64
	items   map[string][]E
	subs    map[int]chan Snapshot[E]
	nextSub int

	// applyMu serialises local replaces so tickets are compared and applied together.
	applyMu sync.Mutex
}

func New[E Entity, F Fields](kind string, remote RemoteStore[E, F], local LocalStore[E], log *slog.Logger, opts ...Option) *ViewModel[E, F] {
	o := options{policy: PolicyMerge, newID: uuid.NewString}
	for _, opt := range opts {
		opt(&o)
	}
	return &ViewModel[E, F]{
		kind:    kind,
		remote:  remote,
		local:   local,
		log:     log.With("kind", kind),
		opts:    o,
		tickets: make(map[string]uint64),
		applied: make(map[string]uint64),
		items:   make(map[string][]E),
		subs:    make(map[int]chan Snapshot[E]),
	}
}

// Add writes a new entity under a freshly generated remote id and refreshes
// the cache. It returns the new remote id.
func (vm *ViewModel[E, F]) Add(ctx context.Context, sess *session.Session, fields F) (string, error) {
	owner, err := vm.owner(sess, "add")
	if err != nil {
		return "", err
	}
	if err := fields.Validate(); err != nil {
		return "", err
	}

	remoteID := vm.opts.newID()
	if err := vm.remote.Insert(ctx, owner, remoteID, fields); err != nil {
		vm.log.Error("failed to add entity", "owner", owner, "error", err)
		return "", fmt.Errorf("add %s: %w", vm.kind, err)
	}
	vm.refreshAfter(ctx, sess, "add")
	return remoteID, nil
}

// Update writes fields as a partial update of e's remote document.
func (vm *ViewModel[E, F]) Update(ctx context.Context, sess *session.Session, e E, fields F) error {
	if _, err := vm.owner(sess, "update"); err != nil {
		return err
	}
	if err := fields.Validate(); err != nil {
		return err
	}
	return vm.Apply(ctx, sess, e, fields.Patch())
}

// Apply writes patch to e's remote document and refreshes the cache.
// An entity without a remote id is skipped without touching either store.
func (vm *ViewModel[E, F]) Apply(ctx context.Context, sess *session.Session, e E, patch Patch) error {
	owner, err := vm.owner(sess, "update")
	if err != nil {
		return err
	}
	if e.Key() == "" {
		vm.log.Warn("skipping update of entity without remote id", "owner", owner)
		return ErrMissingRemoteID
	}

	if err := vm.remote.Patch(ctx, owner, e.Key(), patch); err != nil {
		vm.log.Error("failed to update entity", "owner", owner, "remote_id", e.Key(), "error", err)
		return fmt.Errorf("update %s %s: %w", vm.kind, e.Key(), err)
	}
	vm.refreshAfter(ctx, sess, "update")
	return nil
}

// Delete removes e's remote document and refreshes the cache.
func (vm *ViewModel[E, F]) Delete(ctx context.Context, sess *session.Session, e E) error {
	owner, err := vm.owner(sess, "delete")
	if err != nil {
		return err
	}
	if e.Key() == "" {
		vm.log.Warn("skipping delete of entity without remote id", "owner", owner)
		return ErrMissingRemoteID
	}

	if err := vm.remote.Delete(ctx, owner, e.Key()); err != nil {
		vm.log.Error("failed to delete entity", "owner", owner, "remote_id", e.Key(), "error", err)
		return fmt.Errorf("delete %s %s: %w", vm.kind, e.Key(), err)
	}
	vm.refreshAfter(ctx, sess, "delete")
	return nil
}

// Refresh replaces the owner's local cache with the current remote snapshot.
//
// Each call takes a ticket before fetching. A snapshot whose ticket is older
// than the last applied one is discarded, so concurrent refreshes settle on
// the most recently fetched state.
func (vm *ViewModel[E, F]) Refresh(ctx context.Context, sess *session.Session) ([]E, error) {
	owner, err := vm.owner(sess, "refresh")
	if err != nil {
		return nil, err
	}

	vm.mu.Lock()
	vm.tickets[owner]++
	ticket := vm.tickets[owner]
	vm.mu.Unlock()

	batch, err := vm.remote.FetchAll(ctx, owner)
	if err != nil {
		vm.log.Error("failed to fetch remote snapshot", "owner", owner, "error", err)
		return nil, fmt.Errorf("fetch %s: %w", vm.kind, err)
	}

	vm.applyMu.Lock()
	defer vm.applyMu.Unlock()

	vm.mu.Lock()
	stale := ticket < vm.applied[owner]
	vm.mu.Unlock()
	if stale {
		vm.log.Debug("discarding stale snapshot", "owner", owner, "ticket", ticket)
		return vm.Items(owner), nil
	}

	stored, err := vm.local.Replace(ctx, owner, batch, vm.opts.policy)
	if err != nil {
		vm.log.Error("failed to replace local cache", "owner", owner, "error", err)
		return nil, fmt.Errorf("replace local %s: %w", vm.kind, err)
	}

	vm.mu.Lock()
	vm.applied[owner] = ticket
	if vm.opts.policy == PolicyWipe {
		// Other owners' rows are gone from the local store too.
		vm.items = make(map[string][]E)
	}
	vm.items[owner] = stored
	vm.publishLocked(Snapshot[E]{OwnerID: owner, Items: clone(stored)})
	vm.mu.Unlock()

	vm.log.Debug("refreshed local cache", "owner", owner, "count", len(stored))
	return clone(stored), nil
}

// Load fills the observable list from the local cache without contacting
// the remote store.
func (vm *ViewModel[E, F]) Load(ctx context.Context, sess *session.Session) ([]E, error) {
	owner, err := vm.owner(sess, "load")
	if err != nil {
		return nil, err
	}
	stored, err := vm.local.List(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list local %s: %w", vm.kind, err)
	}

	vm.mu.Lock()
	if _, ok := vm.items[owner]; !ok {
		vm.items[owner] = stored
	}
	vm.mu.Unlock()
	return clone(stored), nil
}

// Find returns the cached entity with the given remote id.
func (vm *ViewModel[E, F]) Find(ctx context.Context, sess *session.Session, remoteID string) (E, error) {
	var zero E
	owner, err := vm.owner(sess, "find")
	if err != nil {
		return zero, err
	}

	items := vm.Items(owner)
	if items == nil {
		if items, err = vm.Load(ctx, sess); err != nil {
			return zero, err
		}
	}
	for _, e := range items {
		if e.Key() == remoteID {
			return e, nil
		}
	}
	return zero, ErrNotFound
}

// Items returns a copy of the observable list for owner.
func (vm *ViewModel[E, F]) Items(owner string) []E {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return clone(vm.items[owner])
}

// Purge drops the owner's cached rows and observable list.
func (vm *ViewModel[E, F]) Purge(ctx context.Context, owner string) error {
	vm.applyMu.Lock()
	defer vm.applyMu.Unlock()

	if err := vm.local.Purge(ctx, owner); err != nil {
		return fmt.Errorf("purge local %s: %w", vm.kind, err)
	}
	vm.mu.Lock()
	delete(vm.items, owner)
	vm.publishLocked(Snapshot[E]{OwnerID: owner})
	vm.mu.Unlock()
	return nil
}

// Subscribe returns a channel receiving every applied snapshot. A subscriber
// that falls behind misses intermediate snapshots.
func (vm *ViewModel[E, F]) Subscribe() (<-chan Snapshot[E], func()) {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	id := vm.nextSub
	vm.nextSub++
	ch := make(chan Snapshot[E], 1)
	vm.subs[id] = ch

	return ch, func() {
		vm.mu.Lock()
		defer vm.mu.Unlock()
		if c, ok := vm.subs[id]; ok {
			delete(vm.subs, id)
			close(c)
		}
	}
}

func (vm *ViewModel[E, F]) publishLocked(s Snapshot[E]) {
	for _, ch := range vm.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- s:
		default:
		}
	}
}

func (vm *ViewModel[E, F]) refreshAfter(ctx context.Context, sess *session.Session, op string) {
	if _, err := vm.Refresh(ctx, sess); err != nil {
		vm.log.Warn("refresh after mutation failed", "op", op, "error", err)
	}
}

func (vm *ViewModel[E, F]) owner(sess *session.Session, op string) (string, error) {
	owner, err := sess.OwnerID()
	if err != nil {
		vm.log.Warn("skipping operation without session", "op", op)
		return "", err
	}
	return owner, nil
}

func clone[E any](in []E) []E {
	if in == nil {
		return nil
	}
	out := make([]E, len(in))
	copy(out, in)
	return out
}
