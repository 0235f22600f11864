package tasks

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notesync/internal/reminder"
	"notesync/internal/session"
	"notesync/internal/syncvm"
)

type fakeRemote struct {
	mu     sync.Mutex
	docs   map[string]map[string]document
	writes int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{docs: make(map[string]map[string]document)}
}

func (r *fakeRemote) Insert(_ context.Context, owner, id string, f Fields) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes++
	if r.docs[owner] == nil {
		r.docs[owner] = make(map[string]document)
	}
	now := time.Now().UTC()
	title, done := f.Title, false
	r.docs[owner][id] = document{ID: id, TaskID: &id, Title: &title, IsCompleted: &done, ReminderDate: f.ReminderDate, CreatedAt: &now, UserID: owner}
	return nil
}

func (r *fakeRemote) Patch(_ context.Context, owner, id string, p syncvm.Patch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes++
	doc, ok := r.docs[owner][id]
	if !ok {
		return ErrTaskNotFound
	}
	for k, v := range p {
		switch k {
		case "title":
			s := v.(string)
			doc.Title = &s
		case "isCompleted":
			b := v.(bool)
			doc.IsCompleted = &b
		case "reminderDate":
			if v == nil {
				doc.ReminderDate = nil
			} else {
				at := v.(time.Time)
				doc.ReminderDate = &at
			}
		}
	}
	r.docs[owner][id] = doc
	return nil
}

func (r *fakeRemote) Delete(_ context.Context, owner, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes++
	if _, ok := r.docs[owner][id]; !ok {
		return ErrTaskNotFound
	}
	delete(r.docs[owner], id)
	return nil
}

func (r *fakeRemote) FetchAll(_ context.Context, owner string) ([]Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Task
	for _, d := range r.docs[owner] {
		out = append(out, d.toTask())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RemoteID < out[j].RemoteID })
	return out, nil
}

type fakeReminders struct {
	mu      sync.Mutex
	pending map[string]reminder.Reminder
}

func (f *fakeReminders) Schedule(r reminder.Reminder) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pending == nil {
		f.pending = make(map[string]reminder.Reminder)
	}
	f.pending[r.Key] = r
	return true
}

func (f *fakeReminders) Cancel(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.pending[key]
	delete(f.pending, key)
	return ok
}

func (f *fakeReminders) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.pending[key]
	return ok
}

var testSession = &session.Session{UserID: "U", Email: "u@example.com"}

func newTestService(t *testing.T) (*Service, *fakeRemote, *fakeReminders) {
	t.Helper()
	remote := newFakeRemote()
	rem := &fakeReminders{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	vm := NewViewModel(remote, NewLocalRepo(openTestDB(t)), rem, logger)
	return NewService(vm), remote, rem
}

func TestGroceriesScenario(t *testing.T) {
	svc, remote, _ := newTestService(t)
	ctx := context.Background()

	task, err := svc.Create(ctx, testSession, TaskInput{Title: "Groceries"})
	require.NoError(t, err)

	doc := remote.docs["U"][task.RemoteID]
	assert.Equal(t, "Groceries", *doc.Title)
	assert.False(t, *doc.IsCompleted)
	assert.Equal(t, "U", doc.UserID)

	list, err := svc.List(ctx, testSession, false)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Groceries", list[0].Title)
	assert.False(t, list[0].IsCompleted)
}

func TestToggleTwiceRestoresCompletion(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	task, err := svc.Create(ctx, testSession, TaskInput{Title: "Run"})
	require.NoError(t, err)

	once, err := svc.Toggle(ctx, testSession, task.RemoteID)
	require.NoError(t, err)
	assert.True(t, once.IsCompleted)

	pending, err := svc.List(ctx, testSession, true)
	require.NoError(t, err)
	assert.Empty(t, pending)

	twice, err := svc.Toggle(ctx, testSession, task.RemoteID)
	require.NoError(t, err)
	assert.False(t, twice.IsCompleted)
}

func TestReminderLifecycle(t *testing.T) {
	svc, _, rem := newTestService(t)
	ctx := context.Background()
	at := time.Now().Add(24 * time.Hour).UTC()

	task, err := svc.Create(ctx, testSession, TaskInput{Title: "Call", ReminderDate: &at})
	require.NoError(t, err)
	assert.True(t, rem.has(task.RemoteID))

	_, err = svc.Toggle(ctx, testSession, task.RemoteID)
	require.NoError(t, err)
	assert.False(t, rem.has(task.RemoteID), "completed tasks have no reminder")

	_, err = svc.Toggle(ctx, testSession, task.RemoteID)
	require.NoError(t, err)
	assert.True(t, rem.has(task.RemoteID))

	require.NoError(t, svc.Delete(ctx, testSession, task.RemoteID))
	assert.False(t, rem.has(task.RemoteID))

	_, err = svc.Get(ctx, testSession, task.RemoteID)
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestUpdateClearsReminder(t *testing.T) {
	svc, _, rem := newTestService(t)
	ctx := context.Background()
	at := time.Now().Add(time.Hour).UTC()

	task, err := svc.Create(ctx, testSession, TaskInput{Title: "Call", ReminderDate: &at})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, testSession, task.RemoteID, TaskInput{Title: "Call mom"})
	require.NoError(t, err)
	assert.Equal(t, "Call mom", updated.Title)
	assert.Nil(t, updated.ReminderDate)
	assert.False(t, rem.has(task.RemoteID))
}

func TestRefreshArmsRemindersFromSnapshot(t *testing.T) {
	svc, remote, rem := newTestService(t)
	ctx := context.Background()
	at := time.Now().Add(time.Hour).UTC()

	// Written by another device; this process has never seen it.
	require.NoError(t, remote.Insert(ctx, "U", "remote-1", Fields{Title: "Pay rent", ReminderDate: &at}))

	_, err := svc.Refresh(ctx, testSession)
	require.NoError(t, err)
	assert.True(t, rem.has("remote-1"))
}

func TestRefreshCancelsRemindersOfRemovedTasks(t *testing.T) {
	svc, remote, rem := newTestService(t)
	ctx := context.Background()
	at := time.Now().Add(time.Hour).UTC()

	task, err := svc.Create(ctx, testSession, TaskInput{Title: "Pay rent", ReminderDate: &at})
	require.NoError(t, err)
	require.True(t, rem.has(task.RemoteID))

	// Deleted on another device.
	require.NoError(t, remote.Delete(ctx, "U", task.RemoteID))

	tasks, err := svc.Refresh(ctx, testSession)
	require.NoError(t, err)
	assert.Empty(t, tasks)
	assert.False(t, rem.has(task.RemoteID), "reminder for a task missing from the snapshot is still pending")
}

func TestPatchKeepsOmittedFields(t *testing.T) {
	svc, remote, rem := newTestService(t)
	ctx := context.Background()
	at := time.Now().Add(time.Hour).UTC().Truncate(time.Millisecond)

	task, err := svc.Create(ctx, testSession, TaskInput{Title: "Call", ReminderDate: &at})
	require.NoError(t, err)

	title := "Call mom"
	patched, err := svc.Patch(ctx, testSession, task.RemoteID, TaskPatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Call mom", patched.Title)
	require.NotNil(t, patched.ReminderDate)
	assert.True(t, at.Equal(*patched.ReminderDate))
	assert.Equal(t, "Call mom", rem.pending[task.RemoteID].Body)

	later := at.Add(time.Hour)
	patched, err = svc.Patch(ctx, testSession, task.RemoteID, TaskPatch{ReminderDate: At(later)})
	require.NoError(t, err)
	assert.Equal(t, "Call mom", patched.Title)
	assert.True(t, later.Equal(rem.pending[task.RemoteID].At))

	patched, err = svc.Patch(ctx, testSession, task.RemoteID, TaskPatch{ReminderDate: Clear()})
	require.NoError(t, err)
	assert.Nil(t, patched.ReminderDate)
	assert.False(t, rem.has(task.RemoteID))

	writes := remote.writes
	empty := " "
	_, err = svc.Patch(ctx, testSession, task.RemoteID, TaskPatch{Title: &empty})
	assert.ErrorIs(t, err, ErrTitleRequired)
	assert.Equal(t, writes, remote.writes)
}

func TestTaskPatchDecoding(t *testing.T) {
	var absent, cleared, set TaskPatch
	require.NoError(t, json.Unmarshal([]byte(`{"title":"x"}`), &absent))
	require.NoError(t, json.Unmarshal([]byte(`{"reminderDate":null}`), &cleared))
	require.NoError(t, json.Unmarshal([]byte(`{"reminderDate":"2024-12-15T09:00:00Z"}`), &set))

	assert.False(t, absent.ReminderDate.Set)
	assert.True(t, cleared.ReminderDate.Set)
	assert.Nil(t, cleared.ReminderDate.Time)
	assert.Nil(t, cleared.Title)
	require.NotNil(t, set.ReminderDate.Time)
	assert.Equal(t, 15, set.ReminderDate.Time.Day())

	p, err := cleared.Patch()
	require.NoError(t, err)
	assert.Equal(t, syncvm.Patch{"reminderDate": nil}, p)
}

func TestUpdateWithoutRemoteIDMakesNoWrites(t *testing.T) {
	svc, remote, _ := newTestService(t)

	err := svc.ViewModel().Update(context.Background(), testSession, Task{Title: "x"}, Fields{Title: "y"})
	assert.ErrorIs(t, err, syncvm.ErrMissingRemoteID)
	assert.Zero(t, remote.writes)
}

func TestCreateRequiresTitle(t *testing.T) {
	svc, remote, _ := newTestService(t)

	_, err := svc.Create(context.Background(), testSession, TaskInput{})
	assert.ErrorIs(t, err, ErrTitleRequired)
	assert.Zero(t, remote.writes)
}

func TestPurgeCancelsReminders(t *testing.T) {
	svc, _, rem := newTestService(t)
	ctx := context.Background()
	at := time.Now().Add(48 * time.Hour)

	task, err := svc.Create(ctx, testSession, TaskInput{Title: "Dentist", ReminderDate: &at})
	require.NoError(t, err)
	require.True(t, rem.has(task.RemoteID))

	require.NoError(t, svc.Purge(ctx, "U"))
	assert.False(t, rem.has(task.RemoteID))

	list, err := svc.List(ctx, testSession, false)
	require.NoError(t, err)
	assert.Empty(t, list)
}
