// Package apptest wires note and task services over in-memory remote stores
// and a temporary SQLite cache.
package apptest

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"notesync/internal/db"
	"notesync/internal/logging"
	"notesync/internal/notes"
	"notesync/internal/reminder"
	"notesync/internal/session"
	"notesync/internal/syncvm"
	"notesync/internal/syncvm/syncvmtest"
	"notesync/internal/tasks"
)

type (
	NoteRemote = syncvmtest.Remote[notes.Note, notes.Fields]
	TaskRemote = syncvmtest.Remote[tasks.Task, tasks.Fields]
)

type Services struct {
	Notes      *notes.Service
	Tasks      *tasks.Service
	NoteRemote *NoteRemote
	TaskRemote *TaskRemote
	Reminders  *reminder.Scheduler
}

// Session returns a signed-in session for userID.
func Session(userID string) *session.Session {
	return &session.Session{UserID: userID, Email: userID + "@example.com", DisplayName: userID + "@example.com"}
}

// NewServices builds both services sharing one temporary cache.
func NewServices(t *testing.T) *Services {
	t.Helper()

	conn, err := db.OpenLocal(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	log := logging.Discard()
	noteRemote := NewNoteRemote()
	taskRemote := NewTaskRemote()
	reminders := reminder.NewScheduler(reminder.LogNotifier{Log: log}, log)
	t.Cleanup(reminders.Stop)

	return &Services{
		Notes:      notes.NewService(noteRemote, notes.NewLocalRepo(conn), log),
		Tasks:      tasks.NewService(tasks.NewViewModel(taskRemote, tasks.NewLocalRepo(conn), reminders, log)),
		NoteRemote: noteRemote,
		TaskRemote: taskRemote,
		Reminders:  reminders,
	}
}

func NewNoteRemote() *NoteRemote {
	return syncvmtest.NewRemote(
		func(owner, id string, f notes.Fields) notes.Note {
			category, err := notes.ParseCategory(string(f.Category))
			if err != nil {
				category = notes.CategoryWork
			}
			return notes.Note{
				RemoteID:  id,
				Title:     f.Title,
				Details:   f.Details,
				Category:  category,
				OwnerID:   owner,
				CreatedAt: time.Now().UTC(),
			}
		},
		func(n notes.Note, p syncvm.Patch) notes.Note {
			if v, ok := p["title"].(string); ok {
				n.Title = v
			}
			if v, ok := p["details"].(string); ok {
				n.Details = v
			}
			if v, ok := p["category"].(string); ok {
				n.Category = notes.Category(v)
			}
			return n
		},
	)
}

func NewTaskRemote() *TaskRemote {
	return syncvmtest.NewRemote(
		func(owner, id string, f tasks.Fields) tasks.Task {
			return tasks.Task{
				RemoteID:     id,
				Title:        f.Title,
				ReminderDate: f.ReminderDate,
				OwnerID:      owner,
				CreatedAt:    time.Now().UTC(),
			}
		},
		func(t tasks.Task, p syncvm.Patch) tasks.Task {
			if v, ok := p["title"].(string); ok {
				t.Title = v
			}
			if v, ok := p["isCompleted"].(bool); ok {
				t.IsCompleted = v
			}
			if v, ok := p["reminderDate"]; ok {
				if at, ok := v.(time.Time); ok {
					t.ReminderDate = &at
				} else {
					t.ReminderDate = nil
				}
			}
			return t
		},
	)
}
