package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notesync/internal/app/apptest"
	"notesync/internal/notes"
	"notesync/internal/session"
)

func call(t *testing.T, h server.ToolHandlerFunc, ctx context.Context, args map[string]any) (string, bool) {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	res, err := h(ctx, req)
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)

	switch c := res.Content[0].(type) {
	case mcp.TextContent:
		return c.Text, res.IsError
	case *mcp.TextContent:
		return c.Text, res.IsError
	}
	t.Fatalf("unexpected content %T", res.Content[0])
	return "", false
}

func signedIn(userID string) context.Context {
	return session.WithSession(context.Background(), apptest.Session(userID))
}

func TestToolsRequireSession(t *testing.T) {
	svc := apptest.NewServices(t)

	text, isErr := call(t, handleListNotes(svc.Notes), context.Background(), nil)
	assert.True(t, isErr)
	assert.Equal(t, "not signed in", text)

	_, isErr = call(t, handleAddTask(svc.Tasks), context.Background(), map[string]any{"title": "x"})
	assert.True(t, isErr)
	assert.Zero(t, svc.TaskRemote.Writes())
}

func TestNoteTools(t *testing.T) {
	svc := apptest.NewServices(t)
	ctx := signedIn("u1")

	text, isErr := call(t, handleAddNote(svc.Notes), ctx, map[string]any{"title": "Plan", "details": "**soon**", "category": "study"})
	require.False(t, isErr, text)
	var added NoteResult
	require.NoError(t, json.Unmarshal([]byte(text), &added))
	assert.Equal(t, "Study", added.Category)
	assert.NotEmpty(t, added.ID)

	text, _ = call(t, handleListNotes(svc.Notes), ctx, map[string]any{"category": "Study"})
	var listed []NoteResult
	require.NoError(t, json.Unmarshal([]byte(text), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "Plan", listed[0].Title)

	_, isErr = call(t, handleListNotes(svc.Notes), ctx, map[string]any{"category": "Hobby"})
	assert.True(t, isErr)

	_, isErr = call(t, handleDeleteNote(svc.Notes), ctx, map[string]any{"id": added.ID})
	require.False(t, isErr)
	text, _ = call(t, handleListNotes(svc.Notes), ctx, nil)
	assert.Equal(t, "[]", text)
}

func TestTaskTools(t *testing.T) {
	svc := apptest.NewServices(t)
	ctx := signedIn("u1")

	text, isErr := call(t, handleAddTask(svc.Tasks), ctx, map[string]any{"title": "Groceries", "remind_at": "2099-01-02"})
	require.False(t, isErr, text)
	var added TaskResult
	require.NoError(t, json.Unmarshal([]byte(text), &added))
	require.NotNil(t, added.ReminderDate)
	assert.Contains(t, svc.Reminders.Pending(), added.ID)

	text, _ = call(t, handleToggleTask(svc.Tasks), ctx, map[string]any{"id": added.ID})
	var toggled TaskResult
	require.NoError(t, json.Unmarshal([]byte(text), &toggled))
	assert.True(t, toggled.IsCompleted)
	assert.NotContains(t, svc.Reminders.Pending(), added.ID)

	text, _ = call(t, handleListTasks(svc.Tasks), ctx, map[string]any{"pending": true})
	assert.Equal(t, "[]", text)

	text, isErr = call(t, handleToggleTask(svc.Tasks), ctx, map[string]any{"id": "missing"})
	assert.True(t, isErr)
	assert.Contains(t, text, "task not found")

	_, isErr = call(t, handleAddTask(svc.Tasks), ctx, map[string]any{"title": "x", "remind_at": "xyzzy"})
	assert.True(t, isErr)

	text, isErr = call(t, handleAddTask(svc.Tasks), ctx, map[string]any{"title": "Call mom", "remind_at": "in 3 hours"})
	require.False(t, isErr, text)
	var relative TaskResult
	require.NoError(t, json.Unmarshal([]byte(text), &relative))
	assert.Contains(t, svc.Reminders.Pending(), relative.ID)
}

func TestRefreshTool(t *testing.T) {
	svc := apptest.NewServices(t)
	ctx := signedIn("u1")
	sess := apptest.Session("u1")

	_, err := svc.Notes.Create(context.Background(), sess, notesInput("a"))
	require.NoError(t, err)
	_, err = svc.Notes.Create(context.Background(), sess, notesInput("b"))
	require.NoError(t, err)

	text, isErr := call(t, handleRefresh(svc.Notes, svc.Tasks), ctx, nil)
	require.False(t, isErr)
	assert.JSONEq(t, `{"notes":2,"tasks":0}`, text)

	svc.NoteRemote.Fail(errors.New("offline"))
	_, isErr = call(t, handleRefresh(svc.Notes, svc.Tasks), ctx, nil)
	assert.True(t, isErr)
}

type stubAuth map[string]string

func (s stubAuth) Authenticate(token string) (*session.Session, error) {
	if uid, ok := s[token]; ok {
		return apptest.Session(uid), nil
	}
	return nil, errors.New("bad token")
}

func TestHTTPContext(t *testing.T) {
	fn := HTTPContext(stubAuth{"good": "u1"}, func(r *http.Request) string { return r.Header.Get("X-Token") })

	r := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	r.Header.Set("X-Token", "good")
	sess, ok := session.FromContext(fn(context.Background(), r))
	require.True(t, ok)
	assert.Equal(t, "u1", sess.UserID)

	r.Header.Set("X-Token", "bad")
	_, ok = session.FromContext(fn(context.Background(), r))
	assert.False(t, ok)
}

func notesInput(title string) notes.NoteInput {
	return notes.NoteInput{Title: title}
}
