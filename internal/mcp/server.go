package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"notesync/internal/notes"
	"notesync/internal/reminder"
	"notesync/internal/session"
	"notesync/internal/tasks"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Authenticator resolves a bearer token into a session.
type Authenticator interface {
	Authenticate(token string) (*session.Session, error)
}

// NewServer creates an MCP server with tools over the signed-in user's notes and tasks
func NewServer(noteSvc *notes.Service, taskSvc *tasks.Service) *server.MCPServer {
	s := server.NewMCPServer(
		"notesync",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	// Tool: list_notes - Cached notes, optionally by category
	s.AddTool(
		mcp.NewTool("list_notes",
			mcp.WithDescription("List the signed-in user's notes from the local cache, newest first."),
			mcp.WithString("category",
				mcp.Description("Optional: Work, Study or Personal"),
			),
		),
		handleListNotes(noteSvc),
	)

	s.AddTool(
		mcp.NewTool("add_note",
			mcp.WithDescription("Create a note in the remote store and refresh the cache."),
			mcp.WithString("title",
				mcp.Required(),
				mcp.Description("Note title"),
			),
			mcp.WithString("details",
				mcp.Description("Optional: Markdown body"),
			),
			mcp.WithString("category",
				mcp.Description("Optional: Work (default), Study or Personal"),
			),
		),
		handleAddNote(noteSvc),
	)

	s.AddTool(
		mcp.NewTool("delete_note",
			mcp.WithDescription("Delete a note by its remote id."),
			mcp.WithString("id",
				mcp.Required(),
				mcp.Description("The note's remote id"),
			),
		),
		handleDeleteNote(noteSvc),
	)

	// Tool: list_tasks - Cached tasks
	s.AddTool(
		mcp.NewTool("list_tasks",
			mcp.WithDescription("List the signed-in user's tasks from the local cache."),
			mcp.WithBoolean("pending",
				mcp.Description("Only return tasks that are not completed (default: false)"),
			),
		),
		handleListTasks(taskSvc),
	)

	s.AddTool(
		mcp.NewTool("add_task",
			mcp.WithDescription("Create an open task, optionally with a reminder."),
			mcp.WithString("title",
				mcp.Required(),
				mcp.Description("Task title"),
			),
			mcp.WithString("remind_at",
				mcp.Description("Optional: reminder time (RFC3339, YYYY-MM-DD or English such as 'tomorrow at 9am')"),
			),
		),
		handleAddTask(taskSvc),
	)

	s.AddTool(
		mcp.NewTool("toggle_task",
			mcp.WithDescription("Flip a task between open and completed."),
			mcp.WithString("id",
				mcp.Required(),
				mcp.Description("The task's remote id"),
			),
		),
		handleToggleTask(taskSvc),
	)

	s.AddTool(
		mcp.NewTool("refresh",
			mcp.WithDescription("Reload notes and tasks from the remote store into the local cache."),
		),
		handleRefresh(noteSvc, taskSvc),
	)

	return s
}

// HTTPContext puts the session carried by the request's bearer token on ctx.
func HTTPContext(auth Authenticator, tokenFrom func(*http.Request) string) server.HTTPContextFunc {
	return func(ctx context.Context, r *http.Request) context.Context {
		token := tokenFrom(r)
		if token == "" {
			return ctx
		}
		sess, err := auth.Authenticate(token)
		if err != nil {
			return ctx
		}
		return session.WithSession(ctx, sess)
	}
}

// NoteResult represents a note in tool responses
type NoteResult struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Details   string    `json:"details,omitempty"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"createdAt"`
}

// TaskResult represents a task in tool responses
type TaskResult struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	IsCompleted  bool       `json:"isCompleted"`
	ReminderDate *time.Time `json:"reminderDate,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

func notSignedIn() *mcp.CallToolResult {
	return mcp.NewToolResultError("not signed in")
}

func handleListNotes(svc *notes.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sess, ok := session.FromContext(ctx)
		if !ok {
			return notSignedIn(), nil
		}

		var category notes.Category
		if c := req.GetString("category", ""); c != "" {
			parsed, err := notes.ParseCategory(c)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			category = parsed
		}

		noteList, err := svc.List(ctx, sess, category)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to list notes: %v", err)), nil
		}
		return jsonResult(notesToResults(noteList)), nil
	}
}

func handleAddNote(svc *notes.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sess, ok := session.FromContext(ctx)
		if !ok {
			return notSignedIn(), nil
		}
		title, err := req.RequireString("title")
		if err != nil {
			return mcp.NewToolResultError("title is required"), nil
		}

		note, err := svc.Create(ctx, sess, notes.NoteInput{
			Title:    title,
			Details:  req.GetString("details", ""),
			Category: req.GetString("category", ""),
		})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to add note: %v", err)), nil
		}
		return jsonResult(notesToResults([]notes.Note{*note})[0]), nil
	}
}

func handleDeleteNote(svc *notes.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sess, ok := session.FromContext(ctx)
		if !ok {
			return notSignedIn(), nil
		}
		id, err := req.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError("id is required"), nil
		}

		if err := svc.Delete(ctx, sess, id); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to delete note: %v", err)), nil
		}
		return mcp.NewToolResultText("deleted " + id), nil
	}
}

func handleListTasks(svc *tasks.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sess, ok := session.FromContext(ctx)
		if !ok {
			return notSignedIn(), nil
		}

		taskList, err := svc.List(ctx, sess, req.GetBool("pending", false))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to list tasks: %v", err)), nil
		}
		return jsonResult(tasksToResults(taskList)), nil
	}
}

func handleAddTask(svc *tasks.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sess, ok := session.FromContext(ctx)
		if !ok {
			return notSignedIn(), nil
		}
		title, err := req.RequireString("title")
		if err != nil {
			return mcp.NewToolResultError("title is required"), nil
		}

		input := tasks.TaskInput{Title: title}
		if at := req.GetString("remind_at", ""); at != "" {
			t, err := parseDate(at)
			if err != nil {
				t, err = reminder.ParseWhen(at, time.Now())
			}
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("invalid 'remind_at' date format: %v", err)), nil
			}
			input.ReminderDate = &t
		}

		task, err := svc.Create(ctx, sess, input)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to add task: %v", err)), nil
		}
		return jsonResult(tasksToResults([]tasks.Task{*task})[0]), nil
	}
}

func handleToggleTask(svc *tasks.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sess, ok := session.FromContext(ctx)
		if !ok {
			return notSignedIn(), nil
		}
		id, err := req.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError("id is required"), nil
		}

		task, err := svc.Toggle(ctx, sess, id)
		if errors.Is(err, tasks.ErrTaskNotFound) {
			return mcp.NewToolResultError("task not found: " + id), nil
		}
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to toggle task: %v", err)), nil
		}
		return jsonResult(tasksToResults([]tasks.Task{*task})[0]), nil
	}
}

func handleRefresh(noteSvc *notes.Service, taskSvc *tasks.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sess, ok := session.FromContext(ctx)
		if !ok {
			return notSignedIn(), nil
		}

		noteList, err := noteSvc.Refresh(ctx, sess)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to refresh notes: %v", err)), nil
		}
		taskList, err := taskSvc.Refresh(ctx, sess)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to refresh tasks: %v", err)), nil
		}
		return jsonResult(map[string]int{"notes": len(noteList), "tasks": len(taskList)}), nil
	}
}

// Helper functions

func jsonResult(v any) *mcp.CallToolResult {
	data, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(data))
}

func notesToResults(noteList []notes.Note) []NoteResult {
	results := make([]NoteResult, len(noteList))
	for i, note := range noteList {
		results[i] = NoteResult{
			ID:        note.RemoteID,
			Title:     note.Title,
			Details:   note.Details,
			Category:  string(note.Category),
			CreatedAt: note.CreatedAt,
		}
	}
	return results
}

func tasksToResults(taskList []tasks.Task) []TaskResult {
	results := make([]TaskResult, len(taskList))
	for i, task := range taskList {
		results[i] = TaskResult{
			ID:           task.RemoteID,
			Title:        task.Title,
			IsCompleted:  task.IsCompleted,
			ReminderDate: task.ReminderDate,
			CreatedAt:    task.CreatedAt,
		}
	}
	return results
}

func parseDate(s string) (time.Time, error) {
	// Try RFC3339 first
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}

	// Try YYYY-MM-DD
	t, err = time.Parse("2006-01-02", s)
	if err == nil {
		return t, nil
	}

	return time.Time{}, fmt.Errorf("expected YYYY-MM-DD or RFC3339 format")
}
