// Package web serves the read-only HTML view of the local cache.
package web

import (
	"log/slog"
	"net/http"

	"notesync/internal/notes"
	"notesync/internal/session"
	"notesync/internal/tasks"
	"notesync/views/models"
	"notesync/views/pages"
)

type Handler struct {
	notes *notes.Service
	tasks *tasks.Service
	log   *slog.Logger
}

func NewHandler(notesSvc *notes.Service, tasksSvc *tasks.Service, log *slog.Logger) *Handler {
	return &Handler{notes: notesSvc, tasks: tasksSvc, log: log}
}

// Register mounts the pages on mux. wrap should resolve the session
// without requiring one.
func (h *Handler) Register(mux *http.ServeMux, wrap func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("GET /", wrap(h.HomePage))
	mux.HandleFunc("GET /category/{name}", wrap(h.CategoryPage))
}

// HomePage handles GET /
func (h *Handler) HomePage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	sess, ok := session.FromContext(r.Context())
	if !ok {
		pages.SignInPage().Render(r.Context(), w)
		return
	}

	noteList, err := h.notes.List(r.Context(), sess, "")
	if err != nil {
		h.log.Error("failed to list notes", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	taskList, err := h.tasks.List(r.Context(), sess, false)
	if err != nil {
		h.log.Error("failed to list tasks", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	noteViews, rendered := h.notesToViews(noteList)
	pages.HomePage(sess.DisplayName, categoriesToViews(noteList), noteViews, tasksToViews(taskList), rendered).Render(r.Context(), w)
}

// CategoryPage handles GET /category/{name}
func (h *Handler) CategoryPage(w http.ResponseWriter, r *http.Request) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	category, err := notes.ParseCategory(r.PathValue("name"))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	noteList, err := h.notes.List(r.Context(), sess, category)
	if err != nil {
		h.log.Error("failed to list notes", "category", category, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	noteViews, rendered := h.notesToViews(noteList)
	pages.CategoryPage(string(category), noteViews, rendered).Render(r.Context(), w)
}

func (h *Handler) notesToViews(list []notes.Note) ([]models.NoteView, map[string]string) {
	views := make([]models.NoteView, len(list))
	rendered := make(map[string]string, len(list))
	for i, n := range list {
		views[i] = models.NoteView{
			ID:        n.RemoteID,
			Title:     n.Title,
			Category:  string(n.Category),
			Details:   n.Details,
			CreatedAt: n.CreatedAt,
		}
		rendered[n.RemoteID] = h.notes.RenderMarkdown(n.Details)
	}
	return views, rendered
}

func categoriesToViews(list []notes.Note) []models.CategoryView {
	counts := make(map[notes.Category]int)
	for _, n := range list {
		counts[n.Category]++
	}
	views := make([]models.CategoryView, 0, len(notes.Categories))
	for _, c := range notes.Categories {
		views = append(views, models.CategoryView{Name: string(c), Count: counts[c]})
	}
	return views
}

func tasksToViews(list []tasks.Task) []models.TaskView {
	views := make([]models.TaskView, len(list))
	for i, t := range list {
		views[i] = models.TaskView{
			ID:           t.RemoteID,
			Title:        t.Title,
			Done:         t.IsCompleted,
			ReminderDate: t.ReminderDate,
			CreatedAt:    t.CreatedAt,
		}
	}
	return views
}
