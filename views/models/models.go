package models

import "time"

// NoteView represents a note for template rendering
type NoteView struct {
	ID        string
	Title     string
	Category  string
	Details   string
	CreatedAt time.Time
}

// TaskView represents a task for template rendering
type TaskView struct {
	ID           string
	Title        string
	Done         bool
	ReminderDate *time.Time
	CreatedAt    time.Time
}

// CategoryView represents a category for template rendering
type CategoryView struct {
	Name  string
	Count int
}
