package tasks

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"notesync/internal/syncvm"
)

var (
	ErrTaskNotFound  = errors.New("task not found")
	ErrTitleRequired = errors.New("title is required")
)

// UnknownTitle stands in for a remote document that lost its title.
const UnknownTitle = "Unknown title"

// Task is a cached copy of a remote task document.
type Task struct {
	LocalID      int64      `json:"localId"`
	RemoteID     string     `json:"remoteId"`
	Title        string     `json:"title"`
	ReminderDate *time.Time `json:"reminderDate,omitempty"`
	IsCompleted  bool       `json:"isCompleted"`
	OwnerID      string     `json:"ownerId"`
	CreatedAt    time.Time  `json:"createdAt"`
}

func (t Task) Key() string { return t.RemoteID }

// Fields is the editable part of a task. Completion is changed only by toggling.
type Fields struct {
	Title        string     `json:"title"`
	ReminderDate *time.Time `json:"reminderDate,omitempty"`
}

func (f Fields) Validate() error {
	if strings.TrimSpace(f.Title) == "" {
		return ErrTitleRequired
	}
	return nil
}

func (f Fields) Patch() syncvm.Patch {
	p := syncvm.Patch{"title": strings.TrimSpace(f.Title)}
	if f.ReminderDate != nil {
		p["reminderDate"] = f.ReminderDate.UTC()
	} else {
		p["reminderDate"] = nil
	}
	return p
}

// TaskPatch is a partial edit. A nil title keeps the current one; an absent
// reminderDate keeps the reminder and an explicit null clears it.
type TaskPatch struct {
	Title        *string      `json:"title,omitempty"`
	ReminderDate OptionalTime `json:"reminderDate"`
}

// OptionalTime tells an absent JSON field apart from an explicit null.
type OptionalTime struct {
	Set  bool
	Time *time.Time
}

// Clear returns an OptionalTime that removes the value.
func Clear() OptionalTime { return OptionalTime{Set: true} }

// At returns an OptionalTime holding t.
func At(t time.Time) OptionalTime { return OptionalTime{Set: true, Time: &t} }

func (o *OptionalTime) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		o.Time = nil
		return nil
	}
	var t time.Time
	if err := json.Unmarshal(b, &t); err != nil {
		return err
	}
	o.Time = &t
	return nil
}

// Patch validates the present fields and returns them as a remote update.
func (p TaskPatch) Patch() (syncvm.Patch, error) {
	out := syncvm.Patch{}
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title == "" {
			return nil, ErrTitleRequired
		}
		out["title"] = title
	}
	if p.ReminderDate.Set {
		if p.ReminderDate.Time != nil {
			out["reminderDate"] = p.ReminderDate.Time.UTC()
		} else {
			out["reminderDate"] = nil
		}
	}
	return out, nil
}

func (p TaskPatch) applyTo(t *Task) {
	if p.Title != nil {
		t.Title = strings.TrimSpace(*p.Title)
	}
	if p.ReminderDate.Set {
		t.ReminderDate = nil
		if p.ReminderDate.Time != nil {
			at := p.ReminderDate.Time.UTC()
			t.ReminderDate = &at
		}
	}
}
