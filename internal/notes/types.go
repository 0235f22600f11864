package notes

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"notesync/internal/syncvm"
)

var (
	ErrNoteNotFound    = errors.New("note not found")
	ErrTitleRequired   = errors.New("title is required")
	ErrInvalidCategory = errors.New("invalid category")
)

// UnknownTitle stands in for a remote document that lost its title.
const UnknownTitle = "Unknown title"

// Category groups notes. The zero value is not valid; use ParseCategory.
type Category string

const (
	CategoryWork     Category = "Work"
	CategoryStudy    Category = "Study"
	CategoryPersonal Category = "Personal"
)

// Categories lists every category in display order.
var Categories = []Category{CategoryWork, CategoryStudy, CategoryPersonal}

// ParseCategory matches s case-insensitively. Empty input yields Work.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return CategoryWork, nil
	}
	for _, c := range Categories {
		if strings.EqualFold(s, string(c)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
}

// Note is a cached copy of a remote note document.
type Note struct {
	LocalID   int64     `json:"localId"`
	RemoteID  string    `json:"remoteId"`
	Title     string    `json:"title"`
	Details   string    `json:"details,omitempty"`
	Category  Category  `json:"category"`
	OwnerID   string    `json:"ownerId"`
	CreatedAt time.Time `json:"createdAt"`
}

func (n Note) Key() string { return n.RemoteID }

// Fields is the editable part of a note
type Fields struct {
	Title    string   `json:"title"`
	Details  string   `json:"details"`
	Category Category `json:"category"`
}

func (f Fields) Validate() error {
	if strings.TrimSpace(f.Title) == "" {
		return ErrTitleRequired
	}
	if f.Category != "" {
		if _, err := ParseCategory(string(f.Category)); err != nil {
			return err
		}
	}
	return nil
}

func (f Fields) Patch() syncvm.Patch {
	return syncvm.Patch{
		"title":    strings.TrimSpace(f.Title),
		"details":  f.Details,
		"category": string(f.category()),
	}
}

func (f Fields) category() Category {
	c, err := ParseCategory(string(f.Category))
	if err != nil {
		return CategoryWork
	}
	return c
}

// NoteInput is the JSON body for creating or editing a note
type NoteInput struct {
	Title    string `json:"title"`
	Details  string `json:"details"`
	Category string `json:"category"`
}

// Fields normalises the input category.
func (in NoteInput) Fields() (Fields, error) {
	c, err := ParseCategory(in.Category)
	if err != nil {
		return Fields{}, err
	}
	return Fields{Title: in.Title, Details: in.Details, Category: c}, nil
}

// NotePatch is a partial edit. Fields left nil keep their current value.
type NotePatch struct {
	Title    *string `json:"title,omitempty"`
	Details  *string `json:"details,omitempty"`
	Category *string `json:"category,omitempty"`
}

// Patch validates the present fields and returns them as a remote update.
func (p NotePatch) Patch() (syncvm.Patch, error) {
	out := syncvm.Patch{}
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title == "" {
			return nil, ErrTitleRequired
		}
		out["title"] = title
	}
	if p.Details != nil {
		out["details"] = *p.Details
	}
	if p.Category != nil {
		c, err := ParseCategory(*p.Category)
		if err != nil {
			return nil, err
		}
		out["category"] = string(c)
	}
	return out, nil
}

// Merge returns n's fields with the present ones overridden.
func (p NotePatch) Merge(n Note) Fields {
	f := Fields{Title: n.Title, Details: n.Details, Category: n.Category}
	if p.Title != nil {
		f.Title = strings.TrimSpace(*p.Title)
	}
	if p.Details != nil {
		f.Details = *p.Details
	}
	if p.Category != nil {
		f.Category = Category(*p.Category)
	}
	return f
}
