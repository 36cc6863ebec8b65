// Package note defines free-form notes kept alongside todos.
package note

import (
	"errors"
	"strings"
	"time"
)

// Note is a titled free-form text.
type Note struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"date_created"`
	UpdatedAt time.Time `json:"date_updated"`
}

// CreateRequest holds the fields needed to create a note.
type CreateRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Validate checks that the CreateRequest has all required fields.
func (r *CreateRequest) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return errors.New("title is required")
	}
	return nil
}

// UpdateRequest holds a partial note update.
type UpdateRequest struct {
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
}

// Apply copies the set fields of r onto n.
func (r *UpdateRequest) Apply(n *Note) error {
	if r.Title != nil {
		if strings.TrimSpace(*r.Title) == "" {
			return errors.New("title must not be empty")
		}
		n.Title = *r.Title
	}
	if r.Content != nil {
		n.Content = *r.Content
	}
	return nil
}
