// Package fun defines Fun, a user's list of things to do for enjoyment.
package fun

import (
	"errors"
	"strings"
	"time"

	"github.com/Strob0t/nextup/internal/domain/position"
)

// Fun is an ordered leisure activity. Earlier entries are preferred when
// suggesting one at random.
type Fun struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Order     string    `json:"order"`
	CreatedAt time.Time `json:"date_created"`
	UpdatedAt time.Time `json:"date_updated"`
}

// CreateRequest holds the fields needed to create a fun.
type CreateRequest struct {
	Title    string            `json:"title"`
	Position position.Position `json:"position"`
}

// Validate checks that the CreateRequest has all required fields.
func (r *CreateRequest) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return errors.New("title is required")
	}
	if r.Position.Type == "" {
		r.Position.Type = position.Bottom
	}
	return r.Position.Validate()
}

// UpdateRequest renames a fun.
type UpdateRequest struct {
	Title string `json:"title"`
}

// Validate checks that the UpdateRequest has all required fields.
func (r *UpdateRequest) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return errors.New("title is required")
	}
	return nil
}

// ReorderRequest moves a fun to a new position.
type ReorderRequest struct {
	Position position.Position `json:"position"`
}

// Items returns the identity and order key of each fun.
func Items(funs []Fun) []position.Item {
	items := make([]position.Item, len(funs))
	for i := range funs {
		items[i] = position.Item{ID: funs[i].ID, Order: funs[i].Order}
	}
	return items
}
