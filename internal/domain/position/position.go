// Package position places items in a list ordered by fractional keys.
package position

import (
	"errors"
	"fmt"

	"github.com/Strob0t/nextup/internal/domain/fracindex"
)

// Type says where an item goes relative to its neighbours.
type Type string

const (
	Top    Type = "top"
	Bottom Type = "bottom"
	After  Type = "after"
)

// Position places an item in an ordered list. ID names the anchor for After.
type Position struct {
	Type Type   `json:"type"`
	ID   string `json:"id,omitempty"`
}

// Validate checks that the position is well formed.
func (p Position) Validate() error {
	switch p.Type {
	case Top, Bottom:
		return nil
	case After:
		if p.ID == "" {
			return errors.New("position after requires an id")
		}
		return nil
	}
	return fmt.Errorf("invalid position type %q", p.Type)
}

// Item is the identity and order key of one list entry.
type Item struct {
	ID    string
	Order string
}

// ErrAnchorNotFound is returned when an After anchor is not in the list.
var ErrAnchorNotFound = errors.New("anchor not in list")

// Key returns the order key for placing a new item at pos. items must be
// sorted by Order and exclude the item being placed.
func Key(pos Position, items []Item) (string, error) {
	if err := pos.Validate(); err != nil {
		return "", err
	}
	if len(items) == 0 {
		if pos.Type == After {
			return "", fmt.Errorf("%w: %s", ErrAnchorNotFound, pos.ID)
		}
		return fracindex.KeyBetween("", "")
	}
	switch pos.Type {
	case Top:
		return fracindex.KeyBetween("", items[0].Order)
	case Bottom:
		return fracindex.KeyBetween(items[len(items)-1].Order, "")
	}
	for i := range items {
		if items[i].ID != pos.ID {
			continue
		}
		if i == len(items)-1 {
			return fracindex.KeyBetween(items[i].Order, "")
		}
		return fracindex.KeyBetween(items[i].Order, items[i+1].Order)
	}
	return "", fmt.Errorf("%w: %s", ErrAnchorNotFound, pos.ID)
}
