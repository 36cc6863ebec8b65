package todo

import (
	"slices"
	"strings"

	"github.com/Strob0t/nextup/internal/domain/fracindex"
	"github.com/Strob0t/nextup/internal/domain/position"
)

// SortByOrder sorts todos ascending by order key. Ties keep input order.
func SortByOrder(todos []Todo) {
	slices.SortStableFunc(todos, func(a, b Todo) int {
		return strings.Compare(a.Order, b.Order)
	})
}

// IndexOf returns the position of the todo with the given id, or -1.
func IndexOf(todos []Todo, id string) int {
	return slices.IndexFunc(todos, func(t Todo) bool { return t.ID == id })
}

// OrderBefore returns a key that sorts immediately before target within
// ordered, which must be sorted by order and hold the target's partition.
// If target is not in ordered its own key is returned unchanged; callers
// must expect the resulting duplicate to be rejected on insert.
func OrderBefore(target *Todo, ordered []Todo) (string, error) {
	idx := IndexOf(ordered, target.ID)
	switch {
	case idx < 0:
		return target.Order, nil
	case idx == 0:
		return fracindex.KeyBetween("", target.Order)
	default:
		return fracindex.KeyBetween(ordered[idx-1].Order, target.Order)
	}
}

// Items returns the identity and order key of each todo.
func Items(todos []Todo) []position.Item {
	items := make([]position.Item, len(todos))
	for i := range todos {
		items[i] = position.Item{ID: todos[i].ID, Order: todos[i].Order}
	}
	return items
}

// OrderForPosition returns the key for placing a todo at pos in ordered.
// Pass the list without the todo being moved.
func OrderForPosition(pos position.Position, ordered []Todo) (string, error) {
	return position.Key(pos, Items(ordered))
}
