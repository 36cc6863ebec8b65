package todo

import (
	"fmt"
)

// BreakUpThreshold is the largest estimate that never gets a break-up todo.
const BreakUpThreshold = ThirtyMins

// ChildIndex maps a parent id to the ids of its children.
type ChildIndex map[string][]string

// NewChildIndex builds the parent lookup for a snapshot of todos.
func NewChildIndex(todos []Todo) ChildIndex {
	idx := make(ChildIndex)
	for i := range todos {
		if p := todos[i].ParentID; p != "" {
			idx[p] = append(idx[p], todos[i].ID)
		}
	}
	return idx
}

// HasChildren reports whether any todo names id as its parent.
func (c ChildIndex) HasChildren(id string) bool {
	return len(c[id]) > 0
}

// NeedsBreakUp reports whether t is large enough and free enough to get a
// break-up placeholder.
func NeedsBreakUp(t *Todo, children ChildIndex) bool {
	return t.TimeEstimate != nil &&
		t.TimeEstimate.Rank() > BreakUpThreshold.Rank() &&
		!children.HasChildren(t.ID) &&
		t.ParentID == "" &&
		IsChooseable(t) &&
		!t.Atomic &&
		!t.InfinitelyDivisible
}

// BreakUpTask returns the text of the placeholder generated for task.
func BreakUpTask(task string) string {
	return `break up "` + task + `"`
}

// GenerateBreakUps returns new, unsaved break-up todos for every eligible
// todo in list, visiting sources in ascending order. list should hold the
// whole regular partition of one user. Each placeholder sorts immediately
// before its source. The returned todos have no ID.
func GenerateBreakUps(list []Todo) ([]Todo, error) {
	children := NewChildIndex(list)

	ordered := make([]Todo, len(list))
	copy(ordered, list)
	SortByOrder(ordered)

	working := make([]Todo, len(ordered))
	copy(working, ordered)

	var created []Todo
	for i := range ordered {
		src := ordered[i]
		if !NeedsBreakUp(&src, children) {
			continue
		}
		order, err := OrderBefore(&src, working)
		if err != nil {
			return nil, fmt.Errorf("order before %s: %w", src.ID, err)
		}
		bu := Todo{
			UserID:       src.UserID,
			Task:         BreakUpTask(src.Task),
			Status:       StatusTodo,
			Kind:         KindBreakUp,
			Importance:   src.Importance,
			Annoyingness: 0,
			TimeEstimate: EstimatePtr(FiveMins),
			Order:        order,
			ParentID:     src.ID,
			TimerLog:     TimerLog{},
		}
		created = append(created, bu)
		working = append(working, bu)
		SortByOrder(working)
	}
	return created, nil
}
