package todo

// Predicate selects todos from a list.
type Predicate func(*Todo) bool

// IsChooseable reports whether t may be offered as a suggestion: it is not
// complete, waiting or archived, and the user has not committed to it.
func IsChooseable(t *Todo) bool {
	switch t.Status {
	case StatusComplete, StatusWaiting, StatusArchived:
		return false
	}
	return !t.Committed
}

// HasRequiredFields reports whether t carries everything weighted selection
// needs, which is a time estimate.
func HasRequiredFields(t *Todo) bool {
	return t.TimeEstimate != nil
}

// WithinTimeEstimate returns a predicate accepting todos whose estimate is
// at most limit. Todos without an estimate are rejected.
func WithinTimeEstimate(limit TimeEstimate) Predicate {
	return func(t *Todo) bool {
		return t.TimeEstimate != nil && t.TimeEstimate.Rank() <= limit.Rank()
	}
}

// OfKind returns a predicate accepting todos of any of the given kinds.
func OfKind(kinds ...Kind) Predicate {
	return func(t *Todo) bool {
		for _, k := range kinds {
			if t.Kind == k {
				return true
			}
		}
		return false
	}
}

// Eligible is the selection set for weighted picks.
func Eligible(t *Todo) bool {
	return IsChooseable(t) && HasRequiredFields(t)
}

// Filter returns the todos matching every predicate, preserving order.
func Filter(todos []Todo, preds ...Predicate) []Todo {
	out := make([]Todo, 0, len(todos))
next:
	for i := range todos {
		for _, p := range preds {
			if !p(&todos[i]) {
				continue next
			}
		}
		out = append(out, todos[i])
	}
	return out
}
