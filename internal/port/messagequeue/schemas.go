package messagequeue

// TodoEventPayload is the schema for todos.created, todos.updated and
// todos.deleted messages.
type TodoEventPayload struct {
	UserID string `json:"user_id"`
	TodoID string `json:"todo_id"`
	Kind   string `json:"kind"`
	Status string `json:"status,omitempty"`
}

// BreakUpsGeneratedPayload is the schema for todos.breakups_generated.
type BreakUpsGeneratedPayload struct {
	UserID    string   `json:"user_id"`
	TodoIDs   []string `json:"todo_ids"`
	ParentIDs []string `json:"parent_ids"`
}

// HabitLogPayload is the schema for habits.logged and habits.unlogged.
type HabitLogPayload struct {
	UserID  string `json:"user_id"`
	HabitID string `json:"habit_id"`
	When    string `json:"when"`
}

// ResourceChangedPayload is the schema for funs.changed and notes.changed.
type ResourceChangedPayload struct {
	UserID string `json:"user_id"`
	ID     string `json:"id"`
	Action string `json:"action"` // "created" | "updated" | "deleted"
}

// Owned decodes the owner field shared by every payload. The realtime
// relay uses it to route an event to the owner's connections only.
type Owned struct {
	UserID string `json:"user_id"`
}
