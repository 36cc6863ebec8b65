package messagequeue

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Validate checks whether data is valid JSON conforming to the schema
// associated with the given subject. Unknown subjects pass validation.
// Every known payload must name its owner.
func Validate(subject string, data []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("invalid JSON on subject %s", subject)
	}

	var target any
	switch subject {
	case SubjectTodoCreated, SubjectTodoUpdated, SubjectTodoDeleted:
		target = &TodoEventPayload{}
	case SubjectBreakUpsGenerated:
		target = &BreakUpsGeneratedPayload{}
	case SubjectHabitLogged, SubjectHabitUnlogged:
		target = &HabitLogPayload{}
	case SubjectFunChanged, SubjectNoteChanged:
		target = &ResourceChangedPayload{}
	default:
		return nil
	}

	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("schema validation failed for %s: %w", subject, err)
	}

	var owner Owned
	_ = json.Unmarshal(data, &owner)
	if owner.UserID == "" {
		return fmt.Errorf("schema validation failed for %s: %w", subject, errors.New("user_id is required"))
	}
	return nil
}
