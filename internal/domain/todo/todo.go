// Package todo defines the Todo entity and the pure list algorithms that
// operate on a user's todo list: filtering, ordering and break-up
// generation.
package todo

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Strob0t/nextup/internal/domain/fracindex"
	"github.com/Strob0t/nextup/internal/domain/position"
)

// Status is the lifecycle state of a todo.
type Status string

const (
	StatusTodo     Status = "todo"
	StatusComplete Status = "complete"
	StatusArchived Status = "archived"
	StatusWaiting  Status = "waiting"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusComplete, StatusArchived, StatusWaiting:
		return true
	}
	return false
}

// Kind distinguishes user todos, generated break-up placeholders and habits.
// Regular and break-up todos share one order space; habits have their own.
type Kind string

const (
	KindRegular Kind = "regular"
	KindBreakUp Kind = "break-up"
	KindHabit   Kind = "habit"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindRegular, KindBreakUp, KindHabit:
		return true
	}
	return false
}

// Partition returns the kinds that share an order space with k.
func (k Kind) Partition() []Kind {
	if k == KindHabit {
		return []Kind{KindHabit}
	}
	return []Kind{KindRegular, KindBreakUp}
}

const (
	MaxImportance   = 5
	MaxAnnoyingness = 4
	MaxTaskLength   = 10000
)

// Todo is a unit of work owned by a single user.
type Todo struct {
	ID                  string          `json:"id"`
	UserID              string          `json:"user_id"`
	Task                string          `json:"task"`
	Details             json.RawMessage `json:"details"`
	Status              Status          `json:"status"`
	Kind                Kind            `json:"kind"`
	Importance          int             `json:"importance"`
	Annoyingness        int             `json:"annoyingness"`
	TimeEstimate        *TimeEstimate   `json:"time_estimate"`
	Order               string          `json:"order"`
	Committed           bool            `json:"committed"`
	ParentID            string          `json:"parent_id,omitempty"`
	Atomic              bool            `json:"atomic"`
	InfinitelyDivisible bool            `json:"infinitely_divisible"`
	TimerLog            TimerLog        `json:"timer_log"`
	ElapsedSeconds      float64         `json:"elapsed_seconds"`
	Frequency           *Frequency      `json:"frequency,omitempty"`
	CreatedAt           time.Time       `json:"date_created"`
	UpdatedAt           time.Time       `json:"date_updated"`
}

// StampElapsed fills ElapsedSeconds from the timer log. It is derived on
// read and never stored.
func (t *Todo) StampElapsed(now time.Time) {
	t.ElapsedSeconds = t.TimerLog.Elapsed(now).Seconds()
}

// Validate checks the invariants of a todo about to be persisted.
func (t *Todo) Validate() error {
	if len(t.Task) > MaxTaskLength {
		return fmt.Errorf("task must be at most %d bytes", MaxTaskLength)
	}
	if !t.Status.Valid() {
		return fmt.Errorf("invalid status %q", t.Status)
	}
	if !t.Kind.Valid() {
		return fmt.Errorf("invalid kind %q", t.Kind)
	}
	if t.Importance < 0 || t.Importance > MaxImportance {
		return fmt.Errorf("importance must be between 0 and %d", MaxImportance)
	}
	if t.Annoyingness < 0 || t.Annoyingness > MaxAnnoyingness {
		return fmt.Errorf("annoyingness must be between 0 and %d", MaxAnnoyingness)
	}
	if t.TimeEstimate != nil && !t.TimeEstimate.Valid() {
		return errors.New("invalid time estimate")
	}
	if t.Kind == KindBreakUp && t.ParentID == "" {
		return errors.New("break-up todos require a parent")
	}
	if t.Kind == KindHabit {
		if t.Frequency == nil {
			return errors.New("habits require a frequency")
		}
		if err := t.Frequency.Validate(); err != nil {
			return err
		}
	}
	if t.Order != "" {
		if err := fracindex.Validate(t.Order); err != nil {
			return err
		}
	}
	return nil
}

// CreateRequest holds the fields needed to create a todo or habit.
type CreateRequest struct {
	Task                string            `json:"task"`
	Details             json.RawMessage   `json:"details,omitempty"`
	Status              Status            `json:"status,omitempty"`
	Importance          int               `json:"importance"`
	Annoyingness        int               `json:"annoyingness"`
	TimeEstimate        *TimeEstimate     `json:"time_estimate,omitempty"`
	Committed           bool              `json:"committed"`
	Atomic              bool              `json:"atomic"`
	InfinitelyDivisible bool              `json:"infinitely_divisible"`
	Frequency           *Frequency        `json:"frequency,omitempty"`
	Position            position.Position `json:"position"`
}

// Validate defaults the status and position and checks the position. Field
// ranges are checked on the built Todo.
func (r *CreateRequest) Validate() error {
	if r.Status == "" {
		r.Status = StatusTodo
	}
	if r.Position.Type == "" {
		r.Position.Type = position.Top
	}
	return r.Position.Validate()
}

// UpdateRequest holds a partial update. Nil fields are left unchanged.
type UpdateRequest struct {
	Task                *string         `json:"task,omitempty"`
	Details             json.RawMessage `json:"details,omitempty"`
	Status              *Status         `json:"status,omitempty"`
	Importance          *int            `json:"importance,omitempty"`
	Annoyingness        *int            `json:"annoyingness,omitempty"`
	TimeEstimate        *TimeEstimate   `json:"time_estimate,omitempty"`
	ClearTimeEstimate   bool            `json:"clear_time_estimate,omitempty"`
	Committed           *bool           `json:"committed,omitempty"`
	Atomic              *bool           `json:"atomic,omitempty"`
	InfinitelyDivisible *bool           `json:"infinitely_divisible,omitempty"`
	Frequency           *Frequency      `json:"frequency,omitempty"`
}

// Apply copies the set fields of r onto t.
func (r *UpdateRequest) Apply(t *Todo) {
	if r.Task != nil {
		t.Task = *r.Task
	}
	if len(r.Details) > 0 {
		t.Details = r.Details
	}
	if r.Status != nil {
		t.Status = *r.Status
	}
	if r.Importance != nil {
		t.Importance = *r.Importance
	}
	if r.Annoyingness != nil {
		t.Annoyingness = *r.Annoyingness
	}
	if r.ClearTimeEstimate {
		t.TimeEstimate = nil
	} else if r.TimeEstimate != nil {
		t.TimeEstimate = EstimatePtr(*r.TimeEstimate)
	}
	if r.Committed != nil {
		t.Committed = *r.Committed
	}
	if r.Atomic != nil {
		t.Atomic = *r.Atomic
	}
	if r.InfinitelyDivisible != nil {
		t.InfinitelyDivisible = *r.InfinitelyDivisible
	}
	if r.Frequency != nil {
		t.Frequency = r.Frequency
	}
}

// TimerOverrideRequest sets the tracked time of a todo.
type TimerOverrideRequest struct {
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
}

// ReorderRequest moves a todo to a new position.
type ReorderRequest struct {
	Position position.Position `json:"position"`
}
