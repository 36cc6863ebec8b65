package todo

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"
)

// FrequencyKind describes how often a habit should be done.
type FrequencyKind string

const (
	SpecificDaysPerWeek  FrequencyKind = "specific-days-per-week"
	MultipleDaysPerWeek  FrequencyKind = "multiple-days-per-week"
	SpecificDayOfMonth   FrequencyKind = "specific-day-of-month"
	MultipleDaysPerMonth FrequencyKind = "multiple-days-per-month"
)

// Frequency is the schedule of a habit. Only the field matching Kind is
// required. Days of the week are numbered 0 (Monday) to 6 (Sunday).
type Frequency struct {
	Kind             FrequencyKind `json:"kind"`
	DaysOfWeek       []int         `json:"days_of_week,omitempty"`
	NumTimesPerWeek  *int          `json:"num_times_per_week,omitempty"`
	NumTimesPerMonth *int          `json:"num_times_per_month,omitempty"`
	DayOfMonth       *int          `json:"day_of_month,omitempty"`
}

// Validate checks that the field required by Kind is present and in range.
func (f *Frequency) Validate() error {
	switch f.Kind {
	case SpecificDaysPerWeek:
		if len(f.DaysOfWeek) == 0 {
			return errors.New("specific-days-per-week requires days_of_week")
		}
		for _, d := range f.DaysOfWeek {
			if d < 0 || d > 6 {
				return fmt.Errorf("day of week %d out of range 0-6", d)
			}
		}
	case MultipleDaysPerWeek:
		if f.NumTimesPerWeek == nil {
			return errors.New("multiple-days-per-week requires num_times_per_week")
		}
		if *f.NumTimesPerWeek < 1 || *f.NumTimesPerWeek > 7 {
			return errors.New("num_times_per_week must be between 1 and 7")
		}
	case SpecificDayOfMonth:
		if f.DayOfMonth == nil {
			return errors.New("specific-day-of-month requires day_of_month")
		}
		if *f.DayOfMonth < 1 || *f.DayOfMonth > 31 {
			return errors.New("day_of_month must be between 1 and 31")
		}
	case MultipleDaysPerMonth:
		if f.NumTimesPerMonth == nil {
			return errors.New("multiple-days-per-month requires num_times_per_month")
		}
		if *f.NumTimesPerMonth < 1 || *f.NumTimesPerMonth > 31 {
			return errors.New("num_times_per_month must be between 1 and 31")
		}
	default:
		return fmt.Errorf("invalid frequency kind %q", f.Kind)
	}
	return nil
}

// DateLayout is the wire format of habit log dates.
const DateLayout = "2006-01-02"

// HabitLog records that a habit was done on a given day.
type HabitLog struct {
	ID        string    `json:"id"`
	HabitID   string    `json:"habit_id"`
	When      time.Time `json:"-"`
	CreatedAt time.Time `json:"date_created"`
}

// MarshalJSON renders When as a plain date.
func (l HabitLog) MarshalJSON() ([]byte, error) {
	type alias HabitLog
	return json.Marshal(struct {
		alias
		When string `json:"when"`
	}{alias(l), l.When.Format(DateLayout)})
}

// LogHabitRequest marks a habit done on a day in DateLayout.
type LogHabitRequest struct {
	When string `json:"when"`
}

// Habit is a habit todo together with the days of the current week on
// which it was logged.
type Habit struct {
	Todo
	DoneThisWeek []int `json:"done_this_week"`
}

// WeekStart returns midnight of the Monday of the week containing t.
func WeekStart(t time.Time) time.Time {
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// DoneThisWeek returns the sorted Monday-based weekday indexes of logs that
// fall in the week containing now.
func DoneThisWeek(logs []HabitLog, now time.Time) []int {
	start := WeekStart(now)
	end := start.AddDate(0, 0, 7)
	done := []int{}
	for _, l := range logs {
		w := time.Date(l.When.Year(), l.When.Month(), l.When.Day(), 0, 0, 0, 0, now.Location())
		if w.Before(start) || !w.Before(end) {
			continue
		}
		idx := (int(w.Weekday()) + 6) % 7
		if !slices.Contains(done, idx) {
			done = append(done, idx)
		}
	}
	slices.Sort(done)
	return done
}
