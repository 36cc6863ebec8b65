package todo

import (
	"fmt"
)

// TimeEstimate is an ordinal scale of how long a todo is expected to take.
// Comparisons always go through Rank; the string form is for serialization.
type TimeEstimate int

const (
	OneMin TimeEstimate = iota
	FiveMins
	FifteenMins
	ThirtyMins
	OneHour
	TwoHours
	HalfDay
	OneDay
	Project
)

var estimateNames = [...]string{
	OneMin:      "1-min",
	FiveMins:    "5-mins",
	FifteenMins: "15-mins",
	ThirtyMins:  "30-mins",
	OneHour:     "1-hour",
	TwoHours:    "2-hours",
	HalfDay:     "half-day",
	OneDay:      "one-day",
	Project:     "project",
}

// Rank returns the position of e on the scale, from 0 (1-min) to 8 (project).
func (e TimeEstimate) Rank() int { return int(e) }

// Valid reports whether e is one of the defined estimates.
func (e TimeEstimate) Valid() bool { return e >= OneMin && e <= Project }

func (e TimeEstimate) String() string {
	if !e.Valid() {
		return fmt.Sprintf("TimeEstimate(%d)", int(e))
	}
	return estimateNames[e]
}

// MarshalText implements encoding.TextMarshaler.
func (e TimeEstimate) MarshalText() ([]byte, error) {
	if !e.Valid() {
		return nil, fmt.Errorf("invalid time estimate %d", int(e))
	}
	return []byte(estimateNames[e]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (e *TimeEstimate) UnmarshalText(b []byte) error {
	v, err := ParseTimeEstimate(string(b))
	if err != nil {
		return err
	}
	*e = v
	return nil
}

// ParseTimeEstimate converts a serialized estimate such as "30-mins".
func ParseTimeEstimate(s string) (TimeEstimate, error) {
	for i, name := range estimateNames {
		if name == s {
			return TimeEstimate(i), nil
		}
	}
	return 0, fmt.Errorf("unknown time estimate %q", s)
}

// EstimatePtr is a convenience for optional estimate fields.
func EstimatePtr(e TimeEstimate) *TimeEstimate { return &e }
