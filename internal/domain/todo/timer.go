package todo

import (
	"errors"
	"time"
)

// TimerEventKind identifies an entry in a todo's timer log.
type TimerEventKind string

const (
	TimerStart          TimerEventKind = "timer_start"
	TimerStop           TimerEventKind = "timer_stop"
	TimeElapsedOverride TimerEventKind = "time_elapsed_override"
)

// TimerEvent is one append-only entry of a timer log. Timestamp is Unix
// seconds. Hours and Minutes are only meaningful for overrides.
type TimerEvent struct {
	Event     TimerEventKind `json:"event"`
	Timestamp float64        `json:"timestamp"`
	Hours     int            `json:"hours,omitempty"`
	Minutes   int            `json:"minutes,omitempty"`
}

// TimerLog is the ordered event history of a todo's timer.
type TimerLog []TimerEvent

// ErrTimerRunning and ErrTimerStopped reject start/stop events that would
// not change the timer state.
var (
	ErrTimerRunning = errors.New("timer already running")
	ErrTimerStopped = errors.New("timer not running")
)

// Running reports whether the last start has no matching stop.
func (l TimerLog) Running() bool {
	for i := len(l) - 1; i >= 0; i-- {
		switch l[i].Event {
		case TimerStart:
			return true
		case TimerStop, TimeElapsedOverride:
			return false
		}
	}
	return false
}

// Elapsed returns the time tracked by the log as of now. The most recent
// override resets the total and discards everything before it. A trailing
// start counts up to now.
func (l TimerLog) Elapsed(now time.Time) time.Duration {
	var total float64
	events := []TimerEvent(l)
	for i := len(l) - 1; i >= 0; i-- {
		if l[i].Event == TimeElapsedOverride {
			total = float64(l[i].Hours*3600 + l[i].Minutes*60)
			events = l[i+1:]
			break
		}
	}

	var start *float64
	for _, ev := range events {
		switch ev.Event {
		case TimerStart:
			ts := ev.Timestamp
			start = &ts
		case TimerStop:
			if start != nil {
				total += ev.Timestamp - *start
				start = nil
			}
		}
	}
	if start != nil {
		total += unixSeconds(now) - *start
	}
	return time.Duration(total * float64(time.Second))
}

// Start returns the log with a start event appended.
func (l TimerLog) Start(now time.Time) (TimerLog, error) {
	if l.Running() {
		return l, ErrTimerRunning
	}
	return append(l, TimerEvent{Event: TimerStart, Timestamp: unixSeconds(now)}), nil
}

// Stop returns the log with a stop event appended.
func (l TimerLog) Stop(now time.Time) (TimerLog, error) {
	if !l.Running() {
		return l, ErrTimerStopped
	}
	return append(l, TimerEvent{Event: TimerStop, Timestamp: unixSeconds(now)}), nil
}

// Override returns the log with an elapsed-time override appended.
func (l TimerLog) Override(now time.Time, hours, minutes int) (TimerLog, error) {
	if hours < 0 || minutes < 0 || minutes > 59 {
		return l, errors.New("override must be non-negative with minutes below 60")
	}
	return append(l, TimerEvent{
		Event:     TimeElapsedOverride,
		Timestamp: unixSeconds(now),
		Hours:     hours,
		Minutes:   minutes,
	}), nil
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
