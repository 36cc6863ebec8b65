package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Strob0t/nextup/internal/config"
	"github.com/Strob0t/nextup/internal/domain"
	"github.com/Strob0t/nextup/internal/domain/todo"
	"github.com/Strob0t/nextup/internal/port/database"
	"github.com/Strob0t/nextup/internal/port/messagequeue"
)

var habitKinds = todo.KindHabit.Partition()

// HabitService manages habits and the days they were done on.
type HabitService struct {
	store  database.Store
	events *EventPublisher
	cfg    *config.Holder
	now    func() time.Time
}

// NewHabitService creates a HabitService.
func NewHabitService(store database.Store, events *EventPublisher, cfg *config.Holder) *HabitService {
	return &HabitService{store: store, events: events, cfg: cfg, now: time.Now}
}

// List returns the user's habits in order, each with the weekdays of the
// current week on which it was logged.
func (s *HabitService) List(ctx context.Context) ([]todo.Habit, error) {
	habits, err := s.store.ListTodos(ctx, habitKinds...)
	if err != nil {
		return nil, err
	}

	now := s.now()
	start := todo.WeekStart(now)
	logs, err := s.store.ListHabitLogs(ctx, start, start.AddDate(0, 0, 7))
	if err != nil {
		return nil, err
	}
	byHabit := make(map[string][]todo.HabitLog, len(habits))
	for _, l := range logs {
		byHabit[l.HabitID] = append(byHabit[l.HabitID], l)
	}

	out := make([]todo.Habit, len(habits))
	for i := range habits {
		habits[i].StampElapsed(now)
		out[i] = todo.Habit{Todo: habits[i], DoneThisWeek: todo.DoneThisWeek(byHabit[habits[i].ID], now)}
	}
	return out, nil
}

// Create adds a habit. A frequency is required.
func (s *HabitService) Create(ctx context.Context, req *todo.CreateRequest) (*todo.Todo, error) {
	if req.Frequency == nil {
		return nil, fmt.Errorf("%w: frequency is required", domain.ErrValidation)
	}
	t, err := createPlaced(ctx, s.store, req, todo.KindHabit, s.cfg.Get().Ordering.MaxRetries)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, messagequeue.SubjectTodoCreated, t)
	return t, nil
}

// Update applies a partial update to a habit.
func (s *HabitService) Update(ctx context.Context, id string, req *todo.UpdateRequest) (*todo.Todo, error) {
	t, err := mutateOfKind(ctx, s.store, id, habitKinds, s.now(), func(t *todo.Todo) error {
		req.Apply(t)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, messagequeue.SubjectTodoUpdated, t)
	return t, nil
}

// Delete removes a habit and its logs.
func (s *HabitService) Delete(ctx context.Context, id string) error {
	t, err := getOfKind(ctx, s.store, id, habitKinds, s.now())
	if err != nil {
		return err
	}
	if err := s.store.DeleteTodo(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, messagequeue.SubjectTodoDeleted, t)
	return nil
}

// Log marks a habit done on a day. An empty date means today. Logging the
// same day twice returns the existing log.
func (s *HabitService) Log(ctx context.Context, habitID string, req todo.LogHabitRequest) (*todo.HabitLog, error) {
	when, err := s.parseDay(req.When)
	if err != nil {
		return nil, err
	}
	h, err := getOfKind(ctx, s.store, habitID, habitKinds, s.now())
	if err != nil {
		return nil, err
	}

	l := &todo.HabitLog{HabitID: habitID, When: when}
	if err := s.store.CreateHabitLog(ctx, l); err != nil {
		return nil, err
	}
	s.events.publish(ctx, messagequeue.SubjectHabitLogged, messagequeue.HabitLogPayload{
		UserID:  h.UserID,
		HabitID: habitID,
		When:    when.Format(todo.DateLayout),
	})
	return l, nil
}

// Unlog removes the log of a habit for one day.
func (s *HabitService) Unlog(ctx context.Context, habitID, day string) error {
	when, err := s.parseDay(day)
	if err != nil {
		return err
	}
	h, err := getOfKind(ctx, s.store, habitID, habitKinds, s.now())
	if err != nil {
		return err
	}
	if err := s.store.DeleteHabitLog(ctx, habitID, when); err != nil {
		return err
	}
	s.events.publish(ctx, messagequeue.SubjectHabitUnlogged, messagequeue.HabitLogPayload{
		UserID:  h.UserID,
		HabitID: habitID,
		When:    when.Format(todo.DateLayout),
	})
	return nil
}

func (s *HabitService) parseDay(day string) (time.Time, error) {
	if day == "" {
		y, m, d := s.now().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	when, err := time.Parse(todo.DateLayout, day)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date must be YYYY-MM-DD", domain.ErrValidation)
	}
	return when, nil
}

func (s *HabitService) publish(ctx context.Context, subject string, t *todo.Todo) {
	s.events.publish(ctx, subject, messagequeue.TodoEventPayload{
		UserID: t.UserID,
		TodoID: t.ID,
		Kind:   string(t.Kind),
		Status: string(t.Status),
	})
}
