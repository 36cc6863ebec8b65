package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	nxotel "github.com/Strob0t/nextup/internal/adapter/otel"
	"github.com/Strob0t/nextup/internal/config"
	"github.com/Strob0t/nextup/internal/domain"
	"github.com/Strob0t/nextup/internal/domain/desirability"
	"github.com/Strob0t/nextup/internal/domain/pick"
	"github.com/Strob0t/nextup/internal/domain/position"
	"github.com/Strob0t/nextup/internal/domain/todo"
	"github.com/Strob0t/nextup/internal/port/database"
	"github.com/Strob0t/nextup/internal/port/messagequeue"
)

// listKinds are the kinds shown on the todo list. They share one order
// space.
var listKinds = todo.KindRegular.Partition()

// ScoredTodo is a todo returned by a weighted pick together with the
// desirability it was drawn with.
type ScoredTodo struct {
	todo.Todo
	Desirability float64 `json:"desirability"`
}

// TodoService manages the todo list, its timers and the desirability
// based suggestions.
type TodoService struct {
	store     database.Store
	events    *EventPublisher
	cfg       *config.Holder
	metrics   *nxotel.Metrics
	newPicker func() *pick.Picker
	now       func() time.Time
}

// NewTodoService creates a TodoService. Scoring and ordering settings are
// read from cfg on every call so a reload takes effect immediately.
func NewTodoService(store database.Store, events *EventPublisher, cfg *config.Holder) *TodoService {
	return &TodoService{
		store:     store,
		events:    events,
		cfg:       cfg,
		newPicker: func() *pick.Picker { return pick.New(nil) },
		now:       time.Now,
	}
}

// SetMetrics enables pick and break-up metrics.
func (s *TodoService) SetMetrics(m *nxotel.Metrics) { s.metrics = m }

// List returns the user's regular and break-up todos in list order.
func (s *TodoService) List(ctx context.Context) ([]todo.Todo, error) {
	todos, err := s.store.ListTodos(ctx, listKinds...)
	if err != nil {
		return nil, err
	}
	now := s.now()
	for i := range todos {
		todos[i].StampElapsed(now)
	}
	return todos, nil
}

// Get returns a single todo.
func (s *TodoService) Get(ctx context.Context, id string) (*todo.Todo, error) {
	return getOfKind(ctx, s.store, id, listKinds, s.now())
}

// Create adds a regular todo at the requested position.
func (s *TodoService) Create(ctx context.Context, req *todo.CreateRequest) (*todo.Todo, error) {
	t, err := createPlaced(ctx, s.store, req, todo.KindRegular, s.maxRetries())
	if err != nil {
		return nil, err
	}
	s.publishTodo(ctx, messagequeue.SubjectTodoCreated, t)
	return t, nil
}

// Update applies a partial update.
func (s *TodoService) Update(ctx context.Context, id string, req *todo.UpdateRequest) (*todo.Todo, error) {
	return s.mutate(ctx, id, func(t *todo.Todo) error {
		req.Apply(t)
		return nil
	})
}

// Delete removes a todo together with its break-up children.
func (s *TodoService) Delete(ctx context.Context, id string) error {
	t, err := getOfKind(ctx, s.store, id, listKinds, s.now())
	if err != nil {
		return err
	}
	if err := s.store.DeleteTodo(ctx, id); err != nil {
		return err
	}
	s.publishTodo(ctx, messagequeue.SubjectTodoDeleted, t)
	return nil
}

// Reorder moves a todo to a new position in its list.
func (s *TodoService) Reorder(ctx context.Context, id string, pos position.Position) (*todo.Todo, error) {
	t, err := reorderPlaced(ctx, s.store, id, pos, listKinds, s.maxRetries(), s.now())
	if err != nil {
		return nil, err
	}
	s.publishTodo(ctx, messagequeue.SubjectTodoUpdated, t)
	return t, nil
}

// StartTimer starts tracking time on a todo.
func (s *TodoService) StartTimer(ctx context.Context, id string) (*todo.Todo, error) {
	return s.mutate(ctx, id, func(t *todo.Todo) error {
		log, err := t.TimerLog.Start(s.now())
		if err != nil {
			return fmt.Errorf("%w: %w", domain.ErrValidation, err)
		}
		t.TimerLog = log
		return nil
	})
}

// StopTimer stops the running timer of a todo.
func (s *TodoService) StopTimer(ctx context.Context, id string) (*todo.Todo, error) {
	return s.mutate(ctx, id, func(t *todo.Todo) error {
		log, err := t.TimerLog.Stop(s.now())
		if err != nil {
			return fmt.Errorf("%w: %w", domain.ErrValidation, err)
		}
		t.TimerLog = log
		return nil
	})
}

// OverrideTimer replaces the tracked time of a todo. A running timer keeps
// running from the override on.
func (s *TodoService) OverrideTimer(ctx context.Context, id string, req todo.TimerOverrideRequest) (*todo.Todo, error) {
	return s.mutate(ctx, id, func(t *todo.Todo) error {
		running := t.TimerLog.Running()
		now := s.now()
		log, err := t.TimerLog.Override(now, req.Hours, req.Minutes)
		if err != nil {
			return fmt.Errorf("%w: %w", domain.ErrValidation, err)
		}
		if running {
			log, _ = log.Start(now)
		}
		t.TimerLog = log
		return nil
	})
}

func (s *TodoService) mutate(ctx context.Context, id string, fn func(*todo.Todo) error) (*todo.Todo, error) {
	t, err := mutateOfKind(ctx, s.store, id, listKinds, s.now(), fn)
	if err != nil {
		return nil, err
	}
	s.publishTodo(ctx, messagequeue.SubjectTodoUpdated, t)
	return t, nil
}

// GenerateBreakUps inserts a "break up" placeholder before every large
// todo that has none and returns the updated list. A concurrent write that
// takes one of the new order keys causes a retry on a fresh snapshot.
func (s *TodoService) GenerateBreakUps(ctx context.Context) ([]todo.Todo, error) {
	var created []todo.Todo
	err := withOrderRetry(ctx, s.maxRetries(), "generate break-ups", func(attempt int) error {
		spanCtx, span := nxotel.StartBreakUpSpan(ctx, attempt)
		defer span.End()

		list, err := s.store.ListTodos(spanCtx, listKinds...)
		if err != nil {
			return err
		}
		created, err = todo.GenerateBreakUps(list)
		if err != nil {
			return fmt.Errorf("generate break-ups: %w", err)
		}
		if len(created) == 0 {
			return nil
		}
		for i := range created {
			created[i].ID = uuid.NewString()
			if err := created[i].Validate(); err != nil {
				return fmt.Errorf("%w: %w", domain.ErrValidation, err)
			}
		}
		return s.store.CreateTodos(spanCtx, created)
	})
	if err != nil {
		return nil, err
	}

	if len(created) > 0 {
		s.metrics.RecordBreakUps(ctx, len(created))
		payload := messagequeue.BreakUpsGeneratedPayload{
			UserID:    created[0].UserID,
			TodoIDs:   make([]string, len(created)),
			ParentIDs: make([]string, len(created)),
		}
		for i := range created {
			payload.TodoIDs[i] = created[i].ID
			payload.ParentIDs[i] = created[i].ParentID
		}
		s.events.publish(ctx, messagequeue.SubjectBreakUpsGenerated, payload)
		slog.InfoContext(ctx, "break-up todos generated", "count", len(created))
	}
	return s.List(ctx)
}

// Desirabilities scores every chooseable todo whose estimate is at most
// limit. Todos without an estimate map to nil.
func (s *TodoService) Desirabilities(ctx context.Context, limit todo.TimeEstimate) (desirability.Scores, error) {
	list, err := s.store.ListTodos(ctx, listKinds...)
	if err != nil {
		return nil, err
	}
	return s.score(ctx, chooseable(list, limit), limit), nil
}

// chooseable is the set the score map is built from: chooseable todos whose
// estimate is at most limit, plus those with no estimate at all.
func chooseable(list []todo.Todo, limit todo.TimeEstimate) []todo.Todo {
	return todo.Filter(list, todo.IsChooseable, func(t *todo.Todo) bool {
		return t.TimeEstimate == nil || t.TimeEstimate.Rank() <= limit.Rank()
	})
}

// WeightedRandom draws up to n distinct todos, each with probability
// proportional to its desirability. Only chooseable todos with an estimate
// of at most limit take part. It returns pick.ErrNothingToSelect when no
// todo qualifies.
func (s *TodoService) WeightedRandom(ctx context.Context, n int, limit todo.TimeEstimate) ([]ScoredTodo, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: n must be at least 1", domain.ErrValidation)
	}
	ctx, span := nxotel.StartPickSpan(ctx, "todos", n)
	defer span.End()

	list, err := s.store.ListTodos(ctx, listKinds...)
	if err != nil {
		return nil, err
	}
	// Weights come from the same score map Desirabilities returns; todos
	// without an estimate are ranked but never drawn.
	candidates := chooseable(list, limit)
	weights := s.score(ctx, candidates, limit).Candidates()

	within := todo.WithinTimeEstimate(limit)
	byID := make(map[string]*todo.Todo, len(candidates))
	for i := range candidates {
		t := &candidates[i]
		byID[t.ID] = t
		if !todo.Eligible(t) || !within(t) {
			delete(weights, t.ID)
		}
	}

	ids, err := s.newPicker().N(weights, n)
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := make([]ScoredTodo, len(ids))
	scores := make([]float64, len(ids))
	for i, id := range ids {
		t := *byID[id]
		t.StampElapsed(now)
		out[i] = ScoredTodo{Todo: t, Desirability: weights[id]}
		scores[i] = weights[id]
	}
	s.metrics.RecordPick(ctx, "todos", len(weights), scores...)
	return out, nil
}

func (s *TodoService) score(ctx context.Context, todos []todo.Todo, limit todo.TimeEstimate) desirability.Scores {
	_, span := nxotel.StartScoringSpan(ctx, len(todos), limit.String())
	defer span.End()
	return desirability.NewCalculator(s.cfg.Get().Scoring).ScoreAll(todos, limit)
}

func (s *TodoService) maxRetries() int {
	return s.cfg.Get().Ordering.MaxRetries
}

func (s *TodoService) publishTodo(ctx context.Context, subject string, t *todo.Todo) {
	s.events.publish(ctx, subject, messagequeue.TodoEventPayload{
		UserID: t.UserID,
		TodoID: t.ID,
		Kind:   string(t.Kind),
		Status: string(t.Status),
	})
}

// --- shared by the todo and habit services ---

// withOrderRetry runs fn until it stops failing with ErrOrderConflict or
// maxRetries retries are used up.
func withOrderRetry(ctx context.Context, maxRetries int, op string, fn func(attempt int) error) error {
	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err = fn(attempt)
		if !errors.Is(err, domain.ErrOrderConflict) {
			return err
		}
		slog.DebugContext(ctx, "order key taken, retrying", "op", op, "attempt", attempt)
	}
	return err
}

func getOfKind(ctx context.Context, store database.Store, id string, kinds []todo.Kind, now time.Time) (*todo.Todo, error) {
	t, err := store.GetTodo(ctx, id)
	if err != nil {
		return nil, err
	}
	if !todo.OfKind(kinds...)(t) {
		return nil, fmt.Errorf("todo %s: %w", id, domain.ErrNotFound)
	}
	t.StampElapsed(now)
	return t, nil
}

func mutateOfKind(ctx context.Context, store database.Store, id string, kinds []todo.Kind, now time.Time, fn func(*todo.Todo) error) (*todo.Todo, error) {
	t, err := getOfKind(ctx, store, id, kinds, now)
	if err != nil {
		return nil, err
	}
	if err := fn(t); err != nil {
		return nil, err
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	if err := store.UpdateTodo(ctx, t); err != nil {
		return nil, err
	}
	t.StampElapsed(now)
	return t, nil
}

// createPlaced inserts a new todo of kind at req.Position within its
// partition, retrying with a fresh list when the key is taken.
func createPlaced(ctx context.Context, store database.Store, req *todo.CreateRequest, kind todo.Kind, maxRetries int) (*todo.Todo, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}

	t := &todo.Todo{
		ID:                  uuid.NewString(),
		Task:                req.Task,
		Details:             req.Details,
		Status:              req.Status,
		Kind:                kind,
		Importance:          req.Importance,
		Annoyingness:        req.Annoyingness,
		TimeEstimate:        req.TimeEstimate,
		Committed:           req.Committed,
		Atomic:              req.Atomic,
		InfinitelyDivisible: req.InfinitelyDivisible,
		TimerLog:            todo.TimerLog{},
	}
	if kind == todo.KindHabit {
		t.Frequency = req.Frequency
	}

	err := withOrderRetry(ctx, maxRetries, "create todo", func(int) error {
		list, err := store.ListTodos(ctx, kind.Partition()...)
		if err != nil {
			return err
		}
		t.Order, err = todo.OrderForPosition(req.Position, list)
		if err != nil {
			return placementErr(err)
		}
		if err := t.Validate(); err != nil {
			return fmt.Errorf("%w: %w", domain.ErrValidation, err)
		}
		return store.CreateTodo(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// reorderPlaced moves a todo to pos within its partition.
func reorderPlaced(ctx context.Context, store database.Store, id string, pos position.Position, kinds []todo.Kind, maxRetries int, now time.Time) (*todo.Todo, error) {
	if err := pos.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	if pos.Type == position.After && pos.ID == id {
		return nil, fmt.Errorf("%w: cannot place a todo after itself", domain.ErrValidation)
	}

	var moved *todo.Todo
	err := withOrderRetry(ctx, maxRetries, "reorder todo", func(int) error {
		t, err := getOfKind(ctx, store, id, kinds, now)
		if err != nil {
			return err
		}
		list, err := store.ListTodos(ctx, kinds...)
		if err != nil {
			return err
		}
		others := todo.Filter(list, func(o *todo.Todo) bool { return o.ID != id })
		t.Order, err = todo.OrderForPosition(pos, others)
		if err != nil {
			return placementErr(err)
		}
		if err := store.UpdateTodo(ctx, t); err != nil {
			return err
		}
		moved = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return moved, nil
}

func placementErr(err error) error {
	if errors.Is(err, position.ErrAnchorNotFound) {
		return fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	return fmt.Errorf("order key: %w", err)
}
