package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Strob0t/nextup/internal/domain/todo"
)

const todoColumns = `id, user_id, task, details, status, kind, importance, annoyingness,
	time_estimate, "order", committed, parent_id, atomic, infinitely_divisible, timer_log,
	frequency_kind, days_of_week, num_times_per_week, num_times_per_month, day_of_month,
	created_at, updated_at`

// todoRow holds the nullable and encoded columns of a todo between the
// driver and the domain type.
type todoRow struct {
	estimate  *string
	parentID  *string
	timerLog  []byte
	freqKind  *string
	days      []int32
	perWeek   *int
	perMonth  *int
	dayOfMonth *int
}

func scanTodo(row scannable) (todo.Todo, error) {
	var (
		t       todo.Todo
		r       todoRow
		details []byte
	)
	err := row.Scan(&t.ID, &t.UserID, &t.Task, &details, &t.Status, &t.Kind, &t.Importance, &t.Annoyingness,
		&r.estimate, &t.Order, &t.Committed, &r.parentID, &t.Atomic, &t.InfinitelyDivisible, &r.timerLog,
		&r.freqKind, &r.days, &r.perWeek, &r.perMonth, &r.dayOfMonth,
		&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return t, err
	}
	if len(details) > 0 {
		t.Details = json.RawMessage(details)
	}
	if r.estimate != nil {
		e, err := todo.ParseTimeEstimate(*r.estimate)
		if err != nil {
			return t, fmt.Errorf("todo %s: %w", t.ID, err)
		}
		t.TimeEstimate = &e
	}
	if r.parentID != nil {
		t.ParentID = *r.parentID
	}
	if len(r.timerLog) > 0 {
		if err := json.Unmarshal(r.timerLog, &t.TimerLog); err != nil {
			return t, fmt.Errorf("todo %s: decode timer log: %w", t.ID, err)
		}
	}
	t.TimerLog = orEmpty(t.TimerLog)
	if r.freqKind != nil {
		f := &todo.Frequency{
			Kind:             todo.FrequencyKind(*r.freqKind),
			NumTimesPerWeek:  r.perWeek,
			NumTimesPerMonth: r.perMonth,
			DayOfMonth:       r.dayOfMonth,
		}
		for _, d := range r.days {
			f.DaysOfWeek = append(f.DaysOfWeek, int(d))
		}
		t.Frequency = f
	}
	return t, nil
}

// todoArgs returns the column values of t in todoColumns order.
func todoArgs(t *todo.Todo) ([]any, error) {
	timerLog, err := json.Marshal(orEmpty(t.TimerLog))
	if err != nil {
		return nil, fmt.Errorf("encode timer log: %w", err)
	}
	var details any
	if len(t.Details) > 0 {
		details = []byte(t.Details)
	}
	var estimate *string
	if t.TimeEstimate != nil {
		s := t.TimeEstimate.String()
		estimate = &s
	}
	var (
		freqKind                  *string
		days                      []int32
		perWeek, perMonth, dayNum *int
	)
	if f := t.Frequency; f != nil {
		k := string(f.Kind)
		freqKind = &k
		for _, d := range f.DaysOfWeek {
			days = append(days, int32(d)) //nolint:gosec // validated to 0..6
		}
		perWeek, perMonth, dayNum = f.NumTimesPerWeek, f.NumTimesPerMonth, f.DayOfMonth
	}
	return []any{
		t.ID, t.UserID, t.Task, details, string(t.Status), string(t.Kind), t.Importance, t.Annoyingness,
		estimate, t.Order, t.Committed, nullIfEmpty(t.ParentID), t.Atomic, t.InfinitelyDivisible, timerLog,
		freqKind, days, perWeek, perMonth, dayNum,
		t.CreatedAt, t.UpdatedAt,
	}, nil
}

const insertTodoSQL = `INSERT INTO todos (` + todoColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)`

// ListTodos returns the owner's todos of the given kinds (all kinds when
// none are given) sorted by order key.
func (s *Store) ListTodos(ctx context.Context, kinds ...todo.Kind) ([]todo.Todo, error) {
	names := make([]string, 0, len(kinds))
	for _, k := range kinds {
		names = append(names, string(k))
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+todoColumns+` FROM todos
		WHERE user_id = $1 AND (cardinality($2::text[]) = 0 OR kind = ANY($2))
		ORDER BY "order", id`, ownerFromCtx(ctx), names)
	if err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	defer rows.Close()

	var todos []todo.Todo
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan todo: %w", err)
		}
		todos = append(todos, t)
	}
	return orEmpty(todos), rows.Err()
}

func (s *Store) GetTodo(ctx context.Context, id string) (*todo.Todo, error) {
	t, err := scanTodo(s.pool.QueryRow(ctx,
		`SELECT `+todoColumns+` FROM todos WHERE id = $1 AND user_id = $2`, id, ownerFromCtx(ctx)))
	if err != nil {
		return nil, notFoundWrap(err, "get todo %s", id)
	}
	return &t, nil
}

func (s *Store) CreateTodo(ctx context.Context, t *todo.Todo) error {
	stampNew(ctx, t)
	args, err := todoArgs(t)
	if err != nil {
		return fmt.Errorf("create todo: %w", err)
	}
	if _, err := s.pool.Exec(ctx, insertTodoSQL, args...); err != nil {
		return writeErr(err, "create todo")
	}
	return nil
}

// CreateTodos inserts all todos in one transaction; either every row is
// written or none is.
func (s *Store) CreateTodos(ctx context.Context, todos []todo.Todo) error {
	if len(todos) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for i := range todos {
		stampNew(ctx, &todos[i])
		args, err := todoArgs(&todos[i])
		if err != nil {
			return fmt.Errorf("create todos: %w", err)
		}
		batch.Queue(insertTodoSQL, args...)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return writeErr(err, "create todos")
	}
	if err := tx.Commit(ctx); err != nil {
		return writeErr(err, "commit create todos")
	}
	return nil
}

func (s *Store) UpdateTodo(ctx context.Context, t *todo.Todo) error {
	t.UpdatedAt = time.Now().UTC()
	args, err := todoArgs(t)
	if err != nil {
		return fmt.Errorf("update todo: %w", err)
	}
	// Owner, kind, parent and creation time never change after insert.
	tag, err := s.pool.Exec(ctx, `
		UPDATE todos SET task = $3, details = $4, status = $5, importance = $6, annoyingness = $7,
			time_estimate = $8, "order" = $9, committed = $10, atomic = $11,
			infinitely_divisible = $12, timer_log = $13, frequency_kind = $14, days_of_week = $15,
			num_times_per_week = $16, num_times_per_month = $17, day_of_month = $18, updated_at = $19
		WHERE id = $1 AND user_id = $2`,
		args[0], ownerFromCtx(ctx), args[2], args[3], args[4], args[6], args[7],
		args[8], args[9], args[10], args[12],
		args[13], args[14], args[15], args[16],
		args[17], args[18], args[19], args[21])
	return execExpectOne(tag, err, "update todo %s", t.ID)
}

func (s *Store) DeleteTodo(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM todos WHERE id = $1 AND user_id = $2`, id, ownerFromCtx(ctx))
	return execExpectOne(tag, err, "delete todo %s", id)
}

// stampNew sets the owner and timestamps of a todo about to be inserted.
func stampNew(ctx context.Context, t *todo.Todo) {
	now := time.Now().UTC()
	t.UserID = ownerFromCtx(ctx)
	t.CreatedAt = now
	t.UpdatedAt = now
}
