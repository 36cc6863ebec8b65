package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Strob0t/nextup/internal/domain/todo"
)

// ListHabitLogs returns the owner's habit logs with from <= when < to.
func (s *Store) ListHabitLogs(ctx context.Context, from, to time.Time) ([]todo.HabitLog, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT l.id, l.habit_id, l."when", l.created_at
		FROM habit_logs l JOIN todos t ON t.id = l.habit_id
		WHERE t.user_id = $1 AND l."when" >= $2::date AND l."when" < $3::date
		ORDER BY l."when", l.habit_id`,
		ownerFromCtx(ctx), from.Format(todo.DateLayout), to.Format(todo.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("list habit logs: %w", err)
	}
	defer rows.Close()

	var logs []todo.HabitLog
	for rows.Next() {
		var l todo.HabitLog
		if err := rows.Scan(&l.ID, &l.HabitID, &l.When, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan habit log: %w", err)
		}
		logs = append(logs, l)
	}
	return orEmpty(logs), rows.Err()
}

// CreateHabitLog records the habit as done on l.When. Logging the same day
// twice returns the existing entry. The habit must belong to the owner.
func (s *Store) CreateHabitLog(ctx context.Context, l *todo.HabitLog) error {
	l.CreatedAt = time.Now().UTC()
	row := s.pool.QueryRow(ctx, `
		INSERT INTO habit_logs (id, habit_id, "when", created_at)
		SELECT $1, t.id, $3::date, $4 FROM todos t
		WHERE t.id = $2 AND t.user_id = $5 AND t.kind = 'habit'
		ON CONFLICT (habit_id, "when") DO UPDATE SET "when" = EXCLUDED."when"
		RETURNING id, created_at`,
		l.ID, l.HabitID, l.When.Format(todo.DateLayout), l.CreatedAt, ownerFromCtx(ctx))
	if err := row.Scan(&l.ID, &l.CreatedAt); err != nil {
		return notFoundWrap(err, "create habit log for %s", l.HabitID)
	}
	return nil
}

func (s *Store) DeleteHabitLog(ctx context.Context, habitID string, when time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM habit_logs l USING todos t
		WHERE l.habit_id = t.id AND t.user_id = $1 AND l.habit_id = $2 AND l."when" = $3::date`,
		ownerFromCtx(ctx), habitID, when.Format(todo.DateLayout))
	return execExpectOne(tag, err, "delete habit log %s %s", habitID, when.Format(todo.DateLayout))
}
