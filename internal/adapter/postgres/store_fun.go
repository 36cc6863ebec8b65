package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Strob0t/nextup/internal/domain/fun"
)

const funColumns = `id, user_id, title, "order", created_at, updated_at`

func scanFun(row scannable) (fun.Fun, error) {
	var f fun.Fun
	err := row.Scan(&f.ID, &f.UserID, &f.Title, &f.Order, &f.CreatedAt, &f.UpdatedAt)
	return f, err
}

// ListFuns returns the owner's funs sorted by order key.
func (s *Store) ListFuns(ctx context.Context) ([]fun.Fun, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+funColumns+` FROM funs WHERE user_id = $1 ORDER BY "order", id`, ownerFromCtx(ctx))
	if err != nil {
		return nil, fmt.Errorf("list funs: %w", err)
	}
	defer rows.Close()

	var funs []fun.Fun
	for rows.Next() {
		f, err := scanFun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan fun: %w", err)
		}
		funs = append(funs, f)
	}
	return orEmpty(funs), rows.Err()
}

func (s *Store) GetFun(ctx context.Context, id string) (*fun.Fun, error) {
	f, err := scanFun(s.pool.QueryRow(ctx,
		`SELECT `+funColumns+` FROM funs WHERE id = $1 AND user_id = $2`, id, ownerFromCtx(ctx)))
	if err != nil {
		return nil, notFoundWrap(err, "get fun %s", id)
	}
	return &f, nil
}

func (s *Store) CreateFun(ctx context.Context, f *fun.Fun) error {
	now := time.Now().UTC()
	f.UserID = ownerFromCtx(ctx)
	f.CreatedAt = now
	f.UpdatedAt = now
	_, err := s.pool.Exec(ctx, `INSERT INTO funs (`+funColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		f.ID, f.UserID, f.Title, f.Order, f.CreatedAt, f.UpdatedAt)
	if err != nil {
		return writeErr(err, "create fun")
	}
	return nil
}

func (s *Store) UpdateFun(ctx context.Context, f *fun.Fun) error {
	f.UpdatedAt = time.Now().UTC()
	tag, err := s.pool.Exec(ctx, `
		UPDATE funs SET title = $3, "order" = $4, updated_at = $5
		WHERE id = $1 AND user_id = $2`,
		f.ID, ownerFromCtx(ctx), f.Title, f.Order, f.UpdatedAt)
	return execExpectOne(tag, err, "update fun %s", f.ID)
}

func (s *Store) DeleteFun(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM funs WHERE id = $1 AND user_id = $2`, id, ownerFromCtx(ctx))
	return execExpectOne(tag, err, "delete fun %s", id)
}
