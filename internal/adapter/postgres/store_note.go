package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Strob0t/nextup/internal/domain/note"
)

const noteColumns = `id, user_id, title, content, created_at, updated_at`

func scanNote(row scannable) (note.Note, error) {
	var n note.Note
	err := row.Scan(&n.ID, &n.UserID, &n.Title, &n.Content, &n.CreatedAt, &n.UpdatedAt)
	return n, err
}

// ListNotes returns the owner's notes, most recently edited first.
func (s *Store) ListNotes(ctx context.Context) ([]note.Note, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+noteColumns+` FROM notes WHERE user_id = $1 ORDER BY updated_at DESC, id`, ownerFromCtx(ctx))
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	var notes []note.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		notes = append(notes, n)
	}
	return orEmpty(notes), rows.Err()
}

func (s *Store) GetNote(ctx context.Context, id string) (*note.Note, error) {
	n, err := scanNote(s.pool.QueryRow(ctx,
		`SELECT `+noteColumns+` FROM notes WHERE id = $1 AND user_id = $2`, id, ownerFromCtx(ctx)))
	if err != nil {
		return nil, notFoundWrap(err, "get note %s", id)
	}
	return &n, nil
}

func (s *Store) CreateNote(ctx context.Context, n *note.Note) error {
	now := time.Now().UTC()
	n.UserID = ownerFromCtx(ctx)
	n.CreatedAt = now
	n.UpdatedAt = now
	_, err := s.pool.Exec(ctx, `INSERT INTO notes (`+noteColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		n.ID, n.UserID, n.Title, n.Content, n.CreatedAt, n.UpdatedAt)
	if err != nil {
		return writeErr(err, "create note")
	}
	return nil
}

func (s *Store) UpdateNote(ctx context.Context, n *note.Note) error {
	n.UpdatedAt = time.Now().UTC()
	tag, err := s.pool.Exec(ctx, `
		UPDATE notes SET title = $3, content = $4, updated_at = $5
		WHERE id = $1 AND user_id = $2`,
		n.ID, ownerFromCtx(ctx), n.Title, n.Content, n.UpdatedAt)
	return execExpectOne(tag, err, "update note %s", n.ID)
}

func (s *Store) DeleteNote(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM notes WHERE id = $1 AND user_id = $2`, id, ownerFromCtx(ctx))
	return execExpectOne(tag, err, "delete note %s", id)
}
