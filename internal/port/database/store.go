// Package database defines the database store port (interface).
package database

import (
	"context"
	"time"

	"github.com/Strob0t/nextup/internal/domain/fun"
	"github.com/Strob0t/nextup/internal/domain/note"
	"github.com/Strob0t/nextup/internal/domain/todo"
	"github.com/Strob0t/nextup/internal/domain/user"
)

// Store is the port interface for database operations.
//
// Todo, habit log, fun and note methods are scoped to the authenticated
// user carried in ctx. Creates stamp that user as owner.
type Store interface {
	// Users
	CreateUser(ctx context.Context, u *user.User) error
	GetUser(ctx context.Context, id string) (*user.User, error)
	GetUserByEmail(ctx context.Context, email string) (*user.User, error)
	ListUsers(ctx context.Context) ([]user.User, error)
	UpdateUser(ctx context.Context, u *user.User) error

	// Refresh tokens
	CreateRefreshToken(ctx context.Context, rt *user.RefreshToken) error
	GetRefreshTokenByHash(ctx context.Context, tokenHash string) (*user.RefreshToken, error)
	RotateRefreshToken(ctx context.Context, oldTokenHash string, newRT *user.RefreshToken) error
	DeleteRefreshTokensByUser(ctx context.Context, userID string) error

	// Revoked access tokens
	RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
	PurgeExpiredTokens(ctx context.Context) (int64, error)

	// Todos. ListTodos returns the owner's todos of the given kinds sorted
	// ascending by order key. A unique violation on order is reported as
	// domain.ErrOrderConflict.
	ListTodos(ctx context.Context, kinds ...todo.Kind) ([]todo.Todo, error)
	GetTodo(ctx context.Context, id string) (*todo.Todo, error)
	CreateTodo(ctx context.Context, t *todo.Todo) error
	CreateTodos(ctx context.Context, todos []todo.Todo) error
	UpdateTodo(ctx context.Context, t *todo.Todo) error
	DeleteTodo(ctx context.Context, id string) error

	// Habit logs
	ListHabitLogs(ctx context.Context, from, to time.Time) ([]todo.HabitLog, error)
	CreateHabitLog(ctx context.Context, l *todo.HabitLog) error
	DeleteHabitLog(ctx context.Context, habitID string, when time.Time) error

	// Funs
	ListFuns(ctx context.Context) ([]fun.Fun, error)
	GetFun(ctx context.Context, id string) (*fun.Fun, error)
	CreateFun(ctx context.Context, f *fun.Fun) error
	UpdateFun(ctx context.Context, f *fun.Fun) error
	DeleteFun(ctx context.Context, id string) error

	// Notes
	ListNotes(ctx context.Context) ([]note.Note, error)
	GetNote(ctx context.Context, id string) (*note.Note, error)
	CreateNote(ctx context.Context, n *note.Note) error
	UpdateNote(ctx context.Context, n *note.Note) error
	DeleteNote(ctx context.Context, id string) error
}
