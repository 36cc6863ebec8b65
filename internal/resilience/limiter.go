package resilience

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Limiter caps how many calls of an expensive operation run at once, such
// as password hashing. A nil Limiter runs everything directly.
type Limiter struct {
	sem *semaphore.Weighted
}

// NewLimiter creates a Limiter allowing at most limit concurrent calls.
func NewLimiter(limit int) *Limiter {
	if limit < 1 {
		limit = 1
	}
	return &Limiter{sem: semaphore.NewWeighted(int64(limit))}
}

// Run acquires a slot, runs fn, and releases the slot. It returns
// ctx.Err() if ctx is done before a slot frees up.
func (l *Limiter) Run(ctx context.Context, fn func() error) error {
	if l == nil || l.sem == nil {
		return fn()
	}
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer l.sem.Release(1)
	return fn()
}
