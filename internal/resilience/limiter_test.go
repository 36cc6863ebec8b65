package resilience

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestLimiter_CapsConcurrency(t *testing.T) {
	const limit = 3
	lim := NewLimiter(limit)

	var running, peak atomic.Int32
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := lim.Run(context.Background(), func() error {
				cur := running.Add(1)
				for {
					old := peak.Load()
					if cur <= old || peak.CompareAndSwap(old, cur) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				running.Add(-1)
				return nil
			})
			if err != nil {
				t.Errorf("run: %v", err)
			}
		}()
	}
	wg.Wait()

	if p := peak.Load(); p > limit {
		t.Errorf("peak concurrency = %d, want <= %d", p, limit)
	}
}

func TestLimiter_CancelledWhileWaiting(t *testing.T) {
	lim := NewLimiter(1)
	occupied := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = lim.Run(context.Background(), func() error {
			close(occupied)
			<-release
			return nil
		})
	}()
	<-occupied
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := lim.Run(ctx, func() error {
		t.Error("fn ran without a slot")
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestLimiter_PassesThroughErrors(t *testing.T) {
	boom := errors.New("boom")
	if err := NewLimiter(0).Run(context.Background(), func() error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}

	var nilLimiter *Limiter
	called := false
	if err := nilLimiter.Run(context.Background(), func() error { called = true; return nil }); err != nil || !called {
		t.Fatalf("nil limiter: err = %v, called = %v", err, called)
	}
}
