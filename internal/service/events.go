package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/Strob0t/nextup/internal/port/messagequeue"
	"github.com/Strob0t/nextup/internal/resilience"
)

// EventPublisher publishes change events for the realtime relay. Failures
// are logged and never fail the request that caused them. A nil
// EventPublisher publishes nothing.
type EventPublisher struct {
	queue   messagequeue.Queue
	breaker *resilience.Breaker
}

// NewEventPublisher creates a publisher. breaker may be nil.
func NewEventPublisher(queue messagequeue.Queue, breaker *resilience.Breaker) *EventPublisher {
	return &EventPublisher{queue: queue, breaker: breaker}
}

func (p *EventPublisher) publish(ctx context.Context, subject string, payload any) {
	if p == nil || p.queue == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		slog.ErrorContext(ctx, "marshal event", "subject", subject, "error", err)
		return
	}
	send := func() error { return p.queue.Publish(ctx, subject, data) }
	if p.breaker != nil {
		err = p.breaker.Execute(send)
	} else {
		err = send()
	}
	switch {
	case errors.Is(err, resilience.ErrCircuitOpen):
		slog.DebugContext(ctx, "event dropped, circuit open", "subject", subject)
	case err != nil:
		slog.WarnContext(ctx, "publish event failed", "subject", subject, "error", err)
	}
}
