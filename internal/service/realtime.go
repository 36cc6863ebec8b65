package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Strob0t/nextup/internal/port/broadcast"
	"github.com/Strob0t/nextup/internal/port/messagequeue"
)

// relaySubjects are forwarded to connected clients.
var relaySubjects = []string{
	messagequeue.SubjectAllTodos,
	messagequeue.SubjectAllHabits,
	messagequeue.SubjectAllFuns,
	messagequeue.SubjectAllNotes,
}

// RealtimeService forwards change events from the queue to the websocket
// connections of the user who owns the changed data, so every open tab
// and every server instance sees the change.
type RealtimeService struct {
	queue messagequeue.Queue
	hub   broadcast.Broadcaster
}

// NewRealtimeService creates a RealtimeService.
func NewRealtimeService(queue messagequeue.Queue, hub broadcast.Broadcaster) *RealtimeService {
	return &RealtimeService{queue: queue, hub: hub}
}

// Start subscribes to every relayed subject. The returned function
// cancels all subscriptions.
func (s *RealtimeService) Start(ctx context.Context) (func(), error) {
	var cancels []func()
	stop := func() {
		for _, c := range cancels {
			c()
		}
	}
	for _, subj := range relaySubjects {
		cancel, err := s.queue.Subscribe(ctx, subj, s.handle)
		if err != nil {
			stop()
			return nil, fmt.Errorf("subscribe %s: %w", subj, err)
		}
		cancels = append(cancels, cancel)
	}
	slog.Info("realtime relay started", "subjects", relaySubjects)
	return stop, nil
}

func (s *RealtimeService) handle(ctx context.Context, subject string, data []byte) error {
	var owner messagequeue.Owned
	if err := json.Unmarshal(data, &owner); err != nil {
		return fmt.Errorf("decode owner: %w", err)
	}
	if owner.UserID == "" {
		return errors.New("event has no user_id")
	}
	s.hub.SendToUser(ctx, owner.UserID, subject, json.RawMessage(data))
	return nil
}
