package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Strob0t/nextup/internal/domain"
	"github.com/Strob0t/nextup/internal/domain/note"
	"github.com/Strob0t/nextup/internal/port/database"
	"github.com/Strob0t/nextup/internal/port/messagequeue"
)

// NoteService manages free-form notes.
type NoteService struct {
	store  database.Store
	events *EventPublisher
}

// NewNoteService creates a NoteService.
func NewNoteService(store database.Store, events *EventPublisher) *NoteService {
	return &NoteService{store: store, events: events}
}

// List returns the user's notes, most recently edited first.
func (s *NoteService) List(ctx context.Context) ([]note.Note, error) {
	return s.store.ListNotes(ctx)
}

// Get returns a single note.
func (s *NoteService) Get(ctx context.Context, id string) (*note.Note, error) {
	return s.store.GetNote(ctx, id)
}

// Create adds a note.
func (s *NoteService) Create(ctx context.Context, req *note.CreateRequest) (*note.Note, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	n := &note.Note{ID: uuid.NewString(), Title: req.Title, Content: req.Content}
	if err := s.store.CreateNote(ctx, n); err != nil {
		return nil, err
	}
	s.publish(ctx, n, "created")
	return n, nil
}

// Update applies a partial update.
func (s *NoteService) Update(ctx context.Context, id string, req *note.UpdateRequest) (*note.Note, error) {
	n, err := s.store.GetNote(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := req.Apply(n); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	if err := s.store.UpdateNote(ctx, n); err != nil {
		return nil, err
	}
	s.publish(ctx, n, "updated")
	return n, nil
}

// Delete removes a note.
func (s *NoteService) Delete(ctx context.Context, id string) error {
	n, err := s.store.GetNote(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteNote(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, n, "deleted")
	return nil
}

func (s *NoteService) publish(ctx context.Context, n *note.Note, action string) {
	s.events.publish(ctx, messagequeue.SubjectNoteChanged, messagequeue.ResourceChangedPayload{
		UserID: n.UserID,
		ID:     n.ID,
		Action: action,
	})
}
