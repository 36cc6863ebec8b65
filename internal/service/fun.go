package service

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"

	nxotel "github.com/Strob0t/nextup/internal/adapter/otel"
	"github.com/Strob0t/nextup/internal/config"
	"github.com/Strob0t/nextup/internal/domain"
	"github.com/Strob0t/nextup/internal/domain/desirability"
	"github.com/Strob0t/nextup/internal/domain/fun"
	"github.com/Strob0t/nextup/internal/domain/pick"
	"github.com/Strob0t/nextup/internal/domain/position"
	"github.com/Strob0t/nextup/internal/port/database"
	"github.com/Strob0t/nextup/internal/port/messagequeue"
)

// FunService manages the list of leisure activities.
type FunService struct {
	store     database.Store
	events    *EventPublisher
	cfg       *config.Holder
	metrics   *nxotel.Metrics
	newPicker func() *pick.Picker
}

// NewFunService creates a FunService.
func NewFunService(store database.Store, events *EventPublisher, cfg *config.Holder) *FunService {
	return &FunService{
		store:     store,
		events:    events,
		cfg:       cfg,
		newPicker: func() *pick.Picker { return pick.New(nil) },
	}
}

// SetMetrics enables pick metrics.
func (s *FunService) SetMetrics(m *nxotel.Metrics) { s.metrics = m }

// List returns the user's funs in order.
func (s *FunService) List(ctx context.Context) ([]fun.Fun, error) {
	return s.store.ListFuns(ctx)
}

// Get returns a single fun.
func (s *FunService) Get(ctx context.Context, id string) (*fun.Fun, error) {
	return s.store.GetFun(ctx, id)
}

// Create adds a fun at the requested position, the bottom by default.
func (s *FunService) Create(ctx context.Context, req *fun.CreateRequest) (*fun.Fun, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}

	f := &fun.Fun{ID: uuid.NewString(), Title: req.Title}
	err := withOrderRetry(ctx, s.maxRetries(), "create fun", func(int) error {
		funs, err := s.store.ListFuns(ctx)
		if err != nil {
			return err
		}
		f.Order, err = position.Key(req.Position, fun.Items(funs))
		if err != nil {
			return placementErr(err)
		}
		return s.store.CreateFun(ctx, f)
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, f, "created")
	return f, nil
}

// Update renames a fun.
func (s *FunService) Update(ctx context.Context, id string, req *fun.UpdateRequest) (*fun.Fun, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	f, err := s.store.GetFun(ctx, id)
	if err != nil {
		return nil, err
	}
	f.Title = req.Title
	if err := s.store.UpdateFun(ctx, f); err != nil {
		return nil, err
	}
	s.publish(ctx, f, "updated")
	return f, nil
}

// Delete removes a fun.
func (s *FunService) Delete(ctx context.Context, id string) error {
	f, err := s.store.GetFun(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteFun(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, f, "deleted")
	return nil
}

// Reorder moves a fun to a new position.
func (s *FunService) Reorder(ctx context.Context, id string, pos position.Position) (*fun.Fun, error) {
	if err := pos.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	if pos.Type == position.After && pos.ID == id {
		return nil, fmt.Errorf("%w: cannot place a fun after itself", domain.ErrValidation)
	}

	var moved *fun.Fun
	err := withOrderRetry(ctx, s.maxRetries(), "reorder fun", func(int) error {
		f, err := s.store.GetFun(ctx, id)
		if err != nil {
			return err
		}
		funs, err := s.store.ListFuns(ctx)
		if err != nil {
			return err
		}
		others := slices.DeleteFunc(funs, func(o fun.Fun) bool { return o.ID == id })
		f.Order, err = position.Key(pos, fun.Items(others))
		if err != nil {
			return placementErr(err)
		}
		if err := s.store.UpdateFun(ctx, f); err != nil {
			return err
		}
		moved = f
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, moved, "updated")
	return moved, nil
}

// WeightedRandom draws up to n distinct funs not in exclude. Funs near the
// top of the list are more likely; the weight follows the priority curve
// of the desirability config. If every remaining fun weighs 0 the draw is
// uniform.
func (s *FunService) WeightedRandom(ctx context.Context, n int, exclude []string) ([]fun.Fun, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: n must be at least 1", domain.ErrValidation)
	}
	ctx, span := nxotel.StartPickSpan(ctx, "funs", n)
	defer span.End()

	funs, err := s.store.ListFuns(ctx)
	if err != nil {
		return nil, err
	}

	orders := make(desirability.OrderMap, len(funs))
	for i := range funs {
		orders[funs[i].ID] = i
	}
	maxOrder := max(len(funs)-1, 0)
	scoring := s.cfg.Get().Scoring

	byID := make(map[string]fun.Fun, len(funs))
	weights := make(map[string]float64, len(funs))
	for _, f := range funs {
		if slices.Contains(exclude, f.ID) {
			continue
		}
		byID[f.ID] = f
		weights[f.ID] = scoring.NormalizeOrder(f.ID, orders, maxOrder)
	}

	ids, err := s.newPicker().N(weights, n)
	if err != nil {
		return nil, err
	}
	out := make([]fun.Fun, len(ids))
	scores := make([]float64, len(ids))
	for i, id := range ids {
		out[i] = byID[id]
		scores[i] = weights[id]
	}
	s.metrics.RecordPick(ctx, "funs", len(weights), scores...)
	return out, nil
}

func (s *FunService) maxRetries() int {
	return s.cfg.Get().Ordering.MaxRetries
}

func (s *FunService) publish(ctx context.Context, f *fun.Fun, action string) {
	s.events.publish(ctx, messagequeue.SubjectFunChanged, messagequeue.ResourceChangedPayload{
		UserID: f.UserID,
		ID:     f.ID,
		Action: action,
	})
}
