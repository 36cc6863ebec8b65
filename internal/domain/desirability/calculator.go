package desirability

import (
	"slices"

	"github.com/Strob0t/nextup/internal/domain/todo"
)

// OrderMap maps a todo id to its 0-based position in a priority-ordered
// list.
type OrderMap map[string]int

// AnnotateOrder returns the input position of every todo.
func AnnotateOrder(todos []todo.Todo) OrderMap {
	m := make(OrderMap, len(todos))
	for i := range todos {
		m[todos[i].ID] = i
	}
	return m
}

// Scores maps a todo id to its score. A nil value means the todo has no
// time estimate and cannot be picked.
type Scores map[string]*float64

// Components are the normalized inputs of one score.
type Components struct {
	Importance   float64 `json:"importance"`
	Annoyingness float64 `json:"annoyingness"`
	TimeEstimate float64 `json:"time_estimate"`
	Priority     float64 `json:"priority"`
}

// Calculator scores todos with a fixed Config.
type Calculator struct {
	cfg Config
}

// NewCalculator returns a Calculator using cfg.
func NewCalculator(cfg Config) *Calculator {
	return &Calculator{cfg: cfg}
}

// Components returns the four normalized inputs for t.
func (c *Calculator) Components(t *todo.Todo, orders OrderMap, maxOrder int, limit todo.TimeEstimate) Components {
	return Components{
		Importance:   NormalizeImportance(t.Importance),
		Annoyingness: NormalizeAnnoyingness(t.Annoyingness),
		TimeEstimate: c.cfg.NormalizeTimeEstimate(t.TimeEstimate, limit),
		Priority:     c.cfg.NormalizeOrder(t.ID, orders, maxOrder),
	}
}

// Score returns the desirability of t, or nil when t has no time estimate.
// limit is the largest estimate considered; larger estimates score 0 on
// the time component.
func (c *Calculator) Score(t *todo.Todo, orders OrderMap, maxOrder int, limit todo.TimeEstimate) *float64 {
	if t.TimeEstimate == nil {
		return nil
	}
	comp := c.Components(t, orders, maxOrder, limit)
	raw := comp.Importance*c.cfg.ImportanceMultiplier +
		comp.Annoyingness*c.cfg.AnnoyingnessMultiplier +
		comp.TimeEstimate*c.cfg.TimeEstimateMultiplier +
		comp.Priority*c.cfg.PriorityMultiplier

	var norm float64
	if sum := c.cfg.maxSum(); sum != 0 {
		norm = raw / sum
	}
	s := Curve(norm, c.cfg.DesirabilityExponent)
	return &s
}

// ScoreAll scores every todo against one shared order annotation. The
// input is sorted by order key first, so callers may pass todos in any
// order; an already sorted list is annotated as given.
func (c *Calculator) ScoreAll(todos []todo.Todo, limit todo.TimeEstimate) Scores {
	sorted := slices.Clone(todos)
	todo.SortByOrder(sorted)

	orders := AnnotateOrder(sorted)
	maxOrder := 0
	if len(sorted) > 0 {
		maxOrder = len(sorted) - 1
	}

	scores := make(Scores, len(sorted))
	for i := range sorted {
		scores[sorted[i].ID] = c.Score(&sorted[i], orders, maxOrder, limit)
	}
	return scores
}

// Candidates returns the non-nil scores as plain values.
func (s Scores) Candidates() map[string]float64 {
	out := make(map[string]float64, len(s))
	for id, v := range s {
		if v != nil {
			out[id] = *v
		}
	}
	return out
}
