package desirability

import (
	"math"

	"github.com/Strob0t/nextup/internal/domain/todo"
)

// Curve raises x to exp. For x in [0,1] and exp > 0 the result stays in
// [0,1] and is non-decreasing in x.
func Curve(x, exp float64) float64 {
	return math.Pow(x, exp)
}

func complement(x float64) float64 { return 1 - x }

// NormalizeImportance maps importance 0..5 to 0..1.
func NormalizeImportance(importance int) float64 {
	return float64(importance) / float64(todo.MaxImportance)
}

// NormalizeAnnoyingness maps annoyingness 0..4 to 1..0.
func NormalizeAnnoyingness(annoyingness int) float64 {
	return complement(float64(annoyingness) / float64(todo.MaxAnnoyingness))
}

// NormalizeTimeEstimate favours short estimates relative to limit. A
// missing estimate scores 0; a limit of rank 0 scores 1.
func (c Config) NormalizeTimeEstimate(e *todo.TimeEstimate, limit todo.TimeEstimate) float64 {
	if e == nil {
		return 0
	}
	if limit.Rank() == 0 {
		return 1
	}
	ratio := math.Min(float64(e.Rank())/float64(limit.Rank()), 1)
	return Curve(complement(ratio), c.TimeEstimateExponent)
}

// NormalizeOrder favours todos near the top of the list. Todos missing from
// orders, and any todo when maxOrder is 0, score 0.
func (c Config) NormalizeOrder(id string, orders OrderMap, maxOrder int) float64 {
	pos, ok := orders[id]
	if !ok || maxOrder == 0 {
		return 0
	}
	ratio := math.Min(float64(pos)/float64(maxOrder), 1)
	return Curve(complement(ratio), c.PriorityExponent)
}
