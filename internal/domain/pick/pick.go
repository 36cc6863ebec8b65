// Package pick draws items at random with probability proportional to a
// non-negative weight.
package pick

import (
	"errors"
	"math/rand/v2"
	"slices"
)

// ErrNothingToSelect is returned when there are no candidates to draw from.
var ErrNothingToSelect = errors.New("nothing to select")

// Picker draws weighted samples from a random source.
type Picker struct {
	rng *rand.Rand
}

// New returns a Picker using rng. A nil rng uses a randomly seeded source.
func New(rng *rand.Rand) *Picker {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Picker{rng: rng}
}

// One draws a single key from weights. Keys with weight 0 are never drawn
// unless every candidate weighs 0, in which case the draw is uniform.
// Negative weights count as 0.
func (p *Picker) One(weights map[string]float64) (string, error) {
	keys := sortedKeys(weights)
	if len(keys) == 0 {
		return "", ErrNothingToSelect
	}
	return keys[p.index(keys, weights)], nil
}

// N draws up to n distinct keys without replacement, most recent draw
// last. It returns ErrNothingToSelect only when weights is empty.
func (p *Picker) N(weights map[string]float64, n int) ([]string, error) {
	keys := sortedKeys(weights)
	if len(keys) == 0 {
		return nil, ErrNothingToSelect
	}
	if n > len(keys) {
		n = len(keys)
	}
	out := make([]string, 0, n)
	for range n {
		i := p.index(keys, weights)
		out = append(out, keys[i])
		keys = slices.Delete(keys, i, i+1)
	}
	return out, nil
}

func (p *Picker) index(keys []string, weights map[string]float64) int {
	var total float64
	for _, k := range keys {
		total += weight(weights[k])
	}
	if total == 0 {
		return p.rng.IntN(len(keys))
	}
	r := p.rng.Float64() * total
	last := 0
	for i, k := range keys {
		w := weight(weights[k])
		if w == 0 {
			continue
		}
		last = i
		if r < w {
			return i
		}
		r -= w
	}
	// Rounding can leave r just above the final weight.
	return last
}

func weight(w float64) float64 {
	if w > 0 {
		return w
	}
	return 0
}

// sortedKeys gives a stable iteration order so a seeded source is
// reproducible.
func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
