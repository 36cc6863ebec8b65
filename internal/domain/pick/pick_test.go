package pick

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seeded() *Picker {
	return New(rand.New(rand.NewPCG(1, 2)))
}

func TestOneEmpty(t *testing.T) {
	_, err := seeded().One(nil)
	assert.ErrorIs(t, err, ErrNothingToSelect)

	_, err = seeded().N(map[string]float64{}, 3)
	assert.ErrorIs(t, err, ErrNothingToSelect)
}

func TestOneNeverPicksZeroWhenPositiveExists(t *testing.T) {
	p := seeded()
	weights := map[string]float64{"zero": 0, "neg": -1, "pos": 0.001}
	for range 2000 {
		got, err := p.One(weights)
		require.NoError(t, err)
		require.Equal(t, "pos", got)
	}
}

func TestOneAllZeroIsUniform(t *testing.T) {
	p := seeded()
	weights := map[string]float64{"a": 0, "b": 0}
	counts := map[string]int{}
	for range 4000 {
		got, err := p.One(weights)
		require.NoError(t, err)
		counts[got]++
	}
	assert.InDelta(t, 2000, counts["a"], 250)
	assert.InDelta(t, 2000, counts["b"], 250)
}

func TestOneSingleZeroCandidate(t *testing.T) {
	got, err := seeded().One(map[string]float64{"only": 0})
	require.NoError(t, err)
	assert.Equal(t, "only", got)
}

func TestOneProportional(t *testing.T) {
	p := seeded()
	weights := map[string]float64{"a": 1, "b": 1, "c": 2}
	counts := map[string]int{}
	const draws = 20000
	for range draws {
		got, err := p.One(weights)
		require.NoError(t, err)
		counts[got]++
	}
	assert.InDelta(t, draws/4, counts["a"], 600, "ties split equally")
	assert.InDelta(t, draws/4, counts["b"], 600, "ties split equally")
	assert.InDelta(t, draws/2, counts["c"], 600)
}

func TestNDistinct(t *testing.T) {
	p := seeded()
	weights := map[string]float64{"a": 0.5, "b": 0.2, "c": 0, "d": 0.9}

	got, err := p.N(weights, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.ElementsMatch(t, []string{"a", "b", "d"}, got, "zero weight is drawn only after all positive ones")

	all, err := p.N(weights, 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b", "c", "d"}, all)
	assert.Equal(t, "c", all[3])
}

func TestNDoesNotMutateInput(t *testing.T) {
	weights := map[string]float64{"a": 1, "b": 2}
	_, err := seeded().N(weights, 2)
	require.NoError(t, err)
	assert.Len(t, weights, 2)
}

func TestSeededIsReproducible(t *testing.T) {
	weights := map[string]float64{"a": 0.3, "b": 0.3, "c": 0.4}
	first, err := seeded().N(weights, 3)
	require.NoError(t, err)
	second, err := seeded().N(weights, 3)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
