// Package desirability scores todos by how attractive they are to do next.
//
// A score combines four normalized components (importance, annoyingness,
// time estimate and list position) into a single value in [0,1]. Todos
// without a time estimate have no score.
package desirability

import "errors"

// Config holds the weights and curve exponents of the scoring formula.
type Config struct {
	ImportanceMultiplier   float64 `yaml:"importance_multiplier"`
	AnnoyingnessMultiplier float64 `yaml:"annoyingness_multiplier"`
	TimeEstimateMultiplier float64 `yaml:"time_estimate_multiplier"`
	PriorityMultiplier     float64 `yaml:"priority_multiplier"`

	// Higher exponents make the curve steeper, so top items dominate.
	PriorityExponent     float64 `yaml:"priority_exponent"`
	TimeEstimateExponent float64 `yaml:"time_estimate_exponent"`
	DesirabilityExponent float64 `yaml:"desirability_exponent"`
}

// DefaultConfig returns equal weights with steep priority and moderate
// time and overall curves.
func DefaultConfig() Config {
	return Config{
		ImportanceMultiplier:   1.0,
		AnnoyingnessMultiplier: 1.0,
		TimeEstimateMultiplier: 1.0,
		PriorityMultiplier:     1.0,
		PriorityExponent:       10.0,
		TimeEstimateExponent:   5.0,
		DesirabilityExponent:   5.0,
	}
}

// Validate rejects negative weights and non-positive exponents, either of
// which would break the [0,1] bound.
func (c Config) Validate() error {
	if c.ImportanceMultiplier < 0 || c.AnnoyingnessMultiplier < 0 ||
		c.TimeEstimateMultiplier < 0 || c.PriorityMultiplier < 0 {
		return errors.New("scoring multipliers must be >= 0")
	}
	if c.PriorityExponent <= 0 || c.TimeEstimateExponent <= 0 || c.DesirabilityExponent <= 0 {
		return errors.New("scoring exponents must be > 0")
	}
	return nil
}

func (c Config) maxSum() float64 {
	return c.ImportanceMultiplier + c.AnnoyingnessMultiplier + c.TimeEstimateMultiplier + c.PriorityMultiplier
}
