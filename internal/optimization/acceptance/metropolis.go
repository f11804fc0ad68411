package acceptance

import (
	"math"
	"math/rand"
)

// Criterion decides whether a candidate score replaces the current one.
// Scores are maximized.
type Criterion interface {
	Accept(current, candidate, temperature float64, rng *rand.Rand) bool
}

// Metropolis implements the Metropolis acceptance rule for maximization
type Metropolis struct{}

// Probability returns the chance of accepting candidate over current at the
// given temperature. Strict improvements have probability 1. A tie is not an
// improvement and gets exp(0) = 1 only while the temperature is positive; at
// zero or negative temperature every non-improving move has probability 0.
func (Metropolis) Probability(current, candidate, temperature float64) float64 {
	if candidate > current {
		return 1
	}
	if temperature <= 0 {
		return 0
	}
	return math.Exp(-(current - candidate) / temperature)
}

// Accept applies the rule. A uniform value is drawn from rng only when the
// candidate is not a strict improvement and its probability is non-zero.
func (m Metropolis) Accept(current, candidate, temperature float64, rng *rand.Rand) bool {
	if candidate > current {
		return true
	}
	p := m.Probability(current, candidate, temperature)
	if p <= 0 {
		return false
	}
	return rng.Float64() <= p
}
