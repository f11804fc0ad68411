// Package annealing spreads a set of colors apart in perceptual space with
// simulated annealing over nearest-neighbor distances.
package annealing

import (
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/copyleftdev/distinct/internal/colorspace"
	"github.com/copyleftdev/distinct/internal/optimization"
	"github.com/copyleftdev/distinct/internal/optimization/acceptance"
)

const (
	// Iterations between two observer snapshots
	SnapshotInterval = 5000

	// Iterations between two temperature reductions
	CoolingInterval = 1000

	// Largest per-channel offset of a local move
	MaxLocalStep = 9
)

// State is the lifecycle state of an optimizer
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// SimulatedAnnealing owns a working color set and perturbs it one color at a
// time. It is not safe for concurrent use, except for Stop and State.
type SimulatedAnnealing struct {
	// Working set and its L*a*b* coordinates, index-aligned
	colors []colorspace.Color
	labs   []colorspace.Lab

	// Current temperature
	temperature float64

	// Random number generator, the only source of randomness
	rng *rand.Rand

	// Decides whether a non-improving candidate is kept
	criterion acceptance.Criterion

	// Global mode candidate source
	strategy colorspace.Strategy

	// Accepted moves over the lifetime of the optimizer
	accepted int

	state   atomic.Int32
	stopped atomic.Bool
}

var _ optimization.Optimizer = (*SimulatedAnnealing)(nil)

// New creates an optimizer over a copy of colors. A nil rng is replaced by
// a time-seeded one. It panics when fewer than two colors are given.
func New(colors []colorspace.Color, rng *rand.Rand) *SimulatedAnnealing {
	if len(colors) < 2 {
		panic(fmt.Sprintf("annealing: need at least two colors, got %d", len(colors)))
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	sa := &SimulatedAnnealing{
		colors:    append([]colorspace.Color(nil), colors...),
		labs:      make([]colorspace.Lab, len(colors)),
		rng:       rng,
		criterion: acceptance.Metropolis{},
		strategy:  colorspace.UniformRGB{},
	}
	for i, c := range sa.colors {
		sa.labs[i] = c.Lab()
	}
	return sa
}

// Colors returns a copy of the working set
func (sa *SimulatedAnnealing) Colors() []colorspace.Color {
	return append([]colorspace.Color(nil), sa.colors...)
}

// Temperature returns the temperature at the end of the last pass
func (sa *SimulatedAnnealing) Temperature() float64 {
	return sa.temperature
}

// Accepted returns the number of accepted moves so far
func (sa *SimulatedAnnealing) Accepted() int {
	return sa.accepted
}

// State reports whether a pass is in progress
func (sa *SimulatedAnnealing) State() State {
	return State(sa.state.Load())
}

// Stop makes the current pass, and any later one, return after at most one
// more iteration. It may be called from another goroutine.
func (sa *SimulatedAnnealing) Stop() {
	sa.stopped.Store(true)
}

// Run performs params.Iterations perturbation trials and returns the
// statistics of the final color set. The temperature restarts from
// params.InitialTemperature on every call. When every color is fixed the
// set is left untouched and no randomness is consumed.
//
// It panics if params.NumFixed is negative or exceeds the number of colors.
func (sa *SimulatedAnnealing) Run(params optimization.Parameters, observer optimization.Observer) optimization.Statistics {
	n := len(sa.colors)
	if params.NumFixed < 0 || params.NumFixed > n {
		panic(fmt.Sprintf("annealing: %d fixed colors out of %d", params.NumFixed, n))
	}

	sa.state.Store(int32(StateRunning))
	defer sa.state.Store(int32(StateCompleted))

	sa.temperature = params.InitialTemperature

	result := newDistanceResult(sa.labs, params.Metric, params.NumFixed)
	if params.NumFixed == n {
		return result.Statistics()
	}
	candidate := result.clone()

	for iter := 0; iter < params.Iterations; iter++ {
		if sa.stopped.Load() {
			break
		}

		index := sa.pickIndex(params, result)

		prevColor, prevLab := sa.colors[index], sa.labs[index]
		next := sa.perturb(prevColor, params.Mode)
		sa.colors[index], sa.labs[index] = next, next.Lab()

		candidate.copyFrom(result)
		candidate.update(sa.labs, index)

		if sa.criterion.Accept(result.score(params.Target), candidate.score(params.Target), sa.temperature, sa.rng) {
			result, candidate = candidate, result
			sa.accepted++
		} else {
			sa.colors[index], sa.labs[index] = prevColor, prevLab
		}

		if observer != nil && iter%SnapshotInterval == 0 {
			observer(optimization.Snapshot{
				Iteration:   iter,
				Temperature: sa.temperature,
				Statistics:  result.Statistics(),
				Colors:      sa.Colors(),
				Distances:   result.distances(),
			})
		}

		if iter%CoolingInterval == 0 {
			sa.temperature *= params.CoolingRate
		}
	}

	return result.Statistics()
}

// pickIndex chooses the color to perturb. The mean target picks any
// non-fixed color; the min target picks an endpoint of the closest pair that
// is not fixed.
func (sa *SimulatedAnnealing) pickIndex(params optimization.Parameters, result *DistanceResult) int {
	if params.Target == optimization.TargetMean {
		return params.NumFixed + sa.rng.Intn(len(sa.colors)-params.NumFixed)
	}

	a, b := result.closestPair[0], result.closestPair[1]
	aFree, bFree := a >= params.NumFixed, b >= params.NumFixed
	switch {
	case aFree && bFree:
		if sa.rng.Intn(2) == 0 {
			return a
		}
		return b
	case aFree:
		return a
	case bFree:
		return b
	default:
		panic(fmt.Sprintf("annealing: closest pair (%d, %d) has no free color", a, b))
	}
}

// perturb produces the candidate replacement for c.
func (sa *SimulatedAnnealing) perturb(c colorspace.Color, mode optimization.Mode) colorspace.Color {
	if mode == optimization.ModeLocal {
		return c.Jitter(sa.rng, MaxLocalStep)
	}
	return sa.strategy.Generate(sa.rng)
}
