package optimization

import (
	"fmt"

	"github.com/copyleftdev/distinct/internal/colorspace"
	"github.com/copyleftdev/distinct/internal/optimization/deltae"
)

// Optimizer defines the interface for palette optimizers
type Optimizer interface {
	// Run performs one optimization pass over the working color set and
	// returns the final distance statistics
	Run(params Parameters, observer Observer) Statistics

	// Colors returns a copy of the current working color set
	Colors() []colorspace.Color

	// Stop asks a running pass to return after the current iteration
	Stop()
}

// Target is the objective a pass maximizes
type Target int

const (
	// TargetMean maximizes the mean nearest-neighbor distance
	TargetMean Target = iota
	// TargetMin maximizes the smallest nearest-neighbor distance
	TargetMin
)

func (t Target) String() string {
	switch t {
	case TargetMean:
		return "mean"
	case TargetMin:
		return "min"
	default:
		return fmt.Sprintf("Target(%d)", int(t))
	}
}

// Mode controls how a candidate replacement color is produced
type Mode int

const (
	// ModeGlobal resamples the color uniformly over the RGB gamut
	ModeGlobal Mode = iota
	// ModeLocal moves each RGB channel by a small random offset
	ModeLocal
)

func (m Mode) String() string {
	switch m {
	case ModeGlobal:
		return "global"
	case ModeLocal:
		return "local"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Schedule is the temperature schedule of a single pass
type Schedule struct {
	// Temperature at the start of the pass
	InitialTemperature float64 `json:"initial_temperature"`

	// Factor applied to the temperature every cooling interval
	CoolingRate float64 `json:"cooling_rate"`

	// Number of perturbation trials
	Iterations int `json:"iterations"`
}

// Parameters configures one call to Optimizer.Run. The same value is
// typically edited between passes to switch from a global to a local search.
type Parameters struct {
	Schedule

	// Objective of the pass
	Target Target

	// Candidate generation
	Mode Mode

	// Distance metric used for every evaluation in the pass
	Metric deltae.Metric

	// Number of leading colors that are never perturbed
	NumFixed int
}

// Statistics summarizes the nearest-neighbor distances of a color set
type Statistics struct {
	// Mean nearest-neighbor distance over the non-fixed colors
	Mean float64 `json:"mean_closest_distance"`

	// Smallest nearest-neighbor distance, ignoring pairs of two fixed colors
	Min float64 `json:"min_closest_distance"`

	// Indices of the two colors at distance Min
	ClosestPair [2]int `json:"closest_pair"`
}

// Snapshot is the progress report handed to an Observer. Colors and
// Distances are copies owned by the receiver.
type Snapshot struct {
	Iteration   int
	Temperature float64
	Statistics  Statistics
	Colors      []colorspace.Color

	// Nearest-neighbor distance of every non-fixed color
	Distances []float64
}

// Observer receives periodic snapshots, synchronously, on the optimizing
// goroutine.
type Observer func(Snapshot)
