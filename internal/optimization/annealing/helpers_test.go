package annealing

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/stat"

	"github.com/copyleftdev/distinct/internal/colorspace"
	"github.com/copyleftdev/distinct/internal/optimization/deltae"
)

// randomColors draws n colors uniformly over the RGB gamut
func randomColors(rng *rand.Rand, n int) []colorspace.Color {
	colors := make([]colorspace.Color, n)
	for i := range colors {
		colors[i] = colorspace.UniformRGB{}.Generate(rng)
	}
	return colors
}

func labsOf(colors []colorspace.Color) []colorspace.Lab {
	labs := make([]colorspace.Lab, len(colors))
	for i, c := range colors {
		labs[i] = c.Lab()
	}
	return labs
}

// bruteForceClosest is the O(N²) oracle for a single color
func bruteForceClosest(labs []colorspace.Lab, metric deltae.Metric, i int) float64 {
	best := math.Inf(1)
	for j := range labs {
		if j == i {
			continue
		}
		best = math.Min(best, metric.Distance(labs[i], labs[j]))
	}
	return best
}

// bruteForceTotals recomputes mean and min from scratch, skipping
// fixed-fixed pairs for the minimum
func bruteForceTotals(labs []colorspace.Lab, metric deltae.Metric, numFixed int) (mean, min float64) {
	var free []float64
	min = math.Inf(1)
	for i := range labs {
		for j := range labs {
			if i == j || (i < numFixed && j < numFixed) {
				continue
			}
			min = math.Min(min, metric.Distance(labs[i], labs[j]))
		}
		if i >= numFixed {
			free = append(free, bruteForceClosest(labs, metric, i))
		}
	}
	return stat.Mean(free, nil), min
}

// assertCacheConsistent checks every scored cache entry against the oracle
func assertCacheConsistent(t *testing.T, r *DistanceResult, labs []colorspace.Lab, tol float64) {
	t.Helper()

	for i := r.numFixed; i < len(labs); i++ {
		got, neighbor := r.ClosestDistance(i)
		want := bruteForceClosest(labs, r.metric, i)
		if math.Abs(got-want) > tol {
			t.Fatalf("closest distance of %d: got %v, want %v (tolerance %v)", i, got, want, tol)
		}
		if neighbor == i || neighbor < 0 || neighbor >= len(labs) {
			t.Fatalf("closest neighbor of %d is invalid: %d", i, neighbor)
		}
		if d := r.metric.Distance(labs[i], labs[neighbor]); math.Abs(d-got) > tol {
			t.Fatalf("neighbor %d of %d is at %v, cache says %v", neighbor, i, d, got)
		}
	}
}
