// Package sequence orders a palette so that every prefix of it is as spread
// out as possible (farthest-first traversal).
package sequence

import (
	"math"

	"github.com/copyleftdev/distinct/internal/colorspace"
	"github.com/copyleftdev/distinct/internal/optimization/deltae"
)

// Order returns a permutation of labs: position i holds the index of the
// color that, among those not yet placed, is farthest from its nearest
// already-placed color. The first max(1, pinned) colors keep their position.
// Ties go to the first candidate found. This is a greedy heuristic and does
// not maximize every prefix simultaneously.
func Order(labs []colorspace.Lab, metric deltae.Metric, pinned int) []int {
	n := len(labs)
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	if n == 0 {
		return perm
	}
	pinned = min(max(pinned, 1), n)

	// minDist[j] is the distance from perm[j] to the closest color placed so far
	minDist := make([]float64, n)
	for j := range minDist {
		minDist[j] = math.Inf(1)
	}

	for i := 1; i < n; i++ {
		last := labs[perm[i-1]]
		best, bestDist := i, math.Inf(-1)

		for j := i; j < n; j++ {
			minDist[j] = math.Min(minDist[j], metric.Distance(labs[perm[j]], last))
			if minDist[j] > bestDist {
				best, bestDist = j, minDist[j]
			}
		}

		if i < pinned {
			continue
		}
		perm[i], perm[best] = perm[best], perm[i]
		minDist[i], minDist[best] = minDist[best], minDist[i]
	}
	return perm
}

// Rearrange returns colors reordered by Order.
func Rearrange(colors []colorspace.Color, metric deltae.Metric, pinned int) []colorspace.Color {
	labs := make([]colorspace.Lab, len(colors))
	for i, c := range colors {
		labs[i] = c.Lab()
	}

	out := make([]colorspace.Color, len(colors))
	for i, p := range Order(labs, metric, pinned) {
		out[i] = colors[p]
	}
	return out
}
