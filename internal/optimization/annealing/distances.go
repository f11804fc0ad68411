package annealing

import (
	"math"

	"github.com/copyleftdev/distinct/internal/colorspace"
	"github.com/copyleftdev/distinct/internal/optimization"
	"github.com/copyleftdev/distinct/internal/optimization/deltae"
)

// neighbor is the cached closest counterpart of one color.
type neighbor struct {
	distance float64
	index    int
}

var noNeighbor = neighbor{distance: math.Inf(1), index: -1}

// DistanceResult caches, for every color of a set, its nearest neighbor, and
// derives the aggregate statistics from that cache.
//
// Invariant: closest[i].distance is the minimum over j != i of
// metric.Distance(labs[i], labs[j]) and closest[i].index is the lowest j
// achieving it, whether the entry came from a full scan or an update.
type DistanceResult struct {
	closest  []neighbor
	metric   deltae.Metric
	numFixed int

	mean        float64
	min         float64
	closestPair [2]int

	// scratch for stale entries found during an update
	stale []int
}

// newDistanceResult builds the cache from scratch in O(N²).
func newDistanceResult(labs []colorspace.Lab, metric deltae.Metric, numFixed int) *DistanceResult {
	r := &DistanceResult{
		closest:     make([]neighbor, len(labs)),
		metric:      metric,
		numFixed:    numFixed,
		closestPair: [2]int{-1, -1},
		stale:       make([]int, 0, len(labs)),
	}
	for i := range r.closest {
		r.closest[i] = noNeighbor
	}
	for i := range labs {
		r.rebuild(labs, i)
	}
	r.updateTotals()
	return r
}

// copyFrom overwrites r with the state of src. Both must cover the same set.
func (r *DistanceResult) copyFrom(src *DistanceResult) {
	if cap(r.closest) < len(src.closest) {
		r.closest = make([]neighbor, len(src.closest))
	}
	r.closest = r.closest[:len(src.closest)]
	copy(r.closest, src.closest)
	r.metric = src.metric
	r.numFixed = src.numFixed
	r.mean = src.mean
	r.min = src.min
	r.closestPair = src.closestPair
}

// clone returns an independent copy of r.
func (r *DistanceResult) clone() *DistanceResult {
	c := &DistanceResult{stale: make([]int, 0, cap(r.stale))}
	c.copyFrom(r)
	return c
}

// update refreshes the cache after labs[changed] moved, then recomputes the
// totals.
func (r *DistanceResult) update(labs []colorspace.Lab, changed int) {
	r.updateDistances(labs, changed)
	r.updateTotals()
}

// updateDistances rescans the moved color and lets every other color compare
// against its new position. A color whose cached neighbor was the moved one
// and that is not closer to it now cannot be resolved from the cache alone;
// it is rebuilt with a full scan once all direct updates are done.
func (r *DistanceResult) updateDistances(labs []colorspace.Lab, changed int) {
	best := noNeighbor
	r.stale = r.stale[:0]

	for i := range labs {
		if i == changed {
			continue
		}

		d := r.metric.Distance(labs[i], labs[changed])
		if d < best.distance {
			best = neighbor{distance: d, index: i}
		}

		switch {
		case d < r.closest[i].distance,
			d == r.closest[i].distance && changed < r.closest[i].index:
			r.closest[i] = neighbor{distance: d, index: changed}
		case r.closest[i].index == changed:
			r.stale = append(r.stale, i)
		}
	}
	r.closest[changed] = best

	// i did not move, so nobody else's entry depends on rebuilding it
	for _, i := range r.stale {
		r.rebuild(labs, i)
	}
}

// rebuild recomputes the nearest neighbor of color i by a full scan. Ties go
// to the lowest index.
func (r *DistanceResult) rebuild(labs []colorspace.Lab, i int) {
	best := noNeighbor
	for j := range labs {
		if j == i {
			continue
		}
		if d := r.metric.Distance(labs[i], labs[j]); d < best.distance {
			best = neighbor{distance: d, index: j}
		}
	}
	r.closest[i] = best
}

// scoredFixed is the number of leading entries excluded from the totals.
// When every color is fixed nothing could be excluded meaningfully, so the
// totals then describe the whole set.
func (r *DistanceResult) scoredFixed() int {
	if r.numFixed >= len(r.closest) {
		return 0
	}
	return r.numFixed
}

// updateTotals derives mean, minimum and closest pair in O(N). Pairs of two
// fixed colors never count towards the minimum.
func (r *DistanceResult) updateTotals() {
	fixed := r.scoredFixed()

	sum := 0.0
	r.min = math.Inf(1)
	r.closestPair = [2]int{-1, -1}

	for i, nb := range r.closest {
		if i >= fixed {
			sum += nb.distance
		}
		if i < fixed && nb.index < fixed {
			continue
		}
		if nb.distance < r.min {
			r.min = nb.distance
			r.closestPair = [2]int{i, nb.index}
		}
	}

	if n := len(r.closest) - fixed; n > 0 {
		r.mean = sum / float64(n)
	} else {
		r.mean = 0
	}
}

// score returns the statistic a pass with the given target maximizes.
func (r *DistanceResult) score(target optimization.Target) float64 {
	if target == optimization.TargetMin {
		return r.min
	}
	return r.mean
}

// Statistics returns the aggregate values.
func (r *DistanceResult) Statistics() optimization.Statistics {
	return optimization.Statistics{
		Mean:        r.mean,
		Min:         r.min,
		ClosestPair: r.closestPair,
	}
}

// ClosestDistance returns the cached nearest-neighbor distance of color i
// and the index of that neighbor.
func (r *DistanceResult) ClosestDistance(i int) (float64, int) {
	nb := r.closest[i]
	return nb.distance, nb.index
}

// distances copies the nearest-neighbor distances of the scored colors.
func (r *DistanceResult) distances() []float64 {
	fixed := r.scoredFixed()
	out := make([]float64, 0, len(r.closest)-fixed)
	for _, nb := range r.closest[fixed:] {
		out = append(out, nb.distance)
	}
	return out
}
