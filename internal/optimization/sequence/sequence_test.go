package sequence

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/distinct/internal/colorspace"
	"github.com/copyleftdev/distinct/internal/optimization/deltae"
)

func TestRearrangeGrays(t *testing.T) {
	colors := []colorspace.Color{
		colorspace.White(),
		colorspace.Graytone(0.25),
		colorspace.Graytone(0.5),
		colorspace.Graytone(0.8),
		colorspace.Black(),
	}

	got := Rearrange(colors, deltae.CIE76, 0)

	assert.Equal(t, []colorspace.Color{
		colorspace.White(),
		colorspace.Black(),
		colorspace.Graytone(0.5),
		colorspace.Graytone(0.25),
		colorspace.Graytone(0.8),
	}, got)

	// input untouched
	assert.Equal(t, colorspace.Graytone(0.25), colors[1])
}

func TestOrderIsPermutation(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for _, n := range []int{0, 1, 2, 5, 17} {
		labs := make([]colorspace.Lab, n)
		for i := range labs {
			labs[i] = colorspace.UniformRGB{}.Generate(rng).Lab()
		}

		perm := Order(labs, deltae.CIEDE2000, 0)
		require.Len(t, perm, n)

		seen := make(map[int]bool, n)
		for _, p := range perm {
			assert.False(t, seen[p], "index %d repeated", p)
			seen[p] = true
		}
		if n > 0 {
			assert.Equal(t, 0, perm[0])
		}
	}
}

func TestOrderFarthestFirst(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	labs := make([]colorspace.Lab, 12)
	for i := range labs {
		labs[i] = colorspace.UniformRGB{}.Generate(rng).Lab()
	}
	metric := deltae.CIEDE2000

	perm := Order(labs, metric, 0)

	// every placed color is at least as far from its predecessors as any
	// color placed after it was at that point
	for i := 1; i < len(perm); i++ {
		nearest := func(k int) float64 {
			d := math.Inf(1)
			for _, p := range perm[:i] {
				d = math.Min(d, metric.Distance(labs[k], labs[p]))
			}
			return d
		}
		chosen := nearest(perm[i])
		for _, later := range perm[i+1:] {
			assert.GreaterOrEqual(t, chosen, nearest(later))
		}
	}
}

func TestOrderKeepsPinnedPrefix(t *testing.T) {
	colors := []colorspace.Color{
		colorspace.Graytone(0.5),
		colorspace.Graytone(0.52),
		colorspace.White(),
		colorspace.Graytone(0.25),
		colorspace.Black(),
	}

	got := Rearrange(colors, deltae.CIE76, 2)

	assert.Equal(t, colors[:2], got[:2])
	assert.ElementsMatch(t, colors, got)
	// black is farthest from the two mid grays
	assert.Equal(t, colorspace.Black(), got[2])
}

func TestOrderPinnedBeyondLength(t *testing.T) {
	labs := []colorspace.Lab{colorspace.White().Lab(), colorspace.Black().Lab()}
	assert.Equal(t, []int{0, 1}, Order(labs, deltae.CIE76, 10))
}
