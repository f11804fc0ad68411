package annealing

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/distinct/internal/colorspace"
	"github.com/copyleftdev/distinct/internal/optimization"
	"github.com/copyleftdev/distinct/internal/optimization/acceptance"
	"github.com/copyleftdev/distinct/internal/optimization/deltae"
)

func globalParams(iterations, numFixed int) optimization.Parameters {
	return optimization.Parameters{
		Schedule: optimization.Schedule{
			InitialTemperature: 3.0,
			CoolingRate:        0.95,
			Iterations:         iterations,
		},
		Target:   optimization.TargetMean,
		Mode:     optimization.ModeGlobal,
		Metric:   deltae.CIEDE2000,
		NumFixed: numFixed,
	}
}

func localParams(iterations, numFixed int) optimization.Parameters {
	return optimization.Parameters{
		Schedule: optimization.Schedule{
			InitialTemperature: 0.5,
			CoolingRate:        0.98,
			Iterations:         iterations,
		},
		Target:   optimization.TargetMin,
		Mode:     optimization.ModeLocal,
		Metric:   deltae.CIEDE2000,
		NumFixed: numFixed,
	}
}

func TestNew(t *testing.T) {
	colors := []colorspace.Color{colorspace.Black(), colorspace.White()}
	sa := New(colors, rand.New(rand.NewSource(1)))

	require.NotNil(t, sa)
	assert.Equal(t, StateIdle, sa.State())
	assert.Equal(t, colors, sa.Colors())

	// the optimizer works on its own copy
	colors[0] = colorspace.Graytone(0.5)
	assert.Equal(t, colorspace.Black(), sa.Colors()[0])

	got := sa.Colors()
	got[1] = colorspace.Black()
	assert.Equal(t, colorspace.White(), sa.Colors()[1])

	assert.NotNil(t, New(colors, nil).rng, "nil rng is replaced")
	assert.Panics(t, func() { New([]colorspace.Color{colorspace.Black()}, nil) })
}

func TestRunPanicsOnTooManyFixed(t *testing.T) {
	sa := New([]colorspace.Color{colorspace.Black(), colorspace.White()}, rand.New(rand.NewSource(1)))
	assert.Panics(t, func() { sa.Run(globalParams(10, 3), nil) })
	assert.Panics(t, func() { sa.Run(globalParams(10, -1), nil) })
}

func TestRunDeterministic(t *testing.T) {
	run := func() ([]colorspace.Color, optimization.Statistics, optimization.Statistics) {
		rng := rand.New(rand.NewSource(42))
		colors := randomColors(rng, 8)
		sa := New(colors, rng)
		first := sa.Run(globalParams(3000, 0), nil)
		second := sa.Run(localParams(3000, 0), nil)
		return sa.Colors(), first, second
	}

	colorsA, firstA, secondA := run()
	colorsB, firstB, secondB := run()

	assert.Equal(t, colorsA, colorsB)
	assert.Equal(t, firstA, firstB)
	assert.Equal(t, secondA, secondB)
}

func TestRunKeepsFixedColors(t *testing.T) {
	tests := []struct {
		name   string
		params optimization.Parameters
	}{
		{name: "global mean", params: globalParams(4000, 3)},
		{name: "local min", params: localParams(4000, 3)},
		{name: "global min", params: func() optimization.Parameters {
			p := globalParams(4000, 3)
			p.Target = optimization.TargetMin
			return p
		}()},
		{name: "local mean", params: func() optimization.Parameters {
			p := localParams(4000, 3)
			p.Target = optimization.TargetMean
			return p
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rng := rand.New(rand.NewSource(7))
			fixed := []colorspace.Color{
				colorspace.FromRGB(200, 10, 10),
				colorspace.FromRGB(201, 10, 10),
				colorspace.Color{R: 0, G: 0, B: 255, Alpha: 0.5},
			}
			colors := append(append([]colorspace.Color(nil), fixed...), randomColors(rng, 5)...)

			sa := New(colors, rng)
			stats := sa.Run(tt.params, nil)

			assert.Equal(t, fixed, sa.Colors()[:3])
			a, b := stats.ClosestPair[0], stats.ClosestPair[1]
			assert.False(t, a < 3 && b < 3, "closest pair (%d, %d) is fixed-fixed", a, b)
		})
	}
}

func TestRunAllFixedIsNoop(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	ref := rand.New(rand.NewSource(11))

	colors := []colorspace.Color{colorspace.Black(), colorspace.White(), colorspace.Graytone(0.5)}
	sa := New(colors, rng)

	calls := 0
	stats := sa.Run(globalParams(10000, 3), func(optimization.Snapshot) { calls++ })

	assert.Equal(t, colors, sa.Colors())
	assert.Equal(t, 0, calls)
	assert.Equal(t, StateCompleted, sa.State())

	want := newDistanceResult(labsOf(colors), deltae.CIEDE2000, 3).Statistics()
	assert.Equal(t, want, stats)

	// no randomness consumed
	assert.Equal(t, ref.Int63(), rng.Int63())
}

// recordingCriterion wraps Metropolis and records every decision
type recordingCriterion struct {
	inner     acceptance.Metropolis
	decisions []decision
}

type decision struct {
	current, candidate float64
	accepted           bool
}

func (r *recordingCriterion) Accept(current, candidate, temperature float64, rng *rand.Rand) bool {
	ok := r.inner.Accept(current, candidate, temperature, rng)
	r.decisions = append(r.decisions, decision{current: current, candidate: candidate, accepted: ok})
	return ok
}

func TestRunImprovementsAreKept(t *testing.T) {
	for _, params := range []optimization.Parameters{globalParams(3000, 1), localParams(3000, 1)} {
		t.Run(params.Target.String(), func(t *testing.T) {
			rng := rand.New(rand.NewSource(5))
			sa := New(randomColors(rng, 7), rng)
			rec := &recordingCriterion{}
			sa.criterion = rec

			final := sa.Run(params, nil)

			require.Len(t, rec.decisions, params.Iterations)
			for k := 0; k+1 < len(rec.decisions); k++ {
				d, next := rec.decisions[k], rec.decisions[k+1]
				if d.candidate > d.current {
					require.True(t, d.accepted, "strict improvement rejected at %d", k)
					require.GreaterOrEqual(t, next.current, d.current, "objective decreased after improvement at %d", k)
				}
				if d.accepted {
					require.Equal(t, d.candidate, next.current)
				} else {
					require.Equal(t, d.current, next.current)
				}
			}

			last := rec.decisions[len(rec.decisions)-1]
			want := last.current
			if last.accepted {
				want = last.candidate
			}
			if params.Target == optimization.TargetMin {
				assert.Equal(t, want, final.Min)
			} else {
				assert.Equal(t, want, final.Mean)
			}
		})
	}
}

func TestRunCacheMatchesFinalColors(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	sa := New(randomColors(rng, 10), rng)

	sa.Run(globalParams(2000, 2), nil)
	stats := sa.Run(localParams(2000, 2), nil)

	mean, min := bruteForceTotals(labsOf(sa.Colors()), deltae.CIEDE2000, 2)
	assert.InDelta(t, mean, stats.Mean, 1e-9)
	assert.InDelta(t, min, stats.Min, 1e-9)
}

func TestRunImprovesSpread(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	colors := randomColors(rng, 6)

	initial := newDistanceResult(labsOf(colors), deltae.CIEDE2000, 0).Statistics()

	sa := New(colors, rng)
	sa.Run(globalParams(20000, 0), nil)
	stats := sa.Run(localParams(20000, 0), nil)

	assert.Greater(t, stats.Min, initial.Min)
	assert.Greater(t, sa.Accepted(), 0)
}

func TestRunSnapshots(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	sa := New(randomColors(rng, 5), rng)

	var snapshots []optimization.Snapshot
	params := globalParams(12000, 1)
	sa.Run(params, func(s optimization.Snapshot) {
		assert.Equal(t, StateRunning, sa.State())
		// mutating the snapshot must not reach the optimizer
		s.Colors[1] = colorspace.Black()
		s.Colors[2] = colorspace.Black()
		snapshots = append(snapshots, s)
	})

	require.Len(t, snapshots, 3)
	assert.Equal(t, 0, snapshots[0].Iteration)
	assert.Equal(t, 5000, snapshots[1].Iteration)
	assert.Equal(t, 10000, snapshots[2].Iteration)

	// cooling happens at iteration 0, after the first snapshot
	assert.Equal(t, params.InitialTemperature, snapshots[0].Temperature)
	assert.Less(t, snapshots[1].Temperature, snapshots[0].Temperature)

	for _, s := range snapshots {
		assert.Len(t, s.Colors, 5)
		assert.Len(t, s.Distances, 4)
	}
	assert.NotEqual(t, sa.Colors()[1], sa.Colors()[2])
	assert.Equal(t, StateCompleted, sa.State())
}

func TestRunRestartsTemperature(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	sa := New(randomColors(rng, 4), rng)

	params := globalParams(5000, 0)
	sa.Run(params, nil)
	cooled := sa.Temperature()
	assert.Less(t, cooled, params.InitialTemperature)

	var first float64
	seen := false
	params.InitialTemperature = 1.0
	sa.Run(params, func(s optimization.Snapshot) {
		if !seen {
			first, seen = s.Temperature, true
		}
	})
	assert.Equal(t, 1.0, first)
}

func TestStop(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	colors := randomColors(rng, 4)
	sa := New(colors, rng)

	calls := 0
	sa.Run(globalParams(100000, 0), func(s optimization.Snapshot) {
		calls++
		sa.Stop()
	})
	assert.Equal(t, 1, calls)
	assert.Equal(t, StateCompleted, sa.State())

	// later passes return at once
	before := sa.Colors()
	sa.Run(localParams(1000, 0), nil)
	assert.Equal(t, before, sa.Colors())
}
