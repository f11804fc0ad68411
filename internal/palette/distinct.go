// Package palette generates sets of perceptually distinct colors.
package palette

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/copyleftdev/distinct/internal/colorspace"
	"github.com/copyleftdev/distinct/internal/optimization"
	"github.com/copyleftdev/distinct/internal/optimization/annealing"
	"github.com/copyleftdev/distinct/internal/optimization/deltae"
	"github.com/copyleftdev/distinct/internal/optimization/sequence"
)

// DefaultGlobalSchedule is the broad first pass: hot, slowly cooling.
var DefaultGlobalSchedule = optimization.Schedule{
	InitialTemperature: 3.0,
	CoolingRate:        0.95,
	Iterations:         100_000,
}

// DefaultLocalSchedule is the polishing second pass.
var DefaultLocalSchedule = optimization.Schedule{
	InitialTemperature: 0.5,
	CoolingRate:        0.98,
	Iterations:         200_000,
}

// Phase identifies one of the two annealing passes.
type Phase string

const (
	PhaseGlobal Phase = "global"
	PhaseLocal  Phase = "local"
)

// Progress is a snapshot tagged with the pass it belongs to.
type Progress struct {
	Phase Phase
	optimization.Snapshot
}

// Request describes one palette generation.
type Request struct {
	// Number of colors to produce, at least 2
	Count int

	// Distance metric for the whole run
	Metric deltae.Metric

	// Colors that must appear, unchanged, at the start of the result
	Fixed []colorspace.Color

	// Source of the initial random colors; UniformRGB when nil
	Fill colorspace.Strategy

	// Pass schedules; the defaults are used for zero values
	Global optimization.Schedule
	Local  optimization.Schedule

	// Seed for the random number generator; 0 seeds from the clock
	Seed int64

	// Receives progress snapshots, synchronously
	Observer func(Progress)

	// Debug output; a no-op logger when nil
	Logger *zap.Logger
}

// Result is the ordered palette with its final distance statistics.
type Result struct {
	Colors     []colorspace.Color     `json:"colors"`
	Statistics optimization.Statistics `json:"statistics"`
	Metric     deltae.Metric           `json:"metric"`
	Accepted   int                     `json:"accepted_moves"`
}

// Validate checks the request preconditions.
func (r *Request) Validate() error {
	if r.Count < 2 {
		return optimization.NewErrorf("need at least two colors, got %d", r.Count).
			WithOperation("validate").WithComponent("palette")
	}
	if len(r.Fixed) > r.Count {
		return optimization.NewErrorf("%d fixed colors exceed the requested count %d", len(r.Fixed), r.Count).
			WithOperation("validate").WithComponent("palette")
	}
	if r.Metric != deltae.CIE76 && r.Metric != deltae.CIEDE2000 {
		return optimization.NewErrorf("unknown metric %v", r.Metric).
			WithOperation("validate").WithComponent("palette")
	}
	return nil
}

// Distinct fills the request up with random colors, spreads them apart with
// a global mean-maximizing pass followed by a local min-maximizing pass, and
// orders the result farthest-first. The fixed colors keep their positions.
//
// Cancelling ctx stops the running pass; the context error is returned.
func Distinct(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger := req.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	fill := req.Fill
	if fill == nil {
		fill = colorspace.UniformRGB{}
	}
	seed := req.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	numFixed := len(req.Fixed)
	colors := make([]colorspace.Color, 0, req.Count)
	colors = append(colors, req.Fixed...)
	for len(colors) < req.Count {
		colors = append(colors, fill.Generate(rng))
	}

	sa := annealing.New(colors, rng)
	stop := context.AfterFunc(ctx, sa.Stop)
	defer stop()

	logger.Debug("starting palette generation",
		zap.Int("count", req.Count),
		zap.Int("fixed", numFixed),
		zap.Stringer("metric", req.Metric),
		zap.Int64("seed", seed))

	// The same parameter value drives both passes; only the fields that
	// differ between the global and the local pass are rewritten.
	params := optimization.Parameters{
		Schedule: orDefault(req.Global, DefaultGlobalSchedule),
		Target:   optimization.TargetMean,
		Mode:     optimization.ModeGlobal,
		Metric:   req.Metric,
		NumFixed: numFixed,
	}
	stats := sa.Run(params, observe(PhaseGlobal, req.Observer, logger))
	logPhase(logger, PhaseGlobal, stats)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	params.Schedule = orDefault(req.Local, DefaultLocalSchedule)
	params.Target = optimization.TargetMin
	params.Mode = optimization.ModeLocal
	stats = sa.Run(params, observe(PhaseLocal, req.Observer, logger))
	logPhase(logger, PhaseLocal, stats)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	final := sa.Colors()
	labs := make([]colorspace.Lab, len(final))
	for i, c := range final {
		labs[i] = c.Lab()
	}
	perm := sequence.Order(labs, req.Metric, numFixed)

	ordered := make([]colorspace.Color, len(final))
	position := make([]int, len(final))
	for i, p := range perm {
		ordered[i] = final[p]
		position[p] = i
	}
	stats.ClosestPair = [2]int{position[stats.ClosestPair[0]], position[stats.ClosestPair[1]]}

	return &Result{
		Colors:     ordered,
		Statistics: stats,
		Metric:     req.Metric,
		Accepted:   sa.Accepted(),
	}, nil
}

func orDefault(s, def optimization.Schedule) optimization.Schedule {
	if s == (optimization.Schedule{}) {
		return def
	}
	return s
}

func observe(phase Phase, observer func(Progress), logger *zap.Logger) optimization.Observer {
	return func(s optimization.Snapshot) {
		if ce := logger.Check(zap.DebugLevel, "annealing progress"); ce != nil {
			mean, std := s.Statistics.Mean, 0.0
			if len(s.Distances) > 1 {
				mean, std = stat.MeanStdDev(s.Distances, nil)
			}
			ce.Write(
				zap.String("phase", string(phase)),
				zap.Int("iteration", s.Iteration),
				zap.Float64("temperature", s.Temperature),
				zap.Float64("d_mean", mean),
				zap.Float64("d_std", std),
				zap.Float64("d_min", s.Statistics.Min),
			)
		}
		if observer != nil {
			observer(Progress{Phase: phase, Snapshot: s})
		}
	}
}

func logPhase(logger *zap.Logger, phase Phase, stats optimization.Statistics) {
	logger.Debug("annealing pass finished",
		zap.String("phase", string(phase)),
		zap.Float64("d_mean", stats.Mean),
		zap.Float64("d_min", stats.Min),
		zap.Ints("closest_pair", stats.ClosestPair[:]))
}
