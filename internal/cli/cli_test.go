package cli

import (
	"bytes"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/distinct/internal/colorspace"
	"github.com/copyleftdev/distinct/internal/optimization"
	"github.com/copyleftdev/distinct/internal/palette"
)

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func lines(s string) []string {
	return strings.Split(strings.TrimRight(s, "\n"), "\n")
}

func TestDistinctCommand(t *testing.T) {
	out, stderr, err := run(t, "4", "#ff0000", "--metric", "cie76", "--seed", "3")
	require.NoError(t, err)
	assert.Empty(t, stderr)

	got := lines(out)
	require.Len(t, got, 4)
	assert.Equal(t, "#ff0000", got[0])
	for _, l := range got {
		_, err := colorspace.Parse(l)
		assert.NoError(t, err, l)
	}

	again, _, err := run(t, "4", "#ff0000", "--metric", "cie76", "--seed", "3")
	require.NoError(t, err)
	assert.Equal(t, out, again)
}

func TestDistinctDefaultMetric(t *testing.T) {
	flag := newRootCmd().Flags().Lookup("metric")
	require.NotNil(t, flag)
	assert.Equal(t, "cie76", flag.DefValue)

	out, _, err := run(t, "3", "--seed", "9")
	require.NoError(t, err)
	assert.Len(t, lines(out), 3)
}

func TestDistinctPrintMinimalDistance(t *testing.T) {
	out, _, err := run(t, "3", "--metric", "cie76", "--seed", "5", "--print-minimal-distance")
	require.NoError(t, err)

	got := lines(out)
	require.Len(t, got, 1)
	d, err := strconv.ParseFloat(got[0], 64)
	require.NoError(t, err)
	assert.Positive(t, d)
}

func TestDistinctVerbose(t *testing.T) {
	out, stderr, err := run(t, "3", "--metric", "cie76", "--seed", "5", "-v", "--fill", "gray")
	require.NoError(t, err)

	assert.Len(t, lines(out), 3)
	progress := lines(stderr)
	require.NotEmpty(t, progress)
	assert.Contains(t, progress[0], "[global          0] D_mean = ")
	assert.Contains(t, progress[0], "*#")
	assert.Contains(t, progress[len(progress)-1], "[local ")
}

func TestDistinctCommandErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no arguments", nil},
		{"bad count", []string{"many"}},
		{"count too small", []string{"1"}},
		{"bad fixed color", []string{"3", "#ggg"}},
		{"too many fixed", []string{"1", "#fff", "#000"}},
		{"unknown metric", []string{"3", "--metric", "cie94"}},
		{"unknown fill", []string{"3", "--fill", "pastel"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := run(t, tt.args...)
			assert.Error(t, err)
		})
	}

	_, _, err := run(t, "1")
	_, ok := optimization.IsOptimizationError(err)
	assert.True(t, ok)
}

func TestSequenceCommand(t *testing.T) {
	out, _, err := run(t, "sequence", "--metric", "cie76",
		"#ffffff", "gray(0.25)", "gray(0.5)", "gray(0.8)", "#000000")
	require.NoError(t, err)

	want := []string{
		colorspace.White().Hex(),
		colorspace.Black().Hex(),
		colorspace.Graytone(0.5).Hex(),
		colorspace.Graytone(0.25).Hex(),
		colorspace.Graytone(0.8).Hex(),
	}
	assert.Equal(t, want, lines(out))

	_, _, err = run(t, "sequence", "nope")
	assert.Error(t, err)
}

func TestPainterSwatch(t *testing.T) {
	red := colorspace.FromRGB(255, 0, 0)

	plain := &painter{w: &bytes.Buffer{}}
	assert.Equal(t, "#ff0000", plain.swatch(red, false))
	assert.Equal(t, "*#ff0000*", plain.swatch(red, true))

	ansi := &painter{w: &bytes.Buffer{}, ansi: true}
	s := ansi.swatch(red, true)
	assert.Contains(t, s, "\x1b[48;2;255;0;0m")
	assert.Contains(t, s, "\x1b[1m\x1b[4m")
	assert.True(t, strings.HasSuffix(s, "#ff0000\x1b[0m"))

	var buf bytes.Buffer
	p := &painter{w: &buf}
	p.iteration(palette.Progress{
		Phase: palette.PhaseLocal,
		Snapshot: optimization.Snapshot{
			Iteration:  5000,
			Statistics: optimization.Statistics{Mean: 1, Min: 0.5, ClosestPair: [2]int{0, 1}},
			Colors:     []colorspace.Color{red, colorspace.Black(), colorspace.White()},
		},
	})
	assert.Equal(t, "[local        5000] D_mean = 1.00  ; D_min = 0.50  ; T = 0.000000 *#ff0000* *#000000* #ffffff \n", buf.String())
}
