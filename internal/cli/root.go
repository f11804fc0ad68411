// Package cli implements the distinct command line tool.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/copyleftdev/distinct/internal/colorspace"
	"github.com/copyleftdev/distinct/internal/optimization/deltae"
	"github.com/copyleftdev/distinct/internal/optimization/sequence"
	"github.com/copyleftdev/distinct/internal/palette"
)

type distinctOptions struct {
	metric          string
	fill            string
	seed            int64
	verbose         bool
	minimalDistance bool
}

func newRootCmd() *cobra.Command {
	opts := &distinctOptions{}

	rootCmd := &cobra.Command{
		Use:   "distinct COUNT [FIXED...]",
		Short: "Generate a set of visually distinct colors",
		Long: `Generate a set of visually distinct colors by maximizing the perceived
color difference between pairs of colors (simulated annealing).

Colors given after COUNT are kept, unchanged, at the start of the set.

Example:
  distinct 8 '#ffffff' 'rgb(0, 0, 0)' --metric cie76`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDistinct(cmd, opts, args)
		},
	}

	flags := rootCmd.Flags()
	flags.StringVarP(&opts.metric, "metric", "m", "cie76", "distance metric (cie76, ciede2000); ciede2000 is more accurate but much slower")
	flags.StringVar(&opts.fill, "fill", "rgb", fmt.Sprintf("random strategy for the initial colors %v", colorspace.StrategyNames()))
	flags.Int64Var(&opts.seed, "seed", 0, "random seed; 0 picks one from the clock")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "print the annealing progress to stderr")
	flags.BoolVar(&opts.minimalDistance, "print-minimal-distance", false, "only print the optimized minimal distance")
	_ = flags.MarkHidden("print-minimal-distance")

	rootCmd.AddCommand(newSequenceCmd())
	return rootCmd
}

func runDistinct(cmd *cobra.Command, opts *distinctOptions, args []string) error {
	count, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("could not parse color count %q", args[0])
	}
	fixed, err := parseColors(args[1:])
	if err != nil {
		return err
	}
	metric, err := deltae.ParseMetric(opts.metric)
	if err != nil {
		return err
	}
	fill, err := colorspace.StrategyByName(opts.fill)
	if err != nil {
		return err
	}

	req := palette.Request{
		Count:  count,
		Metric: metric,
		Fixed:  fixed,
		Fill:   fill,
		Seed:   opts.seed,
	}
	if opts.verbose {
		progress := newPainter(cmd.ErrOrStderr())
		req.Observer = func(p palette.Progress) {
			progress.iteration(p)
		}
	}

	result, err := palette.Distinct(cmd.Context(), req)
	if err != nil {
		return err
	}

	out := newPainter(cmd.OutOrStdout())
	if opts.minimalDistance {
		out.printf("%.3f\n", result.Statistics.Min)
		return nil
	}
	for _, c := range result.Colors {
		out.color(c)
	}
	return nil
}

func newSequenceCmd() *cobra.Command {
	var metric string

	sequenceCmd := &cobra.Command{
		Use:   "sequence COLOR...",
		Short: "Reorder colors so that every prefix is as spread out as possible",
		Long: `Reorder colors farthest-first: each color is the one farthest from all
colors before it. The first color stays in place.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := deltae.ParseMetric(metric)
			if err != nil {
				return err
			}
			colors, err := parseColors(args)
			if err != nil {
				return err
			}

			out := newPainter(cmd.OutOrStdout())
			for _, c := range sequence.Rearrange(colors, m, 1) {
				out.color(c)
			}
			return nil
		},
	}
	sequenceCmd.Flags().StringVarP(&metric, "metric", "m", "ciede2000", "distance metric (cie76, ciede2000)")
	return sequenceCmd
}

func parseColors(args []string) ([]colorspace.Color, error) {
	colors := make([]colorspace.Color, 0, len(args))
	for _, a := range args {
		c, err := colorspace.Parse(a)
		if err != nil {
			return nil, err
		}
		colors = append(colors, c)
	}
	return colors, nil
}

// Execute runs the root command and exits non-zero on failure. An interrupt
// stops the running optimization.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
