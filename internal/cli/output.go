package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/copyleftdev/distinct/internal/colorspace"
	"github.com/copyleftdev/distinct/internal/palette"
)

// painter writes colors, as 24-bit swatches when w is a terminal and as
// plain hex otherwise.
type painter struct {
	w    io.Writer
	ansi bool
}

func newPainter(w io.Writer) *painter {
	p := &painter{w: w}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.ansi = true
	}
	return p
}

func (p *painter) printf(format string, args ...interface{}) {
	fmt.Fprintf(p.w, format, args...)
}

// swatch returns the hex code of c painted on c itself.
func (p *painter) swatch(c colorspace.Color, emphasize bool) string {
	if !p.ansi {
		if emphasize {
			return "*" + c.Hex() + "*"
		}
		return c.Hex()
	}

	tc := c.TextColor()
	style := fmt.Sprintf("\x1b[38;2;%d;%d;%dm\x1b[48;2;%d;%d;%dm", tc.R, tc.G, tc.B, c.R, c.G, c.B)
	if emphasize {
		style += "\x1b[1m\x1b[4m"
	}
	return style + c.Hex() + "\x1b[0m"
}

// color prints one output line for c.
func (p *painter) color(c colorspace.Color) {
	if !p.ansi {
		p.printf("%s\n", c.Hex())
		return
	}
	p.printf("%s %s\n", p.swatch(c, false), c.Hex())
}

// iteration prints one progress line with the closest pair emphasized.
func (p *painter) iteration(pr palette.Progress) {
	var b strings.Builder
	fmt.Fprintf(&b, "[%-6s %10d] D_mean = %-6.2f; D_min = %-6.2f; T = %.6f ",
		pr.Phase, pr.Iteration, pr.Statistics.Mean, pr.Statistics.Min, pr.Temperature)

	pair := pr.Statistics.ClosestPair
	for i, c := range pr.Colors {
		b.WriteString(p.swatch(c, i == pair[0] || i == pair[1]))
		b.WriteByte(' ')
	}
	b.WriteByte('\n')
	p.printf("%s", b.String())
}
