// Package colorspace holds the color handles the optimizer perturbs and the
// conversions it needs into CIE L*a*b* coordinates.
package colorspace

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// Color is an 8-bit sRGB color with an opacity in [0, 1].
type Color struct {
	R, G, B uint8
	Alpha   float64
}

// Lab is a color in CIE L*a*b* (D65). L is in [0, 100].
type Lab struct {
	L, A, B float64
	Alpha   float64
}

// FromRGB returns an opaque color.
func FromRGB(r, g, b uint8) Color {
	return Color{R: r, G: g, B: b, Alpha: 1}
}

// Graytone returns the gray with the given lightness in [0, 1].
func Graytone(lightness float64) Color {
	v := uint8(math.Round(clamp(lightness, 0, 1) * 255))
	return FromRGB(v, v, v)
}

// White returns #ffffff.
func White() Color { return FromRGB(255, 255, 255) }

// Black returns #000000.
func Black() Color { return FromRGB(0, 0, 0) }

func (c Color) colorful() colorful.Color {
	return colorful.Color{
		R: float64(c.R) / 255,
		G: float64(c.G) / 255,
		B: float64(c.B) / 255,
	}
}

func fromColorful(c colorful.Color, alpha float64) Color {
	r, g, b := c.Clamped().RGB255()
	return Color{R: r, G: g, B: b, Alpha: alpha}
}

// whiteRef is the XYZ of sRGB white under go-colorful's conversion matrix.
// Using it as the Lab reference, instead of the rounded D65 constants, maps
// white to a* = b* = 0.
var whiteRef = func() [3]float64 {
	x, y, z := colorful.Color{R: 1, G: 1, B: 1}.Xyz()
	return [3]float64{x, y, z}
}()

// Lab converts the color to L*a*b* coordinates. go-colorful works on a
// [0, 1] lightness scale, so the result is scaled to the usual [0, 100].
// Neutral colors (R == G == B) have exactly zero a* and b*.
func (c Color) Lab() Lab {
	l, a, b := c.colorful().LabWhiteRef(whiteRef)
	if c.R == c.G && c.G == c.B {
		a, b = 0, 0
	}
	return Lab{L: l * 100, A: a * 100, B: b * 100, Alpha: c.Alpha}
}

// Hex returns the color as #rrggbb. Opacity is not encoded.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// String implements fmt.Stringer.
func (c Color) String() string {
	return c.Hex()
}

// MarshalText implements encoding.TextMarshaler using Hex.
func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.Hex()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler using Parse.
func (c *Color) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// TextColor returns black or white, whichever reads better on top of c.
func (c Color) TextColor() Color {
	if c.Lab().L > 50 {
		return Black()
	}
	return White()
}

// Jitter moves each RGB channel by a random signed offset of at most maxStep,
// saturating at 0 and 255. Opacity is preserved.
func (c Color) Jitter(rng *rand.Rand, maxStep int) Color {
	c.R = jitterChannel(c.R, rng, maxStep)
	c.G = jitterChannel(c.G, rng, maxStep)
	c.B = jitterChannel(c.B, rng, maxStep)
	return c
}

func jitterChannel(v uint8, rng *rand.Rand, maxStep int) uint8 {
	up := rng.Intn(2) == 0
	step := rng.Intn(maxStep + 1)
	if up {
		return uint8(min(int(v)+step, math.MaxUint8))
	}
	return uint8(max(int(v)-step, 0))
}

// Parse reads a color in one of the forms "#rgb", "#rrggbb", "rrggbb",
// "rgb(r, g, b)" or "gray(x)" with x in [0, 1].
func Parse(s string) (Color, error) {
	in := strings.ToLower(strings.TrimSpace(s))
	switch {
	case in == "":
		return Color{}, fmt.Errorf("empty color")
	case strings.HasPrefix(in, "rgb(") && strings.HasSuffix(in, ")"):
		return parseRGB(in[len("rgb(") : len(in)-1])
	case strings.HasPrefix(in, "gray(") && strings.HasSuffix(in, ")"):
		v, err := strconv.ParseFloat(strings.TrimSpace(in[len("gray("):len(in)-1]), 64)
		if err != nil || v < 0 || v > 1 {
			return Color{}, fmt.Errorf("invalid gray value in %q", s)
		}
		return Graytone(v), nil
	}

	if !strings.HasPrefix(in, "#") {
		in = "#" + in
	}
	c, err := colorful.Hex(in)
	if err != nil {
		return Color{}, fmt.Errorf("could not parse color %q: %w", s, err)
	}
	return fromColorful(c, 1), nil
}

func parseRGB(body string) (Color, error) {
	parts := strings.Split(body, ",")
	if len(parts) != 3 {
		return Color{}, fmt.Errorf("rgb() needs three channels, got %d", len(parts))
	}
	var ch [3]uint8
	for i, p := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(p), 10, 8)
		if err != nil {
			return Color{}, fmt.Errorf("invalid rgb channel %q: %w", p, err)
		}
		ch[i] = uint8(v)
	}
	return FromRGB(ch[0], ch[1], ch[2]), nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
