// Package deltae implements the perceptual color difference formulas used to
// score palettes: CIE76 and CIEDE2000.
package deltae

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/copyleftdev/distinct/internal/colorspace"
)

// Metric selects the color difference formula. A run uses exactly one metric
// for every distance it evaluates.
type Metric int

const (
	// CIE76 is the Euclidean distance in L*a*b*.
	CIE76 Metric = iota
	// CIEDE2000 is the hue and chroma corrected difference from CIE 142-2001.
	CIEDE2000
)

// Distance evaluates the metric between a and b.
func (m Metric) Distance(a, b colorspace.Lab) float64 {
	switch m {
	case CIE76:
		return CIE76Distance(a, b)
	case CIEDE2000:
		return CIEDE2000Distance(a, b)
	default:
		panic(fmt.Sprintf("deltae: unknown metric %d", int(m)))
	}
}

// String returns the metric name as accepted by ParseMetric.
func (m Metric) String() string {
	switch m {
	case CIE76:
		return "cie76"
	case CIEDE2000:
		return "ciede2000"
	default:
		return fmt.Sprintf("Metric(%d)", int(m))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Metric) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler, so a Metric can be read
// from JSON bodies and environment variables.
func (m *Metric) UnmarshalText(text []byte) error {
	parsed, err := ParseMetric(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseMetric parses "cie76" or "ciede2000" (case insensitive).
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cie76":
		return CIE76, nil
	case "ciede2000":
		return CIEDE2000, nil
	default:
		return 0, fmt.Errorf("unknown distance metric %q", s)
	}
}

// CIE76Distance is sqrt(dL² + da² + db²).
func CIE76Distance(c1, c2 colorspace.Lab) float64 {
	p := [3]float64{c1.L, c1.A, c1.B}
	q := [3]float64{c2.L, c2.A, c2.B}
	return floats.Distance(p[:], q[:], 2)
}

// 25^7
const pow25to7 = 6103515625.0

// CIEDE2000Distance computes ΔE*00 with unit parametric factors
// (kL = kC = kH = 1).
func CIEDE2000Distance(c1, c2 colorspace.Lab) float64 {
	deltaLPrime := c2.L - c1.L
	lBar := (c1.L + c2.L) / 2

	chroma1 := math.Sqrt(c1.A*c1.A + c1.B*c1.B)
	chroma2 := math.Sqrt(c2.A*c2.A + c2.B*c2.B)
	cBar := (chroma1 + chroma2) / 2

	// G is 0 at cBar == 0, not NaN: 0/(0+25^7) is well defined.
	g := 1 - chromaWeight(cBar)
	aPrime1 := c1.A + c1.A/2*g
	aPrime2 := c2.A + c2.A/2*g

	cPrime1 := math.Sqrt(aPrime1*aPrime1 + c1.B*c1.B)
	cPrime2 := math.Sqrt(aPrime2*aPrime2 + c2.B*c2.B)
	cBarPrime := (cPrime1 + cPrime2) / 2
	deltaCPrime := cPrime2 - cPrime1

	lDev := (lBar - 50) * (lBar - 50)
	sL := 1 + 0.015*lDev/math.Sqrt(20+lDev)
	sC := 1 + 0.045*cBarPrime

	hPrime1 := hueAngle(c1.B, aPrime1)
	hPrime2 := hueAngle(c2.B, aPrime2)

	deltaHPrime := hueDifference(chroma1, chroma2, hPrime1, hPrime2)
	deltaUpperHPrime := 2 * math.Sqrt(cPrime1*cPrime2) * math.Sin(radians(deltaHPrime)/2)

	hBarPrime := meanHue(hPrime1, hPrime2)

	t := 1 -
		0.17*math.Cos(radians(hBarPrime-30)) +
		0.24*math.Cos(radians(2*hBarPrime)) +
		0.32*math.Cos(radians(3*hBarPrime+6)) -
		0.20*math.Cos(radians(4*hBarPrime-63))
	sH := 1 + 0.015*cBarPrime*t

	deltaTheta := 30 * math.Exp(-math.Pow((hBarPrime-275)/25, 2))
	rT := -2 * chromaWeight(cBarPrime) * math.Sin(radians(2*deltaTheta))

	lightness := deltaLPrime / sL
	chroma := deltaCPrime / sC
	hue := deltaUpperHPrime / sH

	return math.Sqrt(lightness*lightness + chroma*chroma + hue*hue + rT*chroma*hue)
}

// chromaWeight is sqrt(C^7 / (C^7 + 25^7)).
func chromaWeight(c float64) float64 {
	c7 := math.Pow(c, 7)
	return math.Sqrt(c7 / (c7 + pow25to7))
}

// hueAngle returns atan2(b, a') in degrees within [0, 360). The hue of a
// color with b == a' == 0 is defined as 0.
func hueAngle(b, aPrime float64) float64 {
	if b == 0 && aPrime == 0 {
		return 0
	}
	h := degrees(math.Atan2(b, aPrime))
	if h < 0 {
		h += 360
	}
	return h
}

func hueDifference(chroma1, chroma2, h1, h2 float64) float64 {
	if chroma1 == 0 || chroma2 == 0 {
		return 0
	}
	if math.Abs(h1-h2) <= 180 {
		return h2 - h1
	}
	if h2 <= h1 {
		return h2 - h1 + 360
	}
	return h2 - h1 - 360
}

func meanHue(h1, h2 float64) float64 {
	if math.Abs(h1-h2) > 180 {
		return (h1 + h2 + 360) / 2
	}
	return (h1 + h2) / 2
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func degrees(rad float64) float64 { return rad * 180 / math.Pi }
