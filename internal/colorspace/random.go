package colorspace

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/lucasb-eyer/go-colorful"
)

// Strategy produces random colors from a caller-owned generator.
type Strategy interface {
	Generate(rng *rand.Rand) Color
}

// UniformRGB draws every channel uniformly, covering the whole sRGB gamut.
type UniformRGB struct{}

// Generate implements Strategy.
func (UniformRGB) Generate(rng *rand.Rand) Color {
	return FromRGB(uint8(rng.Intn(256)), uint8(rng.Intn(256)), uint8(rng.Intn(256)))
}

// Vivid draws saturated colors of medium lightness.
type Vivid struct{}

// Generate implements Strategy.
func (Vivid) Generate(rng *rand.Rand) Color {
	hue := rng.Float64() * 360
	saturation := 0.2 + 0.6*rng.Float64()
	lightness := 0.3 + 0.4*rng.Float64()
	return fromColorful(colorful.Hsl(hue, saturation, lightness), 1)
}

// UniformGray draws grays of uniform lightness.
type UniformGray struct{}

// Generate implements Strategy.
func (UniformGray) Generate(rng *rand.Rand) Color {
	return Graytone(rng.Float64())
}

// UniformHueLCh draws colors with L=70 and C=35 and a uniform hue.
type UniformHueLCh struct{}

// Generate implements Strategy.
func (UniformHueLCh) Generate(rng *rand.Rand) Color {
	return fromColorful(colorful.Hcl(360*rng.Float64(), 0.35, 0.70), 1)
}

var strategies = map[string]Strategy{
	"vivid": Vivid{},
	"rgb":   UniformRGB{},
	"gray":  UniformGray{},
	"lch":   UniformHueLCh{},
}

// StrategyByName looks up one of "vivid", "rgb", "gray" or "lch".
func StrategyByName(name string) (Strategy, error) {
	s, ok := strategies[name]
	if !ok {
		return nil, fmt.Errorf("unknown randomization strategy %q (want one of %v)", name, StrategyNames())
	}
	return s, nil
}

// StrategyNames returns the known strategy names, sorted.
func StrategyNames() []string {
	names := make([]string, 0, len(strategies))
	for name := range strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
