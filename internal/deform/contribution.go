package deform

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// dirEpsilon is added to a vector before normalising so a particle sitting exactly
// on an effect origin still gets a stable direction.
const dirEpsilon = 0.001

// effectEpsilon is the strength below which an effect is skipped entirely.
const effectEpsilon = 0.01

const tau = 2 * math.Pi

// Contribution is what one generator adds to a particle for a frame.
type Contribution struct {
	Offset mgl64.Vec3
	// Glow is added to alpha, Size to the dynamic size multiplier.
	Glow float64
	Size float64
	// ColorMix is how far the particle leans toward the accent colour, combined with max.
	ColorMix float64
}

// Add sums two contributions. Colour mix is not additive; the stronger one wins.
func (c Contribution) Add(o Contribution) Contribution {
	return Contribution{
		Offset:   c.Offset.Add(o.Offset),
		Glow:     c.Glow + o.Glow,
		Size:     c.Size + o.Size,
		ColorMix: math.Max(c.ColorMix, o.ColorMix),
	}
}

// Finite reports whether every component is a real number.
func (c Contribution) Finite() bool {
	return finiteVec(c.Offset) && finite(c.Glow) && finite(c.Size) && finite(c.ColorMix)
}

// IsZero reports whether the contribution has no effect at all.
func (c Contribution) IsZero() bool {
	return c == Contribution{}
}

func safeDir(v mgl64.Vec3) mgl64.Vec3 {
	v = v.Add(mgl64.Vec3{dirEpsilon, dirEpsilon, dirEpsilon})
	l := v.Len()
	if l == 0 || !finite(l) {
		return mgl64.Vec3{0, 0, 1}
	}
	return v.Mul(1 / l)
}

func splat(s float64) mgl64.Vec3 {
	return mgl64.Vec3{s, s, s}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func finiteVec(v mgl64.Vec3) bool {
	return finite(v[0]) && finite(v[1]) && finite(v[2])
}

// glslMod is a floored modulo: the result has the sign of y.
func glslMod(x, y float64) float64 {
	return x - y*math.Floor(x/y)
}

func clamp(v, minVal, maxVal float64) float64 {
	if v < minVal {
		return minVal
	}
	if v > maxVal {
		return maxVal
	}
	return v
}
