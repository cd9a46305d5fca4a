package deform

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ImpulseDuration is the age at which an impulse is forced to zero and dropped.
const ImpulseDuration = 4.5

// Impulse is a single click-triggered, time-bounded displacement event.
type Impulse struct {
	ID       uint64
	Origin   mgl64.Vec3
	Start    float64
	Strength float64
}

// StrengthCurve is the multiplier applied to an impulse's baseline strength at a
// given age. It is a pure function of age so it can be evaluated fresh each frame.
func StrengthCurve(age float64) float64 {
	switch {
	case age < 0 || age >= ImpulseDuration || !finite(age):
		return 0
	case age < 0.3:
		// initial impact overshoots slightly
		return 1.0 + math.Sin(age*10.0)*0.2
	case age < 1.0:
		return 0.95 * math.Exp(-(age-0.3)*1.2)
	case age < 2.0:
		return 0.5 * math.Exp(-(age-1.0)*1.0)
	case age < 3.5:
		return 0.25 * math.Exp(-(age-2.0)*0.8)
	default:
		return 0.1 * math.Exp(-(age-3.5)*2.5)
	}
}

// EffectiveStrength is the scalar strength fed into every phase formula.
func (imp Impulse) EffectiveStrength(t float64) float64 {
	return math.Max(0, imp.Strength*StrengthCurve(t-imp.Start))
}

// Expired reports whether the impulse has outlived ImpulseDuration at time t.
func (imp Impulse) Expired(t float64) bool {
	return t-imp.Start >= ImpulseDuration
}

// impulseFrame carries the per-particle geometry shared by all five phases.
type impulseFrame struct {
	age      float64
	t        float64
	strength float64
	dist     float64
	dir      mgl64.Vec3
	phase    float64
}

// ImpulseAt returns one impulse's contribution for a particle at pos. The five
// phases are gated independently and summed.
func ImpulseAt(pos mgl64.Vec3, phaseOffset, t float64, imp Impulse) Contribution {
	f, ok := newImpulseFrame(pos, phaseOffset, t, imp)
	if !ok {
		return Contribution{}
	}
	return f.splash().
		Add(f.primaryRipple()).
		Add(f.secondaryRipple()).
		Add(f.surfaceTension()).
		Add(f.capillary())
}

// Impulses sums the contributions of every active impulse.
func Impulses(pos mgl64.Vec3, phaseOffset, t float64, active []Impulse) Contribution {
	var total Contribution
	for _, imp := range active {
		c := ImpulseAt(pos, phaseOffset, t, imp)
		if !c.Finite() {
			continue
		}
		total = total.Add(c)
	}
	return total
}

func newImpulseFrame(pos mgl64.Vec3, phaseOffset, t float64, imp Impulse) (impulseFrame, bool) {
	s := imp.EffectiveStrength(t)
	if s <= effectEpsilon {
		return impulseFrame{}, false
	}
	rel := pos.Sub(imp.Origin)
	return impulseFrame{
		age:      t - imp.Start,
		t:        t,
		strength: s,
		dist:     rel.Len(),
		dir:      safeDir(rel),
		phase:    phaseOffset,
	}, true
}

func (f impulseFrame) splash() Contribution {
	var c Contribution
	if f.age < 0.3 && f.dist < 2.5 {
		intensity := math.Exp(-f.age*8) * (1 - f.dist/2.5)
		upward := intensity * f.strength * 0.8
		gravity := -9.8 * f.age * f.age * 0.02
		radial := intensity * f.strength * 0.6
		jitter := math.Sin(f.phase*20+f.age*15) * 0.3

		c.Offset = f.dir.Mul(radial + jitter*intensity)
		c.Offset[2] += upward + gravity
	}
	if f.dist < 2.0 && f.age < 0.4 {
		c.Glow += math.Exp(-f.dist*0.8) * f.strength * math.Exp(-f.age*3) * 0.8
	}
	if f.dist < 2.5 && f.age < 0.4 {
		c.Size += math.Exp(-f.dist*0.6) * f.strength * math.Exp(-f.age*2.5) * 1.2
	}
	if f.dist < 3.0 && f.age < 2.0 {
		c.ColorMix = math.Exp(-f.dist*0.5) * f.strength * math.Exp(-f.age) * 0.6
	}
	return c
}

func (f impulseFrame) primaryRipple() Contribution {
	var c Contribution
	radius := f.age * rippleSpeed
	width := 0.4 + f.age*0.2
	decay := math.Exp(-f.age * 1.2)
	gap := f.dist - radius
	prox := math.Abs(gap)

	if decay > effectEpsilon {
		influence := math.Exp(-prox / width)
		c.Offset = f.dir.Mul(math.Sin(gap*rippleFreq) * influence * f.strength * decay * 0.25)
		c.Offset[2] += math.Cos(gap*rippleFreq) * influence * f.strength * decay * 0.15
	}
	if prox < glowProximity {
		c.Glow += math.Exp(-prox*3) * f.strength * decay * 0.4
	}
	if prox < sizeProximity {
		c.Size += math.Exp(-prox*4) * f.strength * math.Exp(-f.age*1.5) * 0.6
	}
	return c
}

func (f impulseFrame) secondaryRipple() Contribution {
	var c Contribution
	if f.age <= 0.1 {
		return c
	}
	age := f.age - 0.1
	radius := age * 3.2
	decay := math.Exp(-age * 0.8)
	gap := f.dist - radius
	prox := math.Abs(gap)

	if decay > effectEpsilon {
		influence := math.Exp(-prox / 0.6)
		c.Offset = f.dir.Mul(math.Sin(gap*12) * influence * f.strength * decay * 0.15)
	}
	if prox < 0.8 {
		c.Glow += math.Exp(-prox*2) * f.strength * decay * 0.3
	}
	return c
}

func (f impulseFrame) surfaceTension() Contribution {
	var c Contribution
	if f.dist >= centerRadius || f.age <= 0.2 || f.age >= 1.2 {
		return c
	}
	age := f.age - 0.2
	falloff := (centerRadius - f.dist) / centerRadius

	oscillation := math.Sin(age*12) * math.Exp(-age*2.5) * falloff * f.strength * 0.12
	pull := math.Cos(age*8) * math.Exp(-age*3) * falloff * f.strength * 0.08
	c.Offset = f.dir.Mul(-pull)
	c.Offset[2] += oscillation

	c.Glow = falloff * f.strength * math.Exp(-age*2) * 0.2
	c.Size = math.Abs(math.Sin(age*10)) * falloff * f.strength * math.Exp(-age*2) * 0.4
	return c
}

func (f impulseFrame) capillary() Contribution {
	var c Contribution
	if f.age >= 2.0 {
		return c
	}
	freq := 25 + f.phase*10
	wave := math.Sin(f.dist*freq-f.t*8) * math.Exp(-f.age*1.8) * f.strength * 0.05
	c.Offset = f.dir.Mul(wave)
	return c
}
