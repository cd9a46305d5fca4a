package deform

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/guidoenr/spherizer/internal/params"
)

const (
	centerRadius  = 1.8
	rippleSpeed   = 4.0
	rippleFreq    = 18.0
	glowProximity = 0.6
	sizeProximity = 0.4
)

// pulseClock is the wrapped state of the radial pulse at a given time.
type pulseClock struct {
	time   float64 // unwrapped t*frequency
	phase  float64 // wrapped into [0, interval)
	radius float64
	width  float64
	decay  float64
}

func newPulseClock(pulseTime float64, p params.Parameters) pulseClock {
	phase := glslMod(pulseTime, p.PulseInterval)
	return pulseClock{
		time:   pulseTime,
		phase:  phase,
		radius: phase * rippleSpeed,
		width:  0.4 + phase*0.2,
		decay:  1 - phase/p.PulseInterval,
	}
}

// PulseClock accumulates pulse time frame by frame, so a frequency that changes
// between frames bends the pulse's speed instead of jumping its phase.
type PulseClock struct {
	time float64
}

// Advance moves the clock by frequency*delta and returns the new pulse time.
// Non-finite or negative steps leave it where it is.
func (c *PulseClock) Advance(frequency, delta float64) float64 {
	if step := frequency * delta; finite(step) && step > 0 {
		c.time += step
	}
	return c.time
}

// Time returns the accumulated pulse time.
func (c *PulseClock) Time() float64 { return c.time }

// Pulse returns the centre-originating periodic wave for a particle at pos.
// pulseTime is elapsed time already scaled by the pulse frequency.
// Position, glow and size all read the same (distance, phase, decay) triple.
func Pulse(pos mgl64.Vec3, phaseOffset, pulseTime float64, p params.Parameters) Contribution {
	s := p.PulseStrength
	if s <= effectEpsilon || p.PulseInterval <= 0 {
		return Contribution{}
	}
	clk := newPulseClock(pulseTime, p)
	d := pos.Len()
	dir := safeDir(pos)
	gap := d - clk.radius
	prox := math.Abs(gap)

	var c Contribution
	influence := math.Exp(-prox / clk.width)
	wave := math.Sin(gap*rippleFreq) * influence * s * clk.decay * 0.25
	c.Offset = dir.Mul(wave)
	c.Offset[2] += math.Cos(gap*rippleFreq) * influence * s * clk.decay * 0.15

	if d < centerRadius {
		falloff := (centerRadius - d) / centerRadius
		centerAge := glslMod(clk.phase, 1.0)
		c.Offset[2] += math.Sin(centerAge*12+clk.time*3) * (1 - centerAge) * falloff * s * 0.12
	}

	capFreq := 25 + phaseOffset*10
	c.Offset = c.Offset.Add(dir.Mul(math.Sin(d*capFreq-clk.time*8) * s * 0.05))

	if prox < glowProximity {
		c.Glow += math.Exp(-prox*3) * s * clk.decay * 0.4
	}
	if prox < sizeProximity {
		c.Size += math.Exp(-prox*4) * s * clk.decay * 0.6
	}
	if d < centerRadius {
		falloff := (centerRadius - d) / centerRadius
		c.Glow += falloff * s * 0.2
		c.Size += math.Abs(math.Sin(clk.time*3)*falloff*s) * 0.4
	}
	return c
}
