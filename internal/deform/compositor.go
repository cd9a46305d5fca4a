package deform

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/guidoenr/spherizer/internal/noise"
	"github.com/guidoenr/spherizer/internal/params"
	"github.com/guidoenr/spherizer/internal/particle"
)

const (
	minAlpha = 0.1
	maxAlpha = 1.0
	minSize  = 1e-4
)

// FrameInputs is everything the frame pass reads. It is shared read-only by all particles.
type FrameInputs struct {
	Time     float64
	Params   params.Parameters
	Pointer  PointerSample
	Impulses []Impulse
	// PulseTime is used as the pulse clock when ClockedPulse is set. Otherwise the
	// pulse runs at Time*PulseFrequency.
	PulseTime    float64
	ClockedPulse bool
}

// Sample is one particle's derived render attributes.
type Sample struct {
	Position mgl64.Vec3
	Color    mgl64.Vec3
	Size     float64
	Alpha    float64
}

// Layers breaks a particle's displacement down per generator.
type Layers struct {
	Ambient mgl64.Vec3
	Pulse   Contribution
	Impulse Contribution
	Pointer Contribution
}

// resolved is FrameInputs with per-frame work hoisted out of the particle loop.
type resolved struct {
	FrameInputs
	accent mgl64.Vec3
}

func resolve(in FrameInputs) resolved {
	in.Params = in.Params.Sanitize()
	if !finite(in.Time) {
		in.Time = 0
	}
	if !in.ClockedPulse || !finite(in.PulseTime) {
		in.PulseTime = in.Time * in.Params.PulseFrequency
	}
	if !finiteVec(in.Pointer.Current) || !finiteVec(in.Pointer.Previous) || !finite(in.Pointer.Influence) {
		in.Pointer = PointerSample{}
	}
	return resolved{FrameInputs: in, accent: in.Params.AccentRGB()}
}

// Evaluate computes one particle's render attributes. It is a pure function of its arguments.
func Evaluate(field noise.Field, p particle.Particle, in FrameInputs) Sample {
	return evaluate(field, p, resolve(in))
}

// decompose returns each generator's raw contribution for one particle.
func decompose(field noise.Field, p particle.Particle, in FrameInputs) Layers {
	return layers(field, p, resolve(in))
}

func layers(field noise.Field, p particle.Particle, in resolved) Layers {
	var l Layers
	l.Ambient = Ambient(field, p, in.Time, in.Params.Chaos)
	if !finiteVec(l.Ambient) {
		l.Ambient = mgl64.Vec3{}
	}

	// Every generator samples at the ambient-displaced position; none sees another's output.
	at := p.Base.Add(l.Ambient)
	l.Pulse = keepFinite(Pulse(at, p.Phase, in.PulseTime, in.Params))
	l.Impulse = keepFinite(Impulses(at, p.Phase, in.Time, in.Impulses))
	l.Pointer = keepFinite(Pointer(at, p.Phase, in.Time, in.Pointer, in.Params))
	return l
}

func evaluate(field noise.Field, p particle.Particle, in resolved) Sample {
	l := layers(field, p, in)

	pos := p.Base.Add(l.Ambient).
		Add(l.Pulse.Offset).
		Add(l.Impulse.Offset).
		Add(l.Pointer.Offset)
	if !finiteVec(pos) {
		pos = p.Base
	}
	movement := pos.Sub(p.Base).Len()

	mix := clamp(math.Max(l.Pointer.ColorMix, l.Impulse.ColorMix), 0, 1)
	color := p.Color.Mul(1 - mix).Add(in.accent.Mul(mix))

	alpha := in.Params.Opacity + movement*0.2 + l.Pulse.Glow + l.Impulse.Glow + l.Pointer.Glow*0.15
	alpha = clamp(alpha, minAlpha, maxAlpha)

	dynamic := 1 + movement*0.3 + l.Pointer.Glow*0.15 + l.Pulse.Size + l.Impulse.Size
	size := p.SizeFactor * in.Params.ParticleSize * dynamic
	if !finite(size) || size < minSize {
		size = minSize
	}

	return Sample{Position: pos, Color: color, Size: size, Alpha: alpha}
}

func keepFinite(c Contribution) Contribution {
	if !c.Finite() {
		return Contribution{}
	}
	return c
}
