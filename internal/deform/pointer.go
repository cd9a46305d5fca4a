package deform

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/guidoenr/spherizer/internal/params"
)

// pointerSampleRate converts a per-sample pointer delta into a velocity.
const pointerSampleRate = 30.0

var upAxis = mgl64.Vec3{0, 1, 0}

// PointerSample is the pointer state the frame pass reads.
type PointerSample struct {
	Current   mgl64.Vec3
	Previous  mgl64.Vec3
	Influence float64
}

// Velocity is the pointer's drag velocity in model units per second.
func (s PointerSample) Velocity() mgl64.Vec3 {
	return s.Current.Sub(s.Previous).Mul(pointerSampleRate)
}

// Pointer returns the wave, vortex, drag and push-pull field around the pointer.
func Pointer(pos mgl64.Vec3, phaseOffset, t float64, ptr PointerSample, p params.Parameters) Contribution {
	inf := ptr.Influence
	if inf <= effectEpsilon {
		return Contribution{}
	}
	rel := pos.Sub(ptr.Current)
	d := rel.Len()

	var c Contribution
	c.Glow = inf * math.Exp(-d*0.8)

	if p.ColorRadius > 0 && d < p.ColorRadius {
		falloff := 1 - d/p.ColorRadius
		falloff *= falloff
		shimmer := math.Sin(d*2-t*3)*0.5 + 0.5
		c.ColorMix = falloff * inf * (0.7 + shimmer*0.3)
	}

	if d >= p.PointerRadius {
		return c
	}

	dir := safeDir(rel)
	wave := math.Sin(d*3-t*4) * math.Exp(-d*0.5) * p.WaveAmplitude * inf * p.PointerWaveStrength
	wave += math.Cos(d*6-t*5) * math.Exp(-d*0.7) * p.WaveAmplitude * inf * p.PointerWaveStrength * 0.5
	c.Offset = dir.Mul(wave)

	near := math.Exp(-d*0.4) * inf
	tangent := dir.Cross(upAxis)
	c.Offset = c.Offset.Add(tangent.Mul(math.Sin(t*2+d*2) * near * p.PointerVortexStrength))

	c.Offset = c.Offset.Add(ptr.Velocity().Mul(near * p.Viscosity * p.PointerDragStrength))

	pushPull := math.Sin(t*3+phaseOffset*tau) * p.PointerPushPullStrength
	c.Offset = c.Offset.Add(dir.Mul(pushPull * near))
	return c
}
