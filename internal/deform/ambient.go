package deform

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/guidoenr/spherizer/internal/noise"
	"github.com/guidoenr/spherizer/internal/particle"
)

// noiseLayer is one (frequency, rate, salt) tuple sampled from the noise field.
type noiseLayer struct {
	frequency float64
	rate      float64
	salt      float64
}

var ambientLayers = [3]noiseLayer{
	{frequency: 0.5, rate: 0.15, salt: 10},
	{frequency: 0.3, rate: 0.1, salt: 5},
	{frequency: 0.8, rate: 0.2, salt: 15},
}

// Ambient returns the idle motion offset for a particle. It depends only on the
// particle, the clock and the chaos amount, and runs for the particle's lifetime.
func Ambient(field noise.Field, p particle.Particle, t, chaos float64) mgl64.Vec3 {
	if chaos == 0 {
		return mgl64.Vec3{}
	}
	base := p.Base
	phase := p.Phase * tau

	var n [3]float64
	for i, l := range ambientLayers {
		n[i] = field.Sample(base.Mul(l.frequency).Add(splat(t*l.rate + p.Phase*l.salt)))
	}

	waves := mgl64.Vec3{
		math.Sin(t*0.8 + phase + base[1]*1.5 + n[0]*2),
		math.Cos(t*1.0 + phase + base[2]*1.3 + n[1]*2),
		math.Sin(t*1.2 + phase + base[0]*1.7 + n[2]*2),
	}.Mul(chaos)

	drift := mgl64.Vec3{n[0]*2 - 1, n[1]*2 - 1, n[2]*2 - 1}.Mul(chaos * 0.8)

	breathing := safeDir(base).Mul(math.Sin(t*0.5+phase) * 0.3 * chaos)

	swirl := t*0.3 + phase
	orbit := mgl64.Vec3{
		math.Cos(swirl) * math.Sin(base[1]*0.5),
		math.Sin(swirl) * math.Cos(base[0]*0.5),
		math.Cos(swirl+math.Pi/2) * math.Sin(base[2]*0.5),
	}.Mul(chaos * 0.6)

	surface := mgl64.Vec3{
		0,
		math.Cos(t*0.3+base[2]+base[0]*0.6) * 0.03,
		math.Sin(t*0.5+base[0]+base[1]*0.8) * 0.04,
	}.Mul(chaos)

	heading := safeDir(base.Add(mgl64.Vec3{
		math.Sin(p.Phase * 10),
		math.Cos(p.Phase * 8),
		math.Sin(p.Phase * 12),
	}))
	outward := heading.Mul(math.Sin(t*0.2+phase) * 0.15 * chaos)

	return waves.Add(drift).Add(breathing).Add(orbit).Add(surface).Add(outward)
}
