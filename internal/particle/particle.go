package particle

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
)

// Particle holds the immutable identity of one point in the cloud.
type Particle struct {
	Base       mgl64.Vec3
	Color      mgl64.Vec3
	SizeFactor float64
	// Phase in [0,1) decorrelates per-particle timing.
	Phase float64
}

// Config controls cloud generation.
type Config struct {
	Count         int
	Radius        float64
	Color         mgl64.Vec3
	SizeVariation float64
	// ColorJitter is the full width of the random colour offset.
	ColorJitter float64
}

const (
	defaultJitter = 0.08
	minSizeFactor = 0.05
)

// Cloud is an ordered, fixed set of particles. Order is stable for the cloud's lifetime.
type Cloud struct {
	particles []Particle
	radius    float64
}

// NewCloud samples cfg.Count particles uniformly inside a sphere.
func NewCloud(cfg Config, rng *rand.Rand) *Cloud {
	if cfg.Count < 0 {
		cfg.Count = 0
	}
	if cfg.ColorJitter <= 0 {
		cfg.ColorJitter = defaultJitter
	}
	radius := math.Max(0, cfg.Radius)

	particles := make([]Particle, cfg.Count)
	for i := range particles {
		theta := 2 * math.Pi * rng.Float64()
		phi := math.Acos(2*rng.Float64() - 1)
		r := radius * math.Cbrt(rng.Float64())

		sinPhi := math.Sin(phi)
		base := mgl64.Vec3{
			r * sinPhi * math.Cos(theta),
			r * sinPhi * math.Sin(theta),
			r * math.Cos(phi),
		}

		jitter := (rng.Float64() - 0.5) * cfg.ColorJitter
		color := mgl64.Vec3{
			clamp01(cfg.Color[0] + jitter),
			clamp01(cfg.Color[1] + jitter),
			clamp01(cfg.Color[2] + jitter),
		}

		size := 1 + (rng.Float64()-0.5)*cfg.SizeVariation
		particles[i] = Particle{
			Base:       base,
			Color:      color,
			SizeFactor: math.Max(minSizeFactor, size),
			Phase:      rng.Float64(),
		}
	}
	return &Cloud{particles: particles, radius: radius}
}

// fromParticles wraps an explicit particle list.
func fromParticles(ps []Particle) *Cloud {
	cp := make([]Particle, len(ps))
	copy(cp, ps)
	radius := 0.0
	for _, p := range cp {
		radius = math.Max(radius, p.Base.Len())
	}
	return &Cloud{particles: cp, radius: radius}
}

// Len returns the number of particles.
func (c *Cloud) Len() int { return len(c.particles) }

// At returns particle i by value; the cloud itself cannot be mutated through it.
func (c *Cloud) At(i int) Particle { return c.particles[i] }

// Radius is the sampling radius of the cloud.
func (c *Cloud) Radius() float64 { return c.radius }

// Recolor returns a cloud with the same geometry and a new base colour,
// keeping each particle's jitter offset relative to the old colour.
func (c *Cloud) Recolor(from, to mgl64.Vec3) *Cloud {
	out := &Cloud{particles: make([]Particle, len(c.particles)), radius: c.radius}
	shift := to.Sub(from)
	for i, p := range c.particles {
		p.Color = mgl64.Vec3{
			clamp01(p.Color[0] + shift[0]),
			clamp01(p.Color[1] + shift[1]),
			clamp01(p.Color[2] + shift[2]),
		}
		out.particles[i] = p
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
