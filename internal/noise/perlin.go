package noise

import (
	"github.com/aquilax/go-perlin"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	perlinAlpha   = 2.0
	perlinBeta    = 2.0
	perlinOctaves = 2
)

// Perlin samples classic Perlin noise with a couple of octaves.
type Perlin struct {
	p *perlin.Perlin
}

// NewPerlin seeds a Perlin generator.
func NewPerlin(seed int64) *Perlin {
	return &Perlin{p: perlin.NewPerlin(perlinAlpha, perlinBeta, perlinOctaves, seed)}
}

// Sample implements Field.
func (n *Perlin) Sample(p mgl64.Vec3) float64 {
	return remap(n.p.Noise3D(p[0], p[1], p[2]))
}
