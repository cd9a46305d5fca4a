package noise

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/ojrac/opensimplex-go"
)

// Simplex samples OpenSimplex noise.
type Simplex struct {
	noise opensimplex.Noise
}

// NewSimplex seeds an OpenSimplex generator.
func NewSimplex(seed int64) *Simplex {
	return &Simplex{noise: opensimplex.New(seed)}
}

// Sample implements Field.
func (s *Simplex) Sample(p mgl64.Vec3) float64 {
	return remap(s.noise.Eval3(p[0], p[1], p[2]))
}
