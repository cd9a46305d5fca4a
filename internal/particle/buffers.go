package particle

import "github.com/go-gl/mathgl/mgl64"

// Buffers are the flat per-attribute render outputs, one entry per particle in cloud order.
type Buffers struct {
	Positions []float32
	Colors    []float32
	Sizes     []float32
	Alphas    []float32
}

// NewBuffers allocates buffers for n particles.
func NewBuffers(n int) *Buffers {
	b := &Buffers{}
	b.Resize(n)
	return b
}

// Resize grows or shrinks the buffers to hold n particles, reusing capacity.
func (b *Buffers) Resize(n int) {
	if n < 0 {
		n = 0
	}
	b.Positions = resize(b.Positions, n*3)
	b.Colors = resize(b.Colors, n*3)
	b.Sizes = resize(b.Sizes, n)
	b.Alphas = resize(b.Alphas, n)
}

// Len returns the particle count the buffers hold.
func (b *Buffers) Len() int { return len(b.Sizes) }

// Set writes one particle's attributes.
func (b *Buffers) Set(i int, pos, color mgl64.Vec3, size, alpha float64) {
	j := i * 3
	b.Positions[j] = float32(pos[0])
	b.Positions[j+1] = float32(pos[1])
	b.Positions[j+2] = float32(pos[2])
	b.Colors[j] = float32(color[0])
	b.Colors[j+1] = float32(color[1])
	b.Colors[j+2] = float32(color[2])
	b.Sizes[i] = float32(size)
	b.Alphas[i] = float32(alpha)
}

// Position reads back particle i's render position.
func (b *Buffers) Position(i int) mgl64.Vec3 {
	j := i * 3
	return mgl64.Vec3{float64(b.Positions[j]), float64(b.Positions[j+1]), float64(b.Positions[j+2])}
}

// Color reads back particle i's render colour.
func (b *Buffers) Color(i int) mgl64.Vec3 {
	j := i * 3
	return mgl64.Vec3{float64(b.Colors[j]), float64(b.Colors[j+1]), float64(b.Colors[j+2])}
}

func resize(s []float32, n int) []float32 {
	if cap(s) >= n {
		return s[:n]
	}
	return make([]float32, n)
}
