package noise

import (
	"math"
	"sort"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

// Field is a deterministic, smooth scalar field over 3D space returning values in [0,1].
type Field interface {
	Sample(p mgl64.Vec3) float64
}

type backend struct {
	name string
	make func(seed int64) Field
}

var registry = map[string]backend{
	"value":   {name: "value", make: func(int64) Field { return NewValue() }},
	"simplex": {name: "simplex", make: func(seed int64) Field { return NewSimplex(seed) }},
	"perlin":  {name: "perlin", make: func(seed int64) Field { return NewPerlin(seed) }},
}

// Names returns the available noise backends.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ByName returns the named backend, falling back to the value lattice.
func ByName(name string, seed int64) Field {
	if b, ok := registry[strings.ToLower(name)]; ok {
		return b.make(seed)
	}
	return NewValue()
}

// Value is a sin-hashed value lattice blended with a smoothstep trilinear filter.
type Value struct{}

// NewValue returns the lattice backend. It carries no state.
func NewValue() Value { return Value{} }

// Sample implements Field.
func (Value) Sample(p mgl64.Vec3) float64 {
	ix, iy, iz := math.Floor(p[0]), math.Floor(p[1]), math.Floor(p[2])
	fx := smoothstep(p[0] - ix)
	fy := smoothstep(p[1] - iy)
	fz := smoothstep(p[2] - iz)

	n := ix + iy*57.0 + iz*113.0
	v := lerp(
		lerp(lerp(math.Sin(n), math.Sin(n+1), fx),
			lerp(math.Sin(n+57), math.Sin(n+58), fx), fy),
		lerp(lerp(math.Sin(n+113), math.Sin(n+114), fx),
			lerp(math.Sin(n+170), math.Sin(n+171), fx), fy),
		fz,
	)
	return clamp01(v*0.5 + 0.5)
}

func smoothstep(v float64) float64 {
	return v * v * (3 - 2*v)
}

func lerp(a, b, t float64) float64 {
	return a*(1-t) + b*t
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

// remap maps a signed sample in [-1,1] into [0,1], swallowing non-finite values.
func remap(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0.5
	}
	return clamp01(v*0.5 + 0.5)
}
