package render

import "math"

// Falloff is a particle sprite's opacity at normalized radius r, where r is 0 at the
// centre and 0.5 at the edge. The blur amount picks one of three profiles.
func Falloff(blur, r float64) float64 {
	if r > 0.5 || r < 0 || math.IsNaN(r) {
		return 0
	}
	switch {
	case blur > 0.8:
		return math.Exp(-r * r * 3)
	case blur > 0.5:
		return 1 - r*r*1.5
	default:
		return 1 - smoothstep(0.2, 0.5, r)
	}
}

func smoothstep(edge0, edge1, x float64) float64 {
	t := clamp01((x - edge0) / (edge1 - edge0))
	return t * t * (3 - 2*t)
}
