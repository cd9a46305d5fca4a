package params

import (
	"math"

	"github.com/guidoenr/spherizer/internal/analyzer"
)

// Reactor derives audio-modulated parameters from a base record. It keeps
// smoothed levels between frames so the sphere breathes instead of flickering.
type Reactor struct {
	bass   float64
	energy float64
	treble float64
}

// Apply returns base with pulse, chaos and opacity pushed by the audio features.
// An empty feature set decays the modulation back to the base values.
func (r *Reactor) Apply(base Parameters, feat analyzer.Features, delta float64) Parameters {
	if feat == (analyzer.Features{}) {
		r.applySilenceDecay(delta)
	} else {
		// fast attack, slower release
		if feat.Bass > r.bass {
			r.bass = lerp(r.bass, feat.Bass, 0.6)
		} else {
			r.bass = lerp(r.bass, feat.Bass, 0.2)
		}
		r.energy = lerp(r.energy, feat.Overall, 0.35)
		r.treble = lerp(r.treble, feat.Treble, 0.35)
	}

	out := base
	out.PulseStrength = base.PulseStrength * (1.0 + r.bass*1.5)
	out.PulseFrequency = base.PulseFrequency * (1.0 + r.energy*0.5)
	out.Chaos = base.Chaos * (1.0 + r.energy*0.8)
	out.Opacity = clamp(base.Opacity+r.bass*0.15, 0, 1)
	out.WaveAmplitude = base.WaveAmplitude * (1.0 + r.treble*0.4)
	return out
}

// Levels reports the smoothed bass and overall energy.
func (r *Reactor) Levels() (bass, energy float64) {
	return r.bass, r.energy
}

func (r *Reactor) applySilenceDecay(delta float64) {
	decay := math.Pow(0.92, delta*60)
	r.bass *= decay
	r.energy *= decay
	r.treble *= decay
}
