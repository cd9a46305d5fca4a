package app

import (
	"math"
	"math/rand"

	"github.com/guidoenr/spherizer/internal/analyzer"
)

// autopilot stands in for a listener and a hand: it synthesises audio features and
// steers a pointer over the sphere, tapping on strong beats.
type autopilot struct {
	rng       *rand.Rand
	phaseBass float64
	phaseMid  float64
	phaseHigh float64
	wander    float64
	sinceTap  float64
}

type pilotStep struct {
	features analyzer.Features
	x, y     float64
	tap      bool
}

func newAutopilot(rng *rand.Rand) *autopilot {
	return &autopilot{rng: rng}
}

func (f *autopilot) Next(delta float64) pilotStep {
	f.phaseBass += delta * 0.7
	f.phaseMid += delta * 1.2
	f.phaseHigh += delta * 2.1
	f.wander += delta * 0.35
	f.sinceTap += delta

	bass := clamp01(0.5 + 0.5*math.Sin(f.phaseBass) + f.rng.Float64()*0.1)
	mid := clamp01(0.4 + 0.4*math.Sin(f.phaseMid+0.5) + f.rng.Float64()*0.1)
	treble := clamp01(0.3 + 0.3*math.Sin(f.phaseHigh+1.0) + f.rng.Float64()*0.1)

	beat := math.Max(0, math.Sin(f.phaseBass*2.0))
	if f.rng.Float64() < 0.02 {
		beat = 1.0
	}

	onset := beat > 0.98 && f.sinceTap > 1.5
	if onset {
		f.sinceTap = 0
	}

	// Lissajous path that stays inside the sphere's silhouette
	x := 0.3 * math.Sin(f.wander*1.3)
	y := 0.25 * math.Sin(f.wander*0.9+0.7)

	return pilotStep{
		features: analyzer.Features{
			Bass:         bass,
			Mid:          mid,
			Treble:       treble,
			Overall:      (bass + mid + treble) / 3,
			BeatStrength: clamp01(beat + f.rng.Float64()*0.1),
			Onset:        onset,
		},
		x:   x,
		y:   y,
		tap: onset,
	}
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
