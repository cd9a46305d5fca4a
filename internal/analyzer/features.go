package analyzer

// Features summarises one analysis window of audio for the audio-reactive driver.
type Features struct {
	Bass         float64
	Mid          float64
	Treble       float64
	Overall      float64
	BeatStrength float64
	// Onset marks a kick strong enough to drop an impulse on the sphere.
	Onset bool
}

// Gate applies a noise floor so room hiss does not keep the sphere pulsing.
func Gate(f Features, floor float64) Features {
	if floor <= 0 {
		return f
	}
	gate := func(v float64) float64 {
		if v <= floor {
			return 0
		}
		return clamp((v-floor)/(1.0-floor), 0, 1)
	}

	f.Bass = gate(f.Bass)
	f.Mid = gate(f.Mid)
	f.Treble = gate(f.Treble)
	f.Overall = gate(f.Overall)
	f.BeatStrength = gate(f.BeatStrength)
	if f.BeatStrength == 0 {
		f.Onset = false
	}
	return f
}
