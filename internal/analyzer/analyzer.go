package analyzer

import (
	"math"

	"github.com/mjibson/go-dsp/fft"
)

// Analyzer turns raw mono samples into band energies and kick onsets.
type Analyzer struct {
	sampleRate float64

	bassPeak   float64
	midPeak    float64
	treblePeak float64
	lastBass   float64
	beatPulse  float64
	cooldown   float64
	minGap     float64

	bassHistory []float64
	historySize int

	buffer []complex128
	window []float64
}

// Config controls Analyzer behavior.
type Config struct {
	SampleRate  float64
	HistorySize int
	// OnsetGap is the minimum number of seconds between two onsets.
	OnsetGap float64
}

// New creates an Analyzer.
func New(cfg Config) *Analyzer {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 44_100
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = 48
	}
	if cfg.OnsetGap <= 0 {
		cfg.OnsetGap = 0.25
	}
	return &Analyzer{
		sampleRate:  cfg.SampleRate,
		historySize: cfg.HistorySize,
		minGap:      cfg.OnsetGap,
		bassHistory: make([]float64, 0, cfg.HistorySize),
	}
}

// Analyze returns features for the provided mono samples and frame delta.
func (a *Analyzer) Analyze(samples []float32, delta float64) Features {
	if len(samples) == 0 {
		return Features{}
	}

	size := nextPow2(minInt(len(samples), 2048))
	if size < 256 {
		size = 256
	}
	a.ensureWorkspace(size)

	buffer := a.buffer[:size]
	for i := range buffer {
		if i < len(samples) {
			buffer[i] = complex(float64(samples[i])*a.window[i], 0)
			continue
		}
		buffer[i] = 0
	}
	spectrum := fft.FFT(buffer)

	resolution := a.sampleRate / float64(size)
	bass := bandEnergy(spectrum, resolution, 20, 250)
	mid := bandEnergy(spectrum, resolution, 250, 2000)
	treble := bandEnergy(spectrum, resolution, 2000, 8000)

	a.bassPeak = envelope(a.bassPeak, bass, 0.94, 0.75)
	a.midPeak = envelope(a.midPeak, mid, 0.94, 0.78)
	a.treblePeak = envelope(a.treblePeak, treble, 0.94, 0.8)

	bassOut := expand(bass, a.bassPeak)
	midOut := expand(mid, a.midPeak)
	trebleOut := expand(treble, a.treblePeak)

	rise := bass - a.lastBass
	a.lastBass = bass
	beat := clamp(rise*14.0, 0, 1)
	if beat > 0.12 {
		a.beatPulse = 1.0
	}
	a.beatPulse *= 0.88
	beat = math.Min(1.0, beat+a.beatPulse*0.7)

	onset := false
	a.cooldown -= delta
	if a.cooldown <= 0 {
		avg := average(a.bassHistory)
		if avg > 0 && bass > avg*1.6 && rise > 0.05 {
			onset = true
			a.cooldown = a.minGap
		}
	}
	a.pushBass(bass)

	return Features{
		Bass:         bassOut,
		Mid:          midOut,
		Treble:       trebleOut,
		Overall:      (bassOut + midOut + trebleOut) / 3.0,
		BeatStrength: beat,
		Onset:        onset,
	}
}

func bandEnergy(spectrum []complex128, resolution, loHz, hiHz float64) float64 {
	if loHz >= hiHz || resolution <= 0 {
		return 0
	}
	lo := int(math.Floor(loHz / resolution))
	hi := int(math.Ceil(hiHz/resolution)) + 1
	if hi > len(spectrum)/2 {
		hi = len(spectrum) / 2
	}
	if lo >= hi {
		return 0
	}
	sum := 0.0
	for _, c := range spectrum[lo:hi] {
		sum += math.Hypot(real(c), imag(c))
	}
	return math.Min(1.0, sum/float64(hi-lo))
}

func (a *Analyzer) pushBass(v float64) {
	a.bassHistory = append(a.bassHistory, v)
	if len(a.bassHistory) > a.historySize {
		copy(a.bassHistory, a.bassHistory[1:])
		a.bassHistory = a.bassHistory[:len(a.bassHistory)-1]
	}
}

func (a *Analyzer) ensureWorkspace(size int) {
	if len(a.buffer) != size {
		a.buffer = make([]complex128, size)
	}
	if len(a.window) != size {
		a.window = make([]float64, size)
		for i := range a.window {
			a.window[i] = 0.5 * (1.0 - math.Cos(2.0*math.Pi*float64(i)/float64(size)))
		}
	}
}

func envelope(current, input, attack, release float64) float64 {
	if input > current {
		return current*attack + input*(1-attack)
	}
	return current * release
}

// expand pushes values near the running peak up so kicks read clearly.
func expand(value, peak float64) float64 {
	if peak < 0.01 {
		return value
	}
	ratio := math.Max(0, value/peak)
	out := math.Pow(ratio, 0.7) * peak
	if ratio > 0.85 {
		out *= 1.0 + (ratio-0.85)*2.0
	}
	return math.Min(1.0, out)
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func nextPow2(n int) int {
	if n <= 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	return n + 1
}

func clamp(v, minVal, maxVal float64) float64 {
	if v < minVal {
		return minVal
	}
	if v > maxVal {
		return maxVal
	}
	return v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
