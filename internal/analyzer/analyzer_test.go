package analyzer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAverage(t *testing.T) {
	assert.InDelta(t, 0.5, average([]float64{0.2, 0.4, 0.6, 0.8}), 1e-9)
	assert.Zero(t, average(nil))
}

func TestNextPow2(t *testing.T) {
	cases := map[int]int{0: 1, 1: 1, 2: 2, 3: 4, 5: 8, 16: 16, 31: 32, 257: 512}
	for input, want := range cases {
		assert.Equalf(t, want, nextPow2(input), "nextPow2(%d)", input)
	}
}

func TestExpandWithLowPeakReturnsValue(t *testing.T) {
	assert.Equal(t, 0.5, expand(0.5, 0.0))
}

func TestSilenceYieldsNoOnset(t *testing.T) {
	a := New(Config{})
	samples := make([]float32, 1024)
	for i := 0; i < 30; i++ {
		f := a.Analyze(samples, 1.0/60)
		assert.False(t, f.Onset)
		assert.Zero(t, f.Bass)
	}
}

func TestKickAfterQuietProducesOnset(t *testing.T) {
	a := New(Config{SampleRate: 44100})
	quiet := tone(60, 0.001, 2048, 44100)
	loud := tone(60, 0.01, 2048, 44100)

	for i := 0; i < 20; i++ {
		a.Analyze(quiet, 1.0/60)
	}
	f := a.Analyze(loud, 1.0/60)
	assert.True(t, f.Onset)
	assert.Greater(t, f.BeatStrength, 0.5)

	// cooldown suppresses an immediate second onset
	again := a.Analyze(loud, 1.0/60)
	assert.False(t, again.Onset)
}

func TestGate(t *testing.T) {
	f := Gate(Features{Bass: 0.05, Mid: 0.6, BeatStrength: 0.05, Onset: true}, 0.1)
	assert.Zero(t, f.Bass)
	assert.InDelta(t, (0.6-0.1)/0.9, f.Mid, 1e-9)
	assert.False(t, f.Onset)
}

func tone(freq, amp float64, n int, rate float64) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(amp * math.Sin(2*math.Pi*freq*float64(i)/rate))
	}
	return out
}
