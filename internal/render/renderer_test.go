package render

import (
	"math"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/guidoenr/spherizer/internal/particle"
	"github.com/guidoenr/spherizer/internal/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFalloffProfiles(t *testing.T) {
	for _, blur := range []float64{0.2, 0.6, 0.9} {
		assert.InDeltaf(t, 1.0, Falloff(blur, 0), 1e-12, "centre at blur %v", blur)
		assert.Zerof(t, Falloff(blur, 0.51), "outside at blur %v", blur)
		prev := 2.0
		for r := 0.0; r <= 0.5; r += 0.05 {
			f := Falloff(blur, r)
			assert.LessOrEqual(t, f, prev)
			assert.GreaterOrEqual(t, f, 0.0)
			prev = f
		}
	}
	assert.InDelta(t, math.Exp(-0.75), Falloff(0.9, 0.5), 1e-12)
	assert.InDelta(t, 1-0.375, Falloff(0.6, 0.5), 1e-12)
	assert.InDelta(t, 0, Falloff(0.2, 0.5), 1e-12)
	assert.InDelta(t, 1, Falloff(0.2, 0.15), 1e-12)
	assert.Zero(t, Falloff(0.9, math.NaN()))
}

func TestRGBToANSI(t *testing.T) {
	assert.Equal(t, 232, rgbToANSI(0, 0, 0))
	assert.Equal(t, 255, rgbToANSI(1, 1, 1))
	assert.Equal(t, 196, rgbToANSI(1, 0, 0))
	assert.Equal(t, 21, rgbToANSI(0, 0, 1))
}

func TestTintMonoIsGray(t *testing.T) {
	r, g, b := tint(colorModeMono, 0.2, 0.5, 0.9, 1)
	assert.InDelta(t, r, g, 1e-9)
	assert.InDelta(t, g, b, 1e-9)
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"aurora", "fire", "mono", "natural"}, ColorModeNames())
	assert.Equal(t, []string{"balanced", "eco", "high"}, QualityModeNames())
	assert.Contains(t, PaletteNames(), "dots")
	assert.Equal(t, dotsPalette, Palette("nope"))
}

func TestNewRejectsBadSize(t *testing.T) {
	_, err := New(Options{Width: 0, Height: 10})
	require.Error(t, err)
}

func singleParticle(pos mgl64.Vec3, size float64) *particle.Buffers {
	buf := particle.NewBuffers(1)
	buf.Set(0, pos, mgl64.Vec3{0.3, 0.6, 1}, size, 1)
	return buf
}

func TestRenderDrawsParticleAtCentre(t *testing.T) {
	r, err := New(Options{Width: 40, Height: 20, Quality: "high"})
	require.NoError(t, err)
	sc := scene.New(r.Aspect(), 3.5)

	frame := r.Render(Input{Buffers: singleParticle(mgl64.Vec3{}, 8), Scene: sc, Blur: 0.6, Opacity: 1})
	require.Len(t, frame.Lines, 20)
	for _, line := range frame.Lines {
		assert.Equal(t, 40, len([]rune(line)))
	}
	centre := []rune(frame.Lines[10])
	assert.NotEqual(t, ' ', centre[20])
	assert.Equal(t, strings.Repeat(" ", 40), frame.Lines[0])
	assert.Contains(t, frame.Status, "particles 0")
	assert.Nil(t, frame.Present)
}

func TestRenderANSIEmitsColour(t *testing.T) {
	r, err := New(Options{Width: 30, Height: 15, UseANSI: true})
	require.NoError(t, err)
	sc := scene.New(r.Aspect(), 3.5)
	frame := r.Render(Input{Buffers: singleParticle(mgl64.Vec3{}, 8), Scene: sc, Blur: 0.9, Opacity: 1})
	joined := strings.Join(frame.Lines, "\n")
	assert.Contains(t, joined, "\x1b[38;5;")
	assert.True(t, strings.HasSuffix(frame.Lines[0], resetANSI))
}

func TestRenderSkipsOffscreenParticles(t *testing.T) {
	r, err := New(Options{Width: 20, Height: 10})
	require.NoError(t, err)
	sc := scene.New(r.Aspect(), 3.5)
	frame := r.Render(Input{Buffers: singleParticle(mgl64.Vec3{0, 0, 20}, 2), Scene: sc, Opacity: 1})
	for _, line := range frame.Lines {
		assert.Equal(t, strings.Repeat(" ", 20), line)
	}
}

func TestRenderWithoutInputsIsEmpty(t *testing.T) {
	r, err := New(Options{Width: 20, Height: 10})
	require.NoError(t, err)
	assert.Empty(t, r.Render(Input{}).Lines)
}

func TestEcoQualityKeepsSpritesSmall(t *testing.T) {
	r, err := New(Options{Width: 40, Height: 20, Quality: "eco"})
	require.NoError(t, err)
	sc := scene.New(r.Aspect(), 3.5)
	frame := r.Render(Input{Buffers: singleParticle(mgl64.Vec3{}, 8), Scene: sc, Blur: 0.6, Opacity: 1})
	lit := 0
	for _, line := range frame.Lines {
		for _, ch := range line {
			if ch != ' ' {
				lit++
			}
		}
	}
	assert.LessOrEqual(t, lit, 4)
	assert.Greater(t, lit, 0)
}

func TestResizeAndAspect(t *testing.T) {
	r, err := New(Options{Width: 80, Height: 20})
	require.NoError(t, err)
	assert.InDelta(t, 2.0, r.Aspect(), 1e-12)
	r.Resize(100, 0)
	w, h := r.Size()
	assert.Equal(t, 100, w)
	assert.Equal(t, 20, h)
}

func TestEachRowVisitsEveryRow(t *testing.T) {
	seen := make([]int, 37)
	eachRow(len(seen), func(y int) { seen[y]++ })
	for y, n := range seen {
		assert.Equalf(t, 1, n, "row %d", y)
	}
}
