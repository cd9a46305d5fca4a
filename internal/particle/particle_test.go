package particle

import (
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCloudSamplesInsideSphere(t *testing.T) {
	cloud := NewCloud(Config{Count: 5000, Radius: 3, Color: mgl64.Vec3{0.3, 0.5, 0.9}, SizeVariation: 0.5}, rand.New(rand.NewSource(1)))
	require.Equal(t, 5000, cloud.Len())

	inner := 0
	for i := 0; i < cloud.Len(); i++ {
		p := cloud.At(i)
		assert.LessOrEqual(t, p.Base.Len(), 3.0+1e-9)
		assert.GreaterOrEqual(t, p.Phase, 0.0)
		assert.Less(t, p.Phase, 1.0)
		assert.InDelta(t, 1.0, p.SizeFactor, 0.25+1e-9)
		for c := 0; c < 3; c++ {
			assert.InDelta(t, []float64{0.3, 0.5, 0.9}[c], p.Color[c], 0.04+1e-9)
		}
		if p.Base.Len() < 1.5 {
			inner++
		}
	}
	// uniform in volume: (1.5/3)^3 = 1/8 of the particles sit in the inner half radius
	assert.InDelta(t, 5000.0/8, float64(inner), 120)
}

func TestNewCloudIsReproducibleForSeed(t *testing.T) {
	cfg := Config{Count: 50, Radius: 2, Color: mgl64.Vec3{1, 1, 1}}
	a := NewCloud(cfg, rand.New(rand.NewSource(9)))
	b := NewCloud(cfg, rand.New(rand.NewSource(9)))
	for i := 0; i < a.Len(); i++ {
		assert.Equal(t, a.At(i), b.At(i))
	}
}

func TestSizeFactorNeverCollapses(t *testing.T) {
	cloud := NewCloud(Config{Count: 500, Radius: 1, SizeVariation: 10}, rand.New(rand.NewSource(3)))
	for i := 0; i < cloud.Len(); i++ {
		assert.GreaterOrEqual(t, cloud.At(i).SizeFactor, minSizeFactor)
	}
}

func TestRecolorKeepsGeometry(t *testing.T) {
	cloud := fromParticles([]Particle{{Base: mgl64.Vec3{1, 2, 2}, Color: mgl64.Vec3{0.5, 0.5, 0.5}, SizeFactor: 1}})
	assert.InDelta(t, 3.0, cloud.Radius(), 1e-9)

	re := cloud.Recolor(mgl64.Vec3{0.5, 0.5, 0.5}, mgl64.Vec3{1, 0, 0.25})
	assert.Equal(t, cloud.At(0).Base, re.At(0).Base)
	assert.True(t, re.At(0).Color.ApproxEqual(mgl64.Vec3{1, 0, 0.25}))
	assert.True(t, cloud.At(0).Color.ApproxEqual(mgl64.Vec3{0.5, 0.5, 0.5}), "original cloud must be untouched")
}

func TestBuffersRoundTrip(t *testing.T) {
	b := NewBuffers(2)
	b.Set(1, mgl64.Vec3{1, -2, 3}, mgl64.Vec3{0.25, 0.5, 1}, 1.5, 0.75)
	assert.Equal(t, 2, b.Len())
	assert.Equal(t, mgl64.Vec3{1, -2, 3}, b.Position(1))
	assert.Equal(t, mgl64.Vec3{0.25, 0.5, 1}, b.Color(1))
	assert.Equal(t, float32(1.5), b.Sizes[1])

	b.Resize(1)
	assert.Equal(t, 1, b.Len())
	assert.Len(t, b.Positions, 3)
}
