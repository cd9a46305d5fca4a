package deform

import (
	"math"
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/guidoenr/spherizer/internal/noise"
	"github.com/guidoenr/spherizer/internal/params"
	"github.com/guidoenr/spherizer/internal/particle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// quiet disables every effect that is not ambient motion.
func quiet() params.Parameters {
	p := params.Defaults()
	p.PulseStrength = 0
	p.PointerWaveStrength = 0
	p.PointerVortexStrength = 0
	p.PointerDragStrength = 0
	p.PointerPushPullStrength = 0
	p.ClickStrength = 0
	return p
}

func randomInputs(rng *rand.Rand) FrameInputs {
	p := params.Defaults()
	p.Chaos = rng.Float64() * 2
	p.PulseStrength = rng.Float64() * 3
	p.Opacity = rng.Float64()*1.5 - 0.25
	p.ParticleSize = rng.Float64() * 4
	p.SizeVariation = rng.Float64()

	in := FrameInputs{
		Time:   rng.Float64() * 100,
		Params: p,
		Pointer: PointerSample{
			Current:   randVec(rng, 6),
			Previous:  randVec(rng, 6),
			Influence: rng.Float64(),
		},
	}
	for i := 0; i < rng.Intn(5); i++ {
		in.Impulses = append(in.Impulses, Impulse{
			ID:       uint64(i),
			Origin:   randVec(rng, 4),
			Start:    in.Time - rng.Float64()*5,
			Strength: rng.Float64() * 3,
		})
	}
	return in
}

func randVec(rng *rand.Rand, scale float64) mgl64.Vec3 {
	return mgl64.Vec3{
		(rng.Float64()*2 - 1) * scale,
		(rng.Float64()*2 - 1) * scale,
		(rng.Float64()*2 - 1) * scale,
	}
}

func TestAlphaAndSizeStayInBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	field := noise.NewValue()
	for i := 0; i < 3000; i++ {
		in := randomInputs(rng)
		p := particle.Particle{
			Base:       randVec(rng, 3),
			Color:      mgl64.Vec3{rng.Float64(), rng.Float64(), rng.Float64()},
			SizeFactor: 0.05 + rng.Float64()*2,
			Phase:      rng.Float64(),
		}
		s := Evaluate(field, p, in)
		require.GreaterOrEqual(t, s.Alpha, 0.1)
		require.LessOrEqual(t, s.Alpha, 1.0)
		require.Greater(t, s.Size, 0.0)
		require.True(t, finiteVec(s.Position), "position %v", s.Position)
		require.True(t, finiteVec(s.Color), "color %v", s.Color)
	}
}

func FuzzEvaluate(f *testing.F) {
	f.Add(0.0, 0.0, 0.0, 0.0, 0.5, 1.0, 0.0, 0.25)
	f.Add(3.0, 0.0, 0.0, 0.0, 0.0, 0.0, 1.0, 0.9)
	f.Add(1e6, -1e6, 0.0, 42.0, 1.0, 5.0, 0.5, 0.0)
	f.Fuzz(func(t *testing.T, x, y, z, time, phase, chaos, influence, age float64) {
		for _, v := range []float64{x, y, z, time, phase, chaos, influence, age} {
			if !finite(v) {
				t.Skip()
			}
		}
		p := params.Defaults()
		p.Chaos = chaos
		in := FrameInputs{
			Time:    time,
			Params:  p,
			Pointer: PointerSample{Current: mgl64.Vec3{x, y, z}, Influence: clamp(influence, 0, 1)},
			Impulses: []Impulse{
				{ID: 1, Start: time - age, Strength: 1.5},
			},
		}
		s := Evaluate(noise.NewValue(), particle.Particle{Base: mgl64.Vec3{x, y, z}, SizeFactor: 1, Phase: math.Abs(math.Mod(phase, 1))}, in)
		if s.Alpha < 0.1 || s.Alpha > 1 || !(s.Size > 0) || !finiteVec(s.Position) || !finiteVec(s.Color) {
			t.Fatalf("bad sample %+v", s)
		}
	})
}

func TestInactiveEffectsLeaveOnlyAmbient(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	field := noise.NewValue()
	for i := 0; i < 500; i++ {
		p := particle.Particle{Base: randVec(rng, 3), SizeFactor: 1, Phase: rng.Float64()}
		in := FrameInputs{
			Time:    rng.Float64() * 50,
			Params:  quiet(),
			Pointer: PointerSample{Current: randVec(rng, 3)},
		}
		s := Evaluate(field, p, in)
		want := p.Base.Add(Ambient(field, p, in.Time, in.Params.Chaos))
		assert.True(t, s.Position.ApproxEqualThreshold(want, 1e-12), "got %v want %v", s.Position, want)

		l := decompose(field, p, in)
		assert.True(t, l.Pulse.IsZero())
		assert.True(t, l.Impulse.IsZero())
		assert.True(t, l.Pointer.IsZero())
	}
}

func TestZeroStrengthImpulseIsNoop(t *testing.T) {
	imp := Impulse{ID: 1, Origin: mgl64.Vec3{0.5, 0, 0}, Start: 0, Strength: 0}
	c := ImpulseAt(mgl64.Vec3{1, 0, 0}, 0.3, 0.2, imp)
	assert.True(t, c.IsZero())
}

func TestStrengthCurve(t *testing.T) {
	at0 := StrengthCurve(0)
	assert.GreaterOrEqual(t, at0, 1.0)
	assert.LessOrEqual(t, at0, 1.2)

	assert.InDelta(t, 0.95, StrengthCurve(0.3), 1e-9)
	assert.InDelta(t, 0.5, StrengthCurve(1.0), 1e-9)
	assert.InDelta(t, 0.25, StrengthCurve(2.0), 1e-9)
	assert.Equal(t, 0.0, StrengthCurve(4.5))
	assert.Equal(t, 0.0, StrengthCurve(10))
	assert.Equal(t, 0.0, StrengthCurve(-0.1))

	imp := Impulse{Start: 1, Strength: 1}
	assert.False(t, imp.Expired(5.4))
	assert.True(t, imp.Expired(5.5))
	assert.Equal(t, 0.0, imp.EffectiveStrength(5.5))
}

func TestStrengthCurveIsApproximatelyContinuous(t *testing.T) {
	for _, edge := range []float64{0.3, 1.0, 2.0, 3.5} {
		before := StrengthCurve(edge - 1e-9)
		after := StrengthCurve(edge)
		assert.InDeltaf(t, before, after, 0.2, "jump at %v", edge)
	}
}

func TestEvaluateIsDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	field := noise.ByName("simplex", 4)
	for i := 0; i < 200; i++ {
		in := randomInputs(rng)
		p := particle.Particle{Base: randVec(rng, 3), Color: mgl64.Vec3{0.2, 0.4, 0.8}, SizeFactor: 1.1, Phase: rng.Float64()}
		a := Evaluate(field, p, in)
		b := Evaluate(field, p, in)
		if diff := cmp.Diff(a, b); diff != "" {
			t.Fatalf("evaluations differ (-a +b):\n%s", diff)
		}
	}
}

func TestRestingParticleAtTimeZero(t *testing.T) {
	p := quiet()
	p.Chaos = 0
	part := particle.Particle{Base: mgl64.Vec3{3, 0, 0}, Color: p.BaseRGB(), SizeFactor: 1, Phase: 0}

	s := Evaluate(noise.NewValue(), part, FrameInputs{Time: 0, Params: p})
	assert.Equal(t, part.Base, s.Position)
	assert.InDelta(t, p.Opacity, s.Alpha, 1e-12)
	assert.InDelta(t, p.ParticleSize, s.Size, 1e-12)
	assert.Equal(t, part.Color, s.Color)
}

func TestImpactSplashAndPrimaryRippleCombine(t *testing.T) {
	imp := Impulse{ID: 1, Origin: mgl64.Vec3{}, Start: 0, Strength: 1.5}
	pos := mgl64.Vec3{1.2, 0, 0}
	const now = 0.25

	f, ok := newImpulseFrame(pos, 0, now, imp)
	require.True(t, ok)
	require.InDelta(t, 1.2, f.dist, 1e-12)

	splash := f.splash()
	primary := f.primaryRipple()
	assert.NotZero(t, splash.Offset.Len())
	assert.NotZero(t, primary.Offset.Len())

	want := splash.Offset.
		Add(primary.Offset).
		Add(f.secondaryRipple().Offset).
		Add(f.surfaceTension().Offset).
		Add(f.capillary().Offset)
	got := ImpulseAt(pos, 0, now, imp)
	assert.True(t, got.Finite())
	assert.NotZero(t, got.Offset.Len())
	assert.True(t, got.Offset.ApproxEqualThreshold(want, 1e-12))
}

func TestParticleOnEffectOriginStaysFinite(t *testing.T) {
	p := params.Defaults()
	p.Chaos = 0
	part := particle.Particle{Base: mgl64.Vec3{}, SizeFactor: 1}
	in := FrameInputs{
		Time:     0.1,
		Params:   p,
		Pointer:  PointerSample{Influence: 1},
		Impulses: []Impulse{{ID: 1, Strength: 2}},
	}
	s := Evaluate(noise.NewValue(), part, in)
	assert.True(t, finiteVec(s.Position))
	assert.NotEqual(t, part.Base, s.Position)
}

func TestPulseGating(t *testing.T) {
	p := params.Defaults()
	p.PulseStrength = 0.005
	assert.True(t, Pulse(mgl64.Vec3{1, 0, 0}, 0, 0.3, p).IsZero())

	p.PulseStrength = 1
	p.PulseInterval = 0
	assert.True(t, Pulse(mgl64.Vec3{1, 0, 0}, 0, 0.3, p).IsZero())

	p = params.Defaults()
	assert.False(t, Pulse(mgl64.Vec3{1, 0, 0}, 0, 0.3, p).IsZero())
}

func TestPointerOutsideRadiusOnlyGlows(t *testing.T) {
	p := params.Defaults()
	ptr := PointerSample{Current: mgl64.Vec3{10, 0, 0}, Influence: 1}
	c := Pointer(mgl64.Vec3{0, 0, 0}, 0, 1, ptr, p)
	assert.Equal(t, mgl64.Vec3{}, c.Offset)
	assert.Zero(t, c.ColorMix)
	assert.InDelta(t, math.Exp(-8), c.Glow, 1e-12)

	ptr.Influence = 0.005
	assert.True(t, Pointer(mgl64.Vec3{}, 0, 1, ptr, p).IsZero())
}

func TestPointerDragFollowsVelocity(t *testing.T) {
	p := quiet()
	p.PointerDragStrength = 1
	p.Viscosity = 1
	ptr := PointerSample{Current: mgl64.Vec3{0.1, 0, 0}, Previous: mgl64.Vec3{0, 0, 0}, Influence: 1}
	c := Pointer(mgl64.Vec3{0.1, 0, 0}, 0, 0, ptr, p)
	assert.Greater(t, c.Offset[0], 0.0)
	assert.InDelta(t, 3.0, ptr.Velocity()[0], 1e-12)
}

func TestColorMixLeansToAccent(t *testing.T) {
	p := quiet()
	p.Chaos = 0
	part := particle.Particle{Base: mgl64.Vec3{1, 0, 0}, Color: p.BaseRGB(), SizeFactor: 1}
	in := FrameInputs{Params: p, Pointer: PointerSample{Current: mgl64.Vec3{1, 0, 0}, Influence: 1}}
	s := Evaluate(noise.NewValue(), part, in)

	base := p.BaseRGB()
	accent := p.AccentRGB()
	assert.Less(t, s.Color.Sub(accent).Len(), base.Sub(accent).Len())
}

func TestEngineMatchesEvaluate(t *testing.T) {
	cloud := particle.NewCloud(particle.Config{Count: 3000, Radius: 3, Color: mgl64.Vec3{0.3, 0.5, 0.9}, SizeVariation: 0.5}, rand.New(rand.NewSource(2)))
	in := randomInputs(rand.New(rand.NewSource(8)))
	field := noise.NewValue()

	parallel := particle.NewBuffers(0)
	NewEngine(field, 4).Frame(cloud, in, parallel)
	serial := particle.NewBuffers(0)
	NewEngine(field, 1).Frame(cloud, in, serial)

	require.Equal(t, cloud.Len(), parallel.Len())
	if diff := cmp.Diff(serial, parallel, cmpopts.EquateApprox(0, 1e-6)); diff != "" {
		t.Fatalf("parallel frame differs (-serial +parallel):\n%s", diff)
	}

	for _, i := range []int{0, 1234, cloud.Len() - 1} {
		s := Evaluate(field, cloud.At(i), in)
		assert.True(t, parallel.Position(i).ApproxEqualThreshold(s.Position, 1e-5))
		assert.InDelta(t, s.Alpha, float64(parallel.Alphas[i]), 1e-6)
	}
}

func TestEngineEmptyCloud(t *testing.T) {
	out := particle.NewBuffers(10)
	NewEngine(nil, 0).Frame(particle.NewCloud(particle.Config{}, rand.New(rand.NewSource(1))), FrameInputs{Params: params.Defaults()}, out)
	assert.Zero(t, out.Len())
}

func TestPulseClockAdvancesByFrequencyStep(t *testing.T) {
	const dt = 1.0 / 30
	p := params.Defaults()
	var clk PulseClock

	// Long uptime with a frequency that wobbles every frame.
	prev := 0.0
	for i := 0; i < 30*1000; i++ {
		freq := p.PulseFrequency * (1 + 0.5*(0.5+0.03*float64(i%2)))
		now := clk.Advance(freq, dt)
		require.InDelta(t, freq*dt, now-prev, 1e-9)
		prev = now
	}

	before := newPulseClock(clk.Time(), p)
	after := newPulseClock(clk.Advance(p.PulseFrequency*1.265, dt), p)
	if after.phase > before.phase {
		assert.Less(t, after.radius-before.radius, 0.2)
	}
}

func TestPulseClockIgnoresBadSteps(t *testing.T) {
	var clk PulseClock
	clk.Advance(1, 1)
	clk.Advance(math.NaN(), 1)
	clk.Advance(math.Inf(1), 1)
	clk.Advance(-2, 1)
	assert.Equal(t, 1.0, clk.Time())
}

func TestClockedPulseOverridesDerivedTime(t *testing.T) {
	part := particle.Particle{Base: mgl64.Vec3{1.2, 0, 0}, Color: mgl64.Vec3{0.5, 0.5, 0.5}, SizeFactor: 1}
	p := params.Defaults()
	p.Chaos = 0

	derived := FrameInputs{Time: 1000, Params: p}
	clocked := FrameInputs{Time: 1000, Params: p, PulseTime: 1000 * p.PulseFrequency, ClockedPulse: true}
	assert.Equal(t, Evaluate(noise.NewValue(), part, derived), Evaluate(noise.NewValue(), part, clocked))

	clocked.PulseTime = 0.1
	assert.NotEqual(t, Evaluate(noise.NewValue(), part, derived), Evaluate(noise.NewValue(), part, clocked))
}
