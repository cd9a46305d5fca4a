package params

import (
	"math"
	"reflect"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/lucasb-eyer/go-colorful"
)

// Parameters is the flat effect configuration read by every generator.
// The core never mutates it; hosts replace it wholesale between frames.
type Parameters struct {
	Color         string  `json:"color" mapstructure:"color"`
	AccentColor   string  `json:"accentColor" mapstructure:"accent_color"`
	ParticleCount int     `json:"particleCount" mapstructure:"particle_count"`
	Radius        float64 `json:"radius" mapstructure:"radius"`
	ParticleSize  float64 `json:"particleSize" mapstructure:"particle_size"`
	SizeVariation float64 `json:"sizeVariation" mapstructure:"size_variation"`
	BlurAmount    float64 `json:"blurAmount" mapstructure:"blur_amount"`
	Chaos         float64 `json:"chaos" mapstructure:"chaos"`
	Viscosity     float64 `json:"viscosity" mapstructure:"viscosity"`
	WaveAmplitude float64 `json:"waveAmplitude" mapstructure:"wave_amplitude"`
	Opacity       float64 `json:"opacity" mapstructure:"opacity"`

	PulseStrength  float64 `json:"pulseStrength" mapstructure:"pulse_strength"`
	PulseFrequency float64 `json:"pulseFrequency" mapstructure:"pulse_frequency"`
	PulseInterval  float64 `json:"pulseInterval" mapstructure:"pulse_interval"`

	PointerRadius           float64 `json:"pointerRadius" mapstructure:"pointer_radius"`
	PointerWaveStrength     float64 `json:"pointerWaveStrength" mapstructure:"pointer_wave_strength"`
	PointerVortexStrength   float64 `json:"pointerVortexStrength" mapstructure:"pointer_vortex_strength"`
	PointerDragStrength     float64 `json:"pointerDragStrength" mapstructure:"pointer_drag_strength"`
	PointerPushPullStrength float64 `json:"pointerPushPullStrength" mapstructure:"pointer_push_pull_strength"`
	PointerEnterSpeed       float64 `json:"pointerEnterSpeed" mapstructure:"pointer_enter_speed"`
	PointerExitSpeed        float64 `json:"pointerExitSpeed" mapstructure:"pointer_exit_speed"`
	ColorRadius             float64 `json:"colorRadius" mapstructure:"color_radius"`

	ClickStrength       float64 `json:"clickStrength" mapstructure:"click_strength"`
	ClickRandomness     float64 `json:"clickRandomness" mapstructure:"click_randomness"`
	MaxConcurrentClicks int     `json:"maxConcurrentClicks" mapstructure:"max_concurrent_clicks"`
	InteractionRadius   float64 `json:"interactionRadius" mapstructure:"interaction_radius"`
}

// Defaults returns the stock look: a soft blue sphere with a pink accent.
func Defaults() Parameters {
	return Parameters{
		Color:         "#4a90e2",
		AccentColor:   "#ff6b9d",
		ParticleCount: 6000,
		Radius:        3.0,
		ParticleSize:  1.5,
		SizeVariation: 0.5,
		BlurAmount:    0.6,
		Chaos:         0.25,
		Viscosity:     0.4,
		WaveAmplitude: 0.3,
		Opacity:       0.7,

		PulseStrength:  0.4,
		PulseFrequency: 0.6,
		PulseInterval:  1.9,

		PointerRadius:           5.5,
		PointerWaveStrength:     1.2,
		PointerVortexStrength:   0.8,
		PointerDragStrength:     0.05,
		PointerPushPullStrength: 0.6,
		PointerEnterSpeed:       0.2,
		PointerExitSpeed:        0.06,
		ColorRadius:             4.5,

		ClickStrength:       1.5,
		ClickRandomness:     0.3,
		MaxConcurrentClicks: 3,
		InteractionRadius:   3.5,
	}
}

// Sanitize returns a copy safe to feed into the generators. Non-finite values
// fall back to defaults and out-of-range values are clamped so a bad record
// degrades into no-op effects instead of failing.
func (p Parameters) Sanitize() Parameters {
	def := Defaults()
	out := p

	// Any NaN/Inf float field is replaced by its default.
	ov := reflect.ValueOf(&out).Elem()
	dv := reflect.ValueOf(def)
	for i := 0; i < ov.NumField(); i++ {
		f := ov.Field(i)
		if f.Kind() != reflect.Float64 {
			continue
		}
		if v := f.Float(); math.IsNaN(v) || math.IsInf(v, 0) {
			f.SetFloat(dv.Field(i).Float())
		}
	}

	if _, err := colorful.Hex(out.Color); err != nil {
		out.Color = def.Color
	}
	if _, err := colorful.Hex(out.AccentColor); err != nil {
		out.AccentColor = def.AccentColor
	}
	if out.ParticleCount < 0 {
		out.ParticleCount = 0
	}
	if out.ParticleCount > MaxParticles {
		out.ParticleCount = MaxParticles
	}
	if out.MaxConcurrentClicks < 0 {
		out.MaxConcurrentClicks = 0
	}

	out.Radius = math.Max(0, out.Radius)
	out.PointerRadius = math.Max(0, out.PointerRadius)
	out.ColorRadius = math.Max(0, out.ColorRadius)
	out.InteractionRadius = math.Max(0, out.InteractionRadius)
	out.SizeVariation = clamp(out.SizeVariation, 0, 1.9)
	out.BlurAmount = clamp(out.BlurAmount, 0, 1)
	out.Opacity = clamp(out.Opacity, 0, 1)
	out.PointerEnterSpeed = clamp(out.PointerEnterSpeed, 0, 1)
	out.PointerExitSpeed = clamp(out.PointerExitSpeed, 0, 1)
	out.ClickRandomness = math.Max(0, out.ClickRandomness)
	if out.ParticleSize <= 0 {
		out.ParticleSize = minParticleSize
	}
	if out.PulseInterval <= 0 {
		out.PulseStrength = 0
		out.PulseInterval = def.PulseInterval
	}
	return out
}

const minParticleSize = 0.01

// MaxParticles bounds the cloud size so a bad record cannot exhaust memory.
const MaxParticles = 100_000

// BaseRGB returns the base colour as linear components in [0,1].
func (p Parameters) BaseRGB() mgl64.Vec3 {
	return hexRGB(p.Color, Defaults().Color)
}

// AccentRGB returns the interaction accent colour.
func (p Parameters) AccentRGB() mgl64.Vec3 {
	return hexRGB(p.AccentColor, Defaults().AccentColor)
}

func hexRGB(hex, fallback string) mgl64.Vec3 {
	c, err := colorful.Hex(hex)
	if err != nil {
		c, _ = colorful.Hex(fallback)
	}
	c = c.Clamped()
	return mgl64.Vec3{c.R, c.G, c.B}
}

func lerp(current, target, factor float64) float64 {
	return current*(1-factor) + target*factor
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
