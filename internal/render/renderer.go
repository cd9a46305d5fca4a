package render

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/guidoenr/spherizer/internal/particle"
	"github.com/guidoenr/spherizer/internal/scene"
)

// ErrRendererQuit is returned by Frame.Present when the user closes the window.
var ErrRendererQuit = errors.New("renderer quit")

type qualityMode string
type backend int

const (
	qualityHigh     qualityMode = "high"
	qualityBalanced qualityMode = "balanced"
	qualityEco      qualityMode = "eco"
)

const (
	backendANSI backend = iota
	backendSDL
)

var qualityModeNames = []string{
	string(qualityHigh),
	string(qualityBalanced),
	string(qualityEco),
}

// QualityModeNames returns the supported quality modes.
func QualityModeNames() []string {
	out := make([]string, len(qualityModeNames))
	copy(out, qualityModeNames)
	sort.Strings(out)
	return out
}

func parseQualityMode(name string) qualityMode {
	switch strings.ToLower(name) {
	case "eco", "low", "pi":
		return qualityEco
	case "balanced", "medium", "mid":
		return qualityBalanced
	case "high", "full", "max":
		return qualityHigh
	default:
		return qualityBalanced
	}
}

// maxRadius caps a sprite's footprint in rows. Eco skips footprints entirely.
func (q qualityMode) maxRadius() float64 {
	switch q {
	case qualityHigh:
		return 6
	default:
		return 3
	}
}

// Options configures a Renderer.
type Options struct {
	Width     int
	Height    int
	Palette   string
	ColorMode string
	Quality   string
	UseANSI   bool
	// CellAspect is a terminal cell's height over its width.
	CellAspect float64
	// Exposure maps accumulated sprite coverage onto brightness.
	Exposure float64
}

// Stats is the status-line summary of a frame.
type Stats struct {
	Particles int
	Impulses  int
	Influence float64
	Bass      float64
	Energy    float64
	FPS       float64
	Noise     string
}

// Input is everything a frame draws.
type Input struct {
	Buffers *particle.Buffers
	Scene   *scene.Scene
	Blur    float64
	Opacity float64
	Stats   Stats
}

// Renderer rasterises projected particles into ASCII frames, or into an SDL window
// when built with the sdl tag.
type Renderer struct {
	width         int
	height        int
	palette       []rune
	paletteName   string
	colorMode     colorMode
	quality       qualityMode
	useANSI       bool
	cellAspect    float64
	exposure      float64
	acc           accumulator
	mode          backend
	sdl           *sdlState
	statusBuilder strings.Builder
}

// Frame contains the rendered ASCII lines and status text. Present is set for
// windowed backends and draws the frame itself.
type Frame struct {
	Lines   []string
	Status  string
	Present func(status string) error
}

var (
	resetANSI       = "\x1b[0m"
	precomputedANSI [256]string
)

func init() {
	for i := range precomputedANSI {
		precomputedANSI[i] = "\x1b[38;5;" + strconv.Itoa(i) + "m"
	}
}

// New creates a Renderer.
func New(opts Options) (*Renderer, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("invalid dimensions: width=%d height=%d", opts.Width, opts.Height)
	}
	if opts.CellAspect <= 0 {
		opts.CellAspect = 2
	}
	if opts.Exposure <= 0 {
		opts.Exposure = 1.2
	}

	r := &Renderer{
		width:      opts.Width,
		height:     opts.Height,
		useANSI:    opts.UseANSI,
		cellAspect: opts.CellAspect,
		exposure:   opts.Exposure,
		mode:       backendANSI,
	}
	r.SetQuality(opts.Quality)
	r.Configure(opts.Palette, opts.ColorMode)
	return r, nil
}

// EnableSDL switches to the windowed backend at the given pixel size.
func (r *Renderer) EnableSDL(width, height int) error {
	if err := r.initSDL(width, height); err != nil {
		return fmt.Errorf("sdl backend: %w", err)
	}
	r.width = width
	r.height = height
	r.cellAspect = 1
	return nil
}

// Windowed reports whether frames are presented in a window.
func (r *Renderer) Windowed() bool { return r.windowedSDL() }

// Configure updates palette and color behaviour dynamically.
func (r *Renderer) Configure(paletteName, colorModeName string) {
	if paletteName == "" {
		paletteName = "dots"
	}
	r.palette = Palette(paletteName)
	r.paletteName = paletteName
	r.colorMode = parseColorMode(colorModeName)
}

// Resize updates the framebuffer dimensions.
func (r *Renderer) Resize(width, height int) {
	changed := false
	if width > 0 && r.width != width {
		r.width = width
		changed = true
	}
	if height > 0 && r.height != height {
		r.height = height
		changed = true
	}
	if changed && r.mode == backendSDL {
		r.resizeSDL()
	}
}

// Size returns the raster size in cells (or pixels when windowed).
func (r *Renderer) Size() (int, int) { return r.width, r.height }

// Aspect is the physical width/height ratio of the raster, for the camera.
func (r *Renderer) Aspect() float64 {
	if r.height <= 0 {
		return 1
	}
	return float64(r.width) / (float64(r.height) * r.cellAspect)
}

func (r *Renderer) PaletteName() string   { return r.paletteName }
func (r *Renderer) ColorModeName() string { return string(r.colorMode) }
func (r *Renderer) QualityName() string   { return string(r.quality) }

// SetQuality updates renderer quality preset.
func (r *Renderer) SetQuality(name string) {
	if name == "" {
		name = string(qualityBalanced)
	}
	r.quality = parseQualityMode(name)
}

// Close releases any windowing resources.
func (r *Renderer) Close() error {
	return r.closeSDL()
}

// Render draws one frame of particles.
func (r *Renderer) Render(in Input) Frame {
	if r.width <= 0 || r.height <= 0 || in.Buffers == nil || in.Scene == nil {
		return Frame{}
	}

	r.acc.reset(r.width, r.height)
	r.acc.project(in.Buffers, in.Scene, clamp01(in.Opacity), r.cellAspect, r.quality.maxRadius(), r.quality == qualityEco)

	status := r.buildStatus(in.Stats)
	if r.mode == backendSDL {
		return r.renderSDL(in.Blur, status)
	}

	lines := make([]string, r.height)
	width := r.width
	useANSI := r.useANSI
	glyphs := r.palette
	blur := in.Blur

	eachRow(r.height, func(y int) {
		r.acc.accumulateRow(y, blur)

		var builder strings.Builder
		builder.Grow(width * 8)
		lastColor := -1
		for x := 0; x < width; x++ {
			cr, cg, cb, brightness := r.acc.cell(x, y, r.exposure)
			index := clampInt(int(math.Pow(brightness, 0.8)*float64(len(glyphs)-1)+0.5), 0, len(glyphs)-1)
			if useANSI && index > 0 {
				fg := rgbToANSI(tint(r.colorMode, cr, cg, cb, brightness))
				if fg != lastColor {
					builder.WriteString(colorCode(fg))
					lastColor = fg
				}
			}
			builder.WriteRune(glyphs[index])
		}
		if useANSI {
			builder.WriteString(resetANSI)
		}
		lines[y] = builder.String()
	})

	return Frame{Lines: lines, Status: status}
}

func colorCode(index int) string {
	if index < 0 {
		index = 0
	} else if index >= len(precomputedANSI) {
		index = len(precomputedANSI) - 1
	}
	return precomputedANSI[index]
}

func rgbToANSI(r, g, b float64) int {
	r = clamp01(r)
	g = clamp01(g)
	b = clamp01(b)

	// Grayscale ramp for near-neutral colours
	if math.Abs(r-g) < 0.02 && math.Abs(g-b) < 0.02 {
		gray := int(clampFloat(math.Round(r*23), 0, 23))
		return 232 + gray
	}

	ri := int(clampFloat(r*5+0.5, 0, 5))
	gi := int(clampFloat(g*5+0.5, 0, 5))
	bi := int(clampFloat(b*5+0.5, 0, 5))

	return 16 + 36*ri + 6*gi + bi
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

func clampFloat(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func (r *Renderer) buildStatus(s Stats) string {
	builder := &r.statusBuilder
	builder.Reset()
	builder.Grow(128)
	builder.WriteString(colorModeLabel(r.colorMode))
	builder.WriteString(" | palette=")
	builder.WriteString(r.paletteName)
	builder.WriteString(" quality=")
	builder.WriteString(r.QualityName())
	if s.Noise != "" {
		builder.WriteString(" noise=")
		builder.WriteString(s.Noise)
	}
	builder.WriteString(" | particles ")
	builder.WriteString(strconv.Itoa(s.Particles))
	builder.WriteString(" clicks ")
	builder.WriteString(strconv.Itoa(s.Impulses))
	builder.WriteString(" pointer ")
	appendFloat(builder, s.Influence, 2)
	builder.WriteString(" bass ")
	appendFloat(builder, s.Bass, 2)
	builder.WriteString(" energy ")
	appendFloat(builder, s.Energy, 2)
	builder.WriteString(" fps ")
	appendFloat(builder, s.FPS, 1)
	return builder.String()
}

func appendFloat(builder *strings.Builder, value float64, precision int) {
	var buf [32]byte
	b := strconv.AppendFloat(buf[:0], value, 'f', precision, 64)
	builder.Write(b)
}
