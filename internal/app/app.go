package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/guidoenr/spherizer/internal/analyzer"
	"github.com/guidoenr/spherizer/internal/audio"
	"github.com/guidoenr/spherizer/internal/deform"
	"github.com/guidoenr/spherizer/internal/interaction"
	"github.com/guidoenr/spherizer/internal/noise"
	"github.com/guidoenr/spherizer/internal/params"
	"github.com/guidoenr/spherizer/internal/particle"
	"github.com/guidoenr/spherizer/internal/render"
	"github.com/guidoenr/spherizer/internal/scene"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
	"go.uber.org/zap"
	"golang.org/x/term"
	"golang.org/x/time/rate"
)

const (
	introSeconds  = 1.5
	publishRate   = 30
	windowWidth   = 960
	windowHeight  = 720
	inputBuffer   = 64
	controlBuffer = 16
)

// Config configures the application runtime.
type Config struct {
	Width         int
	Height        int
	TargetFPS     float64
	ShowStatusBar bool
	Palette       string
	ColorMode     string
	Quality       string
	UseANSI       bool
	SDL           bool
	Noise         string
	Seed          int64
	Params        params.Parameters
	EnableAudio   bool
	DeviceName    string
	BufferSize    int
	Autopilot     bool
	// Keyboard reads arrow keys and shortcuts from the terminal.
	Keyboard      bool
	// Terminal switches to the alternate screen.
	Terminal      bool
	// FollowTerm resizes the frame with the terminal.
	FollowTerm    bool
	ProfilePath   string
	Output        io.Writer
	Logger        *zap.Logger
}

// PointerInput is a pointer sample in normalized device coordinates. The frame
// loop turns it into a sphere-local interaction event.
type PointerInput struct {
	Kind interaction.EventKind
	X, Y float64
	At   time.Time
}

// FrameData is one frame of projected particles: x, y, size, r, g, b, a per particle
// with x and y in normalized device coordinates and size in reference pixels.
type FrameData struct {
	Time   float64
	Count  int
	Points []float32
}

// FrameSink receives projected frames. PublishFrame must not block.
type FrameSink interface {
	PublishFrame(FrameData)
}

// Status is a snapshot of the running sphere.
type Status struct {
	Time        float64 `json:"time"`
	PulseTime   float64 `json:"pulseTime"`
	FPS         float64 `json:"fps"`
	Particles   int     `json:"particles"`
	Impulses    int     `json:"impulses"`
	Clicks      uint64  `json:"clicks"`
	Influence   float64 `json:"influence"`
	Bass        float64 `json:"bass"`
	Energy      float64 `json:"energy"`
	Noise       string  `json:"noise"`
	Palette     string  `json:"palette"`
	ColorMode   string  `json:"colorMode"`
	Quality     string  `json:"quality"`
	AudioDevice string  `json:"audioDevice,omitempty"`
	Autopilot   bool    `json:"autopilot"`
}

type controlKind int

const (
	controlRandomize controlKind = iota
	controlQuit
	controlParams
	controlNextNoise
	controlNextPalette
	controlNextColor
)

type control struct {
	kind  controlKind
	patch ParamsPatch
}

// ParamsPatch edits a parameter record. The frame loop runs it against the
// current base when the change is applied.
type ParamsPatch func(params.Parameters) params.Parameters

// App owns the particle cloud and the interaction state and drives one frame per tick.
type App struct {
	cfg      Config
	log      *zap.Logger
	renderer *render.Renderer
	scene    *scene.Scene
	engine   *deform.Engine
	cloud    *particle.Cloud
	buffers  *particle.Buffers
	state    *interaction.State
	reactor  params.Reactor
	capture  *audio.Capture
	analyzer *analyzer.Analyzer
	pilot    *autopilot
	intro    *gween.Tween
	pulse    deform.PulseClock
	profiler *profiler
	rng      *rand.Rand
	out      *bufio.Writer

	base      params.Parameters
	live      params.Parameters
	noiseName string
	seed      int64
	sinks     []FrameSink
	publish   *rate.Sometimes

	inputs   chan PointerInput
	controls chan control

	start        time.Time
	last         time.Time
	width        int
	height       int
	renderHeight int

	paletteOptions []string
	colorOptions   []string

	mu     sync.RWMutex
	status Status
	shared params.Parameters
}

// New constructs the application using the provided configuration.
func New(cfg Config) (*App, error) {
	if cfg.TargetFPS <= 0 {
		cfg.TargetFPS = 30
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	if cfg.Width <= 0 {
		cfg.Width = 80
	}
	if cfg.Height <= 0 {
		cfg.Height = 24
	}
	if cfg.Params == (params.Parameters{}) {
		cfg.Params = params.Defaults()
	}
	renderHeight := cfg.Height
	if cfg.ShowStatusBar && renderHeight > 1 {
		renderHeight--
	}

	renderer, err := render.New(render.Options{
		Width:     cfg.Width,
		Height:    renderHeight,
		Palette:   cfg.Palette,
		ColorMode: cfg.ColorMode,
		Quality:   cfg.Quality,
		UseANSI:   cfg.UseANSI,
	})
	if err != nil {
		return nil, fmt.Errorf("renderer: %w", err)
	}
	if cfg.SDL {
		if err := renderer.EnableSDL(windowWidth, windowHeight); err != nil {
			return nil, err
		}
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	base := cfg.Params.Sanitize()
	noiseName := strings.ToLower(cfg.Noise)
	if noiseName == "" {
		noiseName = "value"
	}

	a := &App{
		cfg:            cfg,
		log:            cfg.Logger,
		renderer:       renderer,
		scene:          scene.New(renderer.Aspect(), base.InteractionRadius),
		engine:         deform.NewEngine(noise.ByName(noiseName, seed), 0),
		buffers:        particle.NewBuffers(0),
		state:          interaction.NewState(base, rng),
		intro:          gween.New(0, 1, introSeconds, ease.OutCubic),
		profiler:       newProfiler(cfg.ProfilePath, cfg.Logger),
		rng:            rng,
		out:            bufio.NewWriterSize(cfg.Output, 1<<16),
		base:           base,
		live:           base,
		shared:         base,
		noiseName:      noiseName,
		seed:           seed,
		publish:        &rate.Sometimes{Interval: time.Second / publishRate},
		inputs:         make(chan PointerInput, inputBuffer),
		controls:       make(chan control, controlBuffer),
		width:          cfg.Width,
		height:         cfg.Height,
		renderHeight:   renderHeight,
		paletteOptions: render.PaletteNames(),
		colorOptions:   render.ColorModeNames(),
	}
	a.cloud = a.newCloud(base)

	if cfg.EnableAudio {
		if err := audio.Initialize(); err != nil {
			return nil, err
		}
		capture, err := audio.NewCapture(audio.Config{
			DeviceName: cfg.DeviceName,
			BufferSize: cfg.BufferSize,
			Channels:   2,
		})
		if err != nil {
			audio.Terminate()
			return nil, fmt.Errorf("audio capture: %w", err)
		}
		a.capture = capture
		a.analyzer = analyzer.New(analyzer.Config{
			SampleRate:  capture.SampleRate(),
			HistorySize: 60,
		})
		a.log.Info("audio capture started",
			zap.String("device", capture.DeviceName()),
			zap.Float64("sample_rate", capture.SampleRate()))
	}
	if cfg.Autopilot {
		a.pilot = newAutopilot(rng)
		a.log.Info("autopilot enabled")
	}

	a.start = time.Now()
	a.last = a.start
	a.updateStatus(0, 0)
	return a, nil
}

// Subscribe registers a sink for projected frames. Call before Run.
func (a *App) Subscribe(sink FrameSink) {
	a.sinks = append(a.sinks, sink)
}

// Send queues a pointer sample for the next frame. It never blocks; a full queue drops the sample.
func (a *App) Send(in PointerInput) bool {
	select {
	case a.inputs <- in:
		return true
	default:
		return false
	}
}

// PatchParams queues an edit of the base parameters. Patches apply in order on the
// frame loop, each seeing the result of the one before.
func (a *App) PatchParams(patch ParamsPatch) bool {
	if patch == nil {
		return false
	}
	return a.sendControl(control{kind: controlParams, patch: patch})
}

// Params returns the current base parameters.
func (a *App) Params() params.Parameters {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.shared
}

// Status returns the latest frame snapshot.
func (a *App) Status() Status {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.status
}

// Quit asks the frame loop to stop after the current frame.
func (a *App) Quit() {
	a.sendControl(control{kind: controlQuit})
}

func (a *App) sendControl(c control) bool {
	select {
	case a.controls <- c:
		return true
	default:
		return false
	}
}

// Run starts the render loop until context cancellation.
func (a *App) Run(ctx context.Context) error {
	frameDuration := time.Duration(float64(time.Second) / a.cfg.TargetFPS)
	ticker := time.NewTicker(frameDuration)
	defer ticker.Stop()

	if a.cfg.Terminal && !a.renderer.Windowed() {
		a.enterAltScreen()
		a.clearScreen()
		a.hideCursor()
		defer func() {
			a.showCursor()
			a.exitAltScreen()
			_ = a.out.Flush()
		}()
	}

	inputCtx, cancelInput := context.WithCancel(ctx)
	defer cancelInput()
	if a.cfg.Keyboard {
		a.startInputListener(inputCtx)
	}

	for {
		select {
		case <-ctx.Done():
			a.moveCursorHome()
			return ctx.Err()
		case c := <-a.controls:
			if c.kind == controlQuit {
				a.moveCursorHome()
				return nil
			}
			a.applyControl(c)
		case <-ticker.C:
			if err := a.step(); err != nil {
				if errors.Is(err, render.ErrRendererQuit) {
					return nil
				}
				return err
			}
		}
	}
}

// Close releases held resources.
func (a *App) Close() error {
	var errs []error
	if a.capture != nil {
		errs = append(errs, a.capture.Close())
		audio.Terminate()
	}
	errs = append(errs, a.profiler.Close(), a.renderer.Close())
	return errors.Join(errs...)
}

func (a *App) step() error {
	a.profiler.beginFrame()
	if a.cfg.FollowTerm {
		a.ensureDimensions()
	}

	now := time.Now()
	delta := now.Sub(a.last).Seconds()
	if delta <= 0 {
		delta = 1.0 / a.cfg.TargetFPS
	}
	a.last = now
	clock := now.Sub(a.start).Seconds()

	a.drainInputs(clock)
	a.profiler.markSection("input")

	var features analyzer.Features
	switch {
	case a.capture != nil:
		features = analyzer.Gate(a.analyzer.Analyze(a.capture.Samples(), delta), 0.04)
		if features.Onset {
			a.state.Drop(a.randomSurfacePoint(), clock, a.live)
		}
	case a.pilot != nil:
		s := a.pilot.Next(delta)
		features = s.features
		kind := interaction.EventMove
		if s.tap {
			kind = interaction.EventClick
		}
		a.applyInput(PointerInput{Kind: kind, X: s.x, Y: s.y, At: now}, clock)
	}
	a.profiler.markSection("audio")

	live := a.base
	if a.capture != nil || a.pilot != nil {
		live = a.reactor.Apply(a.base, features, delta)
	}
	fade, _ := a.intro.Update(float32(delta))
	live.Opacity *= float64(fade)
	live.ParticleSize *= math.Max(0.01, float64(fade))
	a.live = live

	a.state.Advance(clock, live)
	a.scene.Spin()
	inputs := a.state.Inputs(clock, live)
	inputs.PulseTime = a.pulse.Advance(live.PulseFrequency, delta)
	inputs.ClockedPulse = true
	a.engine.Frame(a.cloud, inputs, a.buffers)
	a.profiler.markSection("deform")

	if len(a.sinks) > 0 {
		a.publish.Do(func() { a.publishFrame(clock) })
	}

	fps := 1.0 / delta
	bass, energy := a.reactor.Levels()
	frame := a.renderer.Render(render.Input{
		Buffers: a.buffers,
		Scene:   a.scene,
		Blur:    live.BlurAmount,
		Opacity: live.Opacity,
		Stats: render.Stats{
			Particles: a.cloud.Len(),
			Impulses:  a.state.Impulses.Len(),
			Influence: a.state.Pointer.Influence,
			Bass:      bass,
			Energy:    energy,
			FPS:       fps,
			Noise:     a.noiseName,
		},
	})
	a.profiler.markSection("render")

	err := a.present(frame)
	a.profiler.markSection("present")
	a.updateStatus(clock, fps)
	a.profiler.endFrame()
	return err
}

func (a *App) drainInputs(clock float64) {
	for {
		select {
		case in := <-a.inputs:
			a.applyInput(in, clock)
		default:
			return
		}
	}
}

func (a *App) applyInput(in PointerInput, clock float64) {
	ev := interaction.Event{Kind: in.Kind, At: in.At}
	if in.Kind != interaction.EventLeave {
		ev.Position, ev.Hit = a.scene.Pick(in.X, in.Y)
	}
	a.state.Apply(ev, clock, a.live)
}

// randomSurfacePoint picks a point just inside the visible shell for audio-triggered impulses.
func (a *App) randomSurfacePoint() mgl64.Vec3 {
	z := a.rng.Float64()*2 - 1
	theta := a.rng.Float64() * 2 * math.Pi
	r := math.Sqrt(1 - z*z)
	return mgl64.Vec3{r * math.Cos(theta), r * math.Sin(theta), z}.Mul(a.base.Radius * 0.8)
}

func (a *App) publishFrame(clock float64) {
	points := make([]float32, 0, a.buffers.Len()*7)
	count := 0
	for i := 0; i < a.buffers.Len(); i++ {
		p, ok := a.scene.Project(a.buffers.Position(i))
		if !ok {
			continue
		}
		c := a.buffers.Color(i)
		points = append(points,
			float32(p.X), float32(p.Y),
			a.buffers.Sizes[i]*float32(p.Scale),
			float32(c[0]), float32(c[1]), float32(c[2]),
			a.buffers.Alphas[i],
		)
		count++
	}
	data := FrameData{Time: clock, Count: count, Points: points}
	for _, sink := range a.sinks {
		sink.PublishFrame(data)
	}
}

func (a *App) present(frame render.Frame) error {
	status := frame.Status
	if a.capture != nil {
		status = fmt.Sprintf("%s | mic=%s", status, a.capture.DeviceName())
	}
	if frame.Present != nil {
		return frame.Present(status)
	}
	if len(frame.Lines) == 0 {
		return nil
	}
	a.moveCursorHome()
	for _, line := range frame.Lines {
		a.out.WriteString(line)
		a.out.WriteByte('\n')
	}
	if a.cfg.ShowStatusBar {
		a.out.WriteString(statusBar(status, a.width))
		a.out.WriteByte('\n')
	}
	return a.out.Flush()
}

func (a *App) updateStatus(clock, fps float64) {
	bass, energy := a.reactor.Levels()
	s := Status{
		Time:      clock,
		PulseTime: a.pulse.Time(),
		FPS:       fps,
		Particles: a.cloud.Len(),
		Impulses:  a.state.Impulses.Len(),
		Clicks:    a.state.Clicks(),
		Influence: a.state.Pointer.Influence,
		Bass:      bass,
		Energy:    energy,
		Noise:     a.noiseName,
		Palette:   a.renderer.PaletteName(),
		ColorMode: a.renderer.ColorModeName(),
		Quality:   a.renderer.QualityName(),
		Autopilot: a.pilot != nil,
	}
	if a.capture != nil {
		s.AudioDevice = a.capture.DeviceName()
	}
	a.mu.Lock()
	a.status = s
	a.shared = a.base
	a.mu.Unlock()
}

func (a *App) applyControl(c control) {
	switch c.kind {
	case controlParams:
		a.applyParams(c.patch(a.base).Sanitize())
	case controlRandomize:
		a.randomizeVisuals()
	case controlNextNoise:
		names := noise.Names()
		a.setNoise(names[(indexOf(names, a.noiseName)+1)%len(names)])
	case controlNextPalette:
		a.renderer.Configure(next(a.paletteOptions, a.renderer.PaletteName()), a.renderer.ColorModeName())
	case controlNextColor:
		a.renderer.Configure(a.renderer.PaletteName(), next(a.colorOptions, a.renderer.ColorModeName()))
	}
	a.updateStatus(a.status.Time, a.status.FPS)
}

func (a *App) applyParams(p params.Parameters) {
	prev := a.base
	a.base = p
	a.live = p
	switch {
	case p.ParticleCount != prev.ParticleCount || p.Radius != prev.Radius || p.SizeVariation != prev.SizeVariation:
		a.cloud = a.newCloud(p)
		a.log.Info("particle cloud rebuilt", zap.Int("particles", a.cloud.Len()), zap.Float64("radius", p.Radius))
	case p.Color != prev.Color:
		a.cloud = a.cloud.Recolor(prev.BaseRGB(), p.BaseRGB())
	}
	a.scene.SetInteractionRadius(p.InteractionRadius)
}

func (a *App) setNoise(name string) {
	a.noiseName = name
	a.engine = deform.NewEngine(noise.ByName(name, a.seed), 0)
	a.log.Info("noise backend", zap.String("noise", name))
}

func (a *App) newCloud(p params.Parameters) *particle.Cloud {
	return particle.NewCloud(particle.Config{
		Count:         p.ParticleCount,
		Radius:        p.Radius,
		Color:         p.BaseRGB(),
		SizeVariation: p.SizeVariation,
	}, a.rng)
}

func (a *App) randomizeVisuals() {
	palette := pickRandom(a.paletteOptions, a.renderer.PaletteName(), a.rng)
	color := pickRandom(a.colorOptions, a.renderer.ColorModeName(), a.rng)
	a.renderer.Configure(palette, color)

	p := a.base
	p.AccentColor = colorful.Hsv(a.rng.Float64()*360, 0.55+a.rng.Float64()*0.35, 0.9+a.rng.Float64()*0.1).Clamped().Hex()
	a.applyParams(p)

	a.log.Info("randomize visuals",
		zap.String("palette", palette),
		zap.String("color", color),
		zap.String("accent", p.AccentColor))
}

func (a *App) ensureDimensions() {
	if a.renderer.Windowed() {
		return
	}
	fd := int(os.Stdout.Fd())
	w, h, err := term.GetSize(fd)
	if err != nil || w <= 0 || h <= 0 {
		return
	}

	renderHeight := h
	if a.cfg.ShowStatusBar && renderHeight > 1 {
		renderHeight--
	}
	if w == a.width && h == a.height && renderHeight == a.renderHeight {
		return
	}

	a.width = w
	a.height = h
	a.renderHeight = renderHeight
	a.renderer.Resize(w, renderHeight)
	a.scene.SetAspect(a.renderer.Aspect())
}

func statusBar(text string, width int) string {
	if width <= 0 {
		return text
	}
	if len(text) >= width {
		return text[:width]
	}
	return text + strings.Repeat(" ", width-len(text))
}

func (a *App) clearScreen() {
	a.out.WriteString("\x1b[2J")
	a.moveCursorHome()
}

func (a *App) moveCursorHome() { a.out.WriteString("\x1b[H") }
func (a *App) hideCursor()     { a.out.WriteString("\x1b[?25l") }
func (a *App) showCursor()     { a.out.WriteString("\x1b[?25h") }
func (a *App) enterAltScreen() { a.out.WriteString("\x1b[?1049h") }
func (a *App) exitAltScreen()  { a.out.WriteString("\x1b[?1049l\x1b[0m") }

func pickRandom(options []string, current string, rng *rand.Rand) string {
	if len(options) == 0 {
		return current
	}
	if len(options) == 1 {
		return options[0]
	}
	var choice string
	for attempts := 0; attempts < 4; attempts++ {
		choice = options[rng.Intn(len(options))]
		if !strings.EqualFold(choice, current) {
			return choice
		}
	}
	return options[rng.Intn(len(options))]
}

func next(options []string, current string) string {
	if len(options) == 0 {
		return current
	}
	return options[(indexOf(options, current)+1)%len(options)]
}

func indexOf(options []string, current string) int {
	for i, o := range options {
		if strings.EqualFold(o, current) {
			return i
		}
	}
	return -1
}
