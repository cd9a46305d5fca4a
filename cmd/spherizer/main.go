package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/guidoenr/spherizer/internal/app"
	"github.com/guidoenr/spherizer/internal/audio"
	"github.com/guidoenr/spherizer/internal/config"
	"github.com/guidoenr/spherizer/internal/observability"
	"github.com/guidoenr/spherizer/internal/render"
	"github.com/guidoenr/spherizer/internal/web"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// flagKeys maps command-line flags onto configuration keys.
var flagKeys = map[string]string{
	"width":         "display.width",
	"height":        "display.height",
	"fps":           "display.fps",
	"palette":       "display.palette",
	"color-mode":    "display.color_mode",
	"quality":       "display.quality",
	"noise":         "display.noise",
	"no-color":      "display.no_color",
	"status":        "display.status_bar",
	"sdl":           "display.sdl",
	"audio":         "audio.enabled",
	"audio-device":  "audio.device",
	"buffer-size":   "audio.buffer_size",
	"web":           "web.enabled",
	"web-addr":      "web.addr",
	"autopilot":     "autopilot",
	"seed":          "seed",
	"profile":       "profile",
	"log-level":     "logger.level",
	"log-format":    "logger.format",
	"log-file":      "logger.log_file",
	"particles":     "effects.particle_count",
	"chaos":         "effects.chaos",
	"accent-color":  "effects.accent_color",
	"particle-size": "effects.particle_size",
}

func newRootCmd() *cobra.Command {
	var (
		cfgFile  string
		listDevs bool
	)
	v := config.NewViper()

	cmd := &cobra.Command{
		Use:           "spherizer",
		Short:         "Interactive particle sphere for the terminal and the browser",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if listDevs {
				return listDevices()
			}
			cfg, err := config.Load(v, cfgFile)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				return err
			}
			if err := run(cmd.Context(), v, cfgFile, cfg); err != nil {
				fmt.Fprintf(os.Stderr, "runtime error: %v\n", err)
				return err
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&cfgFile, "config", "c", "", "Config file (yaml, json or toml)")
	flags.BoolVar(&listDevs, "list-audio-devices", false, "List available audio input devices and exit")
	flags.Int("width", 0, "Frame width in cells (0 follows the terminal)")
	flags.Int("height", 0, "Frame height in cells (0 follows the terminal)")
	flags.Float64("fps", 30, "Target frames per second")
	flags.String("palette", "dots", "ASCII palette (dots|default|box|spark)")
	flags.String("color-mode", "natural", "Color mode (natural|fire|aurora|mono)")
	flags.String("quality", "balanced", "Render quality (eco|balanced|high)")
	flags.String("noise", "value", "Noise field (value|simplex|perlin)")
	flags.Bool("no-color", false, "Disable ANSI color output")
	flags.Bool("status", true, "Display status bar")
	flags.Bool("sdl", false, "Render into an SDL window (needs -tags sdl)")
	flags.Bool("audio", false, "React to a microphone")
	flags.String("audio-device", "", "PortAudio device name (substring match)")
	flags.Int("buffer-size", 2048, "Audio buffer size (power of two recommended)")
	flags.Bool("web", false, "Serve the browser view")
	flags.String("web-addr", "127.0.0.1:8080", "Address for the browser view")
	flags.Bool("autopilot", false, "Drive the sphere with a synthetic pointer and beat")
	flags.Int64("seed", 0, "Random seed (0 picks one)")
	flags.String("profile", "", "Write per-frame timings to this CSV file")
	flags.String("log-level", "info", "Log level (debug|info|warn|error)")
	flags.String("log-format", "console", "Log format (console|json)")
	flags.String("log-file", "", "Also write JSON logs to this rotated file")
	flags.Int("particles", 6000, "Particle count")
	flags.Float64("chaos", 0.25, "Surface turbulence")
	flags.String("accent-color", "#ff6b9d", "Accent colour used by interactions")
	flags.Float64("particle-size", 1.5, "Particle size")

	flags.VisitAll(func(f *pflag.Flag) {
		if key, ok := flagKeys[f.Name]; ok {
			_ = v.BindPFlag(key, f)
		}
	})
	return cmd
}

func run(ctx context.Context, v *viper.Viper, cfgFile string, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := checkBackend(cfg.Display, render.SupportsSDL()); err != nil {
		return err
	}

	logger, err := observability.New(cfg.Logger, zapcore.Lock(os.Stderr))
	if err != nil {
		return err
	}
	defer observability.Sync(logger)

	width, height := cfg.Display.Width, cfg.Display.Height
	fd := int(os.Stdout.Fd())
	isTerm := term.IsTerminal(fd)
	if isTerm && (width <= 0 || height <= 0) {
		if w, h, err := term.GetSize(fd); err == nil {
			if width <= 0 {
				width = w
			}
			if height <= 0 {
				height = h
			}
		}
	}

	a, err := app.New(app.Config{
		Width:         width,
		Height:        height,
		TargetFPS:     cfg.Display.FPS,
		ShowStatusBar: cfg.Display.StatusBar,
		Palette:       cfg.Display.Palette,
		ColorMode:     cfg.Display.ColorMode,
		Quality:       cfg.Display.Quality,
		UseANSI:       !cfg.Display.NoColor,
		SDL:           cfg.Display.SDL,
		Noise:         cfg.Display.Noise,
		Seed:          cfg.Seed,
		Params:        cfg.Effects,
		EnableAudio:   cfg.Audio.Enabled,
		DeviceName:    cfg.Audio.Device,
		BufferSize:    cfg.Audio.BufferSize,
		Autopilot:     cfg.Autopilot,
		Keyboard:      isTerm,
		Terminal:      isTerm && !cfg.Display.SDL,
		FollowTerm:    cfg.Display.Width <= 0 || cfg.Display.Height <= 0,
		ProfilePath:   cfg.Profile,
		Output:        os.Stdout,
		Logger:        logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create app: %w", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("cleanup error", zap.Error(err))
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Web.Enabled {
		srv := web.NewServer(a, web.Options{
			Addr:     cfg.Web.Addr,
			Viper:    v,
			SavePath: savePath(cfgFile),
			Logger:   logger,
		})
		a.Subscribe(srv)
		g.Go(func() error { return srv.Run(gctx) })
	}
	g.Go(func() error {
		defer cancel()
		err := a.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	return g.Wait()
}

// errNoSDL is returned when --sdl is asked of a binary built without the sdl tag.
var errNoSDL = errors.New("this build has no SDL backend; rebuild with -tags sdl")

func checkBackend(display config.DisplayConfig, sdlBuilt bool) error {
	if display.SDL && !sdlBuilt {
		return errNoSDL
	}
	return nil
}

func savePath(cfgFile string) string {
	if cfgFile != "" {
		return cfgFile
	}
	return "spherizer.yaml"
}

func listDevices() error {
	if err := audio.Initialize(); err != nil {
		return err
	}
	defer audio.Terminate()

	devices, err := audio.ListDevices()
	if err != nil {
		return fmt.Errorf("list devices: %w", err)
	}
	fmt.Printf("\n=== Audio Input Devices ===\n\n")
	for _, dev := range devices {
		if dev.MaxInput == 0 {
			continue
		}
		fmt.Println(dev.String())
	}
	return nil
}
