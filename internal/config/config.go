package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/guidoenr/spherizer/internal/params"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. SPHERIZER_DISPLAY_FPS.
const EnvPrefix = "SPHERIZER"

// Config is the full runtime configuration.
type Config struct {
	Display   DisplayConfig     `mapstructure:"display" yaml:"display"`
	Audio     AudioConfig       `mapstructure:"audio" yaml:"audio"`
	Web       WebConfig         `mapstructure:"web" yaml:"web"`
	Logger    LoggerConfig      `mapstructure:"logger" yaml:"logger"`
	Effects   params.Parameters `mapstructure:"effects" yaml:"effects"`
	Autopilot bool              `mapstructure:"autopilot" yaml:"autopilot"`
	Seed      int64             `mapstructure:"seed" yaml:"seed"`
	Profile   string            `mapstructure:"profile" yaml:"profile"`
}

// DisplayConfig controls the renderer.
type DisplayConfig struct {
	Width     int     `mapstructure:"width" yaml:"width"`
	Height    int     `mapstructure:"height" yaml:"height"`
	FPS       float64 `mapstructure:"fps" yaml:"fps"`
	Palette   string  `mapstructure:"palette" yaml:"palette"`
	ColorMode string  `mapstructure:"color_mode" yaml:"color_mode"`
	Quality   string  `mapstructure:"quality" yaml:"quality"`
	Noise     string  `mapstructure:"noise" yaml:"noise"`
	NoColor   bool    `mapstructure:"no_color" yaml:"no_color"`
	StatusBar bool    `mapstructure:"status_bar" yaml:"status_bar"`
	SDL       bool    `mapstructure:"sdl" yaml:"sdl"`
}

// AudioConfig controls audio-reactive mode.
type AudioConfig struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
	Device     string `mapstructure:"device" yaml:"device"`
	BufferSize int    `mapstructure:"buffer_size" yaml:"buffer_size"`
}

// WebConfig controls the HTTP and websocket server.
type WebConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr    string `mapstructure:"addr" yaml:"addr"`
}

// LoggerConfig controls zap output and file rotation.
type LoggerConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`
	Format     string `mapstructure:"format" yaml:"format"`
	LogFile    string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize    int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge     int    `mapstructure:"max_age" yaml:"max_age"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// SetDefaults initializes default values for every configuration key.
func SetDefaults(v *viper.Viper) {
	// -- Display --
	v.SetDefault("display.width", 0)
	v.SetDefault("display.height", 0)
	v.SetDefault("display.fps", 30.0)
	v.SetDefault("display.palette", "dots")
	v.SetDefault("display.color_mode", "natural")
	v.SetDefault("display.quality", "balanced")
	v.SetDefault("display.noise", "value")
	v.SetDefault("display.no_color", false)
	v.SetDefault("display.status_bar", true)
	v.SetDefault("display.sdl", false)

	// -- Audio --
	v.SetDefault("audio.enabled", false)
	v.SetDefault("audio.device", "")
	v.SetDefault("audio.buffer_size", 2048)

	// -- Web --
	v.SetDefault("web.enabled", false)
	v.SetDefault("web.addr", "127.0.0.1:8080")

	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 20)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)

	v.SetDefault("autopilot", false)
	v.SetDefault("seed", 0)
	v.SetDefault("profile", "")

	// -- Effects --
	for key, value := range EffectValues(params.Defaults()) {
		v.SetDefault("effects."+key, value)
	}
}

// EffectValues flattens a parameter record into its config keys.
func EffectValues(p params.Parameters) map[string]interface{} {
	out := make(map[string]interface{})
	rv := reflect.ValueOf(p)
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		tag := rt.Field(i).Tag.Get("mapstructure")
		if tag == "" || tag == "-" {
			continue
		}
		out[tag] = rv.Field(i).Interface()
	}
	return out
}

// NewViper returns a viper instance with defaults and environment overrides wired.
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the optional config file into v and decodes the result.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}
	return FromViper(v)
}

// FromViper decodes and validates the configuration held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	cfg.Effects = cfg.Effects.Sanitize()
	return &cfg, nil
}

// Validate checks fields that cannot be degraded into a safe default.
func (c *Config) Validate() error {
	var errs []error
	if c.Display.FPS <= 0 || c.Display.FPS > 240 {
		errs = append(errs, fmt.Errorf("display.fps must be in (0, 240], got %v", c.Display.FPS))
	}
	if c.Display.Width < 0 || c.Display.Height < 0 {
		errs = append(errs, errors.New("display.width and display.height must not be negative"))
	}
	if c.Effects.ParticleCount > params.MaxParticles {
		errs = append(errs, fmt.Errorf("effects.particle_count must be at most %d, got %d", params.MaxParticles, c.Effects.ParticleCount))
	}
	if c.Web.Enabled && c.Web.Addr == "" {
		errs = append(errs, errors.New("web.addr is required when web.enabled is set"))
	}
	switch strings.ToLower(c.Logger.Format) {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("logger.format must be console or json, got %q", c.Logger.Format))
	}
	return errors.Join(errs...)
}

// SaveEffects stores p under the effects key and writes the whole configuration to path.
func SaveEffects(v *viper.Viper, path string, p params.Parameters) error {
	if path == "" {
		path = v.ConfigFileUsed()
	}
	if path == "" {
		return errors.New("no config file to save to")
	}
	for key, value := range EffectValues(p) {
		v.Set("effects."+key, value)
	}
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}
