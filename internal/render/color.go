package render

import (
	"math"
	"sort"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

type colorMode string

const (
	colorModeNatural colorMode = "natural"
	colorModeFire    colorMode = "fire"
	colorModeAurora  colorMode = "aurora"
	colorModeMono    colorMode = "mono"
)

var colorModeNames = []string{
	string(colorModeNatural),
	string(colorModeFire),
	string(colorModeAurora),
	string(colorModeMono),
}

// ColorModeNames returns the supported color modes.
func ColorModeNames() []string {
	out := make([]string, len(colorModeNames))
	copy(out, colorModeNames)
	sort.Strings(out)
	return out
}

func parseColorMode(name string) colorMode {
	switch strings.ToLower(name) {
	case "fire":
		return colorModeFire
	case "aurora", "cool":
		return colorModeAurora
	case "mono", "monochrome", "bw", "gray":
		return colorModeMono
	default:
		return colorModeNatural
	}
}

func colorModeLabel(mode colorMode) string {
	switch mode {
	case colorModeFire:
		return "FIRE"
	case colorModeAurora:
		return "AURORA"
	case colorModeMono:
		return "MONO"
	default:
		return "NATURAL"
	}
}

// tint remaps an accumulated particle colour through the active mode and scales it by brightness.
func tint(mode colorMode, r, g, b, brightness float64) (float64, float64, float64) {
	c := colorful.Color{R: clamp01(r), G: clamp01(g), B: clamp01(b)}
	h, s, v := c.Hsv()
	switch mode {
	case colorModeFire:
		h = 8 + v*42
		s = clamp01(0.7 + brightness*0.25)
	case colorModeAurora:
		h = math.Mod(150+h/360*110, 360)
		s = clamp01(0.45 + s*0.45)
	case colorModeMono:
		s = 0
	}
	v = clamp01(v * (0.35 + 0.65*brightness))
	out := colorful.Hsv(h, s, v).Clamped()
	return out.R, out.G, out.B
}
