package render

var (
	dotsPalette    = []rune(" .·:•oO0@")
	defaultPalette = []rune("  .,:-;+=*%#@▓█")
	boxPalette     = []rune(" ░▒▓█")
	sparkPalette   = []rune("  ´`^\"~:;*+×•¤°oO@#█")
)

// Palette returns the glyph ramp used for brightness mapping, darkest first.
func Palette(name string) []rune {
	switch name {
	case "default":
		return defaultPalette
	case "box":
		return boxPalette
	case "spark":
		return sparkPalette
	default:
		return dotsPalette
	}
}

// PaletteNames returns all palette identifiers.
func PaletteNames() []string {
	return []string{"dots", "default", "box", "spark"}
}
