package app

import (
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// ColorTheme selects a color scheme for power visualization.
type ColorTheme string

const (
	ClassicTheme   ColorTheme = "classic"   // Blue to red transition
	GrayscaleTheme ColorTheme = "grayscale" // Black to white transition
	ThermalTheme   ColorTheme = "thermal"   // Black to red to yellow to white

	colorMapSize = 256
)

var validThemes = map[ColorTheme]struct{}{
	ClassicTheme:   {},
	GrayscaleTheme: {},
	ThermalTheme:   {},
}

// colorMapper maps power values onto a pre-computed gradient for the
// configured bounds.
type colorMapper struct {
	colorMap []color.Color
	min      float64
	scale    float64
}

func newColorMapper(theme ColorTheme, bounds PowerBounds) *colorMapper {
	themeFn := themeColor(theme)
	cm := &colorMapper{
		colorMap: make([]color.Color, colorMapSize),
		min:      bounds.Min,
		scale:    float64(colorMapSize-1) / (bounds.Max - bounds.Min),
	}
	for i := range cm.colorMap {
		cm.colorMap[i] = themeFn(float64(i) / float64(colorMapSize-1))
	}
	return cm
}

func (cm *colorMapper) Color(power float64) color.Color {
	if math.IsInf(power, -1) || math.IsNaN(power) {
		return cm.colorMap[0]
	}
	i := int((power - cm.min) * cm.scale)
	if i < 0 {
		i = 0
	}
	if i >= len(cm.colorMap) {
		i = len(cm.colorMap) - 1
	}
	return cm.colorMap[i]
}

func themeColor(theme ColorTheme) func(float64) color.Color {
	switch theme {
	case GrayscaleTheme:
		return grayscaleColor
	case ThermalTheme:
		return thermalColor
	default:
		return classicColor
	}
}

// classicColor walks the hue from blue (cold) to red (hot).
func classicColor(power float64) color.Color {
	hue := 240 - power*240
	return colorful.Hsv(hue, 0.9+power*0.1, math.Pow(power, 0.7))
}

func grayscaleColor(power float64) color.Color {
	v := uint8(math.Round(power * 255))
	return color.RGBA{R: v, G: v, B: v, A: 0xff}
}

// thermalColor passes through black, red, yellow and white like a heated
// body.
func thermalColor(power float64) color.Color {
	switch {
	case power < 1.0/3:
		return colorful.Hsv(0, 1, power*3)
	case power < 2.0/3:
		return colorful.Hsv((power-1.0/3)*3*60, 1, 1)
	default:
		return colorful.Hsv(60, 1-(power-2.0/3)*3, 1)
	}
}
