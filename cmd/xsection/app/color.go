package app

import (
	"image/color"
	"math"
)

// ColorTheme names a predefined color scheme for speed visualization.
type ColorTheme string

const (
	ClassicTheme   ColorTheme = "classic"   // Blue to red transition
	GrayscaleTheme ColorTheme = "grayscale" // Black to white transition
	ThermalTheme   ColorTheme = "thermal"   // Black to red to yellow to white
	MarineTheme    ColorTheme = "marine"    // Deep blue to cyan to white

	DefaultColorMapSize = 256
)

// InvalidCellColor marks unmeasured cells.
var InvalidCellColor = color.RGBA{R: 0xf0, G: 0xf0, B: 0xf0, A: 0xff}

// ColorMapper provides speed-to-color mapping over a fixed bounds
// range with pre-computed colors.
type ColorMapper struct {
	colorMap      []color.Color
	theme         func(float64) color.Color
	size          int
	speedPerIndex float64
	boundsMin     float64
}

// NewColorMapper creates a mapper with the default map size.
func NewColorMapper(theme ColorTheme, bounds Bounds) *ColorMapper {
	return NewColorMapperWithSize(theme, bounds, DefaultColorMapSize)
}

// NewColorMapperWithSize creates a mapper with the given number of
// pre-computed colors.
func NewColorMapperWithSize(theme ColorTheme, bounds Bounds, size int) *ColorMapper {
	if size <= 0 {
		size = DefaultColorMapSize
	}

	cm := &ColorMapper{
		colorMap: make([]color.Color, size),
		theme:    getColorTheme(theme),
		size:     size,
	}
	cm.UpdateBounds(bounds)
	return cm
}

// UpdateBounds recomputes the color map for a new speed range.
func (cm *ColorMapper) UpdateBounds(bounds Bounds) {
	cm.boundsMin = bounds.Min
	cm.speedPerIndex = (bounds.Max - bounds.Min) / float64(cm.size-1)

	for i := 0; i < cm.size; i++ {
		normalized := float64(i) / float64(cm.size-1)
		cm.colorMap[i] = cm.theme(normalized)
	}
}

// GetColor returns the color for a speed value; nil is an unmeasured
// cell.
func (cm *ColorMapper) GetColor(speed *float64) color.Color {
	if speed == nil {
		return InvalidCellColor
	}

	index := int((*speed - cm.boundsMin) / cm.speedPerIndex)
	if index < 0 {
		return cm.colorMap[0]
	}
	if index >= cm.size {
		return cm.colorMap[cm.size-1]
	}
	return cm.colorMap[index]
}

// HSV represents a color in HSV color space.
type HSV struct {
	H float64 // Hue angle in degrees [0-360]
	S float64 // Saturation [0-1]
	V float64 // Value/Brightness [0-1]
}

// RGB converts HSV to RGB color space.
func (hsv HSV) RGB() color.Color {
	if hsv.S <= 0.0 {
		v := uint8(hsv.V * 255)
		return color.RGBA{R: v, G: v, B: v, A: 255}
	}

	h := hsv.H
	if h >= 360 {
		h -= 360
	}
	h /= 60

	i := int(h)
	f := h - float64(i)

	v := uint8(hsv.V * 255)
	p := uint8((hsv.V * (1 - hsv.S)) * 255)
	q := uint8((hsv.V * (1 - (hsv.S * f))) * 255)
	t := uint8((hsv.V * (1 - (hsv.S * (1 - f)))) * 255)

	switch i {
	case 0:
		return color.RGBA{R: v, G: t, B: p, A: 255}
	case 1:
		return color.RGBA{R: q, G: v, B: p, A: 255}
	case 2:
		return color.RGBA{R: p, G: v, B: t, A: 255}
	case 3:
		return color.RGBA{R: p, G: q, B: v, A: 255}
	case 4:
		return color.RGBA{R: t, G: p, B: v, A: 255}
	default: // case 5:
		return color.RGBA{R: v, G: p, B: q, A: 255}
	}
}

func getColorTheme(theme ColorTheme) func(float64) color.Color {
	switch theme {
	case ClassicTheme:
		return func(speed float64) color.Color {
			return HSV{
				H: 240 - (speed * 240),
				S: 0.9 + (speed * 0.1),
				V: math.Pow(speed, 0.7),
			}.RGB()
		}

	case GrayscaleTheme:
		return func(speed float64) color.Color {
			v := uint8(math.Pow(speed, 0.7) * 255)
			return color.RGBA{R: v, G: v, B: v, A: 255}
		}

	case ThermalTheme:
		return func(speed float64) color.Color {
			if speed < 0.33 {
				return color.RGBA{
					R: uint8((speed * 3) * 255),
					A: 255,
				}
			}
			if speed < 0.66 {
				return color.RGBA{
					R: 255,
					G: uint8(((speed - 0.33) * 3) * 255),
					A: 255,
				}
			}
			return color.RGBA{
				R: 255,
				G: 255,
				B: uint8(((speed - 0.66) * 3) * 255),
				A: 255,
			}
		}

	default: // marine
		return func(speed float64) color.Color {
			return HSV{
				H: 240 - (speed * 60),
				S: 1.0 - (speed * 0.8),
				V: 0.3 + (math.Pow(speed, 0.6) * 0.7),
			}.RGB()
		}
	}
}
