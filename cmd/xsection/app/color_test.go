package app

import (
	"image/color"
	"testing"
)

func TestColorMapperClamps(t *testing.T) {
	cm := NewColorMapper(MarineTheme, Bounds{Min: 0, Max: 1})

	low := -0.5
	high := 2.0
	if got := cm.GetColor(&low); got != cm.colorMap[0] {
		t.Error("GetColor() below range did not clamp to the first color")
	}
	if got := cm.GetColor(&high); got != cm.colorMap[cm.size-1] {
		t.Error("GetColor() above range did not clamp to the last color")
	}
	if got := cm.GetColor(nil); got != InvalidCellColor {
		t.Errorf("GetColor(nil) = %v, want InvalidCellColor", got)
	}
}

func TestGrayscaleEndpoints(t *testing.T) {
	theme := getColorTheme(GrayscaleTheme)

	black := color.RGBA{A: 255}
	if got := theme(0); got != black {
		t.Errorf("theme(0) = %v, want black", got)
	}
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	if got := theme(1); got != white {
		t.Errorf("theme(1) = %v, want white", got)
	}
}
