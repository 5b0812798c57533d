package app

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
)

const (
	dpi            = 120.0
	fontSize       = 12.0
	tickMarkLength = 5
	pixelsPerLabel = 150.0

	// Each cell is drawn as a block so small grids still produce a
	// readable image.
	cellPixelWidth  = 4
	cellPixelHeight = 12

	// Default border sizes in pixels
	defaultTopBorder    = 40
	defaultLeftBorder   = 80
	defaultBottomBorder = 40
	defaultRightBorder  = 40
)

// BorderConfig defines the white space around the section grid.
type BorderConfig struct {
	Top    int // Space for the station scale
	Left   int // Space for the depth scale
	Bottom int // Space for the information bar
	Right  int // Right padding
}

// RenderConfig holds the section visualization options.
type RenderConfig struct {
	ColorTheme   ColorTheme
	ColorMapSize int
	FontPath     string // TTF file for annotations, empty disables them
	FontSize     float64
	Borders      BorderConfig
}

// SectionRenderer draws a velocity-magnitude cross section.
type SectionRenderer struct {
	colorMap *ColorMapper
	config   RenderConfig
}

// NewSectionRenderer creates a renderer, filling configuration
// defaults.
func NewSectionRenderer(config RenderConfig) *SectionRenderer {
	if config.FontSize == 0 {
		config.FontSize = fontSize
	}
	if config.Borders.Top == 0 {
		config.Borders.Top = defaultTopBorder
	}
	if config.Borders.Left == 0 {
		config.Borders.Left = defaultLeftBorder
	}
	if config.Borders.Bottom == 0 {
		config.Borders.Bottom = defaultBottomBorder
	}
	if config.Borders.Right == 0 {
		config.Borders.Right = defaultRightBorder
	}
	return &SectionRenderer{config: config}
}

// Render creates an image of the section grid with annotations.
func (r *SectionRenderer) Render(g *GridData) (*image.RGBA, error) {
	gridW := g.Width * cellPixelWidth
	gridH := g.Height * cellPixelHeight
	fullWidth := gridW + r.config.Borders.Left + r.config.Borders.Right
	fullHeight := gridH + r.config.Borders.Top + r.config.Borders.Bottom
	img := image.NewRGBA(image.Rect(0, 0, fullWidth, fullHeight))

	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	area := image.Rect(
		r.config.Borders.Left,
		r.config.Borders.Top,
		r.config.Borders.Left+gridW,
		r.config.Borders.Top+gridH,
	)

	bounds := g.BoundsTracker.Current()
	if r.colorMap == nil {
		r.colorMap = NewColorMapperWithSize(r.config.ColorTheme, bounds, r.config.ColorMapSize)
	} else {
		r.colorMap.UpdateBounds(bounds)
	}

	if r.config.FontPath != "" {
		ann, err := newAnnotator(r.config)
		if err != nil {
			return nil, fmt.Errorf("creating annotator: %w", err)
		}
		defer ann.Close()

		if err = ann.annotate(img, g, area); err != nil {
			return nil, fmt.Errorf("drawing annotations: %w", err)
		}
	}

	r.renderGrid(img, area, g)
	return img, nil
}

// renderGrid draws the cell blocks using the color map. The top cell
// row sits at the top of the grid area, matching the water column.
func (r *SectionRenderer) renderGrid(img *image.RGBA, area image.Rectangle, g *GridData) {
	for c, row := range g.Cells {
		y0 := area.Min.Y + c*cellPixelHeight
		for e, speed := range row {
			x0 := area.Min.X + e*cellPixelWidth
			block := image.Rect(x0, y0, x0+cellPixelWidth, y0+cellPixelHeight)
			draw.Draw(img, block, image.NewUniform(r.colorMap.GetColor(speed)), image.Point{}, draw.Src)
		}
	}
}

type annotator struct {
	context  *freetype.Context
	config   RenderConfig
	fontFace font.Face
}

func newAnnotator(config RenderConfig) (*annotator, error) {
	fontBytes, err := os.ReadFile(config.FontPath)
	if err != nil {
		return nil, fmt.Errorf("reading font file: %w", err)
	}
	parsedFont, err := freetype.ParseFont(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}

	ctx := freetype.NewContext()
	ctx.SetDPI(dpi)
	ctx.SetFont(parsedFont)
	ctx.SetFontSize(config.FontSize)
	ctx.SetHinting(font.HintingNone)
	ctx.SetSrc(image.Black)

	return &annotator{
		context: ctx,
		config:  config,
		fontFace: truetype.NewFace(parsedFont, &truetype.Options{
			Size:    config.FontSize,
			DPI:     dpi,
			Hinting: font.HintingNone,
		}),
	}, nil
}

func (a *annotator) Close() error {
	if a.fontFace != nil {
		return a.fontFace.Close()
	}
	return nil
}

func (a *annotator) annotate(img *image.RGBA, g *GridData, area image.Rectangle) error {
	a.context.SetClip(img.Bounds())
	a.context.SetDst(img)

	if err := a.drawStationScale(img, g, area); err != nil {
		return fmt.Errorf("drawing station scale: %w", err)
	}
	if err := a.drawDepthScale(img, g, area); err != nil {
		return fmt.Errorf("drawing depth scale: %w", err)
	}
	if err := a.drawInfoBar(img, g); err != nil {
		return fmt.Errorf("drawing info bar: %w", err)
	}
	return nil
}

func (a *annotator) drawStationScale(img *image.RGBA, g *GridData, area image.Rectangle) error {
	if g.Station <= 0 {
		return nil
	}
	step := niceStep(g.Station, area.Dx())

	metrics := a.fontFace.Metrics()
	fontHeight := (metrics.Ascent + metrics.Descent).Round()
	textY := a.config.Borders.Top - fontHeight/2

	for m := 0.0; m <= g.Station; m += step {
		x := area.Min.X + int(m/g.Station*float64(area.Dx()))

		for y := area.Min.Y - tickMarkLength; y < area.Min.Y; y++ {
			img.Set(x, y, color.Black)
		}

		label := fmt.Sprintf("%s m", humanize.CommafWithDigits(m, 1))
		width := font.MeasureString(a.fontFace, label)
		pt := freetype.Pt(x-(width.Round()/2), textY)
		if _, err := a.context.DrawString(label, pt); err != nil {
			return fmt.Errorf("drawing station label: %w", err)
		}
	}
	return nil
}

func (a *annotator) drawDepthScale(img *image.RGBA, g *GridData, area image.Rectangle) error {
	span := g.DepthMax - g.DepthMin
	if span <= 0 {
		return nil
	}
	step := niceStep(span, area.Dy())

	metrics := a.fontFace.Metrics()
	fontHeight := (metrics.Ascent + metrics.Descent).Round()

	for d := 0.0; d <= span; d += step {
		y := area.Min.Y + int(d/span*float64(area.Dy()))

		for x := area.Min.X - tickMarkLength; x < area.Min.X; x++ {
			img.Set(x, y, color.Black)
		}

		label := fmt.Sprintf("%.1f m", g.DepthMin+d)
		textY := y + fontHeight/2 - metrics.Descent.Round()
		pt := freetype.Pt(10, textY)
		if _, err := a.context.DrawString(label, pt); err != nil {
			return fmt.Errorf("drawing depth label: %w", err)
		}
	}
	return nil
}

func (a *annotator) drawInfoBar(img *image.RGBA, g *GridData) error {
	bounds := g.BoundsTracker.Current()

	var sb strings.Builder
	sb.WriteString(g.FileName)
	sb.WriteString("; ")
	sb.WriteString(g.StartTime.Format(time.DateTime))
	sb.WriteString(fmt.Sprintf("; Width: %.1f m; Scale: %.2f - %.2f m/s; Max: %.2f m/s",
		g.Station, bounds.Min, bounds.Max, g.SpeedMax))

	metrics := a.fontFace.Metrics()
	fontHeight := (metrics.Ascent + metrics.Descent).Round()
	textY := img.Bounds().Max.Y - (a.config.Borders.Bottom-fontHeight)/2 - metrics.Descent.Round()

	pt := freetype.Pt(a.config.Borders.Left, textY)
	if _, err := a.context.DrawString(sb.String(), pt); err != nil {
		return fmt.Errorf("drawing info text: %w", err)
	}
	return nil
}

// niceStep picks a round label spacing in meters for an axis of the
// given pixel extent.
func niceStep(span float64, pixels int) float64 {
	steps := []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 25, 50, 100, 250}

	desired := float64(pixels) / pixelsPerLabel
	if desired < 1 {
		desired = 1
	}
	target := span / desired

	for _, step := range steps {
		if step >= target && span/step >= 2 {
			return step
		}
	}
	return math.Max(span/2, 0.1)
}
