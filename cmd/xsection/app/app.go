package app

import (
	"context"
	"fmt"
	"image/jpeg"
	"image/png"
	"log/slog"
	"os"

	"github.com/openhydro/river-discharge/internal/archive"
)

// Run renders one archived transect's velocity cross section to an
// image file.
func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	if _, err := os.Stat(config.DBPath); err != nil && os.IsNotExist(err) {
		return fmt.Errorf("database file '%s' does not exist: %w", config.DBPath, err)
	}

	store := archive.New(config.DBPath)
	defer store.Close()

	m, err := store.Load(ctx, config.MeasurementID)
	if err != nil {
		return fmt.Errorf("loading measurement %d: %w", config.MeasurementID, err)
	}
	if config.TransectIndex >= len(m.Transects) {
		return fmt.Errorf("transect index %d out of range, measurement has %d transects",
			config.TransectIndex, len(m.Transects))
	}
	t := m.Transects[config.TransectIndex]

	grid := NewGridData(t, NewSpeedBounds(config.MinSpeed, config.MaxSpeed))
	bounds := grid.BoundsTracker.Current()

	logger.Info("section grid loaded",
		slog.Group("stats",
			slog.String("transect", t.FileName),
			slog.Int("ensembles", grid.Width),
			slog.Int("cells", grid.Height),
			slog.String("width", fmt.Sprintf("%.1fm", grid.Station)),
			slog.String("minSpeed", fmt.Sprintf("%.2fm/s", bounds.Min)),
			slog.String("maxSpeed", fmt.Sprintf("%.2fm/s", bounds.Max)),
		))

	renderConfig := RenderConfig{ColorTheme: config.Theme}
	if !config.NoAnnotations {
		renderConfig.FontPath = config.FontPath
	}

	renderer := NewSectionRenderer(renderConfig)

	logger.Info("rendering section",
		slog.Group("image",
			slog.String("destination", config.OutputFile),
			slog.String("format", string(config.Format)),
			slog.String("theme", string(config.Theme)),
		))

	img, err := renderer.Render(grid)
	if err != nil {
		return fmt.Errorf("rendering section: %w", err)
	}

	out, err := os.Create(config.OutputFile)
	if err != nil {
		return err
	}
	defer out.Close()

	switch config.Format {
	case ImagePNG:
		err = png.Encode(out, img)

	case ImageJPEG:
		err = jpeg.Encode(out, img, &jpeg.Options{
			Quality: 98,
		})
	}
	return err
}
