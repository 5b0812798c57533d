package app

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/openhydro/river-discharge/internal/archive"
	"github.com/openhydro/river-discharge/internal/extrap"
	"github.com/openhydro/river-discharge/internal/measurement"
	"github.com/openhydro/river-discharge/internal/pipeline"
	"github.com/openhydro/river-discharge/internal/report"
	"github.com/openhydro/river-discharge/internal/settings"
)

// Run executes one qproc invocation: import or load a measurement,
// reprocess it per the configuration, save the result and write the
// report.
func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	store := archive.New(config.Archive.Path)
	defer store.Close()

	p := pipeline.New(pipeline.WithLogger(logger))

	var m *measurement.Measurement
	var err error
	switch {
	case config.ImportPath != "":
		if m, err = importMeasurement(p, config); err != nil {
			return err
		}
	default:
		if m, err = store.Load(ctx, config.MeasurementID); err != nil {
			return fmt.Errorf("loading measurement %d: %w", config.MeasurementID, err)
		}
		if err = reprocess(p, m, config); err != nil {
			return err
		}
	}

	id, err := store.Save(ctx, m)
	if err != nil {
		return fmt.Errorf("saving measurement: %w", err)
	}

	logSummary(logger, id, m)

	if config.Report.Path != "" {
		if err = writeReport(m, config); err != nil {
			return err
		}
		logger.Info("report written", slog.String("path", config.Report.Path))
	}
	return nil
}

// importMeasurement reads a parsed-input file and initializes a new
// measurement from it under the configured policy.
func importMeasurement(p *pipeline.Pipeline, config *Config) (*measurement.Measurement, error) {
	data, err := os.ReadFile(config.ImportPath)
	if err != nil {
		return nil, fmt.Errorf("reading input file: %w", err)
	}

	var in pipeline.ParsedInput
	if err := yaml.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("parsing input file: %w", err)
	}

	procType := settings.ProcessingBestPractice
	if config.Processing.Policy == settings.PolicyNoFiltering {
		procType = settings.ProcessingNone
	}

	m, err := p.NewMeasurement(in, procType)
	if err != nil {
		return nil, fmt.Errorf("initializing measurement: %w", err)
	}
	return m, nil
}

// reprocess applies the configured policy and extrapolation override
// to a loaded measurement.
func reprocess(p *pipeline.Pipeline, m *measurement.Measurement, config *Config) error {
	if config.Processing.Policy != "" {
		s := m.DefaultSettings(config.Processing.Policy)
		if err := p.Apply(m, s); err != nil {
			return fmt.Errorf("applying %s settings: %w", config.Processing.Policy, err)
		}
	}

	if e := config.Processing.Extrapolation; e != nil {
		exp := e.Exponent
		if exp == 0 {
			exp = math.NaN()
		}
		p.ChangeExtrapolation(m, extrap.FitManual, e.Top, e.Bot, exp, nil, math.NaN(), true)
	}
	return nil
}

func writeReport(m *measurement.Measurement, config *Config) error {
	out, err := os.Create(config.Report.Path)
	if err != nil {
		return fmt.Errorf("creating report file: %w", err)
	}
	if err = report.Export(m, config.Report.Version, out); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func logSummary(logger *slog.Logger, id int64, m *measurement.Measurement) {
	mean := m.MeanDischarges()

	attrs := []any{
		slog.Int64("id", id),
		slog.String("station", m.StationName),
		slog.Int("transects", len(m.CheckedIndices())),
		slog.String("discharge", fmt.Sprintf("%s m3/s", humanize.CommafWithDigits(mean.Total, 3))),
		slog.String("duration", fmt.Sprintf("%.0f s", m.Duration())),
	}
	if u := m.Uncertainty; u != nil {
		attrs = append(attrs, slog.String("uncertainty", fmt.Sprintf("%.1f%%", u.TotalUser)))
	}
	logger.Info("measurement saved", attrs...)
}
