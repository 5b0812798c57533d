package pipeline

import (
	"math"
	"strings"

	"github.com/openhydro/river-discharge/internal/measurement"
	"github.com/openhydro/river-discharge/internal/movingbed"
	"github.com/openhydro/river-discharge/internal/qa"
	"github.com/openhydro/river-discharge/internal/settings"
	"github.com/openhydro/river-discharge/internal/transect"
)

// ParsedInput is the manufacturer-neutral output of the instrument
// file readers. Optional sections stay empty when the source files
// are absent; only an empty transect list is fatal.
type ParsedInput struct {
	StationName   string
	StationNumber string

	Transects      []*transect.Transect
	MovingBedTests []*movingbed.Test

	SystemTests  []qa.PreMeasurement
	CompassCals  []qa.PreMeasurement
	CompassEvals []qa.PreMeasurement
	TempCheck    qa.TempCheck
}

// NewMeasurement initializes a measurement from parsed input and runs
// the requested processing policy once. After this the measurement is
// ready for repeated settings changes.
func (p *Pipeline) NewMeasurement(in ParsedInput, procType string) (*measurement.Measurement, error) {
	if len(in.Transects) == 0 {
		return nil, ErrNoTransects
	}

	m := &measurement.Measurement{
		StationName:   in.StationName,
		StationNumber: in.StationNumber,
		Transects:     in.Transects,
		MBTests:       in.MovingBedTests,
		SystemTests:   in.SystemTests,
		CompassCals:   in.CompassCals,
		CompassEvals:  in.CompassEvals,
		TempCheck:     in.TempCheck,
		Processing:    procType,
	}

	for _, t := range m.Transects {
		normalizeTransect(t)
	}
	if len(m.MBTests) > 0 {
		movingbed.AutoSelect(m.MBTests)
	}

	m.InitialSettings = m.CurrentSettings()

	var snap settings.Settings
	switch procType {
	case settings.ProcessingNone:
		snap = m.DefaultSettings(settings.PolicyNoFiltering)
	case settings.ProcessingOriginal:
		snap = m.CurrentSettings()
	default:
		snap = m.DefaultSettings(settings.PolicyBestPractice)
	}
	if err := p.Apply(m, snap); err != nil {
		return nil, err
	}
	p.log.Info("measurement loaded",
		"station", m.StationName,
		"transects", len(m.Transects),
		"moving_bed_tests", len(m.MBTests),
		"processing", procType)
	return m, nil
}

// normalizeTransect prepares a freshly parsed transect: time base,
// instrument-dependent processing defaults, earth-frame rotation, a
// first depth pass, and a sane default extrapolation.
func normalizeTransect(t *transect.Transect) {
	cum := make([]float64, t.NumEnsembles())
	var acc float64
	for i, dt := range t.EnsDuration {
		if !math.IsNaN(dt) {
			acc += dt
		}
		cum[i] = acc
	}
	t.Boat.SetEnsTime(cum)
	t.Depths.SetEnsTime(cum)
	instrumentDefaults(t)

	if t.Extrap.TopMethod == "" {
		t.Extrap = transect.ExtrapSettings{
			TopMethod: transect.ExtrapPower,
			BotMethod: transect.ExtrapPower,
			Exponent:  transect.DefaultExponent,
		}
	}

	t.Depths.Process()
	t.ToEarthCoordinates()
}

// instrumentDefaults fills processing choices the file reader left
// unset from the instrument configuration, so an "original" run
// reflects the manufacturer's own conventions. SonTek units weight
// beam depths toward the consensus and require two reporting beams;
// TRDI firmware averages evenly and screens ensemble-to-ensemble
// depth jumps.
func instrumentDefaults(t *transect.Transect) {
	sontek := strings.EqualFold(t.ADCP.Manufacturer, "SonTek")
	for _, d := range []*transect.DepthData{t.Depths.BT, t.Depths.VB, t.Depths.DS} {
		if d == nil {
			continue
		}
		if d.AvgMethod == "" {
			if sontek {
				d.AvgMethod = transect.DepthAvgIDW
			} else {
				d.AvgMethod = transect.DepthAvgSimple
			}
		}
		if d.FilterType == "" {
			if sontek {
				d.FilterType = transect.DepthFilterNone
			} else {
				d.FilterType = transect.DepthFilterTRDI
			}
		}
		if d.ValidMethod == "" {
			if sontek {
				d.ValidMethod = transect.DepthValidMultiBeam
			} else {
				d.ValidMethod = transect.DepthValidTRDI
			}
		}
		if d.InterpType == "" {
			d.InterpType = transect.InterpLinear
		}
	}
	// Automatic beam-count choice unless the reader recorded one.
	if t.Boat.BT != nil && t.Boat.BT.BeamFilter == 0 {
		t.Boat.BT.BeamFilter = -1
	}
	if t.Water.BeamFilter == 0 {
		t.Water.BeamFilter = -1
	}
}
