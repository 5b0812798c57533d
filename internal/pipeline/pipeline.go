// Package pipeline drives measurement processing. Every settings
// change runs the same dependency-ordered stage list over all
// transects and always finishes by recomputing the extrapolation
// sensitivity, discharge, and uncertainty; there is no incremental
// recompute. The stage order is load-bearing: the extrapolation fit
// must be current before the final water-track interpolation pass,
// because profile-based cell filling reads the fitted exponent.
package pipeline

import (
	"errors"
	"log/slog"
	"math"

	"github.com/openhydro/river-discharge/internal/extrap"
	"github.com/openhydro/river-discharge/internal/measurement"
	"github.com/openhydro/river-discharge/internal/movingbed"
	"github.com/openhydro/river-discharge/internal/settings"
	"github.com/openhydro/river-discharge/internal/transect"
)

// ErrNoTransects is returned when an input parses to nothing usable.
var ErrNoTransects = errors.New("pipeline: input contains no transects")

// Pipeline applies settings snapshots to a measurement.
type Pipeline struct {
	log *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. The default discards nothing but logs
// through slog's default handler.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.log = l }
}

// New returns a ready Pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{log: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// stage is one ordered step of a settings application.
type stage struct {
	name string
	run  func(m *measurement.Measurement, s settings.Settings)
}

// stages enforces the processing order structurally: each stage
// depends on the ones before it.
var stages = []stage{
	{"processing method", func(m *measurement.Measurement, s settings.Settings) {
		m.Processing = s.Processing
	}},
	{"navigation reference", func(m *measurement.Measurement, s settings.Settings) {
		changed := false
		for _, t := range m.Transects {
			if t.Boat.Selected != s.Navigation.Reference {
				t.ChangeNavReference(s.Navigation.Reference)
				changed = true
			}
		}
		if changed && len(m.MBTests) > 0 {
			movingbed.AutoSelect(m.MBTests)
		}
	}},
	{"composite tracks", func(m *measurement.Measurement, s settings.Settings) {
		for _, t := range m.Transects {
			t.SetCompositeTracks(s.Navigation.CompositeTracks)
		}
	}},
	{"boat filters", func(m *measurement.Measurement, s settings.Settings) {
		for _, t := range m.Transects {
			if t.Boat.BT == nil {
				continue
			}
			t.Boat.BT.SetFilters(transect.BoatFilterOptions{
				BeamFilter:    s.BoatFilters.Beam,
				Diff:          s.BoatFilters.Diff,
				DiffThreshold: s.BoatFilters.DiffThreshold,
				Vert:          s.BoatFilters.Vert,
				VertThreshold: s.BoatFilters.VertThreshold,
				Smooth:        s.BoatFilters.Smooth,
			})
		}
	}},
	{"boat interpolation", func(m *measurement.Measurement, s settings.Settings) {
		for _, t := range m.Transects {
			if t.Boat.BT != nil {
				t.Boat.BT.Interp = s.Interpolation.Boat
			}
			t.Boat.Process()
		}
	}},
	{"gps filters", func(m *measurement.Measurement, s settings.Settings) {
		for _, t := range m.Transects {
			if !t.Boat.HasGPS() {
				continue
			}
			for _, src := range []*transect.BoatVelocity{t.Boat.GGA, t.Boat.VTG} {
				if src == nil {
					continue
				}
				src.SetGPSFilters(transect.GPSFilterOptions{
					Quality:    s.GPSFilters.Quality,
					Alt:        s.GPSFilters.Altitude,
					AltChange:  s.GPSFilters.AltitudeThreshold,
					HDOP:       s.GPSFilters.HDOP,
					HDOPMax:    s.GPSFilters.HDOPMax,
					HDOPChange: s.GPSFilters.HDOPChange,
					Smooth:     s.GPSFilters.Smooth,
				})
				src.Interp = s.Interpolation.GPS
			}
			t.Boat.Process()
		}
	}},
	{"depths", func(m *measurement.Measurement, s settings.Settings) {
		for _, t := range m.Transects {
			t.Depths.SetReference(s.Depth.Reference)
			t.Depths.Configure(s.Depth.FilterType, s.Depth.AvgMethod,
				s.Depth.ValidMethod, s.Interpolation.Depth, s.Depth.Composite)
			t.Depths.Process()
		}
	}},
	{"water filters", func(m *measurement.Measurement, s settings.Settings) {
		for _, t := range m.Transects {
			t.Water.SetFilters(transect.WaterFilterOptions{
				BeamFilter:    s.WaterFilters.Beam,
				Diff:          s.WaterFilters.Diff,
				DiffThreshold: s.WaterFilters.DiffThreshold,
				Vert:          s.WaterFilters.Vert,
				VertThreshold: s.WaterFilters.VertThreshold,
				Smooth:        s.WaterFilters.Smooth,
				SNR:           s.WaterFilters.SNR,
				Depth:         s.WaterFilters.WTDepth,
				ExcludedDistM: s.WaterFilters.ExcludedDistM,
			})
			t.Water.SetInterpolation(s.Interpolation.WaterEns, s.Interpolation.WaterCells)
			t.Water.Process(t)
		}
	}},
	{"edge methods", func(m *measurement.Measurement, s settings.Settings) {
		for _, t := range m.Transects {
			t.Edges.VelMethod = s.Edges.VelMethod
			t.Edges.RecEdgeMethod = s.Edges.RecEdgeMethod
		}
	}},
}

// Apply runs one validated settings snapshot through the stage list,
// refits extrapolation, reruns the final water-track interpolation
// pass with the fresh fit, and recomputes sensitivity, discharge and
// uncertainty. Applying the same snapshot twice is idempotent.
func (p *Pipeline) Apply(m *measurement.Measurement, s settings.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	for _, st := range stages {
		st.run(m, s)
		p.log.Debug("settings stage applied", "stage", st.name)
	}

	// Extrapolation before the final interpolation pass.
	switch {
	case m.ExtrapFit == nil:
		m.ExtrapFit = extrap.New()
		p.ChangeExtrapolation(m, extrap.FitAutomatic, "", "", math.NaN(), nil, math.NaN(), false)
	case m.ExtrapFit.Method == extrap.FitAutomatic:
		p.ChangeExtrapolation(m, extrap.FitAutomatic, "", "", math.NaN(), nil, math.NaN(), false)
	default:
		ext := s.Extrapolation
		if ext == nil {
			comp := m.ExtrapFit.Composite()
			ext = &settings.ExtrapolationSettings{
				Top: comp.TopMethod, Bot: comp.BotMethod, Exponent: comp.Exponent,
			}
		}
		p.ChangeExtrapolation(m, extrap.FitManual, ext.Top, ext.Bot, ext.Exponent, nil, math.NaN(), false)
	}

	p.finish(m)
	p.log.Info("settings applied",
		"processing", s.Processing,
		"nav_ref", string(s.Navigation.Reference),
		"transects", len(m.Transects))
	return nil
}

// finish reruns water interpolation against the current fit, then the
// result chain. Every mutating operation ends here.
func (p *Pipeline) finish(m *measurement.Measurement) {
	for _, t := range m.Transects {
		t.Water.Process(t)
	}
	if m.ExtrapFit != nil {
		m.ExtrapFit.ComputeSensitivity(m.Transects, m.CorrectionFactors())
	}
	m.ComputeDischarge()
	m.ComputeUncertainty()
}

// ChangeExtrapolation refits or reassigns the profile extrapolation.
// Empty top/bot and NaN exp mean "keep the composite fit's value";
// extents and threshold persist on the fit when supplied. When
// computeQ is false the caller is mid-application and will recompute
// results itself.
func (p *Pipeline) ChangeExtrapolation(m *measurement.Measurement, method, top, bot string, exp float64, extents *[2]float64, threshold float64, computeQ bool) {
	if m.ExtrapFit == nil {
		m.ExtrapFit = extrap.New()
	}
	f := m.ExtrapFit
	comp := f.Composite()
	if top == "" {
		top = comp.TopMethod
	}
	if bot == "" {
		bot = comp.BotMethod
	}
	if math.IsNaN(exp) {
		exp = comp.Exponent
	}
	if extents != nil {
		f.Subsection = *extents
	}
	if !math.IsNaN(threshold) {
		f.Threshold = threshold
	}

	f.Method = method
	f.Process(m.Transects, top, bot, exp)
	if method == extrap.FitManual {
		for _, t := range m.Transects {
			t.Extrap = transect.ExtrapSettings{TopMethod: top, BotMethod: bot, Exponent: exp}
		}
	} else {
		sel := f.Composite()
		for _, t := range m.Transects {
			t.Extrap = transect.ExtrapSettings{
				TopMethod: sel.TopMethod, BotMethod: sel.BotMethod, Exponent: sel.Exponent,
			}
		}
	}

	if computeQ {
		p.finish(m)
	}
}

// refit re-runs an automatic fit after a data change, keeping a manual
// choice untouched.
func (p *Pipeline) refit(m *measurement.Measurement) {
	if m.ExtrapFit == nil || m.ExtrapFit.Method == extrap.FitAutomatic {
		p.ChangeExtrapolation(m, extrap.FitAutomatic, "", "", math.NaN(), nil, math.NaN(), false)
	}
}

// ChangeDraft sets the transducer draft on every transect and reruns
// the result chain.
func (p *Pipeline) ChangeDraft(m *measurement.Measurement, draft float64) {
	for _, t := range m.Transects {
		t.ChangeDraft(draft)
		t.Water.Process(t)
	}
	p.refit(m)
	p.finish(m)
}

// ChangeMagVar sets the magnetic variation. Only transects using the
// internal compass are affected; with none, no recompute is needed.
func (p *Pipeline) ChangeMagVar(m *measurement.Measurement, magVar float64) {
	internal := false
	for _, t := range m.Transects {
		if t.Sensors.Heading.Selected == transect.HeadingInternal {
			internal = true
		}
		t.ChangeMagVar(magVar)
	}
	if !internal {
		return
	}
	p.refit(m)
	p.finish(m)
}

// ChangeHeadingOffset sets the compass alignment offset, recomputing
// only when an internal heading source is in use.
func (p *Pipeline) ChangeHeadingOffset(m *measurement.Measurement, offset float64) {
	internal := false
	for _, t := range m.Transects {
		if t.Sensors.Heading.Selected == transect.HeadingInternal {
			internal = true
		}
		t.ChangeHeadingOffset(offset)
	}
	if !internal {
		return
	}
	p.refit(m)
	p.finish(m)
}

// ChangeHeadingSource switches every transect between the internal
// compass and an external heading.
func (p *Pipeline) ChangeHeadingSource(m *measurement.Measurement, src transect.HeadingSource) {
	for _, t := range m.Transects {
		t.ChangeHeadingSource(src)
	}
	p.refit(m)
	p.finish(m)
}

// ChangeSOS updates a speed-of-sound parameter on every transect.
func (p *Pipeline) ChangeSOS(m *measurement.Measurement, param transect.SOSParameter, selected transect.SensorSource, value float64) {
	for _, t := range m.Transects {
		t.ChangeSOS(param, selected, value)
		t.Water.Process(t)
	}
	p.refit(m)
	p.finish(m)
}

// SetSelectedTransects sets the checked flags from a list of indices
// and recomputes the aggregate results. A transect's own stored
// discharge is untouched by being unchecked.
func (p *Pipeline) SetSelectedTransects(m *measurement.Measurement, selected []int) {
	want := make(map[int]bool, len(selected))
	for _, i := range selected {
		want[i] = true
	}
	for i, t := range m.Transects {
		t.Checked = want[i]
	}
	p.refit(m)
	p.finish(m)
}
