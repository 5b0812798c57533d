// Package measurement owns the aggregate state of one discharge
// measurement: the transect list, pre-measurement quality records,
// moving-bed tests, the extrapolation fit, and the derived discharge
// and uncertainty results. The struct is mutated in place by the
// processing pipeline; callers serialize settings changes.
package measurement

import (
	"github.com/openhydro/river-discharge/internal/discharge"
	"github.com/openhydro/river-discharge/internal/extrap"
	"github.com/openhydro/river-discharge/internal/movingbed"
	"github.com/openhydro/river-discharge/internal/qa"
	"github.com/openhydro/river-discharge/internal/settings"
	"github.com/openhydro/river-discharge/internal/stats"
	"github.com/openhydro/river-discharge/internal/transect"
	"github.com/openhydro/river-discharge/internal/uncertainty"
)

// Measurement is one site visit's worth of data and results.
type Measurement struct {
	StationName   string
	StationNumber string

	Transects []*transect.Transect
	MBTests   []*movingbed.Test

	SystemTests  []qa.PreMeasurement
	CompassCals  []qa.PreMeasurement
	CompassEvals []qa.PreMeasurement
	TempCheck    qa.TempCheck

	ExtrapFit   *extrap.Fit
	Discharge   []*discharge.Result
	Uncertainty *uncertainty.Uncertainty

	InitialSettings settings.Settings
	Processing      string
	Comments        []string
	UserRating      string
}

// CheckedIndices lists the transects included in aggregate results.
func (m *Measurement) CheckedIndices() []int {
	var idx []int
	for i, t := range m.Transects {
		if t.Checked {
			idx = append(idx, i)
		}
	}
	return idx
}

// CheckedTransects returns the transects included in aggregates.
func (m *Measurement) CheckedTransects() []*transect.Transect {
	var out []*transect.Transect
	for _, t := range m.Transects {
		if t.Checked {
			out = append(out, t)
		}
	}
	return out
}

// Duration is the total sampling time of the checked transects, in
// seconds.
func (m *Measurement) Duration() float64 {
	var d float64
	for _, t := range m.Transects {
		if t.Checked {
			d += t.DurationSec()
		}
	}
	return d
}

// NavReference reports the active navigation reference, taken from the
// first transect.
func (m *Measurement) NavReference() transect.NavSource {
	if len(m.Transects) == 0 {
		return transect.NavBottomTrack
	}
	return m.Transects[0].Boat.Selected
}

// CorrectionFactors returns the moving-bed correction per transect.
func (m *Measurement) CorrectionFactors() []float64 {
	out := make([]float64, len(m.Transects))
	for i, t := range m.Transects {
		out[i] = movingbed.CorrectionFactor(m.MBTests, t.Boat.Selected)
	}
	return out
}

// ComputeDischarge integrates every transect with its moving-bed
// correction. Unchecked transects keep their own results; they are
// excluded from aggregates, not from computation.
func (m *Measurement) ComputeDischarge() {
	factors := m.CorrectionFactors()
	m.Discharge = make([]*discharge.Result, len(m.Transects))
	for i, t := range m.Transects {
		m.Discharge[i] = discharge.Compute(t, factors[i])
	}
}

// ComputeUncertainty re-estimates the measurement uncertainty,
// carrying operator overrides forward.
func (m *Measurement) ComputeUncertainty() {
	in := uncertainty.Input{
		Tests:  m.MBTests,
		NavRef: m.NavReference(),
	}
	for _, i := range m.CheckedIndices() {
		if i < len(m.Discharge) && m.Discharge[i] != nil {
			in.Discharges = append(in.Discharges, m.Discharge[i])
		}
	}
	if m.ExtrapFit != nil {
		in.Sensitivity = m.ExtrapFit.Sensitivity
	}
	m.Uncertainty = uncertainty.Estimate(in, m.Uncertainty)
}

// MeanDischarge aggregates the discharge components over the checked
// transects.
type MeanDischarge struct {
	Total        float64
	Uncorrected  float64
	Top          float64
	Middle       float64
	Bottom       float64
	Left         float64
	Right        float64
	IntCells     float64
	IntEnsembles float64
}

// MeanDischarges averages each component over the checked transects.
func (m *Measurement) MeanDischarges() MeanDischarge {
	var total, unc, top, mid, bot, left, right, cells, ens []float64
	for _, i := range m.CheckedIndices() {
		if i >= len(m.Discharge) || m.Discharge[i] == nil {
			continue
		}
		d := m.Discharge[i]
		total = append(total, d.Total)
		unc = append(unc, d.TotalUncorrected)
		top = append(top, d.Top)
		mid = append(mid, d.Middle)
		bot = append(bot, d.Bottom)
		left = append(left, d.Left)
		right = append(right, d.Right)
		cells = append(cells, d.IntCells)
		ens = append(ens, d.IntEnsembles)
	}
	if len(total) == 0 {
		return MeanDischarge{}
	}
	return MeanDischarge{
		Total:        stats.Mean(total),
		Uncorrected:  stats.Mean(unc),
		Top:          stats.Mean(top),
		Middle:       stats.Mean(mid),
		Bottom:       stats.Mean(bot),
		Left:         stats.Mean(left),
		Right:        stats.Mean(right),
		IntCells:     stats.Mean(cells),
		IntEnsembles: stats.Mean(ens),
	}
}
