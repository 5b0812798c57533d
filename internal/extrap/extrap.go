// Package extrap fits vertical velocity-profile models used to
// extrapolate discharge into the unmeasured top and bottom zones.
//
// Profiles are built from normalized unit discharge: each ensemble's
// cells are mapped to fractional height above the bed and scaled by the
// ensemble mean, then aggregated into 5% depth bins whose medians form
// the measurement profile. Power and no-slip exponents come from a
// least-squares fit in log space over the valid bin medians.
package extrap

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/openhydro/river-discharge/internal/stats"
	"github.com/openhydro/river-discharge/internal/transect"
)

// Fit modes.
const (
	FitAutomatic = "Automatic"
	FitManual    = "Manual"
)

const (
	numBins          = 20   // 5% depth increments
	defaultThreshold = 20.0 // percent of peak bin count for a valid median
	noSlipDepth      = 0.2  // fraction of depth treated as near-bed
	minFitR2         = 0.8
	minExponent      = 0.05
	maxExponent      = 0.95
	topDeviationTol  = 0.15
)

// NormProfile is one transect's binned, normalized unit-discharge
// profile.
type NormProfile struct {
	FileName string
	Z        []float64 // bin midpoints, fraction of depth above bed
	Median   []float64 // median normalized unit discharge per bin
	Count    []int
	Valid    []bool
}

// SelectedFit is the profile choice for one transect (or, as the last
// element of Fit.Sel, the composite of all checked transects).
type SelectedFit struct {
	FileName  string
	TopMethod string
	BotMethod string
	Exponent  float64

	// Fit diagnostics.
	PPExponent float64 // optimized power-law exponent
	NSExponent float64 // optimized no-slip exponent
	R2         float64
}

// Fit owns the per-transect profiles and fitted models. The last
// element of Sel is the composite fit representing the measurement.
type Fit struct {
	Method     string
	Norm       []NormProfile
	Sel        []SelectedFit
	Subsection [2]float64 // percent extents of ensembles to include
	Threshold  float64    // percent, validity of bin medians

	Sensitivity *Sensitivity
}

// New returns a fit with automatic selection over the full section.
func New() *Fit {
	return &Fit{
		Method:     FitAutomatic,
		Subsection: [2]float64{0, 100},
		Threshold:  defaultThreshold,
	}
}

// Composite returns the representative fit for the measurement.
func (f *Fit) Composite() SelectedFit {
	if len(f.Sel) == 0 {
		return SelectedFit{
			TopMethod: transect.ExtrapPower,
			BotMethod: transect.ExtrapPower,
			Exponent:  transect.DefaultExponent,
		}
	}
	return f.Sel[len(f.Sel)-1]
}

// Process rebuilds profiles and fits for the checked transects. In
// automatic mode each transect is fit independently and the composite
// profile's fit is appended; in manual mode the supplied top, bottom
// and exponent are recorded against freshly summarized profiles.
func (f *Fit) Process(transects []*transect.Transect, top, bot string, exp float64) {
	f.Norm = f.Norm[:0]
	f.Sel = f.Sel[:0]

	var comb []sample
	for _, t := range transects {
		if !t.Checked {
			continue
		}
		pts := f.profileSamples(t)
		comb = append(comb, pts...)
		prof := f.binProfile(t.FileName, pts)
		f.Norm = append(f.Norm, prof)
		f.Sel = append(f.Sel, f.selectFit(prof, top, bot, exp))
	}
	compProf := f.binProfile("Measurement", comb)
	f.Norm = append(f.Norm, compProf)
	f.Sel = append(f.Sel, f.selectFit(compProf, top, bot, exp))
}

// sample is one cell's normalized profile point.
type sample struct {
	z float64 // fractional height above bed
	q float64 // unit discharge scaled by the ensemble mean
}

// profileSamples extracts normalized points from a transect, honoring
// the subsection extents as a fraction of the ensemble range.
func (f *Fit) profileSamples(t *transect.Transect) []sample {
	var pts []sample
	ne := t.NumEnsembles()
	if ne == 0 || len(t.Water.UProcessed) == 0 {
		return pts
	}
	first := int(math.Floor(f.Subsection[0] / 100 * float64(ne)))
	last := int(math.Ceil(f.Subsection[1] / 100 * float64(ne)))
	if last > ne {
		last = ne
	}
	depths := t.Depths.Processed()
	w := &t.Water
	for e := first; e < last; e++ {
		if e >= len(depths) || math.IsNaN(depths[e]) || depths[e] <= 0 {
			continue
		}
		if e < len(w.EnsInterpolated) && w.EnsInterpolated[e] {
			continue
		}
		var cells []sample
		var sum float64
		for c := range w.UProcessed {
			u, v := w.UProcessed[c][e], w.VProcessed[c][e]
			if math.IsNaN(u) || math.IsNaN(v) {
				continue
			}
			// Interpolated cells are synthesized from the current fit
			// and would feed the fit its own output.
			if c < len(w.CellInterpolated) && w.CellInterpolated[c][e] {
				continue
			}
			z := (depths[e] - w.CellDepth[c][e]) / depths[e]
			if z <= 0 || z >= 1 {
				continue
			}
			// Unit discharge in the cell: cross product of water
			// and boat velocity scaled by cell height.
			q := (u*t.Boat.VProcessed[e] - v*t.Boat.UProcessed[e]) * w.CellSize[c][e]
			cells = append(cells, sample{z: z, q: q})
			sum += q
		}
		if len(cells) == 0 {
			continue
		}
		mean := sum / float64(len(cells))
		if mean == 0 || math.IsNaN(mean) {
			continue
		}
		for _, cell := range cells {
			pts = append(pts, sample{z: cell.z, q: cell.q / mean})
		}
	}
	return pts
}

// binProfile aggregates points into 5% depth bins and marks medians
// valid when the bin holds enough points relative to the busiest bin.
func (f *Fit) binProfile(name string, pts []sample) NormProfile {
	p := NormProfile{
		FileName: name,
		Z:        make([]float64, numBins),
		Median:   make([]float64, numBins),
		Count:    make([]int, numBins),
		Valid:    make([]bool, numBins),
	}
	bins := make([][]float64, numBins)
	for _, pt := range pts {
		i := int(pt.z * numBins)
		if i < 0 {
			i = 0
		}
		if i >= numBins {
			i = numBins - 1
		}
		bins[i] = append(bins[i], pt.q)
	}
	maxCount := 0
	for i, b := range bins {
		p.Z[i] = (float64(i) + 0.5) / numBins
		p.Count[i] = len(b)
		if len(b) > maxCount {
			maxCount = len(b)
		}
		if len(b) > 0 {
			p.Median[i] = stats.Median(b)
		} else {
			p.Median[i] = math.NaN()
		}
	}
	minCount := f.Threshold / 100 * float64(maxCount)
	for i := range bins {
		p.Valid[i] = p.Count[i] > 0 && float64(p.Count[i]) >= minCount
	}
	return p
}

// selectFit fits the profile and, in automatic mode, chooses the
// extrapolation methods from the fit quality. Manual mode records the
// caller's choice alongside the diagnostics.
func (f *Fit) selectFit(p NormProfile, top, bot string, exp float64) SelectedFit {
	sel := SelectedFit{
		FileName:   p.FileName,
		TopMethod:  transect.ExtrapPower,
		BotMethod:  transect.ExtrapPower,
		Exponent:   transect.DefaultExponent,
		PPExponent: transect.DefaultExponent,
		NSExponent: transect.DefaultExponent,
	}

	var zs, qs []float64
	var zsLow, qsLow []float64
	for i := range p.Z {
		if !p.Valid[i] || math.IsNaN(p.Median[i]) || p.Median[i] <= 0 {
			continue
		}
		zs = append(zs, math.Log(p.Z[i]))
		qs = append(qs, math.Log(p.Median[i]))
		if p.Z[i] <= noSlipDepth {
			zsLow = append(zsLow, math.Log(p.Z[i]))
			qsLow = append(qsLow, math.Log(p.Median[i]))
		}
	}
	if len(zs) >= 3 {
		alpha, beta := stat.LinearRegression(zs, qs, nil, false)
		r2 := stat.RSquared(zs, qs, nil, alpha, beta)
		if beta > minExponent && beta < maxExponent {
			sel.PPExponent = beta
			sel.R2 = r2
		}
	}
	if len(zsLow) >= 2 {
		_, beta := stat.LinearRegression(zsLow, qsLow, nil, false)
		if beta > minExponent && beta < maxExponent {
			sel.NSExponent = beta
		}
	}

	if f.Method == FitManual {
		sel.TopMethod = top
		sel.BotMethod = bot
		sel.Exponent = exp
		return sel
	}

	// Automatic selection: an optimized power fit when the regression
	// explains the profile, falling back to constant top with a no-slip
	// bottom when the upper medians depart from the power curve.
	if sel.R2 >= minFitR2 {
		sel.Exponent = sel.PPExponent
	}
	if dev := topDeviation(p, sel.Exponent); dev > topDeviationTol {
		sel.TopMethod = transect.ExtrapConstant
		sel.BotMethod = transect.ExtrapNoSlip
		sel.Exponent = sel.NSExponent
	}
	return sel
}

// topDeviation measures how far the upper valid medians sit from the
// fitted power curve, relative to the curve.
func topDeviation(p NormProfile, exponent float64) float64 {
	// Scale the curve to the mid-profile medians first.
	var scaleSum float64
	var n int
	for i := range p.Z {
		if !p.Valid[i] || math.IsNaN(p.Median[i]) || p.Z[i] < 0.2 || p.Z[i] > 0.8 {
			continue
		}
		scaleSum += p.Median[i] / math.Pow(p.Z[i], exponent)
		n++
	}
	if n == 0 {
		return 0
	}
	scale := scaleSum / float64(n)
	var dev float64
	var m int
	for i := range p.Z {
		if !p.Valid[i] || math.IsNaN(p.Median[i]) || p.Z[i] <= 0.8 {
			continue
		}
		pred := scale * math.Pow(p.Z[i], exponent)
		if pred != 0 {
			dev += math.Abs(p.Median[i]-pred) / math.Abs(pred)
			m++
		}
	}
	if m == 0 {
		return 0
	}
	return dev / float64(m)
}
