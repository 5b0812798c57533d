package extrap

import (
	"math"

	"github.com/openhydro/river-discharge/internal/discharge"
	"github.com/openhydro/river-discharge/internal/transect"
)

// Sensitivity reports how total discharge responds to the candidate
// extrapolation choices, as percent differences from the selected fit.
type Sensitivity struct {
	PPExponent float64 // optimized power-law exponent
	NSExponent float64 // optimized no-slip exponent

	QSelMean    float64 // mean total with the selected fit
	QPPMean     float64 // power/power 1/6
	QPPOptMean  float64 // power/power optimized
	QCNSMean    float64 // constant/no slip 1/6
	QCNSOptMean float64 // constant/no slip optimized
	Q3PtMean    float64 // 3-point/no slip 1/6

	PPDiff      float64 // percent vs selected
	PPOptDiff   float64
	CNSDiff     float64
	CNSOptDiff  float64
	ThreePtDiff float64
}

// ComputeSensitivity evaluates the candidate method sets on every
// checked transect. Corrections supplies the moving-bed factor per
// transect (nil means uncorrected). The result is stored on the fit.
func (f *Fit) ComputeSensitivity(transects []*transect.Transect, corrections []float64) {
	comp := f.Composite()
	s := &Sensitivity{
		PPExponent: comp.PPExponent,
		NSExponent: comp.NSExponent,
	}

	factor := func(i int) float64 {
		if corrections == nil || i >= len(corrections) {
			return 1
		}
		return corrections[i]
	}

	type candidate struct {
		top, bot string
		exp      float64
		mean     *float64
		diff     *float64
	}
	cands := []candidate{
		{transect.ExtrapPower, transect.ExtrapPower, transect.DefaultExponent, &s.QPPMean, &s.PPDiff},
		{transect.ExtrapPower, transect.ExtrapPower, comp.PPExponent, &s.QPPOptMean, &s.PPOptDiff},
		{transect.ExtrapConstant, transect.ExtrapNoSlip, transect.DefaultExponent, &s.QCNSMean, &s.CNSDiff},
		{transect.ExtrapConstant, transect.ExtrapNoSlip, comp.NSExponent, &s.QCNSOptMean, &s.CNSOptDiff},
		{transect.Extrap3Point, transect.ExtrapNoSlip, transect.DefaultExponent, &s.Q3PtMean, &s.ThreePtDiff},
	}

	var selSum float64
	var n int
	for i, t := range transects {
		if !t.Checked {
			continue
		}
		selSum += discharge.Compute(t, factor(i)).Total
		n++
	}
	if n == 0 {
		f.Sensitivity = s
		return
	}
	s.QSelMean = selSum / float64(n)

	for _, c := range cands {
		var sum float64
		for i, t := range transects {
			if !t.Checked {
				continue
			}
			saved := t.Extrap
			t.Extrap = transect.ExtrapSettings{TopMethod: c.top, BotMethod: c.bot, Exponent: c.exp}
			sum += discharge.Compute(t, factor(i)).Total
			t.Extrap = saved
		}
		*c.mean = sum / float64(n)
		if s.QSelMean != 0 {
			*c.diff = (*c.mean - s.QSelMean) / math.Abs(s.QSelMean) * 100
		}
	}
	f.Sensitivity = s
}
