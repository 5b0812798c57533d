// Package uncertainty estimates the 95% uncertainty of a measurement
// from named components combined in quadrature. Every component has an
// automatic estimate; the operator may override any of them, and the
// user total prefers overrides where present.
package uncertainty

import (
	"math"

	"github.com/openhydro/river-discharge/internal/discharge"
	"github.com/openhydro/river-discharge/internal/extrap"
	"github.com/openhydro/river-discharge/internal/movingbed"
	"github.com/openhydro/river-discharge/internal/stats"
	"github.com/openhydro/river-discharge/internal/transect"
)

const (
	systematic95     = 1.5
	invalidDataScale = 0.2  // of percent discharge from interpolation
	edgeScale        = 0.3  // of percent discharge from edges
	extrapScale      = 0.25 // of the worst-case sensitivity spread
)

// Component is one named uncertainty term, in percent at 95%.
type Component struct {
	Auto float64
	User *float64 // operator override, nil when unset
}

// Value returns the override when present, otherwise the estimate.
func (c Component) Value() float64 {
	if c.User != nil {
		return *c.User
	}
	return c.Auto
}

// Input gathers everything the estimate needs from a measurement.
type Input struct {
	Discharges  []*discharge.Result // checked transects only
	Sensitivity *extrap.Sensitivity
	Tests       []*movingbed.Test
	NavRef      transect.NavSource
}

// Uncertainty is the aggregate result for one measurement.
type Uncertainty struct {
	COV float64 // coefficient of variation of checked totals, percent

	Random        Component
	InvalidData   Component
	Edges         Component
	Extrapolation Component
	MovingBed     Component
	Systematic    Component

	Total     float64 // automatic estimates only
	TotalUser float64 // preferring operator overrides
}

// Estimate computes the automatic components. Operator overrides from
// prev are carried forward; pass nil on first computation.
func Estimate(in Input, prev *Uncertainty) *Uncertainty {
	u := &Uncertainty{Systematic: Component{Auto: systematic95}}
	if prev != nil {
		u.Random.User = prev.Random.User
		u.InvalidData.User = prev.InvalidData.User
		u.Edges.User = prev.Edges.User
		u.Extrapolation.User = prev.Extrapolation.User
		u.MovingBed.User = prev.MovingBed.User
		u.Systematic.User = prev.Systematic.User
	}

	totals := make([]float64, 0, len(in.Discharges))
	for _, d := range in.Discharges {
		totals = append(totals, d.Total)
	}
	if len(totals) > 0 {
		u.COV = stats.CV(totals)
	}
	if n := len(totals); n > 1 && !math.IsNaN(u.COV) {
		u.Random.Auto = u.COV / math.Sqrt(float64(n)) * 2
	}

	u.InvalidData.Auto = invalidDataScale * percentInterpolated(in.Discharges)
	u.Edges.Auto = edgeScale * percentEdges(in.Discharges)
	u.Extrapolation.Auto = extrapScale * sensitivitySpread(in.Sensitivity)
	u.MovingBed.Auto = movingBedTerm(in.Tests, in.NavRef)

	u.Recalc()
	return u
}

// Recalc recomputes both totals, after an override change.
func (u *Uncertainty) Recalc() {
	comps := []Component{
		u.Random, u.InvalidData, u.Edges,
		u.Extrapolation, u.MovingBed, u.Systematic,
	}
	var auto, user float64
	for _, c := range comps {
		auto += c.Auto * c.Auto
		v := c.Value()
		user += v * v
	}
	u.Total = math.Sqrt(auto)
	u.TotalUser = math.Sqrt(user)
}

func percentInterpolated(ds []*discharge.Result) float64 {
	var pcts []float64
	for _, d := range ds {
		if d.Total != 0 {
			pcts = append(pcts, math.Abs(d.IntCells+d.IntEnsembles)/math.Abs(d.Total)*100)
		}
	}
	if len(pcts) == 0 {
		return 0
	}
	return stats.Mean(pcts)
}

func percentEdges(ds []*discharge.Result) float64 {
	var pcts []float64
	for _, d := range ds {
		if d.Total != 0 {
			pcts = append(pcts, math.Abs(d.Left+d.Right)/math.Abs(d.Total)*100)
		}
	}
	if len(pcts) == 0 {
		return 0
	}
	return stats.Mean(pcts)
}

// sensitivitySpread is the largest absolute percent departure among
// the candidate profile methods.
func sensitivitySpread(s *extrap.Sensitivity) float64 {
	if s == nil {
		return 0
	}
	spread := 0.0
	for _, d := range []float64{s.PPDiff, s.PPOptDiff, s.CNSDiff, s.CNSOptDiff, s.ThreePtDiff} {
		if a := math.Abs(d); a > spread {
			spread = a
		}
	}
	return spread
}

// movingBedTerm grades the moving-bed condition. GPS references are
// immune to bed movement; bottom track carries a term scaled by how
// well the tests resolved the condition.
func movingBedTerm(tests []*movingbed.Test, navRef transect.NavSource) float64 {
	if navRef != transect.NavBottomTrack {
		return 0
	}
	var selected []*movingbed.Test
	for _, t := range tests {
		if t.Selected {
			selected = append(selected, t)
		}
	}
	if len(selected) == 0 {
		return 1.5
	}
	worst := 0.0
	for _, t := range selected {
		var term float64
		switch {
		case t.Quality == movingbed.QualityErrors:
			term = 3.0
		case t.MovingBed == movingbed.BedUnknown:
			term = 3.0
		case t.MovingBed == movingbed.BedYes:
			term = 1.5
		default:
			term = 0.5
		}
		if term > worst {
			worst = term
		}
	}
	return worst
}
