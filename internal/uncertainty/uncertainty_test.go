package uncertainty

import (
	"math"
	"testing"

	"github.com/openhydro/river-discharge/internal/discharge"
	"github.com/openhydro/river-discharge/internal/extrap"
	"github.com/openhydro/river-discharge/internal/movingbed"
	"github.com/openhydro/river-discharge/internal/transect"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestEstimateComponents(t *testing.T) {
	in := Input{
		Discharges: []*discharge.Result{
			{Total: 100, Left: 2, Right: 2, IntCells: 1, IntEnsembles: 1},
			{Total: 102, Left: 2, Right: 2, IntCells: 1, IntEnsembles: 1},
			{Total: 98, Left: 2, Right: 2, IntCells: 1, IntEnsembles: 1},
		},
		Sensitivity: &extrap.Sensitivity{PPDiff: 0.5, CNSDiff: -2.0, ThreePtDiff: 1.0},
		NavRef:      transect.NavGGA,
	}

	u := Estimate(in, nil)

	if u.COV <= 0 {
		t.Fatalf("COV = %v, want positive", u.COV)
	}
	wantRandom := u.COV / math.Sqrt(3) * 2
	if !approx(u.Random.Auto, wantRandom) {
		t.Errorf("Random.Auto = %v, want %v", u.Random.Auto, wantRandom)
	}
	// 2% interpolated and 4% edges of the total, scaled.
	if !approx(u.InvalidData.Auto, invalidDataScale*2) {
		t.Errorf("InvalidData.Auto = %v, want %v", u.InvalidData.Auto, invalidDataScale*2)
	}
	if !approx(u.Edges.Auto, edgeScale*4) {
		t.Errorf("Edges.Auto = %v, want %v", u.Edges.Auto, edgeScale*4)
	}
	// Largest absolute sensitivity departure is 2%.
	if !approx(u.Extrapolation.Auto, extrapScale*2) {
		t.Errorf("Extrapolation.Auto = %v, want %v", u.Extrapolation.Auto, extrapScale*2)
	}
	if u.MovingBed.Auto != 0 {
		t.Errorf("MovingBed.Auto = %v, want 0 for a GPS reference", u.MovingBed.Auto)
	}
	if u.Systematic.Auto != systematic95 {
		t.Errorf("Systematic.Auto = %v, want %v", u.Systematic.Auto, systematic95)
	}
}

func TestEstimateTotalIsRSS(t *testing.T) {
	u := Estimate(Input{
		Discharges: []*discharge.Result{{Total: 50}, {Total: 50}},
		NavRef:     transect.NavGGA,
	}, nil)

	comps := []Component{
		u.Random, u.InvalidData, u.Edges,
		u.Extrapolation, u.MovingBed, u.Systematic,
	}
	var ss float64
	for _, c := range comps {
		ss += c.Auto * c.Auto
	}
	if !approx(u.Total, math.Sqrt(ss)) {
		t.Errorf("Total = %v, want RSS %v", u.Total, math.Sqrt(ss))
	}
	if !approx(u.Total, u.TotalUser) {
		t.Errorf("TotalUser = %v, want %v without overrides", u.TotalUser, u.Total)
	}
}

func TestEstimateCarriesOverrides(t *testing.T) {
	override := 5.0
	prev := Estimate(Input{NavRef: transect.NavGGA}, nil)
	prev.Extrapolation.User = &override
	prev.Recalc()

	u := Estimate(Input{NavRef: transect.NavGGA}, prev)

	if u.Extrapolation.User == nil || *u.Extrapolation.User != override {
		t.Fatal("Estimate() dropped the operator override")
	}
	if u.Extrapolation.Value() != override {
		t.Errorf("Value() = %v, want override %v", u.Extrapolation.Value(), override)
	}
	if u.TotalUser <= u.Total {
		t.Errorf("TotalUser = %v, want above the automatic total %v", u.TotalUser, u.Total)
	}
}

func TestMovingBedTerm(t *testing.T) {
	tests := []struct {
		name   string
		tests  []*movingbed.Test
		navRef transect.NavSource
		want   float64
	}{
		{"gps immune", nil, transect.NavGGA, 0},
		{"no selected tests", nil, transect.NavBottomTrack, 1.5},
		{"errors quality", []*movingbed.Test{
			{Selected: true, Quality: movingbed.QualityErrors, MovingBed: movingbed.BedNo},
		}, transect.NavBottomTrack, 3.0},
		{"unknown verdict", []*movingbed.Test{
			{Selected: true, Quality: movingbed.QualityGood, MovingBed: movingbed.BedUnknown},
		}, transect.NavBottomTrack, 3.0},
		{"moving bed corrected", []*movingbed.Test{
			{Selected: true, Quality: movingbed.QualityGood, MovingBed: movingbed.BedYes},
		}, transect.NavBottomTrack, 1.5},
		{"no moving bed", []*movingbed.Test{
			{Selected: true, Quality: movingbed.QualityGood, MovingBed: movingbed.BedNo},
		}, transect.NavBottomTrack, 0.5},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := movingBedTerm(tc.tests, tc.navRef); got != tc.want {
				t.Errorf("movingBedTerm() = %v, want %v", got, tc.want)
			}
		})
	}
}
