package transect

import (
	"math"
	"testing"
)

func TestAverageBeams(t *testing.T) {
	d := &DepthData{
		BeamDepths: [][]float64{{2}, {2.2}, {math.NaN()}, {1.8}},
		AvgMethod:  DepthAvgSimple,
	}
	if got := d.averageBeams(0); math.Abs(got-2) > 1e-9 {
		t.Errorf("simple average = %v, want 2", got)
	}

	// IDW pulls the estimate toward the agreeing beams.
	d = &DepthData{
		BeamDepths: [][]float64{{1}, {1}, {1}, {10}},
		AvgMethod:  DepthAvgIDW,
	}
	simple := 3.25
	if got := d.averageBeams(0); got >= simple || got < 1 {
		t.Errorf("IDW average = %v, want between 1 and %v", got, simple)
	}

	d = &DepthData{BeamDepths: [][]float64{{math.NaN()}, {-1}}}
	if got := d.averageBeams(0); !math.IsNaN(got) {
		t.Errorf("no reporting beams = %v, want NaN", got)
	}
}

func TestDepthTRDIFilter(t *testing.T) {
	d := &DepthData{
		BeamDepths: [][]float64{{2, 2, 10, 2}},
		AvgMethod:  DepthAvgSimple,
		FilterType: DepthFilterTRDI,
		InterpType: InterpLinear,
	}
	d.process([]float64{1, 2, 3, 4})

	if d.Valid[2] {
		t.Error("depth spike kept")
	}
	// Spike replaced by interpolation between its neighbours.
	if math.Abs(d.DepthProcessed[2]-2) > 1e-9 {
		t.Errorf("DepthProcessed[2] = %v, want 2", d.DepthProcessed[2])
	}
}

func TestDepthMultiBeamValidity(t *testing.T) {
	nan := math.NaN()
	d := &DepthData{
		BeamDepths: [][]float64{
			{2, 2, 2},
			{2, nan, 2},
			{2, nan, 2},
			{2, nan, 2},
		},
		AvgMethod:   DepthAvgSimple,
		FilterType:  DepthFilterNone,
		ValidMethod: DepthValidMultiBeam,
		InterpType:  InterpNone,
	}
	d.process(nil)
	if d.Valid[1] {
		t.Error("single-beam ensemble kept")
	}
	if !d.Valid[0] || !d.Valid[2] {
		t.Errorf("multi-beam ensembles rejected: %v", d.Valid)
	}
}

func TestDepthDraft(t *testing.T) {
	d := &DepthData{
		BeamDepths: [][]float64{{2, 2}},
		DraftM:     0.5,
		AvgMethod:  DepthAvgSimple,
	}
	d.process(nil)
	for e, v := range d.DepthProcessed {
		if math.Abs(v-2.5) > 1e-9 {
			t.Errorf("DepthProcessed[%d] = %v, want 2.5", e, v)
		}
	}
}

func TestDepthSetComposite(t *testing.T) {
	nan := math.NaN()
	ds := DepthSet{
		BT: &DepthData{
			BeamDepths: [][]float64{{2, nan, 2}},
			AvgMethod:  DepthAvgSimple,
			InterpType: InterpNone,
		},
		VB: &DepthData{
			BeamDepths: [][]float64{{2.1, 2.2, 2.1}},
			AvgMethod:  DepthAvgSimple,
			InterpType: InterpNone,
		},
		Selected:  DepthBottomTrack,
		Composite: true,
	}
	ds.Process()

	got := ds.Processed()
	if got[0] != 2 {
		t.Errorf("processed[0] = %v, want bottom track", got[0])
	}
	if got[1] != 2.2 {
		t.Errorf("processed[1] = %v, want vertical-beam fill", got[1])
	}

	ds.Composite = false
	ds.Process()
	if !math.IsNaN(ds.Processed()[1]) {
		t.Errorf("processed[1] = %v, want NaN without compositing", ds.Processed()[1])
	}
}

func TestDepthSetReference(t *testing.T) {
	ds := DepthSet{
		BT:       &DepthData{Source: DepthBottomTrack},
		Selected: DepthBottomTrack,
	}
	ds.SetReference(DepthVerticalBeam) // absent, ignored
	if ds.Selected != DepthBottomTrack {
		t.Errorf("Selected = %q, want BT", ds.Selected)
	}
	if ds.SelectedDepth() != ds.BT {
		t.Error("SelectedDepth is not bottom track")
	}
}
