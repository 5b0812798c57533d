package measurement

import (
	"math"
	"testing"

	"github.com/openhydro/river-discharge/internal/discharge"
	"github.com/openhydro/river-discharge/internal/settings"
	"github.com/openhydro/river-discharge/internal/transect"
)

// flowTransect builds a four-ensemble transect crossing eastward over a
// flat 2 m bed, with uniform 1 m/s water flow toward the given azimuth.
func flowTransect(name string, flowAzDeg float64) *transect.Transect {
	ne := 4
	row := func(v float64) []float64 {
		s := make([]float64, ne)
		for i := range s {
			s[i] = v
		}
		return s
	}
	rad := flowAzDeg * math.Pi / 180
	u, v := math.Sin(rad), math.Cos(rad)

	t := &transect.Transect{
		FileName:    name,
		Checked:     true,
		StartEdge:   "Left",
		EnsDuration: row(1),
	}
	t.Boat.BT = &transect.BoatVelocity{
		Source:     transect.NavBottomTrack,
		BeamFilter: -1,
		DiffFilter: transect.FilterAuto,
		VertFilter: transect.FilterAuto,
		Interp:     transect.InterpLinear,
	}
	t.Boat.Selected = transect.NavBottomTrack
	t.Boat.UProcessed = row(0.5)
	t.Boat.VProcessed = row(0)

	t.Depths.BT = &transect.DepthData{
		Source:      transect.DepthBottomTrack,
		BeamDepths:  [][]float64{row(2)},
		AvgMethod:   transect.DepthAvgSimple,
		FilterType:  transect.DepthFilterNone,
		ValidMethod: transect.DepthValidTRDI,
		InterpType:  transect.InterpLinear,
	}
	t.Depths.Selected = transect.DepthBottomTrack
	t.Depths.SetEnsTime([]float64{1, 2, 3, 4})
	t.Depths.Process()

	t.Water.UProcessed = [][]float64{row(u), row(u)}
	t.Water.VProcessed = [][]float64{row(v), row(v)}
	t.Water.CellDepth = [][]float64{row(0.5), row(1.0)}
	t.Water.CellSize = [][]float64{row(0.5), row(0.5)}
	t.Water.CellInterpolated = [][]bool{make([]bool, ne), make([]bool, ne)}
	t.Water.EnsInterpolated = make([]bool, ne)
	t.Water.BeamFilter = -1
	t.Water.DiffFilter = transect.FilterAuto
	t.Water.VertFilter = transect.FilterAuto
	t.Water.SNRFilter = transect.FilterAuto
	t.Water.InterpEns = transect.InterpABBA
	t.Water.InterpCells = transect.InterpABBA

	t.Edges.Left = transect.Edge{Type: transect.EdgeTriangular, DistanceM: 2}
	t.Edges.Right = transect.Edge{Type: transect.EdgeTriangular, DistanceM: 4}
	t.Edges.VelMethod = transect.EdgeVelMeasMag
	t.Edges.RecEdgeMethod = transect.RecEdgeFixed

	t.Extrap = transect.ExtrapSettings{
		TopMethod: transect.ExtrapPower,
		BotMethod: transect.ExtrapPower,
		Exponent:  transect.DefaultExponent,
	}
	return t
}

func TestMeanDischarges(t *testing.T) {
	m := &Measurement{
		Transects: []*transect.Transect{
			{Checked: true},
			{Checked: false},
			{Checked: true},
		},
		Discharge: []*discharge.Result{
			{Total: 100, TotalUncorrected: 98, Left: 2},
			{Total: 500, TotalUncorrected: 500, Left: 50},
			{Total: 104, TotalUncorrected: 102, Left: 4},
		},
	}

	mean := m.MeanDischarges()
	if mean.Total != 102 {
		t.Errorf("Total = %v, want 102", mean.Total)
	}
	if mean.Uncorrected != 100 {
		t.Errorf("Uncorrected = %v, want 100", mean.Uncorrected)
	}
	if mean.Left != 3 {
		t.Errorf("Left = %v, want 3", mean.Left)
	}

	if got := (&Measurement{}).MeanDischarges(); got != (MeanDischarge{}) {
		t.Errorf("empty measurement mean = %+v, want zero", got)
	}
}

func TestDuration(t *testing.T) {
	m := &Measurement{Transects: []*transect.Transect{
		flowTransect("a", 180),
		flowTransect("b", 180),
	}}
	m.Transects[1].Checked = false
	if d := m.Duration(); d != 4 {
		t.Errorf("Duration = %v, want 4", d)
	}
}

func TestTransectProperties(t *testing.T) {
	m := &Measurement{Transects: []*transect.Transect{flowTransect("a", 180)}}
	m.ComputeDischarge()

	p := m.Properties()
	tp := p.Transects[0]

	// Track runs 0.5 m east per ensemble, 2 m made good.
	if tp.AvgBoatCourse != 90 {
		t.Errorf("AvgBoatCourse = %v, want 90", tp.AvgBoatCourse)
	}
	if tp.AvgBoatSpeed != 0.5 {
		t.Errorf("AvgBoatSpeed = %v, want 0.5", tp.AvgBoatSpeed)
	}
	if tp.WidthM != 8 {
		t.Errorf("WidthM = %v, want 8", tp.WidthM)
	}
	// Mid-section trapezoids plus triangular edge areas.
	want := 2*1.5 + 0.5*2*2 + 0.5*4*2
	if math.Abs(tp.AreaM2-want) > 1e-9 {
		t.Errorf("AreaM2 = %v, want %v", tp.AreaM2, want)
	}
	if math.Abs(tp.AvgDepthM-want/8) > 1e-9 {
		t.Errorf("AvgDepthM = %v, want %v", tp.AvgDepthM, want/8)
	}
	if tp.MaxDepthM != 2 {
		t.Errorf("MaxDepthM = %v, want 2", tp.MaxDepthM)
	}
	if math.Abs(tp.AvgWaterDir-180) > 1e-6 {
		t.Errorf("AvgWaterDir = %v, want 180", tp.AvgWaterDir)
	}
	if math.Abs(tp.MaxWaterSpeed-1) > 1e-9 {
		t.Errorf("MaxWaterSpeed = %v, want 1", tp.MaxWaterSpeed)
	}
	if tp.AvgWaterSpeed <= 0 {
		t.Errorf("AvgWaterSpeed = %v, want positive", tp.AvgWaterSpeed)
	}
}

func TestAggregateWaterDirection(t *testing.T) {
	m := &Measurement{Transects: []*transect.Transect{
		flowTransect("a", 350),
		flowTransect("b", 10),
	}}
	m.ComputeDischarge()

	agg := m.Properties().Aggregate
	d := math.Mod(agg.AvgWaterDir, 360)
	if math.Min(d, 360-d) > 0.01 {
		t.Errorf("AvgWaterDir = %v, want 0", agg.AvgWaterDir)
	}
	if agg.WidthM != 8 {
		t.Errorf("WidthM = %v, want 8", agg.WidthM)
	}
	// Identical transects, zero spread.
	if math.Abs(agg.AreaCOV) > 1e-6 {
		t.Errorf("AreaCOV = %v, want 0", agg.AreaCOV)
	}
	// The aggregate carries the last checked transect's course.
	if math.Abs(agg.AvgBoatCourse-90) > 1e-9 {
		t.Errorf("AvgBoatCourse = %v, want 90", agg.AvgBoatCourse)
	}
}

func TestCurrentSettingsSnapshot(t *testing.T) {
	tr := flowTransect("a", 180)
	tr.Boat.BT.BeamFilter = -1
	tr.Boat.BT.DiffFilter = transect.FilterAuto
	tr.Boat.BT.Interp = transect.InterpLinear
	tr.Water.BeamFilter = -1
	tr.Water.SNRFilter = transect.FilterAuto
	tr.Water.InterpEns = transect.InterpABBA
	m := &Measurement{Transects: []*transect.Transect{tr}, Processing: settings.ProcessingBestPractice}

	s := m.CurrentSettings()
	if s.Processing != settings.ProcessingBestPractice {
		t.Errorf("Processing = %q", s.Processing)
	}
	if s.Navigation.Reference != transect.NavBottomTrack {
		t.Errorf("Reference = %q", s.Navigation.Reference)
	}
	if s.BoatFilters.Beam != -1 || s.BoatFilters.Diff != transect.FilterAuto {
		t.Errorf("boat filters = %+v", s.BoatFilters)
	}
	if s.WaterFilters.SNR != transect.FilterAuto {
		t.Errorf("water filters = %+v", s.WaterFilters)
	}
	if s.Interpolation.WaterEns != transect.InterpABBA {
		t.Errorf("interpolation = %+v", s.Interpolation)
	}
	if s.Extrapolation == nil || s.Extrapolation.Top != transect.ExtrapPower {
		t.Errorf("extrapolation = %+v", s.Extrapolation)
	}
	if err := s.Validate(); err != nil {
		t.Errorf("snapshot does not validate: %v", err)
	}
}

func TestDefaultSettings(t *testing.T) {
	tr := flowTransect("a", 180)
	tr.ADCP.Model = "M9"
	tr.Water.ExcludedDistM = 0.05
	m := &Measurement{Transects: []*transect.Transect{tr}}

	bp := m.DefaultSettings(settings.PolicyBestPractice)
	if bp.Processing != settings.ProcessingBestPractice {
		t.Errorf("Processing = %q", bp.Processing)
	}
	if bp.WaterFilters.Beam != -1 || bp.WaterFilters.SNR != transect.FilterAuto {
		t.Errorf("water filters = %+v", bp.WaterFilters)
	}
	if bp.Depth.ValidMethod != transect.DepthValidMultiBeam || !bp.Depth.Composite {
		t.Errorf("depth settings = %+v", bp.Depth)
	}
	// Recorded excluded distance sits below the M9 floor.
	if bp.WaterFilters.ExcludedDistM != 0.16 {
		t.Errorf("ExcludedDistM = %v, want 0.16", bp.WaterFilters.ExcludedDistM)
	}
	if bp.Extrapolation != nil {
		t.Errorf("Extrapolation = %+v, want nil", bp.Extrapolation)
	}

	nf := m.DefaultSettings(settings.PolicyNoFiltering)
	if nf.Processing != settings.ProcessingNone {
		t.Errorf("Processing = %q", nf.Processing)
	}
	if nf.WaterFilters.Diff != transect.FilterOff || nf.WaterFilters.WTDepth {
		t.Errorf("water filters = %+v", nf.WaterFilters)
	}
	if nf.Interpolation.WaterEns != transect.InterpNone {
		t.Errorf("interpolation = %+v", nf.Interpolation)
	}
}
