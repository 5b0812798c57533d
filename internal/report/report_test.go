package report

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/openhydro/river-discharge/internal/discharge"
	"github.com/openhydro/river-discharge/internal/measurement"
	"github.com/openhydro/river-discharge/internal/movingbed"
	"github.com/openhydro/river-discharge/internal/qa"
	"github.com/openhydro/river-discharge/internal/transect"
	"github.com/openhydro/river-discharge/internal/uncertainty"
)

func testTransect(name string) *transect.Transect {
	t := &transect.Transect{
		FileName:    name,
		Checked:     true,
		StartTime:   time.Date(2024, 5, 10, 9, 30, 0, 0, time.UTC),
		EndTime:     time.Date(2024, 5, 10, 9, 35, 0, 0, time.UTC),
		StartEdge:   "Left",
		EnsDuration: []float64{1, 1, 1, 1},
		ADCP: transect.InstrumentInfo{
			Manufacturer: "SonTek",
			Model:        "M9",
			SerialNum:    "1234",
			Firmware:     "3.0",
			FrequencyKHz: 3000,
			BeamAngleDeg: 25,
		},
	}

	t.Boat.BT = &transect.BoatVelocity{
		Source:     transect.NavBottomTrack,
		BeamFilter: -1,
		DiffFilter: transect.FilterAuto,
		VertFilter: transect.FilterAuto,
		Interp:     transect.InterpLinear,
	}
	t.Boat.Selected = transect.NavBottomTrack
	t.Boat.UProcessed = []float64{0.5, 0.5, 0.5, 0.5}
	t.Boat.VProcessed = []float64{0, 0, 0, 0}

	t.Depths.BT = &transect.DepthData{
		Source:      transect.DepthBottomTrack,
		BeamDepths:  [][]float64{{2, 2, 2, 2}},
		AvgMethod:   transect.DepthAvgSimple,
		FilterType:  transect.DepthFilterNone,
		ValidMethod: transect.DepthValidTRDI,
		InterpType:  transect.InterpLinear,
	}
	t.Depths.Selected = transect.DepthBottomTrack
	t.Depths.SetEnsTime([]float64{1, 2, 3, 4})
	t.Depths.Process()

	t.Water.UProcessed = [][]float64{{0.9, 1.0, 1.1, 1.0}}
	t.Water.VProcessed = [][]float64{{0, 0, 0, 0}}
	t.Water.RawU = t.Water.UProcessed
	t.Water.Valid = [][]bool{{true, true, false, true}}
	t.Water.CellsAboveSL = [][]bool{{true, true, true, true}}
	t.Water.BeamFilter = -1
	t.Water.DiffFilter = transect.FilterAuto
	t.Water.VertFilter = transect.FilterAuto
	t.Water.SNRFilter = transect.FilterAuto
	t.Water.InterpEns = transect.InterpABBA
	t.Water.InterpCells = transect.InterpABBA

	t.Sensors.TemperatureC.Internal = &transect.SensorSeries{Data: []float64{18.0, 18.2, 18.1, 18.3}}
	t.Sensors.TemperatureC.Selected = transect.SensorInternal

	t.Edges.Left = transect.Edge{Type: transect.EdgeTriangular, DistanceM: 3}
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

func testMeasurement() *measurement.Measurement {
	m := &measurement.Measurement{
		StationName:   "Green River",
		StationNumber: "09315000",
		Processing:    "BestPractice",
		Transects:     []*transect.Transect{testTransect("GRN001.mmt")},
		SystemTests:   []qa.PreMeasurement{{Data: "System test PASS"}},
		MBTests: []*movingbed.Test{{
			FileName:    "GRNMB.mmt",
			Type:        movingbed.TypeLoop,
			Quality:     movingbed.QualityGood,
			MovingBed:   movingbed.BedNo,
			UserValid:   true,
			Selected:    true,
			DurationSec: 310,
			FlowSpeed:   0.8,
			MBSpeed:     0.01,
		}},
	}
	m.Discharge = []*discharge.Result{{
		Top:              10,
		Middle:           75,
		Bottom:           12,
		Left:             2,
		Right:            1,
		Total:            100,
		TotalUncorrected: 99,
	}}
	m.Uncertainty = &uncertainty.Uncertainty{COV: 1.2, Total: 2.8, TotalUser: 2.8}
	return m
}

func TestExport(t *testing.T) {
	m := testMeasurement()

	var buf bytes.Buffer
	if err := Export(m, "1.0", &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		`<Channel Version="1.0">`,
		`<StationName type="char">Green River</StationName>`,
		`<SiteID type="char">09315000</SiteID>`,
		`<DiagnosticTestResult type="char">Pass</DiagnosticTestResult>`,
		`<CompassCalibrationResult type="char">No</CompassCalibrationResult>`,
		`<MovingBedTestType type="char">Loop</MovingBedTestType>`,
		`<MovingBedTestResult type="char">No</MovingBedTestResult>`,
		`<Manufacturer type="char">SonTek</Manufacturer>`,
		`<BeamAngle type="double" unitsCode="deg">25.0</BeamAngle>`,
		`<Type type="char">BestPractice</Type>`,
		`<AreaComputationMethod type="char">Parallel</AreaComputationMethod>`,
		`<Reference type="char">BT</Reference>`,
		`<BeamFilter type="char">Auto</BeamFilter>`,
		`<TopMethod type="char">Power</TopMethod>`,
		`<Exponent type="double">0.1667</Exponent>`,
		`<Filename type="char">GRN001.mmt</Filename>`,
		`<StartDateTime type="char">05/10/2024 09:30:00</StartDateTime>`,
		`<Total type="double" unitsCode="cms">100.000</Total>`,
		`<LeftType type="char">Triangular</LeftType>`,
		`<LeftEdgeCoefficient type="char">0.3535</LeftEdgeCoefficient>`,
		`<NumberofEnsembles type="integer">4</NumberofEnsembles>`,
		`<PercentInvalidBins type="double">25.00</PercentInvalidBins>`,
		`<NumberofTransects type="integer">1</NumberofTransects>`,
		`<UserRating type="char">Not Rated</UserRating>`,
		`<TestQuality type="char">Good</TestQuality>`,
		`<UseToCorrect type="char">No</UseToCorrect>`,
		`<CourseMadeGood type="double" unitsCode="deg">90.00</CourseMadeGood>`,
		`<MeanCourseMadeGood type="double" unitsCode="deg">90.00</MeanCourseMadeGood>`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Export() output missing %s", want)
		}
	}
}

func TestExportAbsentNavSource(t *testing.T) {
	m := testMeasurement()
	// Selected reference names a source the file never recorded.
	m.Transects[0].Boat.Selected = transect.NavGGA

	var buf bytes.Buffer
	if err := Export(m, "1.0", &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `<Reference type="char">GGA</Reference>`) {
		t.Error("Export() output missing navigation reference")
	}
	// Only the water track section carries filter settings now.
	if n := strings.Count(out, "<BeamFilter"); n != 1 {
		t.Errorf("BeamFilter nodes = %d, want 1", n)
	}
}

func TestExportNoTransects(t *testing.T) {
	var buf bytes.Buffer
	if err := Export(&measurement.Measurement{}, "1.0", &buf); err == nil {
		t.Fatal("Export() expected error for empty measurement")
	}
}

func TestFilterText(t *testing.T) {
	if got := filterText(transect.FilterAuto, math.NaN()); got != "Auto" {
		t.Errorf("filterText(Auto) = %q, want Auto", got)
	}
	if got := filterText(transect.FilterManual, 0.25); got != "0.2500" {
		t.Errorf("filterText(Manual, 0.25) = %q, want 0.2500", got)
	}
}

func TestEdgeSummaryVaries(t *testing.T) {
	m := testMeasurement()
	second := testTransect("GRN002.mmt")
	second.Edges.Left.Type = transect.EdgeRectangular
	m.Transects = append(m.Transects, second)
	m.Discharge = append(m.Discharge, m.Discharge[0])

	n := edgeSummaryNode(m)
	got := map[string]string{}
	for _, c := range n.Children {
		got[c.XMLName.Local] = c.Text
	}
	if got["LeftType"] != "Varies" {
		t.Errorf("LeftType = %q, want Varies", got["LeftType"])
	}
	if got["LeftEdgeCoefficient"] != "N/A" {
		t.Errorf("LeftEdgeCoefficient = %q, want N/A", got["LeftEdgeCoefficient"])
	}
	if got["RightType"] != "Triangular" {
		t.Errorf("RightType = %q, want Triangular", got["RightType"])
	}
	if got["RightEdgeCoefficient"] != "0.3535" {
		t.Errorf("RightEdgeCoefficient = %q, want 0.3535", got["RightEdgeCoefficient"])
	}
}

func TestPercentCorrection(t *testing.T) {
	if got := percentCorrection(102, 100); math.Abs(got-2) > 1e-9 {
		t.Errorf("percentCorrection(102, 100) = %v, want 2", got)
	}
	if got := percentCorrection(100, 0); got != 0 {
		t.Errorf("percentCorrection(100, 0) = %v, want 0", got)
	}
}
