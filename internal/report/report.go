// Package report renders a processed measurement as the channel XML
// document consumed by downstream review and archival tooling. The
// document is a fixed node tree with typed leaf elements; numeric
// values carry the precision the format prescribes.
package report

import (
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/openhydro/river-discharge/internal/measurement"
	"github.com/openhydro/river-discharge/internal/movingbed"
	"github.com/openhydro/river-discharge/internal/qa"
	"github.com/openhydro/river-discharge/internal/stats"
	"github.com/openhydro/river-discharge/internal/transect"
)

const timeLayout = "01/02/2006 15:04:05"

// node is one XML element. Children marshal under their own names, so
// the whole document is built as a single tree and encoded once.
type node struct {
	XMLName   xml.Name
	Type      string `xml:"type,attr,omitempty"`
	UnitsCode string `xml:"unitsCode,attr,omitempty"`
	Version   string `xml:"Version,attr,omitempty"`
	Text      string `xml:",chardata"`
	Children  []node
}

func elem(name string, children ...node) node {
	return node{XMLName: xml.Name{Local: name}, Children: children}
}

func charNode(name, text string) node {
	return node{XMLName: xml.Name{Local: name}, Type: "char", Text: text}
}

func charUnits(name, text, units string) node {
	return node{XMLName: xml.Name{Local: name}, Type: "char", UnitsCode: units, Text: text}
}

func numNode(name string, prec int, v float64) node {
	return node{XMLName: xml.Name{Local: name}, Type: "double", Text: fixed(prec, v)}
}

func numUnits(name string, prec int, v float64, units string) node {
	return node{XMLName: xml.Name{Local: name}, Type: "double", UnitsCode: units, Text: fixed(prec, v)}
}

func intNode(name string, v int) node {
	return node{XMLName: xml.Name{Local: name}, Type: "integer", Text: strconv.Itoa(v)}
}

func fixed(prec int, v float64) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}

func onOff(on bool) string {
	if on {
		return "On"
	}
	return "Off"
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// Export writes the channel XML for a fully processed measurement.
// Discharge, uncertainty and the extrapolation fit must be current.
func Export(m *measurement.Measurement, version string, w io.Writer) error {
	if len(m.Transects) == 0 {
		return fmt.Errorf("export: measurement has no transects")
	}

	props := m.Properties()

	channel := node{
		XMLName: xml.Name{Local: "Channel"},
		Version: version,
	}
	if site := siteNode(m); site != nil {
		channel.Children = append(channel.Children, *site)
	}
	channel.Children = append(channel.Children, qaNode(m))
	channel.Children = append(channel.Children, instrumentNode(m))
	channel.Children = append(channel.Children, processingNode(m, version))
	for _, i := range m.CheckedIndices() {
		channel.Children = append(channel.Children, transectNode(m, i, props.Transects[i]))
	}
	channel.Children = append(channel.Children, summaryNode(m, props.Aggregate))

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(channel); err != nil {
		return fmt.Errorf("export: encode channel: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return nil
}

func siteNode(m *measurement.Measurement) *node {
	if m.StationName == "" && m.StationNumber == "" {
		return nil
	}
	site := elem("SiteInformation")
	if m.StationName != "" {
		site.Children = append(site.Children, charNode("StationName", m.StationName))
	}
	if m.StationNumber != "" && m.StationNumber != "0" {
		site.Children = append(site.Children, charNode("SiteID", m.StationNumber))
	}
	return &site
}

func qaNode(m *measurement.Measurement) node {
	n := elem("QA",
		charNode("DiagnosticTestResult", qa.DiagnosticResult(m.SystemTests)),
		charNode("CompassCalibrationResult", qa.CompassResult(m.CompassEvals)),
	)

	mbType, mbResult := movingBedSummary(m)
	n.Children = append(n.Children,
		charNode("MovingBedTestType", mbType),
		charNode("MovingBedTestResult", mbResult),
	)

	if len(m.SystemTests) > 0 {
		var b strings.Builder
		for _, t := range m.SystemTests {
			b.WriteString(t.Data)
		}
		n.Children = append(n.Children, elem("DiagnosticTest", charNode("Text", b.String())))
	}

	if text := compassText(m); text != "" {
		n.Children = append(n.Children, elem("CompassCalibration", charNode("Text", text)))
	}

	for _, t := range m.MBTests {
		n.Children = append(n.Children, movingBedTestNode(t))
	}

	n.Children = append(n.Children, temperatureCheckNode(m))
	return n
}

func movingBedSummary(m *measurement.Measurement) (testType, result string) {
	if len(m.MBTests) == 0 {
		return "None", "Unknown"
	}
	testType = m.MBTests[len(m.MBTests)-1].Type
	result = "Unknown"
	for _, t := range m.MBTests {
		if !t.Selected {
			continue
		}
		testType = t.Type
		if t.MovingBed == "Yes" {
			return testType, "Yes"
		}
		if t.MovingBed == "No" {
			result = "No"
		}
	}
	return testType, result
}

// compassText concatenates the calibration and evaluation transcripts.
// SonTek records carry binary noise before the CAL_TIME marker; only
// the text from the marker on is kept.
func compassText(m *measurement.Measurement) string {
	sontek := len(m.Transects) > 0 && m.Transects[0].ADCP.Manufacturer == "SonTek"
	var b strings.Builder
	appendRecord := func(p qa.PreMeasurement) {
		data := p.Data
		if sontek {
			if idx := strings.Index(data, "CAL_TIME"); idx != -1 {
				data = data[idx:]
			}
		}
		b.WriteString(data)
	}
	for _, p := range m.CompassCals {
		appendRecord(p)
	}
	for _, p := range m.CompassEvals {
		appendRecord(p)
	}
	return b.String()
}

func movingBedTestNode(t *movingbed.Test) node {
	n := elem("MovingBedTest",
		charNode("Filename", t.FileName),
		charNode("TestType", t.Type),
		numUnits("Duration", 2, t.DurationSec, "sec"),
		numNode("PercentInvalidBT", 4, t.PercentInvalidBT),
	)
	if t.CompassDiffDeg != 0 {
		n.Children = append(n.Children, numUnits("HeadingDifference", 2, t.CompassDiffDeg, "deg"))
	}
	if t.FlowDirDeg != 0 {
		n.Children = append(n.Children, numUnits("MeanFlowDirection", 2, t.FlowDirDeg, "deg"))
	}
	if t.MBDirDeg != 0 {
		n.Children = append(n.Children, numUnits("MovingBedDirection", 2, t.MBDirDeg, "deg"))
	}
	n.Children = append(n.Children,
		numUnits("DistanceUpstream", 4, t.DistUpstream, "m"),
		numUnits("MeanFlowSpeed", 4, t.FlowSpeed, "mps"),
		numUnits("MovingBedSpeed", 4, t.MBSpeed, "mps"),
		numNode("PercentMovingBed", 2, t.PercentMB),
		charNode("TestQuality", t.Quality),
		charNode("MovingBedPresent", t.MovingBed),
		charNode("UseToCorrect", yesNo(t.UseToCorrect)),
		charNode("UserValid", yesNo(t.UserValid)),
	)
	if len(t.Messages) > 0 {
		n.Children = append(n.Children, charNode("Message", strings.Join(t.Messages, "; ")+"; "))
	}
	return n
}

func temperatureCheckNode(m *measurement.Measurement) node {
	n := elem("TemperatureCheck")
	if !math.IsNaN(m.TempCheck.UserC) && m.TempCheck.HasCheck {
		n.Children = append(n.Children, numUnits("VerificationTemperature", 2, m.TempCheck.UserC, "degC"))
	}
	if !math.IsNaN(m.TempCheck.AdcpC) && m.TempCheck.HasCheck {
		n.Children = append(n.Children, numUnits("InstrumentTemperature", 2, m.TempCheck.AdcpC, "degC"))
	}

	var all []float64
	for _, t := range m.Transects {
		if s := t.Sensors.TemperatureC.SelectedSeries(); s != nil {
			all = append(all, s.Data...)
		}
	}
	n.Children = append(n.Children, numUnits("TemperatureChange", 2, stats.Max(all)-stats.Min(all), "degC"))
	return n
}

func instrumentNode(m *measurement.Measurement) node {
	adcp := m.Transects[0].ADCP
	n := elem("Instrument",
		charNode("Manufacturer", adcp.Manufacturer),
		charNode("Model", adcp.Model),
		charNode("SerialNumber", adcp.SerialNum),
		charNode("FirmwareVersion", adcp.Firmware),
		charUnits("Frequency", fixed(0, adcp.FrequencyKHz), "kHz"),
		numUnits("BeamAngle", 1, adcp.BeamAngleDeg, "deg"),
		numUnits("BlankingDistance", 4, blankingDistance(m), "m"),
	)
	if len(adcp.ConfigCommands) > 0 {
		n.Children = append(n.Children, charNode("InstrumentConfiguration", strings.Join(adcp.ConfigCommands, "  ")))
	}
	return n
}

// blankingDistance reports the mean blanking distance unless the
// excluded distance is larger.
func blankingDistance(m *measurement.Measurement) float64 {
	var blanks []float64
	for _, t := range m.Transects {
		blanks = append(blanks, t.Water.BlankingDistM)
	}
	blank := stats.Mean(blanks)
	if excl := m.Transects[0].Water.ExcludedDistM; excl > blank || math.IsNaN(blank) {
		return excl
	}
	return blank
}

func processingNode(m *measurement.Measurement, version string) node {
	t0 := m.Transects[0]
	return elem("Processing",
		charNode("SoftwareVersion", version),
		charNode("Type", m.Processing),
		charNode("AreaComputationMethod", "Parallel"),
		navigationNode(t0),
		depthNode(m),
		waterTrackNode(&t0.Water),
		edgeSummaryNode(m),
		elem("Extrapolation",
			charNode("TopMethod", t0.Extrap.TopMethod),
			charNode("BottomMethod", t0.Extrap.BotMethod),
			numNode("Exponent", 4, t0.Extrap.Exponent),
		),
		sensorSummaryNode(m),
	)
}

func navigationNode(t *transect.Transect) node {
	n := elem("Navigation",
		charNode("Reference", string(t.Boat.Selected)),
		charNode("CompositeTrack", onOff(t.Boat.Composite)),
		numUnits("MagneticVariation", 2, t.Sensors.Heading.Internal.MagVarDeg, "deg"),
	)
	nav := t.Boat.SelectedVelocity()
	if nav == nil {
		return n
	}
	n.Children = append(n.Children,
		charNode("BeamFilter", beamFilterText(nav.BeamFilter)),
		charUnits("ErrorVelocityFilter", filterText(nav.DiffFilter, nav.DiffThreshold), "mps"),
		charUnits("VerticalVelocityFilter", filterText(nav.VertFilter, nav.VertThreshold), "mps"),
		charNode("OtherFilter", onOff(nav.SmoothFilter)),
	)

	if t.Boat.Selected != transect.NavBottomTrack {
		n.Children = append(n.Children,
			charNode("GPSDifferentialQualityFilter", strconv.Itoa(nav.GPSQualFilter)),
			charUnits("GPSAltitudeFilter", filterText(nav.AltFilter, nav.AltThreshold), "m"),
			charNode("HDOPChangeFilter", filterText(nav.HDOPFilter, nav.HDOPChange)),
			charNode("HDOPThresholdFilter", filterText(nav.HDOPFilter, nav.HDOPMax)),
		)
	}
	n.Children = append(n.Children, charNode("InterpolationType", string(nav.Interp)))
	return n
}

func beamFilterText(beams int) string {
	if beams < 0 {
		return "Auto"
	}
	return strconv.Itoa(beams)
}

// filterText renders a filter mode, substituting the threshold when the
// mode is manual.
func filterText(mode transect.FilterMode, threshold float64) string {
	if mode == transect.FilterManual {
		return fixed(4, threshold)
	}
	return string(mode)
}

func depthNode(m *measurement.Measurement) node {
	ds := &m.Transects[0].Depths
	dd := ds.SelectedDepth()

	var drafts []float64
	for _, t := range m.CheckedTransects() {
		if d := t.Depths.SelectedDepth(); d != nil {
			drafts = append(drafts, d.DraftM)
		}
	}
	consistent := "Yes"
	for _, d := range drafts {
		if d != drafts[0] {
			consistent = "No"
			break
		}
	}

	n := elem("Depth",
		charNode("Reference", string(ds.Selected)),
		charNode("CompositeDepth", onOff(ds.Composite)),
	)
	if dd != nil {
		n.Children = append(n.Children,
			numUnits("ADCPDepth", 4, dd.DraftM, "m"),
			node{XMLName: xml.Name{Local: "ADCPDepthConsistent"}, Type: "boolean", Text: consistent},
			charNode("FilterType", dd.FilterType),
			charNode("InterpolationType", string(dd.InterpType)),
			charNode("AveragingMethod", dd.AvgMethod),
			charNode("ValidDataMethod", dd.ValidMethod),
		)
	}
	return n
}

func waterTrackNode(w *transect.WaterData) node {
	return elem("WaterTrack",
		numUnits("ExcludedDistance", 4, w.ExcludedDistM, "m"),
		charNode("BeamFilter", beamFilterText(w.BeamFilter)),
		charUnits("ErrorVelocityFilter", filterText(w.DiffFilter, w.DiffThreshold), "mps"),
		charUnits("VerticalVelocityFilter", filterText(w.VertFilter, w.VertThreshold), "mps"),
		charNode("OtherFilter", onOff(w.SmoothFilter)),
		charNode("SNRFilter", string(w.SNRFilter)),
		charNode("CellInterpolation", string(w.InterpCells)),
		charNode("EnsembleInterpolation", string(w.InterpEns)),
	)
}

// edgeSummaryNode reports the edge configuration over the checked
// transects, rendering "Varies" when they disagree and "N/A" for
// coefficients without meaning.
func edgeSummaryNode(m *measurement.Measurement) node {
	checked := m.CheckedTransects()
	t0 := m.Transects[0]

	side := func(pick func(*transect.Transect) transect.Edge) (typeText, coefText string) {
		var types []transect.EdgeType
		var coefs []float64
		for _, t := range checked {
			e := pick(t)
			types = append(types, e.Type)
			coefs = append(coefs, e.DischargeCoef())
		}
		if len(types) == 0 {
			return "None", "N/A"
		}
		typeText = string(types[0])
		for _, ty := range types[1:] {
			if ty != types[0] {
				typeText = "Varies"
				break
			}
		}
		if typeText == "Varies" || typeText == string(transect.EdgeUserQ) {
			return typeText, "N/A"
		}
		coefText = fixed(4, coefs[0])
		for _, c := range coefs[1:] {
			if c != coefs[0] {
				coefText = "Varies"
				break
			}
		}
		return typeText, coefText
	}

	leftType, leftCoef := side(func(t *transect.Transect) transect.Edge { return t.Edges.Left })
	rightType, rightCoef := side(func(t *transect.Transect) transect.Edge { return t.Edges.Right })

	return elem("Edge",
		charNode("RectangularEdgeMethod", t0.Edges.RecEdgeMethod),
		charNode("VelocityMethod", t0.Edges.VelMethod),
		charNode("LeftType", leftType),
		charNode("LeftEdgeCoefficient", leftCoef),
		charNode("RightType", rightType),
		charNode("RightEdgeCoefficient", rightCoef),
	)
}

// sensorSummaryNode reports the sensor source selections, rendering
// "Varies" when the checked transects disagree.
func sensorSummaryNode(m *measurement.Measurement) node {
	checked := m.CheckedTransects()

	varies := func(pick func(*transect.Transect) string) string {
		var vals []string
		for _, t := range checked {
			vals = append(vals, pick(t))
		}
		if len(vals) == 0 {
			return "None"
		}
		for _, v := range vals[1:] {
			if v != vals[0] {
				return "Varies"
			}
		}
		return vals[0]
	}

	tempSource := varies(func(t *transect.Transect) string {
		return string(t.Sensors.TemperatureC.Selected)
	})

	var sal []float64
	for _, t := range checked {
		if s := t.Sensors.SalinityPPT.SelectedSeries(); s != nil {
			sal = append(sal, s.Data...)
		}
	}
	salText := "Varies"
	if uniq := uniqueFinite(sal); len(uniq) == 1 {
		salText = fixed(1, uniq[0])
	} else if len(uniq) == 0 {
		salText = fixed(1, 0)
	}

	sosSource := varies(func(t *transect.Transect) string {
		return string(t.Sensors.SpeedOfSound.Selected)
	})
	if sosSource == string(transect.SensorInternal) {
		sosSource = "ADCP"
	}

	return elem("Sensor",
		charNode("TemperatureSource", tempSource),
		charUnits("Salinity", salText, "ppt"),
		charUnits("SpeedofSound", sosSource, "mps"),
	)
}

func uniqueFinite(data []float64) []float64 {
	seen := make(map[float64]struct{})
	var out []float64
	for _, v := range data {
		if math.IsNaN(v) {
			continue
		}
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

func transectNode(m *measurement.Measurement, i int, props measurement.TransectProperties) node {
	t := m.Transects[i]
	d := m.Discharge[i]

	n := elem("Transect",
		charNode("Filename", t.FileName),
		charNode("StartDateTime", t.StartTime.Format(timeLayout)),
		charNode("EndDateTime", t.EndTime.Format(timeLayout)),
		elem("Discharge",
			numUnits("Top", 3, d.Top, "cms"),
			numUnits("Middle", 3, d.Middle, "cms"),
			numUnits("Bottom", 3, d.Bottom, "cms"),
			numUnits("Left", 3, d.Left, "cms"),
			numUnits("Right", 3, d.Right, "cms"),
			numUnits("Total", 3, d.Total, "cms"),
			numNode("MovingBedPercentCorrection", 2, percentCorrection(d.Total, d.TotalUncorrected)),
		),
		elem("Edge",
			charNode("StartEdge", t.StartEdge),
			charNode("RectangularEdgeMethod", t.Edges.RecEdgeMethod),
			charNode("VelocityMethod", t.Edges.VelMethod),
			charNode("LeftType", string(t.Edges.Left.Type)),
			numNode("LeftEdgeCoefficient", 4, t.Edges.Left.DischargeCoef()),
			numUnits("LeftDistance", 4, t.Edges.Left.DistanceM, "m"),
			numNode("LeftNumberEnsembles", 0, float64(t.Edges.Left.NumEnsembles)),
			charNode("RightType", string(t.Edges.Right.Type)),
			numNode("RightEdgeCoefficient", 4, t.Edges.Right.DischargeCoef()),
			numUnits("RightDistance", 4, t.Edges.Right.DistanceM, "m"),
			numNode("RightNumberEnsembles", 0, float64(t.Edges.Right.NumEnsembles)),
		),
		transectSensorNode(t),
		transectOtherNode(t, props),
	)
	return n
}

func percentCorrection(total, uncorrected float64) float64 {
	if uncorrected == 0 {
		return 0
	}
	return (total/uncorrected - 1) * 100
}

func transectSensorNode(t *transect.Transect) node {
	n := elem("Sensor",
		charNode("TemperatureSource", string(t.Sensors.TemperatureC.Selected)),
	)
	if s := t.Sensors.TemperatureC.SelectedSeries(); s != nil {
		n.Children = append(n.Children, numUnits("MeanTemperature", 2, stats.Mean(s.Data), "degC"))
	}
	if s := t.Sensors.SalinityPPT.SelectedSeries(); s != nil {
		n.Children = append(n.Children, numUnits("MeanSalinity", 0, stats.Mean(s.Data), "ppt"))
	}
	if s := t.Sensors.SpeedOfSound.SelectedSeries(); s != nil {
		n.Children = append(n.Children,
			charNode("SpeedofSoundSource", s.Source),
			numUnits("SpeedofSound", 4, stats.Mean(s.Data), "mps"),
		)
	}
	return n
}

func transectOtherNode(t *transect.Transect, props measurement.TransectProperties) node {
	invalidBins, invalidEns := percentInvalid(&t.Water)

	n := elem("Other",
		numUnits("Duration", 2, t.DurationSec(), "sec"),
		numUnits("Width", 4, props.WidthM, "m"),
		numUnits("Area", 4, props.AreaM2, "sqm"),
		numUnits("MeanBoatSpeed", 4, props.AvgBoatSpeed, "mps"),
		numUnits("QoverA", 4, props.AvgWaterSpeed, "mps"),
		numUnits("CourseMadeGood", 2, props.AvgBoatCourse, "deg"),
		numUnits("MeanFlowDirection", 2, props.AvgWaterDir, "deg"),
		intNode("NumberofEnsembles", t.NumEnsembles()),
		numNode("PercentInvalidBins", 2, invalidBins),
		numNode("PercentInvalidEns", 2, invalidEns),
	)
	if s := t.Sensors.PitchDeg.SelectedSeries(); s != nil {
		n.Children = append(n.Children,
			numUnits("MeanPitch", 2, stats.Mean(s.Data), "deg"),
			numUnits("PitchStdDev", 2, stats.Std(s.Data), "deg"),
		)
	}
	if s := t.Sensors.RollDeg.SelectedSeries(); s != nil {
		n.Children = append(n.Children,
			numUnits("MeanRoll", 2, stats.Mean(s.Data), "deg"),
			numUnits("RollStdDev", 2, stats.Std(s.Data), "deg"),
		)
	}
	if dd := t.Depths.SelectedDepth(); dd != nil {
		n.Children = append(n.Children, numUnits("ADCPDepth", 4, dd.DraftM, "m"))
	}
	return n
}

// percentInvalid reports the share of measurable cells and ensembles
// the filters rejected, before interpolation.
func percentInvalid(w *transect.WaterData) (bins, ens float64) {
	var validCells, totalCells int
	ne := w.NumEnsembles()
	ensValid := make([]bool, ne)
	for c := 0; c < w.NumCells(); c++ {
		for e := 0; e < ne; e++ {
			if w.CellsAboveSL != nil && !w.CellsAboveSL[c][e] {
				continue
			}
			totalCells++
			if w.Valid[c][e] {
				validCells++
				ensValid[e] = true
			}
		}
	}
	if totalCells > 0 {
		bins = (1 - float64(validCells)/float64(totalCells)) * 100
	}
	var validEns int
	for _, v := range ensValid {
		if v {
			validEns++
		}
	}
	if ne > 0 {
		ens = (1 - float64(validEns)/float64(ne)) * 100
	}
	return bins, ens
}

func summaryNode(m *measurement.Measurement, agg measurement.TransectProperties) node {
	mean := m.MeanDischarges()
	u := m.Uncertainty

	q := elem("Discharge",
		numUnits("Top", 3, mean.Top, "cms"),
		numUnits("Middle", 3, mean.Middle, "cms"),
		numUnits("Bottom", 3, mean.Bottom, "cms"),
		numUnits("Left", 3, mean.Left, "cms"),
		numUnits("Right", 3, mean.Right, "cms"),
		numUnits("Total", 3, mean.Total, "cms"),
		numNode("MovingBedPercentCorrection", 2, percentCorrection(mean.Total, mean.Uncorrected)),
	)

	su := elem("Uncertainty")
	if u != nil {
		su.Children = append(su.Children,
			numNode("COV", 1, u.COV),
			numNode("AutoRandom", 1, u.Random.Auto),
			numNode("AutoInvalidData", 1, u.InvalidData.Auto),
			numNode("AutoEdges", 1, u.Edges.Auto),
			numNode("AutoExtrapolation", 1, u.Extrapolation.Auto),
			numNode("AutoMovingBed", 1, u.MovingBed.Auto),
			numNode("AutoSystematic", 1, u.Systematic.Auto),
			numNode("AutoTotal", 1, u.Total),
		)
		for _, c := range []struct {
			name string
			user *float64
		}{
			{"UserRandom", u.Random.User},
			{"UserInvalidData", u.InvalidData.User},
			{"UserEdge", u.Edges.User},
			{"UserExtrapolation", u.Extrapolation.User},
			{"UserMovingBed", u.MovingBed.User},
			{"UserSystematic", u.Systematic.User},
		} {
			if c.user != nil {
				su.Children = append(su.Children, numNode(c.name, 1, *c.user))
			}
		}
		su.Children = append(su.Children,
			numNode("Random", 1, u.Random.Value()),
			numNode("InvalidData", 1, u.InvalidData.Value()),
			numNode("Edge", 1, u.Edges.Value()),
			numNode("Extrapolation", 1, u.Extrapolation.Value()),
			numNode("MovingBed", 1, u.MovingBed.Value()),
			numNode("Systematic", 1, u.Systematic.Value()),
			numNode("Total", 1, u.TotalUser),
		)
	}

	other := elem("Other",
		numUnits("MeanWidth", 4, agg.WidthM, "m"),
		numNode("WidthCOV", 4, agg.WidthCOV),
		numUnits("MeanArea", 4, agg.AreaM2, "sqm"),
		numNode("AreaCOV", 2, agg.AreaCOV),
		numUnits("MeanBoatSpeed", 4, agg.AvgBoatSpeed, "mps"),
		numUnits("MeanQoverA", 4, agg.AvgWaterSpeed, "mps"),
		numUnits("MeanCourseMadeGood", 2, agg.AvgBoatCourse, "deg"),
		numUnits("MeanFlowDirection", 2, agg.AvgWaterDir, "deg"),
		numUnits("MeanDepth", 4, agg.AvgDepthM, "m"),
		numUnits("MaximumDepth", 4, agg.MaxDepthM, "m"),
		numUnits("MaximumWaterSpeed", 4, agg.MaxWaterSpeed, "mps"),
		intNode("NumberofTransects", len(m.CheckedIndices())),
		numUnits("Duration", 2, m.Duration(), "sec"),
		numNode("LeftQPer", 2, percentOf(mean.Left, mean.Total)),
		numNode("RightQPer", 2, percentOf(mean.Right, mean.Total)),
		numNode("InvalidCellsQPer", 2, percentOf(mean.IntCells, mean.Total)),
		numNode("InvalidEnsQPer", 2, percentOf(mean.IntEnsembles, mean.Total)),
		charNode("UserRating", userRating(m.UserRating)),
	)
	if m.ExtrapFit != nil && m.ExtrapFit.Sensitivity != nil {
		other.Children = append(other.Children,
			numNode("DischargePPDefault", 2, m.ExtrapFit.Sensitivity.QPPMean))
	}
	if len(m.Comments) > 0 {
		var b strings.Builder
		for _, c := range m.Comments {
			b.WriteString(strings.ReplaceAll(c, "\n", " |||"))
			b.WriteString(" |||")
		}
		other.Children = append(other.Children, charNode("UserComment", b.String()))
	}

	return elem("ChannelSummary", q, su, other)
}

func percentOf(part, total float64) float64 {
	if total == 0 {
		return 0
	}
	return 100 * part / total
}

func userRating(r string) string {
	if r == "" {
		return "Not Rated"
	}
	return r
}
