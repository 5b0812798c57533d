package measurement

import (
	"math"

	"github.com/openhydro/river-discharge/internal/stats"
	"github.com/openhydro/river-discharge/internal/transect"
)

// TransectProperties are the consistency characteristics of one
// transect (or, for the aggregate, of the measurement).
type TransectProperties struct {
	WidthM        float64
	WidthCOV      float64 // percent, aggregate only
	AreaM2        float64
	AreaCOV       float64 // percent, aggregate only
	AvgBoatSpeed  float64
	AvgBoatCourse float64 // degrees; aggregate carries the last checked transect's course
	AvgWaterSpeed float64
	AvgWaterDir   float64 // degrees azimuth
	AvgDepthM     float64
	MaxDepthM     float64
	MaxWaterSpeed float64 // 99th percentile
}

// Properties holds per-transect characteristics plus the aggregate
// over checked transects.
type Properties struct {
	Transects []TransectProperties
	Aggregate TransectProperties
}

// Properties computes width, area, speed and direction statistics used
// to judge transect consistency. Discharge must be current.
func (m *Measurement) Properties() Properties {
	p := Properties{
		Transects: make([]TransectProperties, len(m.Transects)),
		Aggregate: nanProperties(),
	}
	for i, t := range m.Transects {
		var d *dischargeRef
		if i < len(m.Discharge) && m.Discharge[i] != nil {
			d = &dischargeRef{total: m.Discharge[i].Total, cells: m.Discharge[i].MiddleCells}
		}
		p.Transects[i] = m.transectProperties(t, d)
	}

	idx := m.CheckedIndices()
	if len(idx) == 0 {
		return p
	}
	var widths, areas, boatSpeeds, waterSpeeds, depths, maxDepths, maxSpeeds, dirs []float64
	for _, i := range idx {
		tp := p.Transects[i]
		widths = append(widths, tp.WidthM)
		areas = append(areas, tp.AreaM2)
		boatSpeeds = append(boatSpeeds, tp.AvgBoatSpeed)
		waterSpeeds = append(waterSpeeds, tp.AvgWaterSpeed)
		depths = append(depths, tp.AvgDepthM)
		maxDepths = append(maxDepths, tp.MaxDepthM)
		maxSpeeds = append(maxSpeeds, tp.MaxWaterSpeed)
		dirs = append(dirs, tp.AvgWaterDir)
	}
	agg := &p.Aggregate
	agg.WidthM = stats.Mean(widths)
	agg.WidthCOV = stats.CV(widths)
	agg.AreaM2 = stats.Mean(areas)
	agg.AreaCOV = stats.CV(areas)
	agg.AvgBoatSpeed = stats.Mean(boatSpeeds)
	agg.AvgWaterSpeed = stats.Mean(waterSpeeds)
	agg.AvgDepthM = stats.Mean(depths)
	agg.MaxDepthM = stats.Max(maxDepths)
	agg.MaxWaterSpeed = stats.Max(maxSpeeds)
	agg.AvgWaterDir = stats.VectorMeanDeg(dirs)
	agg.AvgBoatCourse = p.Transects[idx[len(idx)-1]].AvgBoatCourse
	return p
}

type dischargeRef struct {
	total float64
	cells [][]float64
}

func nanProperties() TransectProperties {
	nan := math.NaN()
	return TransectProperties{
		WidthM: nan, WidthCOV: nan, AreaM2: nan, AreaCOV: nan,
		AvgBoatSpeed: nan, AvgBoatCourse: nan, AvgWaterSpeed: nan,
		AvgWaterDir: nan, AvgDepthM: nan, MaxDepthM: nan, MaxWaterSpeed: nan,
	}
}

func (m *Measurement) transectProperties(t *transect.Transect, d *dischargeRef) TransectProperties {
	tp := nanProperties()

	x, y := t.BoatTrack()
	n := len(x)
	if n == 0 || (x[n-1] == 0 && y[n-1] == 0) {
		return tp
	}

	// Course and straight-line distance made good.
	dmg := math.Hypot(x[n-1], y[n-1])
	tp.AvgBoatCourse = stats.AzimuthDeg(x[n-1], y[n-1])

	var speeds []float64
	for i, u := range t.Boat.UProcessed {
		if !math.IsNaN(u) && !math.IsNaN(t.Boat.VProcessed[i]) {
			speeds = append(speeds, math.Hypot(u, t.Boat.VProcessed[i]))
		}
	}
	tp.AvgBoatSpeed = stats.Mean(speeds)

	tp.WidthM = dmg + t.Edges.Left.DistanceM + t.Edges.Right.DistanceM

	// Station coordinate: track projected onto the start-to-end line.
	ux, uy := x[n-1]/dmg, y[n-1]/dmg
	station := make([]float64, n)
	for i := range station {
		station[i] = math.Abs(x[i]*ux + y[i]*uy)
	}

	depth := t.Depths.Processed()
	area := trapezoidArea(station, depth)
	leftDepth, rightDepth := m.edgeDepths(t, depth)
	area += t.Edges.Left.AreaCoef() * t.Edges.Left.DistanceM * leftDepth
	area += t.Edges.Right.AreaCoef() * t.Edges.Right.DistanceM * rightDepth
	tp.AreaM2 = area

	if d != nil && area > 0 {
		tp.AvgWaterSpeed = d.total / area
	}

	tp.AvgDepthM = tp.AreaM2 / tp.WidthM
	tp.MaxDepthM = stats.Max(depth)

	// Discharge-weighted flow direction and speed distribution.
	w := &t.Water
	var wu, wv, wsum float64
	var cellSpeeds []float64
	for c := range w.UProcessed {
		for e := range w.UProcessed[c] {
			u, v := w.UProcessed[c][e], w.VProcessed[c][e]
			if math.IsNaN(u) || math.IsNaN(v) {
				continue
			}
			cellSpeeds = append(cellSpeeds, math.Hypot(u, v))
			if d != nil && c < len(d.cells) && e < len(d.cells[c]) {
				weight := math.Abs(d.cells[c][e])
				wu += u * weight
				wv += v * weight
				wsum += weight
			}
		}
	}
	if wsum > 0 {
		tp.AvgWaterDir = stats.AzimuthDeg(wu/wsum, wv/wsum)
	}
	tp.MaxWaterSpeed = stats.Percentile(cellSpeeds, 99)
	return tp
}

// edgeDepths averages processed depth over the ensembles nearest each
// bank, honoring the start edge.
func (m *Measurement) edgeDepths(t *transect.Transect, depth []float64) (left, right float64) {
	meanOver := func(atStart bool, count int) float64 {
		if count <= 0 {
			count = 10
		}
		if count > len(depth) {
			count = len(depth)
		}
		var vals []float64
		if atStart {
			vals = depth[:count]
		} else {
			vals = depth[len(depth)-count:]
		}
		return stats.Mean(vals)
	}
	leftAtStart := t.StartEdge != "Right"
	left = meanOver(leftAtStart, t.Edges.Left.NumEnsembles)
	right = meanOver(!leftAtStart, t.Edges.Right.NumEnsembles)
	return left, right
}

// trapezoidArea integrates depth over station, skipping missing
// depths.
func trapezoidArea(station, depth []float64) float64 {
	var area float64
	prev := -1
	for i := 0; i < len(station) && i < len(depth); i++ {
		if math.IsNaN(depth[i]) {
			continue
		}
		if prev >= 0 {
			area += 0.5 * (depth[i] + depth[prev]) * math.Abs(station[i]-station[prev])
		}
		prev = i
	}
	return math.Abs(area)
}
