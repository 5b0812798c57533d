package transect

import (
	"math"

	"github.com/openhydro/river-discharge/internal/stats"
)

// Depth filter types.
const (
	DepthFilterNone   = "None"
	DepthFilterSmooth = "Smooth"
	DepthFilterTRDI   = "TRDI"
)

// Depth averaging methods.
const (
	DepthAvgSimple = "Simple"
	DepthAvgIDW    = "IDW"
)

// Depth validity methods.
const (
	DepthValidMultiBeam = "MultiBeam"
	DepthValidTRDI      = "TRDI"
)

const trdiDepthChange = 0.75 // TRDI screening: max relative change between ensembles

// DepthData is one depth source's per-beam estimates and processing
// state. Depths are measured below the transducer; the draft is added
// during processing.
type DepthData struct {
	Source     DepthSource
	BeamDepths [][]float64 // beam x ensemble
	DraftM     float64

	AvgMethod   string
	FilterType  string
	ValidMethod string
	InterpType  InterpMethod

	Valid          []bool
	DepthProcessed []float64 // depth below surface, gaps filled
}

// NumEnsembles reports the source's ensemble count.
func (d *DepthData) NumEnsembles() int {
	if len(d.BeamDepths) == 0 {
		return 0
	}
	return len(d.BeamDepths[0])
}

// process recomputes the averaged, filtered and interpolated depth
// series from the raw beam depths.
func (d *DepthData) process(ensTime []float64) {
	ne := d.NumEnsembles()
	avg := make([]float64, ne)
	for e := 0; e < ne; e++ {
		avg[e] = d.averageBeams(e)
	}

	d.Valid = make([]bool, ne)
	for e := 0; e < ne; e++ {
		d.Valid[e] = !math.IsNaN(avg[e]) && avg[e] > 0
	}

	switch d.FilterType {
	case DepthFilterSmooth:
		smoothed := movingMean(avg, smoothWindow)
		resid := make([]float64, ne)
		for e := 0; e < ne; e++ {
			resid[e] = avg[e] - smoothed[e]
		}
		tol := smoothScale * stats.Std(resid)
		if !math.IsNaN(tol) && tol > 0 {
			for e := 0; e < ne; e++ {
				if !math.IsNaN(resid[e]) && math.Abs(resid[e]) > tol {
					d.Valid[e] = false
				}
			}
		}
	case DepthFilterTRDI:
		for e := 1; e < ne; e++ {
			if !d.Valid[e] || !d.Valid[e-1] {
				continue
			}
			if math.Abs(avg[e]-avg[e-1]) > trdiDepthChange*avg[e-1] {
				d.Valid[e] = false
			}
		}
	}

	if d.ValidMethod == DepthValidMultiBeam && len(d.BeamDepths) > 1 {
		// Require at least two reporting beams.
		for e := 0; e < ne; e++ {
			var reporting int
			for b := range d.BeamDepths {
				if v := d.BeamDepths[b][e]; !math.IsNaN(v) && v > 0 {
					reporting++
				}
			}
			if reporting < 2 {
				d.Valid[e] = false
			}
		}
	}

	d.DepthProcessed = make([]float64, ne)
	for e := 0; e < ne; e++ {
		if d.Valid[e] {
			d.DepthProcessed[e] = avg[e] + d.DraftM
		} else {
			d.DepthProcessed[e] = math.NaN()
		}
	}

	switch d.InterpType {
	case InterpHoldLast:
		holdLast(d.DepthProcessed, 0)
	case InterpLinear:
		linearFill(d.DepthProcessed, ensTime)
	}
}

// averageBeams combines one ensemble's beam depths using the configured
// averaging method.
func (d *DepthData) averageBeams(e int) float64 {
	vals := make([]float64, 0, len(d.BeamDepths))
	for b := range d.BeamDepths {
		if v := d.BeamDepths[b][e]; !math.IsNaN(v) && v > 0 {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return math.NaN()
	}
	if d.AvgMethod != DepthAvgIDW || len(vals) < 3 {
		return stats.Mean(vals)
	}
	// Inverse-distance weighting: beams near the ensemble mean carry
	// more weight than outliers.
	mean := stats.Mean(vals)
	var num, den float64
	for _, v := range vals {
		w := 1 / (math.Abs(v-mean) + 1e-3)
		num += w * v
		den += w
	}
	return num / den
}

// DepthSet groups the recorded depth sources, the active reference and
// the compositing choice.
type DepthSet struct {
	BT *DepthData // 4-beam bottom-track depths
	VB *DepthData // vertical beam
	DS *DepthData // external depth sounder

	Selected  DepthSource
	Composite bool

	ensTime   []float64
	processed []float64 // active series after selection and compositing
}

// Ref returns the depth data for a source, nil when absent.
func (ds *DepthSet) Ref(src DepthSource) *DepthData {
	switch src {
	case DepthBottomTrack:
		return ds.BT
	case DepthVerticalBeam:
		return ds.VB
	case DepthSounder:
		return ds.DS
	}
	return nil
}

// SelectedDepth returns the active depth source's data, falling back to
// bottom track when the selection is absent.
func (ds *DepthSet) SelectedDepth() *DepthData {
	if d := ds.Ref(ds.Selected); d != nil {
		return d
	}
	return ds.BT
}

// All lists the recorded depth sources.
func (ds *DepthSet) All() []*DepthData {
	var out []*DepthData
	for _, d := range []*DepthData{ds.BT, ds.VB, ds.DS} {
		if d != nil {
			out = append(out, d)
		}
	}
	return out
}

// HasSecondary reports whether a vertical-beam or sounder source
// exists alongside bottom track.
func (ds *DepthSet) HasSecondary() bool {
	return ds.VB != nil || ds.DS != nil
}

// SetEnsTime stores the cumulative ensemble time base used by
// time-weighted interpolation.
func (ds *DepthSet) SetEnsTime(cumTime []float64) {
	ds.ensTime = cumTime
}

// SetReference switches the active depth source. Requests for an absent
// source are ignored.
func (ds *DepthSet) SetReference(src DepthSource) {
	if ds.Ref(src) != nil {
		ds.Selected = src
	}
}

// Configure applies a processing configuration to every source.
// Filter, averaging and validity settings are shared across sources;
// only the reference selection distinguishes them.
func (ds *DepthSet) Configure(filterType, avgMethod, validMethod string, interp InterpMethod, composite bool) {
	for _, d := range ds.All() {
		d.FilterType = filterType
		d.AvgMethod = avgMethod
		d.ValidMethod = validMethod
		d.InterpType = interp
	}
	ds.Composite = composite
}

// Process recomputes every source and assembles the active series,
// compositing across the remaining sources when enabled.
func (ds *DepthSet) Process() {
	for _, d := range ds.All() {
		d.process(ds.ensTime)
	}
	sel := ds.SelectedDepth()
	if sel == nil {
		return
	}
	ne := sel.NumEnsembles()
	ds.processed = make([]float64, ne)
	copy(ds.processed, sel.DepthProcessed)

	if !ds.Composite {
		return
	}
	for _, alt := range ds.All() {
		if alt == sel {
			continue
		}
		for e := 0; e < ne && e < len(alt.DepthProcessed); e++ {
			if math.IsNaN(ds.processed[e]) && !math.IsNaN(alt.DepthProcessed[e]) {
				ds.processed[e] = alt.DepthProcessed[e]
			}
		}
	}
}

// Processed returns the active depth series (below surface).
func (ds *DepthSet) Processed() []float64 {
	return ds.processed
}
