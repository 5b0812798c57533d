package transect

import (
	"math"

	"github.com/openhydro/river-discharge/internal/stats"
)

const snrAutoScale = 3.0 // SNR auto filter: tolerated drop below median

// WaterData is the water-velocity cell grid of a transect. All grids
// are indexed [cell][ensemble]. Raw velocities are relative to the
// instrument; Process re-references them to the ground using the
// active boat track.
type WaterData struct {
	RawU, RawV [][]float64 // instrument frame unless EarthFrame
	W          [][]float64 // vertical velocity
	ErrVel     [][]float64 // difference (error) velocity
	SNR        [][]float64 // signal-to-noise per cell
	NumBeams   [][]int     // beams used per cell, nil when not reported

	CellDepth    [][]float64 // depth of cell center below surface
	CellSize     [][]float64 // vertical cell extent
	CellsAboveSL [][]bool    // cells above the side-lobe cutoff

	BlankingDistM float64
	ExcludedDistM float64
	EarthFrame    bool

	BeamFilter    int // -1 auto, otherwise minimum beam count
	DiffFilter    FilterMode
	DiffThreshold float64
	VertFilter    FilterMode
	VertThreshold float64
	SmoothFilter  bool
	SNRFilter     FilterMode
	DepthFilter   bool // reject cells in ensembles without valid depth

	InterpEns   InterpMethod
	InterpCells InterpMethod

	NavRef NavSource // reference active when last processed

	U, V [][]float64 // earth frame, relative to instrument

	Valid            [][]bool // post-filter validity, before interpolation
	UProcessed       [][]float64
	VProcessed       [][]float64 // ground-referenced water velocity
	CellInterpolated [][]bool    // cells filled by cell interpolation
	EnsInterpolated  []bool      // ensembles filled by ensemble interpolation
}

// WaterFilterOptions carries one filter application's choices.
type WaterFilterOptions struct {
	BeamFilter    int
	Diff          FilterMode
	DiffThreshold float64
	Vert          FilterMode
	VertThreshold float64
	Smooth        bool
	SNR           FilterMode
	Depth         bool
	ExcludedDistM float64
}

// NumCells reports the grid's cell-row count.
func (w *WaterData) NumCells() int { return len(w.RawU) }

// NumEnsembles reports the grid's ensemble-column count.
func (w *WaterData) NumEnsembles() int {
	if len(w.RawU) == 0 {
		return 0
	}
	return len(w.RawU[0])
}

// SetFilters stores the filter configuration. Filters take effect on
// the next Process call.
func (w *WaterData) SetFilters(o WaterFilterOptions) {
	w.BeamFilter = o.BeamFilter
	w.DiffFilter = o.Diff
	w.DiffThreshold = o.DiffThreshold
	w.VertFilter = o.Vert
	w.VertThreshold = o.VertThreshold
	w.SmoothFilter = o.Smooth
	w.SNRFilter = o.SNR
	w.DepthFilter = o.Depth
	if !math.IsNaN(o.ExcludedDistM) {
		w.ExcludedDistM = o.ExcludedDistM
	}
}

// SetInterpolation stores the ensemble- and cell-gap interpolation
// methods.
func (w *WaterData) SetInterpolation(ens, cells InterpMethod) {
	w.InterpEns = ens
	w.InterpCells = cells
}

func (w *WaterData) rotate(heading []float64) {
	nc, ne := w.NumCells(), w.NumEnsembles()
	if w.U == nil {
		w.U = makeGrid(nc, ne)
		w.V = makeGrid(nc, ne)
	}
	for c := 0; c < nc; c++ {
		if w.EarthFrame {
			copy(w.U[c], w.RawU[c])
			copy(w.V[c], w.RawV[c])
			continue
		}
		for e := 0; e < ne; e++ {
			h := 0.0
			if e < len(heading) && !math.IsNaN(heading[e]) {
				h = heading[e] * math.Pi / 180
			}
			w.U[c][e] = w.RawU[c][e]*math.Cos(h) + w.RawV[c][e]*math.Sin(h)
			w.V[c][e] = -w.RawU[c][e]*math.Sin(h) + w.RawV[c][e]*math.Cos(h)
		}
	}
}

// Process recomputes validity from the stored filter state, references
// the grid to the ground using the active boat track, and fills gaps
// with the configured interpolation methods. Profile-based cell
// interpolation reads the transect's extrapolation exponent, so the
// profile fit must be current before the final interpolation pass.
func (w *WaterData) Process(t *Transect) {
	nc, ne := w.NumCells(), w.NumEnsembles()
	if nc == 0 || ne == 0 {
		return
	}
	if w.U == nil {
		w.rotate(t.Sensors.Heading.Series())
	}
	w.applyFilters(t)
	w.NavRef = t.Boat.Selected

	w.UProcessed = makeGrid(nc, ne)
	w.VProcessed = makeGrid(nc, ne)
	w.CellInterpolated = makeBoolGrid(nc, ne)
	w.EnsInterpolated = make([]bool, ne)

	boatU, boatV := t.Boat.UProcessed, t.Boat.VProcessed
	for c := 0; c < nc; c++ {
		for e := 0; e < ne; e++ {
			if !w.Valid[c][e] || e >= len(boatU) || math.IsNaN(boatU[e]) {
				w.UProcessed[c][e] = math.NaN()
				w.VProcessed[c][e] = math.NaN()
				continue
			}
			w.UProcessed[c][e] = w.U[c][e] + boatU[e]
			w.VProcessed[c][e] = w.V[c][e] + boatV[e]
		}
	}

	w.interpolateEnsembles()
	w.interpolateCells(t)
}

func (w *WaterData) applyFilters(t *Transect) {
	nc, ne := w.NumCells(), w.NumEnsembles()
	w.Valid = makeBoolGrid(nc, ne)
	for c := 0; c < nc; c++ {
		for e := 0; e < ne; e++ {
			w.Valid[c][e] = !math.IsNaN(w.U[c][e]) && !math.IsNaN(w.V[c][e])
			if w.CellsAboveSL != nil && !w.CellsAboveSL[c][e] {
				w.Valid[c][e] = false
			}
		}
	}

	if w.NumBeams != nil {
		required := w.BeamFilter
		if required < 0 {
			required = 3
		}
		if required > 0 {
			for c := 0; c < nc; c++ {
				for e := 0; e < ne; e++ {
					if w.NumBeams[c][e] < required {
						w.Valid[c][e] = false
					}
				}
			}
		}
	}

	w.thresholdFilter(w.ErrVel, w.DiffFilter, w.DiffThreshold, autoDiffVelScale)
	w.thresholdFilter(w.W, w.VertFilter, w.VertThreshold, autoVertVelScale)

	if w.SNRFilter == FilterAuto && w.SNR != nil {
		flatSNR := flatten(w.SNR)
		med := stats.Median(flatSNR)
		tol := snrAutoScale * stats.Std(flatSNR)
		if !math.IsNaN(med) && !math.IsNaN(tol) {
			for c := 0; c < nc; c++ {
				for e := 0; e < ne; e++ {
					if s := w.SNR[c][e]; !math.IsNaN(s) && med-s > tol {
						w.Valid[c][e] = false
					}
				}
			}
		}
	}

	// Excluded distance below the transducer.
	if w.ExcludedDistM > 0 && w.CellDepth != nil {
		draft := t.Depths.SelectedDepth().DraftM
		for c := 0; c < nc; c++ {
			for e := 0; e < ne; e++ {
				if w.CellDepth[c][e]-draft < w.ExcludedDistM {
					w.Valid[c][e] = false
				}
			}
		}
	}

	if w.DepthFilter {
		depth := t.Depths.Processed()
		for e := 0; e < ne; e++ {
			if e >= len(depth) || math.IsNaN(depth[e]) {
				for c := 0; c < nc; c++ {
					w.Valid[c][e] = false
				}
			}
		}
	}

	if w.SmoothFilter {
		w.smoothnessFilter()
	}
}

// thresholdFilter rejects cells whose series value departs from the
// grid median by more than the threshold.
func (w *WaterData) thresholdFilter(grid [][]float64, mode FilterMode, manual, autoScale float64) {
	if mode == FilterOff || grid == nil {
		return
	}
	flat := flatten(grid)
	thr := manual
	if mode == FilterAuto {
		thr = autoScale * stats.Std(flat)
	}
	med := stats.Median(flat)
	if math.IsNaN(thr) || math.IsNaN(med) {
		return
	}
	for c := range grid {
		for e := range grid[c] {
			if v := grid[c][e]; !math.IsNaN(v) && math.Abs(v-med) > thr {
				w.Valid[c][e] = false
			}
		}
	}
}

// smoothnessFilter rejects ensembles whose depth-averaged speed departs
// from a local moving mean.
func (w *WaterData) smoothnessFilter() {
	nc, ne := w.NumCells(), w.NumEnsembles()
	speed := make([]float64, ne)
	for e := 0; e < ne; e++ {
		col := make([]float64, 0, nc)
		for c := 0; c < nc; c++ {
			if w.Valid[c][e] {
				col = append(col, math.Hypot(w.U[c][e], w.V[c][e]))
			}
		}
		if len(col) == 0 {
			speed[e] = math.NaN()
			continue
		}
		speed[e] = stats.Mean(col)
	}
	smoothed := movingMean(speed, smoothWindow)
	resid := make([]float64, ne)
	for e := 0; e < ne; e++ {
		resid[e] = speed[e] - smoothed[e]
	}
	tol := smoothScale * stats.Std(resid)
	if math.IsNaN(tol) || tol <= 0 {
		return
	}
	for e := 0; e < ne; e++ {
		if !math.IsNaN(resid[e]) && math.Abs(resid[e]) > tol {
			for c := 0; c < nc; c++ {
				w.Valid[c][e] = false
			}
		}
	}
}

// interpolateEnsembles fills ensembles with no valid cells by
// interpolating each cell row across neighbouring ensembles.
func (w *WaterData) interpolateEnsembles() {
	if w.InterpEns == InterpNone {
		return
	}
	nc, ne := w.NumCells(), w.NumEnsembles()
	missing := make([]bool, ne)
	for e := 0; e < ne; e++ {
		missing[e] = true
		for c := 0; c < nc; c++ {
			if !math.IsNaN(w.UProcessed[c][e]) {
				missing[e] = false
				break
			}
		}
	}
	for c := 0; c < nc; c++ {
		rowU := make([]float64, ne)
		rowV := make([]float64, ne)
		copy(rowU, w.UProcessed[c])
		copy(rowV, w.VProcessed[c])
		linearFill(rowU, nil)
		linearFill(rowV, nil)
		for e := 0; e < ne; e++ {
			if missing[e] && math.IsNaN(w.UProcessed[c][e]) && !math.IsNaN(rowU[e]) {
				w.UProcessed[c][e] = rowU[e]
				w.VProcessed[c][e] = rowV[e]
				w.EnsInterpolated[e] = true
			}
		}
	}
}

// interpolateCells fills remaining invalid cells inside otherwise valid
// ensembles.
func (w *WaterData) interpolateCells(t *Transect) {
	if w.InterpCells == InterpNone {
		return
	}
	nc, ne := w.NumCells(), w.NumEnsembles()
	for e := 0; e < ne; e++ {
		if w.EnsInterpolated[e] {
			continue
		}
		hasValid := false
		for c := 0; c < nc; c++ {
			if !math.IsNaN(w.UProcessed[c][e]) && !w.CellInterpolated[c][e] {
				hasValid = true
				break
			}
		}
		if !hasValid {
			continue
		}
		for c := 0; c < nc; c++ {
			if !math.IsNaN(w.UProcessed[c][e]) {
				continue
			}
			if w.CellsAboveSL != nil && !w.CellsAboveSL[c][e] {
				continue
			}
			var u, v float64
			var ok bool
			switch w.InterpCells {
			case InterpABBA:
				u, v, ok = w.abbaFill(c, e)
			case InterpLinear:
				u, v, ok = w.verticalLinearFill(c, e)
			case InterpProfile:
				u, v, ok = w.profileFill(c, e, t.Extrap.Exponent)
			}
			if ok {
				w.UProcessed[c][e] = u
				w.VProcessed[c][e] = v
				w.CellInterpolated[c][e] = true
			}
		}
	}
}

// abbaFill averages the nearest valid cells above, below, before and
// after the target cell.
func (w *WaterData) abbaFill(c, e int) (float64, float64, bool) {
	var us, vs []float64
	add := func(ci, ei int) {
		if ci < 0 || ci >= w.NumCells() || ei < 0 || ei >= w.NumEnsembles() {
			return
		}
		if !math.IsNaN(w.UProcessed[ci][ei]) && !w.CellInterpolated[ci][ei] {
			us = append(us, w.UProcessed[ci][ei])
			vs = append(vs, w.VProcessed[ci][ei])
		}
	}
	for d := 1; d < w.NumCells(); d++ { // above
		if c-d < 0 {
			break
		}
		if !math.IsNaN(w.UProcessed[c-d][e]) {
			add(c-d, e)
			break
		}
	}
	for d := 1; d < w.NumCells(); d++ { // below
		if c+d >= w.NumCells() {
			break
		}
		if !math.IsNaN(w.UProcessed[c+d][e]) {
			add(c+d, e)
			break
		}
	}
	add(c, e-1)
	add(c, e+1)
	if len(us) == 0 {
		return 0, 0, false
	}
	return stats.Mean(us), stats.Mean(vs), true
}

// verticalLinearFill interpolates within the ensemble's vertical
// profile.
func (w *WaterData) verticalLinearFill(c, e int) (float64, float64, bool) {
	nc := w.NumCells()
	colU := make([]float64, nc)
	colV := make([]float64, nc)
	for ci := 0; ci < nc; ci++ {
		if !math.IsNaN(w.UProcessed[ci][e]) && !w.CellInterpolated[ci][e] {
			colU[ci] = w.UProcessed[ci][e]
			colV[ci] = w.VProcessed[ci][e]
		} else {
			colU[ci] = math.NaN()
			colV[ci] = math.NaN()
		}
	}
	linearFill(colU, nil)
	linearFill(colV, nil)
	if math.IsNaN(colU[c]) {
		return 0, 0, false
	}
	return colU[c], colV[c], true
}

// profileFill estimates an invalid cell from the ensemble's
// depth-averaged velocity scaled by the fitted power-law shape.
func (w *WaterData) profileFill(c, e int, exponent float64) (float64, float64, bool) {
	if w.CellDepth == nil {
		return 0, 0, false
	}
	nc := w.NumCells()
	var us, vs, depths []float64
	var meanDepth float64
	var count int
	for ci := 0; ci < nc; ci++ {
		if !math.IsNaN(w.UProcessed[ci][e]) && !w.CellInterpolated[ci][e] {
			us = append(us, w.UProcessed[ci][e])
			vs = append(vs, w.VProcessed[ci][e])
			depths = append(depths, w.CellDepth[ci][e])
			meanDepth += w.CellDepth[ci][e]
			count++
		}
	}
	if count == 0 {
		return 0, 0, false
	}
	meanDepth /= float64(count)
	if exponent <= 0 {
		exponent = 1.0 / 6.0
	}
	// Power-law shape: u(z) ∝ z^exponent with z measured up from the
	// bed; approximate the bed as the deepest valid cell plus one cell.
	bed := stats.Max(depths) * 1.1
	if bed <= 0 {
		return 0, 0, false
	}
	zTarget := bed - w.CellDepth[c][e]
	zMean := bed - meanDepth
	if zTarget <= 0 || zMean <= 0 {
		return 0, 0, false
	}
	shape := math.Pow(zTarget/zMean, exponent)
	return stats.Mean(us) * shape, stats.Mean(vs) * shape, true
}

// RawValidity reports, from the current validity masks, the per-
// ensemble valid flags and the total valid-cell and measurable-cell
// counts used by invalid-data statistics.
func (w *WaterData) RawValidity() (validEns []bool, validCells, totalCells int) {
	nc, ne := w.NumCells(), w.NumEnsembles()
	validEns = make([]bool, ne)
	for e := 0; e < ne; e++ {
		for c := 0; c < nc; c++ {
			if w.CellsAboveSL == nil || w.CellsAboveSL[c][e] {
				totalCells++
				if w.Valid[c][e] {
					validCells++
					validEns[e] = true
				}
			}
		}
	}
	return validEns, validCells, totalCells
}

func makeGrid(nc, ne int) [][]float64 {
	g := make([][]float64, nc)
	for i := range g {
		g[i] = make([]float64, ne)
	}
	return g
}

func makeBoolGrid(nc, ne int) [][]bool {
	g := make([][]bool, nc)
	for i := range g {
		g[i] = make([]bool, ne)
	}
	return g
}

func flatten(grid [][]float64) []float64 {
	var out []float64
	for _, row := range grid {
		out = append(out, row...)
	}
	return out
}
