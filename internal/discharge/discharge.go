// Package discharge integrates transect velocity data into channel
// discharge using the mid-section method: a measured middle portion
// from the cross product of water and boat velocity, extrapolated top
// and bottom zones from the transect's profile model, and edge
// estimates from the shore coefficients.
package discharge

import (
	"math"

	"github.com/openhydro/river-discharge/internal/stats"
	"github.com/openhydro/river-discharge/internal/transect"
)

// Result is the decomposed discharge of one transect, in m3/s.
type Result struct {
	Top    float64
	Middle float64 // measured cells only
	Bottom float64
	Left   float64
	Right  float64

	// Discharge supplied by interpolation rather than measurement.
	// These are additive components alongside Middle, so the invalid
	// fraction of the total is directly visible.
	IntCells     float64
	IntEnsembles float64

	Total            float64
	TotalUncorrected float64

	// MiddleCells holds the per-cell discharge grid [cell][ensemble].
	MiddleCells [][]float64
}

// Compute integrates a processed transect. The correction factor from
// moving-bed analysis scales every component; TotalUncorrected keeps
// the unscaled sum.
func Compute(t *transect.Transect, correction float64) *Result {
	r := &Result{}
	w := &t.Water
	ne := t.NumEnsembles()
	nc := len(w.UProcessed)
	depths := t.Depths.Processed()

	r.MiddleCells = make([][]float64, nc)
	for c := range r.MiddleCells {
		r.MiddleCells[c] = make([]float64, ne)
	}

	for e := 0; e < ne; e++ {
		dt := t.EnsDuration[e]
		if e >= len(depths) || math.IsNaN(depths[e]) || depths[e] <= 0 || dt <= 0 {
			continue
		}
		cells := ensembleCells(t, e, depths[e])
		if len(cells) == 0 {
			continue
		}
		for _, cl := range cells {
			q := cl.xprod * cl.size * dt
			r.MiddleCells[cl.index][e] = q
			switch {
			case w.EnsInterpolated[e]:
				r.IntEnsembles += q
			case w.CellInterpolated[cl.index][e]:
				r.IntCells += q
			default:
				r.Middle += q
			}
		}
		r.Top += topDischarge(t, cells, depths[e], dt)
		r.Bottom += bottomDischarge(t, cells, depths[e], dt)
	}

	r.Left, r.Right = edgeDischarges(t, depths)

	r.TotalUncorrected = r.Top + r.Middle + r.Bottom + r.Left + r.Right +
		r.IntCells + r.IntEnsembles
	if correction <= 0 || math.IsNaN(correction) {
		correction = 1
	}
	r.Top *= correction
	r.Middle *= correction
	r.Bottom *= correction
	r.Left *= correction
	r.Right *= correction
	r.IntCells *= correction
	r.IntEnsembles *= correction
	r.Total = r.TotalUncorrected * correction
	return r
}

// cell is one valid depth cell of an ensemble, ordered surface down.
type cell struct {
	index int
	xprod float64 // water-boat velocity cross product, per unit height
	size  float64
	z     float64 // height of cell center above the bed
	zTop  float64 // height of the cell's upper edge above the bed
	zBot  float64 // height of the cell's lower edge above the bed
}

func ensembleCells(t *transect.Transect, e int, depth float64) []cell {
	w := &t.Water
	bu, bv := t.Boat.UProcessed[e], t.Boat.VProcessed[e]
	if math.IsNaN(bu) || math.IsNaN(bv) {
		return nil
	}
	var cells []cell
	for c := range w.UProcessed {
		u, v := w.UProcessed[c][e], w.VProcessed[c][e]
		if math.IsNaN(u) || math.IsNaN(v) {
			continue
		}
		z := depth - w.CellDepth[c][e]
		if z <= 0 {
			continue
		}
		h := w.CellSize[c][e]
		cells = append(cells, cell{
			index: c,
			xprod: u*bv - v*bu,
			size:  h,
			z:     z,
			zTop:  z + h/2,
			zBot:  z - h/2,
		})
	}
	return cells
}

// powerCoefficient solves for a in q(z) = a z^p so the fitted curve
// carries the same discharge as the measured cells.
func powerCoefficient(cells []cell, exponent float64) float64 {
	p1 := exponent + 1
	var num, den float64
	for _, cl := range cells {
		num += cl.xprod * cl.size
		zb := cl.zBot
		if zb < 0 {
			zb = 0
		}
		den += (math.Pow(cl.zTop, p1) - math.Pow(zb, p1)) / p1
	}
	if den == 0 {
		return 0
	}
	return num / den
}

func topDischarge(t *transect.Transect, cells []cell, depth, dt float64) float64 {
	top := cells[0]
	for _, cl := range cells {
		if cl.z > top.z {
			top = cl
		}
	}
	zTopEdge := top.zTop
	if zTopEdge >= depth {
		return 0
	}
	p1 := t.Extrap.Exponent + 1
	switch t.Extrap.TopMethod {
	case transect.ExtrapConstant:
		return dt * top.xprod * (depth - zTopEdge)
	case transect.Extrap3Point:
		if len(cells) < 3 {
			return dt * top.xprod * (depth - zTopEdge)
		}
		m, b := topSlope(cells)
		// Integral of m z + b over the unmeasured top zone.
		return dt * (0.5*m*(depth*depth-zTopEdge*zTopEdge) + b*(depth-zTopEdge))
	default: // power
		a := powerCoefficient(cells, t.Extrap.Exponent)
		return dt * a * (math.Pow(depth, p1) - math.Pow(zTopEdge, p1)) / p1
	}
}

func bottomDischarge(t *transect.Transect, cells []cell, depth, dt float64) float64 {
	bot := cells[0]
	for _, cl := range cells {
		if cl.z < bot.z {
			bot = cl
		}
	}
	zBotEdge := bot.zBot
	if zBotEdge <= 0 {
		return 0
	}
	p1 := t.Extrap.Exponent + 1
	switch t.Extrap.BotMethod {
	case transect.ExtrapNoSlip:
		// Fit the power curve through the near-bed cells only.
		var lower []cell
		for _, cl := range cells {
			if cl.z <= 0.2*depth {
				lower = append(lower, cl)
			}
		}
		if len(lower) == 0 {
			lower = []cell{bot}
		}
		a := powerCoefficient(lower, t.Extrap.Exponent)
		return dt * a * math.Pow(zBotEdge, p1) / p1
	default: // power
		a := powerCoefficient(cells, t.Extrap.Exponent)
		return dt * a * math.Pow(zBotEdge, p1) / p1
	}
}

// topSlope fits a line through the three cells nearest the surface.
func topSlope(cells []cell) (m, b float64) {
	ordered := make([]cell, len(cells))
	copy(ordered, cells)
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0 && ordered[j].z > ordered[j-1].z; j-- {
			ordered[j], ordered[j-1] = ordered[j-1], ordered[j]
		}
	}
	var sz, sq, szz, szq float64
	for _, cl := range ordered[:3] {
		sz += cl.z
		sq += cl.xprod
		szz += cl.z * cl.z
		szq += cl.z * cl.xprod
	}
	den := 3*szz - sz*sz
	if den == 0 {
		return 0, sq / 3
	}
	m = (3*szq - sz*sq) / den
	b = (sq - m*sz) / 3
	return m, b
}

// edgeDischarges estimates the unmeasured shore discharge on both
// sides from the ensembles nearest each edge.
func edgeDischarges(t *transect.Transect, depths []float64) (left, right float64) {
	ne := t.NumEnsembles()
	if ne == 0 {
		return 0, 0
	}
	startIsLeft := t.StartEdge != "Right"
	if startIsLeft {
		left = edgeQ(t, &t.Edges.Left, depths, true)
		right = edgeQ(t, &t.Edges.Right, depths, false)
	} else {
		right = edgeQ(t, &t.Edges.Right, depths, true)
		left = edgeQ(t, &t.Edges.Left, depths, false)
	}
	return left, right
}

func edgeQ(t *transect.Transect, edge *transect.Edge, depths []float64, atStart bool) float64 {
	if edge.Type == transect.EdgeUserQ {
		return edge.UserQ
	}
	n := edge.NumEnsembles
	if n <= 0 {
		n = 10
	}
	ne := t.NumEnsembles()
	if n > ne {
		n = ne
	}
	var idx []int
	if atStart {
		for e := 0; e < n; e++ {
			idx = append(idx, e)
		}
	} else {
		for e := ne - n; e < ne; e++ {
			idx = append(idx, e)
		}
	}

	w := &t.Water
	var speeds, edgeDepths []float64
	var xprodSum float64
	for _, e := range idx {
		if e < len(depths) && !math.IsNaN(depths[e]) {
			edgeDepths = append(edgeDepths, depths[e])
		}
		var us, vs []float64
		for c := range w.UProcessed {
			if !math.IsNaN(w.UProcessed[c][e]) && !math.IsNaN(w.VProcessed[c][e]) {
				us = append(us, w.UProcessed[c][e])
				vs = append(vs, w.VProcessed[c][e])
			}
		}
		if len(us) == 0 {
			continue
		}
		mu, mv := stats.Mean(us), stats.Mean(vs)
		speeds = append(speeds, math.Hypot(mu, mv))
		if !math.IsNaN(t.Boat.UProcessed[e]) {
			xprodSum += mu*t.Boat.VProcessed[e] - mv*t.Boat.UProcessed[e]
		}
	}
	if len(speeds) == 0 || len(edgeDepths) == 0 {
		return 0
	}
	q := edge.DischargeCoef() * stats.Mean(speeds) * stats.Mean(edgeDepths) * edge.DistanceM
	if xprodSum < 0 {
		q = -q
	}
	return q
}
