package app

import (
	"math"
	"time"

	"github.com/openhydro/river-discharge/internal/transect"
)

// GridData is one transect's velocity-magnitude cell grid prepared
// for rendering: a cell-row by ensemble matrix of speeds with the
// geometry needed for scales. Nil entries are unmeasured cells.
type GridData struct {
	Width, Height int // ensembles x cell rows

	FileName           string
	StartTime, EndTime time.Time
	Station            float64 // track extent, meters
	DepthMin, DepthMax float64 // cell depth extent, meters
	SpeedMax           float64
	BoundsTracker      *SpeedBounds
	Cells              [][]*float64 // row-major, top row first
}

// NewGridData extracts the processed water grid from a transect.
func NewGridData(t *transect.Transect, bounds *SpeedBounds) *GridData {
	w := &t.Water
	g := &GridData{
		Width:         w.NumEnsembles(),
		Height:        w.NumCells(),
		FileName:      t.FileName,
		StartTime:     t.StartTime,
		EndTime:       t.EndTime,
		DepthMin:      math.MaxFloat64,
		BoundsTracker: bounds,
	}

	x, y := t.BoatTrack()
	for i := range x {
		if d := math.Hypot(x[i], y[i]); d > g.Station {
			g.Station = d
		}
	}

	g.Cells = make([][]*float64, g.Height)
	for c := 0; c < g.Height; c++ {
		row := make([]*float64, g.Width)
		for e := 0; e < g.Width; e++ {
			u, v := w.UProcessed[c][e], w.VProcessed[c][e]
			if math.IsNaN(u) || math.IsNaN(v) {
				continue
			}
			speed := math.Hypot(u, v)
			row[e] = &speed
			g.BoundsTracker.Update(speed)
			if speed > g.SpeedMax {
				g.SpeedMax = speed
			}
			if w.CellDepth != nil {
				if d := w.CellDepth[c][e]; !math.IsNaN(d) {
					g.DepthMin = math.Min(g.DepthMin, d)
					g.DepthMax = math.Max(g.DepthMax, d)
				}
			}
		}
		g.Cells[c] = row
	}
	if g.DepthMin == math.MaxFloat64 {
		g.DepthMin = 0
	}
	return g
}
