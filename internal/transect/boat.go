package transect

import (
	"math"

	"github.com/openhydro/river-discharge/internal/stats"
)

const (
	autoDiffVelScale = 5.0 // auto threshold: multiple of sample std
	autoVertVelScale = 5.0
	smoothWindow     = 10  // ensembles in the smoothness reference mean
	smoothScale      = 3.0 // residual tolerance: multiple of residual std
	defaultHDOPMax   = 2.5
	defaultHDOPJump  = 1.0
	hold9Limit       = 9 // max ensembles carried by Hold9
)

// BoatVelocity is one navigation source's boat-velocity series along
// with its filter state and processed output.
type BoatVelocity struct {
	Source NavSource

	RawU, RawV []float64 // per ensemble; instrument frame unless EarthFrame
	W          []float64 // vertical velocity
	ErrVel     []float64 // difference (error) velocity
	NumBeams   []int     // beams used per ensemble, nil when not reported
	EarthFrame bool      // raw series already referenced to earth (GPS)

	Quality  []int     // GGA differential quality codes
	Altitude []float64 // GGA altitude series
	HDOP     []float64 // horizontal dilution of precision

	BeamFilter    int // -1 auto, otherwise minimum beam count
	DiffFilter    FilterMode
	DiffThreshold float64
	VertFilter    FilterMode
	VertThreshold float64
	SmoothFilter  bool

	GPSQualFilter int // minimum acceptable quality code
	AltFilter     FilterMode
	AltThreshold  float64
	HDOPFilter    FilterMode
	HDOPMax       float64
	HDOPChange    float64

	Interp InterpMethod

	U, V                   []float64 // earth frame
	Valid                  []bool
	UProcessed, VProcessed []float64
}

// BoatFilterOptions carries one filter application's choices. Zero
// thresholds with Auto modes mean data-derived thresholds.
type BoatFilterOptions struct {
	BeamFilter    int
	Diff          FilterMode
	DiffThreshold float64
	Vert          FilterMode
	VertThreshold float64
	Smooth        bool
}

// GPSFilterOptions carries the GPS-specific filter choices.
type GPSFilterOptions struct {
	Quality    int
	Alt        FilterMode
	AltChange  float64
	HDOP       FilterMode
	HDOPMax    float64
	HDOPChange float64
	Smooth     bool
}

func (b *BoatVelocity) rotate(heading []float64) {
	n := len(b.RawU)
	if b.U == nil {
		b.U = make([]float64, n)
		b.V = make([]float64, n)
	}
	if b.EarthFrame {
		copy(b.U, b.RawU)
		copy(b.V, b.RawV)
		return
	}
	for i := 0; i < n; i++ {
		h := 0.0
		if i < len(heading) && !math.IsNaN(heading[i]) {
			h = heading[i] * math.Pi / 180
		}
		b.U[i] = b.RawU[i]*math.Cos(h) + b.RawV[i]*math.Sin(h)
		b.V[i] = -b.RawU[i]*math.Sin(h) + b.RawV[i]*math.Cos(h)
	}
}

// SetFilters stores the filter configuration. Filters take effect on
// the next Process call.
func (b *BoatVelocity) SetFilters(o BoatFilterOptions) {
	b.BeamFilter = o.BeamFilter
	b.DiffFilter = o.Diff
	b.DiffThreshold = o.DiffThreshold
	b.VertFilter = o.Vert
	b.VertThreshold = o.VertThreshold
	b.SmoothFilter = o.Smooth
}

// SetGPSFilters stores the GPS filter configuration for GGA/VTG
// sources.
func (b *BoatVelocity) SetGPSFilters(o GPSFilterOptions) {
	b.GPSQualFilter = o.Quality
	b.AltFilter = o.Alt
	b.AltThreshold = o.AltChange
	b.HDOPFilter = o.HDOP
	b.HDOPMax = o.HDOPMax
	b.HDOPChange = o.HDOPChange
	b.SmoothFilter = o.Smooth
}

// applyFilters recomputes the validity mask from raw data and the
// stored filter state.
func (b *BoatVelocity) applyFilters() {
	n := len(b.U)
	b.Valid = make([]bool, n)
	for i := 0; i < n; i++ {
		b.Valid[i] = !math.IsNaN(b.U[i]) && !math.IsNaN(b.V[i])
	}

	if b.NumBeams != nil {
		required := b.BeamFilter
		if required < 0 {
			required = 3
		}
		if required > 0 {
			for i, nb := range b.NumBeams {
				if nb < required {
					b.Valid[i] = false
				}
			}
		}
	}

	if b.DiffFilter != FilterOff && b.ErrVel != nil {
		thr := b.DiffThreshold
		if b.DiffFilter == FilterAuto {
			thr = autoDiffVelScale * stats.Std(b.ErrVel)
		}
		med := stats.Median(b.ErrVel)
		if !math.IsNaN(thr) && !math.IsNaN(med) {
			for i, ev := range b.ErrVel {
				if !math.IsNaN(ev) && math.Abs(ev-med) > thr {
					b.Valid[i] = false
				}
			}
		}
	}

	if b.VertFilter != FilterOff && b.W != nil {
		thr := b.VertThreshold
		if b.VertFilter == FilterAuto {
			thr = autoVertVelScale * stats.Std(b.W)
		}
		med := stats.Median(b.W)
		if !math.IsNaN(thr) && !math.IsNaN(med) {
			for i, w := range b.W {
				if !math.IsNaN(w) && math.Abs(w-med) > thr {
					b.Valid[i] = false
				}
			}
		}
	}

	b.applyGPSFilters()

	if b.SmoothFilter {
		speed := make([]float64, n)
		for i := 0; i < n; i++ {
			if b.Valid[i] {
				speed[i] = math.Hypot(b.U[i], b.V[i])
			} else {
				speed[i] = math.NaN()
			}
		}
		smoothed := movingMean(speed, smoothWindow)
		resid := make([]float64, n)
		for i := 0; i < n; i++ {
			resid[i] = speed[i] - smoothed[i]
		}
		tol := smoothScale * stats.Std(resid)
		if !math.IsNaN(tol) && tol > 0 {
			for i := 0; i < n; i++ {
				if !math.IsNaN(resid[i]) && math.Abs(resid[i]) > tol {
					b.Valid[i] = false
				}
			}
		}
	}
}

func (b *BoatVelocity) applyGPSFilters() {
	if b.Quality != nil && b.GPSQualFilter > 0 {
		for i, q := range b.Quality {
			if q < b.GPSQualFilter {
				b.Valid[i] = false
			}
		}
	}

	if b.Altitude != nil && b.AltFilter != FilterOff {
		thr := b.AltThreshold
		if b.AltFilter == FilterAuto {
			thr = 3 * stats.Std(b.Altitude)
		}
		med := stats.Median(b.Altitude)
		if !math.IsNaN(thr) && !math.IsNaN(med) {
			for i, a := range b.Altitude {
				if !math.IsNaN(a) && math.Abs(a-med) > thr {
					b.Valid[i] = false
				}
			}
		}
	}

	if b.HDOP != nil && b.HDOPFilter != FilterOff {
		maxHDOP, jump := b.HDOPMax, b.HDOPChange
		if b.HDOPFilter == FilterAuto {
			maxHDOP, jump = defaultHDOPMax, defaultHDOPJump
		}
		mean := stats.Mean(b.HDOP)
		for i, h := range b.HDOP {
			if math.IsNaN(h) {
				continue
			}
			if (!math.IsNaN(maxHDOP) && h > maxHDOP) ||
				(!math.IsNaN(jump) && !math.IsNaN(mean) && math.Abs(h-mean) > jump) {
				b.Valid[i] = false
			}
		}
	}
}

// interpolate fills invalid ensembles in the processed series using
// the stored interpolation method.
func (b *BoatVelocity) interpolate(ensTime []float64) {
	n := len(b.U)
	b.UProcessed = make([]float64, n)
	b.VProcessed = make([]float64, n)
	for i := 0; i < n; i++ {
		if b.Valid[i] {
			b.UProcessed[i] = b.U[i]
			b.VProcessed[i] = b.V[i]
		} else {
			b.UProcessed[i] = math.NaN()
			b.VProcessed[i] = math.NaN()
		}
	}

	switch b.Interp {
	case InterpHoldLast:
		holdLast(b.UProcessed, 0)
		holdLast(b.VProcessed, 0)
	case InterpHold9:
		holdLast(b.UProcessed, hold9Limit)
		holdLast(b.VProcessed, hold9Limit)
	case InterpLinear:
		linearFill(b.UProcessed, ensTime)
		linearFill(b.VProcessed, ensTime)
	}
}

// BoatData groups the recorded navigation sources, the active
// reference, and the composite-track setting.
type BoatData struct {
	BT  *BoatVelocity
	GGA *BoatVelocity
	VTG *BoatVelocity

	Selected  NavSource
	Composite bool

	// Active track after source selection and compositing.
	UProcessed, VProcessed []float64
	ensTime                []float64
}

// Ref returns the velocity data for a navigation source, nil when the
// source was not recorded.
func (bd *BoatData) Ref(src NavSource) *BoatVelocity {
	switch src {
	case NavBottomTrack:
		return bd.BT
	case NavGGA:
		return bd.GGA
	case NavVTG:
		return bd.VTG
	}
	return nil
}

// SelectedVelocity returns the active navigation source's data.
func (bd *BoatData) SelectedVelocity() *BoatVelocity {
	return bd.Ref(bd.Selected)
}

// Sources lists the recorded navigation sources in priority order.
func (bd *BoatData) Sources() []*BoatVelocity {
	var out []*BoatVelocity
	for _, b := range []*BoatVelocity{bd.BT, bd.GGA, bd.VTG} {
		if b != nil {
			out = append(out, b)
		}
	}
	return out
}

// HasGPS reports whether any GPS-derived source was recorded.
func (bd *BoatData) HasGPS() bool {
	return bd.GGA != nil || bd.VTG != nil
}

func (bd *BoatData) rotate(heading []float64) {
	for _, b := range bd.Sources() {
		b.rotate(heading)
	}
}

// SetEnsTime stores the cumulative ensemble time base used by
// time-weighted interpolation.
func (bd *BoatData) SetEnsTime(cumTime []float64) {
	bd.ensTime = cumTime
}

// Process recomputes every source's validity mask and processed series,
// then assembles the active track, compositing across sources when
// enabled.
func (bd *BoatData) Process() {
	for _, b := range bd.Sources() {
		b.applyFilters()
		b.interpolate(bd.ensTime)
	}

	sel := bd.SelectedVelocity()
	if sel == nil {
		return
	}
	n := len(sel.UProcessed)
	bd.UProcessed = make([]float64, n)
	bd.VProcessed = make([]float64, n)
	copy(bd.UProcessed, sel.UProcessed)
	copy(bd.VProcessed, sel.VProcessed)

	if !bd.Composite {
		return
	}
	for _, alt := range bd.Sources() {
		if alt == sel {
			continue
		}
		for i := 0; i < n && i < len(alt.UProcessed); i++ {
			if math.IsNaN(bd.UProcessed[i]) && !math.IsNaN(alt.UProcessed[i]) {
				bd.UProcessed[i] = alt.UProcessed[i]
				bd.VProcessed[i] = alt.VProcessed[i]
			}
		}
	}
}

// movingMean is a centered moving average that skips missing values.
func movingMean(data []float64, window int) []float64 {
	n := len(data)
	out := make([]float64, n)
	half := window / 2
	for i := 0; i < n; i++ {
		lo := max(0, i-half)
		hi := min(n, i+half+1)
		out[i] = stats.Mean(data[lo:hi])
	}
	return out
}

// holdLast carries the last valid value forward. A limit of 0 means no
// limit on the carried span.
func holdLast(data []float64, limit int) {
	last := math.NaN()
	run := 0
	for i := range data {
		if !math.IsNaN(data[i]) {
			last = data[i]
			run = 0
			continue
		}
		run++
		if limit > 0 && run > limit {
			continue
		}
		data[i] = last
	}
}

// linearFill interpolates interior gaps linearly against the supplied
// monotonic time base. Leading and trailing gaps stay missing.
func linearFill(data []float64, t []float64) {
	n := len(data)
	if t == nil || len(t) != n {
		t = make([]float64, n)
		for i := range t {
			t[i] = float64(i)
		}
	}
	prev := -1
	for i := 0; i < n; i++ {
		if math.IsNaN(data[i]) {
			continue
		}
		if prev >= 0 && i-prev > 1 {
			for j := prev + 1; j < i; j++ {
				frac := (t[j] - t[prev]) / (t[i] - t[prev])
				data[j] = data[prev] + frac*(data[i]-data[prev])
			}
		}
		prev = i
	}
}
