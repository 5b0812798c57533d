// Package transect models a single moving-boat ADCP river crossing:
// boat velocity from one or more navigation sources, the water-velocity
// cell grid, depth estimates from multiple sources, edge geometry and
// ancillary sensors. It exposes the filter, interpolation and
// coordinate-frame primitives the processing pipeline drives.
//
// All processed arrays are recomputed from raw data on every filter or
// interpolation application, so reapplying the same settings always
// reproduces the same output.
package transect

import (
	"math"
	"time"
)

// NavSource identifies a boat-velocity navigation reference.
type NavSource string

const (
	NavBottomTrack NavSource = "BT"
	NavGGA         NavSource = "GGA"
	NavVTG         NavSource = "VTG"
)

// DepthSource identifies a depth measurement source.
type DepthSource string

const (
	DepthBottomTrack  DepthSource = "BT"
	DepthVerticalBeam DepthSource = "VB"
	DepthSounder      DepthSource = "DS"
)

// FilterMode selects how a velocity filter derives its threshold.
type FilterMode string

const (
	FilterOff    FilterMode = "Off"
	FilterAuto   FilterMode = "Auto"
	FilterManual FilterMode = "Manual"
)

// InterpMethod names a gap-interpolation strategy. Not every method is
// meaningful for every series; see the per-series documentation.
type InterpMethod string

const (
	InterpNone     InterpMethod = "None"
	InterpHoldLast InterpMethod = "HoldLast"
	InterpHold9    InterpMethod = "Hold9"
	InterpLinear   InterpMethod = "Linear"
	InterpABBA     InterpMethod = "abba"
	InterpProfile  InterpMethod = "TRDI"
)

// Extrapolation method names for the unmeasured top and bottom zones.
const (
	ExtrapPower    = "Power"
	ExtrapConstant = "Constant"
	Extrap3Point   = "3-Point"
	ExtrapNoSlip   = "No Slip"
)

// DefaultExponent is the standard power-law profile exponent.
const DefaultExponent = 1.0 / 6.0

// ExtrapSettings is the vertical-profile extrapolation assigned to a
// transect: how unmeasured top and bottom zones are estimated.
type ExtrapSettings struct {
	TopMethod string  // "Power", "Constant", "3-Point"
	BotMethod string  // "Power", "No Slip"
	Exponent  float64 // profile exponent, 1/6 by default
}

// InstrumentInfo describes the ADCP that collected the transect.
type InstrumentInfo struct {
	Manufacturer   string
	Model          string
	SerialNum      string
	Firmware       string
	FrequencyKHz   float64
	BeamAngleDeg   float64
	ConfigCommands []string
}

// Transect holds one complete crossing of the channel.
type Transect struct {
	FileName  string
	Checked   bool // include in aggregate results
	StartTime time.Time
	EndTime   time.Time
	StartEdge string // "Left" or "Right"

	EnsDuration []float64 // seconds per ensemble

	Boat    BoatData
	Water   WaterData
	Depths  DepthSet
	Sensors Sensors
	Edges   Edges
	Extrap  ExtrapSettings

	ADCP InstrumentInfo
}

// NumEnsembles reports the ensemble count of the transect.
func (t *Transect) NumEnsembles() int {
	return len(t.EnsDuration)
}

// DurationSec is the total sampling duration of the transect.
func (t *Transect) DurationSec() float64 {
	var d float64
	for _, v := range t.EnsDuration {
		if !math.IsNaN(v) {
			d += v
		}
	}
	return d
}

// BoatTrack integrates the active boat velocity into cumulative track
// coordinates, meters east and north of the start. Missing ensembles
// advance time without moving the track.
func (t *Transect) BoatTrack() (x, y []float64) {
	n := t.NumEnsembles()
	x = make([]float64, n)
	y = make([]float64, n)
	var cx, cy float64
	for i := 0; i < n; i++ {
		if i < len(t.Boat.UProcessed) &&
			!math.IsNaN(t.Boat.UProcessed[i]) && !math.IsNaN(t.Boat.VProcessed[i]) {
			cx += t.Boat.UProcessed[i] * t.EnsDuration[i]
			cy += t.Boat.VProcessed[i] * t.EnsDuration[i]
		}
		x[i] = cx
		y[i] = cy
	}
	return x, y
}

// ChangeNavReference switches the active boat-velocity source. The
// request is ignored when the requested source was never recorded.
func (t *Transect) ChangeNavReference(ref NavSource) {
	if t.Boat.Ref(ref) == nil {
		return
	}
	t.Boat.Selected = ref
	t.Boat.Process()
	t.Water.Process(t)
}

// SetCompositeTracks enables or disables compositing of boat-velocity
// sources, then reprocesses the track and the dependent water data.
func (t *Transect) SetCompositeTracks(on bool) {
	t.Boat.Composite = on
	t.Boat.Process()
	t.Water.Process(t)
}

// ChangeDraft sets the transducer draft on every depth source.
func (t *Transect) ChangeDraft(draft float64) {
	for _, d := range t.Depths.All() {
		d.DraftM = draft
	}
	t.Depths.Process()
}

// ChangeMagVar sets the magnetic variation applied to the internal
// heading sensor and re-derives earth-frame velocities when the
// internal source is active.
func (t *Transect) ChangeMagVar(magVar float64) {
	t.Sensors.Heading.Internal.MagVarDeg = magVar
	if t.Sensors.Heading.Selected == HeadingInternal {
		t.rotateToEarth()
	}
}

// ChangeHeadingOffset sets the alignment offset applied to the internal
// heading sensor.
func (t *Transect) ChangeHeadingOffset(offset float64) {
	t.Sensors.Heading.Internal.OffsetDeg = offset
	if t.Sensors.Heading.Selected == HeadingInternal {
		t.rotateToEarth()
	}
}

// ChangeHeadingSource switches between the internal compass and an
// external reference heading. Switching to an absent external source is
// a no-op.
func (t *Transect) ChangeHeadingSource(src HeadingSource) {
	if src == HeadingExternal && t.Sensors.Heading.External == nil {
		return
	}
	t.Sensors.Heading.Selected = src
	t.rotateToEarth()
}

// ToEarthCoordinates rotates instrument-frame velocities into the earth
// frame using the active heading series. Safe to call repeatedly.
func (t *Transect) ToEarthCoordinates() {
	t.rotateToEarth()
}

func (t *Transect) rotateToEarth() {
	heading := t.Sensors.Heading.Series()
	t.Boat.rotate(heading)
	t.Water.rotate(heading)
	t.Boat.Process()
	t.Water.Process(t)
}
