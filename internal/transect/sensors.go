package transect

import (
	"math"
)

// HeadingSource selects the heading sensor in use.
type HeadingSource string

const (
	HeadingInternal HeadingSource = "internal"
	HeadingExternal HeadingSource = "external"
)

// SensorSource selects among recorded sensor series.
type SensorSource string

const (
	SensorInternal SensorSource = "internal"
	SensorUser     SensorSource = "user"
	SensorComputed SensorSource = "computed"
)

// InternalHeading is the instrument compass series with the corrections
// applied only to this source.
type InternalHeading struct {
	Data      []float64 // raw compass heading, degrees
	MagVarDeg float64   // magnetic variation correction
	OffsetDeg float64   // alignment offset correction
}

// HeadingSensor groups the internal compass and an optional external
// reference heading.
type HeadingSensor struct {
	Internal InternalHeading
	External []float64 // nil when no external reference was recorded
	Selected HeadingSource
}

// Series returns the active heading series with corrections applied.
// Corrections affect only the internal sensor.
func (h *HeadingSensor) Series() []float64 {
	if h.Selected == HeadingExternal && h.External != nil {
		return h.External
	}
	out := make([]float64, len(h.Internal.Data))
	for i, v := range h.Internal.Data {
		if math.IsNaN(v) {
			out[i] = math.NaN()
			continue
		}
		deg := v + h.Internal.MagVarDeg + h.Internal.OffsetDeg
		for deg >= 360 {
			deg -= 360
		}
		for deg < 0 {
			deg += 360
		}
		out[i] = deg
	}
	return out
}

// SensorSeries is one recorded series for an environmental sensor.
type SensorSeries struct {
	Data   []float64
	Source string // free-form provenance for reporting
}

// SensorGroup holds the recorded series for one environmental quantity
// and the active selection.
type SensorGroup struct {
	Internal *SensorSeries
	User     *SensorSeries
	Computed *SensorSeries
	Selected SensorSource
}

// SelectedSeries returns the active series, nil when the selection was
// never recorded.
func (g *SensorGroup) SelectedSeries() *SensorSeries {
	switch g.Selected {
	case SensorInternal:
		return g.Internal
	case SensorUser:
		return g.User
	case SensorComputed:
		return g.Computed
	}
	return nil
}

// SetUser installs a constant user-supplied value and selects it.
func (g *SensorGroup) SetUser(value float64) {
	g.User = &SensorSeries{Data: []float64{value}, Source: "User"}
	g.Selected = SensorUser
}

// Sensors is the per-transect sensor suite.
type Sensors struct {
	Heading      HeadingSensor
	PitchDeg     SensorGroup
	RollDeg      SensorGroup
	TemperatureC SensorGroup
	SalinityPPT  SensorGroup
	SpeedOfSound SensorGroup // m/s
}

// SOSParameter names the quantity being changed by ChangeSOS.
type SOSParameter string

const (
	SOSTemperature    SOSParameter = "temperature"
	SOSTemperatureSrc SOSParameter = "temperatureSrc"
	SOSSalinity       SOSParameter = "salinity"
	SOSSource         SOSParameter = "sosSrc"
)

// ChangeSOS adjusts the speed-of-sound computation: a user temperature
// or salinity triggers recomputation from water properties, while a
// direct source change installs a fixed user speed.
func (t *Transect) ChangeSOS(param SOSParameter, selected SensorSource, value float64) {
	s := &t.Sensors
	switch param {
	case SOSTemperature:
		s.TemperatureC.SetUser(value)
		s.recomputeSOS()
	case SOSTemperatureSrc:
		s.TemperatureC.Selected = selected
		s.recomputeSOS()
	case SOSSalinity:
		s.SalinityPPT.SetUser(value)
		s.recomputeSOS()
	case SOSSource:
		if selected == SensorUser {
			s.SpeedOfSound.SetUser(value)
		} else {
			s.SpeedOfSound.Selected = selected
			if selected == SensorComputed {
				s.recomputeSOS()
			}
		}
	}
}

// recomputeSOS derives speed of sound from the active temperature and
// salinity series using the simplified Medwin equation.
func (s *Sensors) recomputeSOS() {
	temp := s.TemperatureC.SelectedSeries()
	if temp == nil {
		return
	}
	sal := 0.0
	if sg := s.SalinityPPT.SelectedSeries(); sg != nil && len(sg.Data) > 0 {
		sal = sg.Data[0]
	}
	data := make([]float64, len(temp.Data))
	for i, tc := range temp.Data {
		if math.IsNaN(tc) {
			data[i] = math.NaN()
			continue
		}
		data[i] = 1449.2 + 4.6*tc - 0.055*tc*tc + 0.00029*tc*tc*tc + (1.34-0.01*tc)*(sal-35)
	}
	s.SpeedOfSound.Computed = &SensorSeries{Data: data, Source: "Calculated"}
	s.SpeedOfSound.Selected = SensorComputed
}
