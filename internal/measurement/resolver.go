package measurement

import (
	"strings"

	"github.com/openhydro/river-discharge/internal/settings"
	"github.com/openhydro/river-discharge/internal/transect"
)

// SonTek M9 sonar requires a larger excluded distance than its
// recorded blanking suggests.
const m9ExcludedFloorM = 0.16

// referenceTransect is the transect settings are read from: the first
// checked one, or the first at all when none are checked.
func (m *Measurement) referenceTransect() *transect.Transect {
	if len(m.Transects) == 0 {
		return nil
	}
	for _, t := range m.Transects {
		if t.Checked {
			return t
		}
	}
	return m.Transects[0]
}

// CurrentSettings captures the active processing choices into a
// snapshot without mutating anything. Applying the captured snapshot
// right back is a no-op.
func (m *Measurement) CurrentSettings() settings.Settings {
	s := settings.Settings{Processing: m.Processing}
	t := m.referenceTransect()
	if t == nil {
		return s
	}

	s.Navigation.Reference = t.Boat.Selected
	s.Navigation.CompositeTracks = t.Boat.Composite

	if bt := t.Boat.BT; bt != nil {
		s.BoatFilters = settings.BoatFilterSettings{
			Beam:          bt.BeamFilter,
			Diff:          bt.DiffFilter,
			DiffThreshold: bt.DiffThreshold,
			Vert:          bt.VertFilter,
			VertThreshold: bt.VertThreshold,
			Smooth:        bt.SmoothFilter,
		}
		s.Interpolation.Boat = bt.Interp
	}

	if gps := firstGPS(t); gps != nil {
		s.GPSFilters = settings.GPSFilterSettings{
			Quality:           gps.GPSQualFilter,
			Altitude:          gps.AltFilter,
			AltitudeThreshold: gps.AltThreshold,
			HDOP:              gps.HDOPFilter,
			HDOPMax:           gps.HDOPMax,
			HDOPChange:        gps.HDOPChange,
			Smooth:            gps.SmoothFilter,
		}
		s.Interpolation.GPS = gps.Interp
	} else {
		// No GPS recorded; carry a valid default so the snapshot
		// still validates.
		s.GPSFilters = settings.GPSFilterSettings{
			Quality:  2,
			Altitude: transect.FilterOff,
			HDOP:     transect.FilterOff,
		}
		s.Interpolation.GPS = transect.InterpNone
	}

	w := &t.Water
	s.WaterFilters = settings.WaterFilterSettings{
		Beam:          w.BeamFilter,
		Diff:          w.DiffFilter,
		DiffThreshold: w.DiffThreshold,
		Vert:          w.VertFilter,
		VertThreshold: w.VertThreshold,
		Smooth:        w.SmoothFilter,
		SNR:           w.SNRFilter,
		WTDepth:       w.DepthFilter,
		ExcludedDistM: w.ExcludedDistM,
	}
	s.Interpolation.WaterEns = w.InterpEns
	s.Interpolation.WaterCells = w.InterpCells

	s.Depth.Reference = t.Depths.Selected
	s.Depth.Composite = t.Depths.Composite
	if d := t.Depths.SelectedDepth(); d != nil {
		s.Depth.FilterType = d.FilterType
		s.Depth.AvgMethod = d.AvgMethod
		s.Depth.ValidMethod = d.ValidMethod
		s.Interpolation.Depth = d.InterpType
	}

	s.Edges.VelMethod = t.Edges.VelMethod
	s.Edges.RecEdgeMethod = t.Edges.RecEdgeMethod

	// Prefer the active fit; fall back to the transect's stored
	// extrapolation before any fit exists.
	ext := settings.ExtrapolationSettings{
		Top:      t.Extrap.TopMethod,
		Bot:      t.Extrap.BotMethod,
		Exponent: t.Extrap.Exponent,
	}
	if m.ExtrapFit != nil && len(m.ExtrapFit.Sel) > 0 {
		comp := m.ExtrapFit.Composite()
		ext = settings.ExtrapolationSettings{
			Top:      comp.TopMethod,
			Bot:      comp.BotMethod,
			Exponent: comp.Exponent,
		}
	}
	s.Extrapolation = &ext
	return s
}

// DefaultSettings builds a named settings bundle. Best practice turns
// on automatic filtering, water-depth screening, IDW depth averaging
// and linear/pattern interpolation; no filtering reproduces the
// manufacturer-equivalent raw results.
func (m *Measurement) DefaultSettings(policy settings.Policy) settings.Settings {
	s := m.CurrentSettings()
	s.Extrapolation = nil // keep the active fit's choice

	switch policy {
	case settings.PolicyNoFiltering:
		s.Processing = settings.ProcessingNone
		s.Navigation.CompositeTracks = false
		s.BoatFilters = settings.BoatFilterSettings{
			Beam: 0,
			Diff: transect.FilterOff,
			Vert: transect.FilterOff,
		}
		s.GPSFilters = settings.GPSFilterSettings{
			Quality:  0,
			Altitude: transect.FilterOff,
			HDOP:     transect.FilterOff,
		}
		s.WaterFilters = settings.WaterFilterSettings{
			Beam:          0,
			Diff:          transect.FilterOff,
			Vert:          transect.FilterOff,
			SNR:           transect.FilterOff,
			WTDepth:       false,
			ExcludedDistM: 0,
		}
		s.Depth.FilterType = transect.DepthFilterNone
		s.Depth.AvgMethod = transect.DepthAvgSimple
		s.Depth.ValidMethod = transect.DepthValidTRDI
		s.Depth.Composite = false
		s.Interpolation = settings.InterpolationSettings{
			Boat:       transect.InterpNone,
			GPS:        transect.InterpNone,
			WaterEns:   transect.InterpNone,
			WaterCells: transect.InterpNone,
			Depth:      transect.InterpNone,
		}
	default: // best practice
		s.Processing = settings.ProcessingBestPractice
		s.Navigation.CompositeTracks = false
		s.BoatFilters = settings.BoatFilterSettings{
			Beam: -1,
			Diff: transect.FilterAuto,
			Vert: transect.FilterAuto,
		}
		s.GPSFilters = settings.GPSFilterSettings{
			Quality:  2,
			Altitude: transect.FilterAuto,
			HDOP:     transect.FilterAuto,
		}
		s.WaterFilters = settings.WaterFilterSettings{
			Beam:          -1,
			Diff:          transect.FilterAuto,
			Vert:          transect.FilterAuto,
			SNR:           transect.FilterAuto,
			WTDepth:       true,
			ExcludedDistM: m.minExcludedDistance(),
		}
		s.Depth.FilterType = transect.DepthFilterSmooth
		s.Depth.AvgMethod = transect.DepthAvgIDW
		s.Depth.ValidMethod = transect.DepthValidMultiBeam
		s.Depth.Composite = true
		s.Interpolation = settings.InterpolationSettings{
			Boat:       transect.InterpLinear,
			GPS:        transect.InterpLinear,
			WaterEns:   transect.InterpABBA,
			WaterCells: transect.InterpABBA,
			Depth:      transect.InterpLinear,
		}
	}
	return s
}

// minExcludedDistance takes the smallest excluded distance across
// transects, raised to the model floor where one is known.
func (m *Measurement) minExcludedDistance() float64 {
	var minDist float64
	var floor float64
	for i, t := range m.Transects {
		if i == 0 || t.Water.ExcludedDistM < minDist {
			minDist = t.Water.ExcludedDistM
		}
		if strings.Contains(t.ADCP.Model, "M9") {
			floor = m9ExcludedFloorM
		}
	}
	if minDist < floor {
		minDist = floor
	}
	return minDist
}

func firstGPS(t *transect.Transect) *transect.BoatVelocity {
	if t.Boat.GGA != nil {
		return t.Boat.GGA
	}
	return t.Boat.VTG
}
