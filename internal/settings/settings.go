// Package settings defines the processing-settings snapshot applied by
// the pipeline. A snapshot is always fully populated: it is captured
// from a transect, built from a named default policy, or edited by the
// caller, and validated before application.
package settings

import (
	"errors"
	"fmt"
	"math"

	"github.com/openhydro/river-discharge/internal/transect"
)

// Processing method names.
const (
	ProcessingBestPractice = "BestPractice"
	ProcessingNone         = "None"
	ProcessingOriginal     = "Original"
)

// Policy names a default settings bundle.
type Policy string

const (
	PolicyBestPractice Policy = "best-practice"
	PolicyNoFiltering  Policy = "no-filtering"
)

// NavigationSettings selects the boat-velocity reference.
type NavigationSettings struct {
	Reference       transect.NavSource
	CompositeTracks bool
}

// BoatFilterSettings configures the bottom-track filters.
type BoatFilterSettings struct {
	Beam          int // -1 auto
	Diff          transect.FilterMode
	DiffThreshold float64
	Vert          transect.FilterMode
	VertThreshold float64
	Smooth        bool
}

// GPSFilterSettings configures the GGA/VTG filters.
type GPSFilterSettings struct {
	Quality           int
	Altitude          transect.FilterMode
	AltitudeThreshold float64
	HDOP              transect.FilterMode
	HDOPMax           float64
	HDOPChange        float64
	Smooth            bool
}

// WaterFilterSettings configures the water-track filters.
type WaterFilterSettings struct {
	Beam          int
	Diff          transect.FilterMode
	DiffThreshold float64
	Vert          transect.FilterMode
	VertThreshold float64
	Smooth        bool
	SNR           transect.FilterMode
	WTDepth       bool
	ExcludedDistM float64
}

// DepthSettings configures the depth reference and its processing.
type DepthSettings struct {
	Reference   transect.DepthSource
	FilterType  string
	AvgMethod   string
	ValidMethod string
	Composite   bool
}

// InterpolationSettings names the gap-filling method per series.
type InterpolationSettings struct {
	Boat       transect.InterpMethod
	GPS        transect.InterpMethod
	WaterEns   transect.InterpMethod
	WaterCells transect.InterpMethod
	Depth      transect.InterpMethod
}

// EdgeSettings configures edge-discharge computation.
type EdgeSettings struct {
	VelMethod     string
	RecEdgeMethod string
}

// ExtrapolationSettings pins a manual profile choice. Nil means the
// active fit's choice is kept.
type ExtrapolationSettings struct {
	Top      string
	Bot      string
	Exponent float64
}

// Settings is one complete processing snapshot. It is consumed exactly
// once per pipeline application and never mutated during it.
type Settings struct {
	Processing string

	Navigation    NavigationSettings
	BoatFilters   BoatFilterSettings
	GPSFilters    GPSFilterSettings
	WaterFilters  WaterFilterSettings
	Depth         DepthSettings
	Interpolation InterpolationSettings
	Edges         EdgeSettings

	Extrapolation *ExtrapolationSettings
}

var validFilterModes = map[transect.FilterMode]struct{}{
	transect.FilterOff:    {},
	transect.FilterAuto:   {},
	transect.FilterManual: {},
}

// Validate rejects partially populated snapshots.
func (s *Settings) Validate() error {
	switch s.Navigation.Reference {
	case transect.NavBottomTrack, transect.NavGGA, transect.NavVTG:
	default:
		return fmt.Errorf("invalid navigation reference %q", s.Navigation.Reference)
	}
	switch s.Depth.Reference {
	case transect.DepthBottomTrack, transect.DepthVerticalBeam, transect.DepthSounder:
	default:
		return fmt.Errorf("invalid depth reference %q", s.Depth.Reference)
	}
	for name, mode := range map[string]transect.FilterMode{
		"boat difference":  s.BoatFilters.Diff,
		"boat vertical":    s.BoatFilters.Vert,
		"water difference": s.WaterFilters.Diff,
		"water vertical":   s.WaterFilters.Vert,
		"gps altitude":     s.GPSFilters.Altitude,
		"gps hdop":         s.GPSFilters.HDOP,
		"water snr":        s.WaterFilters.SNR,
	} {
		if _, ok := validFilterModes[mode]; !ok {
			return fmt.Errorf("%s filter mode is unset", name)
		}
	}
	if s.BoatFilters.Diff == transect.FilterManual && !finite(s.BoatFilters.DiffThreshold) {
		return errors.New("manual boat difference filter requires a threshold")
	}
	if s.BoatFilters.Vert == transect.FilterManual && !finite(s.BoatFilters.VertThreshold) {
		return errors.New("manual boat vertical filter requires a threshold")
	}
	if s.WaterFilters.Diff == transect.FilterManual && !finite(s.WaterFilters.DiffThreshold) {
		return errors.New("manual water difference filter requires a threshold")
	}
	if s.WaterFilters.Vert == transect.FilterManual && !finite(s.WaterFilters.VertThreshold) {
		return errors.New("manual water vertical filter requires a threshold")
	}
	for name, m := range map[string]transect.InterpMethod{
		"boat":        s.Interpolation.Boat,
		"gps":         s.Interpolation.GPS,
		"water ens":   s.Interpolation.WaterEns,
		"water cells": s.Interpolation.WaterCells,
		"depth":       s.Interpolation.Depth,
	} {
		if m == "" {
			return fmt.Errorf("%s interpolation method is unset", name)
		}
	}
	if s.Depth.FilterType == "" || s.Depth.AvgMethod == "" || s.Depth.ValidMethod == "" {
		return errors.New("depth settings are incomplete")
	}
	if s.Edges.VelMethod == "" || s.Edges.RecEdgeMethod == "" {
		return errors.New("edge settings are incomplete")
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
