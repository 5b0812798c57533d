package settings

import (
	"math"
	"testing"

	"github.com/openhydro/river-discharge/internal/transect"
)

func complete() Settings {
	return Settings{
		Processing: ProcessingBestPractice,
		Navigation: NavigationSettings{Reference: transect.NavBottomTrack, CompositeTracks: true},
		BoatFilters: BoatFilterSettings{
			Beam: -1,
			Diff: transect.FilterAuto,
			Vert: transect.FilterAuto,
		},
		GPSFilters: GPSFilterSettings{
			Quality:  2,
			Altitude: transect.FilterAuto,
			HDOP:     transect.FilterAuto,
		},
		WaterFilters: WaterFilterSettings{
			Beam: -1,
			Diff: transect.FilterAuto,
			Vert: transect.FilterAuto,
			SNR:  transect.FilterAuto,
		},
		Depth: DepthSettings{
			Reference:   transect.DepthBottomTrack,
			FilterType:  transect.DepthFilterSmooth,
			AvgMethod:   transect.DepthAvgIDW,
			ValidMethod: transect.DepthValidMultiBeam,
			Composite:   true,
		},
		Interpolation: InterpolationSettings{
			Boat:       transect.InterpLinear,
			GPS:        transect.InterpLinear,
			WaterEns:   transect.InterpABBA,
			WaterCells: transect.InterpABBA,
			Depth:      transect.InterpLinear,
		},
		Edges: EdgeSettings{
			VelMethod:     transect.EdgeVelMeasMag,
			RecEdgeMethod: transect.RecEdgeFixed,
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr bool
	}{
		{"complete", func(*Settings) {}, false},
		{"bad nav reference", func(s *Settings) { s.Navigation.Reference = "DGPS" }, true},
		{"bad depth reference", func(s *Settings) { s.Depth.Reference = "" }, true},
		{"unset filter mode", func(s *Settings) { s.WaterFilters.Diff = "" }, true},
		{"manual diff without threshold", func(s *Settings) {
			s.BoatFilters.Diff = transect.FilterManual
			s.BoatFilters.DiffThreshold = math.NaN()
		}, true},
		{"manual diff with threshold", func(s *Settings) {
			s.BoatFilters.Diff = transect.FilterManual
			s.BoatFilters.DiffThreshold = 0.5
		}, false},
		{"unset interpolation", func(s *Settings) { s.Interpolation.WaterCells = "" }, true},
		{"incomplete depth", func(s *Settings) { s.Depth.AvgMethod = "" }, true},
		{"incomplete edges", func(s *Settings) { s.Edges.VelMethod = "" }, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := complete()
			tc.mutate(&s)
			err := s.Validate()
			if tc.wantErr && err == nil {
				t.Fatal("expected error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
