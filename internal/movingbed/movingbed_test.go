package movingbed

import (
	"math"
	"testing"

	"github.com/openhydro/river-discharge/internal/transect"
)

func TestAutoSelectPrefersStationary(t *testing.T) {
	loop := &Test{Type: TypeLoop, Quality: QualityGood, MovingBed: BedNo, UserValid: true}
	stationary := &Test{Type: TypeStationary, Quality: QualityGood, MovingBed: BedYes, UserValid: true}

	AutoSelect([]*Test{loop, stationary})

	if loop.Selected {
		t.Error("loop test selected despite a good stationary test")
	}
	if !stationary.Selected {
		t.Error("stationary test not selected")
	}
	if !stationary.UseToCorrect {
		t.Error("selected test with a moving bed not flagged for correction")
	}
}

func TestAutoSelectBestQualityWins(t *testing.T) {
	warned := &Test{Type: TypeLoop, Quality: QualityWarnings, MovingBed: BedYes, UserValid: true}
	good := &Test{Type: TypeLoop, Quality: QualityGood, MovingBed: BedNo, UserValid: true}

	AutoSelect([]*Test{warned, good})

	if warned.Selected {
		t.Error("lower quality test selected")
	}
	if !good.Selected {
		t.Error("best quality test not selected")
	}
	if good.UseToCorrect {
		t.Error("test without a moving bed flagged for correction")
	}
}

func TestAutoSelectDisagreementKeepsLast(t *testing.T) {
	first := &Test{Type: TypeStationary, Quality: QualityGood, MovingBed: BedYes, UserValid: true}
	second := &Test{Type: TypeStationary, Quality: QualityGood, MovingBed: BedNo, UserValid: true}

	AutoSelect([]*Test{first, second})

	if first.Selected {
		t.Error("earlier disagreeing test selected")
	}
	if !second.Selected {
		t.Error("last test not selected on disagreement")
	}
}

func TestAutoSelectIgnoresUserInvalid(t *testing.T) {
	invalid := &Test{Type: TypeLoop, Quality: QualityGood, MovingBed: BedYes, UserValid: false}

	AutoSelect([]*Test{invalid})

	if invalid.Selected || invalid.UseToCorrect {
		t.Error("user-invalidated test selected")
	}
}

func TestCorrectionFactor(t *testing.T) {
	applied := &Test{
		Selected: true, UseToCorrect: true, MovingBed: BedYes,
		FlowSpeed: 1.0, MBSpeed: 0.1,
	}

	tests := []struct {
		name   string
		tests  []*Test
		navRef transect.NavSource
		want   float64
	}{
		{"applies for bottom track", []*Test{applied}, transect.NavBottomTrack, 1.0 / 0.9},
		{"gps reference keeps unity", []*Test{applied}, transect.NavGGA, 1},
		{"no tests", nil, transect.NavBottomTrack, 1},
		{"bed speed exceeds flow", []*Test{{
			Selected: true, UseToCorrect: true, MovingBed: BedYes,
			FlowSpeed: 0.1, MBSpeed: 0.2,
		}}, transect.NavBottomTrack, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := CorrectionFactor(tc.tests, tc.navRef)
			if math.Abs(got-tc.want) > 1e-12 {
				t.Errorf("CorrectionFactor() = %v, want %v", got, tc.want)
			}
		})
	}
}
