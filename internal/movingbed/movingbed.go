// Package movingbed evaluates moving-bed tests and derives the
// discharge correction applied when the boat reference is bottom
// track over a mobile bed.
package movingbed

import (
	"math"

	"github.com/openhydro/river-discharge/internal/transect"
)

// Test types.
const (
	TypeLoop       = "Loop"
	TypeStationary = "Stationary"
)

// Test quality grades, best first.
const (
	QualityGood     = "Good"
	QualityWarnings = "Warnings"
	QualityErrors   = "Errors"
)

// Moving-bed verdicts.
const (
	BedYes     = "Yes"
	BedNo      = "No"
	BedUnknown = "Unknown"
)

// Test is one completed moving-bed test.
type Test struct {
	FileName  string
	Type      string
	Quality   string
	MovingBed string // verdict

	UserValid    bool // operator may invalidate a test entirely
	Selected     bool // chosen to characterize the measurement
	UseToCorrect bool // applied as a discharge correction

	DurationSec      float64
	PercentInvalidBT float64
	CompassDiffDeg   float64 // loop heading closure difference
	FlowDirDeg       float64 // mean flow direction during the test
	MBDirDeg         float64 // apparent bed movement direction
	FlowSpeed        float64 // mean water speed during the test, m/s
	MBSpeed          float64 // apparent bed speed, m/s
	PercentMB        float64
	DistUpstream     float64 // loop closure distance, m

	Messages []string
}

func qualityRank(q string) int {
	switch q {
	case QualityGood:
		return 2
	case QualityWarnings:
		return 1
	default:
		return 0
	}
}

// AutoSelect chooses which tests characterize the measurement.
// User-invalidated tests are excluded, the best quality grade wins,
// stationary tests are preferred over loops, and multiple tests are
// selected together only when their verdicts agree. Selected tests
// with a moving-bed verdict are flagged for correction.
func AutoSelect(tests []*Test) {
	for _, t := range tests {
		t.Selected = false
		t.UseToCorrect = false
	}

	var pool []*Test
	for _, t := range tests {
		if t.UserValid {
			pool = append(pool, t)
		}
	}
	if len(pool) == 0 {
		return
	}

	best := 0
	for _, t := range pool {
		if r := qualityRank(t.Quality); r > best {
			best = r
		}
	}
	var graded []*Test
	for _, t := range pool {
		if qualityRank(t.Quality) == best {
			graded = append(graded, t)
		}
	}

	var stationary []*Test
	for _, t := range graded {
		if t.Type == TypeStationary {
			stationary = append(stationary, t)
		}
	}
	if len(stationary) > 0 {
		graded = stationary
	}

	agree := true
	for _, t := range graded[1:] {
		if t.MovingBed != graded[0].MovingBed {
			agree = false
			break
		}
	}
	if !agree {
		graded = graded[len(graded)-1:]
	}
	for _, t := range graded {
		t.Selected = true
		t.UseToCorrect = t.MovingBed == BedYes
	}
}

// CorrectionFactor returns the scalar applied to bottom-track
// discharge. It is 1 unless the navigation reference is bottom track
// and a selected test both detected a moving bed and is flagged for
// correction.
func CorrectionFactor(tests []*Test, navRef transect.NavSource) float64 {
	if navRef != transect.NavBottomTrack {
		return 1
	}
	var sum float64
	var n int
	for _, t := range tests {
		if !t.Selected || !t.UseToCorrect || t.MovingBed != BedYes {
			continue
		}
		if t.FlowSpeed <= t.MBSpeed || t.FlowSpeed <= 0 ||
			math.IsNaN(t.FlowSpeed) || math.IsNaN(t.MBSpeed) {
			continue
		}
		sum += t.FlowSpeed / (t.FlowSpeed - t.MBSpeed)
		n++
	}
	if n == 0 {
		return 1
	}
	return sum / float64(n)
}
