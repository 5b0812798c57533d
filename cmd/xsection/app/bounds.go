package app

import "math"

const (
	defaultMinSpeed = 0.0 // m/s
	defaultMaxSpeed = 2.5 // m/s

	// Bins are 0.01 m/s wide; percentile bounds need a minimum
	// population to be meaningful.
	binWidth           = 0.01
	minimumSampleCount = 20
	minimumRangeBins   = 20 // 0.2 m/s
)

// SpeedBounds tracks the speed distribution of a grid and derives the
// color-scale range from its 5th and 95th percentiles, so a few noisy
// cells do not wash out the rest of the section.
type SpeedBounds struct {
	bins       map[int]uint32
	totalCount uint64
	minBin     int
	maxBin     int

	fixedMin *float64
	fixedMax *float64
}

// Bounds is the resolved color-scale range.
type Bounds struct {
	Min  float64 // 5th percentile speed, m/s
	Max  float64 // 95th percentile speed, m/s
	Mean float64
}

func defaultBounds() Bounds {
	return Bounds{
		Min:  defaultMinSpeed,
		Max:  defaultMaxSpeed,
		Mean: (defaultMinSpeed + defaultMaxSpeed) / 2,
	}
}

// NewSpeedBounds creates a tracker. Non-nil min or max pin that end of
// the range instead of the percentile estimate.
func NewSpeedBounds(fixedMin, fixedMax *float64) *SpeedBounds {
	return &SpeedBounds{
		bins:     make(map[int]uint32),
		minBin:   math.MaxInt32,
		maxBin:   math.MinInt32,
		fixedMin: fixedMin,
		fixedMax: fixedMax,
	}
}

func binIndex(speed float64) int {
	return int(math.Floor(speed / binWidth))
}

// Update adds one speed sample.
func (s *SpeedBounds) Update(speed float64) {
	if math.IsNaN(speed) || speed < 0 {
		return
	}

	bin := binIndex(speed)
	s.bins[bin]++
	s.totalCount++

	if bin < s.minBin {
		s.minBin = bin
	}
	if bin > s.maxBin {
		s.maxBin = bin
	}
}

// Current resolves the bounds from the accumulated distribution.
func (s *SpeedBounds) Current() Bounds {
	b := s.percentileBounds()
	if s.fixedMin != nil {
		b.Min = *s.fixedMin
	}
	if s.fixedMax != nil {
		b.Max = *s.fixedMax
	}
	if b.Max <= b.Min {
		b.Max = b.Min + binWidth
	}
	return b
}

func (s *SpeedBounds) percentileBounds() Bounds {
	if s.totalCount < minimumSampleCount {
		return defaultBounds()
	}

	target := s.totalCount * 5 / 100

	var count uint64
	min5th, max95th := s.minBin, s.maxBin
	for bin := s.minBin; bin <= s.maxBin; bin++ {
		count += uint64(s.bins[bin])
		if count >= target {
			min5th = bin
			break
		}
	}
	count = 0
	for bin := s.maxBin; bin >= s.minBin; bin-- {
		count += uint64(s.bins[bin])
		if count >= target {
			max95th = bin
			break
		}
	}

	var sumProduct float64
	for bin, n := range s.bins {
		sumProduct += float64(bin) * float64(n)
	}
	mean := sumProduct / float64(s.totalCount) * binWidth

	if max95th-min5th < minimumRangeBins {
		center := (max95th + min5th) / 2
		min5th = center - minimumRangeBins/2
		max95th = center + minimumRangeBins/2
		if min5th < 0 {
			max95th -= min5th
			min5th = 0
		}
	}

	// Small margin keeps the extremes off the scale ends.
	margin := (max95th - min5th) / 10
	return Bounds{
		Min:  math.Max(0, float64(min5th-margin)*binWidth),
		Max:  float64(max95th+margin) * binWidth,
		Mean: mean,
	}
}
