// Package stats provides missing-value-aware aggregation helpers used
// across the processing pipeline. All functions skip NaN entries and
// return NaN when no finite values remain.
package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// finite returns the finite entries of data.
func finite(data []float64) []float64 {
	out := make([]float64, 0, len(data))
	for _, v := range data {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}

// Mean is the arithmetic mean of the finite entries of data.
func Mean(data []float64) float64 {
	f := finite(data)
	if len(f) == 0 {
		return math.NaN()
	}
	return stat.Mean(f, nil)
}

// Std is the sample standard deviation of the finite entries of data.
func Std(data []float64) float64 {
	f := finite(data)
	if len(f) < 2 {
		return math.NaN()
	}
	return stat.StdDev(f, nil)
}

// Sum adds the finite entries of data. An all-missing input sums to 0,
// matching the ignore-missing semantics of the aggregation layer.
func Sum(data []float64) float64 {
	var s float64
	for _, v := range data {
		if !math.IsNaN(v) {
			s += v
		}
	}
	return s
}

// Max is the largest finite entry of data.
func Max(data []float64) float64 {
	m := math.NaN()
	for _, v := range data {
		if math.IsNaN(v) {
			continue
		}
		if math.IsNaN(m) || v > m {
			m = v
		}
	}
	return m
}

// Min is the smallest finite entry of data.
func Min(data []float64) float64 {
	m := math.NaN()
	for _, v := range data {
		if math.IsNaN(v) {
			continue
		}
		if math.IsNaN(m) || v < m {
			m = v
		}
	}
	return m
}

// Median is the 50th percentile of the finite entries of data.
func Median(data []float64) float64 {
	return Percentile(data, 50)
}

// Percentile computes the p-th percentile (0-100) of the finite entries
// of data using linear interpolation between closest ranks.
func Percentile(data []float64, p float64) float64 {
	f := finite(data)
	if len(f) == 0 {
		return math.NaN()
	}
	sort.Float64s(f)
	return stat.Quantile(p/100, stat.LinInterp, f, nil)
}

// CV is the coefficient of variation of the finite entries of data,
// expressed as a percentage of the mean.
func CV(data []float64) float64 {
	m := Mean(data)
	if math.IsNaN(m) || m == 0 {
		return math.NaN()
	}
	return Std(data) / math.Abs(m) * 100
}

// AzimuthDeg converts a velocity vector to a compass azimuth in
// [0, 360) degrees, measured clockwise from north.
func AzimuthDeg(east, north float64) float64 {
	deg := math.Atan2(east, north) * 180 / math.Pi
	if deg < 0 {
		deg += 360
	}
	return deg
}

// UnitVector converts a compass azimuth in degrees to east and north
// unit-vector components.
func UnitVector(azimuthDeg float64) (east, north float64) {
	rad := azimuthDeg * math.Pi / 180
	return math.Sin(rad), math.Cos(rad)
}

// VectorMeanDeg is the vector average of compass azimuths in degrees,
// immune to the 0/360 discontinuity. Missing entries are skipped.
func VectorMeanDeg(azimuths []float64) float64 {
	var e, n float64
	var count int
	for _, a := range azimuths {
		if math.IsNaN(a) {
			continue
		}
		east, north := UnitVector(a)
		e += east
		n += north
		count++
	}
	if count == 0 {
		return math.NaN()
	}
	return AzimuthDeg(e/float64(count), n/float64(count))
}
