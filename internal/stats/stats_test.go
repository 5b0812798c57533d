package stats

import (
	"math"
	"testing"
)

func TestMissingValueHandling(t *testing.T) {
	nan := math.NaN()
	data := []float64{1, nan, 3, math.Inf(1), 2}

	if got := Mean(data); got != 2 {
		t.Errorf("Mean = %v, want 2", got)
	}
	if got := Median(data); got != 2 {
		t.Errorf("Median = %v, want 2", got)
	}
	if got := Max(data); got != 3 {
		t.Errorf("Max = %v, want 3", got)
	}
	if got := Min(data); got != 1 {
		t.Errorf("Min = %v, want 1", got)
	}
	if got := Sum([]float64{1, nan, 3, 2}); got != 6 {
		t.Errorf("Sum = %v, want 6", got)
	}

	empty := []float64{nan, nan}
	if !math.IsNaN(Mean(empty)) || !math.IsNaN(Max(empty)) || !math.IsNaN(Median(empty)) {
		t.Error("all-missing input did not produce NaN")
	}
}

func TestStd(t *testing.T) {
	if got := Std([]float64{2, 4, 4, 4, 5, 5, 7, 9}); math.Abs(got-2.138089935) > 1e-6 {
		t.Errorf("Std = %v", got)
	}
	if !math.IsNaN(Std([]float64{1})) {
		t.Error("single sample Std is not NaN")
	}
}

func TestCV(t *testing.T) {
	if got := CV([]float64{99, 100, 101}); math.Abs(got-1) > 1e-9 {
		t.Errorf("CV = %v, want 1", got)
	}
	if !math.IsNaN(CV([]float64{0, 0})) {
		t.Error("zero-mean CV is not NaN")
	}
}

func TestAzimuth(t *testing.T) {
	tests := []struct {
		east, north float64
		want        float64
	}{
		{0, 1, 0},
		{1, 0, 90},
		{0, -1, 180},
		{-1, 0, 270},
	}
	for _, tt := range tests {
		if got := AzimuthDeg(tt.east, tt.north); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("AzimuthDeg(%v, %v) = %v, want %v", tt.east, tt.north, got, tt.want)
		}
	}
}

func TestVectorMeanDeg(t *testing.T) {
	got := VectorMeanDeg([]float64{350, 10})
	d := math.Mod(got, 360)
	if math.Min(d, 360-d) > 1e-6 {
		t.Errorf("VectorMeanDeg = %v, want 0", got)
	}

	if got := VectorMeanDeg([]float64{90, math.NaN(), 90}); math.Abs(got-90) > 1e-9 {
		t.Errorf("VectorMeanDeg = %v, want 90", got)
	}
}

func TestPercentile(t *testing.T) {
	data := []float64{1, 2, 3, 4, 5}
	if got := Percentile(data, 50); got != 3 {
		t.Errorf("Percentile 50 = %v, want 3", got)
	}
	if got := Percentile(data, 100); got != 5 {
		t.Errorf("Percentile 100 = %v, want 5", got)
	}
}
