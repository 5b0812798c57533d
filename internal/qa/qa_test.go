package qa

import (
	"math"
	"testing"
)

func TestDiagnosticResult(t *testing.T) {
	tests := []struct {
		name  string
		tests []PreMeasurement
		want  string
	}{
		{"no tests", nil, "None"},
		{"clean", []PreMeasurement{{Data: "Beam test PASS\nTemp test PASS"}}, "Pass"},
		{"failures", []PreMeasurement{{Data: "Beam test FAIL\nRAM test FAIL"}}, "2 Failed"},
		{"only last counts", []PreMeasurement{
			{Data: "Beam test FAIL"},
			{Data: "Beam test PASS"},
		}, "Pass"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := DiagnosticResult(tc.tests); got != tc.want {
				t.Errorf("DiagnosticResult() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestParseCompassError(t *testing.T) {
	tests := []struct {
		name      string
		data      string
		wantValue float64
		wantFound bool
	}{
		{
			"streampro layout",
			"Calibration complete\nTypical Heading Error: <2.0 degrees\n",
			2.0, true,
		},
		{
			"rio grande layout",
			"evaluation\n>>> Total error: 1.4 deg <<<\n",
			1.4, true,
		},
		{
			"no marker",
			"calibration finished without summary",
			0, false,
		},
		{
			"marker without figure",
			"Typical Heading Error: <unknown",
			0, false,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseCompassError(tc.data)
			if got.Found != tc.wantFound {
				t.Fatalf("ParseCompassError() found = %v, want %v", got.Found, tc.wantFound)
			}
			if got.Found && math.Abs(got.Value-tc.wantValue) > 1e-9 {
				t.Errorf("ParseCompassError() value = %v, want %v", got.Value, tc.wantValue)
			}
		})
	}
}

func TestCompassResult(t *testing.T) {
	tests := []struct {
		name  string
		evals []PreMeasurement
		want  string
	}{
		{"no evaluations", nil, "No"},
		{"unparsable evaluation", []PreMeasurement{{Data: "evaluation recorded"}}, "Yes"},
		{"parsed error", []PreMeasurement{{Data: ">>> Total error: 0.8 deg"}}, "Max 0.8"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := CompassResult(tc.evals); got != tc.want {
				t.Errorf("CompassResult() = %q, want %q", got, tc.want)
			}
		})
	}
}
