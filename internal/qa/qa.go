// Package qa holds pre-measurement quality records: instrument system
// tests, compass calibrations and evaluations, and the independent
// temperature check. The records carry free-form instrument text;
// anything scraped from it degrades to "not found" rather than failing.
package qa

import (
	"strconv"
	"strings"
	"time"
)

// PreMeasurement is one raw diagnostic record captured before data
// collection.
type PreMeasurement struct {
	TimeStamp time.Time
	Data      string // raw instrument text
}

// FailCount counts failed checks in a system test transcript.
func (p PreMeasurement) FailCount() int {
	return strings.Count(p.Data, "FAIL")
}

// DiagnosticResult summarizes the most recent system test: "None"
// without a test, "Pass" when clean, otherwise "<n> Failed".
func DiagnosticResult(tests []PreMeasurement) string {
	if len(tests) == 0 {
		return "None"
	}
	failed := tests[len(tests)-1].FailCount()
	if failed == 0 {
		return "Pass"
	}
	return strconv.Itoa(failed) + " Failed"
}

// CompassError is the outcome of scraping a heading-error figure from
// an evaluation transcript. Found is false when neither known text
// layout matched.
type CompassError struct {
	Value float64
	Found bool
}

// ParseCompassError extracts the heading error from a compass
// evaluation. Two layouts exist: "Typical Heading Error: <N" and
// ">>> Total error: N".
func ParseCompassError(data string) CompassError {
	if idx := strings.Index(data, "Typical Heading Error: <"); idx != -1 {
		return parseErrorDigits(data[idx+len("Typical Heading Error: <"):])
	}
	if idx := strings.Index(data, ">>> Total error:"); idx != -1 {
		return parseErrorDigits(data[idx+len(">>> Total error:"):])
	}
	return CompassError{}
}

// parseErrorDigits keeps only digits and the decimal point from the
// first few characters after a matched marker, the way the instrument
// wraps the number in unrelated punctuation.
func parseErrorDigits(s string) CompassError {
	if len(s) > 10 {
		s = s[:10]
	}
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	v, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return CompassError{}
	}
	return CompassError{Value: v, Found: true}
}

// CompassResult renders the calibration summary for reporting: the
// scraped maximum error when one was found, "Yes" when an evaluation
// exists without a parsable figure, "No" otherwise.
func CompassResult(evals []PreMeasurement) string {
	if len(evals) == 0 {
		return "No"
	}
	ce := ParseCompassError(evals[len(evals)-1].Data)
	if !ce.Found {
		return "Yes"
	}
	return "Max " + strconv.FormatFloat(ce.Value, 'f', -1, 64)
}

// TempCheck is the independent temperature verification entered by the
// operator alongside the instrument reading.
type TempCheck struct {
	UserC    float64 // independent thermometer reading
	AdcpC    float64 // instrument reading at the same time
	HasCheck bool
}
