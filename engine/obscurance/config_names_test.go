package obscurance

import (
	"errors"
	"testing"
)

func TestParseEstimatorMode(t *testing.T) {
	for _, mode := range []EstimatorMode{EstimatorAngleBased, EstimatorDistanceBased} {
		got, err := ParseEstimatorMode(mode.String())
		if err != nil || got != mode {
			t.Errorf("ParseEstimatorMode(%q) = %v, %v, want %v", mode.String(), got, err, mode)
		}
	}
	if got, _ := ParseEstimatorMode("Distance"); got != EstimatorDistanceBased {
		t.Errorf("ParseEstimatorMode(%q) = %v, want %v", "Distance", got, EstimatorDistanceBased)
	}
	if _, err := ParseEstimatorMode("cone"); !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("ParseEstimatorMode(%q) error = %v, want %v", "cone", err, ErrInvalidConfiguration)
	}
}

func TestParseSampleDensity(t *testing.T) {
	for d := SampleDensityLowest; d <= SampleDensityVariable; d++ {
		got, err := ParseSampleDensity(d.String())
		if err != nil || got != d {
			t.Errorf("ParseSampleDensity(%q) = %v, %v, want %v", d.String(), got, err, d)
		}
	}
	if _, err := ParseSampleDensity("ultra"); !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("ParseSampleDensity(%q) error = %v, want %v", "ultra", err, ErrInvalidConfiguration)
	}
	if got := SampleDensity(9).String(); got != "SampleDensity(9)" {
		t.Errorf("String() = %q, want %q", got, "SampleDensity(9)")
	}
}
