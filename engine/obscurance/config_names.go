package obscurance

import (
	"fmt"
	"strings"
)

var estimatorNames = [...]string{
	EstimatorAngleBased:    "angle",
	EstimatorDistanceBased: "distance",
}

var sampleDensityNames = [...]string{
	SampleDensityLowest:   "lowest",
	SampleDensityLow:      "low",
	SampleDensityMedium:   "medium",
	SampleDensityHigh:     "high",
	SampleDensityVariable: "variable",
}

func (m EstimatorMode) String() string {
	if m >= 0 && int(m) < len(estimatorNames) {
		return estimatorNames[m]
	}
	return fmt.Sprintf("EstimatorMode(%d)", int(m))
}

func (d SampleDensity) String() string {
	if d >= 0 && int(d) < len(sampleDensityNames) {
		return sampleDensityNames[d]
	}
	return fmt.Sprintf("SampleDensity(%d)", int(d))
}

// ParseEstimatorMode returns the estimator named by s ("angle" or "distance", case-insensitive).
//
// Parameters:
//   - s: the estimator name
//
// Returns:
//   - EstimatorMode: the named estimator
//   - error: ErrInvalidConfiguration if the name is unknown
func ParseEstimatorMode(s string) (EstimatorMode, error) {
	for i, name := range estimatorNames {
		if strings.EqualFold(s, name) {
			return EstimatorMode(i), nil
		}
	}
	return 0, fmt.Errorf("unknown estimator %q: %w", s, ErrInvalidConfiguration)
}

// ParseSampleDensity returns the density tier named by s ("lowest" to "high", or "variable").
//
// Parameters:
//   - s: the tier name
//
// Returns:
//   - SampleDensity: the named tier
//   - error: ErrInvalidConfiguration if the name is unknown
func ParseSampleDensity(s string) (SampleDensity, error) {
	for i, name := range sampleDensityNames {
		if strings.EqualFold(s, name) {
			return SampleDensity(i), nil
		}
	}
	return 0, fmt.Errorf("unknown sample density %q: %w", s, ErrInvalidConfiguration)
}
