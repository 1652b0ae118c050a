// Package obscurance implements a screen-space ambient obscurance pipeline: it sequences the
// estimate, blur and combine passes, owns the program and scratch-surface lifetimes, and runs
// the passes either inline every frame or through a persistent command list replayed by the host.
package obscurance

import "github.com/Carmen-Shannon/oxy-ao/common"

// EstimatorMode selects the occlusion heuristic evaluated by the Estimate pass.
type EstimatorMode int

const (
	// EstimatorAngleBased weighs each sample by the angle between the surface normal and the
	// vector to the occluder, attenuated by distance.
	EstimatorAngleBased EstimatorMode = iota

	// EstimatorDistanceBased counts samples that fall behind the depth buffer, with a range check
	// that fades out occluders far outside the sampling radius.
	EstimatorDistanceBased
)

// SampleDensity selects how many samples the Estimate pass takes per pixel.
type SampleDensity int

const (
	// SampleDensityLowest takes 3 samples per pixel.
	SampleDensityLowest SampleDensity = iota
	// SampleDensityLow takes 6 samples per pixel.
	SampleDensityLow
	// SampleDensityMedium takes 12 samples per pixel. This is the default.
	SampleDensityMedium
	// SampleDensityHigh takes 20 samples per pixel.
	SampleDensityHigh
	// SampleDensityVariable uses EffectConfig.SampleCountValue.
	SampleDensityVariable
)

const (
	// RadiusEpsilon is the floor applied to the sampling radius.
	RadiusEpsilon float32 = 1e-4

	// MinSampleCount and MaxSampleCount bound the variable sample count.
	MinSampleCount = 1
	MaxSampleCount = 120

	// MaxBlurIterations is the largest number of horizontal and vertical blur pairs.
	MaxBlurIterations = 4

	// Contrast is the exponent applied to the raw occlusion estimate.
	Contrast float32 = 0.6

	// FallOff is the depth fall-off term added to the distance denominator of each sample.
	FallOff float32 = 1e-4
)

// sampleDensityCounts maps the fixed tiers to their built-in per-pixel sample counts.
var sampleDensityCounts = [...]int{
	SampleDensityLowest: 3,
	SampleDensityLow:    6,
	SampleDensityMedium: 12,
	SampleDensityHigh:   20,
}

// EffectConfig is the parameter set of the obscurance effect.
//
// The raw fields may hold any value; pass construction reads only the Effective accessors,
// which clamp out-of-range values instead of rejecting them.
type EffectConfig struct {
	// Intensity scales the occlusion contribution. Negative values read back as 0.
	Intensity float32
	// Radius is the sampling radius in view-space units. Values below RadiusEpsilon read back as RadiusEpsilon.
	Radius float32
	// Estimator selects the occlusion heuristic.
	Estimator EstimatorMode
	// SampleDensity selects a fixed sample tier or SampleDensityVariable.
	SampleDensity SampleDensity
	// SampleCountValue is the per-pixel sample count used with SampleDensityVariable.
	SampleCountValue int
	// BlurIterations is the number of horizontal and vertical blur pairs, 0 disables denoising.
	BlurIterations int
	// Downsample halves the working resolution of the estimate and blur passes.
	Downsample bool
	// AmbientOnly composites into the host's deferred albedo and ambient targets instead of the colour buffer.
	AmbientOnly bool
}

// NewEffectConfig creates an EffectConfig with default values and applies the given options.
//
// Parameters:
//   - options: functional options applied after the defaults
//
// Returns:
//   - EffectConfig: the configured parameter set
func NewEffectConfig(options ...ConfigBuilderOption) EffectConfig {
	c := EffectConfig{
		Intensity:        1,
		Radius:           0.3,
		Estimator:        EstimatorAngleBased,
		SampleDensity:    SampleDensityMedium,
		SampleCountValue: sampleDensityCounts[SampleDensityMedium],
		BlurIterations:   2,
	}
	for _, opt := range options {
		opt(&c)
	}
	return c
}

// EffectiveIntensity returns the intensity clamped to be non-negative.
//
// Returns:
//   - float32: the intensity used by the passes
func (c EffectConfig) EffectiveIntensity() float32 {
	return max(c.Intensity, 0)
}

// EffectiveRadius returns the radius floored at RadiusEpsilon. It is never zero.
//
// Returns:
//   - float32: the radius used by the passes
func (c EffectConfig) EffectiveRadius() float32 {
	return max(c.Radius, RadiusEpsilon)
}

// EffectiveEstimator returns the estimator, mapping unknown values to EstimatorAngleBased.
//
// Returns:
//   - EstimatorMode: the estimator used by the passes
func (c EffectConfig) EffectiveEstimator() EstimatorMode {
	if c.Estimator == EstimatorDistanceBased {
		return EstimatorDistanceBased
	}
	return EstimatorAngleBased
}

// EffectiveSampleDensity returns the sample density, mapping unknown values to SampleDensityMedium.
//
// Returns:
//   - SampleDensity: the sample density used by the passes
func (c EffectConfig) EffectiveSampleDensity() SampleDensity {
	if c.SampleDensity < SampleDensityLowest || c.SampleDensity > SampleDensityVariable {
		return SampleDensityMedium
	}
	return c.SampleDensity
}

// EffectiveSampleCountValue returns SampleCountValue clamped to [MinSampleCount, MaxSampleCount].
//
// Returns:
//   - int: the clamped variable sample count
func (c EffectConfig) EffectiveSampleCountValue() int {
	return common.Clamp(c.SampleCountValue, MinSampleCount, MaxSampleCount)
}

// EffectiveSampleCount returns the per-pixel sample count: the fixed tier count, or the clamped
// variable count when the density is SampleDensityVariable.
//
// Returns:
//   - int: the number of samples the Estimate pass takes per pixel
func (c EffectConfig) EffectiveSampleCount() int {
	density := c.EffectiveSampleDensity()
	if density == SampleDensityVariable {
		return c.EffectiveSampleCountValue()
	}
	return sampleDensityCounts[density]
}

// EffectiveBlurIterations returns BlurIterations clamped to [0, MaxBlurIterations].
//
// Returns:
//   - int: the number of blur pairs emitted by the sequencer
func (c EffectConfig) EffectiveBlurIterations() int {
	return common.Clamp(c.BlurIterations, 0, MaxBlurIterations)
}
