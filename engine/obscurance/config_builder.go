package obscurance

// ConfigBuilderOption is a functional option applied to an EffectConfig by NewEffectConfig.
type ConfigBuilderOption func(*EffectConfig)

// WithIntensity sets the occlusion intensity.
//
// Parameters:
//   - intensity: the output scaling factor, negative values read back as 0
//
// Returns:
//   - ConfigBuilderOption: a function that sets the intensity
func WithIntensity(intensity float32) ConfigBuilderOption {
	return func(c *EffectConfig) {
		c.Intensity = intensity
	}
}

// WithRadius sets the sampling radius in view-space units.
//
// Parameters:
//   - radius: the sampling radius, floored at RadiusEpsilon on read
//
// Returns:
//   - ConfigBuilderOption: a function that sets the radius
func WithRadius(radius float32) ConfigBuilderOption {
	return func(c *EffectConfig) {
		c.Radius = radius
	}
}

// WithEstimator sets the occlusion heuristic.
//
// Parameters:
//   - mode: EstimatorAngleBased or EstimatorDistanceBased
//
// Returns:
//   - ConfigBuilderOption: a function that sets the estimator
func WithEstimator(mode EstimatorMode) ConfigBuilderOption {
	return func(c *EffectConfig) {
		c.Estimator = mode
	}
}

// WithSampleDensity sets the sample density tier.
//
// Parameters:
//   - density: a fixed tier or SampleDensityVariable
//
// Returns:
//   - ConfigBuilderOption: a function that sets the sample density
func WithSampleDensity(density SampleDensity) ConfigBuilderOption {
	return func(c *EffectConfig) {
		c.SampleDensity = density
	}
}

// WithSampleCount selects SampleDensityVariable with the given per-pixel sample count.
//
// Parameters:
//   - count: the sample count, clamped to [MinSampleCount, MaxSampleCount] on read
//
// Returns:
//   - ConfigBuilderOption: a function that sets the variable sample count
func WithSampleCount(count int) ConfigBuilderOption {
	return func(c *EffectConfig) {
		c.SampleDensity = SampleDensityVariable
		c.SampleCountValue = count
	}
}

// WithBlurIterations sets the number of horizontal and vertical blur pairs.
//
// Parameters:
//   - iterations: the blur pair count, clamped to [0, MaxBlurIterations] on read
//
// Returns:
//   - ConfigBuilderOption: a function that sets the blur iteration count
func WithBlurIterations(iterations int) ConfigBuilderOption {
	return func(c *EffectConfig) {
		c.BlurIterations = iterations
	}
}

// WithDownsample enables half-resolution estimation and blurring.
//
// Parameters:
//   - downsample: true to halve the working resolution
//
// Returns:
//   - ConfigBuilderOption: a function that sets the downsample flag
func WithDownsample(downsample bool) ConfigBuilderOption {
	return func(c *EffectConfig) {
		c.Downsample = downsample
	}
}

// WithAmbientOnly routes the composite into the host's deferred ambient and albedo targets.
//
// Parameters:
//   - ambientOnly: true to composite into the deferred targets
//
// Returns:
//   - ConfigBuilderOption: a function that sets the ambient-only flag
func WithAmbientOnly(ambientOnly bool) ConfigBuilderOption {
	return func(c *EffectConfig) {
		c.AmbientOnly = ambientOnly
	}
}
