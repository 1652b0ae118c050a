package obscurance

// EffectBuilderOption is a functional option for configuring an Effect.
type EffectBuilderOption func(*effect)

// WithConfig sets the initial parameter set of the effect.
//
// Parameters:
//   - cfg: the parameter set
//
// Returns:
//   - EffectBuilderOption: option function to apply
func WithConfig(cfg EffectConfig) EffectBuilderOption {
	return func(e *effect) {
		e.cfg = cfg
	}
}

// WithFusedFastPath enables or disables the single-dispatch estimate+combine variant for plans
// without blur or downsampling. It is enabled by default.
//
// Parameters:
//   - enabled: if true, eligible plans run as one PassEstimateCombine draw
//
// Returns:
//   - EffectBuilderOption: option function to apply
func WithFusedFastPath(enabled bool) EffectBuilderOption {
	return func(e *effect) {
		e.fuse = enabled
	}
}

// WithStage sets the host stage the deferred command list is attached to.
//
// Parameters:
//   - stage: the replay point (default StageBeforeReflections)
//
// Returns:
//   - EffectBuilderOption: option function to apply
func WithStage(stage Stage) EffectBuilderOption {
	return func(e *effect) {
		if stage != "" {
			e.stage = stage
		}
	}
}

// WithProgramName sets the registry name used to load the occlusion program.
//
// Parameters:
//   - name: the logical program name (default ProgramName)
//
// Returns:
//   - EffectBuilderOption: option function to apply
func WithProgramName(name string) EffectBuilderOption {
	return func(e *effect) {
		if name != "" {
			e.programName = name
		}
	}
}
