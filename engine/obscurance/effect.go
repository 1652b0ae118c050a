package obscurance

import (
	"fmt"
	"sync"
)

// FrameStats summarizes the work done by the most recent frame and the effect's lifetime counters.
type FrameStats struct {
	Strategy    StrategyKind
	Passes      int
	Fused       bool
	Passthrough bool

	Rebuilds  uint64
	Fallbacks uint64
}

// effect is the implementation of the Effect interface.
type effect struct {
	mu sync.Mutex

	host        Host
	cfg         EffectConfig
	fuse        bool
	stage       Stage
	programName string

	pool     ResourcePool
	observer ChangeObserver
	strategy executionStrategy
	plan     Plan

	enabled bool
	built   bool
	stats   FrameStats
}

// Effect is the entry point of the obscurance pipeline. The host's scheduler calls OnEnable,
// OnFrame once per rendered frame, and OnDisable.
type Effect interface {
	// OnEnable activates the effect and loads the occlusion program. A load failure is returned
	// but the effect stays enabled and retries on the next frame.
	//
	// Returns:
	//   - error: a wrapped ErrResourceUnavailable if the program could not be loaded
	OnEnable() error

	// OnFrame runs the pipeline from source into destination. It never fails: on any error the
	// destination receives an unmodified copy of the source and the error is logged.
	//
	// Parameters:
	//   - source: the rendered colour surface
	//   - destination: the surface that receives the composited result
	OnFrame(source, destination Surface)

	// OnDisable tears down every resource the effect holds.
	OnDisable()

	// Enabled reports whether the effect is between OnEnable and OnDisable.
	//
	// Returns:
	//   - bool: true if enabled
	Enabled() bool

	// Config returns a copy of the current parameter set.
	//
	// Returns:
	//   - EffectConfig: the parameter set
	Config() EffectConfig

	// SetConfig replaces the parameter set. Structural changes schedule a rebuild.
	//
	// Parameters:
	//   - cfg: the new parameter set
	SetConfig(cfg EffectConfig)

	// SetIntensity sets the occlusion intensity. It takes effect on the next frame without a rebuild.
	//
	// Parameters:
	//   - intensity: the output scaling factor
	SetIntensity(intensity float32)

	// SetRadius sets the sampling radius. It takes effect on the next frame without a rebuild.
	//
	// Parameters:
	//   - radius: the sampling radius in view-space units
	SetRadius(radius float32)

	// SetEstimator sets the occlusion heuristic. It takes effect on the next frame without a rebuild.
	//
	// Parameters:
	//   - mode: the estimator
	SetEstimator(mode EstimatorMode)

	// SetSampleDensity sets the sample tier. It takes effect on the next frame without a rebuild.
	//
	// Parameters:
	//   - density: the sample tier
	SetSampleDensity(density SampleDensity)

	// SetSampleCountValue sets the per-pixel sample count used by SampleDensityVariable.
	//
	// Parameters:
	//   - count: the sample count, clamped on read
	SetSampleCountValue(count int)

	// SetBlurIterations sets the number of blur pairs and schedules a rebuild if the effective value changes.
	//
	// Parameters:
	//   - iterations: the blur pair count, clamped on read
	SetBlurIterations(iterations int)

	// SetDownsample toggles half-resolution processing and schedules a rebuild on change.
	//
	// Parameters:
	//   - enabled: if true, estimate and blur run at half resolution
	SetDownsample(enabled bool)

	// SetAmbientOnly toggles ambient-only output and schedules a rebuild on change.
	//
	// Parameters:
	//   - enabled: if true, the composite targets the deferred ambient and albedo buffers
	SetAmbientOnly(enabled bool)

	// ObserverState returns the rebuild state of the effect's change observer.
	//
	// Returns:
	//   - ObserverState: the current state
	ObserverState() ObserverState

	// Stats returns the statistics of the most recent frame.
	//
	// Returns:
	//   - FrameStats: a copy of the statistics
	Stats() FrameStats
}

var _ Effect = &effect{}

// NewEffect creates a disabled Effect bound to the given host.
//
// Parameters:
//   - host: the renderer the pipeline draws through
//   - options: functional options for the effect
//
// Returns:
//   - Effect: the new effect
func NewEffect(host Host, options ...EffectBuilderOption) Effect {
	if host == nil {
		panic("obscurance: NewEffect requires a host")
	}
	e := &effect{
		host:        host,
		cfg:         NewEffectConfig(),
		fuse:        true,
		stage:       StageBeforeReflections,
		programName: ProgramName,
		observer:    NewChangeObserver(),
	}
	for _, opt := range options {
		opt(e)
	}
	e.pool = NewResourcePool(host, e.programName)
	return e
}

func (e *effect) OnEnable() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.enabled = true
	e.observer.Invalidate()
	Logger().Info("obscurance enabled", "program", e.programName)

	if _, err := e.pool.AcquireProgram(); err != nil {
		Logger().Warn("obscurance program unavailable, retrying on next frame", "err", err)
		return err
	}
	return nil
}

func (e *effect) OnFrame(source, destination Surface) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.enabled {
		e.copyThrough(source, destination)
		return
	}

	caps := e.host.Capabilities()
	snap := SnapshotOf(e.cfg, caps, source.Width, source.Height)
	if e.observer.Observe(snap) == ObserverNeedsRebuild {
		if err := e.rebuild(snap, caps); err != nil {
			Logger().Warn("obscurance rebuild failed, passing frame through", "err", err)
			e.fallback(source, destination)
			return
		}
	} else if e.strategy.kind() == StrategyImmediate {
		// cosmetic values flow through the pass parameters
		e.plan.Build(e.cfg, source.Width, source.Height, caps)
	}

	program, _ := e.pool.Program()
	if !e.plan.Passthrough {
		if err := e.host.PushParameters(program, parametersFor(e.cfg, caps)); err != nil {
			Logger().Warn("obscurance parameter push failed, passing frame through", "err", err)
			e.fallback(source, destination)
			return
		}
	}

	if err := e.strategy.execute(&e.plan, program, source, destination); err != nil {
		Logger().Warn("obscurance frame failed, passing frame through", "strategy", e.strategy.kind(), "err", err)
		e.fallback(source, destination)
		return
	}

	e.stats.Strategy = e.strategy.kind()
	e.stats.Passthrough = e.plan.Passthrough
	e.stats.Fused = e.fuse && e.plan.Fused()
	e.stats.Passes = len(e.plan.Passes)
	if e.stats.Fused {
		e.stats.Passes = 1
	}
}

func (e *effect) OnDisable() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.pool.Teardown()
	e.observer.Invalidate()
	e.strategy = nil
	e.built = false
	e.enabled = false
	Logger().Info("obscurance disabled", "rebuilds", e.stats.Rebuilds, "fallbacks", e.stats.Fallbacks)
}

func (e *effect) Enabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.enabled
}

func (e *effect) Config() EffectConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

func (e *effect) SetConfig(cfg EffectConfig) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if cfg.AmbientOnly != e.cfg.AmbientOnly ||
		cfg.Downsample != e.cfg.Downsample ||
		cfg.EffectiveBlurIterations() != e.cfg.EffectiveBlurIterations() {
		e.observer.Invalidate()
	}
	e.cfg = cfg
}

func (e *effect) SetIntensity(intensity float32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg.Intensity = intensity
}

func (e *effect) SetRadius(radius float32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg.Radius = radius
}

func (e *effect) SetEstimator(mode EstimatorMode) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg.Estimator = mode
}

func (e *effect) SetSampleDensity(density SampleDensity) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg.SampleDensity = density
}

func (e *effect) SetSampleCountValue(count int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg.SampleCountValue = count
}

func (e *effect) SetBlurIterations(iterations int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	prev := e.cfg.EffectiveBlurIterations()
	e.cfg.BlurIterations = iterations
	if e.cfg.EffectiveBlurIterations() != prev {
		e.observer.Invalidate()
	}
}

func (e *effect) SetDownsample(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cfg.Downsample != enabled {
		e.cfg.Downsample = enabled
		e.observer.Invalidate()
	}
}

func (e *effect) SetAmbientOnly(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cfg.AmbientOnly != enabled {
		e.cfg.AmbientOnly = enabled
		e.observer.Invalidate()
	}
}

func (e *effect) ObserverState() ObserverState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.observer.State()
}

func (e *effect) Stats() FrameStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// rebuild tears down the previous build, recomputes the plan, selects the strategy and prepares it.
// On failure nothing is held and the observer stays in NeedsRebuild, so the next frame retries.
func (e *effect) rebuild(snap Snapshot, caps Capabilities) error {
	if e.built {
		e.pool.Teardown()
		e.built = false
	}
	e.strategy = nil

	e.plan.Build(e.cfg, snap.Width, snap.Height, caps)
	if err := e.plan.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}
	if e.cfg.AmbientOnly && e.plan.Passthrough {
		Logger().Debug("ambient-only output unsupported, passing through",
			"path", caps.Path, "hdr", caps.HDR, "err", ErrCapabilityMismatch)
	}

	var program Program
	if !e.plan.Passthrough {
		p, err := e.pool.AcquireProgram()
		if err != nil {
			return err
		}
		program = p
	}

	var strategy executionStrategy
	switch selectStrategy(e.cfg, caps) {
	case StrategyDeferred:
		strategy = newDeferredStrategy(e.host, e.pool, e.stage, e.fuse)
	default:
		strategy = newImmediateStrategy(e.host, e.pool, e.fuse)
	}
	if err := strategy.prepare(&e.plan, program); err != nil {
		e.pool.Teardown()
		return err
	}

	e.strategy = strategy
	e.built = true
	e.observer.MarkStable(snap)
	e.stats.Rebuilds++

	Logger().Debug("obscurance rebuilt",
		"strategy", strategy.kind(),
		"source", fmt.Sprintf("%dx%d", e.plan.SourceWidth, e.plan.SourceHeight),
		"working", fmt.Sprintf("%dx%d", e.plan.WorkingWidth, e.plan.WorkingHeight),
		"passes", len(e.plan.Passes),
		"fused", e.fuse && e.plan.Fused(),
	)
	return nil
}

// fallback copies source into destination after a failed frame.
func (e *effect) fallback(source, destination Surface) {
	e.stats.Fallbacks++
	e.stats.Passes = 0
	e.stats.Fused = false
	e.stats.Passthrough = true
	e.copyThrough(source, destination)
}

func (e *effect) copyThrough(source, destination Surface) {
	if err := e.host.Copy(source, destination); err != nil {
		Logger().Error("obscurance pass-through copy failed", "err", err)
	}
}
