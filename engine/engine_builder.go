package engine

import (
	"time"

	"github.com/Carmen-Shannon/oxy-ao/engine/obscurance"
	"github.com/Carmen-Shannon/oxy-ao/engine/profiler"
	"github.com/Carmen-Shannon/oxy-ao/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithProfiler replaces the default profiler.
//
// Parameters:
//   - p: the profiler to tick each frame
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiler(p *profiler.Profiler) EngineBuilderOption {
	return func(e *engine) {
		e.profiler = p
	}
}

// WithTickRate sets the engine tick rate in frames per second.
// Values <= 0 will be treated as the default (60Hz).
//
// Parameters:
//   - fps: target ticks per second (default 60)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			fps = 60.0
		}
		e.engineTickRate = time.Second / time.Duration(fps)
	}
}

// WithWindow sets the window whose message loop Run blocks on and whose resizes reach the presenter.
//
// Parameters:
//   - w: a pre-configured Window instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithPresenter sets the renderer the render loop replays, flushes and presents through.
//
// Parameters:
//   - p: the presenter, typically a renderer.Renderer
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithPresenter(p Presenter) EngineBuilderOption {
	return func(e *engine) {
		e.presenter = p
	}
}

// WithEffect sets the obscurance effect driven by the render loop.
//
// Parameters:
//   - effect: the effect to enable on Run and disable on quit
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithEffect(effect obscurance.Effect) EngineBuilderOption {
	return func(e *engine) {
		e.effect = effect
	}
}

// WithStage sets the stage replayed before the effect's frame callback.
// The stage should match the one the effect attaches its command list to.
//
// Parameters:
//   - stage: the stage name (default obscurance.StageBeforeReflections)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithStage(stage obscurance.Stage) EngineBuilderOption {
	return func(e *engine) {
		e.stage = stage
	}
}

// WithFrame sets the initial source and destination surfaces.
//
// Parameters:
//   - source: the lit colour surface
//   - destination: the surface receiving the effect's output
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithFrame(source, destination obscurance.Surface) EngineBuilderOption {
	return func(e *engine) {
		e.source = source
		e.destination = destination
	}
}

// WithRenderFrameLimit sets an optional render frame rate cap in frames per second.
// Pass 0 to uncap the render loop (default).
//
// Parameters:
//   - fps: maximum render frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			e.renderFrameLimit = 0
			return
		}
		e.renderFrameLimit = time.Second / time.Duration(fps)
	}
}
