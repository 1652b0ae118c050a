package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-ao/engine/obscurance"
	"github.com/Carmen-Shannon/oxy-ao/engine/profiler"
	"github.com/Carmen-Shannon/oxy-ao/engine/window"
)

// Presenter is the part of a renderer the engine drives once per frame.
type Presenter interface {
	// ExecuteStage replays every command list attached at a stage.
	//
	// Parameters:
	//   - stage: the stage to replay
	//   - source: the frame's source surface
	//   - destination: the frame's destination surface
	//
	// Returns:
	//   - error: error if a replayed command failed
	ExecuteStage(stage obscurance.Stage, source, destination obscurance.Surface) error

	// Flush submits all recorded work.
	//
	// Returns:
	//   - error: error if submission failed
	Flush() error

	// Present shows a surface on screen.
	//
	// Parameters:
	//   - s: the surface to present
	//
	// Returns:
	//   - error: error if the surface could not be presented
	Present(s obscurance.Surface) error

	// Resize reconfigures the presentation surface.
	//
	// Parameters:
	//   - width: new width in pixels
	//   - height: new height in pixels
	Resize(width, height int)
}

// engine implements the Engine interface.
// Coordinates engine, render, and window threads.
type engine struct {
	mu              *sync.Mutex
	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	window window.Window

	profiler         *profiler.Profiler
	profilingEnabled bool

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	renderCallback func(deltaTime float32)

	presenter   Presenter
	effect      obscurance.Effect
	stage       obscurance.Stage
	source      obscurance.Surface
	destination obscurance.Surface
	frameErr    error

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
}

// Engine is the main entry point for the engine.
// It orchestrates the engine loop, render loop, and window management.
type Engine interface {
	// Window returns the underlying window, or nil when running without one.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Effect returns the obscurance effect driven by the render loop.
	//
	// Returns:
	//   - obscurance.Effect: the effect, or nil if none was configured
	Effect() obscurance.Effect

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in frames per second.
	// The tick callback will be called at this rate for input and parameter updates.
	//
	// Parameters:
	//   - fps: target frames per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called after each rendered frame.
	//
	// Parameters:
	//   - callback: function to call each render frame, receiving the delta time in seconds
	SetRenderCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// SetFrame replaces the surfaces the effect reads from and writes to.
	// The destination surface is the one presented each frame.
	//
	// Parameters:
	//   - source: the lit colour surface
	//   - destination: the surface receiving the effect's output
	SetFrame(source, destination obscurance.Surface)

	// Run enables the effect and starts the engine loops. With a window it blocks until the window
	// closes; without one it blocks until Quit is called. The window is left open for the caller
	// to close once the renderer has been released.
	//
	// Returns:
	//   - error: error if no presenter is set, or the first submission or presentation error that stopped the loop
	Run() error

	// Quit signals all engine goroutines to stop and shuts down the engine.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

// NewEngine creates a new Engine instance with the provided options.
// Initializes message channels and profiler with sensible defaults.
// Options are applied directly to the engine struct via the option-builder pattern.
//
// Parameters:
//   - options: functional options for engine configuration (profiling, tick rate, effect, etc.)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		mu:               &sync.Mutex{},
		tickRateChannel:  make(chan time.Duration, 1),
		quitChannel:      make(chan struct{}),
		running:          false,
		wg:               sync.WaitGroup{},
		profiler:         profiler.NewProfiler(),
		profilingEnabled: false,
		engineTickRate:   time.Second / 60,
		stage:            obscurance.StageBeforeReflections,
	}

	for _, opt := range options {
		opt(e)
	}

	if e.window != nil {
		e.window.SetResizeCallback(func(width, height int) {
			if e.presenter != nil && width > 0 && height > 0 {
				e.presenter.Resize(width, height)
			}
		})
	}

	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Effect() obscurance.Effect {
	return e.effect
}

func (e *engine) Run() error {
	if e.presenter == nil {
		return errors.New("engine has no presenter")
	}
	if e.effect != nil {
		// an unavailable program is retried by the effect each frame; frames pass through meanwhile
		if err := e.effect.OnEnable(); err != nil {
			obscurance.Logger().Warn("effect enabled without its program", "err", err)
		}
	}

	e.running = true
	e.handle()
	if e.window != nil {
		e.window.ProcessMessages()
		e.signalQuit()
	}
	e.wg.Wait()
	e.running = false

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frameErr
}

// Quit signals all engine goroutines to stop and shuts down the engine.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
		if e.window != nil {
			e.window.RequestClose()
		}
	})
}

// handle launches the engine, render, and quit goroutines.
// Each goroutine is tracked by the engine's WaitGroup.
func (e *engine) handle() {
	e.wg.Add(3)
	go e.handleEngine()
	go e.handleRender()
	go e.handleQuit()
}

// handleEngine runs the fixed-rate engine tick loop in its own goroutine.
// Fires the tick callback at the configured tick rate and listens for dynamic rate changes
// via tickRateChannel. Exits when the quit channel is closed.
func (e *engine) handleEngine() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			if e.tickCallback != nil {
				e.tickCallback(dt)
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		}
	}
}

// handleRender runs the uncapped (or frame-limited) render loop in its own goroutine.
// Each frame replays the effect's stage, runs the effect's frame callback, submits and presents.
// The effect is disabled when the loop exits. Recovers from panics to avoid crashing the process
// and signals quit on recovery.
func (e *engine) handleRender() {
	defer e.wg.Done()
	defer func() {
		if e.effect != nil {
			e.effect.OnDisable()
		}
	}()
	// Recover from panics inside the render goroutine to avoid crashing the whole process.
	defer func() {
		if r := recover(); r != nil {
			obscurance.Logger().Error("render goroutine recovered from panic", "panic", r)
			e.setFrameErr(fmt.Errorf("render goroutine panicked: %v", r))
			e.signalQuit()
		}
	}()

	lastRender := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		default:
			now := time.Now()
			dt := float32(now.Sub(lastRender).Seconds())
			lastRender = now

			if err := e.renderFrame(); err != nil {
				obscurance.Logger().Error("frame failed", "err", err)
				e.setFrameErr(err)
				e.signalQuit()
				return
			}

			if e.renderCallback != nil {
				e.renderCallback(dt)
			}

			if e.profilingEnabled && e.profiler != nil && e.effect != nil {
				e.profiler.Tick(e.effect.Stats())
			}

			// Frame rate limiting
			if e.renderFrameLimit > 0 {
				elapsed := time.Since(lastRender)
				if remaining := e.renderFrameLimit - elapsed; remaining > 0 {
					time.Sleep(remaining)
				}
			}
		}
	}
}

// renderFrame runs one frame: stage replay, effect callback, submission and presentation.
// Frames without surfaces are skipped. Replay failures are logged; only submission and
// presentation failures are returned.
func (e *engine) renderFrame() error {
	e.mu.Lock()
	source, destination := e.source, e.destination
	e.mu.Unlock()

	if !source.Valid() || !destination.Valid() {
		return nil
	}

	// OnFrame still fills the destination after a failed replay
	if err := e.presenter.ExecuteStage(e.stage, source, destination); err != nil {
		obscurance.Logger().Warn("stage replay failed", "stage", e.stage, "err", err)
	}
	if e.effect != nil {
		e.effect.OnFrame(source, destination)
	}
	if err := e.presenter.Flush(); err != nil {
		return fmt.Errorf("failed to flush frame: %w", err)
	}
	if err := e.presenter.Present(destination); err != nil {
		return fmt.Errorf("failed to present frame: %w", err)
	}
	return nil
}

func (e *engine) setFrameErr(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.frameErr == nil {
		e.frameErr = err
	}
}

// handleQuit blocks until the quit channel is closed, then decrements the WaitGroup.
func (e *engine) handleQuit() {
	defer e.wg.Done()
	<-e.quitChannel
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

// SetTickRate sets the engine tick rate in frames per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Second / time.Duration(fps)

	if e.running {
		// Non-blocking send - if channel is full, replace the pending value
		select {
		case e.tickRateChannel <- newRate:
		default:
			select {
			case <-e.tickRateChannel:
			default:
			}
			e.tickRateChannel <- newRate
		}
	} else {
		e.engineTickRate = newRate
	}
}

// SetTickCallback registers the function called each engine tick.
func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

// SetRenderCallback registers the function called each render frame.
func (e *engine) SetRenderCallback(callback func(deltaTime float32)) {
	e.renderCallback = callback
}

// SetRenderFrameLimit sets an optional render frame rate cap.
// Pass 0 to uncap the render loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Second / time.Duration(fps)
}

func (e *engine) SetFrame(source, destination obscurance.Surface) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.source = source
	e.destination = destination
}
