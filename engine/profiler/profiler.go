package profiler

import (
	"log/slog"
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-ao/engine/obscurance"
)

// Profiler tracks frame rate, memory and obscurance statistics for performance monitoring.
// Outputs stats through slog at a configurable interval.
type Profiler struct {
	logger         *slog.Logger
	frameCount     int
	passCount      int
	fusedFrames    int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	last           obscurance.FrameStats
}

// NewProfiler creates a new Profiler. Update interval defaults to 1 second and output goes to
// the obscurance logger.
//
// Parameters:
//   - options: functional options for the profiler
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerOption) *Profiler {
	p := &Profiler{
		lastTime:       time.Now(),
		updateInterval: time.Second,
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

// Tick should be called once per frame with the effect's statistics for that frame.
// Logs performance statistics when the update interval has elapsed: FPS, passes per frame,
// strategy, rebuild and fallback counters, heap usage, allocation rate and GC pauses.
//
// Parameters:
//   - stats: the statistics of the frame just rendered
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick(stats obscurance.FrameStats) bool {
	p.frameCount++
	p.passCount += stats.Passes
	if stats.Fused {
		p.fusedFrames++
	}
	p.last = stats

	currentTime := time.Now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}
	seconds := max(elapsed.Seconds(), 1e-9)

	runtime.ReadMemStats(&p.memStats)
	allocMB := float64(p.memStats.Alloc) / 1024 / 1024
	sysMB := float64(p.memStats.Sys) / 1024 / 1024
	allocRateMB := float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / seconds

	gcCount := p.memStats.NumGC
	var lastPauseUs, maxPauseUs uint64
	if gcCount > 0 {
		// PauseNs is a circular buffer of the last 256 pauses
		lastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000
		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			maxPauseUs = max(maxPauseUs, p.memStats.PauseNs[i%256]/1000)
		}
	}

	p.log().Info("profiler",
		slog.Float64("fps", float64(p.frameCount)/seconds),
		slog.Float64("passes_per_frame", float64(p.passCount)/float64(p.frameCount)),
		slog.Int("fused_frames", p.fusedFrames),
		slog.String("strategy", p.last.Strategy.String()),
		slog.Bool("passthrough", p.last.Passthrough),
		slog.Uint64("rebuilds", p.last.Rebuilds),
		slog.Uint64("fallbacks", p.last.Fallbacks),
		slog.Float64("heap_mb", allocMB),
		slog.Float64("alloc_mb_per_s", allocRateMB),
		slog.Uint64("gc", uint64(gcCount)),
		slog.Uint64("gc_last_us", lastPauseUs),
		slog.Uint64("gc_max_us", maxPauseUs),
		slog.Float64("sys_mb", sysMB),
	)

	p.frameCount = 0
	p.passCount = 0
	p.fusedFrames = 0
	p.lastTime = currentTime
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}

func (p *Profiler) log() *slog.Logger {
	if p.logger != nil {
		return p.logger
	}
	return obscurance.Logger()
}
