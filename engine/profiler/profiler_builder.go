package profiler

import (
	"log/slog"
	"time"
)

// ProfilerOption is a functional option for configuring a Profiler.
type ProfilerOption func(*Profiler)

// WithInterval sets how often statistics are logged. Non-positive values log every tick.
//
// Parameters:
//   - d: the logging interval
//
// Returns:
//   - ProfilerOption: option function to apply
func WithInterval(d time.Duration) ProfilerOption {
	return func(p *Profiler) {
		p.updateInterval = max(d, 0)
	}
}

// WithLogger sets the logger statistics are written to.
//
// Parameters:
//   - l: the logger
//
// Returns:
//   - ProfilerOption: option function to apply
func WithLogger(l *slog.Logger) ProfilerOption {
	return func(p *Profiler) {
		p.logger = l
	}
}
