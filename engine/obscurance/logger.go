package obscurance

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler discards every record and reports itself disabled so callers skip formatting.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(slog.New(nopHandler{}))
}

// SetLogger sets the logger used by the obscurance pipeline and the hosts built on it.
// The default logger discards all output. Passing nil restores the silent default.
//
// Levels used:
//   - slog.LevelDebug: pass plans, rebuilds and command-list recording
//   - slog.LevelInfo: enable and disable
//   - slog.LevelWarn: resource fallbacks
//
// Parameters:
//   - l: the logger to use, or nil
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	loggerPtr.Store(l)
}

// Logger returns the current logger. It is safe for concurrent use.
//
// Returns:
//   - *slog.Logger: the active logger
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
