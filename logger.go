package gpustate

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// discard drops every record. Enabled reports false, so slog never builds
// the attributes of a disabled call.
type discard struct{}

func (discard) Enabled(context.Context, slog.Level) bool  { return false }
func (discard) Handle(context.Context, slog.Record) error { return nil }
func (d discard) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discard) WithGroup(string) slog.Handler           { return d }

var (
	silent = slog.New(discard{})
	active atomic.Pointer[slog.Logger]
)

func init() { active.Store(silent) }

// SetLogger sets the logger shared by gpustate and its sub-packages.
// Nothing is logged until it is called; SetLogger(nil) silences output
// again. It may be called while other goroutines are logging.
//
// Levels:
//   - [slog.LevelDebug]: state cache hits and misses, native object creation
//   - [slog.LevelInfo]: device and cache lifecycle
//   - [slog.LevelWarn]: orphaned locks, unmapped unlocks, failed releases
//
// Example:
//
//	gpustate.SetLogger(slog.New(slog.NewTextHandler(os.Stderr,
//	    &slog.HandlerOptions{Level: slog.LevelDebug})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = silent
	}
	active.Store(l)
}

// Logger returns the logger set by SetLogger.
func Logger() *slog.Logger { return active.Load() }

// LoggerOr returns l, or Logger() when l is nil. Components that accept an
// explicit logger use it to fall back to the shared one.
func LoggerOr(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return Logger()
}
