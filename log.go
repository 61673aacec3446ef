package testframe

import (
	"log/slog"

	"github.com/skodjob/test-frame-sub000/internal/core"
)

// SetLogger replaces the package-level logger used by testframe.
// The provided logger should already carry any attributes the caller wants;
// testframe adds per-call attributes such as "context", "namespace" and
// "phase" but no component attribute of its own.
//
// If l is nil, the logger resets to slog.Default() with a
// "component=testframe" attribute, derived again on next use. Call
// SetLogger(nil) after slog.SetDefault() to pick up the change.
//
// SetLogger is safe to call concurrently with running sessions. For a strict
// happens-before guarantee, call it in TestMain before m.Run.
//
// Example:
//
//	testframe.SetLogger(myLogger.With("component", "e2e"))
func SetLogger(l *slog.Logger) {
	core.SetLogger(l)
}
