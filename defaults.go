package testframe

import (
	"time"

	"github.com/skodjob/test-frame-sub000/internal/core"
)

// Default configuration values for NewSessionConfig and LoadConfig.
// Exported so callers can build configurations relative to them.
const (
	// DefaultCreateNamespaces makes the session create declared namespaces
	// that do not exist yet.
	DefaultCreateNamespaces = true

	// DefaultCleanup removes per-test resources after every test.
	DefaultCleanup = CleanupAutomatic

	// DefaultLogStrategy collects diagnostics only when a phase fails.
	DefaultLogStrategy = LogOnFailure

	// DefaultSeparatorChar is repeated DefaultSeparatorLength times to
	// separate the log output of consecutive tests.
	DefaultSeparatorChar = "#"

	// DefaultSeparatorLength is the width of the test separator line.
	DefaultSeparatorLength = 76

	// DefaultPropagationDelay is the pause after creating a namespace before
	// it is read back. Admission webhooks and namespace controllers may add
	// labels during this window.
	DefaultPropagationDelay time.Duration = core.DefaultPropagationDelay

	// ArtifactsEnv names the environment variable that, when set, moves the
	// default log path to $ARTIFACTS/logs.
	ArtifactsEnv = core.ArtifactsEnv
)

// DefaultLogPath returns $ARTIFACTS/logs when ARTIFACTS is set and
// {tmp}/testframe/logs otherwise.
func DefaultLogPath() string {
	return core.DefaultLogPath()
}

// defaultSessionConfig returns a SessionConfig populated with the defaults
// above. LogPath stays empty so the collector resolves it when attaching.
func defaultSessionConfig() *SessionConfig {
	return &SessionConfig{
		CreateNamespaces: DefaultCreateNamespaces,
		Cleanup:          DefaultCleanup,
		LogStrategy:      DefaultLogStrategy,
		SeparatorChar:    DefaultSeparatorChar,
		SeparatorLength:  DefaultSeparatorLength,
	}
}
