package core

import (
	"context"
	"log/slog"
	"strings"
)

// Phase tags the lifecycle phase in which a failure happened.
type Phase string

const (
	PhaseSuiteSetup    Phase = "suite-setup"
	PhaseTestSetup     Phase = "test-setup"
	PhaseTestExecution Phase = "test-execution"
	PhaseTestTeardown  Phase = "test-teardown"
	PhaseSuiteTeardown Phase = "suite-teardown"
)

// String returns the phase tag.
func (p Phase) String() string { return string(p) }

// FailureSuffix returns the diagnostics directory name for a failure:
// "failure-{phase}-{name}" where name is testName lowercased with a trailing
// "()" removed. Path separators become underscores so the suffix stays a
// single directory.
func FailureSuffix(phase Phase, testName string) string {
	name := strings.TrimSuffix(strings.ToLower(testName), "()")
	return sanitizePathElement("failure-" + string(phase) + "-" + name)
}

// SuccessSuffix returns the diagnostics directory name used after a passing
// test when collecting after each test.
func SuccessSuffix(testName string) string {
	return sanitizePathElement("after-each-success-" + testName)
}

// FailureCoordinator turns a phase failure into optional diagnostics and
// optional cleanup. The failure itself is always handed back unchanged.
type FailureCoordinator struct {
	config      func() *SessionConfig
	diagnostics Diagnostics
	cleaner     Cleaner
}

// NewFailureCoordinator returns a coordinator reading the current
// configuration through config.
func NewFailureCoordinator(config func() *SessionConfig, diagnostics Diagnostics, cleaner Cleaner) *FailureCoordinator {
	return &FailureCoordinator{config: config, diagnostics: diagnostics, cleaner: cleaner}
}

// SuiteSetupFailed handles a failure during suite setup.
func (f *FailureCoordinator) SuiteSetupFailed(ctx context.Context, suiteName string, err error) error {
	return f.Handle(ctx, PhaseSuiteSetup, suiteName, err)
}

// TestSetupFailed handles a failure during test setup.
func (f *FailureCoordinator) TestSetupFailed(ctx context.Context, testName string, err error) error {
	return f.Handle(ctx, PhaseTestSetup, testName, err)
}

// TestFailed handles a failure of the test body.
func (f *FailureCoordinator) TestFailed(ctx context.Context, testName string, err error) error {
	return f.Handle(ctx, PhaseTestExecution, testName, err)
}

// TestTeardownFailed handles a failure during test teardown.
func (f *FailureCoordinator) TestTeardownFailed(ctx context.Context, testName string, err error) error {
	return f.Handle(ctx, PhaseTestTeardown, testName, err)
}

// SuiteTeardownFailed handles a failure during suite teardown.
func (f *FailureCoordinator) SuiteTeardownFailed(ctx context.Context, suiteName string, err error) error {
	return f.Handle(ctx, PhaseSuiteTeardown, suiteName, err)
}

// Handle collects diagnostics when the log strategy asks for it, runs
// cleanup when the policy is automatic, and returns err as given. Neither
// side effect can change what the caller observes.
func (f *FailureCoordinator) Handle(ctx context.Context, phase Phase, testName string, err error) error {
	var cfg *SessionConfig
	if f.config != nil {
		cfg = f.config()
	}
	if cfg == nil {
		Logger().Debug("no session configuration, skipping failure handling", "phase", phase, "test", testName)
		return err
	}

	log := Logger().With("phase", phase.String(), "test", testName)
	log.Info("handling failure", "error", err)

	if cfg.CollectsOnFailure() && f.diagnostics != nil {
		guard(log, "failure diagnostics", func() {
			f.diagnostics.CollectLogs(ctx, FailureSuffix(phase, testName))
		})
	}
	if cfg.Cleanup == CleanupAutomatic && f.cleaner != nil {
		guard(log, "cleanup after failure", func() {
			if cleanErr := f.cleaner.Cleanup(ctx); cleanErr != nil {
				log.Warn("cleanup after failure failed", "error", cleanErr)
			}
		})
	}
	return err
}

// guard runs fn and logs a panic instead of propagating it.
func guard(log *slog.Logger, what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn(what+" panicked", "panic", r)
		}
	}()
	fn()
}
