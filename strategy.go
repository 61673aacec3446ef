package testframe

import "github.com/skodjob/test-frame-sub000/internal/core"

// CleanupPolicy controls whether per-test resources are removed
// automatically. See CleanupAutomatic and CleanupManual.
type CleanupPolicy = core.CleanupPolicy

const (
	// CleanupAutomatic deletes resources created by a test after it ends and
	// whenever a lifecycle phase fails.
	CleanupAutomatic = core.CleanupAutomatic

	// CleanupManual leaves per-test resources in place. Namespaces the
	// session created are still removed at suite end.
	CleanupManual = core.CleanupManual
)

// LogStrategy controls when diagnostics are collected.
type LogStrategy = core.LogStrategy

const (
	// LogNever disables collection.
	LogNever = core.LogNever

	// LogOnFailure collects whenever a lifecycle phase fails.
	LogOnFailure = core.LogOnFailure

	// LogAfterEach collects on failure and after every successful test.
	LogAfterEach = core.LogAfterEach
)

// Phase names the lifecycle phase in which a failure occurred. It is part of
// the diagnostics directory name ("failure-{phase}-{test}").
type Phase = core.Phase

const (
	PhaseSuiteSetup    = core.PhaseSuiteSetup
	PhaseTestSetup     = core.PhaseTestSetup
	PhaseTestExecution = core.PhaseTestExecution
	PhaseTestTeardown  = core.PhaseTestTeardown
	PhaseSuiteTeardown = core.PhaseSuiteTeardown
)

// Scope selects when an injector runs.
type Scope = core.Scope

const (
	// ScopeSuite injectors run once, at the end of SetupSuite.
	ScopeSuite = core.ScopeSuite

	// ScopeTest injectors run at the end of every SetupTest.
	ScopeTest = core.ScopeTest
)
