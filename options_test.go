package testframe_test

import (
	"context"
	"fmt"
	"slices"
	"testing"
	"time"

	testframe "github.com/skodjob/test-frame-sub000"
)

// panicTestCase defines a test case for option validation panic tests.
type panicTestCase struct {
	name     string
	panics   bool
	panicMsg string
	fn       func()
}

// requirePanics calls fn and verifies it panics (or not) with the expected message.
func requirePanics(t *testing.T, shouldPanic bool, wantMsg string, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		if shouldPanic && r == nil {
			t.Fatal("expected panic but didn't get one")
		}
		if !shouldPanic && r != nil {
			t.Fatalf("unexpected panic: %v", r)
		}
		if shouldPanic && r != nil {
			if msg := fmt.Sprint(r); msg != wantMsg {
				t.Fatalf("expected panic message %q, got %q", wantMsg, msg)
			}
		}
	}()
	fn()
}

func runPanicTests(t *testing.T, tests []panicTestCase) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			requirePanics(t, tt.panics, tt.panicMsg, tt.fn)
		})
	}
}

func noopInject(context.Context, *testframe.ResourceManager) error { return nil }

func TestSessionOptionsPanicOnInvalid(t *testing.T) {
	t.Parallel()
	runPanicTests(t, []panicTestCase{
		{
			name:     "nil client factory",
			panics:   true,
			panicMsg: "testframe: client factory must not be nil",
			fn:       func() { testframe.WithClientFactory(nil) },
		},
		{
			name:     "nil collector factory",
			panics:   true,
			panicMsg: "testframe: collector factory must not be nil",
			fn:       func() { testframe.WithCollectorFactory(nil) },
		},
		{
			name:     "empty kubeconfig",
			panics:   true,
			panicMsg: "testframe: kubeconfig path must not be empty",
			fn:       func() { testframe.WithKubeconfig("") },
		},
		{
			name:     "negative propagation delay",
			panics:   true,
			panicMsg: "testframe: propagation delay must not be negative, got -1s",
			fn:       func() { testframe.WithPropagationDelay(-time.Second) },
		},
		{
			name:   "zero propagation delay",
			panics: false,
			fn:     func() { testframe.WithPropagationDelay(0) },
		},
		{
			name:     "zero delete poll interval",
			panics:   true,
			panicMsg: "testframe: delete poll interval must be greater than 0, got 0s",
			fn:       func() { testframe.WithDeletePolling(0, time.Minute) },
		},
		{
			name:     "zero delete timeout",
			panics:   true,
			panicMsg: "testframe: delete timeout must be greater than 0, got 0s",
			fn:       func() { testframe.WithDeletePolling(time.Second, 0) },
		},
		{
			name:     "nil injector",
			panics:   true,
			panicMsg: "testframe: injector function must not be nil",
			fn:       func() { testframe.WithInjector(testframe.ScopeTest, "", nil) },
		},
		{
			name:     "unknown injector scope",
			panics:   true,
			panicMsg: "testframe: unknown injector scope 7",
			fn:       func() { testframe.WithInjector(testframe.Scope(7), "", noopInject) },
		},
	})
}

func TestConfigOptionsPanicOnInvalid(t *testing.T) {
	t.Parallel()
	runPanicTests(t, []panicTestCase{
		{
			name:     "empty namespace",
			panics:   true,
			panicMsg: "testframe: namespace name must not be empty",
			fn:       func() { testframe.WithNamespaces("ok", "") },
		},
		{
			name:     "invalid cleanup policy",
			panics:   true,
			panicMsg: "testframe: invalid cleanup policy: CleanupPolicy(5)",
			fn:       func() { testframe.WithCleanup(testframe.CleanupPolicy(5)) },
		},
		{
			name:     "empty context",
			panics:   true,
			panicMsg: "testframe: context name must not be empty",
			fn:       func() { testframe.WithContext("") },
		},
		{
			name:     "empty artifact path",
			panics:   true,
			panicMsg: "testframe: artifact path must not be empty",
			fn:       func() { testframe.WithArtifacts("") },
		},
		{
			name:     "malformed label",
			panics:   true,
			panicMsg: `testframe: namespace labels: malformed entry "team", want key=value`,
			fn:       func() { testframe.WithNamespaceLabels("team") },
		},
		{
			name:     "negative separator",
			panics:   true,
			panicMsg: "testframe: separator length must not be negative, got -1",
			fn:       func() { testframe.WithSeparator("-", -1) },
		},
		{
			name:     "invalid log strategy",
			panics:   true,
			panicMsg: "testframe: invalid log strategy: LogStrategy(9)",
			fn:       func() { testframe.WithLogCollection(testframe.LogStrategy(9)) },
		},
		{
			name:     "empty log path",
			panics:   true,
			panicMsg: "testframe: log path must not be empty",
			fn:       func() { testframe.WithLogPath("") },
		},
		{
			name:     "empty resource kind",
			panics:   true,
			panicMsg: "testframe: resource kind must not be empty",
			fn:       func() { testframe.WithNamespacedResourceKinds("") },
		},
		{
			name:     "mapping without context",
			panics:   true,
			panicMsg: "testframe: context name must not be empty",
			fn:       func() { testframe.WithContextMapping("", nil) },
		},
		{
			name:     "mapping with malformed annotation",
			panics:   true,
			panicMsg: `testframe: mapping annotations: malformed entry "=x", want key=value`,
			fn:       func() { testframe.MappingAnnotations("=x") },
		},
	})
}

func TestApplySessionOptions(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()
		got := testframe.ApplyOptionsForTesting()
		want := testframe.SettingsSnapshot{PropagationDelay: testframe.DefaultPropagationDelay}
		if got != want {
			t.Errorf("ApplyOptionsForTesting() = %+v, want %+v", got, want)
		}
		if !testframe.ResolvedOptionsForTesting() {
			t.Error("ResolvedOptionsForTesting() = false, want default factories")
		}
	})

	t.Run("overrides", func(t *testing.T) {
		t.Parallel()
		got := testframe.ApplyOptionsForTesting(
			testframe.WithKubeconfig("/tmp/kubeconfig"),
			testframe.WithPropagationDelay(0),
			testframe.WithDeletePolling(time.Second, time.Minute),
			testframe.WithInjector(testframe.ScopeSuite, "", noopInject),
			testframe.WithInjector(testframe.ScopeTest, "remote", noopInject),
			testframe.WithCollectorFactory(func(testframe.ClusterClient, testframe.CollectorOptions) (testframe.LogCollector, error) {
				return nil, nil
			}),
		)
		want := testframe.SettingsSnapshot{
			Kubeconfig:    "/tmp/kubeconfig",
			KubeOptions:   1,
			Injectors:     2,
			HasCollectors: true,
		}
		if got != want {
			t.Errorf("ApplyOptionsForTesting() = %+v, want %+v", got, want)
		}
	})
}

func TestNewSessionConfig(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()
		cfg := testframe.NewSessionConfig()
		if !cfg.CreateNamespaces {
			t.Error("CreateNamespaces = false, want true")
		}
		if cfg.Cleanup != testframe.CleanupAutomatic {
			t.Errorf("Cleanup = %v, want %v", cfg.Cleanup, testframe.CleanupAutomatic)
		}
		if cfg.LogStrategy != testframe.LogOnFailure {
			t.Errorf("LogStrategy = %v, want %v", cfg.LogStrategy, testframe.LogOnFailure)
		}
		if cfg.CollectLogs {
			t.Error("CollectLogs = true, want false")
		}
		if cfg.SeparatorChar != "#" || cfg.SeparatorLength != 76 {
			t.Errorf("separator = %q x %d, want %q x %d", cfg.SeparatorChar, cfg.SeparatorLength, "#", 76)
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate() error = %v, want nil", err)
		}
	})

	t.Run("options", func(t *testing.T) {
		t.Parallel()
		cfg := testframe.NewSessionConfig(
			testframe.WithNamespaces("ns1"),
			testframe.WithNamespaces("ns2"),
			testframe.WithCreateNamespaces(false),
			testframe.WithCleanup(testframe.CleanupManual),
			testframe.WithContext("main"),
			testframe.WithArtifacts("/tmp/artifacts"),
			testframe.WithNamespaceLabels("team=qa"),
			testframe.WithNamespaceAnnotations("owner=ci"),
			testframe.WithSeparator("-", 0),
			testframe.WithLogCollection(testframe.LogAfterEach),
			testframe.WithLogPath("/tmp/logs"),
			testframe.WithPreviousLogs(),
			testframe.WithNamespacedResourceKinds("deployments", "configmaps"),
			testframe.WithClusterWideResourceKinds("nodes"),
			testframe.WithContextMapping("remote", []string{"r1"},
				testframe.MappingCreateNamespaces(true),
				testframe.MappingCleanup(testframe.CleanupAutomatic),
				testframe.MappingLabels("team=remote"),
			),
		)

		if !slices.Equal(cfg.Namespaces, []string{"ns1", "ns2"}) {
			t.Errorf("Namespaces = %v, want [ns1 ns2]", cfg.Namespaces)
		}
		if cfg.CreateNamespaces || cfg.Cleanup != testframe.CleanupManual || cfg.Context != "main" {
			t.Errorf("CreateNamespaces/Cleanup/Context = %v/%v/%q, want false/MANUAL/main",
				cfg.CreateNamespaces, cfg.Cleanup, cfg.Context)
		}
		if !cfg.StoreArtifacts || cfg.ArtifactPath != "/tmp/artifacts" {
			t.Errorf("artifacts = %v %q, want true /tmp/artifacts", cfg.StoreArtifacts, cfg.ArtifactPath)
		}
		if !cfg.CollectLogs || cfg.LogStrategy != testframe.LogAfterEach || cfg.LogPath != "/tmp/logs" {
			t.Errorf("log settings = %v/%v/%q, want true/AFTER_EACH//tmp/logs",
				cfg.CollectLogs, cfg.LogStrategy, cfg.LogPath)
		}
		if !cfg.CollectPreviousLogs {
			t.Error("CollectPreviousLogs = false, want true")
		}
		if cfg.SeparatorLength != 0 {
			t.Errorf("SeparatorLength = %d, want 0", cfg.SeparatorLength)
		}

		m, ok := cfg.Mapping("remote")
		if !ok {
			t.Fatal("Mapping(remote) not found")
		}
		if !cfg.EffectiveCreateNamespaces(m) {
			t.Error("EffectiveCreateNamespaces(remote) = false, want true")
		}
		if got := cfg.EffectiveCleanup(m); got != testframe.CleanupAutomatic {
			t.Errorf("EffectiveCleanup(remote) = %v, want AUTOMATIC", got)
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate() error = %v, want nil", err)
		}
	})
}
