package testframe

import (
	"context"
	"errors"
	"testing"

	"github.com/skodjob/test-frame-sub000/internal/sentinel"
)

// errTestFailed is reported to the failure coordinator when a test marked
// itself failed through the testing package.
const errTestFailed = sentinel.Error("test reported failure")

// Setup creates a Session, runs SetupSuite named after tb and registers
// TeardownSuite with tb.Cleanup. Teardown is registered before a setup
// failure aborts the test, so namespaces created before the failure are
// still removed.
func Setup(tb testing.TB, provider ConfigProvider, opts ...SessionOption) *Session {
	tb.Helper()

	s := NewSession(provider, opts...)
	err := s.SetupSuite(tb.Context(), tb.Name())
	tb.Cleanup(func() {
		// tb.Context is already canceled when cleanup functions run.
		if err := s.TeardownSuite(context.WithoutCancel(tb.Context())); err != nil {
			tb.Errorf("TeardownSuite() error = %v", err)
		}
	})
	if err != nil {
		tb.Fatalf("SetupSuite() error = %v", err)
	}
	return s
}

// Run runs fn as subtest name of t, wrapped in SetupTest and TeardownTest.
// fn receives the primary resource manager. A test that fails is reported
// through TestFailed before teardown, which triggers diagnostics and
// cleanup according to the configuration.
//
// Subtests of one session must not call t.Parallel.
func (s *Session) Run(t *testing.T, name string, fn func(t *testing.T, rm *ResourceManager)) bool {
	t.Helper()
	return t.Run(name, func(t *testing.T) {
		setupErr := s.SetupTest(t.Context(), name)
		if errors.Is(setupErr, ErrInvalidState) {
			t.Fatalf("SetupTest() error = %v", setupErr)
		}
		t.Cleanup(func() {
			ctx := context.WithoutCancel(t.Context())
			if t.Failed() && setupErr == nil {
				_ = s.TestFailed(ctx, name, errTestFailed)
			}
			if err := s.TeardownTest(ctx, name, !t.Failed()); err != nil {
				t.Errorf("TeardownTest() error = %v", err)
			}
		})
		if setupErr != nil {
			t.Fatalf("SetupTest() error = %v", setupErr)
		}

		rm, err := s.ResourceManager(t.Context(), PrimaryContext)
		if err != nil {
			t.Fatalf("ResourceManager() error = %v", err)
		}
		fn(t, rm)
	})
}
