package testframe

import (
	"context"
	"time"

	"github.com/skodjob/test-frame-sub000/internal/core"
	"github.com/skodjob/test-frame-sub000/internal/kube"
	"github.com/skodjob/test-frame-sub000/internal/logcollector"
	corev1 "k8s.io/api/core/v1"
)

// sessionSettings collects SessionOption values before NewSession builds
// the core session.
type sessionSettings struct {
	clients          ClientFactory
	collectors       CollectorFactory
	kubeconfig       string
	kubeOptions      []kube.Option
	propagationDelay time.Duration
	injectors        []core.Injector
}

func defaultSessionSettings() *sessionSettings {
	return &sessionSettings{
		propagationDelay: DefaultPropagationDelay,
	}
}

// coreOptions resolves the collaborators of the core session, falling back
// to the client-go implementations.
func (s *sessionSettings) coreOptions() core.SessionOptions {
	clients := s.clients
	if clients == nil {
		clients = kube.ClientFactory(s.kubeconfig, s.kubeOptions...)
	}
	collectors := s.collectors
	if collectors == nil {
		collectors = logcollector.Factory()
	}
	return core.SessionOptions{
		Clients:          clients,
		Collectors:       collectors,
		Injectors:        s.injectors,
		PropagationDelay: s.propagationDelay,
	}
}

// Session orchestrates one test suite against one or more cluster contexts.
//
// Callers must follow this lifecycle ordering:
//
//	NewSession → SetupSuite → (SetupTest → TeardownTest)* → TeardownSuite
//
// TestFailed may be called between SetupTest and TeardownTest. Calls out of
// order return ErrInvalidState. A Session drives one suite from one
// goroutine; tests that share it must not run in parallel.
//
// The core session is stored as a named field rather than embedded so that
// callers cannot reach internal methods through type assertions.
type Session struct {
	s *core.Session
}

// NewSession returns a Session that reads its configuration from provider.
// It performs no I/O; the cluster is first contacted by SetupSuite.
//
// Panics if provider is nil.
func NewSession(provider ConfigProvider, opts ...SessionOption) *Session {
	if provider == nil {
		panic("testframe: config provider must not be nil")
	}
	settings := defaultSessionSettings()
	for _, opt := range opts {
		opt(settings)
	}
	return &Session{s: core.NewSession(provider, settings.coreOptions())}
}

// SetupSuite loads and validates the configuration for suiteName, binds the
// primary resource manager and provisions every declared namespace in every
// context. On failure the error has already been routed to diagnostics and
// cleanup; TeardownSuite should still be called.
func (s *Session) SetupSuite(ctx context.Context, suiteName string) error {
	return s.s.SetupSuite(ctx, suiteName)
}

// SetupTest binds every resource manager to testName, logs the separator
// and runs the test-scoped injectors.
func (s *Session) SetupTest(ctx context.Context, testName string) error {
	return s.s.SetupTest(ctx, testName)
}

// TestFailed reports a failure of the running test body. It collects
// diagnostics and cleans up according to the configuration and returns err
// unchanged.
func (s *Session) TestFailed(ctx context.Context, testName string, err error) error {
	return s.s.TestFailed(ctx, testName, err)
}

// TeardownTest ends testName. With automatic cleanup, resources the test
// created are deleted. With the after-each strategy, diagnostics of a
// successful test are collected.
func (s *Session) TeardownTest(ctx context.Context, testName string, succeeded bool) error {
	return s.s.TeardownTest(ctx, testName, succeeded)
}

// TeardownSuite deletes remaining tracked resources and every namespace the
// session created, releases all context bindings and resets the session
// store. It always leaves the session finished.
func (s *Session) TeardownSuite(ctx context.Context) error {
	return s.s.TeardownSuite(ctx)
}

// Cleanup deletes the resources tracked for the running test in every
// context whose effective policy is automatic.
func (s *Session) Cleanup(ctx context.Context) error {
	return s.s.Cleanup(ctx)
}

// CollectLogs collects diagnostics for every context into the suffix
// directory now. Problems are logged, never returned.
func (s *Session) CollectLogs(ctx context.Context, suffix string) {
	s.s.CollectLogs(ctx, suffix)
}

// ResourceManager returns the manager for contextName. PrimaryContext and
// the configured context name resolve to the primary manager; other names
// must be declared with WithContextMapping.
func (s *Session) ResourceManager(ctx context.Context, contextName string) (*ResourceManager, error) {
	return s.s.ResourceManager(ctx, contextName)
}

// Namespace returns a copy of the namespace object recorded for name in
// contextName during suite setup.
func (s *Session) Namespace(contextName, name string) (*corev1.Namespace, bool) {
	return s.s.Namespace(contextName, name)
}

// CreatedNamespaces returns the namespaces the session created in
// contextName and has not yet deleted, in creation order.
func (s *Session) CreatedNamespaces(contextName string) []string {
	return s.s.CreatedNamespaces(contextName)
}

// Config returns the validated configuration, or nil outside a suite.
func (s *Session) Config() *SessionConfig {
	return s.s.Config()
}

// Failures returns the coordinator for failures detected outside the
// lifecycle methods, for example by a custom test runner.
func (s *Session) Failures() *FailureCoordinator {
	return s.s.Failures()
}

// Phase returns the name of the current lifecycle state.
func (s *Session) Phase() string {
	return s.s.Phase()
}
