package core

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	corev1 "k8s.io/api/core/v1"
)

// sessionState is the lifecycle state of a Session.
type sessionState uint32

const (
	stateNotStarted sessionState = iota // Zero value; NewSession returns in this state
	stateSuiteSetup
	stateTestSetup
	stateTestBody
	stateTestTeardown
	stateSuiteTeardown
	stateFinished
)

func (s sessionState) String() string {
	switch s {
	case stateNotStarted:
		return "NotStarted"
	case stateSuiteSetup:
		return "SuiteSetup"
	case stateTestSetup:
		return "TestSetup"
	case stateTestBody:
		return "TestBody"
	case stateTestTeardown:
		return "TestTeardown"
	case stateSuiteTeardown:
		return "SuiteTeardown"
	case stateFinished:
		return "Finished"
	default:
		return fmt.Sprintf("sessionState(%d)", uint32(s))
	}
}

// SessionOptions carries the collaborators of a Session.
type SessionOptions struct {
	// Clients builds the cluster client behind every resource manager.
	Clients ClientFactory
	// Collectors builds log collectors.
	Collectors CollectorFactory
	// Injectors hand resource managers to test code.
	Injectors []Injector
	// PropagationDelay is the pause after creating a namespace.
	PropagationDelay time.Duration
}

// Session orchestrates one test suite against one or more cluster contexts:
// namespaces and context bindings are set up at suite start, per-test
// resources are cleaned and diagnostics gathered around every test, and
// everything the session created is removed at suite end.
//
// Lifecycle: NotStarted → SuiteSetup → (TestSetup → TestBody → TestTeardown)*
// → SuiteTeardown → Finished. Calls out of order return ErrInvalidState.
//
// A Session drives a single suite from one goroutine. Phase may be read
// concurrently.
type Session struct {
	provider ConfigProvider
	opts     SessionOptions

	store      *Store
	namespaces *NamespaceManager
	registry   *Registry
	logs       *LogCollectionManager
	failures   *FailureCoordinator

	suiteName   string
	state       atomic.Uint32 // sessionState
	setupFailed atomic.Bool   // SetupSuite returned an error
}

// Verify Session implements Cleaner at compile time.
var _ Cleaner = (*Session)(nil)

// NewSession returns a Session in the NotStarted state. It performs no I/O.
//
// Panics if provider, opts.Clients or opts.Collectors is nil.
func NewSession(provider ConfigProvider, opts SessionOptions) *Session {
	if provider == nil {
		panic("testframe: NewSession provider must not be nil")
	}
	if opts.Clients == nil {
		panic("testframe: NewSession client factory must not be nil")
	}
	if opts.Collectors == nil {
		panic("testframe: NewSession collector factory must not be nil")
	}

	s := &Session{provider: provider, opts: opts, store: NewStore()}
	s.namespaces = NewNamespaceManager(s.store, opts.PropagationDelay)
	s.registry = NewRegistry(s.store, s.newManager, s.namespaces)
	s.logs = NewLogCollectionManager(s.store, opts.Collectors)
	s.failures = NewFailureCoordinator(s.store.Config, s.logs, s)
	return s
}

func (s *Session) loadState() sessionState {
	return sessionState(s.state.Load())
}

func (s *Session) storeState(st sessionState) {
	s.state.Store(uint32(st))
}

// enter moves the session to next if the current state is one of from.
func (s *Session) enter(op string, next sessionState, from ...sessionState) error {
	cur := s.loadState()
	for _, f := range from {
		if cur == f && s.state.CompareAndSwap(uint32(f), uint32(next)) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s called in state %s", ErrInvalidState, op, cur)
}

// Phase returns the name of the current lifecycle state.
func (s *Session) Phase() string { return s.loadState().String() }

// Config returns the validated configuration, or nil outside a suite.
func (s *Session) Config() *SessionConfig { return s.store.Config() }

// Failures returns the coordinator that routes phase failures.
func (s *Session) Failures() *FailureCoordinator { return s.failures }

// ResourceManager returns the manager for contextName. PrimaryContext and
// the configured context name both resolve to the primary manager. Other
// contexts must be declared in a context mapping.
func (s *Session) ResourceManager(ctx context.Context, contextName string) (*ResourceManager, error) {
	return s.registry.Lookup(ctx, contextName)
}

// Namespace returns a copy of the namespace recorded for name in
// contextName during suite setup.
func (s *Session) Namespace(contextName, name string) (*corev1.Namespace, bool) {
	st, ok := s.store.Lookup(contextName)
	if !ok {
		return nil, false
	}
	ns, ok := st.Namespaces[name]
	if !ok {
		return nil, false
	}
	return ns.DeepCopy(), true
}

// CreatedNamespaces returns the namespaces this session created in
// contextName, in creation order.
func (s *Session) CreatedNamespaces(contextName string) []string {
	st, ok := s.store.Lookup(contextName)
	if !ok {
		return nil
	}
	out := make([]string, len(st.Created))
	copy(out, st.Created)
	return out
}

// CollectLogs gathers diagnostics into the given suffix directory right now.
func (s *Session) CollectLogs(ctx context.Context, suffix string) {
	s.logs.CollectLogs(ctx, suffix)
}

// SetupSuite loads and validates the suite configuration, binds the primary
// resource manager, attaches log collection and provisions every declared
// namespace. A missing configuration fails with ErrConfigurationMissing
// before anything on a cluster is touched.
func (s *Session) SetupSuite(ctx context.Context, suiteName string) error {
	if err := s.enter("SetupSuite", stateSuiteSetup, stateNotStarted); err != nil {
		return err
	}
	s.suiteName = suiteName

	if err := s.setupSuite(ctx, suiteName); err != nil {
		s.setupFailed.Store(true)
		return s.failures.SuiteSetupFailed(ctx, suiteName, err)
	}
	Logger().Info("suite setup complete", "suite", suiteName)
	return nil
}

func (s *Session) setupSuite(ctx context.Context, suiteName string) error {
	cfg, err := s.provider.SessionConfig(suiteName)
	if err != nil {
		return fmt.Errorf("load configuration for suite %s: %w", suiteName, err)
	}
	if cfg == nil {
		return fmt.Errorf("%w: suite %s", ErrConfigurationMissing, suiteName)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.store.SetConfig(cfg)

	rm, err := s.newManager()
	if err != nil {
		return fmt.Errorf("create primary resource manager: %w", err)
	}
	rm.BindTest(suiteName)
	s.store.PutManager(PrimaryContext, rm)

	if cfg.Context != "" {
		h, err := rm.SwitchContext(cfg.Context)
		if err != nil {
			return err
		}
		s.store.PutHandle(PrimaryContext, h)
	}
	if cfg.StoreArtifacts {
		rm.SetArtifactPath(cfg.ArtifactPath)
	}

	// Labeling must be in place before namespaces are created.
	if cfg.CollectLogs {
		if err := s.logs.Attach(suiteName, cfg, rm); err != nil {
			return err
		}
		s.namespaces.SetupAutoLabeling(rm)
	}

	if err := s.namespaces.SetupNamespaces(ctx, cfg, s.registry.GetOrCreate); err != nil {
		return fmt.Errorf("set up namespaces: %w", err)
	}
	return s.inject(ctx, ScopeSuite)
}

// SetupTest binds every resource manager to testName and runs the
// test-scoped injectors. It fails with ErrInvalidState after a failed
// SetupSuite; only TeardownSuite is accepted then.
func (s *Session) SetupTest(ctx context.Context, testName string) error {
	if s.setupFailed.Load() {
		return fmt.Errorf("%w: SetupTest called after suite setup failed", ErrInvalidState)
	}
	if err := s.enter("SetupTest", stateTestSetup, stateSuiteSetup, stateTestTeardown); err != nil {
		return err
	}

	cfg := s.store.Config()
	if cfg != nil && cfg.SeparatorLength > 0 && cfg.SeparatorChar != "" {
		Logger().Info(strings.Repeat(cfg.SeparatorChar, cfg.SeparatorLength))
	}
	Logger().Info("starting test", "test", testName)

	for _, name := range s.store.ManagerNames() {
		rm, _ := s.store.Manager(name)
		rm.BindTest(testName)
	}

	if err := s.inject(ctx, ScopeTest); err != nil {
		return s.failures.TestSetupFailed(ctx, testName, err)
	}
	s.storeState(stateTestBody)
	return nil
}

// TestFailed reports a failure of the test body and returns err unchanged.
// Outside a test it only logs.
func (s *Session) TestFailed(ctx context.Context, testName string, err error) error {
	switch st := s.loadState(); st {
	case stateTestSetup, stateTestBody:
		return s.failures.TestFailed(ctx, testName, err)
	default:
		Logger().Warn("test failure reported outside a test", "test", testName, "state", st.String(), "error", err)
		return err
	}
}

// TeardownTest cleans per-test resources when cleanup is automatic and, for
// a passing test with the AFTER_EACH strategy, collects diagnostics.
func (s *Session) TeardownTest(ctx context.Context, testName string, succeeded bool) error {
	if err := s.enter("TeardownTest", stateTestTeardown, stateTestSetup, stateTestBody); err != nil {
		return err
	}

	cfg := s.store.Config()
	if cfg == nil {
		return nil
	}

	var cleanupErr error
	if cfg.Cleanup == CleanupAutomatic {
		cleanupErr = s.Cleanup(ctx)
	}
	if succeeded && cfg.CollectLogs && cfg.LogStrategy == LogAfterEach {
		s.logs.CollectLogs(ctx, SuccessSuffix(testName))
	}
	if cleanupErr != nil {
		return s.failures.TestTeardownFailed(ctx, testName, cleanupErr)
	}
	return nil
}

// Cleanup deletes the per-test resources of every context whose effective
// cleanup policy is automatic.
func (s *Session) Cleanup(ctx context.Context) error {
	return s.cleanupResources(ctx, false)
}

func (s *Session) cleanupResources(ctx context.Context, all bool) error {
	cfg := s.store.Config()
	var errs []error
	for _, name := range s.store.ManagerNames() {
		if !all && cfg != nil {
			var m *ContextMapping
			if name != PrimaryContext {
				m, _ = cfg.Mapping(name)
			}
			if cfg.EffectiveCleanup(m) != CleanupAutomatic {
				continue
			}
		}
		rm, _ := s.store.Manager(name)
		if err := rm.DeleteResources(ctx); err != nil {
			errs = append(errs, fmt.Errorf("context %s: %w", displayContext(name), err))
		}
	}
	return errors.Join(errs...)
}

// TeardownSuite removes every remaining per-test resource, deletes the
// namespaces this session created in each context, releases every context
// binding and resets all resource managers. The session always ends in the
// Finished state; only a resource cleanup failure is returned.
func (s *Session) TeardownSuite(ctx context.Context) error {
	cur := s.loadState()
	switch cur {
	case stateNotStarted, stateSuiteTeardown, stateFinished:
		return fmt.Errorf("%w: TeardownSuite called in state %s", ErrInvalidState, cur)
	default:
	}
	if !s.state.CompareAndSwap(uint32(cur), uint32(stateSuiteTeardown)) {
		return fmt.Errorf("%w: TeardownSuite raced with state %s", ErrInvalidState, s.loadState())
	}
	defer s.storeState(stateFinished)

	var result error
	if s.store.Config() != nil {
		if err := s.cleanupResources(ctx, true); err != nil {
			result = s.failures.SuiteTeardownFailed(ctx, s.suiteName, err)
		}
	}

	s.deleteCreatedNamespaces(ctx)
	s.releaseHandles()

	for _, name := range s.store.ManagerNames() {
		rm, _ := s.store.Manager(name)
		rm.Reset()
	}
	s.store.Reset()

	Logger().Info("suite teardown complete", "suite", s.suiteName)
	return result
}

// deleteCreatedNamespaces cleans the primary context first, then every
// other context independently. It returns the namespaces that are still
// recorded as created afterwards, keyed by context.
func (s *Session) deleteCreatedNamespaces(ctx context.Context) map[string][]string {
	names := s.store.ManagerNames()
	ordered := make([]string, 0, len(names))
	if _, ok := s.store.Manager(PrimaryContext); ok {
		ordered = append(ordered, PrimaryContext)
	}
	for _, name := range names {
		if name != PrimaryContext {
			ordered = append(ordered, name)
		}
	}

	for _, name := range ordered {
		rm, _ := s.store.Manager(name)
		_ = s.namespaces.CleanupNamespaces(ctx, name, rm)
	}

	leftover := make(map[string][]string)
	for _, name := range s.store.ContextNames() {
		st, _ := s.store.Lookup(name)
		if len(st.Created) == 0 {
			continue
		}
		leftover[name] = slices.Clone(st.Created)
		Logger().Warn("namespaces left behind",
			"context", displayContext(name), "namespaces", st.Created)
	}
	return leftover
}

// releaseHandles releases the primary handle first, then the others in
// registration order. Every handle is attempted.
func (s *Session) releaseHandles() {
	names := s.store.HandleNames()
	ordered := make([]string, 0, len(names))
	if _, ok := s.store.Handle(PrimaryContext); ok {
		ordered = append(ordered, PrimaryContext)
	}
	for _, name := range names {
		if name != PrimaryContext {
			ordered = append(ordered, name)
		}
	}

	failed := 0
	for _, name := range ordered {
		h, _ := s.store.Handle(name)
		if err := h.Release(); err != nil {
			failed++
			Logger().Warn("failed to release context handle",
				"context", displayContext(name), "target", h.Context(), "error", err)
		}
	}
	if failed > 0 {
		Logger().Warn("context release incomplete", "failed", failed, "total", len(ordered))
	}
}

func (s *Session) inject(ctx context.Context, scope Scope) error {
	for idx := range s.opts.Injectors {
		inj := &s.opts.Injectors[idx]
		if inj.Scope != scope || inj.Inject == nil {
			continue
		}
		rm, err := s.registry.Lookup(ctx, inj.Context)
		if err != nil {
			return fmt.Errorf("inject context %s: %w", displayContext(inj.Context), err)
		}
		if err := inj.Inject(ctx, rm); err != nil {
			return fmt.Errorf("inject context %s: %w", displayContext(inj.Context), err)
		}
	}
	return nil
}

func (s *Session) newManager() (*ResourceManager, error) {
	client, err := s.opts.Clients()
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, errors.New("client factory returned nil client")
	}
	return NewResourceManager(client), nil
}
