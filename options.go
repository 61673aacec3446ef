package testframe

import (
	"context"
	"fmt"
	"time"

	"github.com/skodjob/test-frame-sub000/internal/core"
	"github.com/skodjob/test-frame-sub000/internal/kube"
)

// requirePositive panics if v <= 0 with a descriptive message.
func requirePositive[T int | time.Duration](name string, v T) {
	if v <= 0 {
		panic(fmt.Sprintf("testframe: %s must be greater than 0, got %v", name, v))
	}
}

// requireNonNegative panics if v < 0 with a descriptive message.
func requireNonNegative[T int | time.Duration](name string, v T) {
	if v < 0 {
		panic(fmt.Sprintf("testframe: %s must not be negative, got %v", name, v))
	}
}

// requireNonEmpty panics if s is empty with a descriptive message.
func requireNonEmpty(name, s string) {
	if s == "" {
		panic(fmt.Sprintf("testframe: %s must not be empty", name))
	}
}

// requireKeyValues panics if any entry is not of the form key=value.
func requireKeyValues(name string, entries []string) {
	if _, err := core.ParseKeyValues(entries); err != nil {
		panic(fmt.Sprintf("testframe: %s: %v", name, err))
	}
}

// SessionOption configures a Session during construction via NewSession.
//
// Several With* functions panic on invalid input (nil factories, empty
// paths, negative durations). Option values are normally constants or
// package-level variables, so an invalid value is a programmer error and
// fails fast during initialization.
type SessionOption func(*sessionSettings)

// WithClientFactory replaces the kubeconfig-backed cluster client with the
// clients built by f. Every resource manager gets its own client.
//
// Panics if f is nil.
func WithClientFactory(f ClientFactory) SessionOption {
	if f == nil {
		panic("testframe: client factory must not be nil")
	}
	return func(s *sessionSettings) {
		s.clients = f
	}
}

// WithCollectorFactory replaces the client-go log collector.
//
// Panics if f is nil.
func WithCollectorFactory(f CollectorFactory) SessionOption {
	if f == nil {
		panic("testframe: collector factory must not be nil")
	}
	return func(s *sessionSettings) {
		s.collectors = f
	}
}

// WithKubeconfig sets the kubeconfig file used by the default client
// factory. It has no effect together with WithClientFactory.
//
// Default: the standard client-go loading rules (KUBECONFIG, then
// ~/.kube/config).
//
// Panics if path is empty.
func WithKubeconfig(path string) SessionOption {
	requireNonEmpty("kubeconfig path", path)
	return func(s *sessionSettings) {
		s.kubeconfig = path
	}
}

// WithDeletePolling sets how often and for how long the default client
// factory polls for a deleted namespace to disappear. It has no effect
// together with WithClientFactory.
//
// Default: every 500ms for up to 5m.
//
// Panics if interval or timeout is not positive.
func WithDeletePolling(interval, timeout time.Duration) SessionOption {
	requirePositive("delete poll interval", interval)
	requirePositive("delete timeout", timeout)
	return func(s *sessionSettings) {
		s.kubeOptions = append(s.kubeOptions, kube.WithDeletePolling(interval, timeout))
	}
}

// WithPropagationDelay sets the pause between creating a namespace and
// reading it back. Zero disables the pause.
//
// Default: 100ms.
//
// Panics if d < 0.
func WithPropagationDelay(d time.Duration) SessionOption {
	requireNonNegative("propagation delay", d)
	return func(s *sessionSettings) {
		s.propagationDelay = d
	}
}

// WithInjector registers fn to receive the resource manager of contextName.
// Suite-scoped injectors run at the end of SetupSuite, test-scoped ones at
// the end of every SetupTest. PrimaryContext ("") selects the primary
// manager. Injectors run in registration order.
//
// Panics if fn is nil or scope is unknown.
func WithInjector(scope Scope, contextName string, fn func(ctx context.Context, rm *ResourceManager) error) SessionOption {
	if fn == nil {
		panic("testframe: injector function must not be nil")
	}
	if scope != ScopeSuite && scope != ScopeTest {
		panic(fmt.Sprintf("testframe: unknown injector scope %d", scope))
	}
	return func(s *sessionSettings) {
		s.injectors = append(s.injectors, core.Injector{Scope: scope, Context: contextName, Inject: fn})
	}
}

// ConfigOption configures a SessionConfig built by NewSessionConfig. Like
// SessionOption, the With* functions panic on programmer errors.
type ConfigOption func(*SessionConfig)

// WithNamespaces appends namespaces to provision in the primary context.
//
// Panics if any name is empty.
func WithNamespaces(names ...string) ConfigOption {
	for _, n := range names {
		requireNonEmpty("namespace name", n)
	}
	return func(c *SessionConfig) {
		c.Namespaces = append(c.Namespaces, names...)
	}
}

// WithCreateNamespaces controls whether missing namespaces are created.
// When disabled, a missing namespace fails suite setup with
// ErrNamespaceUnavailable.
//
// Default: true.
func WithCreateNamespaces(create bool) ConfigOption {
	return func(c *SessionConfig) {
		c.CreateNamespaces = create
	}
}

// WithCleanup sets the cleanup policy for per-test resources.
//
// Default: CleanupAutomatic.
//
// Panics if p is not a known policy.
func WithCleanup(p CleanupPolicy) ConfigOption {
	if !p.IsValid() {
		panic(fmt.Sprintf("testframe: invalid cleanup policy: %v", p))
	}
	return func(c *SessionConfig) {
		c.Cleanup = p
	}
}

// WithContext binds the primary resource manager to the named kubeconfig
// context instead of the current one.
//
// Panics if name is empty.
func WithContext(name string) ConfigOption {
	requireNonEmpty("context name", name)
	return func(c *SessionConfig) {
		c.Context = name
	}
}

// WithArtifacts enables YAML export of every created resource beneath path.
//
// Panics if path is empty.
func WithArtifacts(path string) ConfigOption {
	requireNonEmpty("artifact path", path)
	return func(c *SessionConfig) {
		c.StoreArtifacts = true
		c.ArtifactPath = path
	}
}

// WithNamespaceLabels appends "key=value" labels applied to namespaces the
// session creates.
//
// Panics if an entry is malformed.
func WithNamespaceLabels(kv ...string) ConfigOption {
	requireKeyValues("namespace labels", kv)
	return func(c *SessionConfig) {
		c.NamespaceLabels = append(c.NamespaceLabels, kv...)
	}
}

// WithNamespaceAnnotations appends "key=value" annotations applied to
// namespaces the session creates.
//
// Panics if an entry is malformed.
func WithNamespaceAnnotations(kv ...string) ConfigOption {
	requireKeyValues("namespace annotations", kv)
	return func(c *SessionConfig) {
		c.NamespaceAnnotations = append(c.NamespaceAnnotations, kv...)
	}
}

// WithSeparator sets the line logged before every test. A zero length
// disables the separator.
//
// Default: "#" repeated 76 times.
//
// Panics if length < 0.
func WithSeparator(char string, length int) ConfigOption {
	requireNonNegative("separator length", length)
	return func(c *SessionConfig) {
		c.SeparatorChar = char
		c.SeparatorLength = length
	}
}

// WithLogCollection enables diagnostics with the given strategy.
//
// Panics if s is not a known strategy.
func WithLogCollection(s LogStrategy) ConfigOption {
	if !s.IsValid() {
		panic(fmt.Sprintf("testframe: invalid log strategy: %v", s))
	}
	return func(c *SessionConfig) {
		c.CollectLogs = true
		c.LogStrategy = s
	}
}

// WithLogPath sets the base directory for diagnostics.
//
// Default: DefaultLogPath().
//
// Panics if path is empty.
func WithLogPath(path string) ConfigOption {
	requireNonEmpty("log path", path)
	return func(c *SessionConfig) {
		c.LogPath = path
	}
}

// WithPreviousLogs also collects the logs of the previous instance of every
// restarted container.
func WithPreviousLogs() ConfigOption {
	return func(c *SessionConfig) {
		c.CollectPreviousLogs = true
	}
}

// WithNamespacedResourceKinds appends namespaced kinds (for example
// "deployments" or "configmaps") whose objects are dumped as YAML during
// collection.
//
// Panics if any kind is empty.
func WithNamespacedResourceKinds(kinds ...string) ConfigOption {
	for _, k := range kinds {
		requireNonEmpty("resource kind", k)
	}
	return func(c *SessionConfig) {
		c.NamespacedResourceKinds = append(c.NamespacedResourceKinds, kinds...)
	}
}

// WithClusterWideResourceKinds appends cluster-scoped kinds dumped into the
// cluster-wide-resources directory during collection.
//
// Panics if any kind is empty.
func WithClusterWideResourceKinds(kinds ...string) ConfigOption {
	for _, k := range kinds {
		requireNonEmpty("resource kind", k)
	}
	return func(c *SessionConfig) {
		c.ClusterWideResourceKinds = append(c.ClusterWideResourceKinds, kinds...)
	}
}

// MappingOption overrides a global setting for one context mapping.
type MappingOption func(*ContextMapping)

// MappingCreateNamespaces overrides WithCreateNamespaces for the mapping.
func MappingCreateNamespaces(create bool) MappingOption {
	return func(m *ContextMapping) {
		m.CreateNamespaces = &create
	}
}

// MappingCleanup overrides WithCleanup for the mapping.
//
// Panics if p is not a known policy.
func MappingCleanup(p CleanupPolicy) MappingOption {
	if !p.IsValid() {
		panic(fmt.Sprintf("testframe: invalid cleanup policy: %v", p))
	}
	return func(m *ContextMapping) {
		m.Cleanup = &p
	}
}

// MappingLabels appends labels that apply on top of the global namespace
// labels. Mapping entries win on key collision.
//
// Panics if an entry is malformed.
func MappingLabels(kv ...string) MappingOption {
	requireKeyValues("mapping labels", kv)
	return func(m *ContextMapping) {
		m.NamespaceLabels = append(m.NamespaceLabels, kv...)
	}
}

// MappingAnnotations appends annotations that apply on top of the global
// namespace annotations. Mapping entries win on key collision.
//
// Panics if an entry is malformed.
func MappingAnnotations(kv ...string) MappingOption {
	requireKeyValues("mapping annotations", kv)
	return func(m *ContextMapping) {
		m.NamespaceAnnotations = append(m.NamespaceAnnotations, kv...)
	}
}

// WithContextMapping declares an additional kubeconfig context with its own
// namespaces.
//
// Panics if contextName or any namespace name is empty.
func WithContextMapping(contextName string, namespaces []string, opts ...MappingOption) ConfigOption {
	requireNonEmpty("context name", contextName)
	for _, n := range namespaces {
		requireNonEmpty("namespace name", n)
	}
	m := ContextMapping{Context: contextName, Namespaces: append([]string(nil), namespaces...)}
	for _, opt := range opts {
		opt(&m)
	}
	return func(c *SessionConfig) {
		c.ContextMappings = append(c.ContextMappings, m)
	}
}
