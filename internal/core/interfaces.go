package core

import (
	"context"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/labels"
)

// PrimaryContext is the key of the default cluster context: the one active
// without an explicit name, or the one named by SessionConfig.Context.
const PrimaryContext = ""

// ClusterClient is the narrow view of a Kubernetes cluster the session needs.
// Implementations must honor ctx cancellation on every blocking call.
type ClusterClient interface {
	// NamespaceExists reports whether the namespace is present.
	NamespaceExists(ctx context.Context, name string) (bool, error)
	// GetNamespace returns the live namespace object.
	GetNamespace(ctx context.Context, name string) (*corev1.Namespace, error)
	// CreateNamespace creates ns and returns the server's view of it.
	CreateNamespace(ctx context.Context, ns *corev1.Namespace) (*corev1.Namespace, error)
	// DeleteNamespace deletes the namespace. When wait is true it blocks until
	// the namespace is gone or ctx expires. A missing namespace is not an error.
	DeleteNamespace(ctx context.Context, name string, wait bool) error
	// ListNamespaces returns the namespaces matching selector.
	ListNamespaces(ctx context.Context, selector labels.Selector) ([]corev1.Namespace, error)
	// LabelNamespace merges the given labels into an existing namespace.
	LabelNamespace(ctx context.Context, name string, labels map[string]string) error
	// Create creates an arbitrary object and returns the server's view of it.
	Create(ctx context.Context, obj *unstructured.Unstructured) (*unstructured.Unstructured, error)
	// Delete deletes an arbitrary object. A missing object is not an error.
	Delete(ctx context.Context, obj *unstructured.Unstructured) error
	// SwitchContext rebinds the client to the named cluster context. The
	// returned handle restores the previous binding exactly once.
	SwitchContext(name string) (ContextHandle, error)
	// CurrentContext returns the bound context name ("" for the default).
	CurrentContext() string
}

// ContextHandle undoes one SwitchContext call.
type ContextHandle interface {
	// Context returns the context name that was switched to.
	Context() string
	// Release restores the previous binding. A second call returns
	// ErrHandleReleased.
	Release() error
}

// ClientFactory returns a fresh ClusterClient bound to the default context.
type ClientFactory func() (ClusterClient, error)

// CollectorOptions parameterizes one log collector.
type CollectorOptions struct {
	// RootPath is {base}/{testIdentity}[/{contextName}].
	RootPath string
	// NamespacedKinds lists the namespaced resource kinds to dump.
	NamespacedKinds []string
	// ClusterWideKinds lists the cluster-scoped resource kinds to dump.
	ClusterWideKinds []string
	// CollectPrevious also captures logs of the previous container instance.
	CollectPrevious bool
}

// LogCollector gathers diagnostics for one cluster context. Output for a
// single collection run lands under RootPath/suffix.
type LogCollector interface {
	CollectFromNamespaces(ctx context.Context, suffix string, namespaces []string) error
	CollectClusterWideResources(ctx context.Context, suffix string) error
}

// CollectorFactory builds a LogCollector that talks to client.
type CollectorFactory func(client ClusterClient, opts CollectorOptions) (LogCollector, error)

// ConfigProvider resolves the configuration of a suite. A nil config with a
// nil error means the suite declares no configuration.
type ConfigProvider interface {
	SessionConfig(suiteName string) (*SessionConfig, error)
}

// Diagnostics is the log-collection callback used by the FailureCoordinator.
type Diagnostics interface {
	CollectLogs(ctx context.Context, suffix string)
}

// Cleaner is the cleanup callback used by the FailureCoordinator.
type Cleaner interface {
	Cleanup(ctx context.Context) error
}

// Scope selects when an Injector runs.
type Scope int

const (
	// ScopeSuite injectors run once, at the end of SetupSuite.
	ScopeSuite Scope = iota
	// ScopeTest injectors run at the end of every SetupTest.
	ScopeTest
)

// Injector hands the resource manager of one cluster context to test code.
// It replaces field injection with explicit registration.
type Injector struct {
	Scope   Scope
	Context string
	Inject  func(ctx context.Context, rm *ResourceManager) error
}
