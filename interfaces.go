package testframe

import "github.com/skodjob/test-frame-sub000/internal/core"

// PrimaryContext names the primary cluster context in lookups: the current
// kubeconfig context, or the one set with WithContext.
const PrimaryContext = core.PrimaryContext

// ClusterClient is the narrow view of a Kubernetes cluster a session needs.
// The default implementation talks to a real cluster through client-go;
// supply another with WithClientFactory.
type ClusterClient = core.ClusterClient

// ContextHandle undoes one ClusterClient.SwitchContext call. Release
// restores the previous binding once; a second call returns
// ErrHandleReleased.
type ContextHandle = core.ContextHandle

// ClientFactory builds a ClusterClient bound to the current context.
type ClientFactory = core.ClientFactory

// LogCollector gathers diagnostics for one cluster context.
type LogCollector = core.LogCollector

// CollectorOptions parameterizes one LogCollector.
type CollectorOptions = core.CollectorOptions

// CollectorFactory builds a LogCollector for a client.
type CollectorFactory = core.CollectorFactory

// ResourceManager creates resources on one cluster context on behalf of the
// running test and removes them again during cleanup.
type ResourceManager = core.ResourceManager

// CreateHook runs after every successful create through a ResourceManager.
type CreateHook = core.CreateHook

// FailureCoordinator routes lifecycle failures to diagnostics and cleanup.
// Every entry point returns the original error unchanged.
type FailureCoordinator = core.FailureCoordinator
