// Package testframe runs Go test suites against one or more real Kubernetes
// clusters. A Session owns everything a suite touches on the cluster: it
// provisions the declared namespaces at suite start, hands a ResourceManager
// per cluster context to test code, removes per-test resources after each
// test, gathers diagnostics when something fails, and deletes the namespaces
// it created when the suite ends.
//
// # Quick Start
//
//	func TestOperator(t *testing.T) {
//	    cfg := testframe.NewSessionConfig(
//	        testframe.WithNamespaces("operator-test"),
//	        testframe.WithLogCollection(testframe.LogOnFailure),
//	    )
//	    s := testframe.Setup(t, testframe.StaticConfig(cfg))
//
//	    s.Run(t, "deploys", func(t *testing.T, rm *testframe.ResourceManager) {
//	        obj := newDeployment("operator-test")
//	        if _, err := rm.CreateResource(t.Context(), obj); err != nil {
//	            t.Fatalf("CreateResource() error = %v", err)
//	        }
//	    })
//	}
//
// # Lifecycle
//
// A session moves through SetupSuite, then any number of
// SetupTest / TeardownTest pairs, then TeardownSuite. Calling a lifecycle
// method out of order returns ErrInvalidState. Setup and Run drive the
// lifecycle from the standard testing package; frameworks with their own
// hooks can call the methods directly.
//
// # Multiple Clusters
//
// SessionConfig.ContextMappings declares further kubeconfig contexts with
// their own namespaces, creation and cleanup overrides. Their resource
// managers are created on first use and inherit the test binding of the
// primary context.
//
// # Diagnostics
//
// With log collection enabled, every namespace the session provisions is
// labeled for collection, and so is every namespace a test creates through a
// ResourceManager. On failure (and optionally after every successful test)
// pod logs, events and the configured resource kinds of all labeled and
// declared namespaces are written beneath the log path, one directory per
// test and one per non-primary context.
//
// # Logging
//
// The package logs through log/slog with a "component" attribute. Use
// SetLogger to route output elsewhere.
package testframe
