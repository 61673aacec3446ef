// Package core implements the per-session orchestration behind testframe.
//
// A Session drives one test suite through its lifecycle. It owns a Store with
// the typed session state, a NamespaceManager that provisions and removes
// declared namespaces, a Registry that memoizes one ResourceManager per
// cluster context, a LogCollectionManager that gathers diagnostics from every
// context, and a FailureCoordinator that turns phase failures into
// diagnostics and cleanup without changing the failure itself.
//
// Cluster access and log collection are consumed through the ClusterClient
// and LogCollector interfaces so that the package has no knowledge of how
// either is implemented.
package core
