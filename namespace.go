package testframe

import "github.com/skodjob/test-frame-sub000/internal/core"

// Namespace labels applied when log collection is enabled. Every namespace
// carrying LogCollectionLabel=LogCollectionLabelValue is included in
// diagnostics, in addition to the declared namespaces.
const (
	LogCollectionLabel      = core.LogCollectionLabel
	LogCollectionLabelValue = core.LogCollectionLabelValue
)

// SystemNamespaceNames returns the namespaces that cleanup never deletes
// (default, kube-system, kube-public, kube-node-lease). The returned slice
// is a copy.
func SystemNamespaceNames() []string {
	return core.SystemNamespaceNames()
}
