package testframe_test

import (
	"slices"
	"testing"

	testframe "github.com/skodjob/test-frame-sub000"
)

func TestSystemNamespaceNames(t *testing.T) {
	t.Parallel()

	want := []string{"default", "kube-node-lease", "kube-public", "kube-system"}
	got := testframe.SystemNamespaceNames()
	if !slices.Equal(got, want) {
		t.Fatalf("SystemNamespaceNames() = %v, want %v", got, want)
	}

	// The result is a copy.
	got[0] = "mutated"
	if again := testframe.SystemNamespaceNames(); !slices.Equal(again, want) {
		t.Errorf("SystemNamespaceNames() after mutation = %v, want %v", again, want)
	}
}
