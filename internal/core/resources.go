package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/skodjob/test-frame-sub000/internal/fileutil"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"sigs.k8s.io/yaml"
)

// CreateHook observes every object created through a ResourceManager. Hooks
// run synchronously after a successful create and must not fail the caller;
// they report their own problems.
type CreateHook func(ctx context.Context, rm *ResourceManager, obj *unstructured.Unstructured)

// ResourceManager is the session's handle on one cluster context. Besides
// delegating to its ClusterClient it carries the identity of the running test,
// the bound context name, the per-test stack of created objects, and the
// create hooks.
//
// A ResourceManager belongs to exactly one session and is not safe for
// concurrent use. Reset clears all per-test and per-cluster state.
type ResourceManager struct {
	client ClusterClient
	hooks  []CreateHook

	testIdentity   string
	clusterContext string
	artifactPath   string

	// created is the LIFO stack of objects created by the current test.
	created []*unstructured.Unstructured
}

// NewResourceManager wraps client. Panics if client is nil.
func NewResourceManager(client ClusterClient) *ResourceManager {
	if client == nil {
		panic("testframe: NewResourceManager client must not be nil")
	}
	return &ResourceManager{client: client, clusterContext: client.CurrentContext()}
}

// Client returns the underlying cluster client.
//
//nolint:ireturn // the client is an injected collaborator.
func (m *ResourceManager) Client() ClusterClient { return m.client }

// TestIdentity returns the suite or test the manager is currently bound to.
func (m *ResourceManager) TestIdentity() string { return m.testIdentity }

// ClusterContext returns the bound cluster context ("" for the default).
func (m *ResourceManager) ClusterContext() string { return m.clusterContext }

// ArtifactPath returns the artifact export root, or "" when export is off.
func (m *ResourceManager) ArtifactPath() string { return m.artifactPath }

// BindTest sets the identity used for artifact paths and log attributes.
func (m *ResourceManager) BindTest(identity string) { m.testIdentity = identity }

// SetArtifactPath enables YAML export of every created object under path.
// An empty path disables export.
func (m *ResourceManager) SetArtifactPath(path string) { m.artifactPath = path }

// OnCreate registers a hook that observes every create.
func (m *ResourceManager) OnCreate(h CreateHook) {
	if h != nil {
		m.hooks = append(m.hooks, h)
	}
}

// SwitchContext binds the manager to the named cluster context. Releasing the
// returned handle restores both the client binding and ClusterContext.
//
//nolint:ireturn // handle implementations come from the client.
func (m *ResourceManager) SwitchContext(name string) (ContextHandle, error) {
	h, err := m.client.SwitchContext(name)
	if err != nil {
		return nil, fmt.Errorf("switch to cluster context %q: %w", name, err)
	}
	previous := m.clusterContext
	m.clusterContext = name
	return &managerHandle{ContextHandle: h, rm: m, previous: previous}, nil
}

// managerHandle restores the manager's ClusterContext alongside the client.
type managerHandle struct {
	ContextHandle
	rm       *ResourceManager
	previous string
}

func (h *managerHandle) Release() error {
	if err := h.ContextHandle.Release(); err != nil {
		return err
	}
	if h.rm.clusterContext == h.Context() {
		h.rm.clusterContext = h.previous
	}
	return nil
}

// CreateNamespace creates ns through the client and runs the create hooks.
// Namespaces are not pushed onto the per-test stack: their lifetime is owned
// by the NamespaceManager.
func (m *ResourceManager) CreateNamespace(ctx context.Context, ns *corev1.Namespace) (*corev1.Namespace, error) {
	created, err := m.client.CreateNamespace(ctx, ns)
	if err != nil {
		return nil, fmt.Errorf("create namespace %s: %w", ns.Name, err)
	}

	obj, convErr := namespaceToUnstructured(created)
	if convErr != nil {
		m.log().Warn("cannot convert namespace for create hooks", "namespace", ns.Name, "error", convErr)
		return created, nil
	}
	m.exportArtifact(obj)
	m.fireHooks(ctx, obj)
	return created, nil
}

// CreateResource creates obj, records it for DeleteResources, exports it when
// artifact export is on, and runs the create hooks.
func (m *ResourceManager) CreateResource(ctx context.Context, obj *unstructured.Unstructured) (*unstructured.Unstructured, error) {
	created, err := m.client.Create(ctx, obj)
	if err != nil {
		return nil, fmt.Errorf("create %s %s: %w", obj.GetKind(), objectRef(obj), err)
	}
	m.created = append(m.created, created.DeepCopy())
	m.exportArtifact(created)
	m.fireHooks(ctx, created)
	return created, nil
}

// CreatedResources returns a copy of the per-test stack, oldest first.
func (m *ResourceManager) CreatedResources() []*unstructured.Unstructured {
	out := make([]*unstructured.Unstructured, len(m.created))
	copy(out, m.created)
	return out
}

// DeleteResources deletes every object created since the last call, newest
// first. It keeps going past failures and returns them joined.
func (m *ResourceManager) DeleteResources(ctx context.Context) error {
	if len(m.created) == 0 {
		return nil
	}

	var errs []error
	for idx := len(m.created) - 1; idx >= 0; idx-- {
		obj := m.created[idx]
		if err := m.client.Delete(ctx, obj); err != nil {
			m.log().Warn("failed to delete resource",
				"kind", obj.GetKind(), "object", objectRef(obj), "error", err)
			errs = append(errs, fmt.Errorf("delete %s %s: %w", obj.GetKind(), objectRef(obj), err))
			continue
		}
		m.log().Debug("deleted resource", "kind", obj.GetKind(), "object", objectRef(obj))
	}
	m.created = nil
	return errors.Join(errs...)
}

// Reset clears the test identity, the cluster binding, the create hooks and
// the per-test stack so nothing leaks into a later session that reuses this
// value.
func (m *ResourceManager) Reset() {
	m.testIdentity = ""
	m.clusterContext = ""
	m.artifactPath = ""
	m.created = nil
	m.hooks = nil
}

func (m *ResourceManager) fireHooks(ctx context.Context, obj *unstructured.Unstructured) {
	for _, h := range m.hooks {
		h(ctx, m, obj)
	}
}

// exportArtifact writes obj as YAML under
// {artifactPath}/{testIdentity}/{kind}-{namespace}-{name}.yaml.
func (m *ResourceManager) exportArtifact(obj *unstructured.Unstructured) {
	if m.artifactPath == "" {
		return
	}

	data, err := yaml.Marshal(obj.Object)
	if err != nil {
		m.log().Warn("cannot marshal artifact", "object", objectRef(obj), "error", err)
		return
	}

	parts := []string{strings.ToLower(obj.GetKind())}
	if ns := obj.GetNamespace(); ns != "" {
		parts = append(parts, ns)
	}
	parts = append(parts, obj.GetName())
	path := filepath.Join(m.artifactPath, sanitizePathElement(m.testIdentity), strings.Join(parts, "-")+".yaml")

	if err := fileutil.WriteFile(path, data); err != nil {
		m.log().Warn("cannot store artifact", "path", path, "error", err)
	}
}

func (m *ResourceManager) log() *slog.Logger {
	return Logger().With("context", m.clusterContext, "test", m.testIdentity)
}

func namespaceToUnstructured(ns *corev1.Namespace) (*unstructured.Unstructured, error) {
	content, err := runtime.DefaultUnstructuredConverter.ToUnstructured(ns)
	if err != nil {
		return nil, err
	}
	obj := &unstructured.Unstructured{Object: content}
	obj.SetAPIVersion("v1")
	obj.SetKind("Namespace")
	return obj, nil
}

func objectRef(obj *unstructured.Unstructured) string {
	if ns := obj.GetNamespace(); ns != "" {
		return ns + "/" + obj.GetName()
	}
	return obj.GetName()
}

// sanitizePathElement keeps a test name usable as a single path element.
func sanitizePathElement(s string) string {
	if s == "" {
		return "unbound"
	}
	return strings.NewReplacer("/", "_", string(filepath.Separator), "_").Replace(s)
}
