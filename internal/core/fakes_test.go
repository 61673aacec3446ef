package core

import (
	"context"
	"errors"
	"maps"
	"slices"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

var errFake = errors.New("fake failure")

// fakeCluster is the state of one cluster context.
type fakeCluster struct {
	namespaces map[string]*corev1.Namespace
	objects    map[string]*unstructured.Unstructured

	createdNamespaces []string
	deletedNamespaces []string
	deletedObjects    []string
	labeled           []string

	existsErr       error
	listErr         error
	switchErr       error
	deleteNsErr     map[string]error
	deleteObjErr    map[string]error
	dropLabelsOnGet bool
}

// fakeWorld maps cluster context names to clusters. Context "" is the
// default cluster.
type fakeWorld struct {
	clusters   map[string]*fakeCluster
	clients    []*fakeClient
	factoryErr error
}

func newFakeWorld() *fakeWorld {
	return &fakeWorld{clusters: make(map[string]*fakeCluster)}
}

func (w *fakeWorld) cluster(name string) *fakeCluster {
	if c, ok := w.clusters[name]; ok {
		return c
	}
	c := &fakeCluster{
		namespaces:   make(map[string]*corev1.Namespace),
		objects:      make(map[string]*unstructured.Unstructured),
		deleteNsErr:  make(map[string]error),
		deleteObjErr: make(map[string]error),
	}
	w.clusters[name] = c
	return c
}

// addNamespace pre-creates a namespace outside any session.
func (w *fakeWorld) addNamespace(contextName, name string, lbls map[string]string) {
	ns := &corev1.Namespace{}
	ns.Name = name
	ns.Labels = lbls
	ns.Status.Phase = corev1.NamespaceActive
	w.cluster(contextName).namespaces[name] = ns
}

func (w *fakeWorld) clientFactory() ClientFactory {
	return func() (ClusterClient, error) {
		if w.factoryErr != nil {
			return nil, w.factoryErr
		}
		c := &fakeClient{world: w}
		w.clients = append(w.clients, c)
		return c, nil
	}
}

func (w *fakeWorld) newManager() (*ResourceManager, error) {
	c, err := w.clientFactory()()
	if err != nil {
		return nil, err
	}
	return NewResourceManager(c), nil
}

type fakeClient struct {
	world    *fakeWorld
	context  string
	switches []string
	releases []string
}

func (c *fakeClient) cluster() *fakeCluster { return c.world.cluster(c.context) }

func (c *fakeClient) NamespaceExists(_ context.Context, name string) (bool, error) {
	cl := c.cluster()
	if cl.existsErr != nil {
		return false, cl.existsErr
	}
	_, ok := cl.namespaces[name]
	return ok, nil
}

func (c *fakeClient) GetNamespace(_ context.Context, name string) (*corev1.Namespace, error) {
	cl := c.cluster()
	ns, ok := cl.namespaces[name]
	if !ok {
		return nil, apierrors.NewNotFound(schema.GroupResource{Resource: "namespaces"}, name)
	}
	out := ns.DeepCopy()
	if cl.dropLabelsOnGet {
		out.Labels = nil
	}
	return out, nil
}

func (c *fakeClient) CreateNamespace(_ context.Context, ns *corev1.Namespace) (*corev1.Namespace, error) {
	cl := c.cluster()
	if _, ok := cl.namespaces[ns.Name]; ok {
		return nil, apierrors.NewAlreadyExists(schema.GroupResource{Resource: "namespaces"}, ns.Name)
	}
	stored := ns.DeepCopy()
	stored.Status.Phase = corev1.NamespaceActive
	cl.namespaces[ns.Name] = stored
	cl.createdNamespaces = append(cl.createdNamespaces, ns.Name)
	return stored.DeepCopy(), nil
}

func (c *fakeClient) DeleteNamespace(_ context.Context, name string, _ bool) error {
	cl := c.cluster()
	cl.deletedNamespaces = append(cl.deletedNamespaces, name)
	if err := cl.deleteNsErr[name]; err != nil {
		return err
	}
	delete(cl.namespaces, name)
	return nil
}

func (c *fakeClient) ListNamespaces(_ context.Context, selector labels.Selector) ([]corev1.Namespace, error) {
	cl := c.cluster()
	if cl.listErr != nil {
		return nil, cl.listErr
	}
	var out []corev1.Namespace
	for _, name := range slices.Sorted(maps.Keys(cl.namespaces)) {
		ns := cl.namespaces[name]
		if selector.Matches(labels.Set(ns.Labels)) {
			out = append(out, *ns.DeepCopy())
		}
	}
	return out, nil
}

func (c *fakeClient) LabelNamespace(_ context.Context, name string, lbls map[string]string) error {
	cl := c.cluster()
	ns, ok := cl.namespaces[name]
	if !ok {
		return apierrors.NewNotFound(schema.GroupResource{Resource: "namespaces"}, name)
	}
	if ns.Labels == nil {
		ns.Labels = make(map[string]string)
	}
	maps.Copy(ns.Labels, lbls)
	cl.labeled = append(cl.labeled, name)
	return nil
}

func objectKey(obj *unstructured.Unstructured) string {
	return obj.GetKind() + "/" + obj.GetNamespace() + "/" + obj.GetName()
}

func (c *fakeClient) Create(_ context.Context, obj *unstructured.Unstructured) (*unstructured.Unstructured, error) {
	cl := c.cluster()
	key := objectKey(obj)
	if _, ok := cl.objects[key]; ok {
		return nil, apierrors.NewAlreadyExists(schema.GroupResource{Resource: obj.GetKind()}, obj.GetName())
	}
	cl.objects[key] = obj.DeepCopy()
	if obj.GetKind() == "Namespace" {
		ns := &corev1.Namespace{}
		ns.Name = obj.GetName()
		cl.namespaces[ns.Name] = ns
		cl.createdNamespaces = append(cl.createdNamespaces, ns.Name)
	}
	return obj.DeepCopy(), nil
}

func (c *fakeClient) Delete(_ context.Context, obj *unstructured.Unstructured) error {
	cl := c.cluster()
	key := objectKey(obj)
	cl.deletedObjects = append(cl.deletedObjects, key)
	if err := cl.deleteObjErr[key]; err != nil {
		return err
	}
	delete(cl.objects, key)
	return nil
}

//nolint:ireturn // test fake.
func (c *fakeClient) SwitchContext(name string) (ContextHandle, error) {
	if err := c.world.cluster(name).switchErr; err != nil {
		return nil, err
	}
	h := &fakeHandle{client: c, target: name, previous: c.context}
	c.context = name
	c.switches = append(c.switches, name)
	return h, nil
}

func (c *fakeClient) CurrentContext() string { return c.context }

type fakeHandle struct {
	client   *fakeClient
	target   string
	previous string
	released bool
	err      error
}

func (h *fakeHandle) Context() string { return h.target }

func (h *fakeHandle) Release() error {
	if h.released {
		return ErrHandleReleased
	}
	h.released = true
	h.client.releases = append(h.client.releases, h.target)
	if h.err != nil {
		return h.err
	}
	h.client.context = h.previous
	return nil
}

// collectorCall records one LogCollector invocation.
type collectorCall struct {
	root        string
	suffix      string
	namespaces  []string
	clusterWide bool
}

type collectorRecorder struct {
	roots      []string
	calls      []collectorCall
	factoryErr error
	collectErr error
	panicOn    string // root path that panics
	builds     int
	panicBuild int // 1-based factory call that panics
}

func (r *collectorRecorder) factory(_ ClusterClient, opts CollectorOptions) (LogCollector, error) {
	r.builds++
	if r.panicBuild != 0 && r.builds == r.panicBuild {
		panic("collector factory exploded")
	}
	if r.factoryErr != nil {
		return nil, r.factoryErr
	}
	r.roots = append(r.roots, opts.RootPath)
	return &fakeCollector{rec: r, opts: opts}, nil
}

// suffixes returns the suffix of every namespace collection call in order.
func (r *collectorRecorder) suffixes() []string {
	var out []string
	for _, c := range r.calls {
		if !c.clusterWide {
			out = append(out, c.suffix)
		}
	}
	return out
}

type fakeCollector struct {
	rec  *collectorRecorder
	opts CollectorOptions
}

func (f *fakeCollector) CollectFromNamespaces(_ context.Context, suffix string, namespaces []string) error {
	if f.rec.panicOn != "" && f.rec.panicOn == f.opts.RootPath {
		panic("collector exploded")
	}
	f.rec.calls = append(f.rec.calls, collectorCall{
		root: f.opts.RootPath, suffix: suffix, namespaces: slices.Clone(namespaces),
	})
	return f.rec.collectErr
}

func (f *fakeCollector) CollectClusterWideResources(_ context.Context, suffix string) error {
	f.rec.calls = append(f.rec.calls, collectorCall{root: f.opts.RootPath, suffix: suffix, clusterWide: true})
	return f.rec.collectErr
}

// staticProvider serves one configuration for every suite.
type staticProvider struct {
	cfg *SessionConfig
	err error
}

func (p staticProvider) SessionConfig(string) (*SessionConfig, error) { return p.cfg, p.err }

func boolPtr(b bool) *bool { return &b }

func policyPtr(p CleanupPolicy) *CleanupPolicy { return &p }
