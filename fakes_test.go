package testframe_test

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	testframe "github.com/skodjob/test-frame-sub000"
	"github.com/skodjob/test-frame-sub000/internal/kube"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	dynamicfake "k8s.io/client-go/dynamic/fake"
	"k8s.io/client-go/kubernetes/fake"
)

var configMapGVR = schema.GroupVersionResource{Version: "v1", Resource: "configmaps"}

// fakeCluster is one kubeconfig context backed by client-go fakes.
type fakeCluster struct {
	clients *kube.Clients
	cs      *fake.Clientset
	dyn     *dynamicfake.FakeDynamicClient
}

func newFakeCluster(objects ...runtime.Object) *fakeCluster {
	cs := fake.NewClientset(objects...)
	cs.Resources = []*metav1.APIResourceList{{
		GroupVersion: "v1",
		APIResources: []metav1.APIResource{
			{Name: "namespaces", SingularName: "namespace", Kind: "Namespace", Verbs: []string{"get", "list", "create", "delete"}},
			{Name: "configmaps", SingularName: "configmap", Kind: "ConfigMap", Namespaced: true, Verbs: []string{"get", "list", "create", "delete"}},
		},
	}}
	dyn := dynamicfake.NewSimpleDynamicClientWithCustomListKinds(runtime.NewScheme(), map[schema.GroupVersionResource]string{
		configMapGVR: "ConfigMapList",
	})
	return &fakeCluster{
		clients: &kube.Clients{Kube: cs, Dynamic: dyn, Discovery: cs.Discovery()},
		cs:      cs,
		dyn:     dyn,
	}
}

func (c *fakeCluster) hasNamespace(t *testing.T, name string) bool {
	t.Helper()
	list, err := c.cs.CoreV1().Namespaces().List(context.Background(), metav1.ListOptions{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	for _, ns := range list.Items {
		if ns.Name == name {
			return true
		}
	}
	return false
}

func (c *fakeCluster) configMaps(t *testing.T, namespace string) int {
	t.Helper()
	list, err := c.dyn.Resource(configMapGVR).Namespace(namespace).List(context.Background(), metav1.ListOptions{})
	if err != nil {
		t.Fatalf("List(configmaps) error = %v", err)
	}
	return len(list.Items)
}

// fakeEnv wires sessions to fake clusters keyed by context name and to a
// recording log collector.
type fakeEnv struct {
	clusters map[string]*fakeCluster
	built    atomic.Int32
	rec      *recordingCollector
}

// newFakeEnv returns an environment with a default context and one cluster
// per extra context name.
func newFakeEnv(t *testing.T, contexts ...string) *fakeEnv {
	t.Helper()
	env := &fakeEnv{
		clusters: map[string]*fakeCluster{"": newFakeCluster()},
		rec:      &recordingCollector{},
	}
	for _, name := range contexts {
		env.clusters[name] = newFakeCluster()
	}
	return env
}

func (e *fakeEnv) build(name string) (*kube.Clients, error) {
	c, ok := e.clusters[name]
	if !ok {
		return nil, fmt.Errorf("context %q not found in kubeconfig", name)
	}
	return c.clients, nil
}

func (e *fakeEnv) clientFactory() (testframe.ClusterClient, error) { //nolint:ireturn // factory signature
	e.built.Add(1)
	return kube.New(e.build, kube.WithDeletePolling(time.Millisecond, time.Second))
}

func (e *fakeEnv) clientsBuilt() int { return int(e.built.Load()) }

func (e *fakeEnv) options(extra ...testframe.SessionOption) []testframe.SessionOption {
	return append([]testframe.SessionOption{
		testframe.WithClientFactory(e.clientFactory),
		testframe.WithCollectorFactory(e.rec.factory),
		testframe.WithPropagationDelay(0),
	}, extra...)
}

// collectCall records one CollectFromNamespaces invocation.
type collectCall struct {
	root       string
	suffix     string
	namespaces []string
}

type recordingCollector struct {
	mu    sync.Mutex
	calls []collectCall
}

func (r *recordingCollector) factory(_ testframe.ClusterClient, opts testframe.CollectorOptions) (testframe.LogCollector, error) { //nolint:ireturn // factory signature
	return &boundCollector{rec: r, root: opts.RootPath}, nil
}

func (r *recordingCollector) snapshot() []collectCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}

// suffixes returns the distinct suffixes collected so far, in order.
func (r *recordingCollector) suffixes() []string {
	var out []string
	for _, c := range r.snapshot() {
		if !slices.Contains(out, c.suffix) {
			out = append(out, c.suffix)
		}
	}
	return out
}

type boundCollector struct {
	rec  *recordingCollector
	root string
}

func (b *boundCollector) CollectFromNamespaces(_ context.Context, suffix string, namespaces []string) error {
	b.rec.mu.Lock()
	defer b.rec.mu.Unlock()
	b.rec.calls = append(b.rec.calls, collectCall{root: b.root, suffix: suffix, namespaces: slices.Clone(namespaces)})
	return nil
}

func (b *boundCollector) CollectClusterWideResources(context.Context, string) error {
	return nil
}

func namespaceObject(name string) *corev1.Namespace {
	return &corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: name}}
}

func configMap(namespace, name string) *unstructured.Unstructured {
	obj := &unstructured.Unstructured{}
	obj.SetAPIVersion("v1")
	obj.SetKind("ConfigMap")
	obj.SetNamespace(namespace)
	obj.SetName(name)
	return obj
}
