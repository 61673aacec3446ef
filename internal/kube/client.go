package kube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/skodjob/test-frame-sub000/internal/core"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/dynamic"
	corev1client "k8s.io/client-go/kubernetes/typed/core/v1"
)

const (
	// DefaultDeletePollInterval is the polling interval while waiting for a
	// deleted namespace to disappear.
	DefaultDeletePollInterval = 500 * time.Millisecond

	// DefaultDeleteTimeout bounds the wait for a deleted namespace
	// independently of the caller's context.
	DefaultDeleteTimeout = 5 * time.Minute
)

// Verify Client implements core.ClusterClient at compile time.
var _ core.ClusterClient = (*Client)(nil)

// binding is the set of clients for one context.
type binding struct {
	name    string
	clients *Clients
	mapper  *discoveryMapper
}

func newBinding(name string, clients *Clients) *binding {
	return &binding{name: name, clients: clients, mapper: newDiscoveryMapper(clients.Discovery)}
}

// Client is a core.ClusterClient backed by client-go. It is safe for
// concurrent use; SwitchContext swaps the active binding atomically for
// subsequent calls. The default binding is built on first use, so a
// kubeconfig without a current context works as long as every call happens
// under a switched context.
type Client struct {
	build Builder

	mu      sync.RWMutex
	current *binding // nil selects the default binding

	defaultMu sync.Mutex
	fallback  *binding

	pollInterval  time.Duration
	deleteTimeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithDeletePolling overrides the namespace deletion poll interval and
// timeout. Panics if either is not positive.
func WithDeletePolling(interval, timeout time.Duration) Option {
	if interval <= 0 || timeout <= 0 {
		panic(fmt.Sprintf("kube: delete polling must be positive, got interval=%v timeout=%v", interval, timeout))
	}
	return func(c *Client) {
		c.pollInterval = interval
		c.deleteTimeout = timeout
	}
}

// New returns a Client bound to the default context of build. No clients
// are built until the first call that needs them.
func New(build Builder, opts ...Option) (*Client, error) {
	if build == nil {
		return nil, errors.New("kube: builder must not be nil")
	}
	c := &Client{
		build:         build,
		pollInterval:  DefaultDeletePollInterval,
		deleteTimeout: DefaultDeleteTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ClientFactory returns a core.ClientFactory producing Clients that read
// kubeconfig (default loading rules when empty).
func ClientFactory(kubeconfig string, opts ...Option) core.ClientFactory {
	build := KubeconfigBuilder(kubeconfig)
	return func() (core.ClusterClient, error) {
		return New(build, opts...)
	}
}

func (c *Client) active() (*binding, error) {
	c.mu.RLock()
	current := c.current
	c.mu.RUnlock()
	if current != nil {
		return current, nil
	}
	return c.defaultBinding()
}

// defaultBinding builds the kubeconfig's current context once. A failed
// build is retried on the next call.
func (c *Client) defaultBinding() (*binding, error) {
	c.defaultMu.Lock()
	defer c.defaultMu.Unlock()
	if c.fallback != nil {
		return c.fallback, nil
	}
	clients, err := c.build("")
	if err != nil {
		return nil, fmt.Errorf("build default clients: %w", err)
	}
	c.fallback = newBinding("", clients)
	return c.fallback, nil
}

// Clients returns the client-go interfaces of the active context.
func (c *Client) Clients() (*Clients, error) {
	b, err := c.active()
	if err != nil {
		return nil, err
	}
	return b.clients, nil
}

// KindMapping resolves a kind or resource name against the active context.
func (c *Client) KindMapping(kind string) (*meta.RESTMapping, error) {
	b, err := c.active()
	if err != nil {
		return nil, err
	}
	return b.mapper.KindMapping(kind)
}

// CurrentContext returns the active context name ("" for the default).
func (c *Client) CurrentContext() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == nil {
		return ""
	}
	return c.current.name
}

//nolint:ireturn // typed client-go surface.
func (c *Client) namespaces() (corev1client.NamespaceInterface, error) {
	clients, err := c.Clients()
	if err != nil {
		return nil, err
	}
	return clients.Kube.CoreV1().Namespaces(), nil
}

// NamespaceExists reports whether the namespace exists.
func (c *Client) NamespaceExists(ctx context.Context, name string) (bool, error) {
	nsClient, err := c.namespaces()
	if err != nil {
		return false, err
	}
	_, err = nsClient.Get(ctx, name, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get namespace %s: %w", name, err)
	}
	return true, nil
}

// GetNamespace returns the live namespace.
func (c *Client) GetNamespace(ctx context.Context, name string) (*corev1.Namespace, error) {
	nsClient, err := c.namespaces()
	if err != nil {
		return nil, err
	}
	ns, err := nsClient.Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, fmt.Errorf("get namespace %s: %w", name, err)
	}
	return ns, nil
}

// CreateNamespace creates ns.
func (c *Client) CreateNamespace(ctx context.Context, ns *corev1.Namespace) (*corev1.Namespace, error) {
	nsClient, err := c.namespaces()
	if err != nil {
		return nil, err
	}
	created, err := nsClient.Create(ctx, ns, metav1.CreateOptions{})
	if err != nil {
		return nil, fmt.Errorf("create namespace %s: %w", ns.Name, err)
	}
	return created, nil
}

// DeleteNamespace deletes the namespace and, when wait is set, polls until
// it is gone. A namespace that does not exist is not an error.
func (c *Client) DeleteNamespace(ctx context.Context, name string, wait bool) error {
	nsClient, err := c.namespaces()
	if err != nil {
		return err
	}
	err = nsClient.Delete(ctx, name, metav1.DeleteOptions{})
	if apierrors.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete namespace %s: %w", name, err)
	}
	if !wait {
		return nil
	}
	return c.waitNamespaceGone(ctx, nsClient, name)
}

func (c *Client) waitNamespaceGone(ctx context.Context, nsClient corev1client.NamespaceInterface, name string) error {
	err := wait.PollUntilContextTimeout(ctx, c.pollInterval, c.deleteTimeout, true,
		func(ctx context.Context) (bool, error) {
			_, getErr := nsClient.Get(ctx, name, metav1.GetOptions{})
			if apierrors.IsNotFound(getErr) {
				return true, nil
			}
			if getErr != nil {
				core.Logger().Debug("namespace deletion poll error", "namespace", name, "error", getErr)
			}
			return false, nil
		})
	if err != nil {
		return fmt.Errorf("wait for namespace %s deletion: %w", name, err)
	}
	return nil
}

// ListNamespaces returns the namespaces matching selector.
func (c *Client) ListNamespaces(ctx context.Context, selector labels.Selector) ([]corev1.Namespace, error) {
	opts := metav1.ListOptions{}
	if selector != nil && !selector.Empty() {
		opts.LabelSelector = selector.String()
	}
	nsClient, err := c.namespaces()
	if err != nil {
		return nil, err
	}
	list, err := nsClient.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("list namespaces: %w", err)
	}
	return list.Items, nil
}

// LabelNamespace merges lbls into the namespace's labels.
func (c *Client) LabelNamespace(ctx context.Context, name string, lbls map[string]string) error {
	patch, err := json.Marshal(map[string]any{
		"metadata": map[string]any{"labels": lbls},
	})
	if err != nil {
		return fmt.Errorf("encode label patch: %w", err)
	}
	nsClient, err := c.namespaces()
	if err != nil {
		return err
	}
	_, err = nsClient.Patch(ctx, name, types.MergePatchType, patch, metav1.PatchOptions{})
	if err != nil {
		return fmt.Errorf("label namespace %s: %w", name, err)
	}
	return nil
}

// resourceFor returns the dynamic resource interface serving obj.
//
//nolint:ireturn // dynamic.ResourceInterface is the client-go surface.
func (c *Client) resourceFor(obj *unstructured.Unstructured) (dynamic.ResourceInterface, error) {
	b, err := c.active()
	if err != nil {
		return nil, err
	}
	gvk := obj.GroupVersionKind()
	if gvk.Kind == "" {
		return nil, fmt.Errorf("object %s has no kind", obj.GetName())
	}
	mapping, err := b.mapper.RESTMapping(gvk)
	if err != nil {
		return nil, err
	}
	if mapping.Scope.Name() == meta.RESTScopeNameNamespace {
		ns := obj.GetNamespace()
		if ns == "" {
			ns = metav1.NamespaceDefault
		}
		return b.clients.Dynamic.Resource(mapping.Resource).Namespace(ns), nil
	}
	return b.clients.Dynamic.Resource(mapping.Resource), nil
}

// Create creates obj through the dynamic client.
func (c *Client) Create(ctx context.Context, obj *unstructured.Unstructured) (*unstructured.Unstructured, error) {
	res, err := c.resourceFor(obj)
	if err != nil {
		return nil, err
	}
	created, err := res.Create(ctx, obj, metav1.CreateOptions{})
	if err != nil {
		return nil, fmt.Errorf("create %s/%s: %w", obj.GetKind(), obj.GetName(), err)
	}
	return created, nil
}

// Delete deletes obj with background propagation. A missing object is not
// an error.
func (c *Client) Delete(ctx context.Context, obj *unstructured.Unstructured) error {
	res, err := c.resourceFor(obj)
	if err != nil {
		return err
	}
	policy := metav1.DeletePropagationBackground
	err = res.Delete(ctx, obj.GetName(), metav1.DeleteOptions{PropagationPolicy: &policy})
	if err != nil && !apierrors.IsNotFound(err) {
		return fmt.Errorf("delete %s/%s: %w", obj.GetKind(), obj.GetName(), err)
	}
	return nil
}

// SwitchContext binds the client to the named context. The returned handle
// restores the previous binding.
//
//nolint:ireturn // core.ContextHandle is the contract.
func (c *Client) SwitchContext(name string) (core.ContextHandle, error) {
	clients, err := c.build(name)
	if err != nil {
		return nil, fmt.Errorf("build clients for context %s: %w", name, err)
	}

	c.mu.Lock()
	previous := c.current
	next := newBinding(name, clients)
	c.current = next
	c.mu.Unlock()

	previousName := ""
	if previous != nil {
		previousName = previous.name
	}
	core.Logger().Debug("switched cluster context", "context", name, "previous", previousName)
	return &handle{client: c, previous: previous, next: next}, nil
}

// handle restores a previous binding exactly once.
type handle struct {
	client   *Client
	previous *binding
	next     *binding
	released atomic.Bool
}

func (h *handle) Context() string { return h.next.name }

func (h *handle) Release() error {
	if !h.released.CompareAndSwap(false, true) {
		return core.ErrHandleReleased
	}
	h.client.mu.Lock()
	defer h.client.mu.Unlock()
	// A later switch that is still active keeps its binding.
	if h.client.current == h.next {
		h.client.current = h.previous
	}
	return nil
}
