package logcollector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/skodjob/test-frame-sub000/internal/core"
	"github.com/skodjob/test-frame-sub000/internal/fileutil"
	"github.com/skodjob/test-frame-sub000/internal/kube"
	"github.com/skodjob/test-frame-sub000/internal/sentinel"
	"golang.org/x/sync/errgroup"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"sigs.k8s.io/yaml"
)

// ErrUnsupportedClient is returned by Factory for a cluster client that does
// not expose client-go clients.
const ErrUnsupportedClient = sentinel.Error("cluster client does not expose client-go clients")

// ClusterWideDir is the directory holding cluster-scoped resource dumps.
const ClusterWideDir = "cluster-wide-resources"

// DefaultConcurrency bounds parallel container log fetches.
const DefaultConcurrency = 8

// Source is what a Collector needs from a cluster client. *kube.Client
// implements it.
type Source interface {
	Clients() (*kube.Clients, error)
	KindMapping(kind string) (*meta.RESTMapping, error)
}

// Verify Collector implements core.LogCollector at compile time.
var _ core.LogCollector = (*Collector)(nil)

// Collector writes diagnostics of one cluster context under a root path.
type Collector struct {
	src         Source
	clients     *kube.Clients
	opts        core.CollectorOptions
	concurrency int
	log         *slog.Logger
}

// New returns a Collector reading from the context src is bound to now.
func New(src Source, opts core.CollectorOptions) (*Collector, error) {
	clients, err := src.Clients()
	if err != nil {
		return nil, fmt.Errorf("resolve collector clients: %w", err)
	}
	return &Collector{
		src:         src,
		clients:     clients,
		opts:        opts,
		concurrency: DefaultConcurrency,
		log:         core.Logger().With("root", opts.RootPath),
	}, nil
}

// Factory returns a core.CollectorFactory for clients implementing Source.
func Factory() core.CollectorFactory {
	return func(client core.ClusterClient, opts core.CollectorOptions) (core.LogCollector, error) {
		src, ok := client.(Source)
		if !ok {
			return nil, fmt.Errorf("%w: %T", ErrUnsupportedClient, client)
		}
		return New(src, opts)
	}
}

// errorList gathers errors from concurrent workers.
type errorList struct {
	mu   sync.Mutex
	errs []error
}

func (l *errorList) add(err error) {
	if err == nil {
		return
	}
	l.mu.Lock()
	l.errs = append(l.errs, err)
	l.mu.Unlock()
}

func (l *errorList) join() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return errors.Join(l.errs...)
}

// CollectFromNamespaces writes container logs, events and the configured
// namespaced kinds for every namespace. It keeps going past failures and
// returns them joined.
func (c *Collector) CollectFromNamespaces(ctx context.Context, suffix string, namespaces []string) error {
	fl, err := acquireRootLock(ctx, c.opts.RootPath)
	if err != nil {
		return err
	}
	defer releaseRootLock(c.log, fl)

	var errs errorList
	for _, ns := range namespaces {
		dir := filepath.Join(c.opts.RootPath, suffix, ns)
		errs.add(c.collectPodLogs(ctx, ns, dir))
		errs.add(c.collectEvents(ctx, ns, dir))
		for _, kind := range c.opts.NamespacedKinds {
			errs.add(c.dumpKind(ctx, kind, ns, dir))
		}
		c.log.Debug("collected namespace", "namespace", ns, "suffix", suffix)
	}
	return errs.join()
}

// CollectClusterWideResources dumps the configured cluster-scoped kinds.
func (c *Collector) CollectClusterWideResources(ctx context.Context, suffix string) error {
	if len(c.opts.ClusterWideKinds) == 0 {
		return nil
	}
	fl, err := acquireRootLock(ctx, c.opts.RootPath)
	if err != nil {
		return err
	}
	defer releaseRootLock(c.log, fl)

	dir := filepath.Join(c.opts.RootPath, suffix, ClusterWideDir)
	var errs errorList
	for _, kind := range c.opts.ClusterWideKinds {
		errs.add(c.dumpKind(ctx, kind, "", dir))
	}
	return errs.join()
}

func (c *Collector) collectPodLogs(ctx context.Context, ns, dir string) error {
	pods, err := c.clients.Kube.CoreV1().Pods(ns).List(ctx, metav1.ListOptions{})
	if err != nil {
		return fmt.Errorf("list pods in %s: %w", ns, err)
	}

	var errs errorList
	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for idx := range pods.Items {
		pod := &pods.Items[idx]
		for _, container := range podContainers(pod) {
			g.Go(func() error {
				path := filepath.Join(dir, "pods", pod.Name+"-"+container+".log")
				errs.add(c.writeLog(ctx, ns, pod.Name, container, false, path))
				return nil
			})
			if c.opts.CollectPrevious {
				g.Go(func() error {
					path := filepath.Join(dir, "pods", pod.Name+"-"+container+"-previous.log")
					// Most containers have no previous instance.
					if err := c.writeLog(ctx, ns, pod.Name, container, true, path); err != nil {
						c.log.Debug("no previous logs", "namespace", ns, "pod", pod.Name, "container", container, "error", err)
					}
					return nil
				})
			}
		}
	}
	_ = g.Wait()
	return errs.join()
}

func podContainers(pod *corev1.Pod) []string {
	names := make([]string, 0, len(pod.Spec.InitContainers)+len(pod.Spec.Containers))
	for idx := range pod.Spec.InitContainers {
		names = append(names, pod.Spec.InitContainers[idx].Name)
	}
	for idx := range pod.Spec.Containers {
		names = append(names, pod.Spec.Containers[idx].Name)
	}
	return names
}

func (c *Collector) writeLog(ctx context.Context, ns, pod, container string, previous bool, path string) error {
	req := c.clients.Kube.CoreV1().Pods(ns).GetLogs(pod, &corev1.PodLogOptions{
		Container: container,
		Previous:  previous,
	})
	stream, err := req.Stream(ctx)
	if err != nil {
		return fmt.Errorf("stream logs %s/%s[%s]: %w", ns, pod, container, err)
	}
	defer stream.Close()

	return fileutil.WriteFrom(path, func(w io.Writer) error {
		_, err := io.Copy(w, stream)
		return err
	})
}

func (c *Collector) collectEvents(ctx context.Context, ns, dir string) error {
	events, err := c.clients.Kube.CoreV1().Events(ns).List(ctx, metav1.ListOptions{})
	if err != nil {
		return fmt.Errorf("list events in %s: %w", ns, err)
	}
	if len(events.Items) == 0 {
		return nil
	}
	for idx := range events.Items {
		events.Items[idx].ManagedFields = nil
	}
	data, err := yaml.Marshal(events.Items)
	if err != nil {
		return fmt.Errorf("encode events in %s: %w", ns, err)
	}
	return fileutil.WriteFile(filepath.Join(dir, "events.yaml"), data)
}

// dumpKind writes every object of kind to {dir}/{kind}/{name}.yaml. ns is
// empty for cluster-scoped kinds.
func (c *Collector) dumpKind(ctx context.Context, kind, ns, dir string) error {
	mapping, err := c.src.KindMapping(kind)
	if err != nil {
		return err
	}

	res := c.clients.Dynamic.Resource(mapping.Resource)
	var list *unstructured.UnstructuredList
	if ns != "" && mapping.Scope.Name() == meta.RESTScopeNameNamespace {
		list, err = res.Namespace(ns).List(ctx, metav1.ListOptions{})
	} else {
		list, err = res.List(ctx, metav1.ListOptions{})
	}
	if err != nil {
		return fmt.Errorf("list %s: %w", kind, err)
	}

	kindDir := filepath.Join(dir, strings.ToLower(mapping.GroupVersionKind.Kind))
	var errs []error
	for idx := range list.Items {
		item := &list.Items[idx]
		item.SetManagedFields(nil)
		data, err := yaml.Marshal(item.Object)
		if err != nil {
			errs = append(errs, fmt.Errorf("encode %s %s: %w", kind, item.GetName(), err))
			continue
		}
		if err := fileutil.WriteFile(filepath.Join(kindDir, item.GetName()+".yaml"), data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
