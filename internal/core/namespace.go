package core

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// LogCollectionLabel marks a namespace for diagnostic collection. Every
// namespace created while log collection is enabled carries it with value
// LogCollectionLabelValue.
const (
	LogCollectionLabel      = "testframe.skodjob.io/log-collection"
	LogCollectionLabelValue = "enabled"
)

// DefaultPropagationDelay is the pause between creating a namespace and
// re-reading it.
const DefaultPropagationDelay = 100 * time.Millisecond

// systemNamespaces are never deleted, even if they somehow end up in a
// created-list.
var systemNamespaces = map[string]struct{}{
	"default":         {},
	"kube-system":     {},
	"kube-public":     {},
	"kube-node-lease": {},
}

// SystemNamespaceNames returns the protected namespace names, sorted. The
// returned slice is a copy.
func SystemNamespaceNames() []string {
	return slices.Sorted(maps.Keys(systemNamespaces))
}

// IsSystemNamespace reports whether name is a protected namespace.
func IsSystemNamespace(name string) bool {
	_, ok := systemNamespaces[name]
	return ok
}

// ManagerLookup resolves the resource manager of a cluster context.
type ManagerLookup func(ctx context.Context, contextName string) (*ResourceManager, error)

// NamespaceManager provisions the declared namespaces of a session and
// removes the ones it created.
type NamespaceManager struct {
	store   *Store
	delay   time.Duration
	labeled map[*ResourceManager]struct{}
}

// NewNamespaceManager returns a manager recording into store. A negative
// delay is treated as zero.
func NewNamespaceManager(store *Store, delay time.Duration) *NamespaceManager {
	return &NamespaceManager{
		store:   store,
		delay:   max(delay, 0),
		labeled: make(map[*ResourceManager]struct{}),
	}
}

// SetupNamespaces makes every declared namespace available: first those of
// the primary context, then those of each context mapping in order. Existing
// namespaces are reused untouched; missing ones are created when allowed.
func (n *NamespaceManager) SetupNamespaces(ctx context.Context, cfg *SessionConfig, lookup ManagerLookup) error {
	if len(cfg.Namespaces) > 0 {
		rm, err := lookup(ctx, PrimaryContext)
		if err != nil {
			return err
		}
		req := provisionRequest{
			contextName: PrimaryContext,
			displayName: displayContext(cfg.Context),
			names:       cfg.Namespaces,
			create:      cfg.EffectiveCreateNamespaces(nil),
			labels:      cfg.NamespaceLabels,
			annotations: cfg.NamespaceAnnotations,
		}
		if err := n.provision(ctx, rm, req); err != nil {
			return err
		}
	}

	for idx := range cfg.ContextMappings {
		m := &cfg.ContextMappings[idx]
		if len(m.Namespaces) == 0 {
			continue
		}
		rm, err := lookup(ctx, m.Context)
		if err != nil {
			return err
		}
		req := provisionRequest{
			contextName: m.Context,
			displayName: m.Context,
			names:       m.Namespaces,
			create:      cfg.EffectiveCreateNamespaces(m),
			labels:      cfg.NamespaceLabels,
			annotations: cfg.NamespaceAnnotations,

			labelOverrides:      m.NamespaceLabels,
			annotationOverrides: m.NamespaceAnnotations,
		}
		if err := n.provision(ctx, rm, req); err != nil {
			return err
		}
	}
	return nil
}

type provisionRequest struct {
	contextName string
	displayName string
	names       []string
	create      bool
	// labels and annotations are "k=v" entries; later entries win and the
	// overrides win over both.
	labels      []string
	annotations []string

	labelOverrides      []string
	annotationOverrides []string
}

func (n *NamespaceManager) provision(ctx context.Context, rm *ResourceManager, req provisionRequest) error {
	labels, err := MergeKeyValues(req.labels, req.labelOverrides)
	if err != nil {
		return fmt.Errorf("namespace labels for context %s: %w", req.displayName, err)
	}
	annotations, err := MergeKeyValues(req.annotations, req.annotationOverrides)
	if err != nil {
		return fmt.Errorf("namespace annotations for context %s: %w", req.displayName, err)
	}

	state := n.store.Context(req.contextName)
	client := rm.Client()
	log := Logger().With("context", req.displayName)

	for _, name := range req.names {
		exists, err := client.NamespaceExists(ctx, name)
		if err != nil {
			return fmt.Errorf("check namespace %s in context %s: %w", name, req.displayName, err)
		}

		if exists {
			live, err := client.GetNamespace(ctx, name)
			if err != nil {
				return fmt.Errorf("get namespace %s in context %s: %w", name, req.displayName, err)
			}
			state.Namespaces[name] = live
			log.Info("reusing existing namespace", "namespace", name)
			continue
		}

		if !req.create {
			return fmt.Errorf("%w: namespace %s in context %s", ErrNamespaceUnavailable, name, req.displayName)
		}

		desired := &corev1.Namespace{
			ObjectMeta: metav1.ObjectMeta{
				Name:        name,
				Labels:      maps.Clone(labels),
				Annotations: maps.Clone(annotations),
			},
		}
		created, err := rm.CreateNamespace(ctx, desired)
		if err != nil {
			return fmt.Errorf("in context %s: %w", req.displayName, err)
		}
		state.Created = append(state.Created, name)
		log.Info("created namespace", "namespace", name)

		if err := sleepContext(ctx, n.delay); err != nil {
			return fmt.Errorf("wait for namespace %s: %w", name, err)
		}

		state.Namespaces[name] = n.reconcile(ctx, client, desired, created, labels)
	}
	return nil
}

// reconcile re-reads a freshly created namespace. When the server view does
// not yet carry every requested label, the locally built object is kept with
// the server-reported status.
func (n *NamespaceManager) reconcile(
	ctx context.Context,
	client ClusterClient,
	desired, created *corev1.Namespace,
	labels map[string]string,
) *corev1.Namespace {
	live, err := client.GetNamespace(ctx, desired.Name)
	if err == nil && live != nil && containsLabels(live.Labels, labels) {
		return live
	}
	if err != nil {
		Logger().Debug("re-read of created namespace failed, using local copy",
			"namespace", desired.Name, "error", err)
	}

	fallback := desired.DeepCopy()
	switch {
	case live != nil:
		fallback.Status = live.Status
	case created != nil:
		fallback.Status = created.Status
	}
	return fallback
}

func containsLabels(have, want map[string]string) bool {
	if len(want) > 0 && len(have) == 0 {
		return false
	}
	for k, v := range want {
		if got, ok := have[k]; !ok || got != v {
			return false
		}
	}
	return true
}

// SetupAutoLabeling makes rm label every namespace it creates with the log
// collection marker. Installing twice on the same manager is a no-op.
func (n *NamespaceManager) SetupAutoLabeling(rm *ResourceManager) {
	if _, done := n.labeled[rm]; done {
		return
	}
	n.labeled[rm] = struct{}{}

	rm.OnCreate(func(ctx context.Context, rm *ResourceManager, obj *unstructured.Unstructured) {
		if obj.GetKind() != "Namespace" {
			return
		}
		err := rm.Client().LabelNamespace(ctx, obj.GetName(), map[string]string{
			LogCollectionLabel: LogCollectionLabelValue,
		})
		if err != nil {
			Logger().Warn("failed to label namespace for log collection",
				"context", displayContext(rm.ClusterContext()), "namespace", obj.GetName(), "error", err)
		}
	})
}

// CleanupNamespaces deletes the namespaces this session created in
// contextName and waits for each deletion. Failures are logged and do not
// stop the remaining deletions; they are returned joined.
func (n *NamespaceManager) CleanupNamespaces(ctx context.Context, contextName string, rm *ResourceManager) error {
	state, ok := n.store.Lookup(contextName)
	if !ok || len(state.Created) == 0 {
		return nil
	}

	log := Logger().With("context", displayContext(contextName))
	var errs []error
	var remaining []string
	for _, name := range state.Created {
		if IsSystemNamespace(name) {
			log.Warn("refusing to delete system namespace", "namespace", name)
			continue
		}
		if err := rm.Client().DeleteNamespace(ctx, name, true); err != nil {
			log.Warn("failed to delete namespace", "namespace", name, "error", err)
			errs = append(errs, fmt.Errorf("delete namespace %s: %w", name, err))
			remaining = append(remaining, name)
			continue
		}
		delete(state.Namespaces, name)
		log.Info("deleted namespace", "namespace", name)
	}
	state.Created = remaining
	return errors.Join(errs...)
}

// displayContext names a context for messages.
func displayContext(name string) string {
	if name == PrimaryContext {
		return "default"
	}
	return name
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
