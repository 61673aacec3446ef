package core

import (
	"context"
	"fmt"
)

// ManagerFactory returns a fresh ResourceManager bound to the default
// cluster context.
type ManagerFactory func() (*ResourceManager, error)

// Registry memoizes one ResourceManager per cluster context for the
// lifetime of a session.
type Registry struct {
	store      *Store
	newManager ManagerFactory
	namespaces *NamespaceManager
}

// NewRegistry returns a Registry that records managers in store.
func NewRegistry(store *Store, newManager ManagerFactory, namespaces *NamespaceManager) *Registry {
	return &Registry{store: store, newManager: newManager, namespaces: namespaces}
}

// GetOrCreate returns the manager for contextName. The first call for a
// name builds a manager, switches it to that context, records the release
// handle, binds it to the primary manager's test identity and mirrors the
// primary artifact and log settings. Later calls return the same manager
// without switching again.
func (r *Registry) GetOrCreate(_ context.Context, contextName string) (*ResourceManager, error) {
	if rm, ok := r.store.Manager(contextName); ok {
		return rm, nil
	}
	if contextName == PrimaryContext {
		return nil, fmt.Errorf("%w: %s", ErrResourceManagerUnavailable, displayContext(contextName))
	}

	rm, err := r.newManager()
	if err != nil {
		return nil, fmt.Errorf("create resource manager for context %s: %w", contextName, err)
	}
	h, err := rm.SwitchContext(contextName)
	if err != nil {
		return nil, err
	}
	r.store.PutHandle(contextName, h)

	if primary, ok := r.store.Manager(PrimaryContext); ok {
		rm.BindTest(primary.TestIdentity())
		rm.SetArtifactPath(primary.ArtifactPath())
	}
	if cfg := r.store.Config(); cfg != nil && cfg.CollectLogs && r.namespaces != nil {
		r.namespaces.SetupAutoLabeling(rm)
	}

	r.store.PutManager(contextName, rm)
	Logger().Debug("registered resource manager", "context", contextName)
	return rm, nil
}

// Lookup resolves a manager for test code. The primary context may be named
// either as PrimaryContext or by the configured context name. Other contexts
// must be declared in a context mapping; they are created on first use.
func (r *Registry) Lookup(ctx context.Context, contextName string) (*ResourceManager, error) {
	cfg := r.store.Config()
	if cfg != nil && cfg.Context != "" && contextName == cfg.Context {
		contextName = PrimaryContext
	}
	if rm, ok := r.store.Manager(contextName); ok {
		return rm, nil
	}
	if contextName == PrimaryContext || cfg == nil || !cfg.DeclaresContext(contextName) {
		return nil, fmt.Errorf("%w: %s", ErrResourceManagerUnavailable, displayContext(contextName))
	}
	return r.GetOrCreate(ctx, contextName)
}
