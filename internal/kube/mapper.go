package kube

import (
	"fmt"
	"strings"
	"sync"

	"k8s.io/apimachinery/pkg/api/meta"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/discovery"
	"k8s.io/client-go/restmapper"
)

// discoveryMapper caches a RESTMapper built from live API discovery. It is
// built on first use and rebuilt once when a lookup reports NoMatch, which
// covers types installed after the mapper was cached.
type discoveryMapper struct {
	mu     sync.Mutex
	disc   discovery.DiscoveryInterface
	mapper meta.RESTMapper
}

func newDiscoveryMapper(disc discovery.DiscoveryInterface) *discoveryMapper {
	return &discoveryMapper{disc: disc}
}

func (dm *discoveryMapper) refreshLocked() error {
	gr, err := restmapper.GetAPIGroupResources(dm.disc)
	if err != nil {
		return fmt.Errorf("get api groups: %w", err)
	}
	dm.mapper = restmapper.NewDiscoveryRESTMapper(gr)
	return nil
}

// lookup runs fn against the cached mapper, refreshing it once on NoMatch.
func (dm *discoveryMapper) lookup(fn func(meta.RESTMapper) (*meta.RESTMapping, error)) (*meta.RESTMapping, error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if dm.mapper == nil {
		if err := dm.refreshLocked(); err != nil {
			return nil, err
		}
	}
	mapping, err := fn(dm.mapper)
	if err == nil || !meta.IsNoMatchError(err) {
		return mapping, err
	}
	if err := dm.refreshLocked(); err != nil {
		return nil, err
	}
	return fn(dm.mapper)
}

// RESTMapping resolves gvk.
func (dm *discoveryMapper) RESTMapping(gvk schema.GroupVersionKind) (*meta.RESTMapping, error) {
	mapping, err := dm.lookup(func(m meta.RESTMapper) (*meta.RESTMapping, error) {
		return m.RESTMapping(gvk.GroupKind(), gvk.Version)
	})
	if err != nil {
		return nil, fmt.Errorf("get rest mapping for %v: %w", gvk, err)
	}
	return mapping, nil
}

// KindMapping resolves a bare kind or resource name such as "Deployment",
// "deployments" or "deployments.apps" to its preferred REST mapping.
func (dm *discoveryMapper) KindMapping(kind string) (*meta.RESTMapping, error) {
	gvr := schema.ParseGroupResource(strings.ToLower(strings.TrimSpace(kind))).WithVersion("")
	mapping, err := dm.lookup(func(m meta.RESTMapper) (*meta.RESTMapping, error) {
		full, err := m.ResourceFor(gvr)
		if err != nil {
			return nil, err
		}
		gvk, err := m.KindFor(full)
		if err != nil {
			return nil, err
		}
		return m.RESTMapping(gvk.GroupKind(), gvk.Version)
	})
	if err != nil {
		return nil, fmt.Errorf("resolve kind %q: %w", kind, err)
	}
	return mapping, nil
}
