package core

import (
	corev1 "k8s.io/api/core/v1"
)

// ContextState is the namespace bookkeeping for one cluster context.
type ContextState struct {
	// Namespaces maps every declared namespace name to the object observed or
	// created during setup.
	Namespaces map[string]*corev1.Namespace

	// Created lists, in creation order, the namespaces this session created.
	// Suite-end cleanup deletes exactly these.
	Created []string
}

// Store holds all state of one test session. Every key is a cluster context
// name; PrimaryContext ("") is the default context.
//
// A Store is owned by exactly one Session and is not safe for concurrent use.
type Store struct {
	contexts map[string]*ContextState
	order    []string

	managers     map[string]*ResourceManager
	managerOrder []string

	handles     map[string]ContextHandle
	handleOrder []string

	collector LogCollector
	config    *SessionConfig
}

// NewStore returns an empty Store.
func NewStore() *Store {
	s := &Store{}
	s.Reset()
	return s
}

// Context returns the state for name, installing an empty one on first
// access. Later calls return the same instance.
func (s *Store) Context(name string) *ContextState {
	if st, ok := s.contexts[name]; ok {
		return st
	}
	st := &ContextState{Namespaces: make(map[string]*corev1.Namespace)}
	s.contexts[name] = st
	s.order = append(s.order, name)
	return st
}

// Lookup returns the state for name without creating it.
func (s *Store) Lookup(name string) (*ContextState, bool) {
	st, ok := s.contexts[name]
	return st, ok
}

// ContextNames returns the known context names in first-access order.
func (s *Store) ContextNames() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Manager returns the resource manager memoized for name.
func (s *Store) Manager(name string) (*ResourceManager, bool) {
	rm, ok := s.managers[name]
	return rm, ok
}

// PutManager memoizes rm for name. A second registration for the same name
// replaces the manager but keeps its original position.
func (s *Store) PutManager(name string, rm *ResourceManager) {
	if _, ok := s.managers[name]; !ok {
		s.managerOrder = append(s.managerOrder, name)
	}
	s.managers[name] = rm
}

// ManagerNames returns the names of all memoized managers in registration
// order.
func (s *Store) ManagerNames() []string {
	out := make([]string, len(s.managerOrder))
	copy(out, s.managerOrder)
	return out
}

// Handle returns the release handle recorded for name.
//
//nolint:ireturn // handles are provided by the cluster client.
func (s *Store) Handle(name string) (ContextHandle, bool) {
	h, ok := s.handles[name]
	return h, ok
}

// PutHandle records the release handle for name.
func (s *Store) PutHandle(name string, h ContextHandle) {
	if _, ok := s.handles[name]; !ok {
		s.handleOrder = append(s.handleOrder, name)
	}
	s.handles[name] = h
}

// HandleNames returns the names of all recorded handles in registration order.
func (s *Store) HandleNames() []string {
	out := make([]string, len(s.handleOrder))
	copy(out, s.handleOrder)
	return out
}

// Collector returns the attached log collector, or nil.
//
//nolint:ireturn // collectors are injected.
func (s *Store) Collector() LogCollector { return s.collector }

// SetCollector attaches c.
func (s *Store) SetCollector(c LogCollector) { s.collector = c }

// Config returns the session configuration, or nil before suite setup.
func (s *Store) Config() *SessionConfig { return s.config }

// SetConfig records the session configuration.
func (s *Store) SetConfig(cfg *SessionConfig) { s.config = cfg }

// Reset drops all state.
func (s *Store) Reset() {
	s.contexts = make(map[string]*ContextState)
	s.order = nil
	s.managers = make(map[string]*ResourceManager)
	s.managerOrder = nil
	s.handles = make(map[string]ContextHandle)
	s.handleOrder = nil
	s.collector = nil
	s.config = nil
}
