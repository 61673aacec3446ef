package testframe

import "time"

// SettingsSnapshot holds a copy of sessionSettings fields for test
// assertions, so the _test package can verify option closures without
// reaching into internals.
type SettingsSnapshot struct {
	Kubeconfig       string
	PropagationDelay time.Duration
	KubeOptions      int
	Injectors        int
	HasClients       bool
	HasCollectors    bool
}

// ApplyOptionsForTesting builds default settings, applies opts and returns
// a snapshot of the result.
func ApplyOptionsForTesting(opts ...SessionOption) SettingsSnapshot {
	s := defaultSessionSettings()
	for _, opt := range opts {
		opt(s)
	}
	return SettingsSnapshot{
		Kubeconfig:       s.kubeconfig,
		PropagationDelay: s.propagationDelay,
		KubeOptions:      len(s.kubeOptions),
		Injectors:        len(s.injectors),
		HasClients:       s.clients != nil,
		HasCollectors:    s.collectors != nil,
	}
}

// ResolvedOptionsForTesting reports whether the resolved core options carry
// both factories, which holds even when no factory option was given.
func ResolvedOptionsForTesting(opts ...SessionOption) bool {
	s := defaultSessionSettings()
	for _, opt := range opts {
		opt(s)
	}
	resolved := s.coreOptions()
	return resolved.Clients != nil && resolved.Collectors != nil
}
