package core

import (
	"errors"
	"fmt"
	"strings"
)

// CleanupPolicy controls whether resources created during a test are removed
// automatically after each test and on failure.
type CleanupPolicy int

const (
	// CleanupAutomatic deletes per-test resources after every test and when any
	// phase fails. Self-created namespaces are always removed at suite end.
	CleanupAutomatic CleanupPolicy = iota

	// CleanupManual leaves per-test resources in place; the test owns them.
	CleanupManual
)

// IsValid reports whether p is a recognized policy.
func (p CleanupPolicy) IsValid() bool {
	switch p {
	case CleanupAutomatic, CleanupManual:
		return true
	default:
		return false
	}
}

// String returns the configuration spelling of the policy.
func (p CleanupPolicy) String() string {
	switch p {
	case CleanupAutomatic:
		return "AUTOMATIC"
	case CleanupManual:
		return "MANUAL"
	default:
		return fmt.Sprintf("CleanupPolicy(%d)", int(p))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p CleanupPolicy) MarshalText() ([]byte, error) {
	if !p.IsValid() {
		return nil, fmt.Errorf("invalid cleanup policy: %v", p)
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Matching is case-insensitive.
func (p *CleanupPolicy) UnmarshalText(text []byte) error {
	switch strings.ToUpper(strings.TrimSpace(string(text))) {
	case "AUTOMATIC":
		*p = CleanupAutomatic
	case "MANUAL":
		*p = CleanupManual
	default:
		return fmt.Errorf("unknown cleanup policy %q", text)
	}
	return nil
}

// LogStrategy controls when diagnostics are collected.
type LogStrategy int

const (
	// LogNever disables collection even when CollectLogs is set.
	LogNever LogStrategy = iota

	// LogOnFailure collects when any lifecycle phase fails.
	LogOnFailure

	// LogAfterEach collects on failure and after every successful test.
	LogAfterEach
)

// IsValid reports whether s is a recognized strategy.
func (s LogStrategy) IsValid() bool {
	switch s {
	case LogNever, LogOnFailure, LogAfterEach:
		return true
	default:
		return false
	}
}

// String returns the configuration spelling of the strategy.
func (s LogStrategy) String() string {
	switch s {
	case LogNever:
		return "NEVER"
	case LogOnFailure:
		return "ON_FAILURE"
	case LogAfterEach:
		return "AFTER_EACH"
	default:
		return fmt.Sprintf("LogStrategy(%d)", int(s))
	}
}

// CollectsOnFailure reports whether failures trigger collection.
func (s LogStrategy) CollectsOnFailure() bool {
	return s == LogOnFailure || s == LogAfterEach
}

// MarshalText implements encoding.TextMarshaler.
func (s LogStrategy) MarshalText() ([]byte, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("invalid log strategy: %v", s)
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Matching is case-insensitive.
func (s *LogStrategy) UnmarshalText(text []byte) error {
	switch strings.ToUpper(strings.TrimSpace(string(text))) {
	case "NEVER":
		*s = LogNever
	case "ON_FAILURE":
		*s = LogOnFailure
	case "AFTER_EACH":
		*s = LogAfterEach
	default:
		return fmt.Errorf("unknown log strategy %q", text)
	}
	return nil
}

// ContextMapping declares namespaces for one additional cluster context.
// Nil override fields inherit the global value.
type ContextMapping struct {
	Context              string         `json:"context"`
	Namespaces           []string       `json:"namespaces,omitempty"`
	CreateNamespaces     *bool          `json:"createNamespaces,omitempty"`
	Cleanup              *CleanupPolicy `json:"cleanup,omitempty"`
	NamespaceLabels      []string       `json:"namespaceLabels,omitempty"`
	NamespaceAnnotations []string       `json:"namespaceAnnotations,omitempty"`
}

// SessionConfig is the resolved configuration of one test session. It is
// built once at suite setup and must not be modified afterwards.
type SessionConfig struct {
	Namespaces           []string      `json:"namespaces,omitempty"`
	CreateNamespaces     bool          `json:"createNamespaces"`
	Cleanup              CleanupPolicy `json:"cleanup"`
	Context              string        `json:"context,omitempty"`
	StoreArtifacts       bool          `json:"storeArtifacts"`
	ArtifactPath         string        `json:"artifactPath,omitempty"`
	NamespaceLabels      []string      `json:"namespaceLabels,omitempty"`
	NamespaceAnnotations []string      `json:"namespaceAnnotations,omitempty"`
	SeparatorChar        string        `json:"separatorChar,omitempty"`
	SeparatorLength      int           `json:"separatorLength,omitempty"`

	CollectLogs              bool        `json:"collectLogs"`
	LogStrategy              LogStrategy `json:"logStrategy"`
	LogPath                  string      `json:"logPath,omitempty"`
	CollectPreviousLogs      bool        `json:"collectPreviousLogs"`
	NamespacedResourceKinds  []string    `json:"namespacedResourceKinds,omitempty"`
	ClusterWideResourceKinds []string    `json:"clusterWideResourceKinds,omitempty"`

	ContextMappings []ContextMapping `json:"contextMappings,omitempty"`
}

// Validate checks every SessionConfig invariant and reports all violations at
// once via errors.Join. The returned error wraps ErrInvalidConfig.
func (c *SessionConfig) Validate() error {
	var errs []error

	errs = append(errs, validateNamespaceList("namespaces", c.Namespaces)...)
	if !c.Cleanup.IsValid() {
		errs = append(errs, fmt.Errorf("invalid cleanup policy: %v", c.Cleanup))
	}
	if !c.LogStrategy.IsValid() {
		errs = append(errs, fmt.Errorf("invalid log strategy: %v", c.LogStrategy))
	}
	if c.StoreArtifacts && c.ArtifactPath == "" {
		errs = append(errs, errors.New("artifact path must not be empty when storeArtifacts is set"))
	}
	if c.SeparatorLength < 0 {
		errs = append(errs, fmt.Errorf("separator length must not be negative, got %d", c.SeparatorLength))
	}
	if _, err := ParseKeyValues(c.NamespaceLabels); err != nil {
		errs = append(errs, fmt.Errorf("namespace labels: %w", err))
	}
	if _, err := ParseKeyValues(c.NamespaceAnnotations); err != nil {
		errs = append(errs, fmt.Errorf("namespace annotations: %w", err))
	}

	seen := make(map[string]struct{}, len(c.ContextMappings))
	for idx := range c.ContextMappings {
		m := &c.ContextMappings[idx]
		if m.Context == "" {
			errs = append(errs, fmt.Errorf("context mapping %d: context name must not be empty", idx))
			continue
		}
		if c.Context != "" && m.Context == c.Context {
			errs = append(errs, fmt.Errorf("context mapping %q duplicates the primary context", m.Context))
		}
		if _, dup := seen[m.Context]; dup {
			errs = append(errs, fmt.Errorf("context mapping %q declared more than once", m.Context))
		}
		seen[m.Context] = struct{}{}
		errs = append(errs, validateNamespaceList(fmt.Sprintf("context %q namespaces", m.Context), m.Namespaces)...)
		if m.Cleanup != nil && !m.Cleanup.IsValid() {
			errs = append(errs, fmt.Errorf("context %q: invalid cleanup policy: %v", m.Context, *m.Cleanup))
		}
		if _, err := ParseKeyValues(m.NamespaceLabels); err != nil {
			errs = append(errs, fmt.Errorf("context %q namespace labels: %w", m.Context, err))
		}
		if _, err := ParseKeyValues(m.NamespaceAnnotations); err != nil {
			errs = append(errs, fmt.Errorf("context %q namespace annotations: %w", m.Context, err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

func validateNamespaceList(field string, names []string) []error {
	var errs []error
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		if n == "" {
			errs = append(errs, fmt.Errorf("%s: namespace name must not be empty", field))
			continue
		}
		if _, dup := seen[n]; dup {
			errs = append(errs, fmt.Errorf("%s: duplicate namespace %q", field, n))
		}
		seen[n] = struct{}{}
	}
	return errs
}

// Mapping returns the ContextMapping for the named context.
func (c *SessionConfig) Mapping(contextName string) (*ContextMapping, bool) {
	for idx := range c.ContextMappings {
		if c.ContextMappings[idx].Context == contextName {
			return &c.ContextMappings[idx], true
		}
	}
	return nil, false
}

// DeclaresContext reports whether contextName is the primary context or one
// of the mapped contexts.
func (c *SessionConfig) DeclaresContext(contextName string) bool {
	if contextName == PrimaryContext || contextName == c.Context {
		return true
	}
	_, ok := c.Mapping(contextName)
	return ok
}

// EffectiveCreateNamespaces returns the mapping override or the global flag.
func (c *SessionConfig) EffectiveCreateNamespaces(m *ContextMapping) bool {
	if m != nil && m.CreateNamespaces != nil {
		return *m.CreateNamespaces
	}
	return c.CreateNamespaces
}

// EffectiveCleanup returns the mapping override or the global policy.
func (c *SessionConfig) EffectiveCleanup(m *ContextMapping) CleanupPolicy {
	if m != nil && m.Cleanup != nil {
		return *m.Cleanup
	}
	return c.Cleanup
}

// CollectsOnFailure reports whether a failure should trigger diagnostics.
func (c *SessionConfig) CollectsOnFailure() bool {
	return c.CollectLogs && c.LogStrategy.CollectsOnFailure()
}

// ParseKeyValues parses "k=v" entries into a map. Later entries win. An entry
// without '=' or with an empty key is an error.
func ParseKeyValues(entries []string) (map[string]string, error) {
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		k, v, ok := strings.Cut(e, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("malformed entry %q, want key=value", e)
		}
		out[k] = strings.TrimSpace(v)
	}
	return out, nil
}

// MergeKeyValues parses base then override; override wins on key collision.
func MergeKeyValues(base, override []string) (map[string]string, error) {
	merged, err := ParseKeyValues(base)
	if err != nil {
		return nil, err
	}
	over, err := ParseKeyValues(override)
	if err != nil {
		return nil, err
	}
	for k, v := range over {
		merged[k] = v
	}
	return merged, nil
}
