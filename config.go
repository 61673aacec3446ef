package testframe

import (
	"fmt"
	"os"

	"github.com/skodjob/test-frame-sub000/internal/core"
	"sigs.k8s.io/yaml"
)

// SessionConfig is the resolved configuration of one suite. Build it with
// NewSessionConfig or LoadConfig; it must not be modified once a session
// has started.
type SessionConfig = core.SessionConfig

// ContextMapping declares namespaces and overrides for one additional
// cluster context.
type ContextMapping = core.ContextMapping

// NewSessionConfig returns a SessionConfig with the package defaults and
// opts applied in order. The result is not validated; SetupSuite validates
// it before touching a cluster.
func NewSessionConfig(opts ...ConfigOption) *SessionConfig {
	cfg := defaultSessionConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// ParseConfig decodes YAML (or JSON) on top of the package defaults and
// validates the result. Unknown fields are rejected.
func ParseConfig(data []byte) (*SessionConfig, error) {
	cfg := defaultSessionConfig()
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: decode: %w", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig reads and parses the configuration file at path.
func LoadConfig(path string) (*SessionConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// ConfigProvider resolves the configuration of a suite by name. Returning
// (nil, nil) declares that the suite has no configuration, which fails
// SetupSuite with ErrConfigurationMissing.
type ConfigProvider = core.ConfigProvider

// ConfigFunc adapts a function to ConfigProvider.
type ConfigFunc func(suiteName string) (*SessionConfig, error)

// SessionConfig implements ConfigProvider.
func (f ConfigFunc) SessionConfig(suiteName string) (*SessionConfig, error) {
	return f(suiteName)
}

// Verify ConfigFunc implements ConfigProvider at compile time.
var _ ConfigProvider = ConfigFunc(nil)

// StaticConfig returns a provider that hands the same configuration to every
// suite. A nil cfg yields ErrConfigurationMissing at setup.
func StaticConfig(cfg *SessionConfig) ConfigProvider { //nolint:ireturn // provider is consumed as an interface
	return ConfigFunc(func(string) (*SessionConfig, error) {
		return cfg, nil
	})
}

// FileConfig returns a provider that loads path at suite setup. A missing
// file is reported as ErrConfigurationMissing.
func FileConfig(path string) ConfigProvider { //nolint:ireturn // provider is consumed as an interface
	return ConfigFunc(func(string) (*SessionConfig, error) {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, nil
		}
		return LoadConfig(path)
	})
}
