package testframe

import (
	"context"
	"errors"
	"fmt"

	"github.com/skodjob/test-frame-sub000/internal/core"
)

// CollectDiagnostics gathers diagnostics for suiteName outside a running
// session. It binds a resource manager to the primary context and to every
// mapped context of cfg and collects the declared and labeled namespaces of
// each into {logPath}/{suiteName}[/{context}]/{suffix}, exactly as a
// failing session would. Collection problems are logged; only setup errors
// (invalid configuration, unreachable contexts) are returned.
//
// Log collection does not have to be enabled in cfg.
func CollectDiagnostics(ctx context.Context, cfg *SessionConfig, suiteName, suffix string, opts ...SessionOption) (retErr error) {
	if cfg == nil {
		return fmt.Errorf("%w: suite %s", ErrConfigurationMissing, suiteName)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	settings := defaultSessionSettings()
	for _, opt := range opts {
		opt(settings)
	}
	resolved := settings.coreOptions()

	store := core.NewStore()
	store.SetConfig(cfg)
	var handles []ContextHandle
	defer func() {
		for _, h := range handles {
			if err := h.Release(); err != nil {
				retErr = errors.Join(retErr, fmt.Errorf("release context %s: %w", h.Context(), err))
			}
		}
	}()

	bind := func(contextName string) (*ResourceManager, error) {
		client, err := resolved.Clients()
		if err != nil {
			return nil, fmt.Errorf("create cluster client: %w", err)
		}
		rm := core.NewResourceManager(client)
		rm.BindTest(suiteName)
		if contextName != "" {
			h, err := rm.SwitchContext(contextName)
			if err != nil {
				return nil, err
			}
			handles = append(handles, h)
		}
		return rm, nil
	}

	primary, err := bind(cfg.Context)
	if err != nil {
		return err
	}
	store.PutManager(PrimaryContext, primary)
	for idx := range cfg.ContextMappings {
		name := cfg.ContextMappings[idx].Context
		rm, err := bind(name)
		if err != nil {
			return fmt.Errorf("context %s: %w", name, err)
		}
		store.PutManager(name, rm)
	}

	logs := core.NewLogCollectionManager(store, resolved.Collectors)
	if err := logs.Attach(suiteName, cfg, primary); err != nil {
		return err
	}
	logs.CollectLogs(ctx, suffix)
	return nil
}
