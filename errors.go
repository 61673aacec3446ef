package testframe

import "github.com/skodjob/test-frame-sub000/internal/core"

// Sentinel errors for use with errors.Is.
// These are const values re-exported from the internal core package so
// callers do not need to import internal packages.
const (
	// ErrConfigurationMissing is returned by SetupSuite when the provider
	// has no configuration for the suite.
	ErrConfigurationMissing = core.ErrConfigurationMissing

	// ErrInvalidConfig wraps every configuration validation failure.
	ErrInvalidConfig = core.ErrInvalidConfig

	// ErrNamespaceUnavailable is returned when a declared namespace is
	// missing and namespace creation is disabled for its context.
	ErrNamespaceUnavailable = core.ErrNamespaceUnavailable

	// ErrResourceManagerUnavailable is returned when a lookup names a
	// cluster context that is neither bound nor declared.
	ErrResourceManagerUnavailable = core.ErrResourceManagerUnavailable

	// ErrInvalidState is returned when a lifecycle method is called out of
	// order.
	ErrInvalidState = core.ErrInvalidState

	// ErrHandleReleased is returned when a context handle is released twice.
	ErrHandleReleased = core.ErrHandleReleased
)
