package core

import "github.com/skodjob/test-frame-sub000/internal/sentinel"

// ErrConfigurationMissing is returned by SetupSuite when the provider has no
// configuration for the suite. Nothing on the cluster has been touched.
const ErrConfigurationMissing = sentinel.Error("session configuration missing")

// ErrInvalidConfig wraps every SessionConfig validation failure.
const ErrInvalidConfig = sentinel.Error("invalid session configuration")

// ErrNamespaceUnavailable is returned when a declared namespace does not exist
// and namespace creation is disabled for its context.
const ErrNamespaceUnavailable = sentinel.Error("namespace missing and creation disabled")

// ErrResourceManagerUnavailable is returned when a lookup names a cluster
// context that has no bound resource manager and is not declared in the
// configuration.
const ErrResourceManagerUnavailable = sentinel.Error("no resource manager bound for cluster context")

// ErrInvalidState is returned when a lifecycle method is called out of order.
const ErrInvalidState = sentinel.Error("invalid session state for operation")

// ErrHandleReleased is returned when a context handle is released twice.
const ErrHandleReleased = sentinel.Error("context handle already released")

// ErrNoCollector is logged when diagnostics are requested before a log
// collector has been attached. It is never returned to callers.
const ErrNoCollector = sentinel.Error("no log collector attached")
