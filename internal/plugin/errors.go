// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlexDesk Contributors

package plugin

import (
	"time"

	"github.com/samber/oops"
)

// Error codes for lifecycle failures.
const (
	CodeInvalidModule  = "INVALID_PLUGIN_MODULE"
	CodeHookError      = "LIFECYCLE_HOOK_ERROR"
	CodeContextRevoked = "CONTEXT_REVOKED"
	CodeUnknownView    = "UNKNOWN_VIEWPORT"
	CodeClosed         = "ORCHESTRATOR_CLOSED"
	CodeNotRunning     = "PLUGIN_NOT_RUNNING"
)

// Failure records a plugin-scoped error. Failures are kept for
// introspection and never returned from Bootstrap or Reconcile.
type Failure struct {
	PluginID string
	Phase    Phase
	Code     string
	Err      error
	Time     time.Time
}

// ErrContextRevoked is returned by a Context whose plugin has failed or
// been torn down.
func ErrContextRevoked(pluginID, op string) error {
	return oops.Code(CodeContextRevoked).
		In("plugin").
		With("plugin", pluginID).
		With("operation", op).
		Errorf("context for plugin %s has been revoked", pluginID)
}

// ErrUnknownView creates an error for opening a viewport nobody registered.
func ErrUnknownView(pluginID, id string) error {
	return oops.Code(CodeUnknownView).
		In("plugin").
		With("plugin", pluginID).
		With("viewport", id).
		Errorf("viewport %q is not registered", id)
}

// ErrNotRunning creates an error for a plugin that is not in StateStarted.
func ErrNotRunning(pluginID string) error {
	return oops.Code(CodeNotRunning).
		In("plugin").
		With("plugin", pluginID).
		Errorf("plugin %s is not running", pluginID)
}

func errInvalidModule(pluginID, reason string) error {
	return oops.Code(CodeInvalidModule).
		In("plugin").
		With("plugin", pluginID).
		Errorf("invalid plugin module: %s", reason)
}
