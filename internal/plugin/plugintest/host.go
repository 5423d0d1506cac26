// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlexDesk Contributors

// Package plugintest provides an in-memory plugin host and manifest helpers
// for tests.
package plugintest

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/plexdesk/plexdesk/internal/manifest"
	"github.com/plexdesk/plexdesk/pkg/pluginsdk"
)

// EntryFile is the entry file name descriptors built here use.
const EntryFile = "init.lua"

// Factory builds a module each time a plugin is loaded.
type Factory func() (*pluginsdk.Module, error)

// Host resolves modules from an in-memory table keyed by plugin id.
type Host struct {
	mu        sync.Mutex
	factories map[string]Factory
	loaded    []string
	unloaded  []string
	closed    bool
}

// NewHost creates an empty host.
func NewHost() *Host {
	return &Host{factories: make(map[string]Factory)}
}

// Add serves mod for plugin id. The same module value is returned on every load.
func (h *Host) Add(id string, mod *pluginsdk.Module) *Host {
	return h.AddFunc(id, func() (*pluginsdk.Module, error) { return mod, nil })
}

// AddFunc serves the result of f for plugin id.
func (h *Host) AddFunc(id string, f Factory) *Host {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.factories[id] = f
	return h
}

// Load implements the plugin host contract.
func (h *Host) Load(_ context.Context, desc manifest.Descriptor, _ string) (*pluginsdk.Module, error) {
	h.mu.Lock()
	f, ok := h.factories[desc.ID]
	if ok {
		h.loaded = append(h.loaded, desc.ID)
	}
	h.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("no module for %s", desc.ID)
	}
	return f()
}

// Unload implements the plugin host contract.
func (h *Host) Unload(_ context.Context, id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unloaded = append(h.unloaded, id)
	return nil
}

// Close implements the plugin host contract.
func (h *Host) Close(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	return nil
}

// Loaded returns the ids passed to Load, in order.
func (h *Host) Loaded() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.loaded)
}

// Unloaded returns the ids passed to Unload, in order.
func (h *Host) Unloaded() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.unloaded)
}

// Closed reports whether Close was called.
func (h *Host) Closed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// Descriptor returns an enabled descriptor for a plugin at the top level
// of the plugins directory.
func Descriptor(id string, priority int) manifest.Descriptor {
	return manifest.Descriptor{
		ID:       id,
		Path:     id,
		Main:     EntryFile,
		Enabled:  true,
		Priority: priority,
	}
}

// File wraps descriptors in a manifest file.
func File(descs ...manifest.Descriptor) *manifest.File {
	return manifest.New(descs, "plugintest", time.Unix(0, 0))
}

// Module returns a valid module whose start hook runs start.
func Module(id string, start func(context.Context, pluginsdk.Context) error) *pluginsdk.Module {
	if start == nil {
		start = func(context.Context, pluginsdk.Context) error { return nil }
	}
	return &pluginsdk.Module{
		ID:      id,
		Name:    id,
		Version: "1.0.0",
		OnStart: start,
	}
}
