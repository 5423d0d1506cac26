// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlexDesk Contributors

// Package native provides a Host for plugins compiled into the shell binary.
//
// A native plugin directory holds a plugin.yaml naming the module and its
// settings:
//
//	module: echo
//	settings:
//	  greeting: hello
//
// The module name selects a Factory registered with the host.
package native

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/samber/oops"
	"gopkg.in/yaml.v3"

	"github.com/plexdesk/plexdesk/internal/manifest"
	"github.com/plexdesk/plexdesk/internal/plugin"
	"github.com/plexdesk/plexdesk/pkg/pluginsdk"
)

// EntryFile is the entry file name the native host handles.
const EntryFile = "plugin.yaml"

// Sentinel errors for programmatic error checking.
var (
	// ErrHostClosed is returned when operations are attempted on a closed host.
	ErrHostClosed = errors.New("host is closed")
	// ErrPluginNotLoaded is returned when operating on a plugin that isn't loaded.
	ErrPluginNotLoaded = errors.New("plugin not loaded")
	// ErrPluginAlreadyLoaded is returned when loading a plugin that's already loaded.
	ErrPluginAlreadyLoaded = errors.New("plugin already loaded")
	// ErrUnknownModule is returned when plugin.yaml names an unregistered module.
	ErrUnknownModule = errors.New("unknown native module")
)

// Compile-time interface check.
var _ plugin.Host = (*Host)(nil)

// Factory builds a module from the settings in plugin.yaml.
type Factory func(settings map[string]any) (*pluginsdk.Module, error)

// Config is the content of plugin.yaml.
type Config struct {
	Module   string         `yaml:"module"`
	Settings map[string]any `yaml:"settings"`
}

// Host resolves native plugins against registered factories.
type Host struct {
	mu        sync.RWMutex
	factories map[string]Factory
	loaded    map[string]string // plugin id -> module name
	closed    bool
}

// NewHost creates an empty native host.
func NewHost() *Host {
	return &Host{
		factories: make(map[string]Factory),
		loaded:    make(map[string]string),
	}
}

// Register makes a module available under name. Registering a name twice
// replaces the earlier factory.
func (h *Host) Register(name string, f Factory) *Host {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.factories[name] = f
	return h
}

// Modules returns the registered module names, sorted.
func (h *Host) Modules() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.factories))
	for name := range h.factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ReadConfig reads and parses a plugin.yaml file.
func ReadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return cfg, oops.In("native").With("path", path).Hint("failed to read plugin config").Wrap(err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, oops.In("native").With("path", path).Hint("invalid plugin config").Wrap(err)
	}
	if cfg.Module == "" {
		return cfg, oops.In("native").With("path", path).New("plugin config has no module")
	}
	return cfg, nil
}

// Load reads the plugin's config and calls the named factory.
func (h *Host) Load(_ context.Context, desc manifest.Descriptor, dir string) (*pluginsdk.Module, error) {
	errb := oops.In("native").With("plugin", desc.ID).With("operation", "load")

	cfg, err := ReadConfig(filepath.Join(dir, desc.Main))
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, errb.Wrap(ErrHostClosed)
	}
	if _, ok := h.loaded[desc.ID]; ok {
		h.mu.Unlock()
		return nil, errb.Wrap(ErrPluginAlreadyLoaded)
	}
	factory, ok := h.factories[cfg.Module]
	if !ok {
		h.mu.Unlock()
		return nil, errb.With("module", cfg.Module).Wrap(ErrUnknownModule)
	}
	h.loaded[desc.ID] = cfg.Module
	h.mu.Unlock()

	mod, err := factory(cfg.Settings)
	if err != nil {
		h.mu.Lock()
		delete(h.loaded, desc.ID)
		h.mu.Unlock()
		return nil, errb.With("module", cfg.Module).Wrap(err)
	}
	return mod, nil
}

// Unload forgets a loaded plugin.
func (h *Host) Unload(_ context.Context, id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.loaded[id]; !ok {
		return oops.In("native").With("plugin", id).With("operation", "unload").Wrap(ErrPluginNotLoaded)
	}
	delete(h.loaded, id)
	return nil
}

// Close unloads all plugins and rejects further loads.
func (h *Host) Close(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	clear(h.loaded)
	return nil
}
