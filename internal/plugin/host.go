// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlexDesk Contributors

// Package plugin drives plugins through their lifecycle and hands each one
// a scoped Context onto the extension registry.
package plugin

import (
	"context"

	"github.com/plexdesk/plexdesk/internal/manifest"
	"github.com/plexdesk/plexdesk/internal/registry"
	"github.com/plexdesk/plexdesk/pkg/pluginsdk"
)

// Host resolves plugin modules for one kind of entry file.
type Host interface {
	// Load resolves the module for a descriptor. dir is the plugin's
	// directory on disk.
	Load(ctx context.Context, desc manifest.Descriptor, dir string) (*pluginsdk.Module, error)

	// Unload releases anything the host holds for a plugin.
	Unload(ctx context.Context, id string) error

	// Close shuts down the host and all plugins.
	Close(ctx context.Context) error
}

// Renderer is the rendering collaborator. The orchestrator only asks it to
// open viewports; everything else it reads from the registry.
type Renderer interface {
	Open(ctx context.Context, rec registry.Record, opts pluginsdk.OpenOptions) error
}

// RendererFunc adapts a function to the Renderer interface.
type RendererFunc func(ctx context.Context, rec registry.Record, opts pluginsdk.OpenOptions) error

// Open calls f.
func (f RendererFunc) Open(ctx context.Context, rec registry.Record, opts pluginsdk.OpenOptions) error {
	return f(ctx, rec, opts)
}

type nopRenderer struct{}

func (nopRenderer) Open(context.Context, registry.Record, pluginsdk.OpenOptions) error { return nil }
