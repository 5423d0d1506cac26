// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlexDesk Contributors

package native_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plexdesk/plexdesk/internal/manifest"
	"github.com/plexdesk/plexdesk/internal/plugin/native"
	"github.com/plexdesk/plexdesk/pkg/pluginsdk"
)

func writeConfig(t *testing.T, dir, content string) manifest.Descriptor {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, native.EntryFile), []byte(content), 0o600))
	return manifest.Descriptor{ID: "demo", Path: "demo", Main: native.EntryFile, Enabled: true, Priority: 1}
}

func demoFactory(got *map[string]any) native.Factory {
	return func(settings map[string]any) (*pluginsdk.Module, error) {
		*got = settings
		return &pluginsdk.Module{ID: "demo", Name: "Demo", Version: "1.0.0",
			OnStart: func(context.Context, pluginsdk.Context) error { return nil }}, nil
	}
}

func TestHost_LoadPassesSettings(t *testing.T) {
	dir := t.TempDir()
	d := writeConfig(t, dir, "module: demo\nsettings:\n  title: Hello\n  size: 3\n")

	var got map[string]any
	h := native.NewHost().Register("demo", demoFactory(&got))

	mod, err := h.Load(context.Background(), d, dir)
	require.NoError(t, err)
	assert.Equal(t, "Demo", mod.Name)
	assert.Equal(t, map[string]any{"title": "Hello", "size": 3}, got)
	assert.Equal(t, []string{"demo"}, h.Modules())

	_, err = h.Load(context.Background(), d, dir)
	assert.ErrorIs(t, err, native.ErrPluginAlreadyLoaded)

	require.NoError(t, h.Unload(context.Background(), "demo"))
	assert.ErrorIs(t, h.Unload(context.Background(), "demo"), native.ErrPluginNotLoaded)
}

func TestHost_LoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		config  string
		factory native.Factory
		wantIs  error
		wantMsg string
	}{
		{name: "unknown module", config: "module: other\n", wantIs: native.ErrUnknownModule},
		{name: "missing module", config: "settings: {}\n", wantMsg: "no module"},
		{name: "bad yaml", config: "module: [\n", wantMsg: "invalid plugin config"},
		{
			name:    "factory error",
			config:  "module: demo\n",
			factory: func(map[string]any) (*pluginsdk.Module, error) { return nil, errors.New("bad settings") },
			wantMsg: "bad settings",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			d := writeConfig(t, dir, tt.config)
			h := native.NewHost()
			if tt.factory != nil {
				h.Register("demo", tt.factory)
			}

			_, err := h.Load(context.Background(), d, dir)
			require.Error(t, err)
			if tt.wantIs != nil {
				assert.ErrorIs(t, err, tt.wantIs)
			}
			if tt.wantMsg != "" {
				assert.ErrorContains(t, err, tt.wantMsg)
			}
			assert.ErrorIs(t, h.Unload(context.Background(), "demo"), native.ErrPluginNotLoaded)
		})
	}
}

func TestHost_MissingConfig(t *testing.T) {
	h := native.NewHost()
	_, err := h.Load(context.Background(), manifest.Descriptor{ID: "x", Main: native.EntryFile}, t.TempDir())
	assert.ErrorContains(t, err, "failed to read plugin config")
}

func TestHost_Close(t *testing.T) {
	dir := t.TempDir()
	d := writeConfig(t, dir, "module: demo\n")
	var got map[string]any
	h := native.NewHost().Register("demo", demoFactory(&got))

	require.NoError(t, h.Close(context.Background()))
	_, err := h.Load(context.Background(), d, dir)
	assert.ErrorIs(t, err, native.ErrHostClosed)
}
