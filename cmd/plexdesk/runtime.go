// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlexDesk Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/samber/oops"

	"github.com/plexdesk/plexdesk/internal/bridge"
	"github.com/plexdesk/plexdesk/internal/manifest"
	"github.com/plexdesk/plexdesk/internal/plugin"
	"github.com/plexdesk/plexdesk/internal/plugin/hostfunc"
	pluginlua "github.com/plexdesk/plexdesk/internal/plugin/lua"
	"github.com/plexdesk/plexdesk/internal/plugin/native"
	"github.com/plexdesk/plexdesk/internal/registry"
	"github.com/plexdesk/plexdesk/pkg/pluginsdk"
	"github.com/plexdesk/plexdesk/plugins/echo"
)

// generator is written into every manifest.
func generator() string {
	return "plexdesk " + version
}

// buildManifest scans the plugins directory and returns the manifest it
// describes. Skipped directories are logged.
func (a *app) buildManifest() (*manifest.File, error) {
	tree, err := manifest.Scan(os.DirFS(a.cfg.PluginsDir))
	if err != nil {
		return nil, oops.With("plugins_dir", a.cfg.PluginsDir).Wrap(err)
	}
	res := manifest.Build(tree, a.cfg.BuildOptions())
	for _, s := range res.Skipped {
		a.logger.Warn("plugin directory skipped",
			"path", s.Path,
			"id", s.ID,
			"reason", s.Reason)
	}
	return manifest.New(res.Descriptors, generator(), time.Now()), nil
}

// writeManifest builds the manifest and writes it to the configured path.
func (a *app) writeManifest() (*manifest.File, error) {
	file, err := a.buildManifest()
	if err != nil {
		return nil, err
	}
	if err := manifest.Write(a.cfg.ManifestPath, file); err != nil {
		return nil, err
	}
	a.logger.Info("manifest written",
		"path", a.cfg.ManifestPath,
		"plugins", len(file.Plugins))
	return file, nil
}

// runtime is an assembled registry and orchestrator.
type runtime struct {
	reg    *registry.Registry
	orch   *plugin.Orchestrator
	router *bridge.Router
}

// newRuntime wires hosts, the bridge and the orchestrator from config.
func (a *app) newRuntime(renderer plugin.Renderer) (*runtime, error) {
	var fallback bridge.Gateway
	if a.cfg.BridgeURL != "" {
		fallback = bridge.NewHTTPGateway(a.cfg.BridgeURL, bridge.WithRetries(a.cfg.BridgeRetries))
	}
	router := bridge.NewRouter(fallback)
	if err := echo.Routes(router); err != nil {
		return nil, err
	}

	nativeHost := native.NewHost().Register(echo.Name, echo.New)
	luaHost := pluginlua.NewHost(hostfunc.New(a.logger))

	reg := registry.New()
	opts := []plugin.Option{
		plugin.WithHost(pluginlua.EntryFile, luaHost),
		plugin.WithHost(native.EntryFile, nativeHost),
		plugin.WithBridge(router),
		plugin.WithHookTimeout(a.cfg.HookTimeout),
		plugin.WithPluginsDir(a.cfg.PluginsDir),
		plugin.WithLogger(a.logger),
	}
	if renderer != nil {
		opts = append(opts, plugin.WithRenderer(renderer))
	}
	return &runtime{
		reg:    reg,
		orch:   plugin.NewOrchestrator(reg, opts...),
		router: router,
	}, nil
}

// logRenderer stands in for the shell's renderer when running headless.
type logRenderer struct {
	logger *slog.Logger
}

func (r logRenderer) Open(_ context.Context, rec registry.Record, opts pluginsdk.OpenOptions) error {
	r.logger.Info("open viewport",
		"viewport", rec.ID,
		"owner", rec.Owner,
		"focus", opts.Focus)
	return nil
}
