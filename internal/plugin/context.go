// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlexDesk Contributors

package plugin

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/plexdesk/plexdesk/internal/bridge"
	"github.com/plexdesk/plexdesk/internal/registry"
	"github.com/plexdesk/plexdesk/pkg/pluginsdk"
)

// pluginContext is the Context handed to one plugin instance. It never
// exposes the registry or other instances, and every contribution it
// makes is owned by its plugin.
type pluginContext struct {
	id       string
	reg      *registry.Registry
	gateway  bridge.Gateway
	renderer Renderer
	logger   *slog.Logger
	messages *channel

	mu      sync.RWMutex
	revoked bool
	owned   map[pluginsdk.Point][]string
}

var _ pluginsdk.Context = (*pluginContext)(nil)

func newPluginContext(id string, reg *registry.Registry, gw bridge.Gateway, r Renderer, logger *slog.Logger) *pluginContext {
	logger = logger.With("plugin", id)
	return &pluginContext{
		id:       id,
		reg:      reg,
		gateway:  gw,
		renderer: r,
		logger:   logger,
		messages: newChannel(logger),
		owned:    make(map[pluginsdk.Point][]string),
	}
}

func (c *pluginContext) PluginID() string     { return c.id }
func (c *pluginContext) Logger() *slog.Logger { return c.logger }

func (c *pluginContext) Messages() pluginsdk.Channel { return c.messages }

func (c *pluginContext) Viewport(id string, spec pluginsdk.Spec) error {
	return c.Register(pluginsdk.PointViewport, id, spec)
}

func (c *pluginContext) Menu(id string, spec pluginsdk.Spec) error {
	return c.Register(pluginsdk.PointMenu, id, spec)
}

func (c *pluginContext) Tab(id string, spec pluginsdk.Spec) error {
	return c.Register(pluginsdk.PointTab, id, spec)
}

func (c *pluginContext) Panel(id string, spec pluginsdk.Spec) error {
	return c.Register(pluginsdk.PointPanel, id, spec)
}

func (c *pluginContext) Toolbar(id string, spec pluginsdk.Spec) error {
	return c.Register(pluginsdk.PointToolbar, id, spec)
}

func (c *pluginContext) Widget(id string, spec pluginsdk.Spec) error {
	return c.Register(pluginsdk.PointWidget, id, spec)
}

// Register prefixes local ids with the plugin id. Ids that are already
// qualified are passed through, so the registry rejects foreign prefixes.
// The registry notifies its subscribers synchronously, so c.mu is not held
// across the call.
func (c *pluginContext) Register(point pluginsdk.Point, id string, spec pluginsdk.Spec) error {
	if c.isRevoked() {
		return ErrContextRevoked(c.id, "register")
	}
	rec, err := c.reg.Register(c.id, point, c.qualify(id), spec)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.revoked {
		c.mu.Unlock()
		// Teardown may already have swept the registry.
		c.reg.Unregister(point, rec.ID)
		return ErrContextRevoked(c.id, "register")
	}
	c.owned[point] = append(c.owned[point], rec.ID)
	c.mu.Unlock()
	return nil
}

func (c *pluginContext) Unregister(point pluginsdk.Point, id string) error {
	if c.isRevoked() {
		return ErrContextRevoked(c.id, "unregister")
	}
	qualified := c.qualify(id)
	owner, _, _ := registry.SplitID(qualified)
	if owner != c.id {
		return registry.ErrNamespaceViolation(c.id, qualified)
	}
	if !c.reg.Unregister(point, qualified) {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	ids := c.owned[point]
	for i, v := range ids {
		if v == qualified {
			c.owned[point] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return nil
}

func (c *pluginContext) Open(ctx context.Context, id string, opts pluginsdk.OpenOptions) error {
	if c.isRevoked() {
		return ErrContextRevoked(c.id, "open")
	}
	qualified := c.qualify(id)
	rec, ok := c.reg.Get(pluginsdk.PointViewport, qualified)
	if !ok {
		return ErrUnknownView(c.id, qualified)
	}
	return c.renderer.Open(ctx, rec, opts)
}

func (c *pluginContext) ShowPanel(visible bool) error {
	return c.SetChrome(pluginsdk.ChromePanel, visible)
}

func (c *pluginContext) ShowMenu(visible bool) error {
	return c.SetChrome(pluginsdk.ChromeMenu, visible)
}

func (c *pluginContext) ShowToolbar(visible bool) error {
	return c.SetChrome(pluginsdk.ChromeToolbar, visible)
}

func (c *pluginContext) ShowTabs(visible bool) error {
	return c.SetChrome(pluginsdk.ChromeTabs, visible)
}

func (c *pluginContext) ShowFooter(visible bool) error {
	return c.SetChrome(pluginsdk.ChromeFooter, visible)
}

func (c *pluginContext) SetChrome(flag pluginsdk.ChromeFlag, visible bool) error {
	if c.isRevoked() {
		return ErrContextRevoked(c.id, "set_chrome")
	}
	return c.reg.SetChrome(c.id, flag, visible)
}

func (c *pluginContext) RestoreChrome(flag pluginsdk.ChromeFlag) error {
	if c.isRevoked() {
		return ErrContextRevoked(c.id, "restore_chrome")
	}
	return c.reg.RestoreChrome(c.id, flag)
}

func (c *pluginContext) Bridge(ctx context.Context, path string, req pluginsdk.BridgeRequest) (*pluginsdk.BridgeResponse, error) {
	if c.isRevoked() {
		return nil, ErrContextRevoked(c.id, "bridge")
	}
	return c.gateway.Do(ctx, c.id, path, req)
}

// contributions returns the qualified ids registered through this context.
func (c *pluginContext) contributions() map[pluginsdk.Point][]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[pluginsdk.Point][]string, len(c.owned))
	for p, ids := range c.owned {
		if len(ids) > 0 {
			out[p] = append([]string(nil), ids...)
		}
	}
	return out
}

// revoke disables the context and closes its channel. It is idempotent.
func (c *pluginContext) revoke() {
	c.mu.Lock()
	c.revoked = true
	c.owned = make(map[pluginsdk.Point][]string)
	c.mu.Unlock()
	c.messages.close()
}

func (c *pluginContext) isRevoked() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.revoked
}

func (c *pluginContext) qualify(id string) string {
	if strings.Contains(id, registry.Separator) {
		return id
	}
	return registry.QualifiedID(c.id, id)
}
