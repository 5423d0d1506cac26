// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlexDesk Contributors

// Package pluginsdk defines the contract between PlexDesk and its plugins.
//
// A plugin is described by a [Module]: identity fields plus lifecycle hooks.
// During OnStart the host hands the plugin a [Context], which is the only way
// a plugin can contribute to the shell's extension points, toggle shared
// chrome, reach its backend through the bridge, or talk between its own
// panels and viewports.
//
// Example:
//
//	func Module() *pluginsdk.Module {
//		return &pluginsdk.Module{
//			ID:      "paint",
//			Name:    "Paint",
//			Version: "1.0.0",
//			OnStart: func(ctx context.Context, pc pluginsdk.Context) error {
//				return pc.Viewport("paint-viewport", pluginsdk.Spec{Label: "Paint"})
//			},
//		}
//	}
package pluginsdk

import (
	"context"
	"log/slog"
)

// Point names an extension point.
type Point string

// Extension points understood by the shell.
const (
	PointViewport Point = "viewport"
	PointMenu     Point = "menu"
	PointTab      Point = "tab"
	PointPanel    Point = "panel"
	PointToolbar  Point = "toolbar"
	PointWidget   Point = "widget"
)

// Points returns every known extension point in display order.
func Points() []Point {
	return []Point{PointViewport, PointMenu, PointTab, PointPanel, PointToolbar, PointWidget}
}

// Valid reports whether p is a known extension point.
func (p Point) Valid() bool {
	switch p {
	case PointViewport, PointMenu, PointTab, PointPanel, PointToolbar, PointWidget:
		return true
	default:
		return false
	}
}

// ChromeFlag names a piece of shared UI chrome.
type ChromeFlag string

// Chrome flags. All chrome is visible until someone hides it.
const (
	ChromePanel   ChromeFlag = "panel"
	ChromeMenu    ChromeFlag = "menu"
	ChromeToolbar ChromeFlag = "toolbar"
	ChromeTabs    ChromeFlag = "tabs"
	ChromeFooter  ChromeFlag = "footer"
)

// ChromeFlags returns every chrome flag.
func ChromeFlags() []ChromeFlag {
	return []ChromeFlag{ChromePanel, ChromeMenu, ChromeToolbar, ChromeTabs, ChromeFooter}
}

// Valid reports whether f is a known chrome flag.
func (f ChromeFlag) Valid() bool {
	switch f {
	case ChromePanel, ChromeMenu, ChromeToolbar, ChromeTabs, ChromeFooter:
		return true
	default:
		return false
	}
}

// Action is a plugin-supplied callback invoked by the rendering layer,
// for example a menu click handler or a viewport activation hook.
type Action func(ctx context.Context) error

// Spec describes one contribution. Payload is opaque to the host and is
// handed to the renderer unchanged.
type Spec struct {
	Label string
	Icon  string
	// Order overrides the owning plugin's priority for display ordering.
	// Lower values are shown first.
	Order        *int
	Payload      any
	OnActivate   Action
	OnDeactivate Action
}

// WithOrder returns a copy of s with an explicit order hint.
func (s Spec) WithOrder(order int) Spec {
	s.Order = &order
	return s
}

// OpenOptions are passed to the renderer when a plugin opens a viewport.
type OpenOptions struct {
	Focus bool
	Args  map[string]any
}

// Context is the capability surface handed to a plugin. Contribution ids are
// local to the plugin; the host prefixes them with the plugin id.
type Context interface {
	// PluginID returns the id of the plugin that owns this context.
	PluginID() string
	// Logger returns a logger tagged with the plugin id.
	Logger() *slog.Logger

	Viewport(id string, spec Spec) error
	Menu(id string, spec Spec) error
	Tab(id string, spec Spec) error
	Panel(id string, spec Spec) error
	Toolbar(id string, spec Spec) error
	Widget(id string, spec Spec) error
	// Register adds a contribution to an arbitrary extension point.
	Register(point Point, id string, spec Spec) error
	// Unregister removes one of this plugin's contributions. Missing ids are ignored.
	Unregister(point Point, id string) error

	// Open asks the renderer to activate a viewport. id may be local
	// ("viewer") or fully qualified ("other:viewer").
	Open(ctx context.Context, id string, opts OpenOptions) error

	ShowPanel(visible bool) error
	ShowMenu(visible bool) error
	ShowToolbar(visible bool) error
	ShowTabs(visible bool) error
	ShowFooter(visible bool) error
	SetChrome(flag ChromeFlag, visible bool) error
	// RestoreChrome withdraws this plugin's setting for flag, revealing
	// whatever value was in effect before it.
	RestoreChrome(flag ChromeFlag) error

	// Bridge sends a request to this plugin's backend namespace.
	Bridge(ctx context.Context, path string, req BridgeRequest) (*BridgeResponse, error)

	// Messages returns the plugin's private message channel.
	Messages() Channel
}

// Module is the shape every plugin must expose. ID, Name, Version and one of
// OnStart or Start are required.
type Module struct {
	ID          string
	Name        string
	Version     string
	Description string
	Author      string

	OnInit  func(ctx context.Context) error
	OnStart func(ctx context.Context, pc Context) error
	// Start is the legacy name for OnStart. OnStart wins when both are set.
	Start     func(ctx context.Context, pc Context) error
	OnStop    func(ctx context.Context) error
	OnDispose func(ctx context.Context) error
	OnUpdate  func(ctx context.Context) error
}

// StartHook returns the hook used to start the plugin, or nil.
func (m *Module) StartHook() func(ctx context.Context, pc Context) error {
	if m.OnStart != nil {
		return m.OnStart
	}
	return m.Start
}
