// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlexDesk Contributors

package lua_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plexdesk/plexdesk/internal/manifest"
	"github.com/plexdesk/plexdesk/internal/plugin"
	"github.com/plexdesk/plexdesk/internal/plugin/hostfunc"
	pluginlua "github.com/plexdesk/plexdesk/internal/plugin/lua"
	"github.com/plexdesk/plexdesk/internal/registry"
	"github.com/plexdesk/plexdesk/pkg/pluginsdk"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type fixture struct {
	dir  string
	host *pluginlua.Host
	reg  *registry.Registry
	orch *plugin.Orchestrator
}

func newFixture(t *testing.T, opts ...plugin.Option) *fixture {
	t.Helper()
	f := &fixture{
		dir:  t.TempDir(),
		host: pluginlua.NewHost(hostfunc.New(quietLogger)),
		reg:  registry.New(),
	}
	opts = append([]plugin.Option{
		plugin.WithHost(pluginlua.EntryFile, f.host),
		plugin.WithPluginsDir(f.dir),
		plugin.WithLogger(quietLogger),
	}, opts...)
	f.orch = plugin.NewOrchestrator(f.reg, opts...)
	t.Cleanup(func() {
		_ = f.orch.Shutdown(context.Background())
	})
	return f
}

// write creates <dir>/<id>/init.lua and returns its descriptor.
func (f *fixture) write(t *testing.T, id, code string) manifest.Descriptor {
	t.Helper()
	dir := filepath.Join(f.dir, id)
	require.NoError(t, os.MkdirAll(dir, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, pluginlua.EntryFile), []byte(code), 0o600))
	return manifest.Descriptor{ID: id, Path: id, Main: pluginlua.EntryFile, Enabled: true, Priority: manifest.PriorityPlugin}
}

func (f *fixture) bootstrap(t *testing.T, descs ...manifest.Descriptor) {
	t.Helper()
	require.NoError(t, f.orch.Bootstrap(context.Background(), manifest.New(descs, "test", time.Unix(0, 0))))
}

func (f *fixture) failure(t *testing.T, id string) plugin.Failure {
	t.Helper()
	for _, fl := range f.orch.Failures() {
		if fl.PluginID == id {
			return fl
		}
	}
	t.Fatalf("no failure recorded for %s", id)
	return plugin.Failure{}
}

func TestHost_StartsPluginAndRegistersContributions(t *testing.T) {
	f := newFixture(t)
	d := f.write(t, "paint", `
return {
	id = "paint",
	name = "Paint",
	version = "1.2.0",
	onStart = function(ctx)
		ctx.viewport("canvas", { label = "Paint", icon = "brush", order = 5, payload = { tools = { "pen", "fill" } } })
		ctx.menu("paint:file", { label = "File" })
		ctx.register("widget", "clock")
	end,
}`)
	f.bootstrap(t, d)

	state, ok := f.orch.State("paint")
	require.True(t, ok)
	assert.Equal(t, plugin.StateStarted, state)

	rec, ok := f.reg.Get(pluginsdk.PointViewport, "paint:canvas")
	require.True(t, ok)
	assert.Equal(t, "paint", rec.Owner)
	assert.Equal(t, "Paint", rec.Label)
	assert.Equal(t, "brush", rec.Icon)
	require.NotNil(t, rec.Order)
	assert.Equal(t, 5, *rec.Order)
	assert.Equal(t, map[string]any{"tools": []any{"pen", "fill"}}, rec.Payload)

	_, ok = f.reg.Get(pluginsdk.PointMenu, "paint:file")
	assert.True(t, ok)
	_, ok = f.reg.Get(pluginsdk.PointWidget, "paint:clock")
	assert.True(t, ok)

	info, ok := f.orch.Instance("paint")
	require.True(t, ok)
	assert.Equal(t, "Paint", info.Name)
	assert.Equal(t, "1.2.0", info.Version)
	assert.Equal(t, []string{"paint"}, f.host.Plugins())
}

func TestHost_ActionsRunOnPluginState(t *testing.T) {
	f := newFixture(t)
	d := f.write(t, "viewer", `
return {
	id = "viewer",
	name = "Viewer",
	version = "0.1.0",
	onStart = function(ctx)
		ctx.viewport("main", {
			label = "Viewer",
			onActivate = function() ctx.showPanel(false) end,
			onDeactivate = function() ctx.restoreChrome("panel") end,
		})
	end,
}`)
	f.bootstrap(t, d)

	rec, ok := f.reg.Get(pluginsdk.PointViewport, "viewer:main")
	require.True(t, ok)
	require.NotNil(t, rec.OnActivate)
	require.NotNil(t, rec.OnDeactivate)

	require.NoError(t, rec.OnActivate(context.Background()))
	assert.False(t, f.reg.ChromeVisible(pluginsdk.ChromePanel))

	require.NoError(t, rec.OnDeactivate(context.Background()))
	assert.True(t, f.reg.ChromeVisible(pluginsdk.ChromePanel))
}

func TestHost_PublishReachesSubscriberDuringHook(t *testing.T) {
	f := newFixture(t)
	d := f.write(t, "chat", `
return {
	id = "chat",
	name = "Chat",
	version = "1.0.0",
	onStart = function(ctx)
		local cancel = ctx.subscribe("room", function(payload, topic)
			ctx.tab(payload.name, { label = topic })
		end)
		assert(ctx.publish("room", { name = "general" }))
		cancel()
		assert(ctx.publish("room", { name = "ignored" }))
	end,
}`)
	f.bootstrap(t, d)

	state, _ := f.orch.State("chat")
	require.Equal(t, plugin.StateStarted, state)

	rec, ok := f.reg.Get(pluginsdk.PointTab, "chat:general")
	require.True(t, ok)
	assert.Equal(t, "room", rec.Label)
	_, ok = f.reg.Get(pluginsdk.PointTab, "chat:ignored")
	assert.False(t, ok)
}

func TestHost_LegacyStartAndLifecycleHooks(t *testing.T) {
	f := newFixture(t)
	d := f.write(t, "legacy", `
local calls = {}
return {
	id = "legacy",
	name = "Legacy",
	version = "1.0.0",
	onInit = function() table.insert(calls, "init") end,
	start = function(ctx)
		table.insert(calls, "start")
		ctx.toolbar("calls", { label = table.concat(calls, ",") })
	end,
	onStop = function() shell.log("info", "stopping") end,
}`)
	f.bootstrap(t, d)

	rec, ok := f.reg.Get(pluginsdk.PointToolbar, "legacy:calls")
	require.True(t, ok)
	assert.Equal(t, "init,start", rec.Label)

	require.NoError(t, f.orch.Shutdown(context.Background()))
	assert.Empty(t, f.host.Plugins())
	assert.Zero(t, f.reg.Len(pluginsdk.PointToolbar))
}

func TestHost_LoadFailures(t *testing.T) {
	tests := []struct {
		name string
		code string
	}{
		{"syntax error", `return {`},
		{"runtime error", `error("boom")`},
		{"non-table return", `return 42`},
		{"missing start hook", `return { id = "bad", name = "Bad", version = "1.0.0" }`},
		{"invalid version", `return { id = "bad", name = "Bad", version = "one", onStart = function() end }`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.bootstrap(t, f.write(t, "bad", tt.code))

			state, ok := f.orch.State("bad")
			require.True(t, ok)
			assert.Equal(t, plugin.StateFailed, state)
			fl := f.failure(t, "bad")
			assert.Equal(t, plugin.PhaseLoad, fl.Phase)
			assert.Equal(t, plugin.CodeInvalidModule, fl.Code)
			assert.Empty(t, f.host.Plugins())
		})
	}
}

func TestHost_MissingEntryFile(t *testing.T) {
	f := newFixture(t)
	d := manifest.Descriptor{ID: "ghost", Path: "ghost", Main: pluginlua.EntryFile, Enabled: true, Priority: 1}
	f.bootstrap(t, d)

	state, _ := f.orch.State("ghost")
	assert.Equal(t, plugin.StateFailed, state)
}

func TestHost_SandboxBlocksUnsafeGlobals(t *testing.T) {
	f := newFixture(t)
	d := f.write(t, "escape", `
return {
	id = "escape",
	name = "Escape",
	version = "1.0.0",
	onStart = function() os.execute("true") end,
}`)
	f.bootstrap(t, d)

	state, _ := f.orch.State("escape")
	assert.Equal(t, plugin.StateFailed, state)
	fl := f.failure(t, "escape")
	assert.Equal(t, plugin.PhaseStart, fl.Phase)
	assert.Equal(t, plugin.CodeHookError, fl.Code)
}

func TestHost_HookReturningErrorFails(t *testing.T) {
	f := newFixture(t)
	d := f.write(t, "refuse", `
return {
	id = "refuse",
	name = "Refuse",
	version = "1.0.0",
	onStart = function(ctx)
		ctx.panel("half", {})
		return "not today"
	end,
}`)
	f.bootstrap(t, d)

	fl := f.failure(t, "refuse")
	assert.ErrorContains(t, fl.Err, "not today")
	assert.Zero(t, f.reg.Len(pluginsdk.PointPanel), "contributions from a failed start are released")
}

func TestHost_ForeignNamespaceRaisesError(t *testing.T) {
	f := newFixture(t)
	d := f.write(t, "sneaky", `
return {
	id = "sneaky",
	name = "Sneaky",
	version = "1.0.0",
	onStart = function(ctx) ctx.menu("paint:file", { label = "Mine" }) end,
}`)
	f.bootstrap(t, d)

	fl := f.failure(t, "sneaky")
	assert.ErrorContains(t, fl.Err, "paint:file")
}

func TestHost_HookTimeoutStopsScript(t *testing.T) {
	f := newFixture(t, plugin.WithHookTimeout(50*time.Millisecond))
	d := f.write(t, "spin", `
return {
	id = "spin",
	name = "Spin",
	version = "1.0.0",
	onStart = function() while true do end end,
}`)
	f.bootstrap(t, d)

	state, _ := f.orch.State("spin")
	assert.Equal(t, plugin.StateFailed, state)
	assert.Eventually(t, func() bool {
		return len(f.host.Plugins()) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHost_ClosedRejectsLoad(t *testing.T) {
	host := pluginlua.NewHost(hostfunc.New(quietLogger))
	require.NoError(t, host.Close(context.Background()))

	_, err := host.Load(context.Background(), manifest.Descriptor{ID: "late", Main: pluginlua.EntryFile}, t.TempDir())
	assert.ErrorContains(t, err, "host is closed")
}

func TestHost_UnloadUnknown(t *testing.T) {
	host := pluginlua.NewHost(hostfunc.New(quietLogger))
	assert.Error(t, host.Unload(context.Background(), "nobody"))
}

func TestNewHost_PanicsOnNilFunctions(t *testing.T) {
	assert.Panics(t, func() { pluginlua.NewHost(nil) })
}

// cancelOnLog cancels a context when a plugin logs through shell.log.
type cancelOnLog struct {
	slog.Handler
	cancel context.CancelFunc
}

func (h cancelOnLog) Handle(context.Context, slog.Record) error {
	h.cancel()
	return nil
}

func TestHost_CanceledLoadIsNotKept(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "late"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "late", pluginlua.EntryFile), []byte(`
shell.log("info", "loading")
return { id = "late", name = "Late", version = "1.0.0", onStart = function() end }`), 0o600))
	desc := manifest.Descriptor{ID: "late", Path: "late", Main: pluginlua.EntryFile}

	tests := []struct {
		name string
		ctx  func() (context.Context, *slog.Logger)
	}{
		{"canceled before load", func() (context.Context, *slog.Logger) {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			return ctx, quietLogger
		}},
		{"canceled while loading", func() (context.Context, *slog.Logger) {
			ctx, cancel := context.WithCancel(context.Background())
			return ctx, slog.New(cancelOnLog{Handler: quietLogger.Handler(), cancel: cancel})
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, logger := tt.ctx()
			host := pluginlua.NewHost(hostfunc.New(logger))
			t.Cleanup(func() { _ = host.Close(context.Background()) })

			_, err := host.Load(ctx, desc, filepath.Join(dir, "late"))
			require.Error(t, err)
			assert.Empty(t, host.Plugins())

			mod, err := host.Load(context.Background(), desc, filepath.Join(dir, "late"))
			require.NoError(t, err)
			assert.Equal(t, "Late", mod.Name)
			assert.Equal(t, []string{"late"}, host.Plugins())
		})
	}
}
