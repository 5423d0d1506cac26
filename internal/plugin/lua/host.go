// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlexDesk Contributors

package lua

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/samber/oops"
	lua "github.com/yuin/gopher-lua"

	"github.com/plexdesk/plexdesk/internal/manifest"
	plugins "github.com/plexdesk/plexdesk/internal/plugin"
	"github.com/plexdesk/plexdesk/internal/plugin/hostfunc"
	"github.com/plexdesk/plexdesk/pkg/pluginsdk"
)

// EntryFile is the entry file name the Lua host handles.
const EntryFile = "init.lua"

// Compile-time interface check.
var _ plugins.Host = (*Host)(nil)

// luaPlugin is one loaded plugin and its state.
type luaPlugin struct {
	id string
	mu sync.Mutex
	L  *lua.LState
}

// activeKey marks a context whose goroutine already holds a plugin's state.
type activeKey struct{}

// Host manages Lua plugins.
type Host struct {
	factory *StateFactory
	funcs   *hostfunc.Functions

	mu      sync.RWMutex
	plugins map[string]*luaPlugin
	closed  bool
}

// NewHost creates a Lua plugin host. Panics if funcs is nil.
func NewHost(funcs *hostfunc.Functions) *Host {
	if funcs == nil {
		panic("lua.NewHost: funcs cannot be nil")
	}
	return &Host{
		factory: NewStateFactory(),
		funcs:   funcs,
		plugins: make(map[string]*luaPlugin),
	}
}

// Load runs the plugin's entry file and builds a module from the table it
// returns.
func (h *Host) Load(ctx context.Context, desc manifest.Descriptor, dir string) (*pluginsdk.Module, error) {
	errb := oops.In("lua").With("plugin", desc.ID).With("operation", "load")

	h.mu.RLock()
	closed := h.closed
	_, loaded := h.plugins[desc.ID]
	h.mu.RUnlock()
	if closed {
		return nil, errb.New("host is closed")
	}
	if loaded {
		return nil, errb.New("plugin already loaded")
	}

	entryPath := filepath.Join(dir, desc.Main)
	code, err := os.ReadFile(filepath.Clean(entryPath))
	if err != nil {
		return nil, errb.With("path", entryPath).Hint("failed to read entry file").Wrap(err)
	}

	L, err := h.factory.NewState(ctx)
	if err != nil {
		return nil, errb.Wrap(err)
	}
	h.funcs.Register(L, desc.ID)

	p := &luaPlugin{id: desc.ID, L: L}
	var exports *lua.LTable
	err = h.do(ctx, p, func(L *lua.LState) error {
		fn, err := L.Load(bytes.NewReader(code), entryPath)
		if err != nil {
			return errb.With("path", entryPath).Hint("syntax error").Wrap(err)
		}
		L.Push(fn)
		if err := L.PCall(0, 1, nil); err != nil {
			return errb.With("path", entryPath).Wrap(err)
		}
		ret := L.Get(-1)
		L.Pop(1)
		t, ok := ret.(*lua.LTable)
		if !ok {
			return errb.Errorf("entry file returned %s, want a module table", ret.Type())
		}
		exports = t
		return nil
	})
	if err != nil {
		L.Close()
		return nil, err
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		L.Close()
		return nil, errb.New("host is closed")
	}
	// A load that outlived its hook timeout has already been unloaded by
	// the caller and must not be stored.
	if err := ctx.Err(); err != nil {
		h.mu.Unlock()
		L.Close()
		return nil, errb.Wrap(err)
	}
	h.plugins[desc.ID] = p
	h.mu.Unlock()

	return h.module(p, exports), nil
}

// module reads metadata and hooks out of a plugin's exports table.
func (h *Host) module(p *luaPlugin, t *lua.LTable) *pluginsdk.Module {
	str := func(name string) string {
		if s, ok := t.RawGetString(name).(lua.LString); ok {
			return string(s)
		}
		return ""
	}
	fn := func(name string) *lua.LFunction {
		f, _ := t.RawGetString(name).(*lua.LFunction)
		return f
	}

	m := &pluginsdk.Module{
		ID:          str("id"),
		Name:        str("name"),
		Version:     str("version"),
		Description: str("description"),
		Author:      str("author"),
		OnInit:      h.hook(p, fn("onInit")),
		OnStop:      h.hook(p, fn("onStop")),
		OnDispose:   h.hook(p, fn("onDispose")),
		OnUpdate:    h.hook(p, fn("onUpdate")),
		OnStart:     h.startHook(p, fn("onStart")),
		Start:       h.startHook(p, fn("start")),
	}
	return m
}

func (h *Host) hook(p *luaPlugin, fn *lua.LFunction) func(context.Context) error {
	if fn == nil {
		return nil
	}
	return func(ctx context.Context) error {
		return h.call(ctx, p, fn)
	}
}

func (h *Host) startHook(p *luaPlugin, fn *lua.LFunction) func(context.Context, pluginsdk.Context) error {
	if fn == nil {
		return nil
	}
	return func(ctx context.Context, pc pluginsdk.Context) error {
		return h.do(ctx, p, func(L *lua.LState) error {
			caller := func(ctx context.Context, fn *lua.LFunction, args ...any) error {
				return h.call(ctx, p, fn, args...)
			}
			return callFn(L, fn, h.funcs.ContextTable(L, pc, caller))
		})
	}
}

// call runs fn on the plugin's state with args converted to Lua values.
func (h *Host) call(ctx context.Context, p *luaPlugin, fn *lua.LFunction, args ...any) error {
	return h.do(ctx, p, func(L *lua.LState) error {
		lv := make([]lua.LValue, len(args))
		for i, a := range args {
			lv[i] = hostfunc.ToLua(L, a)
		}
		return callFn(L, fn, lv...)
	})
}

// do runs f with exclusive use of the plugin's state. Calls made from
// inside f (an action fired during a hook, a subscriber reached through
// publish) run on the same goroutine without locking again.
func (h *Host) do(ctx context.Context, p *luaPlugin, f func(L *lua.LState) error) error {
	if ctx.Value(activeKey{}) == p {
		return f(p.L)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.L == nil {
		return oops.In("lua").With("plugin", p.id).New("plugin unloaded")
	}
	if err := ctx.Err(); err != nil {
		return oops.In("lua").With("plugin", p.id).Wrap(err)
	}

	p.L.SetContext(context.WithValue(ctx, activeKey{}, p))
	defer p.L.RemoveContext()
	return f(p.L)
}

func callFn(L *lua.LState, fn *lua.LFunction, args ...lua.LValue) error {
	if err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, args...); err != nil {
		return err
	}
	ret := L.Get(-1)
	L.Pop(1)
	// Hooks may report failure by returning an error string.
	if s, ok := ret.(lua.LString); ok && s != "" {
		return fmt.Errorf("%s", string(s))
	}
	return nil
}

// Unload closes a plugin's state.
func (h *Host) Unload(_ context.Context, id string) error {
	h.mu.Lock()
	p, ok := h.plugins[id]
	delete(h.plugins, id)
	h.mu.Unlock()
	if !ok {
		return oops.In("lua").With("plugin", id).With("operation", "unload").New("plugin not loaded")
	}
	closeState(p)
	return nil
}

// Close unloads every plugin and rejects further loads.
func (h *Host) Close(_ context.Context) error {
	h.mu.Lock()
	h.closed = true
	loaded := h.plugins
	h.plugins = make(map[string]*luaPlugin)
	h.mu.Unlock()

	for _, p := range loaded {
		closeState(p)
	}
	return nil
}

// Plugins returns the ids of loaded plugins, sorted.
func (h *Host) Plugins() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.plugins))
	for id := range h.plugins {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// closeState waits for any running call before closing. A call abandoned
// by a timed-out hook stops at its next instruction once its context is
// done.
func closeState(p *luaPlugin) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.L != nil {
		p.L.Close()
		p.L = nil
	}
}
