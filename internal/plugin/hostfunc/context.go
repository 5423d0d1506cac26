// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlexDesk Contributors

//nolint:gocritic // captLocal: L is the idiomatic name for lua.LState
package hostfunc

import (
	"context"
	"encoding/json"

	lua "github.com/yuin/gopher-lua"

	"github.com/plexdesk/plexdesk/pkg/pluginsdk"
)

// ContextTable builds the ctx table handed to a Lua start hook. Functions
// in contribution specs are wrapped as pluginsdk.Action values that run
// through call.
func (f *Functions) ContextTable(L *lua.LState, pc pluginsdk.Context, call Caller) *lua.LTable {
	b := &ctxBinding{pc: pc, call: call}
	t := L.NewTable()

	L.SetField(t, "id", lua.LString(pc.PluginID()))
	for name, point := range map[string]pluginsdk.Point{
		"viewport": pluginsdk.PointViewport,
		"menu":     pluginsdk.PointMenu,
		"tab":      pluginsdk.PointTab,
		"panel":    pluginsdk.PointPanel,
		"toolbar":  pluginsdk.PointToolbar,
		"widget":   pluginsdk.PointWidget,
	} {
		L.SetField(t, name, L.NewFunction(b.registerAt(point)))
	}
	L.SetField(t, "register", L.NewFunction(b.register))
	L.SetField(t, "unregister", L.NewFunction(b.unregister))
	L.SetField(t, "open", L.NewFunction(b.open))

	for name, flag := range map[string]pluginsdk.ChromeFlag{
		"showPanel":   pluginsdk.ChromePanel,
		"showMenu":    pluginsdk.ChromeMenu,
		"showToolbar": pluginsdk.ChromeToolbar,
		"showTabs":    pluginsdk.ChromeTabs,
		"showFooter":  pluginsdk.ChromeFooter,
	} {
		L.SetField(t, name, L.NewFunction(b.show(flag)))
	}
	L.SetField(t, "setChrome", L.NewFunction(b.setChrome))
	L.SetField(t, "restoreChrome", L.NewFunction(b.restoreChrome))

	L.SetField(t, "bridge", L.NewFunction(b.bridge))
	L.SetField(t, "publish", L.NewFunction(b.publish))
	L.SetField(t, "subscribe", L.NewFunction(b.subscribe))
	return t
}

type ctxBinding struct {
	pc   pluginsdk.Context
	call Caller
}

func (b *ctxBinding) registerAt(point pluginsdk.Point) lua.LGFunction {
	return func(L *lua.LState) int {
		id := L.CheckString(1)
		spec := b.spec(L.OptTable(2, nil))
		if err := b.pc.Register(point, id, spec); err != nil {
			L.RaiseError("%s", err.Error())
		}
		return 0
	}
}

func (b *ctxBinding) register(L *lua.LState) int {
	point := pluginsdk.Point(L.CheckString(1))
	id := L.CheckString(2)
	spec := b.spec(L.OptTable(3, nil))
	if err := b.pc.Register(point, id, spec); err != nil {
		L.RaiseError("%s", err.Error())
	}
	return 0
}

func (b *ctxBinding) unregister(L *lua.LState) int {
	point := pluginsdk.Point(L.CheckString(1))
	id := L.CheckString(2)
	if err := b.pc.Unregister(point, id); err != nil {
		L.RaiseError("%s", err.Error())
	}
	return 0
}

func (b *ctxBinding) open(L *lua.LState) int {
	id := L.CheckString(1)
	var opts pluginsdk.OpenOptions
	if t := L.OptTable(2, nil); t != nil {
		opts.Focus = lua.LVAsBool(t.RawGetString("focus"))
		if args, ok := ToGo(t.RawGetString("args")).(map[string]any); ok {
			opts.Args = args
		}
	}
	if err := b.pc.Open(luaContext(L), id, opts); err != nil {
		return pushError(L, err.Error())
	}
	return pushSuccess(L, lua.LTrue)
}

func (b *ctxBinding) show(flag pluginsdk.ChromeFlag) lua.LGFunction {
	return func(L *lua.LState) int {
		if err := b.pc.SetChrome(flag, L.OptBool(1, true)); err != nil {
			L.RaiseError("%s", err.Error())
		}
		return 0
	}
}

func (b *ctxBinding) setChrome(L *lua.LState) int {
	flag := pluginsdk.ChromeFlag(L.CheckString(1))
	if err := b.pc.SetChrome(flag, L.CheckBool(2)); err != nil {
		L.RaiseError("%s", err.Error())
	}
	return 0
}

func (b *ctxBinding) restoreChrome(L *lua.LState) int {
	flag := pluginsdk.ChromeFlag(L.CheckString(1))
	if err := b.pc.RestoreChrome(flag); err != nil {
		L.RaiseError("%s", err.Error())
	}
	return 0
}

// bridge(path, opts) returns {ok, status, body, json} or nil, err.
func (b *ctxBinding) bridge(L *lua.LState) int {
	path := L.CheckString(1)
	var req pluginsdk.BridgeRequest
	if t := L.OptTable(2, nil); t != nil {
		if m := t.RawGetString("method"); m != lua.LNil {
			req.Method = m.String()
		}
		req.Headers = stringMap(t.RawGetString("headers"))
		req.Query = stringMap(t.RawGetString("query"))
		req.Body = ToGo(t.RawGetString("body"))
	}

	resp, err := b.pc.Bridge(luaContext(L), path, req)
	if err != nil {
		return pushError(L, err.Error())
	}

	out := L.NewTable()
	L.SetField(out, "ok", lua.LBool(resp.OK))
	L.SetField(out, "status", lua.LNumber(resp.Status))
	L.SetField(out, "body", lua.LString(string(resp.Body)))
	var decoded any
	if len(resp.Body) > 0 && json.Unmarshal(resp.Body, &decoded) == nil {
		L.SetField(out, "json", ToLua(L, decoded))
	}
	return pushSuccess(L, out)
}

func (b *ctxBinding) publish(L *lua.LState) int {
	topic := L.CheckString(1)
	payload := ToGo(L.Get(2))
	if err := b.pc.Messages().Publish(luaContext(L), topic, payload); err != nil {
		return pushError(L, err.Error())
	}
	return pushSuccess(L, lua.LTrue)
}

// subscribe(topic, fn) returns a function that removes the subscription.
func (b *ctxBinding) subscribe(L *lua.LState) int {
	topic := L.CheckString(1)
	fn := L.CheckFunction(2)
	logger := b.pc.Logger()

	cancel := b.pc.Messages().Subscribe(topic, func(ctx context.Context, msg pluginsdk.Message) {
		if err := b.call(ctx, fn, msg.Payload, msg.Topic); err != nil {
			logger.Warn("lua subscriber failed", "topic", msg.Topic, "error", err)
		}
	})
	L.Push(L.NewFunction(func(*lua.LState) int {
		cancel()
		return 0
	}))
	return 1
}

// spec reads a contribution spec table. Missing tables yield an empty spec.
func (b *ctxBinding) spec(t *lua.LTable) pluginsdk.Spec {
	var spec pluginsdk.Spec
	if t == nil {
		return spec
	}
	if v := t.RawGetString("label"); v != lua.LNil {
		spec.Label = v.String()
	}
	if v := t.RawGetString("icon"); v != lua.LNil {
		spec.Icon = v.String()
	}
	if n, ok := t.RawGetString("order").(lua.LNumber); ok {
		spec = spec.WithOrder(int(n))
	}
	spec.Payload = ToGo(t.RawGetString("payload"))
	spec.OnActivate = b.action(t.RawGetString("onActivate"))
	spec.OnDeactivate = b.action(t.RawGetString("onDeactivate"))
	return spec
}

func (b *ctxBinding) action(v lua.LValue) pluginsdk.Action {
	fn, ok := v.(*lua.LFunction)
	if !ok {
		return nil
	}
	return func(ctx context.Context) error {
		return b.call(ctx, fn)
	}
}
