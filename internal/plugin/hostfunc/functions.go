// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlexDesk Contributors

// Package hostfunc provides the host functions Lua plugins call.
//
// Every plugin state gets a global "shell" table with logging and JSON
// helpers. The
// lifecycle start hook receives a context table ("ctx") bound to the
// plugin's pluginsdk.Context; it is the only way a Lua plugin reaches the
// registry, chrome, bridge or its message channel.
//
// Registration failures raise a Lua error so they fail the hook that made
// them. Request-style calls (bridge, publish) return the usual
// value, err pair instead.
//
//nolint:gocritic // captLocal: L is the idiomatic name for lua.LState
package hostfunc

import (
	"context"
	"encoding/json"
	"log/slog"

	lua "github.com/yuin/gopher-lua"
)

// Caller runs a Lua function on a plugin's state. Arguments are converted
// with ToLua while the state is held.
type Caller func(ctx context.Context, fn *lua.LFunction, args ...any) error

// Functions provides host functions to Lua plugins.
type Functions struct {
	logger *slog.Logger
}

// New creates host functions logging through logger. A nil logger uses
// slog.Default.
func New(logger *slog.Logger) *Functions {
	if logger == nil {
		logger = slog.Default()
	}
	return &Functions{logger: logger}
}

// Register adds the global shell table to a Lua state.
func (f *Functions) Register(ls *lua.LState, pluginID string) {
	mod := ls.NewTable()
	ls.SetField(mod, "log", ls.NewFunction(f.logFn(pluginID)))
	ls.SetField(mod, "plugin", lua.LString(pluginID))

	codec := ls.NewTable()
	ls.SetField(codec, "encode", ls.NewFunction(jsonEncode))
	ls.SetField(codec, "decode", ls.NewFunction(jsonDecode))
	ls.SetField(mod, "json", codec)

	ls.SetGlobal("shell", mod)
}

// jsonEncode(value) returns the JSON text for value or nil, err.
func jsonEncode(L *lua.LState) int {
	data, err := json.Marshal(ToGo(L.CheckAny(1)))
	if err != nil {
		return pushError(L, err.Error())
	}
	return pushSuccess(L, lua.LString(string(data)))
}

// jsonDecode(text) returns the decoded value or nil, err.
func jsonDecode(L *lua.LState) int {
	var v any
	if err := json.Unmarshal([]byte(L.CheckString(1)), &v); err != nil {
		return pushError(L, err.Error())
	}
	return pushSuccess(L, ToLua(L, v))
}

func (f *Functions) logFn(pluginID string) lua.LGFunction {
	return func(L *lua.LState) int {
		level := L.CheckString(1)
		message := L.CheckString(2)

		logger := f.logger.With("plugin", pluginID)
		switch level {
		case "debug":
			logger.Debug(message)
		case "info":
			logger.Info(message)
		case "warn":
			logger.Warn(message)
		case "error":
			logger.Error(message)
		default:
			logger.Info(message)
		}
		return 0
	}
}

// luaContext returns the context the state is currently running under.
func luaContext(L *lua.LState) context.Context {
	if ctx := L.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// pushError pushes nil followed by an error string and returns 2.
func pushError(L *lua.LState, errMsg string) int {
	L.Push(lua.LNil)
	L.Push(lua.LString(errMsg))
	return 2
}

// pushSuccess pushes a value followed by nil and returns 2.
func pushSuccess(L *lua.LState, value lua.LValue) int {
	L.Push(value)
	L.Push(lua.LNil)
	return 2
}
