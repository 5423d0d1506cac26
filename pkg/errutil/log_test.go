// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlexDesk Contributors

package errutil_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plexdesk/plexdesk/pkg/errutil"
)

func capture(t *testing.T, write func(*slog.Logger)) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	write(slog.New(slog.NewJSONHandler(&buf, nil)))
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "log output: %s", buf.String())
	return entry
}

func TestLogError_OopsFields(t *testing.T) {
	err := oops.Code("HOOK_ERROR").
		In("plugin").
		With("plugin", "paint").
		With("phase", "start").
		Hint("check the plugin's onStart").
		Errorf("hook failed")

	entry := capture(t, func(l *slog.Logger) { errutil.LogError(l, "plugin lifecycle failure", err) })

	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "plugin lifecycle failure", entry["msg"])
	assert.Equal(t, "HOOK_ERROR", entry["code"])
	assert.Equal(t, "plugin", entry["domain"])
	assert.Equal(t, "check the plugin's onStart", entry["hint"])
	assert.Equal(t, map[string]any{"plugin": "paint", "phase": "start"}, entry["context"])
}

func TestLogError_PlainError(t *testing.T) {
	entry := capture(t, func(l *slog.Logger) { errutil.LogError(l, "reconcile failed", errors.New("disk full")) })

	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "disk full", entry["error"])
	assert.NotContains(t, entry, "code")
	assert.NotContains(t, entry, "context")
}

func TestLog_Level(t *testing.T) {
	err := oops.Code("HOOK_ERROR").Errorf("stop failed")
	entry := capture(t, func(l *slog.Logger) { errutil.Log(l, slog.LevelWarn, "plugin lifecycle failure", err) })

	assert.Equal(t, "WARN", entry["level"])
	assert.NotContains(t, entry, "domain")
	assert.NotContains(t, entry, "hint")
}

func TestLog_NilErrorWritesNothing(t *testing.T) {
	var buf bytes.Buffer
	errutil.LogError(slog.New(slog.NewJSONHandler(&buf, nil)), "nothing", nil)
	assert.Empty(t, buf.String())
}

func TestAttrs_ContextKeysSorted(t *testing.T) {
	err := oops.With("zeta", 1, "alpha", 2, "mid", 3).Errorf("x")

	var ctx slog.Attr
	for _, a := range errutil.Attrs(err) {
		if a.Key == "context" {
			ctx = a
		}
	}
	require.Equal(t, slog.KindGroup, ctx.Value.Kind())

	var keys []string
	for _, a := range ctx.Value.Group() {
		keys = append(keys, a.Key)
	}
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, keys)
}
