// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlexDesk Contributors

package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plexdesk/plexdesk/pkg/errutil"
	"github.com/plexdesk/plexdesk/pkg/pluginsdk"
)

func ids(records []Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestRegister(t *testing.T) {
	r := New()
	called := false
	spec := pluginsdk.Spec{
		Label:      "Paint",
		Icon:       "brush",
		Payload:    map[string]any{"canvas": true},
		OnActivate: func(context.Context) error { called = true; return nil },
	}

	rec, err := r.Register("paint", pluginsdk.PointViewport, "paint:canvas", spec)
	require.NoError(t, err)

	assert.Equal(t, "paint:canvas", rec.ID)
	assert.Equal(t, "paint", rec.Owner)
	assert.Equal(t, "canvas", rec.LocalID)
	assert.Equal(t, pluginsdk.PointViewport, rec.Point)
	assert.Equal(t, "Paint", rec.Label)
	assert.Equal(t, "brush", rec.Icon)
	assert.Equal(t, map[string]any{"canvas": true}, rec.Payload)

	got, ok := r.Get(pluginsdk.PointViewport, "paint:canvas")
	require.True(t, ok)
	require.NotNil(t, got.OnActivate)
	require.NoError(t, got.OnActivate(context.Background()))
	assert.True(t, called)
	assert.Equal(t, 1, r.Len(pluginsdk.PointViewport))
}

func TestRegister_Errors(t *testing.T) {
	tests := []struct {
		name   string
		caller string
		point  pluginsdk.Point
		id     string
		code   string
	}{
		{"unknown point", "paint", pluginsdk.Point("sidebar"), "paint:x", CodeUnknownPoint},
		{"foreign prefix", "paint", pluginsdk.PointMenu, "clock:x", CodeNamespaceViolation},
		{"missing prefix", "paint", pluginsdk.PointMenu, "x", CodeNamespaceViolation},
		{"empty local id", "paint", pluginsdk.PointMenu, "paint:", CodeNamespaceViolation},
		{"empty caller", "", pluginsdk.PointMenu, ":x", CodeNamespaceViolation},
		{"duplicate", "paint", pluginsdk.PointMenu, "paint:file", CodeDuplicate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New()
			_, err := r.Register("paint", pluginsdk.PointMenu, "paint:file", pluginsdk.Spec{Label: "original"})
			require.NoError(t, err)

			_, err = r.Register(tt.caller, tt.point, tt.id, pluginsdk.Spec{Label: "new"})
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, tt.code)

			records := r.List(pluginsdk.PointMenu)
			require.Len(t, records, 1, "registry unchanged")
			assert.Equal(t, "original", records[0].Label)
			for _, p := range pluginsdk.Points() {
				if p != pluginsdk.PointMenu {
					assert.Zero(t, r.Len(p))
				}
			}
		})
	}
}

func TestRegister_SameIDAtDifferentPoints(t *testing.T) {
	r := New()
	_, err := r.Register("paint", pluginsdk.PointMenu, "paint:main", pluginsdk.Spec{})
	require.NoError(t, err)
	_, err = r.Register("paint", pluginsdk.PointToolbar, "paint:main", pluginsdk.Spec{})
	require.NoError(t, err)
}

func TestUnregister(t *testing.T) {
	r := New()
	_, err := r.Register("paint", pluginsdk.PointTab, "paint:t", pluginsdk.Spec{})
	require.NoError(t, err)

	assert.True(t, r.Unregister(pluginsdk.PointTab, "paint:t"))
	assert.False(t, r.Unregister(pluginsdk.PointTab, "paint:t"), "second removal is a no-op")
	assert.False(t, r.Unregister(pluginsdk.Point("nope"), "paint:t"))
	assert.Empty(t, r.List(pluginsdk.PointTab))
}

func TestUnregisterAll(t *testing.T) {
	r := New()
	for _, reg := range []struct {
		owner string
		point pluginsdk.Point
		local string
	}{
		{"paint", pluginsdk.PointViewport, "canvas"},
		{"paint", pluginsdk.PointMenu, "file"},
		{"paint", pluginsdk.PointWidget, "swatch"},
		{"clock", pluginsdk.PointWidget, "face"},
		{"clock", pluginsdk.PointMenu, "alarm"},
	} {
		_, err := r.Register(reg.owner, reg.point, QualifiedID(reg.owner, reg.local), pluginsdk.Spec{})
		require.NoError(t, err)
	}

	assert.Equal(t, 3, r.UnregisterAll("paint"))
	assert.Empty(t, r.Owned("paint"))
	assert.Equal(t, []string{"clock:face", "clock:alarm"}, ids(r.Owned("clock")))
	assert.Equal(t, 0, r.UnregisterAll("paint"))
	assert.Equal(t, 0, r.UnregisterAll("unknown"))
}

func TestList_Ordering(t *testing.T) {
	r := New()
	r.SetRank("bridge", -2, 0)
	r.SetRank("core", 0, 1)
	r.SetRank("paint", 1, 2)
	r.SetRank("clock", 1, 3)

	reg := func(owner, local string, spec pluginsdk.Spec) {
		t.Helper()
		_, err := r.Register(owner, pluginsdk.PointMenu, QualifiedID(owner, local), spec)
		require.NoError(t, err)
	}
	reg("clock", "a", pluginsdk.Spec{})
	reg("paint", "b", pluginsdk.Spec{})
	reg("paint", "a", pluginsdk.Spec{})
	reg("core", "x", pluginsdk.Spec{})
	reg("bridge", "y", pluginsdk.Spec{})
	reg("clock", "pinned", pluginsdk.Spec{}.WithOrder(-5))
	reg("stranger", "z", pluginsdk.Spec{})

	assert.Equal(t, []string{
		"clock:pinned",
		"bridge:y",
		"core:x",
		"paint:b",
		"paint:a",
		"clock:a",
		"stranger:z",
	}, ids(r.List(pluginsdk.PointMenu)))
}

func TestList_ReturnsCopy(t *testing.T) {
	r := New()
	_, err := r.Register("paint", pluginsdk.PointPanel, "paint:p", pluginsdk.Spec{Label: "P"})
	require.NoError(t, err)

	list := r.List(pluginsdk.PointPanel)
	list[0].Label = "mutated"

	got, _ := r.Get(pluginsdk.PointPanel, "paint:p")
	assert.Equal(t, "P", got.Label)
	assert.Empty(t, r.List(pluginsdk.Point("unknown")))
}

func TestSubscribe(t *testing.T) {
	r := New()
	var changes []Change
	cancel := r.Subscribe(func(c Change) { changes = append(changes, c) })

	_, err := r.Register("paint", pluginsdk.PointMenu, "paint:m", pluginsdk.Spec{})
	require.NoError(t, err)
	_, err = r.Register("paint", pluginsdk.PointMenu, "paint:m", pluginsdk.Spec{})
	require.Error(t, err)
	r.Unregister(pluginsdk.PointMenu, "paint:m")
	r.SetRank("paint", 1, 0)
	r.SetRank("paint", 1, 0)
	r.SetRank("paint", 0, 0)
	require.NoError(t, r.SetChrome("paint", pluginsdk.ChromeMenu, false))

	cancel()
	cancel()
	_, err = r.Register("paint", pluginsdk.PointMenu, "paint:n", pluginsdk.Spec{})
	require.NoError(t, err)

	kinds := make([]ChangeKind, len(changes))
	for i, c := range changes {
		kinds[i] = c.Kind
	}
	assert.Equal(t, []ChangeKind{ChangeAdded, ChangeRemoved, ChangeReordered, ChangeChrome}, kinds)
	assert.Equal(t, "paint:m", changes[1].Record.ID)
	assert.Equal(t, "paint", changes[2].Plugin)
	assert.Equal(t, pluginsdk.ChromeMenu, changes[3].Flag)
	assert.False(t, changes[3].Visible)
}

func TestRecordSpec(t *testing.T) {
	spec := pluginsdk.Spec{Label: "L", Icon: "I", Payload: 3}.WithOrder(2)
	r := New()
	rec, err := r.Register("p", pluginsdk.PointWidget, "p:w", spec)
	require.NoError(t, err)

	got := rec.Spec()
	assert.Equal(t, "L", got.Label)
	assert.Equal(t, "I", got.Icon)
	assert.Equal(t, 3, got.Payload)
	require.NotNil(t, got.Order)
	assert.Equal(t, 2, *got.Order)

	*spec.Order = 9
	assert.Equal(t, 2, *rec.Order, "order is copied on register")
}

func TestChangeKindString(t *testing.T) {
	assert.Equal(t, "added", ChangeAdded.String())
	assert.Equal(t, "removed", ChangeRemoved.String())
	assert.Equal(t, "chrome", ChangeChrome.String())
	assert.Equal(t, "reordered", ChangeReordered.String())
	assert.Equal(t, "unknown", ChangeKind(42).String())
}
