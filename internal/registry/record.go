// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlexDesk Contributors

package registry

import (
	"strings"

	"github.com/plexdesk/plexdesk/pkg/pluginsdk"
)

// Separator joins a plugin id and a local contribution id.
const Separator = ":"

// Record is a registered contribution.
type Record struct {
	// ID is the fully qualified id, "<owner>:<local>".
	ID           string
	Owner        string
	LocalID      string
	Point        pluginsdk.Point
	Label        string
	Icon         string
	Order        *int
	Payload      any
	OnActivate   pluginsdk.Action
	OnDeactivate pluginsdk.Action
	// Seq is the registry-wide registration sequence number.
	Seq uint64
}

// QualifiedID joins a plugin id and a local id.
func QualifiedID(pluginID, localID string) string {
	return pluginID + Separator + localID
}

// SplitID splits a qualified id into owner and local parts.
func SplitID(id string) (owner, local string, ok bool) {
	return strings.Cut(id, Separator)
}

// Spec converts the record back into the spec it was registered with.
func (r Record) Spec() pluginsdk.Spec {
	return pluginsdk.Spec{
		Label:        r.Label,
		Icon:         r.Icon,
		Order:        r.Order,
		Payload:      r.Payload,
		OnActivate:   r.OnActivate,
		OnDeactivate: r.OnDeactivate,
	}
}

// ChangeKind describes what a Change reports.
type ChangeKind int

// Change kinds.
const (
	ChangeAdded ChangeKind = iota
	ChangeRemoved
	ChangeChrome
	ChangeReordered
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeAdded:
		return "added"
	case ChangeRemoved:
		return "removed"
	case ChangeChrome:
		return "chrome"
	case ChangeReordered:
		return "reordered"
	default:
		return "unknown"
	}
}

// Change is delivered to subscribers after every mutation.
type Change struct {
	Kind   ChangeKind
	Point  pluginsdk.Point
	Record Record
	// Flag and Visible are set for ChangeChrome.
	Flag    pluginsdk.ChromeFlag
	Visible bool
	// Plugin is set for ChangeReordered.
	Plugin string
}
