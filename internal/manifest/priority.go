// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlexDesk Contributors

package manifest

import "slices"

// Priority bands. Lower loads earlier.
const (
	PriorityBridge  = -2
	PriorityDefault = -1
	PriorityCore    = 0
	PriorityPlugin  = 1
)

// PriorityTable classifies plugin ids into priority bands.
type PriorityTable struct {
	Bridge  []string
	Default []string
	Core    []string
}

// DefaultPriorityTable returns the table used when none is configured.
func DefaultPriorityTable() PriorityTable {
	return PriorityTable{
		Bridge:  []string{"bridge"},
		Default: []string{"default"},
		Core:    []string{"core", "plugin-manager"},
	}
}

// Priority returns the priority for a plugin id.
func (t PriorityTable) Priority(id string) int {
	switch {
	case slices.Contains(t.Bridge, id):
		return PriorityBridge
	case slices.Contains(t.Default, id):
		return PriorityDefault
	case slices.Contains(t.Core, id):
		return PriorityCore
	default:
		return PriorityPlugin
	}
}
