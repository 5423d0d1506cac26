// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlexDesk Contributors

package plugin

// State is a plugin instance's lifecycle state.
//
//	Unloaded -> Initialized -> Started -> Stopped -> Disposed
//
// Any load or start failure moves the instance to Failed, which is terminal.
type State int

// Lifecycle states.
const (
	StateUnloaded State = iota
	StateInitialized
	StateStarted
	StateStopped
	StateDisposed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateInitialized:
		return "initialized"
	case StateStarted:
		return "started"
	case StateStopped:
		return "stopped"
	case StateDisposed:
		return "disposed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Phase names a lifecycle step.
type Phase string

// Lifecycle phases.
const (
	PhaseLoad    Phase = "load"
	PhaseInit    Phase = "init"
	PhaseStart   Phase = "start"
	PhaseUpdate  Phase = "update"
	PhaseStop    Phase = "stop"
	PhaseDispose Phase = "dispose"
)
