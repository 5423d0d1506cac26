// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlexDesk Contributors

package plugin

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropy     = ulid.Monotonic(rand.Reader, 0)
	entropyLock sync.Mutex
)

// newULID generates a new monotonic ULID.
func newULID() ulid.ULID {
	entropyLock.Lock()
	defer entropyLock.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
}

// Event describes one lifecycle transition.
type Event struct {
	ID     ulid.ULID
	Plugin string
	From   State
	To     State
	Phase  Phase
	// Err is set when the transition is to StateFailed.
	Err  error
	Time time.Time
}

// EventHandler receives lifecycle events. Handlers run synchronously on the
// lifecycle sequence and must not call back into the orchestrator.
type EventHandler func(Event)
