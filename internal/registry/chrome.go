// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlexDesk Contributors

package registry

import (
	"slices"

	"github.com/plexdesk/plexdesk/pkg/pluginsdk"
)

// HostOwner is the owner tag used for writes made by the shell itself.
const HostOwner = ""

// chromeEntry is one owner's setting for a flag. Each flag keeps a stack of
// entries; the top one is in effect and every owner appears at most once.
type chromeEntry struct {
	owner   string
	visible bool
}

// SetChromeVisibility sets a flag on behalf of the shell.
func (r *Registry) SetChromeVisibility(flag pluginsdk.ChromeFlag, visible bool) error {
	return r.SetChrome(HostOwner, flag, visible)
}

// SetChrome records owner's setting for flag and makes it the effective
// value. A later write by any owner takes precedence.
func (r *Registry) SetChrome(owner string, flag pluginsdk.ChromeFlag, visible bool) error {
	if !flag.Valid() {
		return ErrUnknownChrome(flag)
	}
	r.mu.Lock()
	before := r.chromeVisibleLocked(flag)
	stack := slices.DeleteFunc(r.chrome[flag], func(e chromeEntry) bool { return e.owner == owner })
	r.chrome[flag] = append(stack, chromeEntry{owner: owner, visible: visible})
	after := r.chromeVisibleLocked(flag)
	r.mu.Unlock()

	if before != after {
		r.notify(Change{Kind: ChangeChrome, Flag: flag, Visible: after})
	}
	return nil
}

// RestoreChrome withdraws owner's setting for flag. The value that was in
// effect beneath it takes over.
func (r *Registry) RestoreChrome(owner string, flag pluginsdk.ChromeFlag) error {
	if !flag.Valid() {
		return ErrUnknownChrome(flag)
	}
	r.mu.Lock()
	before := r.chromeVisibleLocked(flag)
	r.chrome[flag] = slices.DeleteFunc(r.chrome[flag], func(e chromeEntry) bool { return e.owner == owner })
	after := r.chromeVisibleLocked(flag)
	r.mu.Unlock()

	if before != after {
		r.notify(Change{Kind: ChangeChrome, Flag: flag, Visible: after})
	}
	return nil
}

// ReleaseChrome withdraws every setting made by owner.
func (r *Registry) ReleaseChrome(owner string) {
	for _, flag := range pluginsdk.ChromeFlags() {
		_ = r.RestoreChrome(owner, flag)
	}
}

// ChromeVisible returns the effective visibility of flag. Unknown flags
// report false.
func (r *Registry) ChromeVisible(flag pluginsdk.ChromeFlag) bool {
	if !flag.Valid() {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.chromeVisibleLocked(flag)
}

// Chrome returns the effective visibility of every flag.
func (r *Registry) Chrome() map[pluginsdk.ChromeFlag]bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[pluginsdk.ChromeFlag]bool, len(pluginsdk.ChromeFlags()))
	for _, flag := range pluginsdk.ChromeFlags() {
		out[flag] = r.chromeVisibleLocked(flag)
	}
	return out
}

func (r *Registry) chromeVisibleLocked(flag pluginsdk.ChromeFlag) bool {
	stack := r.chrome[flag]
	if len(stack) == 0 {
		return true
	}
	return stack[len(stack)-1].visible
}
