// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlexDesk Contributors

package plugin

import (
	"github.com/plexdesk/plexdesk/internal/manifest"
	"github.com/plexdesk/plexdesk/pkg/pluginsdk"
)

// instance is the runtime record of one plugin. Fields are guarded by
// Orchestrator.mu.
type instance struct {
	desc        manifest.Descriptor
	fingerprint string
	state       State
	module      *pluginsdk.Module
	host        Host
	pctx        *pluginContext
	err         error
	// seq is the position in start order.
	seq int
}

// Info is a read-only snapshot of a plugin instance.
type Info struct {
	ID         string
	Descriptor manifest.Descriptor
	State      State
	Seq        int
	Err        error
	// Name and Version come from the resolved module and are empty when
	// loading failed.
	Name    string
	Version string
	// Contributions lists the qualified ids the plugin registered, by point.
	Contributions map[pluginsdk.Point][]string
}

func (i *instance) info() Info {
	info := Info{
		ID:         i.desc.ID,
		Descriptor: i.desc,
		State:      i.state,
		Seq:        i.seq,
		Err:        i.err,
	}
	if i.module != nil {
		info.Name = i.module.Name
		info.Version = i.module.Version
	}
	if i.pctx != nil {
		info.Contributions = i.pctx.contributions()
	}
	return info
}
