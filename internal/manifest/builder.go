// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlexDesk Contributors

// Package manifest discovers plugin bundles and persists the ordered
// descriptor list the orchestrator boots from.
package manifest

import (
	"path"
	"slices"
	"sort"
	"strings"
)

// Well-known bundle layout.
const (
	WidgetsDir  = "widgets"
	BackendDir  = "backend"
	FrontendDir = "frontend"
)

// DefaultEntryFiles are the entry file names that mark a plugin directory,
// in precedence order.
var DefaultEntryFiles = []string{"init.lua", "plugin.yaml"}

// Descriptor is the discovery record for one plugin.
type Descriptor struct {
	ID          string   `json:"id" jsonschema:"required,minLength=1"`
	Path        string   `json:"path" jsonschema:"required"`
	Main        string   `json:"main" jsonschema:"required,minLength=1"`
	Widget      string   `json:"widget,omitempty" jsonschema:"oneof_type=string;null"`
	Widgets     []string `json:"widgets" jsonschema:"oneof_type=array;null"`
	Enabled     bool     `json:"enabled" jsonschema:"required"`
	Priority    int      `json:"priority" jsonschema:"required"`
	HasBackend  bool     `json:"hasBackend"`
	HasFrontend bool     `json:"hasFrontend"`
}

// EntryPath returns the entry file path relative to the plugins directory.
func (d Descriptor) EntryPath() string {
	return path.Join(d.Path, d.Main)
}

// Options control a Build.
type Options struct {
	// EntryFiles lists recognized entry files; the first one present wins.
	EntryFiles []string
	Priorities PriorityTable
	// Disabled ids are emitted with Enabled set to false.
	Disabled []string
}

// DefaultOptions returns the build options used by the CLI when nothing is configured.
func DefaultOptions() Options {
	return Options{
		EntryFiles: slices.Clone(DefaultEntryFiles),
		Priorities: DefaultPriorityTable(),
	}
}

// Skip records a plugin directory that was left out of the result.
type Skip struct {
	Path   string
	ID     string
	Reason string
}

// Result is the output of Build.
type Result struct {
	Descriptors []Descriptor
	Skipped     []Skip
}

// ID derives a plugin id from its slash path. Runs of path separators
// collapse to a single underscore.
func ID(p string) string {
	var b strings.Builder
	sep := false
	for _, r := range strings.Trim(p, `/\`) {
		if r == '/' || r == '\\' {
			sep = true
			continue
		}
		if sep {
			b.WriteByte('_')
			sep = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Build walks tree depth-first, children in name order, and returns one
// descriptor per plugin directory sorted by priority. Ties keep discovery
// order. Build does not touch the filesystem.
func Build(tree *Tree, opts Options) Result {
	entryFiles := opts.EntryFiles
	if len(entryFiles) == 0 {
		entryFiles = DefaultEntryFiles
	}

	var res Result
	seen := make(map[string]string)

	var walk func(node int)
	walk = func(node int) {
		children := slices.Clone(tree.Nodes[node].Children)
		slices.SortFunc(children, func(a, b int) int {
			return strings.Compare(tree.Nodes[a].Name, tree.Nodes[b].Name)
		})
		for _, c := range children {
			main, ok := entryFile(tree, c, entryFiles)
			if !ok {
				walk(c)
				continue
			}
			rel := tree.Path(c)
			id := ID(rel)
			if prev, dup := seen[id]; dup {
				res.Skipped = append(res.Skipped, Skip{
					Path:   rel,
					ID:     id,
					Reason: "duplicate id, first seen at " + prev,
				})
				continue
			}
			seen[id] = rel
			res.Descriptors = append(res.Descriptors, describe(tree, c, rel, id, main, opts))
		}
	}
	walk(0)

	sort.SliceStable(res.Descriptors, func(i, j int) bool {
		return res.Descriptors[i].Priority < res.Descriptors[j].Priority
	})
	return res
}

func entryFile(tree *Tree, node int, entryFiles []string) (string, bool) {
	for _, name := range entryFiles {
		if tree.HasFile(node, name) {
			return name, true
		}
	}
	return "", false
}

func describe(tree *Tree, node int, rel, id, main string, opts Options) Descriptor {
	d := Descriptor{
		ID:       id,
		Path:     rel,
		Main:     main,
		Enabled:  !slices.Contains(opts.Disabled, id),
		Priority: opts.Priorities.Priority(id),
	}
	if w, ok := tree.Child(node, WidgetsDir); ok && len(tree.Nodes[w].Files) > 0 {
		d.Widgets = slices.Sorted(slices.Values(tree.Nodes[w].Files))
		d.Widget = d.Widgets[0]
	}
	_, d.HasBackend = tree.Child(node, BackendDir)
	_, hasFrontendDir := tree.Child(node, FrontendDir)
	d.HasFrontend = hasFrontendDir || len(d.Widgets) > 0
	return d
}
