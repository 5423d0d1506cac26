// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlexDesk Contributors

package manifest

import (
	"slices"
	"strings"
)

// Node is one directory in a Tree.
type Node struct {
	Name     string
	Parent   int
	Children []int
	Files    []string
}

// Tree is an arena of directory nodes. Nodes[0] is the root and has
// Parent == -1. Children and files are kept in insertion order; Build
// sorts them itself.
type Tree struct {
	Nodes []Node
}

// NewTree returns a tree holding only the root directory.
func NewTree() *Tree {
	return &Tree{Nodes: []Node{{Parent: -1}}}
}

// Add creates a child directory under parent and returns its index.
// Adding a name that already exists returns the existing child.
func (t *Tree) Add(parent int, name string) int {
	if idx, ok := t.Child(parent, name); ok {
		return idx
	}
	idx := len(t.Nodes)
	t.Nodes = append(t.Nodes, Node{Name: name, Parent: parent})
	t.Nodes[parent].Children = append(t.Nodes[parent].Children, idx)
	return idx
}

// AddPath creates every directory along a slash separated path and returns
// the index of the last one.
func (t *Tree) AddPath(p string) int {
	idx := 0
	for _, part := range strings.Split(p, "/") {
		if part == "" || part == "." {
			continue
		}
		idx = t.Add(idx, part)
	}
	return idx
}

// AddFile records a regular file inside node.
func (t *Tree) AddFile(node int, name string) {
	if !slices.Contains(t.Nodes[node].Files, name) {
		t.Nodes[node].Files = append(t.Nodes[node].Files, name)
	}
}

// Child looks up a direct child directory by name.
func (t *Tree) Child(node int, name string) (int, bool) {
	for _, c := range t.Nodes[node].Children {
		if t.Nodes[c].Name == name {
			return c, true
		}
	}
	return 0, false
}

// HasFile reports whether node directly contains the named file.
func (t *Tree) HasFile(node int, name string) bool {
	return slices.Contains(t.Nodes[node].Files, name)
}

// Path returns the slash separated path of node relative to the root.
func (t *Tree) Path(node int) string {
	var parts []string
	for i := node; i > 0; i = t.Nodes[i].Parent {
		parts = append(parts, t.Nodes[i].Name)
	}
	slices.Reverse(parts)
	return strings.Join(parts, "/")
}
