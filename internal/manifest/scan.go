// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlexDesk Contributors

package manifest

import (
	"io/fs"
	"path"
	"strings"

	"github.com/samber/oops"
)

// Scan reads a plugins directory into a Tree. Hidden directories (leading
// dot) are skipped along with everything below them.
func Scan(fsys fs.FS) (*Tree, error) {
	tree := NewTree()
	index := map[string]int{".": 0}

	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == "." {
			return nil
		}
		parent, ok := index[path.Dir(p)]
		if !ok {
			return nil
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") {
				return fs.SkipDir
			}
			index[p] = tree.Add(parent, d.Name())
			return nil
		}
		if d.Type().IsRegular() {
			tree.AddFile(parent, d.Name())
		}
		return nil
	})
	if err != nil {
		return nil, oops.Code(CodeScanError).In("manifest").Hint("failed to scan plugins directory").Wrap(err)
	}
	return tree, nil
}
