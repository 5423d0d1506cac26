// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlexDesk Contributors

package manifest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/samber/oops"
)

// File is the persisted manifest.
type File struct {
	Plugins     []Descriptor `json:"plugins" jsonschema:"required"`
	GeneratedAt time.Time    `json:"generatedAt" jsonschema:"required"`
	Generator   string       `json:"generator" jsonschema:"required,minLength=1"`
}

// New wraps descriptors into a manifest file.
func New(descriptors []Descriptor, generator string, now time.Time) *File {
	if descriptors == nil {
		descriptors = []Descriptor{}
	}
	return &File{
		Plugins:     descriptors,
		GeneratedAt: now.UTC(),
		Generator:   generator,
	}
}

// Lookup returns the descriptor with the given id.
func (f *File) Lookup(id string) (Descriptor, bool) {
	for _, d := range f.Plugins {
		if d.ID == id {
			return d, true
		}
	}
	return Descriptor{}, false
}

// Write persists f as indented JSON. The file is written to a temporary
// sibling and renamed into place so readers never see a partial manifest.
func Write(path string, f *File) error {
	errb := oops.Code(CodeManifestWrite).In("manifest").With("path", path)

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return errb.Hint("failed to encode manifest").Wrap(err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return errb.Hint("failed to create manifest directory").Wrap(err)
	}

	tmp, err := os.CreateTemp(dir, ".manifest-*.json")
	if err != nil {
		return errb.Hint("failed to create temporary file").Wrap(err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errb.Hint("failed to write manifest").Wrap(err)
	}
	if err := tmp.Close(); err != nil {
		return errb.Hint("failed to close manifest").Wrap(err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil { //nolint:gosec // manifest is not secret
		return errb.Hint("failed to set manifest permissions").Wrap(err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return errb.Hint("failed to move manifest into place").Wrap(err)
	}
	return nil
}

// Read loads and validates a manifest file.
func Read(path string) (*File, error) {
	errb := oops.Code(CodeManifestRead).In("manifest").With("path", path)

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, errb.Hint("failed to read manifest").Wrap(err)
	}
	return decode(data, errb)
}

// Decode parses and validates manifest JSON.
func Decode(data []byte) (*File, error) {
	return decode(data, oops.Code(CodeManifestRead).In("manifest"))
}

func decode(data []byte, b oops.OopsErrorBuilder) (*File, error) {
	if err := ValidateSchema(data); err != nil {
		return nil, b.Hint(FormatSchemaError(err)).Wrap(err)
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, b.Hint("failed to decode manifest").Wrap(err)
	}
	if f.Plugins == nil {
		f.Plugins = []Descriptor{}
	}

	ids := make(map[string]bool, len(f.Plugins))
	for _, d := range f.Plugins {
		if ids[d.ID] {
			return nil, b.With("plugin", d.ID).Errorf("duplicate plugin id %q", d.ID)
		}
		ids[d.ID] = true
	}
	return &f, nil
}
