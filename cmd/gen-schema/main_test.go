// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlexDesk Contributors

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plexdesk/plexdesk/internal/manifest"
)

func TestRun_WritesSchema(t *testing.T) {
	out := filepath.Join(t.TempDir(), "nested", "manifest.schema.json")
	var stdout, stderr bytes.Buffer

	code := run([]string{"--out", out}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), out)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), manifest.SchemaID())
}

func TestRun_ShortFlag(t *testing.T) {
	out := filepath.Join(t.TempDir(), "schema.json")
	var stdout, stderr bytes.Buffer

	require.Equal(t, 0, run([]string{"-o", out}, &stdout, &stderr))
	assert.FileExists(t, out)
}

func TestRun_UnknownFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer

	assert.Equal(t, 2, run([]string{"--bogus"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "bogus")
}
