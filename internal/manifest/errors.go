// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlexDesk Contributors

package manifest

// Error codes for manifest failures.
const (
	CodeManifestRead  = "MANIFEST_READ_ERROR"
	CodeManifestWrite = "MANIFEST_WRITE_ERROR"
	CodeScanError     = "MANIFEST_SCAN_ERROR"
)
