// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlexDesk Contributors

package manifest

import (
	"encoding/hex"
	"encoding/json"

	"golang.org/x/crypto/blake2b"
)

// Fingerprint returns a stable digest of the descriptor. Two descriptors
// with the same fingerprint describe the same plugin layout.
func (d Descriptor) Fingerprint() string {
	// Descriptor only holds strings, ints, bools and a string slice.
	data, _ := json.Marshal(d)
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}
