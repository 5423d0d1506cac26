// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlexDesk Contributors

// Package xdg provides XDG Base Directory paths for PlexDesk.
package xdg

import (
	"os"
	"path/filepath"

	"github.com/samber/oops"
)

const appName = "plexdesk"

// dir resolves an XDG base directory: env when set and absolute, otherwise
// fallback below the user's home directory.
func dir(env string, fallback ...string) (string, error) {
	if base := os.Getenv(env); base != "" && filepath.IsAbs(base) {
		return filepath.Join(base, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", oops.In("xdg").With("env", env).Hint("set " + env + " or HOME").Wrap(err)
	}
	return filepath.Join(append(append([]string{home}, fallback...), appName)...), nil
}

// ConfigDir returns the config directory ($XDG_CONFIG_HOME or ~/.config).
func ConfigDir() (string, error) {
	return dir("XDG_CONFIG_HOME", ".config")
}

// DataDir returns the data directory ($XDG_DATA_HOME or ~/.local/share).
// Plugins are installed below it.
func DataDir() (string, error) {
	return dir("XDG_DATA_HOME", ".local", "share")
}

// StateDir returns the state directory ($XDG_STATE_HOME or ~/.local/state).
// The generated manifest lives there.
func StateDir() (string, error) {
	return dir("XDG_STATE_HOME", ".local", "state")
}

// CacheDir returns the cache directory ($XDG_CACHE_HOME or ~/.cache).
func CacheDir() (string, error) {
	return dir("XDG_CACHE_HOME", ".cache")
}

// EnsureDir creates a directory and all parent directories if they don't exist.
// Directories are created with 0700 permissions.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o700); err != nil {
		return oops.In("xdg").With("path", path).Wrapf(err, "failed to create directory")
	}
	return nil
}
