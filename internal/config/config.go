// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlexDesk Contributors

// Package config loads PlexDesk configuration. Values are layered:
// built-in defaults, then the YAML config file, then command-line flags.
package config

import (
	"errors"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/plexdesk/plexdesk/internal/manifest"
	"github.com/plexdesk/plexdesk/internal/xdg"
)

// FileName is the config file looked up in the XDG config directory.
const FileName = "config.yaml"

// Error codes for configuration failures.
const (
	CodeConfigLoad    = "CONFIG_LOAD_ERROR"
	CodeConfigInvalid = "CONFIG_INVALID"
)

// Priorities mirrors manifest.PriorityTable.
type Priorities struct {
	Bridge  []string `koanf:"bridge"`
	Default []string `koanf:"default"`
	Core    []string `koanf:"core"`
}

// Config is the runtime configuration.
type Config struct {
	PluginsDir      string        `koanf:"plugins_dir"`
	ManifestPath    string        `koanf:"manifest_path"`
	HookTimeout     time.Duration `koanf:"hook_timeout"`
	LogFormat       string        `koanf:"log_format"`
	LogLevel        string        `koanf:"log_level"`
	MetricsAddr     string        `koanf:"metrics_addr"`
	BridgeURL       string        `koanf:"bridge_url"`
	BridgeRetries   uint64        `koanf:"bridge_retries"`
	EntryFiles      []string      `koanf:"entry_files"`
	Priorities      Priorities    `koanf:"priorities"`
	DisabledPlugins []string      `koanf:"disabled_plugins"`
}

// Default returns the built-in configuration. Directory defaults come
// from the XDG base directories.
func Default() (Config, error) {
	data, err := xdg.DataDir()
	if err != nil {
		return Config{}, err
	}
	state, err := xdg.StateDir()
	if err != nil {
		return Config{}, err
	}
	table := manifest.DefaultPriorityTable()
	return Config{
		PluginsDir:    filepath.Join(data, "plugins"),
		ManifestPath:  filepath.Join(state, "manifest.json"),
		HookTimeout:   10 * time.Second,
		LogFormat:     "text",
		LogLevel:      "info",
		MetricsAddr:   "127.0.0.1:9310",
		BridgeRetries: 3,
		EntryFiles:    slices.Clone(manifest.DefaultEntryFiles),
		Priorities: Priorities{
			Bridge:  table.Bridge,
			Default: table.Default,
			Core:    table.Core,
		},
	}, nil
}

// DefaultPath returns the config file path in the XDG config directory.
func DefaultPath() (string, error) {
	dir, err := xdg.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName), nil
}

// Load builds the configuration. path names the config file; when empty,
// the default path is used and a missing file is not an error. flags may
// be nil; only flags the user changed override file values, and flag names
// map to keys with dashes turned into underscores.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	errb := oops.Code(CodeConfigLoad).In("config")

	cfg, err := Default()
	if err != nil {
		return Config{}, errb.Wrap(err)
	}

	k := koanf.New(".")
	for key, v := range cfg.values() {
		if err := k.Set(key, v); err != nil {
			return Config{}, errb.With("key", key).Wrap(err)
		}
	}

	explicit := path != ""
	if !explicit {
		if path, err = DefaultPath(); err != nil {
			return Config{}, errb.Wrap(err)
		}
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return Config{}, errb.With("path", path).Hint("failed to read config file").Wrap(err)
		}
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, flagKey(flags)), nil); err != nil {
			return Config{}, errb.Wrap(err)
		}
	}

	var out Config
	if err := k.UnmarshalWithConf("", &out, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Config{}, errb.Hint("config value has the wrong type").Wrap(err)
	}
	if err := out.Validate(); err != nil {
		return Config{}, err
	}
	return out, nil
}

// flagKey maps a changed flag to its config key. Unchanged flags keep the
// value already loaded.
func flagKey(fs *pflag.FlagSet) func(*pflag.Flag) (string, any) {
	return func(f *pflag.Flag) (string, any) {
		if !f.Changed {
			return "", nil
		}
		return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(fs, f)
	}
}

// values flattens c into koanf keys.
func (c Config) values() map[string]any {
	return map[string]any{
		"plugins_dir":        c.PluginsDir,
		"manifest_path":      c.ManifestPath,
		"hook_timeout":       c.HookTimeout,
		"log_format":         c.LogFormat,
		"log_level":          c.LogLevel,
		"metrics_addr":       c.MetricsAddr,
		"bridge_url":         c.BridgeURL,
		"bridge_retries":     c.BridgeRetries,
		"entry_files":        c.EntryFiles,
		"priorities.bridge":  c.Priorities.Bridge,
		"priorities.default": c.Priorities.Default,
		"priorities.core":    c.Priorities.Core,
		"disabled_plugins":   c.DisabledPlugins,
	}
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	errb := oops.Code(CodeConfigInvalid).In("config")
	switch {
	case c.PluginsDir == "":
		return errb.New("plugins_dir is required")
	case c.ManifestPath == "":
		return errb.New("manifest_path is required")
	case c.HookTimeout <= 0:
		return errb.With("hook_timeout", c.HookTimeout).New("hook_timeout must be positive")
	case c.LogFormat != "json" && c.LogFormat != "text":
		return errb.With("log_format", c.LogFormat).Errorf("log_format must be 'json' or 'text', got %q", c.LogFormat)
	case len(c.EntryFiles) == 0:
		return errb.New("entry_files must not be empty")
	}
	for _, name := range c.EntryFiles {
		if !slices.Contains(manifest.DefaultEntryFiles, name) {
			return errb.With("entry_file", name).
				Hint("supported entry files: " + strings.Join(manifest.DefaultEntryFiles, ", ")).
				Errorf("no plugin host handles entry file %q", name)
		}
	}
	return nil
}

// BuildOptions returns the manifest build options the config describes.
func (c Config) BuildOptions() manifest.Options {
	return manifest.Options{
		EntryFiles: slices.Clone(c.EntryFiles),
		Priorities: manifest.PriorityTable{
			Bridge:  slices.Clone(c.Priorities.Bridge),
			Default: slices.Clone(c.Priorities.Default),
			Core:    slices.Clone(c.Priorities.Core),
		},
		Disabled: slices.Clone(c.DisabledPlugins),
	}
}
