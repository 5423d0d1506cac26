// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlexDesk Contributors

package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/plexdesk/plexdesk/internal/config"
	"github.com/plexdesk/plexdesk/internal/logging"
)

// app carries state shared by subcommands once flags are parsed.
type app struct {
	configFile string
	cfg        config.Config
	logger     *slog.Logger
}

// NewRootCmd creates the root command for the PlexDesk CLI.
func NewRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:   "plexdesk",
		Short: "PlexDesk - plugin runtime for the desktop shell",
		Long: `PlexDesk discovers shell plugins, writes their manifest and runs
them through their lifecycle against the extension registry.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "config file path (default: XDG_CONFIG_HOME/plexdesk/config.yaml)")
	pf.String("plugins-dir", "", "plugins directory")
	pf.String("manifest-path", "", "generated manifest path")
	pf.Duration("hook-timeout", 0, "lifecycle hook timeout")
	pf.String("log-format", "", "log format (json or text)")
	pf.String("log-level", "", "log level (debug, info, warn, error)")
	pf.String("metrics-addr", "", "metrics/health HTTP address (empty = disabled)")
	pf.String("bridge-url", "", "native backend base URL")
	pf.Uint64("bridge-retries", 0, "bridge retries for transient failures")
	pf.StringSlice("disabled-plugins", nil, "plugin ids to leave disabled")

	cmd.AddCommand(newManifestCmd(a))
	cmd.AddCommand(newRunCmd(a))
	cmd.AddCommand(newListCmd(a))

	return cmd
}

// load reads configuration and sets up logging.
func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configFile, cmd.Flags())
	if err != nil {
		return err
	}
	logger, err := logging.Setup(logging.Options{
		Service: "plexdesk",
		Version: version,
		Format:  cfg.LogFormat,
		Level:   cfg.LogLevel,
		Writer:  cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	a.cfg = cfg
	a.logger = logger
	return nil
}
