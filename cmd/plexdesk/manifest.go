// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlexDesk Contributors

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/plexdesk/plexdesk/internal/manifest"
)

func newManifestCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "manifest",
		Short: "Build or check the plugin manifest",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "build",
		Short: "Scan the plugins directory and write the manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			file, err := a.writeManifest()
			if err != nil {
				return err
			}
			for _, d := range file.Plugins {
				fmt.Fprintf(cmd.OutOrStdout(), "%-24s priority=%d main=%s enabled=%t\n", d.ID, d.Priority, d.Main, d.Enabled)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d plugins to %s\n", len(file.Plugins), a.cfg.ManifestPath)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "validate [file]",
		Short: "Validate a manifest file against the schema",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.cfg.ManifestPath
			if len(args) == 1 {
				path = args[0]
			}
			file, err := manifest.Read(path)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d plugins, generated by %s)\n", path, len(file.Plugins), file.Generator)
			return nil
		},
	})
	return cmd
}
