// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlexDesk Contributors

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/plexdesk/plexdesk/pkg/pluginsdk"
)

func newListCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Start plugins once and print what they contributed",
		Long: `List bootstraps every enabled plugin against a fresh registry, prints
plugin states and contributions, then shuts the plugins down. The manifest
on disk is left untouched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			file, err := a.buildManifest()
			if err != nil {
				return err
			}
			rt, err := a.newRuntime(nil)
			if err != nil {
				return err
			}
			bootErr := rt.orch.Bootstrap(cmd.Context(), file)
			snap := rt.snapshot()
			if err := errors.Join(bootErr, a.stop(rt, nil)); err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(snap)
			}
			return printSnapshot(cmd.OutOrStdout(), snap)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func printSnapshot(w io.Writer, s snapshot) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PLUGIN\tSTATE\tPRIORITY\tVERSION")
	for _, p := range s.Plugins {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", p.ID, p.State, p.Priority, p.Version)
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "POINT\tCONTRIBUTION\tOWNER\tLABEL")
	for _, point := range pluginsdk.Points() {
		for _, c := range s.Points[point] {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", point, c.ID, c.Owner, c.Label)
		}
	}
	for _, f := range s.Failures {
		fmt.Fprintf(tw, "\nfailed: %s during %s (%s): %s\n", f.Plugin, f.Phase, f.Code, f.Error)
	}
	return tw.Flush()
}
