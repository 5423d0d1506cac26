// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlexDesk Contributors

// Command gen-schema writes the plugin manifest JSON Schema file.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/plexdesk/plexdesk/internal/manifest"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := pflag.NewFlagSet("gen-schema", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	outPath := fs.StringP("out", "o", filepath.Join("schemas", "manifest.schema.json"), "output file")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	schema, err := manifest.GenerateSchema()
	if err != nil {
		fmt.Fprintf(stderr, "Error generating schema: %v\n", err)
		return 1
	}

	if err := os.MkdirAll(filepath.Dir(*outPath), 0o750); err != nil {
		fmt.Fprintf(stderr, "Error creating directory: %v\n", err)
		return 1
	}

	if err := os.WriteFile(*outPath, append(schema, '\n'), 0o600); err != nil {
		fmt.Fprintf(stderr, "Error writing file: %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "Generated %s\n", *outPath)
	return 0
}
