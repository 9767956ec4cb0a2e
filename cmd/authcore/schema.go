// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"os"
	"path/filepath"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/authcore/internal/web"
)

// NewSchemaCmd creates the schema subcommand.
func NewSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema [DIR]",
		Short: "Write the request JSON schemas",
		Long: `Write the JSON Schema of every request body to DIR as <name>.schema.json.
Without DIR the schemas are printed to stdout.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runSchema,
	}
}

func runSchema(cmd *cobra.Command, args []string) error {
	var dir string
	if len(args) == 1 {
		dir = args[0]
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return oops.With("dir", dir).Wrapf(err, "create schema directory")
		}
	}

	for _, name := range web.SchemaNames() {
		data, err := web.GenerateSchema(name)
		if err != nil {
			return err
		}
		data = append(data, '\n')

		if dir == "" {
			if _, err := cmd.OutOrStdout().Write(data); err != nil {
				return oops.With("schema", name).Wrap(err)
			}
			continue
		}

		path := filepath.Join(dir, name+".schema.json")
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return oops.With("path", path).Wrapf(err, "write schema")
		}
		cmd.Printf("wrote %s\n", path)
	}
	return nil
}
