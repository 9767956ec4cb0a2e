// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"strconv"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/authcore/internal/config"
	"github.com/holomush/authcore/internal/store"
)

// migratorFactory creates the migrator used by the migrate subcommands.
// Tests replace it.
var migratorFactory = newStoreMigrator

// NewMigrateCmd creates the migrate command group.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the account schema",
		Long: `Apply, revert or inspect the embedded account schema migrations.
The database URL comes from --database-url, AUTHCORE_DATABASE__URL or DATABASE_URL.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, func(m Migrator) error {
				if err := m.Up(); err != nil {
					return err
				}
				return printVersion(cmd, m)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Revert all applied migrations",
		Long:  `Revert all applied migrations. This drops the accounts table and every account in it.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, func(m Migrator) error {
				if err := m.Down(); err != nil {
					return err
				}
				return printVersion(cmd, m)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show the applied schema version and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, func(m Migrator) error {
				status, err := m.Status()
				if err != nil {
					return err
				}
				printStatus(cmd, status)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "force VERSION",
		Short: "Set the schema version without running migrations",
		Long: `Record VERSION as applied and clear the dirty flag. Use it to recover
from a migration that failed part way.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := parseForceVersion(args[0])
			if err != nil {
				return err
			}
			return withMigrator(cmd, func(m Migrator) error {
				if err := m.Force(version); err != nil {
					return err
				}
				return printVersion(cmd, m)
			})
		},
	})

	return cmd
}

// parseForceVersion parses a non-negative migration version.
func parseForceVersion(s string) (int, error) {
	version, err := strconv.Atoi(s)
	if err != nil {
		return 0, oops.Code(store.CodeInvalidVersion).With("input", s).Errorf("version must be an integer")
	}
	if version < 0 {
		return 0, oops.Code(store.CodeInvalidVersion).With("input", s).Errorf("version must be non-negative")
	}
	return version, nil
}

func withMigrator(cmd *cobra.Command, fn func(Migrator) error) error {
	path, err := resolveConfigFile()
	if err != nil {
		return err
	}
	cfg, err := config.Read(path, cmd.Flags())
	if err != nil {
		return err
	}
	if cfg.Database.URL == "" {
		return oops.Code(config.CodeConfigurationError).
			With("key", "database.url").
			Errorf("database url is required")
	}

	m, err := migratorFactory(cfg.Database.URL)
	if err != nil {
		return err
	}
	runErr := fn(m)
	if closeErr := m.Close(); closeErr != nil && runErr == nil {
		return closeErr
	}
	return runErr
}

func printVersion(cmd *cobra.Command, m Migrator) error {
	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	if dirty {
		cmd.Printf("schema version %d (dirty)\n", version)
		return nil
	}
	cmd.Printf("schema version %d\n", version)
	return nil
}

func printStatus(cmd *cobra.Command, status *store.Status) {
	state := "clean"
	if status.Dirty {
		state = "dirty"
	}
	cmd.Printf("schema version %d (%s)\n", status.Version, state)
	for _, m := range status.Applied {
		cmd.Printf("  applied  %s\n", m.Name)
	}
	for _, m := range status.Pending {
		cmd.Printf("  pending  %s\n", m.Name)
	}
}
