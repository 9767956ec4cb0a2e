// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/holomush/authcore/internal/config"
	"github.com/holomush/authcore/internal/xdg"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the authcore CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "authcore",
		Short: "authcore - credential and session authentication service",
		Long: `authcore registers accounts, verifies passwords and issues signed
session tokens carried in HTTP-only cookies.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "",
		"config file path (default: $XDG_CONFIG_HOME/authcore/config.yaml if present)")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewHashPasswordCmd())
	cmd.AddCommand(NewSchemaCmd())

	return cmd
}

// resolveConfigFile returns --config when set, otherwise the first
// config.yaml found in the XDG configuration directories, or "".
func resolveConfigFile() (string, error) {
	if configFile != "" {
		return configFile, nil
	}
	return xdg.FindConfigFile()
}
