// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/authcore/internal/auth"
	"github.com/holomush/authcore/internal/config"
)

// NewHashPasswordCmd creates the hash-password subcommand.
func NewHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password",
		Short: "Hash a password read from stdin",
		Long: `Read one password line from stdin and print its hash under the
configured algorithm and cost, e.g. to seed an account by hand.`,
		Args: cobra.NoArgs,
		RunE: runHashPassword,
	}
}

func runHashPassword(cmd *cobra.Command, _ []string) error {
	path, err := resolveConfigFile()
	if err != nil {
		return err
	}
	cfg, err := config.Read(path, cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.Hash.Validate(); err != nil {
		return err
	}

	password, err := readPassword(cmd)
	if err != nil {
		return err
	}

	hasher, err := auth.NewPasswordHasher(&cfg.Hash)
	if err != nil {
		return err
	}
	hash, err := hasher.Hash(password)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), hash)
	return err
}

// readPassword returns the first line of stdin without its line ending.
func readPassword(cmd *cobra.Command) (string, error) {
	scanner := bufio.NewScanner(cmd.InOrStdin())
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", oops.With("operation", "read password").Wrap(err)
		}
		return "", oops.Code(auth.CodeInvalidInput).Errorf("no password on stdin")
	}
	password := strings.TrimRight(scanner.Text(), "\r")
	if password == "" {
		return "", oops.Code(auth.CodeInvalidInput).Errorf("password is empty")
	}
	return password, nil
}
