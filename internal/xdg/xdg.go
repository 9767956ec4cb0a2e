// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package xdg locates authcore's configuration file using the XDG Base
// Directory layout.
package xdg

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/oops"
)

const appName = "authcore"

// ConfigFileName is the file looked up in each configuration directory.
const ConfigFileName = "config.yaml"

// ConfigDir returns the user configuration directory for authcore.
// Checks XDG_CONFIG_HOME first, falls back to ~/.config.
func ConfigDir() (string, error) {
	if base := os.Getenv("XDG_CONFIG_HOME"); base != "" {
		return filepath.Join(base, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", oops.Wrapf(err, "resolve home directory")
	}
	return filepath.Join(home, ".config", appName), nil
}

// ConfigDirs returns the system configuration directories for authcore in
// XDG_CONFIG_DIRS order, defaulting to /etc/xdg. Relative entries are ignored.
func ConfigDirs() []string {
	raw := os.Getenv("XDG_CONFIG_DIRS")
	if raw == "" {
		raw = "/etc/xdg"
	}
	var dirs []string
	for _, dir := range strings.Split(raw, string(os.PathListSeparator)) {
		if !filepath.IsAbs(dir) {
			continue
		}
		dirs = append(dirs, filepath.Join(dir, appName))
	}
	return dirs
}

// FindConfigFile returns the first existing config.yaml in the user
// directory, then the system directories. It returns "" when there is none.
func FindConfigFile() (string, error) {
	var candidates []string
	if dir, err := ConfigDir(); err == nil {
		candidates = append(candidates, dir)
	}
	candidates = append(candidates, ConfigDirs()...)

	for _, dir := range candidates {
		path := filepath.Join(dir, ConfigFileName)
		info, err := os.Stat(path)
		switch {
		case err == nil && !info.IsDir():
			return path, nil
		case err == nil, errors.Is(err, fs.ErrNotExist):
			continue
		default:
			return "", oops.With("path", path).Wrapf(err, "stat config file")
		}
	}
	return "", nil
}
