// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package config

import (
	"log/slog"
	"slices"

	"github.com/samber/oops"
	"golang.org/x/crypto/bcrypt"
)

// Validate checks that the configuration can be used to start the process.
func (c *Config) Validate() error {
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Hash.Validate(); err != nil {
		return err
	}

	switch c.Store {
	case StorePostgres:
		if c.Database.URL == "" {
			return invalid("database.url", "database url is required for the postgres store")
		}
	case StoreMemory:
	default:
		return invalid("store", "store must be %q or %q, got %q", StorePostgres, StoreMemory, c.Store)
	}

	if c.Database.Timeout <= 0 {
		return invalid("database.timeout", "database timeout must be positive")
	}
	if c.HTTP.Addr == "" {
		return invalid("http.addr", "http address is required")
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return invalid("log.format", "log format must be 'json' or 'text', got %q", c.Log.Format)
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return invalid("log.level", "unknown log level %q", c.Log.Level)
	}
	return nil
}

// Validate checks the token and cookie settings.
func (a *AuthConfig) Validate() error {
	if a.SigningSecret == "" {
		return invalid("auth.signing_secret", "signing secret is required")
	}
	if a.TokenLifetime <= 0 {
		return invalid("auth.token_lifetime", "token lifetime must be positive, got %s", a.TokenLifetime)
	}
	if !slices.Contains([]string{ModeDevelopment, ModeProduction, ModeTest}, a.DeploymentMode) {
		return invalid("auth.deployment_mode", "unknown deployment mode %q", a.DeploymentMode)
	}
	if a.Production() && len(a.SigningSecret) < MinProductionSecretLen {
		return invalid("auth.signing_secret",
			"signing secret must be at least %d bytes in production", MinProductionSecretLen)
	}
	return nil
}

// Validate checks the hash algorithm and cost.
func (h *HashConfig) Validate() error {
	switch h.Algorithm {
	case HashArgon2id:
		if h.Cost < 0 || h.Cost > 64 {
			return invalid("hash.cost", "argon2id cost must be between 1 and 64 (0 selects the default), got %d", h.Cost)
		}
	case HashBcrypt:
		if h.Cost != 0 && (h.Cost < bcrypt.MinCost || h.Cost > bcrypt.MaxCost) {
			return invalid("hash.cost", "bcrypt cost must be between %d and %d, got %d",
				bcrypt.MinCost, bcrypt.MaxCost, h.Cost)
		}
	default:
		return invalid("hash.algorithm", "hash algorithm must be %q or %q, got %q",
			HashArgon2id, HashBcrypt, h.Algorithm)
	}
	return nil
}

func invalid(key, format string, args ...any) error {
	return oops.Code(CodeConfigurationError).With("key", key).Errorf(format, args...)
}
