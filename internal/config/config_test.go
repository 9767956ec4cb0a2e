// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/authcore/internal/config"
	"github.com/holomush/authcore/pkg/errutil"
)

const secret = "0123456789abcdef0123456789abcdef"

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "authcore.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	config.RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("AUTHCORE_AUTH__SIGNING_SECRET", secret)
	t.Setenv("AUTHCORE_STORE", "memory")

	cfg, err := config.Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenLifetime)
	assert.Equal(t, "authcore", cfg.Auth.Issuer)
	assert.Equal(t, config.ModeDevelopment, cfg.Auth.DeploymentMode)
	assert.Equal(t, config.HashArgon2id, cfg.Hash.Algorithm)
	assert.Equal(t, 5*time.Second, cfg.Database.Timeout)
	assert.Equal(t, uint64(2), cfg.Database.MaxRetries)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_Precedence(t *testing.T) {
	path := writeConfig(t, `
store: memory
http:
  addr: ":7000"
auth:
  signing_secret: from-file
  token_lifetime: 2h
hash:
  algorithm: bcrypt
  cost: 10
log:
  format: text
`)

	t.Run("file overrides defaults", func(t *testing.T) {
		cfg, err := config.Load(path, nil)
		require.NoError(t, err)
		assert.Equal(t, ":7000", cfg.HTTP.Addr)
		assert.Equal(t, "from-file", cfg.Auth.SigningSecret)
		assert.Equal(t, 2*time.Hour, cfg.Auth.TokenLifetime)
		assert.Equal(t, config.HashBcrypt, cfg.Hash.Algorithm)
		assert.Equal(t, 10, cfg.Hash.Cost)
		assert.Equal(t, "text", cfg.Log.Format)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		t.Setenv("AUTHCORE_AUTH__TOKEN_LIFETIME", "30m")
		t.Setenv("AUTHCORE_HTTP__ADDR", ":7100")

		cfg, err := config.Load(path, nil)
		require.NoError(t, err)
		assert.Equal(t, 30*time.Minute, cfg.Auth.TokenLifetime)
		assert.Equal(t, ":7100", cfg.HTTP.Addr)
		assert.Equal(t, "from-file", cfg.Auth.SigningSecret)
	})

	t.Run("changed flags override environment", func(t *testing.T) {
		t.Setenv("AUTHCORE_HTTP__ADDR", ":7100")

		cfg, err := config.Load(path, newFlags(t, "--http-addr=:7200", "--token-lifetime=45m"))
		require.NoError(t, err)
		assert.Equal(t, ":7200", cfg.HTTP.Addr)
		assert.Equal(t, 45*time.Minute, cfg.Auth.TokenLifetime)
	})

	t.Run("unchanged flags do not shadow the file", func(t *testing.T) {
		cfg, err := config.Load(path, newFlags(t))
		require.NoError(t, err)
		assert.Equal(t, ":7000", cfg.HTTP.Addr)
		assert.Equal(t, "text", cfg.Log.Format)
	})
}

func TestLoad_DatabaseURLFallback(t *testing.T) {
	t.Setenv("AUTHCORE_AUTH__SIGNING_SECRET", secret)
	t.Setenv("DATABASE_URL", "postgres://env@db/authcore")

	cfg, err := config.Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "postgres://env@db/authcore", cfg.Database.URL)

	t.Setenv("AUTHCORE_DATABASE__URL", "postgres://explicit@db/authcore")
	cfg, err = config.Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "postgres://explicit@db/authcore", cfg.Database.URL)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"), nil)
		errutil.AssertErrorCode(t, err, config.CodeConfigurationError)
	})

	t.Run("missing secret", func(t *testing.T) {
		t.Setenv("AUTHCORE_STORE", "memory")
		_, err := config.Load("", nil)
		errutil.AssertErrorCode(t, err, config.CodeConfigurationError)
		errutil.AssertErrorContext(t, err, "key", "auth.signing_secret")
	})

	t.Run("malformed duration", func(t *testing.T) {
		t.Setenv("AUTHCORE_STORE", "memory")
		t.Setenv("AUTHCORE_AUTH__SIGNING_SECRET", secret)
		t.Setenv("AUTHCORE_AUTH__TOKEN_LIFETIME", "a while")
		_, err := config.Load("", nil)
		errutil.AssertErrorCode(t, err, config.CodeConfigurationError)
	})
}

func TestRead_SkipsValidation(t *testing.T) {
	t.Setenv("AUTHCORE_AUTH__SIGNING_SECRET", "")
	t.Setenv("DATABASE_URL", "postgres://env@db/authcore")

	cfg, err := config.Read("", newFlags(t, "--hash-algorithm=bcrypt"))
	require.NoError(t, err)
	assert.Empty(t, cfg.Auth.SigningSecret)
	assert.Equal(t, config.HashBcrypt, cfg.Hash.Algorithm)
	assert.Equal(t, "postgres://env@db/authcore", cfg.Database.URL)

	_, err = config.Load("", nil)
	errutil.AssertErrorContext(t, err, "key", "auth.signing_secret")
}

func validConfig() *config.Config {
	cfg := config.Default()
	cfg.Store = config.StoreMemory
	cfg.Auth.SigningSecret = secret
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		key    string
	}{
		{"empty secret", func(c *config.Config) { c.Auth.SigningSecret = "" }, "auth.signing_secret"},
		{"short production secret", func(c *config.Config) {
			c.Auth.DeploymentMode = config.ModeProduction
			c.Auth.SigningSecret = "short"
		}, "auth.signing_secret"},
		{"zero lifetime", func(c *config.Config) { c.Auth.TokenLifetime = 0 }, "auth.token_lifetime"},
		{"unknown mode", func(c *config.Config) { c.Auth.DeploymentMode = "staging" }, "auth.deployment_mode"},
		{"unknown store", func(c *config.Config) { c.Store = "redis" }, "store"},
		{"postgres without url", func(c *config.Config) { c.Store = config.StorePostgres }, "database.url"},
		{"zero timeout", func(c *config.Config) { c.Database.Timeout = 0 }, "database.timeout"},
		{"empty http addr", func(c *config.Config) { c.HTTP.Addr = "" }, "http.addr"},
		{"unknown log format", func(c *config.Config) { c.Log.Format = "xml" }, "log.format"},
		{"unknown log level", func(c *config.Config) { c.Log.Level = "loud" }, "log.level"},
		{"unknown hash algorithm", func(c *config.Config) { c.Hash.Algorithm = "md5" }, "hash.algorithm"},
		{"bcrypt cost too low", func(c *config.Config) {
			c.Hash.Algorithm = config.HashBcrypt
			c.Hash.Cost = 3
		}, "hash.cost"},
		{"argon2id cost too high", func(c *config.Config) { c.Hash.Cost = 65 }, "hash.cost"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			errutil.AssertErrorCode(t, err, config.CodeConfigurationError)
			errutil.AssertErrorContext(t, err, "key", tt.key)
		})
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, validConfig().Validate())
	})

	t.Run("production with long secret", func(t *testing.T) {
		cfg := validConfig()
		cfg.Auth.DeploymentMode = config.ModeProduction
		assert.NoError(t, cfg.Validate())
		assert.True(t, cfg.Auth.Production())
	})
}
