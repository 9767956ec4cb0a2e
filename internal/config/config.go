// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads the process-wide configuration for authcore.
//
// Configuration is assembled once at startup from, in increasing precedence:
// built-in defaults, an optional YAML file, AUTHCORE_* environment variables,
// and explicitly changed command-line flags. The resulting *Config is passed
// by reference to the components that need it; there is no package-level state.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// CodeConfigurationError is the error code for an unusable configuration.
// It is fatal at startup and never recovered.
const CodeConfigurationError = "CONFIGURATION_ERROR"

// EnvPrefix is the prefix of environment variables read by Load.
// Nested keys are separated by a double underscore, e.g. AUTHCORE_AUTH__SIGNING_SECRET.
const EnvPrefix = "AUTHCORE_"

// Deployment modes.
const (
	ModeDevelopment = "development"
	ModeProduction  = "production"
	ModeTest        = "test"
)

// Store kinds.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Hash algorithms.
const (
	HashArgon2id = "argon2id"
	HashBcrypt   = "bcrypt"
)

// MinProductionSecretLen is the minimum signing secret length accepted in production.
const MinProductionSecretLen = 32

// Config is the complete process configuration.
type Config struct {
	HTTP     HTTPConfig     `koanf:"http"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Store    string         `koanf:"store"`
	Database DatabaseConfig `koanf:"database"`
	Auth     AuthConfig     `koanf:"auth"`
	Hash     HashConfig     `koanf:"hash"`
	Log      LogConfig      `koanf:"log"`
}

// HTTPConfig configures the public HTTP listener.
type HTTPConfig struct {
	Addr              string        `koanf:"addr"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
}

// MetricsConfig configures the observability listener. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// DatabaseConfig configures the storage collaborator.
type DatabaseConfig struct {
	URL         string        `koanf:"url"`
	Timeout     time.Duration `koanf:"timeout"`
	MaxRetries  uint64        `koanf:"max_retries"`
	RetryBase   time.Duration `koanf:"retry_base"`
	AutoMigrate bool          `koanf:"auto_migrate"`
}

// AuthConfig carries the signing secret and the session lifetime shared by
// the token issuer and the cookie policy.
type AuthConfig struct {
	SigningSecret  string        `koanf:"signing_secret"`
	TokenLifetime  time.Duration `koanf:"token_lifetime"`
	Issuer         string        `koanf:"issuer"`
	DeploymentMode string        `koanf:"deployment_mode"`
}

// Production reports whether the deployment mode is production.
func (a *AuthConfig) Production() bool {
	return a.DeploymentMode == ModeProduction
}

// HashConfig selects the password hashing algorithm and its work factor.
// A zero Cost selects the algorithm's default.
type HashConfig struct {
	Algorithm string `koanf:"algorithm"`
	Cost      int    `koanf:"cost"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// Default returns the built-in defaults. The signing secret has no default.
func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: 10 * time.Second,
			ShutdownTimeout:   15 * time.Second,
		},
		Metrics: MetricsConfig{Addr: "127.0.0.1:9100"},
		Store:   StorePostgres,
		Database: DatabaseConfig{
			Timeout:    5 * time.Second,
			MaxRetries: 2,
			RetryBase:  50 * time.Millisecond,
		},
		Auth: AuthConfig{
			TokenLifetime:  24 * time.Hour,
			Issuer:         "authcore",
			DeploymentMode: ModeDevelopment,
		},
		Hash: HashConfig{Algorithm: HashArgon2id},
		Log:  LogConfig{Format: "json", Level: "info"},
	}
}

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"http-addr":       "http.addr",
	"metrics-addr":    "metrics.addr",
	"store":           "store",
	"database-url":    "database.url",
	"auto-migrate":    "database.auto_migrate",
	"token-lifetime":  "auth.token_lifetime",
	"deployment-mode": "auth.deployment_mode",
	"hash-algorithm":  "hash.algorithm",
	"hash-cost":       "hash.cost",
	"log-format":      "log.format",
	"log-level":       "log.level",
}

// RegisterFlags adds the flags understood by Load to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("http-addr", d.HTTP.Addr, "HTTP listen address")
	fs.String("metrics-addr", d.Metrics.Addr, "metrics/health HTTP address (empty = disabled)")
	fs.String("store", d.Store, "account store (postgres or memory)")
	fs.String("database-url", "", "PostgreSQL connection URL (default: DATABASE_URL)")
	fs.Bool("auto-migrate", false, "apply pending migrations before serving")
	fs.Duration("token-lifetime", d.Auth.TokenLifetime, "session token and cookie lifetime")
	fs.String("deployment-mode", d.Auth.DeploymentMode, "deployment mode (development, production or test)")
	fs.String("hash-algorithm", d.Hash.Algorithm, "password hash algorithm (argon2id or bcrypt)")
	fs.Int("hash-cost", 0, "password hash work factor (0 = algorithm default)")
	fs.String("log-format", d.Log.Format, "log format (json or text)")
	fs.String("log-level", d.Log.Level, "minimum log level (debug, info, warn or error)")
}

// Load assembles the configuration. path may be empty, fs may be nil.
// The returned configuration has been validated.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	cfg, err := Read(path, fs)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read assembles the configuration like Load but leaves validation to the
// caller. Tools that need only part of the configuration use it.
func Read(path string, fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code(CodeConfigurationError).
				With("path", path).
				Wrapf(err, "load config file")
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, oops.Code(CodeConfigurationError).Wrapf(err, "load environment")
	}

	if fs != nil {
		if err := k.Load(posflag.ProviderWithFlag(fs, ".", k, flagKey(fs)), nil); err != nil {
			return nil, oops.Code(CodeConfigurationError).Wrapf(err, "load flags")
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, oops.Code(CodeConfigurationError).Wrapf(err, "decode configuration")
	}

	if cfg.Database.URL == "" {
		cfg.Database.URL = os.Getenv("DATABASE_URL")
	}
	return cfg, nil
}

// envKey turns AUTHCORE_AUTH__SIGNING_SECRET into auth.signing_secret.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// flagKey only forwards flags the user actually set, so defaults never
// shadow values from the file or environment.
func flagKey(fs *pflag.FlagSet) func(f *pflag.Flag) (string, interface{}) {
	return func(f *pflag.Flag) (string, interface{}) {
		key, ok := flagKeys[f.Name]
		if !ok || !f.Changed {
			return "", nil
		}
		return key, posflag.FlagVal(fs, f)
	}
}
