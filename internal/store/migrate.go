// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package store

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	// Register pgx/v5 database driver for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/samber/oops"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migration error codes.
const (
	CodeMigrationInit    = "MIGRATION_INIT_FAILED"
	CodeMigrationUp      = "MIGRATION_UP_FAILED"
	CodeMigrationDown    = "MIGRATION_DOWN_FAILED"
	CodeMigrationSteps   = "MIGRATION_STEPS_FAILED"
	CodeMigrationVersion = "MIGRATION_VERSION_FAILED"
	CodeMigrationForce   = "MIGRATION_FORCE_FAILED"
	CodeMigrationClose   = "MIGRATION_CLOSE_FAILED"
	CodeMigrationList    = "MIGRATION_LIST_FAILED"
	CodeInvalidVersion   = "INVALID_VERSION"
)

// migrateIface is the subset of *migrate.Migrate the Migrator drives.
type migrateIface interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (version uint, dirty bool, err error)
	Force(version int) error
	Close() (source error, database error)
}

// Migration is one embedded schema migration.
type Migration struct {
	Version uint
	Name    string
}

// Status describes the schema state of a database.
type Status struct {
	Version uint
	Dirty   bool
	Applied []Migration
	Pending []Migration
}

// Migrator applies the embedded account schema migrations.
type Migrator struct {
	m migrateIface
}

// NewMigrator creates a Migrator for databaseURL. postgres:// and
// postgresql:// URLs are rewritten to the pgx5:// scheme golang-migrate
// registers for pgx/v5.
func NewMigrator(databaseURL string) (*Migrator, error) {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, oops.Code(CodeMigrationInit).With("operation", "open embedded migrations").Wrap(err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, migrateURL(databaseURL))
	if err != nil {
		_ = source.Close() //nolint:errcheck // init error takes precedence
		return nil, oops.Code(CodeMigrationInit).With("operation", "connect migrator").Wrap(err)
	}
	return &Migrator{m: m}, nil
}

func migrateURL(databaseURL string) string {
	for _, scheme := range []string{"postgres://", "postgresql://"} {
		if rest, ok := strings.CutPrefix(databaseURL, scheme); ok {
			return "pgx5://" + rest
		}
	}
	return databaseURL
}

// Up applies every pending migration. Nothing to apply is not an error.
func (m *Migrator) Up() error {
	if err := m.m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return oops.Code(CodeMigrationUp).Wrap(err)
	}
	return nil
}

// Down reverts every applied migration, dropping the accounts table.
func (m *Migrator) Down() error {
	if err := m.m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return oops.Code(CodeMigrationDown).Wrap(err)
	}
	return nil
}

// Steps applies n migrations up when positive, or reverts -n when negative.
func (m *Migrator) Steps(n int) error {
	if err := m.m.Steps(n); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return oops.Code(CodeMigrationSteps).With("steps", n).Wrap(err)
	}
	return nil
}

// Version returns the applied schema version. An empty database is version 0.
func (m *Migrator) Version() (uint, bool, error) {
	version, dirty, err := m.m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		return 0, false, nil
	case err != nil:
		return 0, false, oops.Code(CodeMigrationVersion).Wrap(err)
	}
	return version, dirty, nil
}

// Force records version as applied and clears the dirty flag without
// running any migration.
func (m *Migrator) Force(version int) error {
	if version < 0 {
		return oops.Code(CodeInvalidVersion).Errorf("version must be non-negative, got %d", version)
	}
	if err := m.m.Force(version); err != nil {
		return oops.Code(CodeMigrationForce).With("version", version).Wrap(err)
	}
	return nil
}

// Status reports the current version and which embedded migrations are
// applied or pending.
func (m *Migrator) Status() (*Status, error) {
	version, dirty, err := m.Version()
	if err != nil {
		return nil, err
	}
	all, err := Migrations()
	if err != nil {
		return nil, err
	}

	status := &Status{Version: version, Dirty: dirty}
	for _, migration := range all {
		if migration.Version <= version {
			status.Applied = append(status.Applied, migration)
		} else {
			status.Pending = append(status.Pending, migration)
		}
	}
	return status, nil
}

// Close releases the source and database handles.
func (m *Migrator) Close() error {
	srcErr, dbErr := m.m.Close()
	switch {
	case srcErr != nil && dbErr != nil:
		return oops.Code(CodeMigrationClose).
			With("component", "both").
			Errorf("source: %v; database: %v", srcErr, dbErr)
	case srcErr != nil:
		return oops.Code(CodeMigrationClose).With("component", "source").Wrap(srcErr)
	case dbErr != nil:
		return oops.Code(CodeMigrationClose).With("component", "database").Wrap(dbErr)
	}
	return nil
}

// Migrations lists the embedded migrations in ascending version order.
func Migrations() ([]Migration, error) {
	return listMigrations(migrationsFS, "migrations")
}

func listMigrations(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, oops.Code(CodeMigrationList).With("dir", dir).Wrap(err)
	}

	var migrations []Migration
	for _, entry := range entries {
		name, ok := strings.CutSuffix(entry.Name(), ".up.sql")
		if !ok {
			continue
		}
		var version uint
		if _, err := fmt.Sscanf(name, "%06d_", &version); err != nil {
			return nil, oops.Code(CodeMigrationList).
				With("file", entry.Name()).
				Errorf("migration file name must match NNNNNN_name.up.sql")
		}
		migrations = append(migrations, Migration{Version: version, Name: name})
	}
	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Version < migrations[j].Version })
	return migrations, nil
}
