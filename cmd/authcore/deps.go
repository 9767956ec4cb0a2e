// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"net"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/holomush/authcore/internal/auth/postgres"
	"github.com/holomush/authcore/internal/observability"
	"github.com/holomush/authcore/internal/store"
)

// Pool is the subset of *pgxpool.Pool the serve command uses.
type Pool interface {
	postgres.Querier
	store.Pinger
	Close()
}

// Migrator wraps the methods used from store.Migrator.
type Migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (uint, bool, error)
	Force(version int) error
	Status() (*store.Status, error)
	Close() error
}

// ObservabilityServer wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
}

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// PoolOpener connects to the database.
	// Default: store.Open
	PoolOpener func(ctx context.Context, url string, timeout time.Duration) (Pool, error)

	// MigratorFactory creates a migrator for auto-migration.
	// Default: store.NewMigrator
	MigratorFactory func(url string) (Migrator, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, gatherer prometheus.Gatherer, ready observability.ReadinessChecker) ObservabilityServer

	// Listen opens the public HTTP listener.
	// Default: net.Listen
	Listen func(network, address string) (net.Listener, error)
}

func (d *ServeDeps) withDefaults() *ServeDeps {
	out := ServeDeps{}
	if d != nil {
		out = *d
	}
	if out.PoolOpener == nil {
		out.PoolOpener = openStorePool
	}
	if out.MigratorFactory == nil {
		out.MigratorFactory = newStoreMigrator
	}
	if out.ObservabilityServerFactory == nil {
		out.ObservabilityServerFactory = func(addr string, gatherer prometheus.Gatherer, ready observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, gatherer, ready)
		}
	}
	if out.Listen == nil {
		out.Listen = net.Listen
	}
	return &out
}

func openStorePool(ctx context.Context, url string, timeout time.Duration) (Pool, error) {
	pool, err := store.Open(ctx, url, timeout)
	if err != nil {
		return nil, err
	}
	return pool, nil
}

func newStoreMigrator(url string) (Migrator, error) {
	m, err := store.NewMigrator(url)
	if err != nil {
		return nil, err
	}
	return m, nil
}
