// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package store opens the PostgreSQL pool and manages the account schema.
package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"

	"github.com/holomush/authcore/internal/auth"
)

// CodeConnectFailed is returned when the pool cannot be created or the
// database does not answer the initial ping.
const CodeConnectFailed = "DATABASE_CONNECT_FAILED"

// Open creates a pgx pool for databaseURL and verifies connectivity within
// timeout.
func Open(ctx context.Context, databaseURL string, timeout time.Duration) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, oops.Code(CodeConnectFailed).With("operation", "parse database url").Wrap(err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, oops.Code(CodeConnectFailed).With("operation", "create pool").Wrap(err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, oops.Code(CodeConnectFailed).
			With("operation", "ping database").
			With("host", poolCfg.ConnConfig.Host).
			Wrap(err)
	}
	return pool, nil
}

// Pinger reports whether a database answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadinessCheck returns a check that pings p within timeout. A failed ping
// is STORAGE_UNAVAILABLE.
func ReadinessCheck(p Pinger, timeout time.Duration) func(context.Context) error {
	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			return oops.Code(auth.CodeStorageUnavailable).With("operation", "readiness ping").Wrap(err)
		}
		return nil
	}
}
