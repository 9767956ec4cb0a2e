// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/holomush/authcore/internal/config"
)

// Directory is the authoritative set of account operations over an
// AccountRepository. Every store call runs under a bounded timeout; failures
// that are neither "not found" nor a duplicate email surface as
// STORAGE_UNAVAILABLE.
type Directory struct {
	repo       AccountRepository
	timeout    time.Duration
	maxRetries uint64
	retryBase  time.Duration
}

// NewDirectory creates a Directory over repo using the timeout and retry
// settings in cfg.
func NewDirectory(repo AccountRepository, cfg *config.DatabaseConfig) (*Directory, error) {
	if repo == nil {
		return nil, oops.Code(CodeConfigurationError).Errorf("account repository is required")
	}
	d := &Directory{
		repo:       repo,
		timeout:    cfg.Timeout,
		maxRetries: cfg.MaxRetries,
		retryBase:  cfg.RetryBase,
	}
	if d.timeout <= 0 {
		d.timeout = config.Default().Database.Timeout
	}
	if d.retryBase <= 0 {
		d.retryBase = config.Default().Database.RetryBase
	}
	return d, nil
}

// FindByEmail looks up the account registered under email. A missing account
// is (nil, false, nil).
func (d *Directory) FindByEmail(ctx context.Context, email string) (*Account, bool, error) {
	return d.find(ctx, "find by email", func(ctx context.Context) (*Account, error) {
		return d.repo.GetByEmail(ctx, email)
	})
}

// FindByID looks up an account by its store-assigned ID.
func (d *Directory) FindByID(ctx context.Context, id int64) (*Account, bool, error) {
	return d.find(ctx, "find by id", func(ctx context.Context) (*Account, error) {
		return d.repo.GetByID(ctx, id)
	})
}

// FindBySubject looks up the account named by a token subject.
func (d *Directory) FindBySubject(ctx context.Context, subject string) (*Account, bool, error) {
	id, err := strconv.ParseInt(subject, 10, 64)
	if err != nil {
		return nil, false, nil
	}
	return d.FindByID(ctx, id)
}

// Insert persists a new account. The store's unique constraint is the source
// of truth for email uniqueness: a violation is DUPLICATE_EMAIL regardless of
// any earlier lookup. Inserts are not retried.
func (d *Directory) Insert(ctx context.Context, name, email, passwordHash string, role Role) (*Account, error) {
	account, err := NewAccount(name, email, passwordHash, role)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := d.repo.Create(callCtx, account); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return nil, oops.Code(CodeDuplicateEmail).
				With("operation", "insert account").
				Wrap(err)
		}
		return nil, unavailable("insert account", err)
	}
	return account, nil
}

func (d *Directory) find(ctx context.Context, operation string, get func(context.Context) (*Account, error)) (*Account, bool, error) {
	var account *Account
	backoff := retry.WithMaxRetries(d.maxRetries, retry.WithJitterPercent(20, retry.NewExponential(d.retryBase)))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, d.timeout)
		defer cancel()

		found, err := get(callCtx)
		if err == nil {
			account = found
			return nil
		}
		if errors.Is(err, ErrNotFound) || ctx.Err() != nil {
			return err
		}
		return retry.RetryableError(err)
	})
	if err == nil {
		return account, true, nil
	}
	if errors.Is(err, ErrNotFound) {
		return nil, false, nil
	}
	return nil, false, unavailable(operation, err)
}

func unavailable(operation string, err error) error {
	return oops.Code(CodeStorageUnavailable).
		With("operation", operation).
		With("timeout", errors.Is(err, context.DeadlineExceeded)).
		Wrap(err)
}
