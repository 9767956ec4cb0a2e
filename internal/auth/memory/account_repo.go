// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package memory provides an in-process AccountRepository for development
// and tests. Data does not survive a restart.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/authcore/internal/auth"
)

// AccountRepository stores accounts in a map guarded by a mutex.
// Emails are unique, matched exactly.
type AccountRepository struct {
	mu      sync.RWMutex
	nextID  int64
	byID    map[int64]*auth.Account
	byEmail map[string]int64
	now     func() time.Time
}

// Compile-time interface check.
var _ auth.AccountRepository = (*AccountRepository)(nil)

// NewAccountRepository creates an empty repository.
func NewAccountRepository() *AccountRepository {
	return &AccountRepository{
		byID:    make(map[int64]*auth.Account),
		byEmail: make(map[string]int64),
		now:     time.Now,
	}
}

// Create inserts account, assigning its ID and timestamps.
func (r *AccountRepository) Create(ctx context.Context, account *auth.Account) error {
	if err := ctx.Err(); err != nil {
		return oops.With("operation", "create account").Wrap(err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byEmail[account.Email]; taken {
		return oops.With("email", account.Email).Wrap(auth.ErrDuplicateEmail)
	}

	r.nextID++
	now := r.now().UTC()
	account.ID = r.nextID
	account.CreatedAt = now
	account.UpdatedAt = now

	stored := *account
	r.byID[stored.ID] = &stored
	r.byEmail[stored.Email] = stored.ID
	return nil
}

// GetByEmail retrieves an account by exact email.
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*auth.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, oops.With("operation", "get account by email").Wrap(err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, oops.With("email", email).Wrap(auth.ErrNotFound)
	}
	found := *r.byID[id]
	return &found, nil
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*auth.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, oops.With("operation", "get account by id").Wrap(err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, ok := r.byID[id]
	if !ok {
		return nil, oops.With("account_id", id).Wrap(auth.ErrNotFound)
	}
	found := *stored
	return &found, nil
}

// Len returns the number of stored accounts.
func (r *AccountRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
