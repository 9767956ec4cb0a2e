// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package postgres implements auth.AccountRepository on PostgreSQL.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/holomush/authcore/internal/auth"
)

// emailConstraint is the unique constraint on accounts.email.
const emailConstraint = "accounts_email_key"

// Querier is the subset of *pgxpool.Pool the repository uses.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// AccountRepository implements auth.AccountRepository using PostgreSQL.
// Errors carry context but no code; the account directory classifies them.
type AccountRepository struct {
	db Querier
}

// Compile-time interface check.
var _ auth.AccountRepository = (*AccountRepository)(nil)

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(db Querier) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create inserts account and fills in the store-assigned ID and timestamps.
func (r *AccountRepository) Create(ctx context.Context, account *auth.Account) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO accounts (name, email, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`,
		account.Name,
		account.Email,
		account.PasswordHash,
		string(account.Role),
	).Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		if isEmailConflict(err) {
			return oops.With("email", account.Email).Wrap(auth.ErrDuplicateEmail)
		}
		return oops.With("operation", "insert account").With("email", account.Email).Wrap(err)
	}
	return nil
}

// GetByEmail retrieves an account by exact email.
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*auth.Account, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, name, email, password_hash, role, created_at, updated_at
		FROM accounts
		WHERE email = $1
	`, email)

	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.With("email", email).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.With("operation", "get account by email").With("email", email).Wrap(err)
	}
	return account, nil
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*auth.Account, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, name, email, password_hash, role, created_at, updated_at
		FROM accounts
		WHERE id = $1
	`, id)

	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.With("account_id", id).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.With("operation", "get account by id").With("account_id", id).Wrap(err)
	}
	return account, nil
}

func scanAccount(row pgx.Row) (*auth.Account, error) {
	var (
		account auth.Account
		role    string
	)
	if err := row.Scan(
		&account.ID,
		&account.Name,
		&account.Email,
		&account.PasswordHash,
		&role,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		return nil, err
	}
	account.Role = auth.Role(role)
	return &account, nil
}

// isEmailConflict reports whether err is a unique violation on the email
// constraint. A violation without a constraint name is treated as one,
// since email is the only unique column besides the identity key.
func isEmailConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgerrcode.UniqueViolation {
		return false
	}
	return pgErr.ConstraintName == "" || pgErr.ConstraintName == emailConstraint
}
