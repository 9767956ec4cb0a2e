// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"strings"
	"time"

	"github.com/samber/oops"
)

// Role is an account's authorization tier.
type Role string

// Roles.
const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole returns the role named by s. An empty s is RoleUser.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case "", RoleUser:
		return RoleUser, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", oops.Code(CodeInvalidInput).
			With("role", s).
			Errorf("role must be %q or %q", RoleUser, RoleAdmin)
	}
}

// Account is a registered identity. PasswordHash never leaves the package
// boundary: use Sanitize before handing an account to a caller.
type Account struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SanitizedAccount is the outward-facing projection of an Account.
type SanitizedAccount struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewAccount creates a validated, not yet persisted Account. The store
// assigns ID and timestamps on insert.
func NewAccount(name, email, passwordHash string, role Role) (*Account, error) {
	if strings.TrimSpace(name) == "" {
		return nil, oops.Code(CodeInvalidInput).Errorf("name cannot be empty")
	}
	if strings.TrimSpace(email) == "" {
		return nil, oops.Code(CodeInvalidInput).Errorf("email cannot be empty")
	}
	if passwordHash == "" {
		return nil, oops.Code(CodeInvalidInput).Errorf("password hash cannot be empty")
	}
	if _, err := ParseRole(string(role)); err != nil {
		return nil, err
	}
	if role == "" {
		role = RoleUser
	}
	return &Account{
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
	}, nil
}

// Sanitize returns the projection of a without its password hash.
func (a *Account) Sanitize() SanitizedAccount {
	return SanitizedAccount{
		ID:        a.ID,
		Name:      a.Name,
		Email:     a.Email,
		Role:      a.Role,
		CreatedAt: a.CreatedAt,
	}
}

// AccountRepository is the storage collaborator for accounts.
type AccountRepository interface {
	// Create inserts account and fills in ID, CreatedAt and UpdatedAt.
	// Returns an error wrapping ErrDuplicateEmail if the email is taken.
	Create(ctx context.Context, account *Account) error

	// GetByEmail retrieves an account by exact email.
	// Returns an error wrapping ErrNotFound if there is none.
	GetByEmail(ctx context.Context, email string) (*Account, error)

	// GetByID retrieves an account by ID.
	// Returns an error wrapping ErrNotFound if there is none.
	GetByID(ctx context.Context, id int64) (*Account, error)
}
