// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"errors"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is the bcrypt cost used when none is configured.
const DefaultBcryptCost = 12

// BcryptHasher implements PasswordHasher using bcrypt.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher creates a BcryptHasher. A cost of zero selects DefaultBcryptCost.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost == 0 {
		cost = DefaultBcryptCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash produces a bcrypt hash of the password. Passwords longer than 72
// bytes are rejected rather than silently truncated.
func (h *BcryptHasher) Hash(password string) (string, error) {
	if err := checkPassword(password); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		reason := "bcrypt"
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			reason = "too_long"
		}
		return "", oops.Code(CodeHashingFailure).With("reason", reason).Wrap(err)
	}
	return string(hash), nil
}

// Verify checks if the password matches the bcrypt hash.
func (h *BcryptHasher) Verify(password, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, oops.Code(CodeHashingFailure).With("reason", "invalid_hash").Wrap(err)
	}
}

func isBcryptHash(hash string) bool {
	for _, prefix := range []string{"$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(hash, prefix) {
			return true
		}
	}
	return false
}
