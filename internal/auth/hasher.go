// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/samber/oops"
	"golang.org/x/crypto/argon2"

	"github.com/holomush/authcore/internal/config"
)

// OWASP-recommended argon2id parameters.
const (
	DefaultArgon2Time = 3         // iterations
	argon2Memory      = 64 * 1024 // 64 MB
	argon2Threads     = 4         // parallelism
	argon2SaltLen     = 16        // salt length in bytes
	argon2KeyLen      = 32        // output length in bytes
)

const argon2Prefix = "$argon2id$"

// PasswordHasher provides password hashing and verification.
type PasswordHasher interface {
	// Hash produces a salted one-way hash of the password.
	Hash(password string) (string, error)

	// Verify checks if the password matches the hash.
	// Returns (true, nil) on match, (false, nil) on mismatch, or error on invalid hash.
	Verify(password, hash string) (bool, error)
}

// Argon2idHasher implements PasswordHasher using argon2id.
type Argon2idHasher struct {
	time uint32
}

// NewArgon2idHasher creates a new Argon2idHasher. A cost of zero selects
// DefaultArgon2Time iterations.
func NewArgon2idHasher(cost int) *Argon2idHasher {
	if cost <= 0 {
		cost = DefaultArgon2Time
	}
	return &Argon2idHasher{time: uint32(cost)} //nolint:gosec // G115: cost bounded by config validation
}

// Hash produces an argon2id hash of the password.
func (h *Argon2idHasher) Hash(password string) (string, error) {
	if err := checkPassword(password); err != nil {
		return "", err
	}

	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", oops.Code(CodeHashingFailure).With("reason", "salt").Wrap(err)
	}

	hash := argon2.IDKey([]byte(password), salt, h.time, argon2Memory, argon2Threads, argon2KeyLen)

	// $argon2id$v=19$m=65536,t=3,p=4$<salt>$<hash>
	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argon2Memory,
		h.time,
		argon2Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// Verify checks if the password matches the hash.
func (h *Argon2idHasher) Verify(password, encodedHash string) (bool, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return false, invalidHash("invalid hash format")
	}

	if parts[1] != "argon2id" {
		return false, invalidHash("unsupported hash algorithm: %s", parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false, oops.Code(CodeHashingFailure).With("reason", "invalid_hash").Wrap(err)
	}
	if version != argon2.Version {
		return false, invalidHash("unsupported argon2 version: %d", version)
	}

	var memory, time, threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return false, oops.Code(CodeHashingFailure).With("reason", "invalid_hash").Wrap(err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, oops.Code(CodeHashingFailure).With("reason", "invalid_hash").Wrap(err)
	}

	expectedHash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, oops.Code(CodeHashingFailure).With("reason", "invalid_hash").Wrap(err)
	}

	// threads must fit in uint8
	if threads > 255 {
		return false, invalidHash("threads value %d exceeds uint8 max", threads)
	}
	if time == 0 || memory == 0 {
		return false, invalidHash("argon2 time and memory must be positive")
	}

	keyLen := len(expectedHash)
	if keyLen <= 0 || keyLen > 1<<30 {
		return false, invalidHash("invalid hash key length: %d", keyLen)
	}

	computedHash := argon2.IDKey([]byte(password), salt, time, memory, uint8(threads), uint32(keyLen))

	return subtle.ConstantTimeCompare(computedHash, expectedHash) == 1, nil
}

// NewPasswordHasher returns the hasher selected by cfg. The result hashes
// with the configured algorithm and verifies hashes of any supported
// algorithm, so switching algorithms does not lock out existing accounts.
func NewPasswordHasher(cfg *config.HashConfig) (PasswordHasher, error) {
	argon := NewArgon2idHasher(0)
	bc := NewBcryptHasher(0)

	switch cfg.Algorithm {
	case config.HashArgon2id:
		argon = NewArgon2idHasher(cfg.Cost)
		return &dispatchHasher{primary: argon, argon2id: argon, bcrypt: bc}, nil
	case config.HashBcrypt:
		bc = NewBcryptHasher(cfg.Cost)
		return &dispatchHasher{primary: bc, argon2id: argon, bcrypt: bc}, nil
	default:
		return nil, oops.Code(CodeConfigurationError).
			With("algorithm", cfg.Algorithm).
			Errorf("unsupported hash algorithm")
	}
}

type dispatchHasher struct {
	primary  PasswordHasher
	argon2id *Argon2idHasher
	bcrypt   *BcryptHasher
}

func (d *dispatchHasher) Hash(password string) (string, error) {
	return d.primary.Hash(password)
}

func (d *dispatchHasher) Verify(password, hash string) (bool, error) {
	switch {
	case strings.HasPrefix(hash, argon2Prefix):
		return d.argon2id.Verify(password, hash)
	case isBcryptHash(hash):
		return d.bcrypt.Verify(password, hash)
	default:
		return false, invalidHash("unrecognized hash format")
	}
}

func checkPassword(password string) error {
	if password == "" {
		return oops.Code(CodeHashingFailure).With("reason", "empty").Errorf("password cannot be empty")
	}
	if !utf8.ValidString(password) {
		return oops.Code(CodeHashingFailure).With("reason", "encoding").Errorf("password is not valid UTF-8")
	}
	return nil
}

func invalidHash(format string, args ...any) error {
	return oops.Code(CodeHashingFailure).With("reason", "invalid_hash").Errorf(format, args...)
}
