// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/authcore/internal/config"
)

// Claims is the identity asserted by a session token.
type Claims struct {
	SubjectID string
	Role      Role
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// jwtClaims is the wire form of Claims.
type jwtClaims struct {
	jwt.RegisteredClaims
	Role Role `json:"role"`
}

// TokenIssuer signs and verifies session tokens. It holds no mutable state
// and is safe for concurrent use.
type TokenIssuer struct {
	secret   []byte
	lifetime time.Duration
	issuer   string
	now      func() time.Time
}

// TokenIssuerOption configures a TokenIssuer.
type TokenIssuerOption func(*TokenIssuer)

// WithClock replaces the issuer's time source.
func WithClock(now func() time.Time) TokenIssuerOption {
	return func(i *TokenIssuer) {
		i.now = now
	}
}

// NewTokenIssuer creates a TokenIssuer from cfg. A missing secret or a
// non-positive lifetime is a CONFIGURATION_ERROR.
func NewTokenIssuer(cfg *config.AuthConfig, opts ...TokenIssuerOption) (*TokenIssuer, error) {
	if cfg == nil || cfg.SigningSecret == "" {
		return nil, oops.Code(CodeConfigurationError).Errorf("signing secret is required")
	}
	if cfg.TokenLifetime <= 0 {
		return nil, oops.Code(CodeConfigurationError).
			With("token_lifetime", cfg.TokenLifetime.String()).
			Errorf("token lifetime must be positive")
	}

	i := &TokenIssuer{
		secret:   []byte(cfg.SigningSecret),
		lifetime: cfg.TokenLifetime,
		issuer:   cfg.Issuer,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// Lifetime returns the configured token lifetime.
func (i *TokenIssuer) Lifetime() time.Duration {
	return i.lifetime
}

// Issue signs a token for subjectID with role, valid from now for the
// configured lifetime.
func (i *TokenIssuer) Issue(subjectID string, role Role) (string, Claims, error) {
	now := i.now()
	claims := Claims{
		SubjectID: subjectID,
		Role:      role,
		TokenID:   ulid.Make().String(),
		IssuedAt:  now.Truncate(time.Second),
		ExpiresAt: now.Add(i.lifetime).Truncate(time.Second),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.SubjectID,
			Issuer:    i.issuer,
			ID:        claims.TokenID,
			IssuedAt:  jwt.NewNumericDate(claims.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
		},
		Role: role,
	})

	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", Claims{}, oops.Code(CodeConfigurationError).
			With("operation", "sign token").
			Wrap(err)
	}
	return signed, claims, nil
}

// Verify checks the token's signature and expiry and returns its claims.
// An expired token is TOKEN_EXPIRED; anything else that fails is TOKEN_INVALID.
func (i *TokenIssuer) Verify(token string) (*Claims, error) {
	if token == "" {
		return nil, oops.Code(CodeTokenInvalid).Errorf("token is empty")
	}

	parsed, err := jwt.ParseWithClaims(token, &jwtClaims{}, func(_ *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, oops.Code(CodeTokenExpired).Wrap(err)
		}
		return nil, oops.Code(CodeTokenInvalid).Wrap(err)
	}

	wire, ok := parsed.Claims.(*jwtClaims)
	if !ok || !parsed.Valid {
		return nil, oops.Code(CodeTokenInvalid).Errorf("invalid token claims")
	}
	if wire.Subject == "" {
		return nil, oops.Code(CodeTokenInvalid).Errorf("token has no subject")
	}
	if _, err := ParseRole(string(wire.Role)); err != nil || wire.Role == "" {
		return nil, oops.Code(CodeTokenInvalid).With("role", wire.Role).Errorf("token has an invalid role")
	}

	claims := &Claims{
		SubjectID: wire.Subject,
		Role:      wire.Role,
		TokenID:   wire.ID,
		ExpiresAt: wire.ExpiresAt.Time,
	}
	if wire.IssuedAt != nil {
		claims.IssuedAt = wire.IssuedAt.Time
	}
	return claims, nil
}
