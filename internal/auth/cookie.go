// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"net/http"
	"time"

	"github.com/holomush/authcore/internal/config"
)

// SessionCookieName is the name of the cookie that carries a session token.
const SessionCookieName = "token"

// CookieOptions are the transport attributes of the session cookie.
// MaxAge is in seconds; zero means expire immediately.
type CookieOptions struct {
	Path     string
	MaxAge   int
	HTTPOnly bool
	Secure   bool
	SameSite http.SameSite
}

// CookiePolicy decides how a session token travels between server and client.
// Its max age is derived from the same lifetime as the token issuer, so the
// cookie and the token it carries expire together.
type CookiePolicy struct {
	lifetime time.Duration
	secure   bool
}

// NewCookiePolicy creates a CookiePolicy from cfg. Secure is set only in
// production deployments.
func NewCookiePolicy(cfg *config.AuthConfig) *CookiePolicy {
	return &CookiePolicy{
		lifetime: cfg.TokenLifetime,
		secure:   cfg.Production(),
	}
}

// AttachOptions returns the attributes used when issuing a session.
func (p *CookiePolicy) AttachOptions() CookieOptions {
	return CookieOptions{
		Path:     "/",
		MaxAge:   int(p.lifetime.Seconds()),
		HTTPOnly: true,
		Secure:   p.secure,
		SameSite: http.SameSiteStrictMode,
	}
}

// ClearOptions returns the attributes used when terminating a session:
// the same security attributes with immediate expiry.
func (p *CookiePolicy) ClearOptions() CookieOptions {
	opts := p.AttachOptions()
	opts.MaxAge = 0
	return opts
}

// Attach returns the cookie carrying token until expiresAt.
func (p *CookiePolicy) Attach(token string, expiresAt time.Time) *http.Cookie {
	opts := p.AttachOptions()
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     opts.Path,
		MaxAge:   opts.MaxAge,
		Expires:  expiresAt.UTC(),
		HttpOnly: opts.HTTPOnly,
		Secure:   opts.Secure,
		SameSite: opts.SameSite,
	}
}

// Clear returns an empty cookie that makes the client drop its session.
func (p *CookiePolicy) Clear() *http.Cookie {
	opts := p.ClearOptions()
	return &http.Cookie{
		Name:  SessionCookieName,
		Value: "",
		Path:  opts.Path,
		// net/http writes "Max-Age=0" for negative values; zero would omit the attribute.
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
		HttpOnly: opts.HTTPOnly,
		Secure:   opts.Secure,
		SameSite: opts.SameSite,
	}
}
