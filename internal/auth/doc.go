// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package auth implements credential issuance and session authentication.
//
// # Components
//
//   - PasswordHasher - one-way password hashing (argon2id, bcrypt)
//   - TokenIssuer - signed, time-bounded session tokens (HS256 JWT)
//   - CookiePolicy - attributes of the "token" cookie that carries a session
//   - Directory - account lookups and inserts over an AccountRepository
//   - Service - registration, sign-in and sign-out
//
// Sessions are stateless: a token is valid while its signature checks out and
// it has not expired. Nothing is stored server-side, so signing out only
// clears the client's cookie.
//
// # Errors
//
// Every failure carries an oops code from the taxonomy in errors.go. Use
// KindOf to branch on a failure and PublicFailure to render it for a caller
// outside the trust boundary.
package auth
