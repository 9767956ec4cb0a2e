// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"errors"

	"github.com/samber/oops"

	"github.com/holomush/authcore/internal/config"
)

// ErrNotFound is returned by repositories when a requested account does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateEmail is returned by repositories when an insert violates the
// unique email constraint.
var ErrDuplicateEmail = errors.New("email already registered")

// Error codes.
const (
	CodeDuplicateEmail     = "DUPLICATE_EMAIL"
	CodeUserNotFound       = "USER_NOT_FOUND"
	CodeInvalidPassword    = "INVALID_PASSWORD"
	CodeHashingFailure     = "HASHING_FAILURE"
	CodeTokenExpired       = "TOKEN_EXPIRED"
	CodeTokenInvalid       = "TOKEN_INVALID"
	CodeConfigurationError = config.CodeConfigurationError
	CodeStorageUnavailable = "STORAGE_UNAVAILABLE"
	CodeInvalidInput       = "INVALID_INPUT"

	// CodeInvalidCredentials is the public code for both USER_NOT_FOUND and
	// INVALID_PASSWORD.
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	// CodeInternal is the public code for failures outside the taxonomy.
	CodeInternal = "INTERNAL"
)

// Kind classifies a failure.
type Kind int

// Failure kinds.
const (
	KindUnknown Kind = iota
	KindDuplicateEmail
	KindUserNotFound
	KindInvalidPassword
	KindHashingFailure
	KindTokenExpired
	KindTokenInvalid
	KindConfigurationError
	KindStorageUnavailable
	KindInvalidInput
)

var kindByCode = map[string]Kind{
	CodeDuplicateEmail:     KindDuplicateEmail,
	CodeUserNotFound:       KindUserNotFound,
	CodeInvalidPassword:    KindInvalidPassword,
	CodeHashingFailure:     KindHashingFailure,
	CodeTokenExpired:       KindTokenExpired,
	CodeTokenInvalid:       KindTokenInvalid,
	CodeConfigurationError: KindConfigurationError,
	CodeStorageUnavailable: KindStorageUnavailable,
	CodeInvalidInput:       KindInvalidInput,
}

var kindCodes = [...]string{
	KindUnknown:            "UNKNOWN",
	KindDuplicateEmail:     CodeDuplicateEmail,
	KindUserNotFound:       CodeUserNotFound,
	KindInvalidPassword:    CodeInvalidPassword,
	KindHashingFailure:     CodeHashingFailure,
	KindTokenExpired:       CodeTokenExpired,
	KindTokenInvalid:       CodeTokenInvalid,
	KindConfigurationError: CodeConfigurationError,
	KindStorageUnavailable: CodeStorageUnavailable,
	KindInvalidInput:       CodeInvalidInput,
}

// String returns the error code for k.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindCodes) {
		return kindCodes[KindUnknown]
	}
	return kindCodes[k]
}

// Retryable reports whether an operation that failed with k may be retried
// by the caller.
func (k Kind) Retryable() bool {
	return k == KindStorageUnavailable
}

// Code returns the oops code carried by err, or "" if there is none.
func Code(err error) string {
	if err == nil {
		return ""
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	code, _ := oopsErr.Code().(string)
	return code
}

// KindOf classifies err. A nil error is KindUnknown.
func KindOf(err error) Kind {
	return kindByCode[Code(err)]
}

// Failure is the caller-visible rendering of an error: a stable identifier
// and a human-readable message, with no internal detail.
type Failure struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var publicMessages = map[Kind]Failure{
	KindDuplicateEmail:     {CodeDuplicateEmail, "an account with this email already exists"},
	KindUserNotFound:       {CodeInvalidCredentials, "invalid email or password"},
	KindInvalidPassword:    {CodeInvalidCredentials, "invalid email or password"},
	KindHashingFailure:     {CodeHashingFailure, "the password could not be processed"},
	KindTokenExpired:       {CodeTokenExpired, "the session has expired, please sign in again"},
	KindTokenInvalid:       {CodeTokenInvalid, "the session token is invalid"},
	KindConfigurationError: {CodeInternal, "the service is misconfigured"},
	KindStorageUnavailable: {CodeStorageUnavailable, "the account store is temporarily unavailable"},
	KindInvalidInput:       {CodeInvalidInput, "the request is invalid"},
}

// PublicFailure renders err for a caller outside the trust boundary.
// USER_NOT_FOUND and INVALID_PASSWORD are indistinguishable in the result.
func PublicFailure(err error) Failure {
	if f, ok := publicMessages[KindOf(err)]; ok {
		return f
	}
	return Failure{Code: CodeInternal, Message: "internal error"}
}
