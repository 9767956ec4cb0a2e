// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package errutil

import (
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
)

// AssertErrorCode asserts that err carries the given oops code anywhere in
// its chain.
func AssertErrorCode(t testing.TB, err error, code string) bool {
	t.Helper()
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return assert.Fail(t, "expected an oops error", "got %T: %v", err, err)
	}
	return assert.Equal(t, code, oopsErr.Code(), "error: %v", err)
}

// AssertErrorContext asserts that err carries key with value in its oops context.
func AssertErrorContext(t testing.TB, err error, key string, value any) bool {
	t.Helper()
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return assert.Fail(t, "expected an oops error", "got %T: %v", err, err)
	}
	ctx := oopsErr.Context()
	if !assert.Contains(t, ctx, key) {
		return false
	}
	return assert.Equal(t, value, ctx[key], "context key %q", key)
}

// AssertPublicMessage asserts that the client-safe message of err contains want.
func AssertPublicMessage(t testing.TB, err error, want string) bool {
	t.Helper()
	public := oops.GetPublic(err, "")
	if public == "" {
		return assert.Fail(t, "expected a public message", "error: %v", err)
	}
	return assert.Contains(t, public, want)
}
