// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/holomush/authcore/internal/auth"
	"github.com/holomush/authcore/internal/auth/mocks"
	"github.com/holomush/authcore/internal/config"
	"github.com/holomush/authcore/pkg/errutil"
)

func testDatabaseConfig() *config.DatabaseConfig {
	return &config.DatabaseConfig{
		Timeout:    200 * time.Millisecond,
		MaxRetries: 2,
		RetryBase:  time.Millisecond,
	}
}

func newTestDirectory(t *testing.T, repo auth.AccountRepository) *auth.Directory {
	t.Helper()
	dir, err := auth.NewDirectory(repo, testDatabaseConfig())
	require.NoError(t, err)
	return dir
}

func TestNewDirectory(t *testing.T) {
	_, err := auth.NewDirectory(nil, testDatabaseConfig())
	errutil.AssertErrorCode(t, err, auth.CodeConfigurationError)
}

func TestDirectoryFindByEmail(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		repo := mocks.NewMockAccountRepository(t)
		account := &auth.Account{ID: 1, Email: "ana@x.io"}
		repo.On("GetByEmail", mock.Anything, "ana@x.io").Return(account, nil).Once()

		got, found, err := newTestDirectory(t, repo).FindByEmail(ctx, "ana@x.io")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Same(t, account, got)
	})

	t.Run("not found is not an error", func(t *testing.T) {
		repo := mocks.NewMockAccountRepository(t)
		repo.On("GetByEmail", mock.Anything, "ghost@x.io").
			Return(nil, oops.With("email", "ghost@x.io").Wrap(auth.ErrNotFound)).Once()

		got, found, err := newTestDirectory(t, repo).FindByEmail(ctx, "ghost@x.io")
		require.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, got)
	})

	t.Run("transient failure is retried", func(t *testing.T) {
		repo := mocks.NewMockAccountRepository(t)
		account := &auth.Account{ID: 1, Email: "ana@x.io"}
		repo.On("GetByEmail", mock.Anything, "ana@x.io").Return(nil, errors.New("connection reset")).Once()
		repo.On("GetByEmail", mock.Anything, "ana@x.io").Return(account, nil).Once()

		got, found, err := newTestDirectory(t, repo).FindByEmail(ctx, "ana@x.io")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Same(t, account, got)
	})

	t.Run("persistent failure is STORAGE_UNAVAILABLE after retries", func(t *testing.T) {
		repo := mocks.NewMockAccountRepository(t)
		repo.On("GetByEmail", mock.Anything, "ana@x.io").Return(nil, errors.New("connection refused")).Times(3)

		_, found, err := newTestDirectory(t, repo).FindByEmail(ctx, "ana@x.io")
		assert.False(t, found)
		errutil.AssertErrorCode(t, err, auth.CodeStorageUnavailable)
		errutil.AssertErrorContext(t, err, "operation", "find by email")
		assert.True(t, auth.KindOf(err).Retryable())
	})

	t.Run("slow store times out", func(t *testing.T) {
		repo := mocks.NewMockAccountRepository(t)
		repo.On("GetByEmail", mock.Anything, "ana@x.io").
			Return(func(ctx context.Context, _ string) (*auth.Account, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			})

		dir, err := auth.NewDirectory(repo, &config.DatabaseConfig{
			Timeout:   20 * time.Millisecond,
			RetryBase: time.Millisecond,
		})
		require.NoError(t, err)

		_, _, err = dir.FindByEmail(ctx, "ana@x.io")
		errutil.AssertErrorCode(t, err, auth.CodeStorageUnavailable)
		errutil.AssertErrorContext(t, err, "timeout", true)
	})

	t.Run("cancelled caller is not retried", func(t *testing.T) {
		repo := mocks.NewMockAccountRepository(t)
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		repo.On("GetByEmail", mock.Anything, "ana@x.io").Return(nil, context.Canceled).Maybe()

		_, _, err := newTestDirectory(t, repo).FindByEmail(cancelled, "ana@x.io")
		errutil.AssertErrorCode(t, err, auth.CodeStorageUnavailable)
		assert.LessOrEqual(t, len(repo.Calls), 1)
	})
}

func TestDirectoryFindBySubject(t *testing.T) {
	ctx := context.Background()

	t.Run("numeric subject", func(t *testing.T) {
		repo := mocks.NewMockAccountRepository(t)
		repo.On("GetByID", mock.Anything, int64(42)).Return(&auth.Account{ID: 42}, nil).Once()

		got, found, err := newTestDirectory(t, repo).FindBySubject(ctx, "42")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, int64(42), got.ID)
	})

	t.Run("non-numeric subject is not found", func(t *testing.T) {
		repo := mocks.NewMockAccountRepository(t)

		_, found, err := newTestDirectory(t, repo).FindBySubject(ctx, "abc")
		require.NoError(t, err)
		assert.False(t, found)
	})
}

func TestDirectoryInsert(t *testing.T) {
	ctx := context.Background()

	t.Run("persists and returns the account", func(t *testing.T) {
		repo := mocks.NewMockAccountRepository(t)
		repo.On("Create", mock.Anything, mock.AnythingOfType("*auth.Account")).
			Run(func(args mock.Arguments) {
				args.Get(1).(*auth.Account).ID = 9
			}).
			Return(nil).Once()

		account, err := newTestDirectory(t, repo).Insert(ctx, "Ana", "ana@x.io", "hash", auth.RoleUser)
		require.NoError(t, err)
		assert.Equal(t, int64(9), account.ID)
		assert.Equal(t, "hash", account.PasswordHash)
	})

	t.Run("unique violation is DUPLICATE_EMAIL", func(t *testing.T) {
		repo := mocks.NewMockAccountRepository(t)
		repo.On("Create", mock.Anything, mock.Anything).
			Return(oops.With("email", "ana@x.io").Wrap(auth.ErrDuplicateEmail)).Once()

		_, err := newTestDirectory(t, repo).Insert(ctx, "Ana", "ana@x.io", "hash", auth.RoleUser)
		errutil.AssertErrorCode(t, err, auth.CodeDuplicateEmail)
	})

	t.Run("other failures are STORAGE_UNAVAILABLE and not retried", func(t *testing.T) {
		repo := mocks.NewMockAccountRepository(t)
		repo.On("Create", mock.Anything, mock.Anything).Return(errors.New("connection reset")).Once()

		_, err := newTestDirectory(t, repo).Insert(ctx, "Ana", "ana@x.io", "hash", auth.RoleUser)
		errutil.AssertErrorCode(t, err, auth.CodeStorageUnavailable)
		errutil.AssertErrorContext(t, err, "operation", "insert account")
	})

	t.Run("invalid account never reaches the store", func(t *testing.T) {
		repo := mocks.NewMockAccountRepository(t)

		_, err := newTestDirectory(t, repo).Insert(ctx, "", "ana@x.io", "hash", auth.RoleUser)
		errutil.AssertErrorCode(t, err, auth.CodeInvalidInput)
	})
}
