// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/holomush/authcore/internal/auth"
	"github.com/holomush/authcore/internal/auth/postgres"
	"github.com/holomush/authcore/internal/config"
)

var _ = Describe("AccountRepository", func() {
	var (
		ctx  context.Context
		repo *postgres.AccountRepository
	)

	BeforeEach(func() {
		ctx = context.Background()
		truncateAccounts(ctx)
		repo = postgres.NewAccountRepository(testPool)
	})

	newAccount := func(email string) *auth.Account {
		return &auth.Account{Name: "Ann", Email: email, PasswordHash: "$argon2id$hash", Role: auth.RoleUser}
	}

	It("assigns identity and timestamps on create", func() {
		account := newAccount("ann@x.com")
		Expect(repo.Create(ctx, account)).To(Succeed())

		Expect(account.ID).To(Equal(int64(1)))
		Expect(account.CreatedAt).To(BeTemporally("~", time.Now(), time.Minute))

		stored, err := repo.GetByID(ctx, account.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(stored.Email).To(Equal("ann@x.com"))
		Expect(stored.PasswordHash).To(Equal("$argon2id$hash"))
		Expect(stored.Role).To(Equal(auth.RoleUser))
	})

	It("matches email exactly", func() {
		Expect(repo.Create(ctx, newAccount("ann@x.com"))).To(Succeed())

		_, err := repo.GetByEmail(ctx, "ANN@x.com")
		Expect(errors.Is(err, auth.ErrNotFound)).To(BeTrue())

		found, err := repo.GetByEmail(ctx, "ann@x.com")
		Expect(err).NotTo(HaveOccurred())
		Expect(found.Name).To(Equal("Ann"))
	})

	It("reports a duplicate email from the unique constraint", func() {
		Expect(repo.Create(ctx, newAccount("ann@x.com"))).To(Succeed())

		err := repo.Create(ctx, newAccount("ann@x.com"))
		Expect(errors.Is(err, auth.ErrDuplicateEmail)).To(BeTrue())
	})

	It("rejects unknown roles at the schema", func() {
		account := newAccount("ann@x.com")
		account.Role = auth.Role("owner")

		err := repo.Create(ctx, account)
		Expect(err).To(HaveOccurred())
		Expect(errors.Is(err, auth.ErrDuplicateEmail)).To(BeFalse())
	})

	It("stores exactly one account when registrations race", func() {
		dir, err := auth.NewDirectory(repo, &config.DatabaseConfig{
			Timeout:   5 * time.Second,
			RetryBase: 10 * time.Millisecond,
		})
		Expect(err).NotTo(HaveOccurred())

		const attempts = 10
		errs := make([]error, attempts)
		var wg sync.WaitGroup
		for i := range attempts {
			wg.Add(1)
			go func(i int) {
				defer GinkgoRecover()
				defer wg.Done()
				_, errs[i] = dir.Insert(ctx, "Racer", "race@x.com", "$argon2id$hash", auth.RoleUser)
			}(i)
		}
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			Expect(auth.KindOf(err)).To(Equal(auth.KindDuplicateEmail))
		}
		Expect(succeeded).To(Equal(1))

		var count int
		Expect(testPool.QueryRow(ctx, `SELECT count(*) FROM accounts WHERE email = $1`, "race@x.com").Scan(&count)).To(Succeed())
		Expect(count).To(Equal(1))
	})

	It("returns ErrNotFound for an unknown id", func() {
		_, err := repo.GetByID(ctx, 404)
		Expect(errors.Is(err, auth.ErrNotFound)).To(BeTrue())
	})
})
