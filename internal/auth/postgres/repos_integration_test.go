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

	"github.com/holomush/authsvc/internal/auth"
	"github.com/holomush/authsvc/internal/auth/postgres"
	"github.com/holomush/authsvc/pkg/errutil"
)

var _ = Describe("UserRepository", func() {
	var users *postgres.UserRepository

	BeforeEach(func() {
		truncate()
		users = postgres.NewUserRepository(testPool)
	})

	It("round-trips a user and looks it up case-insensitively", func() {
		u, err := auth.NewUser("ann@example.com", "Ann Example", "hash")
		Expect(err).NotTo(HaveOccurred())
		Expect(users.Create(suiteCtx, u)).To(Succeed())
		Expect(u.ID).To(BeNumerically(">", 0))

		got, err := users.GetByEmail(suiteCtx, "ANN@example.com")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.ID).To(Equal(u.ID))
		Expect(got.PasswordHash).To(Equal("hash"))

		byID, err := users.GetByID(suiteCtx, u.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(byID.Email).To(Equal("ann@example.com"))
	})

	It("stores federated accounts without a password", func() {
		u, err := auth.NewUser("fed@example.com", "Fed", "")
		Expect(err).NotTo(HaveOccurred())
		Expect(users.Create(suiteCtx, u)).To(Succeed())

		got, err := users.GetByEmail(suiteCtx, "fed@example.com")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.HasPassword()).To(BeFalse())
	})

	It("rejects a duplicate email and leaves the original untouched", func() {
		first, _ := auth.NewUser("dup@example.com", "First", "hash-1")
		Expect(users.Create(suiteCtx, first)).To(Succeed())

		second, _ := auth.NewUser("dup@example.com", "Second", "hash-2")
		second.Email = "DUP@example.com"
		err := users.Create(suiteCtx, second)
		Expect(errutil.Code(err)).To(Equal(auth.CodeDuplicateEmail))

		got, err := users.GetByEmail(suiteCtx, "dup@example.com")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.FullName).To(Equal("First"))
		Expect(got.PasswordHash).To(Equal("hash-1"))
	})

	It("reports missing users", func() {
		_, err := users.GetByID(suiteCtx, 12345)
		Expect(errors.Is(err, auth.ErrNotFound)).To(BeTrue())
		Expect(errors.Is(users.UpdatePassword(suiteCtx, 12345, "x"), auth.ErrNotFound)).To(BeTrue())
	})
})

var _ = Describe("PasswordResetRepository", func() {
	var (
		users  *postgres.UserRepository
		resets *postgres.PasswordResetRepository
		user   *auth.User
		now    time.Time
	)

	BeforeEach(func() {
		truncate()
		users = postgres.NewUserRepository(testPool)
		resets = postgres.NewPasswordResetRepository(testPool)
		user, _ = auth.NewUser("reset@example.com", "Reset", "hash")
		Expect(users.Create(suiteCtx, user)).To(Succeed())
		now = time.Now().UTC().Truncate(time.Microsecond)
	})

	create := func(hash string, expiresAt time.Time) {
		r, err := auth.NewPasswordReset(user.ID, hash, expiresAt)
		Expect(err).NotTo(HaveOccurred())
		Expect(resets.Create(suiteCtx, r)).To(Succeed())
	}

	It("consumes a token exactly once", func() {
		create("hash-a", now.Add(time.Hour))

		got, err := resets.Consume(suiteCtx, "hash-a", now)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.UserID).To(Equal(user.ID))

		_, err = resets.Consume(suiteCtx, "hash-a", now)
		Expect(errors.Is(err, auth.ErrNotFound)).To(BeTrue())
	})

	It("lets only one of many concurrent consumers win", func() {
		create("hash-race", now.Add(time.Hour))

		var wg sync.WaitGroup
		var mu sync.Mutex
		wins := 0
		for range 8 {
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				if _, err := resets.Consume(suiteCtx, "hash-race", now); err == nil {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		Expect(wins).To(Equal(1))
	})

	It("does not consume expired tokens and purges them", func() {
		create("hash-old", now.Add(-time.Minute))
		create("hash-new", now.Add(time.Hour))

		_, err := resets.Consume(suiteCtx, "hash-old", now)
		Expect(errors.Is(err, auth.ErrNotFound)).To(BeTrue())

		n, err := resets.DeleteExpired(suiteCtx, now)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(int64(1)))
	})

	It("drops every reset of a user", func() {
		create("hash-1", now.Add(time.Hour))
		create("hash-2", now.Add(time.Hour))
		Expect(resets.DeleteByUser(suiteCtx, user.ID)).To(Succeed())

		_, err := resets.Consume(suiteCtx, "hash-2", now)
		Expect(errors.Is(err, auth.ErrNotFound)).To(BeTrue())
	})
})

var _ = Describe("Transactor", func() {
	BeforeEach(truncate)

	It("rolls back every statement when fn fails", func() {
		users := postgres.NewUserRepository(testPool)
		tx := postgres.NewTransactor(testPool)

		err := tx.InTransaction(suiteCtx, func(ctx context.Context) error {
			u, _ := auth.NewUser("ghost@example.com", "Ghost", "hash")
			if err := users.Create(ctx, u); err != nil {
				return err
			}
			return errors.New("abort")
		})
		Expect(err).To(MatchError("abort"))

		_, err = users.GetByEmail(suiteCtx, "ghost@example.com")
		Expect(errors.Is(err, auth.ErrNotFound)).To(BeTrue())
	})
})
