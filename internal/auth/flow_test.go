// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AuthLib Contributors

package auth_test

import (
	"context"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/authlib/authlib/internal/auth"
	"github.com/authlib/authlib/internal/auth/memory"
)

var _ = Describe("Password reset flow", func() {
	var (
		ctx   context.Context
		now   time.Time
		clock func() time.Time
		svc   *auth.Service
	)

	BeforeEach(func() {
		ctx = context.Background()
		now = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
		clock = func() time.Time { return now }

		var err error
		svc, err = auth.NewService(memory.NewStore(memory.WithClock(clock)), auth.WithClock(clock))
		Expect(err).NotTo(HaveOccurred())
		Expect(svc.AddUser(ctx, "u1", "p1").Succeeded).To(BeTrue())
	})

	It("moves a user from p1 to p2 to p3", func() {
		Expect(svc.Login(ctx, "u1", "p1").Succeeded).To(BeTrue())

		first := svc.RequestPasswordReset(ctx, "u1")
		Expect(first.Succeeded).To(BeTrue())
		Expect(first.Token()).To(HaveLen(64))
		Expect(first.Token()).To(MatchRegexp("^[0-9a-f]{64}$"))

		Expect(svc.ResetPassword(ctx, "u1", first.Token(), "p2").Succeeded).To(BeTrue())
		Expect(svc.Login(ctx, "u1", "p1").Is(auth.CodeAuthFailed)).To(BeTrue())
		Expect(svc.Login(ctx, "u1", "p2").Succeeded).To(BeTrue())

		By("refusing to reuse a consumed token")
		Expect(svc.ResetPassword(ctx, "u1", first.Token(), "p3").Is(auth.CodeInvalidToken)).To(BeTrue())

		second := svc.RequestPasswordReset(ctx, "u1")
		Expect(second.Token()).NotTo(Equal(first.Token()))
		Expect(svc.ResetPassword(ctx, "u1", second.Token(), "p3").Succeeded).To(BeTrue())
		Expect(svc.Login(ctx, "u1", "p3").Succeeded).To(BeTrue())
	})

	It("invalidates an earlier token when a new one is requested", func() {
		first := svc.RequestPasswordReset(ctx, "u1").Token()
		second := svc.RequestPasswordReset(ctx, "u1").Token()

		Expect(svc.VerifyResetToken(ctx, "u1", first).Is(auth.CodeInvalidToken)).To(BeTrue())
		Expect(svc.ResetPassword(ctx, "u1", first, "p2").Is(auth.CodeInvalidToken)).To(BeTrue())
		Expect(svc.ResetPassword(ctx, "u1", second, "p2").Succeeded).To(BeTrue())
	})

	It("expires tokens exactly 86400 seconds after issue", func() {
		token := svc.RequestPasswordReset(ctx, "u1").Token()

		now = now.Add(86400 * time.Second)

		res := svc.ResetPassword(ctx, "u1", token, "p2")
		Expect(res.Is(auth.CodeInvalidToken)).To(BeTrue())
		Expect(res.Kind).To(Equal(auth.KindToken))
		Expect(svc.Login(ctx, "u1", "p1").Succeeded).To(BeTrue())
	})

	It("accepts a token until the last nanosecond of its lifetime", func() {
		token := svc.RequestPasswordReset(ctx, "u1").Token()

		now = now.Add(86400*time.Second - time.Nanosecond)

		Expect(svc.ResetPassword(ctx, "u1", token, "p2").Succeeded).To(BeTrue())
		Expect(svc.Login(ctx, "u1", "p2").Succeeded).To(BeTrue())
	})

	It("leaves exactly one live token after concurrent requests", func() {
		const requests = 50
		tokens := make([]string, requests)

		var wg sync.WaitGroup
		for i := range requests {
			wg.Add(1)
			go func() {
				defer wg.Done()
				tokens[i] = svc.RequestPasswordReset(ctx, "u1").Token()
			}()
		}
		wg.Wait()

		live := 0
		for _, token := range tokens {
			Expect(token).To(HaveLen(64))
			if svc.VerifyResetToken(ctx, "u1", token).Succeeded {
				live++
			}
		}
		Expect(live).To(Equal(1))
	})

	It("rejects a token issued for another user", func() {
		Expect(svc.AddUser(ctx, "u2", "q1").Succeeded).To(BeTrue())
		token := svc.RequestPasswordReset(ctx, "u2").Token()

		Expect(svc.ResetPassword(ctx, "u1", token, "p2").Is(auth.CodeInvalidToken)).To(BeTrue())
	})

	DescribeTable("failures",
		func(run func() auth.Result, code auth.ErrorCode, kind auth.ErrorKind) {
			res := run()
			Expect(res.Succeeded).To(BeFalse())
			Expect(res.Code).To(Equal(code))
			Expect(res.Kind).To(Equal(kind))
			Expect(res.Message).NotTo(BeEmpty())
		},
		Entry("login with no fields",
			func() auth.Result { return svc.Login(ctx, "", "") },
			auth.CodeRequiredFieldMissing, auth.KindValidation),
		Entry("login with unknown user",
			func() auth.Result { return svc.Login(ctx, "nobody", "p1") },
			auth.CodeUserNotFound, auth.KindNotFound),
		Entry("login with wrong password",
			func() auth.Result { return svc.Login(ctx, "u1", "nope") },
			auth.CodeAuthFailed, auth.KindAuth),
		Entry("reset request for unknown user",
			func() auth.Result { return svc.RequestPasswordReset(ctx, "nobody") },
			auth.CodeUserNotFound, auth.KindNotFound),
		Entry("reset for unknown user",
			func() auth.Result { return svc.ResetPassword(ctx, "nobody", "tok", "p2") },
			auth.CodeUserNotFound, auth.KindNotFound),
		Entry("reset with no token on file",
			func() auth.Result { return svc.ResetPassword(ctx, "u1", "tok", "p2") },
			auth.CodeInvalidToken, auth.KindToken),
	)
})
