// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AuthLib Contributors

//go:build integration

package integration

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/authlib/authlib/internal/auth"
	"github.com/authlib/authlib/internal/config"
	"github.com/authlib/authlib/internal/datastore"
)

func configFor(kind string) *config.Config {
	cfg := config.Default()
	cfg.Datastore.Type = kind
	switch kind {
	case config.DatastorePostgres, config.DatastoreDatabase:
		cfg.Datastore.Postgres.URL = postgresURL
		cfg.Datastore.Postgres.AutoMigrate = true
	case config.DatastoreMongo:
		cfg.Datastore.Mongo.URI = mongoURI
		cfg.Datastore.Mongo.Database = "authlib_" + ulid.Make().String()
	}
	Expect(cfg.Validate()).To(Succeed())
	return cfg
}

func openStore(ctx context.Context, kind string) datastore.Store {
	s, err := datastore.NewDefaultRegistry().Create(ctx, configFor(kind), nil)
	Expect(err).NotTo(HaveOccurred())
	DeferCleanup(s.Close)
	return s
}

func newService(s auth.CredentialStore, opts ...auth.Option) *auth.Service {
	svc, err := auth.NewService(s, opts...)
	Expect(err).NotTo(HaveOccurred())
	return svc
}

// uniqueUser keeps specs independent on the shared postgres database.
func uniqueUser() string {
	return "user-" + ulid.Make().String()
}

var backends = []string{
	config.DatastoreMemory,
	config.DatastorePostgres,
	config.DatastoreDatabase,
	config.DatastoreMongo,
}

var _ = Describe("Auth flows", func() {
	for _, kind := range backends {
		Context("with the "+kind+" datastore", func() {
			var (
				ctx   context.Context
				store datastore.Store
				svc   *auth.Service
				user  string
			)

			BeforeEach(func() {
				ctx = context.Background()
				store = openStore(ctx, kind)
				svc = newService(store)
				user = uniqueUser()
				Expect(svc.AddUser(ctx, user, "p1").Succeeded).To(BeTrue())
			})

			It("pings", func() {
				Expect(store.Ping(ctx)).To(Succeed())
			})

			It("logs in with the right password only", func() {
				Expect(svc.Login(ctx, user, "p1").Succeeded).To(BeTrue())
				Expect(svc.Login(ctx, user, "p2").Is(auth.CodeAuthFailed)).To(BeTrue())
				Expect(svc.Login(ctx, uniqueUser(), "p1").Is(auth.CodeUserNotFound)).To(BeTrue())
			})

			It("rejects a duplicate user", func() {
				res := svc.AddUser(ctx, user, "other")
				Expect(res.Is(auth.CodeValidationError)).To(BeTrue())
				Expect(svc.Login(ctx, user, "p1").Succeeded).To(BeTrue())
			})

			It("resets a password once per token", func() {
				issued := svc.RequestPasswordReset(ctx, user)
				Expect(issued.Succeeded).To(BeTrue())
				token := issued.Token()
				Expect(token).To(HaveLen(64))

				Expect(svc.VerifyResetToken(ctx, user, token).Succeeded).To(BeTrue())
				Expect(svc.ResetPassword(ctx, user, token, "p2").Succeeded).To(BeTrue())

				Expect(svc.Login(ctx, user, "p1").Is(auth.CodeAuthFailed)).To(BeTrue())
				Expect(svc.Login(ctx, user, "p2").Succeeded).To(BeTrue())
				Expect(svc.ResetPassword(ctx, user, token, "p3").Is(auth.CodeInvalidToken)).To(BeTrue())
			})

			It("keeps only the newest token", func() {
				first := svc.RequestPasswordReset(ctx, user).Token()
				second := svc.RequestPasswordReset(ctx, user).Token()

				Expect(svc.VerifyResetToken(ctx, user, first).Is(auth.CodeInvalidToken)).To(BeTrue())
				Expect(svc.VerifyResetToken(ctx, user, second).Succeeded).To(BeTrue())
			})

			It("rejects a token once its expiry has passed", func() {
				token := svc.RequestPasswordReset(ctx, user).Token()
				Expect(svc.VerifyResetToken(ctx, user, token).Succeeded).To(BeTrue())

				// Stores check expiry against their own clock.
				Expect(store.StoreResetToken(ctx, user, token, time.Now().Add(-time.Second))).To(Succeed())
				Expect(svc.VerifyResetToken(ctx, user, token).Is(auth.CodeInvalidToken)).To(BeTrue())
			})

			It("does not accept another user's token", func() {
				other := uniqueUser()
				Expect(svc.AddUser(ctx, other, "x").Succeeded).To(BeTrue())
				token := svc.RequestPasswordReset(ctx, other).Token()

				Expect(svc.ResetPassword(ctx, user, token, "p9").Is(auth.CodeInvalidToken)).To(BeTrue())
				Expect(svc.ResetPassword(ctx, other, token, "p9").Succeeded).To(BeTrue())
			})

			It("clears a missing token without error", func() {
				Expect(store.ClearResetToken(ctx, user)).To(Succeed())
				Expect(store.ClearResetToken(ctx, user)).To(Succeed())
			})

			It("round-trips metadata and drops it with the user", func() {
				Expect(svc.SetMetadata(ctx, user, "prefs", map[string]any{"theme": "dark"}).Succeeded).To(BeTrue())
				got := svc.GetMetadata(ctx, user, "prefs")
				Expect(got.Succeeded).To(BeTrue())
				Expect(got.Payload[auth.PayloadValue]).To(Equal(map[string]any{"theme": "dark"}))

				Expect(svc.DeleteUser(ctx, user).Succeeded).To(BeTrue())
				Expect(svc.GetMetadata(ctx, user, "prefs").Is(auth.CodeUserNotFound)).To(BeTrue())
			})

			It("serializes concurrent reset requests to one live token", func() {
				const n = 8
				tokens := make([]string, n)
				var wg sync.WaitGroup
				for i := range n {
					wg.Add(1)
					go func() {
						defer GinkgoRecover()
						defer wg.Done()
						res := svc.RequestPasswordReset(ctx, user)
						Expect(res.Succeeded).To(BeTrue(), fmt.Sprintf("request %d: %s", i, res.Message))
						tokens[i] = res.Token()
					}()
				}
				wg.Wait()

				live := 0
				for _, tok := range tokens {
					if svc.VerifyResetToken(ctx, user, tok).Succeeded {
						live++
					}
				}
				Expect(live).To(Equal(1))
			})
		})
	}
})

var _ = Describe("Memory test data", func() {
	It("seeds the documented test user", func() {
		ctx := context.Background()
		cfg := configFor(config.DatastoreMemory)
		cfg.Datastore.Memory.InitTestData = true

		s, err := datastore.NewDefaultRegistry().Create(ctx, cfg, nil)
		Expect(err).NotTo(HaveOccurred())

		svc := newService(s)
		Expect(svc.Login(ctx, datastore.TestUserID, datastore.TestPassword).Succeeded).To(BeTrue())
	})
})
