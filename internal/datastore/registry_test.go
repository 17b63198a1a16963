// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AuthLib Contributors

package datastore

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/authlib/authlib/internal/auth"
	"github.com/authlib/authlib/internal/auth/memory"
	"github.com/authlib/authlib/internal/config"
	"github.com/authlib/authlib/pkg/errutil"
)

func memoryConfig() *config.Config {
	cfg := config.Default()
	cfg.Datastore.Type = config.DatastoreMemory
	return cfg
}

func TestDefaultRegistry_Types(t *testing.T) {
	assert.Equal(t, []string{"database", "memory", "mongo", "postgres"}, NewDefaultRegistry().Types())
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()
	ctor := func(context.Context, *config.Config, *slog.Logger) (Store, error) { return memory.NewStore(), nil }

	require.NoError(t, r.Register("custom", ctor))
	errutil.AssertErrorCode(t, r.Register("custom", ctor), "DATASTORE_DUPLICATE")
	errutil.AssertErrorCode(t, r.Register("", ctor), "DATASTORE_REGISTER_INVALID")
	errutil.AssertErrorCode(t, r.Register("nil", nil), "DATASTORE_REGISTER_INVALID")

	cfg := memoryConfig()
	cfg.Datastore.Type = "custom"
	s, err := r.Create(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, s)
}

func TestRegistry_CreateUnknownType(t *testing.T) {
	cfg := memoryConfig()
	cfg.Datastore.Type = "redis"

	_, err := NewDefaultRegistry().Create(context.Background(), cfg, nil)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, auth.CodeConfigInvalid.String())
	errutil.AssertErrorContext(t, err, "type", "redis")
}

func TestRegistry_CreateNilConfig(t *testing.T) {
	_, err := NewDefaultRegistry().Create(context.Background(), nil, nil)
	errutil.AssertErrorCode(t, err, auth.CodeConfigMissing.String())
}

func TestRegistry_EmptyTypeIsMemory(t *testing.T) {
	cfg := memoryConfig()
	cfg.Datastore.Type = ""

	s, err := NewDefaultRegistry().Create(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, s)
}

func TestRegistry_ConstructorErrorKeepsType(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("broken", func(context.Context, *config.Config, *slog.Logger) (Store, error) {
		return nil, errors.New("dial tcp: refused")
	}))
	cfg := memoryConfig()
	cfg.Datastore.Type = "broken"

	_, err := r.Create(context.Background(), cfg, nil)
	require.Error(t, err)
	errutil.AssertErrorContext(t, err, "type", "broken")
	assert.Contains(t, err.Error(), "refused")
}

func TestMemory_InitTestData(t *testing.T) {
	ctx := context.Background()
	cfg := memoryConfig()
	cfg.Datastore.Memory.InitTestData = true

	s, err := NewDefaultRegistry().Create(ctx, cfg, nil)
	require.NoError(t, err)

	cred, err := s.GetCredential(ctx, TestUserID)
	require.NoError(t, err)
	assert.Equal(t, TestSalt, cred.Salt)
	assert.Equal(t, "3c93483111f6aabafa4895d6cf40387360cf9f6d6464379b8b655d7776d0447b", cred.HashedPassword)

	svc, err := auth.NewService(s)
	require.NoError(t, err)
	assert.True(t, svc.Login(ctx, TestUserID, TestPassword).Succeeded)
}

func TestMemory_InitTestDataWithArgon2(t *testing.T) {
	ctx := context.Background()
	cfg := memoryConfig()
	cfg.Datastore.Memory.InitTestData = true
	cfg.Hasher.Algorithm = auth.AlgorithmArgon2id

	s, err := NewDefaultRegistry().Create(ctx, cfg, nil)
	require.NoError(t, err)

	svc, err := auth.NewService(s, auth.WithHasher(auth.NewArgon2idHasher()))
	require.NoError(t, err)
	assert.True(t, svc.Login(ctx, TestUserID, TestPassword).Succeeded)
}

func TestMemory_EmptyByDefault(t *testing.T) {
	ctx := context.Background()
	s, err := NewDefaultRegistry().Create(ctx, memoryConfig(), nil)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.GetCredential(ctx, TestUserID)
	assert.ErrorIs(t, err, auth.ErrNotFound)
	assert.NoError(t, s.Ping(ctx))
}

func TestPostgresDSN(t *testing.T) {
	cfg := config.Default()
	assert.Equal(t, "postgres://authlib@localhost:5432/authlib?sslmode=disable", PostgresDSN(cfg))

	cfg.Datastore.Postgres.URL = "postgres://elsewhere/auth"
	assert.Equal(t, "postgres://elsewhere/auth", PostgresDSN(cfg))
}

func TestPostgres_ConnectFailure(t *testing.T) {
	cfg := config.Default()
	cfg.Datastore.Type = config.DatastoreDatabase
	cfg.Datastore.Postgres.URL = "postgres://nobody@127.0.0.1:1/auth"
	cfg.Datastore.Postgres.ConnectRetries = 0
	cfg.Datastore.Postgres.ConnectTimeoutSeconds = 1

	_, err := NewDefaultRegistry().Create(context.Background(), cfg, nil)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "DB_CONNECT_FAILED")
}

func TestRegistry_ConcurrentCreate(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := NewDefaultRegistry()
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := r.Create(context.Background(), memoryConfig(), nil)
			assert.NoError(t, err)
			assert.NotNil(t, s)
		}()
	}
	wg.Wait()
}
