// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AuthLib Contributors

package datastore

import (
	"context"
	"log/slog"

	"github.com/samber/oops"

	"github.com/authlib/authlib/internal/auth"
	"github.com/authlib/authlib/internal/auth/memory"
	"github.com/authlib/authlib/internal/auth/mongo"
	"github.com/authlib/authlib/internal/auth/postgres"
	"github.com/authlib/authlib/internal/config"
	"github.com/authlib/authlib/internal/store"
)

// Seed credential created by datastore.memory.init_test_data.
const (
	TestUserID   = "testuser"
	TestPassword = "password"
	TestSalt     = "testsalt"
)

// RegisterDefaults registers memory, postgres (also as "database"), and mongo.
func RegisterDefaults(r *Registry) {
	for name, ctor := range map[string]Constructor{
		config.DatastoreMemory:   newMemory,
		config.DatastorePostgres: newPostgres,
		config.DatastoreDatabase: newPostgres,
		config.DatastoreMongo:    newMongo,
	} {
		if err := r.Register(name, ctor); err != nil {
			panic(err) // only reachable when called twice on one registry
		}
	}
}

func newMemory(_ context.Context, cfg *config.Config, logger *slog.Logger) (Store, error) {
	opts := []memory.Option{memory.WithLogger(logger)}
	if cfg.Datastore.Memory.InitTestData {
		hasher, err := auth.NewHasher(cfg.Hasher.Algorithm)
		if err != nil {
			return nil, err
		}
		hash, salt, err := hasher.Hash(TestPassword, TestSalt)
		if err != nil {
			return nil, oops.With("operation", "seed test user").Wrap(err)
		}
		opts = append(opts, memory.WithCredential(TestUserID, hash, salt))
		logger.Warn("memory store seeded with test credentials", "user_id", TestUserID)
	}
	return memory.NewStore(opts...), nil
}

// PostgresDSN returns the configured URL, or one assembled from the
// discrete fields.
func PostgresDSN(cfg *config.Config) string {
	pg := cfg.Datastore.Postgres
	if pg.URL != "" {
		return pg.URL
	}
	return store.PostgresURL(pg.Host, pg.Port, pg.DBName, pg.Username, pg.Password, pg.SSLMode)
}

func newPostgres(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Store, error) {
	pg := cfg.Datastore.Postgres
	dsn := PostgresDSN(cfg)

	pool, err := store.Connect(ctx, dsn, store.ConnectOptions{
		MaxConns:       int32(pg.MaxConns), //nolint:gosec // validated non-negative, small
		Retries:        uint64(pg.ConnectRetries),
		ConnectTimeout: cfg.PostgresConnectTimeout(),
		Logger:         logger,
	})
	if err != nil {
		return nil, err
	}

	if pg.AutoMigrate {
		if err := migrate(dsn, logger); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return postgres.NewStore(pool), nil
}

func migrate(dsn string, logger *slog.Logger) (err error) {
	m, err := store.NewMigrator(dsn)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	if err := m.Up(); err != nil {
		return err
	}
	version, _, err := m.Version()
	if err != nil {
		return err
	}
	logger.Info("database schema migrated", "version", version)
	return nil
}

func newMongo(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Store, error) {
	mg := cfg.Datastore.Mongo
	client, err := mongo.Connect(ctx, mg.URI, mongo.ConnectOptions{
		Timeout: cfg.MongoConnectTimeout(),
		Retries: uint64(mg.ConnectRetries),
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}

	s := mongo.NewStore(client.Database(mg.Database).Collection(mg.Collection))
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = s.Close() //nolint:errcheck // index error takes precedence
		return nil, err
	}
	return s, nil
}
