// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AuthLib Contributors

// Package postgres provides the PostgreSQL credential store.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/authlib/authlib/internal/auth"
)

// poolIface is the subset of *pgxpool.Pool the store uses. pgxmock.PgxPoolIface
// satisfies it in unit tests.
type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// Store implements auth.CredentialStore and auth.MetadataStore on the schema
// created by the internal/store migrations.
type Store struct {
	pool poolIface
	now  func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the time source for timestamps and token expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore creates a Store over pool. The store takes ownership of the pool
// and closes it in Close.
func NewStore(pool poolIface, opts ...Option) *Store {
	s := &Store{pool: pool, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetCredential returns the credential for userID.
func (s *Store) GetCredential(ctx context.Context, userID string) (*auth.Credential, error) {
	var c auth.Credential
	err := s.pool.QueryRow(ctx, `
		SELECT user_id, hashed_password, salt, created_at, updated_at
		FROM credentials
		WHERE user_id = $1
	`, userID).Scan(&c.UserID, &c.HashedPassword, &c.Salt, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound(userID)
	}
	if err != nil {
		return nil, oops.Code("CREDENTIAL_QUERY_FAILED").
			With("operation", "select credential").
			With("user_id", userID).
			Wrap(err)
	}
	return &c, nil
}

// AddCredential inserts a new credential.
func (s *Store) AddCredential(ctx context.Context, userID, hashedPassword, salt string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO credentials (user_id, hashed_password, salt, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
	`, userID, hashedPassword, salt, s.now())
	if isPgError(err, pgerrcode.UniqueViolation) {
		return oops.Code("CREDENTIAL_EXISTS").
			With("user_id", userID).
			Wrap(auth.ErrAlreadyExists)
	}
	if err != nil {
		return oops.Code("CREDENTIAL_CREATE_FAILED").
			With("operation", "insert credential").
			With("user_id", userID).
			Wrap(err)
	}
	return nil
}

// UpdateCredential replaces hash and salt in one statement.
func (s *Store) UpdateCredential(ctx context.Context, userID, hashedPassword, salt string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE credentials
		SET hashed_password = $2, salt = $3, updated_at = $4
		WHERE user_id = $1
	`, userID, hashedPassword, salt, s.now())
	if err != nil {
		return oops.Code("CREDENTIAL_UPDATE_FAILED").
			With("operation", "update credential").
			With("user_id", userID).
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return notFound(userID)
	}
	return nil
}

// DeleteCredential removes the credential; tokens and metadata go with it
// through ON DELETE CASCADE.
func (s *Store) DeleteCredential(ctx context.Context, userID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM credentials WHERE user_id = $1`, userID)
	if err != nil {
		return oops.Code("CREDENTIAL_DELETE_FAILED").
			With("operation", "delete credential").
			With("user_id", userID).
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return notFound(userID)
	}
	return nil
}

// StoreResetToken upserts the user's single token row, so a concurrent
// reader sees either the old token or the new one.
func (s *Store) StoreResetToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	rt, err := auth.NewResetToken(userID, token, expiresAt, s.now())
	if err != nil {
		return oops.With("operation", "store reset token").Wrap(err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO password_reset_tokens (id, user_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE
		SET id = EXCLUDED.id,
		    token_hash = EXCLUDED.token_hash,
		    expires_at = EXCLUDED.expires_at,
		    created_at = EXCLUDED.created_at
	`, rt.ID.String(), rt.UserID, rt.TokenHash, rt.ExpiresAt, rt.CreatedAt)
	if isPgError(err, pgerrcode.ForeignKeyViolation) {
		return notFound(userID)
	}
	if err != nil {
		return oops.Code("RESET_TOKEN_STORE_FAILED").
			With("operation", "upsert password_reset_token").
			With("user_id", userID).
			Wrap(err)
	}
	return nil
}

// VerifyResetToken compares token against the stored digest and checks expiry
// against the store clock.
func (s *Store) VerifyResetToken(ctx context.Context, userID, token string) (bool, error) {
	rt := auth.ResetToken{UserID: userID}
	err := s.pool.QueryRow(ctx, `
		SELECT token_hash, expires_at
		FROM password_reset_tokens
		WHERE user_id = $1
	`, userID).Scan(&rt.TokenHash, &rt.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, oops.Code("RESET_TOKEN_QUERY_FAILED").
			With("operation", "select password_reset_token").
			With("user_id", userID).
			Wrap(err)
	}
	return rt.Matches(token) && rt.ValidAt(s.now()), nil
}

// ClearResetToken deletes the user's token. Deleting nothing is success.
func (s *Store) ClearResetToken(ctx context.Context, userID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM password_reset_tokens WHERE user_id = $1`, userID); err != nil {
		return oops.Code("RESET_TOKEN_CLEAR_FAILED").
			With("operation", "delete password_reset_token").
			With("user_id", userID).
			Wrap(err)
	}
	return nil
}

// SetMetadata upserts a JSON value.
func (s *Store) SetMetadata(ctx context.Context, userID, key string, value []byte) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO user_metadata (user_id, key, value, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`, userID, key, value, s.now())
	if isPgError(err, pgerrcode.ForeignKeyViolation) {
		return notFound(userID)
	}
	if err != nil {
		return oops.Code("METADATA_STORE_FAILED").
			With("operation", "upsert user_metadata").
			With("user_id", userID).
			With("key", key).
			Wrap(err)
	}
	return nil
}

// GetMetadata returns the raw JSON stored under key.
func (s *Store) GetMetadata(ctx context.Context, userID, key string) ([]byte, error) {
	var value []byte
	err := s.pool.QueryRow(ctx, `
		SELECT value FROM user_metadata WHERE user_id = $1 AND key = $2
	`, userID, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("METADATA_NOT_FOUND").
			With("user_id", userID).
			With("key", key).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("METADATA_QUERY_FAILED").
			With("operation", "select user_metadata").
			With("user_id", userID).
			With("key", key).
			Wrap(err)
	}
	return value, nil
}

// Ping checks the pool can reach the database.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return oops.Code("DB_PING_FAILED").Wrap(err)
	}
	return nil
}

// Close closes the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func notFound(userID string) error {
	return oops.Code("CREDENTIAL_NOT_FOUND").
		With("user_id", userID).
		Wrap(auth.ErrNotFound)
}

func isPgError(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

// Compile-time interface checks.
var (
	_ auth.CredentialStore = (*Store)(nil)
	_ auth.MetadataStore   = (*Store)(nil)
)
