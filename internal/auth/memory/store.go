// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AuthLib Contributors

// Package memory provides an in-process auth.CredentialStore.
package memory

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/authlib/authlib/internal/auth"
)

// Store keeps credentials, reset tokens, and metadata in maps guarded by a
// single RWMutex. Concurrent token writes for one user are last-writer-wins.
type Store struct {
	mu       sync.RWMutex
	users    map[string]auth.Credential
	tokens   map[string]auth.ResetToken
	metadata map[string]map[string][]byte

	now    func() time.Time
	logger *slog.Logger
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

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithCredential preloads a credential.
func WithCredential(userID, hashedPassword, salt string) Option {
	return func(s *Store) {
		now := s.now()
		s.users[userID] = auth.Credential{
			UserID:         userID,
			HashedPassword: hashedPassword,
			Salt:           salt,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
	}
}

// NewStore creates an empty Store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		users:    make(map[string]auth.Credential),
		tokens:   make(map[string]auth.ResetToken),
		metadata: make(map[string]map[string][]byte),
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetCredential returns a copy of the stored credential.
func (s *Store) GetCredential(_ context.Context, userID string) (*auth.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cred, ok := s.users[userID]
	if !ok {
		return nil, notFound("CREDENTIAL_NOT_FOUND", userID)
	}
	return &cred, nil
}

// AddCredential creates a credential.
func (s *Store) AddCredential(_ context.Context, userID, hashedPassword, salt string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; ok {
		return oops.Code("CREDENTIAL_EXISTS").
			With("user_id", userID).
			Wrap(auth.ErrAlreadyExists)
	}
	now := s.now()
	s.users[userID] = auth.Credential{
		UserID:         userID,
		HashedPassword: hashedPassword,
		Salt:           salt,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	return nil
}

// UpdateCredential replaces digest and salt.
func (s *Store) UpdateCredential(_ context.Context, userID, hashedPassword, salt string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred, ok := s.users[userID]
	if !ok {
		return notFound("CREDENTIAL_NOT_FOUND", userID)
	}
	cred.HashedPassword = hashedPassword
	cred.Salt = salt
	cred.UpdatedAt = s.now()
	s.users[userID] = cred
	return nil
}

// DeleteCredential removes the user and everything keyed on it.
func (s *Store) DeleteCredential(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return notFound("CREDENTIAL_NOT_FOUND", userID)
	}
	delete(s.users, userID)
	delete(s.tokens, userID)
	delete(s.metadata, userID)
	return nil
}

// StoreResetToken overwrites any earlier token for userID.
func (s *Store) StoreResetToken(_ context.Context, userID, token string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return notFound("CREDENTIAL_NOT_FOUND", userID)
	}
	rt, err := auth.NewResetToken(userID, token, expiresAt, s.now())
	if err != nil {
		return oops.With("operation", "store reset token").Wrap(err)
	}
	s.tokens[userID] = *rt
	return nil
}

// VerifyResetToken checks token against the live token for userID.
func (s *Store) VerifyResetToken(_ context.Context, userID, token string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rt, ok := s.tokens[userID]
	if !ok {
		return false, nil
	}
	return rt.Matches(token) && rt.ValidAt(s.now()), nil
}

// ClearResetToken removes the token for userID, if any.
func (s *Store) ClearResetToken(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.tokens, userID)
	return nil
}

// SetMetadata upserts a metadata entry.
func (s *Store) SetMetadata(_ context.Context, userID, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return notFound("CREDENTIAL_NOT_FOUND", userID)
	}
	entries := s.metadata[userID]
	if entries == nil {
		entries = make(map[string][]byte)
		s.metadata[userID] = entries
	}
	entries[key] = slices.Clone(value)
	return nil
}

// GetMetadata returns a copy of a metadata entry.
func (s *Store) GetMetadata(_ context.Context, userID, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.metadata[userID][key]
	if !ok {
		return nil, oops.Code("METADATA_NOT_FOUND").
			With("user_id", userID).
			With("key", key).
			Wrap(auth.ErrNotFound)
	}
	return slices.Clone(value), nil
}

// Users returns the stored user IDs in sorted order.
func (s *Store) Users() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Sorted(maps.Keys(s.users))
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error {
	return nil
}

// Close releases nothing; the store stays usable.
func (s *Store) Close() error {
	s.logger.Debug("memory store closed", "users", len(s.Users()))
	return nil
}

func notFound(code, userID string) error {
	return oops.Code(code).
		With("user_id", userID).
		Wrap(auth.ErrNotFound)
}

// Compile-time interface checks.
var (
	_ auth.CredentialStore = (*Store)(nil)
	_ auth.MetadataStore   = (*Store)(nil)
)
