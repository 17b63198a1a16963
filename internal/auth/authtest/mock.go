// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AuthLib Contributors

// Package authtest provides test doubles for the auth package.
package authtest

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/authlib/authlib/internal/auth"
)

// MockStore is a testify mock implementing auth.CredentialStore.
type MockStore struct {
	mock.Mock
}

// GetCredential implements auth.CredentialStore.
func (m *MockStore) GetCredential(ctx context.Context, userID string) (*auth.Credential, error) {
	args := m.Called(ctx, userID)
	if cred := args.Get(0); cred != nil {
		return cred.(*auth.Credential), args.Error(1)
	}
	return nil, args.Error(1)
}

// AddCredential implements auth.CredentialStore.
func (m *MockStore) AddCredential(ctx context.Context, userID, hashedPassword, salt string) error {
	return m.Called(ctx, userID, hashedPassword, salt).Error(0)
}

// UpdateCredential implements auth.CredentialStore.
func (m *MockStore) UpdateCredential(ctx context.Context, userID, hashedPassword, salt string) error {
	return m.Called(ctx, userID, hashedPassword, salt).Error(0)
}

// DeleteCredential implements auth.CredentialStore.
func (m *MockStore) DeleteCredential(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

// StoreResetToken implements auth.CredentialStore.
func (m *MockStore) StoreResetToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	return m.Called(ctx, userID, token, expiresAt).Error(0)
}

// VerifyResetToken implements auth.CredentialStore.
func (m *MockStore) VerifyResetToken(ctx context.Context, userID, token string) (bool, error) {
	args := m.Called(ctx, userID, token)
	return args.Bool(0), args.Error(1)
}

// ClearResetToken implements auth.CredentialStore.
func (m *MockStore) ClearResetToken(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

// MockMetadataStore is a MockStore that also implements auth.MetadataStore.
type MockMetadataStore struct {
	MockStore
}

// SetMetadata implements auth.MetadataStore.
func (m *MockMetadataStore) SetMetadata(ctx context.Context, userID, key string, value []byte) error {
	return m.Called(ctx, userID, key, value).Error(0)
}

// GetMetadata implements auth.MetadataStore.
func (m *MockMetadataStore) GetMetadata(ctx context.Context, userID, key string) ([]byte, error) {
	args := m.Called(ctx, userID, key)
	if v := args.Get(0); v != nil {
		return v.([]byte), args.Error(1)
	}
	return nil, args.Error(1)
}

// FixedClock returns a clock function that always reports t.
func FixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

var (
	_ auth.CredentialStore = (*MockStore)(nil)
	_ auth.MetadataStore   = (*MockMetadataStore)(nil)
)
