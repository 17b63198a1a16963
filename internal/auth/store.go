// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AuthLib Contributors

package auth

import (
	"context"
	"time"
)

// Credential is a user's stored password digest and salt. A credential is
// replaced wholesale on password change and never partially updated.
type Credential struct {
	UserID         string
	HashedPassword string
	Salt           string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CredentialStore persists credentials and reset tokens. Implementations must
// be safe for concurrent use.
type CredentialStore interface {
	// GetCredential returns the credential for userID, or ErrNotFound.
	GetCredential(ctx context.Context, userID string) (*Credential, error)

	// AddCredential creates a credential. Returns ErrAlreadyExists if userID has one.
	AddCredential(ctx context.Context, userID, hashedPassword, salt string) error

	// UpdateCredential replaces the digest and salt. Returns ErrNotFound if userID is absent.
	UpdateCredential(ctx context.Context, userID, hashedPassword, salt string) error

	// DeleteCredential removes the credential along with its reset token and metadata.
	// Returns ErrNotFound if userID is absent.
	DeleteCredential(ctx context.Context, userID string) error

	// StoreResetToken records token for userID, replacing any previous token in
	// the same atomic step. Returns ErrNotFound if userID is absent.
	StoreResetToken(ctx context.Context, userID, token string, expiresAt time.Time) error

	// VerifyResetToken reports whether token is the live token for userID:
	// it must match exactly and expire strictly after the verification time.
	// An unknown user or missing token is (false, nil).
	VerifyResetToken(ctx context.Context, userID, token string) (bool, error)

	// ClearResetToken removes the token for userID. Clearing when no token
	// exists succeeds.
	ClearResetToken(ctx context.Context, userID string) error
}

// MetadataStore is an optional CredentialStore extension holding per-user
// key/value entries. Values are JSON documents.
type MetadataStore interface {
	// SetMetadata upserts key for userID. Returns ErrNotFound if userID has no credential.
	SetMetadata(ctx context.Context, userID, key string, value []byte) error

	// GetMetadata returns the value for key, or ErrNotFound.
	GetMetadata(ctx context.Context, userID, key string) ([]byte, error)
}
