// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AuthLib Contributors

package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Reset token configuration.
const (
	ResetTokenBytes  = 32             // 32 bytes = 64 hex chars
	ResetTokenExpiry = 24 * time.Hour // 86400 seconds
)

// ResetToken is the persisted form of a password reset token. Only the
// SHA-256 digest of the token is kept; the plaintext leaves the service once.
type ResetToken struct {
	ID        ulid.ULID
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// NewResetToken builds the persisted record for a plaintext token.
func NewResetToken(userID, token string, expiresAt, now time.Time) (*ResetToken, error) {
	if userID == "" {
		return nil, oops.Code("RESET_TOKEN_INVALID_USER").Errorf("user id cannot be empty")
	}
	if token == "" {
		return nil, oops.Code("RESET_TOKEN_EMPTY").Errorf("reset token cannot be empty")
	}
	return &ResetToken{
		ID:        ulid.Make(),
		UserID:    userID,
		TokenHash: HashResetToken(token),
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}, nil
}

// ValidAt reports whether the token is still live at now. Expiry is exclusive:
// a token is valid only while ExpiresAt is strictly after now.
func (r *ResetToken) ValidAt(now time.Time) bool {
	return r.ExpiresAt.After(now)
}

// Matches reports whether token hashes to the stored digest, in constant time.
func (r *ResetToken) Matches(token string) bool {
	return VerifyResetToken(token, r.TokenHash)
}

// GenerateResetToken creates a random token of ResetTokenBytes, hex-encoded.
func GenerateResetToken() (string, error) {
	b := make([]byte, ResetTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", oops.Code("RESET_TOKEN_GENERATE_FAILED").Wrap(err)
	}
	return hex.EncodeToString(b), nil
}

// VerifyResetToken checks a plaintext token against a stored digest.
func VerifyResetToken(token, hash string) bool {
	if token == "" || hash == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(HashResetToken(token)), []byte(hash)) == 1
}

// HashResetToken returns the hex SHA-256 digest stores persist for token.
func HashResetToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}
