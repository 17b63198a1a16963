// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AuthLib Contributors

package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/argon2"
)

// DefaultSaltBytes is the number of random bytes in a generated salt.
// Salts are hex-encoded, so the stored salt is twice this length.
const DefaultSaltBytes = 16

// Hash algorithm names accepted by NewHasher.
const (
	AlgorithmSHA256   = "sha256"
	AlgorithmArgon2id = "argon2id"
)

// argon2id parameters. The salt comes from the credential, not from the digest.
const (
	argon2Time    = 1
	argon2Memory  = 64 * 1024
	argon2Threads = 4
	argon2KeyLen  = 32
)

// PasswordHasher produces salted one-way digests and verifies passwords against them.
type PasswordHasher interface {
	// Hash digests password with salt. An empty salt generates a fresh one.
	// Returns the hex digest and the salt actually used.
	Hash(password, salt string) (hash, usedSalt string, err error)

	// Verify recomputes the digest for password and salt and compares it to
	// hash in constant time.
	Verify(password, hash, salt string) bool
}

// GenerateSalt returns n cryptographically random bytes, hex-encoded.
func GenerateSalt(n int) (string, error) {
	if n <= 0 {
		n = DefaultSaltBytes
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", oops.Code("AUTH_SALT_FAILED").Wrap(err)
	}
	return hex.EncodeToString(b), nil
}

// NewHasher returns the hasher for algorithm. An empty name selects sha256.
func NewHasher(algorithm string) (PasswordHasher, error) {
	switch strings.ToLower(algorithm) {
	case "", AlgorithmSHA256:
		return NewSHA256Hasher(), nil
	case AlgorithmArgon2id:
		return NewArgon2idHasher(), nil
	default:
		return nil, oops.Code(CodeConfigInvalid.String()).
			With("algorithm", algorithm).
			Errorf("unknown hash algorithm %q", algorithm)
	}
}

// SHA256Hasher digests sha256(password || salt).
type SHA256Hasher struct {
	saltBytes int
}

// NewSHA256Hasher creates a SHA256Hasher generating DefaultSaltBytes salts.
func NewSHA256Hasher() *SHA256Hasher {
	return &SHA256Hasher{saltBytes: DefaultSaltBytes}
}

// Hash digests password with salt, generating a salt when salt is empty.
// Empty passwords are hashed as-is.
func (h *SHA256Hasher) Hash(password, salt string) (string, string, error) {
	if salt == "" {
		generated, err := GenerateSalt(h.saltBytes)
		if err != nil {
			return "", "", err
		}
		salt = generated
	}
	return h.digest(password, salt), salt, nil
}

// Verify reports whether password and salt reproduce hash.
func (h *SHA256Hasher) Verify(password, hash, salt string) bool {
	computed := h.digest(password, salt)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(hash)) == 1
}

func (h *SHA256Hasher) digest(password, salt string) string {
	sum := sha256.Sum256([]byte(password + salt))
	return hex.EncodeToString(sum[:])
}

// Argon2idHasher digests with argon2id keyed on the credential's salt.
type Argon2idHasher struct {
	saltBytes int
}

// NewArgon2idHasher creates an Argon2idHasher generating DefaultSaltBytes salts.
func NewArgon2idHasher() *Argon2idHasher {
	return &Argon2idHasher{saltBytes: DefaultSaltBytes}
}

// Hash digests password with salt, generating a salt when salt is empty.
func (h *Argon2idHasher) Hash(password, salt string) (string, string, error) {
	if salt == "" {
		generated, err := GenerateSalt(h.saltBytes)
		if err != nil {
			return "", "", err
		}
		salt = generated
	}
	return h.digest(password, salt), salt, nil
}

// Verify reports whether password and salt reproduce hash.
func (h *Argon2idHasher) Verify(password, hash, salt string) bool {
	computed := h.digest(password, salt)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(hash)) == 1
}

func (h *Argon2idHasher) digest(password, salt string) string {
	key := argon2.IDKey([]byte(password), []byte(salt), argon2Time, argon2Memory, argon2Threads, argon2KeyLen)
	return hex.EncodeToString(key)
}

// Compile-time interface checks.
var (
	_ PasswordHasher = (*SHA256Hasher)(nil)
	_ PasswordHasher = (*Argon2idHasher)(nil)
)
