// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AuthLib Contributors

// Package auth provides password login and password-reset flows over a
// pluggable CredentialStore.
//
// # Flows
//
// Service exposes one method per flow. Every method returns a Result rather
// than an error:
//   - Login - verify a password against the stored salted digest
//   - RequestPasswordReset - issue a 64-hex-character token valid for 24 hours
//   - ResetPassword - consume a live token and store a freshly salted digest
//
// AddUser, DeleteUser, VerifyResetToken, SetMetadata, and GetMetadata cover
// registration and the optional per-user metadata extension.
//
// # Stores
//
// CredentialStore is implemented by the memory, postgres, and mongo
// subpackages. At most one reset token is live per user: storing a token
// replaces the previous one atomically. Clearing a token that does not exist
// succeeds.
//
// # Errors
//
// Store errors are oops errors wrapping ErrNotFound or ErrAlreadyExists. The
// service logs them and translates them into a Result carrying an ErrorKind
// and a numeric ErrorCode.
package auth
