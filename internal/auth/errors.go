// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AuthLib Contributors

package auth

import "errors"

// Store sentinels. Implementations wrap these with oops codes; match with errors.Is.
var (
	// ErrNotFound is returned when a requested credential, token, or metadata entry does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned when adding a credential for a user that already has one.
	ErrAlreadyExists = errors.New("already exists")
)

// ErrorKind classifies a failed Result.
type ErrorKind string

// Error kinds.
const (
	KindNone       ErrorKind = ""
	KindValidation ErrorKind = "validation_error"
	KindNotFound   ErrorKind = "not_found"
	KindAuth       ErrorKind = "auth_error"
	KindToken      ErrorKind = "token_error"
	KindStorage    ErrorKind = "storage_error"
	KindConfig     ErrorKind = "config_error"
)

// ErrorCode is a stable numeric error code. Values are shared with other
// implementations of this library, so they must not be renumbered.
type ErrorCode int

// Error codes.
const (
	CodeNone                    ErrorCode = 0
	CodeAuthGeneralError        ErrorCode = 400
	CodeAuthFailed              ErrorCode = 401
	CodeUserNotFound            ErrorCode = 404
	CodeValidationError         ErrorCode = 422
	CodeRequiredFieldMissing    ErrorCode = 4221
	CodeInvalidFormat           ErrorCode = 4222
	CodeDatabaseError           ErrorCode = 500
	CodeDatabaseConnectionError ErrorCode = 5001
	CodeDatabaseQueryError      ErrorCode = 5002
	CodeConfigError             ErrorCode = 600
	CodeConfigInvalid           ErrorCode = 6001
	CodeConfigMissing           ErrorCode = 6002
	CodePasswordResetError      ErrorCode = 700
	CodeInvalidToken            ErrorCode = 7001
	CodeExpiredToken            ErrorCode = 7002
	CodeSSOError                ErrorCode = 800
	CodeSSOProviderError        ErrorCode = 8001
	CodeSSOCallbackError        ErrorCode = 8002
)

type codeInfo struct {
	name    string
	message string
	kind    ErrorKind
}

var codeTable = map[ErrorCode]codeInfo{
	CodeNone:                    {"NONE", "No error", KindNone},
	CodeAuthGeneralError:        {"AUTH_GENERAL_ERROR", "Authentication error", KindAuth},
	CodeAuthFailed:              {"AUTH_FAILED", "Authentication failed", KindAuth},
	CodeUserNotFound:            {"USER_NOT_FOUND", "User not found", KindNotFound},
	CodeValidationError:         {"VALIDATION_ERROR", "Validation error", KindValidation},
	CodeRequiredFieldMissing:    {"VALIDATION_REQUIRED_FIELD_MISSING", "Required field missing", KindValidation},
	CodeInvalidFormat:           {"VALIDATION_INVALID_FORMAT", "Invalid input format", KindValidation},
	CodeDatabaseError:           {"DATABASE_ERROR", "Database error", KindStorage},
	CodeDatabaseConnectionError: {"DATABASE_CONNECTION_ERROR", "Database connection error", KindStorage},
	CodeDatabaseQueryError:      {"DATABASE_QUERY_ERROR", "Database query error", KindStorage},
	CodeConfigError:             {"CONFIG_ERROR", "Configuration error", KindConfig},
	CodeConfigInvalid:           {"CONFIG_INVALID", "Invalid configuration", KindConfig},
	CodeConfigMissing:           {"CONFIG_MISSING", "Missing configuration", KindConfig},
	CodePasswordResetError:      {"PASSWORD_RESET_ERROR", "Password reset error", KindToken},
	CodeInvalidToken:            {"PASSWORD_RESET_INVALID_TOKEN", "Invalid reset token", KindToken},
	CodeExpiredToken:            {"PASSWORD_RESET_EXPIRED_TOKEN", "Expired reset token", KindToken},
	CodeSSOError:                {"SSO_ERROR", "SSO error", KindAuth},
	CodeSSOProviderError:        {"SSO_PROVIDER_ERROR", "SSO provider error", KindAuth},
	CodeSSOCallbackError:        {"SSO_CALLBACK_ERROR", "SSO callback error", KindAuth},
}

// String returns the code's symbolic name, which doubles as its oops code.
func (c ErrorCode) String() string {
	if info, ok := codeTable[c]; ok {
		return info.name
	}
	return "UNKNOWN_ERROR"
}

// Message returns the default human-readable message for the code.
func (c ErrorCode) Message() string {
	if info, ok := codeTable[c]; ok {
		return info.message
	}
	return "Unknown error"
}

// Kind returns the kind the code belongs to. Unknown codes are KindAuth,
// matching the general authentication error.
func (c ErrorCode) Kind() ErrorKind {
	if info, ok := codeTable[c]; ok {
		return info.kind
	}
	return KindAuth
}

// ParseErrorCode returns the code with the given symbolic name.
func ParseErrorCode(name string) (ErrorCode, bool) {
	for code, info := range codeTable {
		if info.name == name {
			return code, true
		}
	}
	return CodeNone, false
}
