// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AuthLib Contributors

package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/authlib/authlib/internal/auth"
)

func TestErrorCode_ValuesAreStable(t *testing.T) {
	tests := []struct {
		code  auth.ErrorCode
		value int
		name  string
		kind  auth.ErrorKind
		msg   string
	}{
		{auth.CodeNone, 0, "NONE", auth.KindNone, "No error"},
		{auth.CodeAuthGeneralError, 400, "AUTH_GENERAL_ERROR", auth.KindAuth, "Authentication error"},
		{auth.CodeAuthFailed, 401, "AUTH_FAILED", auth.KindAuth, "Authentication failed"},
		{auth.CodeUserNotFound, 404, "USER_NOT_FOUND", auth.KindNotFound, "User not found"},
		{auth.CodeValidationError, 422, "VALIDATION_ERROR", auth.KindValidation, "Validation error"},
		{auth.CodeRequiredFieldMissing, 4221, "VALIDATION_REQUIRED_FIELD_MISSING", auth.KindValidation, "Required field missing"},
		{auth.CodeInvalidFormat, 4222, "VALIDATION_INVALID_FORMAT", auth.KindValidation, "Invalid input format"},
		{auth.CodeDatabaseError, 500, "DATABASE_ERROR", auth.KindStorage, "Database error"},
		{auth.CodeDatabaseConnectionError, 5001, "DATABASE_CONNECTION_ERROR", auth.KindStorage, "Database connection error"},
		{auth.CodeDatabaseQueryError, 5002, "DATABASE_QUERY_ERROR", auth.KindStorage, "Database query error"},
		{auth.CodeConfigError, 600, "CONFIG_ERROR", auth.KindConfig, "Configuration error"},
		{auth.CodeConfigInvalid, 6001, "CONFIG_INVALID", auth.KindConfig, "Invalid configuration"},
		{auth.CodeConfigMissing, 6002, "CONFIG_MISSING", auth.KindConfig, "Missing configuration"},
		{auth.CodePasswordResetError, 700, "PASSWORD_RESET_ERROR", auth.KindToken, "Password reset error"},
		{auth.CodeInvalidToken, 7001, "PASSWORD_RESET_INVALID_TOKEN", auth.KindToken, "Invalid reset token"},
		{auth.CodeExpiredToken, 7002, "PASSWORD_RESET_EXPIRED_TOKEN", auth.KindToken, "Expired reset token"},
		{auth.CodeSSOError, 800, "SSO_ERROR", auth.KindAuth, "SSO error"},
		{auth.CodeSSOProviderError, 8001, "SSO_PROVIDER_ERROR", auth.KindAuth, "SSO provider error"},
		{auth.CodeSSOCallbackError, 8002, "SSO_CALLBACK_ERROR", auth.KindAuth, "SSO callback error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.value, int(tt.code))
			assert.Equal(t, tt.name, tt.code.String())
			assert.Equal(t, tt.kind, tt.code.Kind())
			assert.Equal(t, tt.msg, tt.code.Message())

			parsed, ok := auth.ParseErrorCode(tt.name)
			assert.True(t, ok)
			assert.Equal(t, tt.code, parsed)
		})
	}
}

func TestErrorCode_Unknown(t *testing.T) {
	unknown := auth.ErrorCode(9999)
	assert.Equal(t, "Unknown error", unknown.Message())
	assert.Equal(t, "UNKNOWN_ERROR", unknown.String())

	_, ok := auth.ParseErrorCode("NOPE")
	assert.False(t, ok)
}
