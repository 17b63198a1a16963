// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AuthLib Contributors

package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authlib/authlib/internal/auth"
	"github.com/authlib/authlib/internal/auth/memory"
)

type response struct {
	Succeeded bool           `json:"succeeded"`
	Kind      string         `json:"error_kind"`
	Code      int            `json:"error_code"`
	Message   string         `json:"message"`
	Payload   map[string]any `json:"payload"`
}

func newAPI(t *testing.T) http.Handler {
	t.Helper()
	svc, err := auth.NewService(memory.NewStore())
	require.NoError(t, err)
	return NewHandler(svc, nil)
}

func post(t *testing.T, h http.Handler, path, body string) (int, response) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var res response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res), "body: %s", rec.Body.String())
	return rec.Code, res
}

func TestAPI_LoginFlow(t *testing.T) {
	h := newAPI(t)

	code, res := post(t, h, PathUsers, `{"user_id":"alice","password":"p1"}`)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, res.Succeeded)

	code, res = post(t, h, PathLogin, `{"user_id":"alice","password":"p1"}`)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, res.Succeeded)

	code, res = post(t, h, PathLogin, `{"user_id":"alice","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, string(auth.KindAuth), res.Kind)
	assert.Equal(t, int(auth.CodeAuthFailed), res.Code)

	code, res = post(t, h, PathLogin, `{"user_id":"bob","password":"p1"}`)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, int(auth.CodeUserNotFound), res.Code)
}

func TestAPI_PasswordResetFlow(t *testing.T) {
	h := newAPI(t)
	post(t, h, PathUsers, `{"user_id":"alice","password":"p1"}`)

	code, res := post(t, h, PathResetRequest, `{"user_id":"alice"}`)
	require.Equal(t, http.StatusOK, code)
	token, ok := res.Payload["token"].(string)
	require.True(t, ok)
	assert.Len(t, token, 64)
	assert.NotEmpty(t, res.Payload["expires_at"])

	code, _ = post(t, h, PathResetVerify, `{"user_id":"alice","reset_token":"`+token+`"}`)
	assert.Equal(t, http.StatusOK, code)

	code, _ = post(t, h, PathResetComplete, `{"user_id":"alice","reset_token":"`+token+`","new_password":"p2"}`)
	assert.Equal(t, http.StatusOK, code)

	code, res = post(t, h, PathResetComplete, `{"user_id":"alice","reset_token":"`+token+`","new_password":"p3"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, string(auth.KindToken), res.Kind)
	assert.Equal(t, int(auth.CodeInvalidToken), res.Code)

	code, _ = post(t, h, PathLogin, `{"user_id":"alice","password":"p2"}`)
	assert.Equal(t, http.StatusOK, code)
}

func TestAPI_DeleteUser(t *testing.T) {
	h := newAPI(t)
	post(t, h, PathUsers, `{"user_id":"alice","password":"p1"}`)

	code, _ := post(t, h, PathDeleteUser, `{"user_id":"alice"}`)
	assert.Equal(t, http.StatusOK, code)

	code, res := post(t, h, PathDeleteUser, `{"user_id":"alice"}`)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, string(auth.KindNotFound), res.Kind)
}

func TestAPI_ValidationFailures(t *testing.T) {
	h := newAPI(t)

	tests := []struct {
		name     string
		path     string
		body     string
		wantCode auth.ErrorCode
	}{
		{"malformed json", PathLogin, `{"user_id":`, auth.CodeInvalidFormat},
		{"wrong field type", PathUsers, `{"user_id":42,"password":"p"}`, auth.CodeInvalidFormat},
		{"missing password", PathLogin, `{"user_id":"alice"}`, auth.CodeRequiredFieldMissing},
		{"empty body", PathResetRequest, `{}`, auth.CodeRequiredFieldMissing},
		{"missing token", PathResetComplete, `{"user_id":"alice","new_password":"x"}`, auth.CodeRequiredFieldMissing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, res := post(t, h, tt.path, tt.body)

			assert.Equal(t, http.StatusBadRequest, code)
			assert.False(t, res.Succeeded)
			assert.Equal(t, string(auth.KindValidation), res.Kind)
			assert.Equal(t, int(tt.wantCode), res.Code)
		})
	}
}

func TestAPI_DuplicateUser(t *testing.T) {
	h := newAPI(t)
	post(t, h, PathUsers, `{"user_id":"alice","password":"p1"}`)

	code, res := post(t, h, PathUsers, `{"user_id":"alice","password":"p2"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, int(auth.CodeValidationError), res.Code)
	assert.Equal(t, "user already exists", res.Message)
}

type fixedService struct{ res auth.Result }

func (f fixedService) AddUser(context.Context, string, string) auth.Result {
	return f.res
}

func (f fixedService) DeleteUser(context.Context, string) auth.Result {
	return f.res
}

func (f fixedService) Login(context.Context, string, string) auth.Result {
	return f.res
}

func (f fixedService) RequestPasswordReset(context.Context, string) auth.Result {
	return f.res
}

func (f fixedService) VerifyResetToken(context.Context, string, string) auth.Result {
	return f.res
}

func (f fixedService) ResetPassword(context.Context, string, string, string) auth.Result {
	return f.res
}

func TestAPI_StorageFailureIs500(t *testing.T) {
	h := NewHandler(fixedService{res: auth.Failure(auth.CodeDatabaseError, "")}, nil)

	code, res := post(t, h, PathLogin, `{"user_id":"alice","password":"p"}`)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, string(auth.KindStorage), res.Kind)
}

func TestAPI_RequestIDHeader(t *testing.T) {
	h := newAPI(t)

	req := httptest.NewRequest(http.MethodPost, PathLogin, strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Len(t, rec.Header().Get(echo.HeaderXRequestID), 26)

	req = httptest.NewRequest(http.MethodPost, PathLogin, strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(echo.HeaderXRequestID, "client-id")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "client-id", rec.Header().Get(echo.HeaderXRequestID))
}

func TestAPI_MethodNotAllowed(t *testing.T) {
	rec := httptest.NewRecorder()
	newAPI(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, PathLogin, nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		res  auth.Result
		want int
	}{
		{auth.Success(nil), http.StatusOK},
		{auth.Failure(auth.CodeRequiredFieldMissing, ""), http.StatusBadRequest},
		{auth.Failure(auth.CodeExpiredToken, ""), http.StatusBadRequest},
		{auth.Failure(auth.CodeAuthFailed, ""), http.StatusUnauthorized},
		{auth.Failure(auth.CodeUserNotFound, ""), http.StatusNotFound},
		{auth.Failure(auth.CodeDatabaseQueryError, ""), http.StatusInternalServerError},
		{auth.Failure(auth.CodeConfigMissing, ""), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.res.Code.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.res))
		})
	}
}
