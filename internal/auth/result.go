// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AuthLib Contributors

package auth

import "maps"

// Payload keys set by service operations.
const (
	PayloadToken     = "token"
	PayloadExpiresAt = "expires_at"
	PayloadValue     = "value"
)

// Result is the outcome of a service operation. A Result is either a success
// (Kind and Code empty) or a failure; it never describes partial success.
type Result struct {
	Succeeded bool           `json:"succeeded" yaml:"succeeded"`
	Kind      ErrorKind      `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
	Code      ErrorCode      `json:"error_code,omitempty" yaml:"error_code,omitempty"`
	Message   string         `json:"message,omitempty" yaml:"message,omitempty"`
	Payload   map[string]any `json:"payload,omitempty" yaml:"payload,omitempty"`
}

// Success builds a successful Result. payload may be nil.
func Success(payload map[string]any) Result {
	return Result{Succeeded: true, Payload: maps.Clone(payload)}
}

// Failure builds a failed Result for code. An empty message uses the code's default.
func Failure(code ErrorCode, message string) Result {
	if message == "" {
		message = code.Message()
	}
	return Result{Kind: code.Kind(), Code: code, Message: message}
}

// Token returns the reset token carried by a successful reset request, or "".
func (r Result) Token() string {
	s, _ := r.Payload[PayloadToken].(string)
	return s
}

// Value returns the payload value stored under key.
func (r Result) Value(key string) (any, bool) {
	v, ok := r.Payload[key]
	return v, ok
}

// Is reports whether r failed with code.
func (r Result) Is(code ErrorCode) bool {
	return !r.Succeeded && r.Code == code
}
