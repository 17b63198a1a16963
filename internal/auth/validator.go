// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AuthLib Contributors

package auth

import (
	"github.com/go-playground/validator/v10"
)

// InputValidator checks request fields before a service operation runs.
type InputValidator interface {
	// RequiredFieldsPresent reports whether every name in required maps to a
	// non-empty value in fields.
	RequiredFieldsPresent(fields map[string]string, required ...string) bool

	// MissingFields returns the required names that are absent or empty, in order.
	MissingFields(fields map[string]string, required ...string) []string
}

// FieldValidator is the default InputValidator, backed by go-playground/validator.
type FieldValidator struct {
	validate *validator.Validate
}

// NewFieldValidator creates a FieldValidator.
func NewFieldValidator() *FieldValidator {
	return &FieldValidator{validate: validator.New(validator.WithRequiredStructEnabled())}
}

// RequiredFieldsPresent reports whether all required fields are non-empty.
func (v *FieldValidator) RequiredFieldsPresent(fields map[string]string, required ...string) bool {
	return len(v.MissingFields(fields, required...)) == 0
}

// MissingFields returns the required fields that are absent or empty.
func (v *FieldValidator) MissingFields(fields map[string]string, required ...string) []string {
	var missing []string
	for _, name := range required {
		if err := v.validate.Var(fields[name], "required"); err != nil {
			missing = append(missing, name)
		}
	}
	return missing
}

// keyValidate checks metadata keys. Validate instances cache tag parsing and
// are safe for concurrent use.
var keyValidate = validator.New()

// ValidMetadataKey reports whether key can be stored by every backend:
// non-empty, at most 64 characters, and free of '.' and '$'.
func ValidMetadataKey(key string) bool {
	return keyValidate.Var(key, "required,max=64,excludesall=.$") == nil
}

var _ InputValidator = (*FieldValidator)(nil)
