// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AuthLib Contributors

package main

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/samber/oops"
	"gopkg.in/yaml.v3"

	"github.com/authlib/authlib/internal/auth"
)

// Output formats.
const (
	formatJSON = "json"
	formatYAML = "yaml"
)

// errOperationFailed is returned after printing a failed Result so the
// process exits non-zero.
var errOperationFailed = errors.New("operation failed")

func checkFormat(format string) error {
	switch format {
	case formatJSON, formatYAML:
		return nil
	default:
		return oops.Code("CONFIG_INVALID").
			With("output", format).
			Errorf("output must be 'json' or 'yaml', got %q", format)
	}
}

// writeValue renders v in the requested format.
func writeValue(w io.Writer, format string, v any) error {
	switch format {
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return oops.With("format", format).Wrap(err)
		}
		return oops.Wrap(enc.Close())
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return oops.With("format", formatJSON).Wrap(enc.Encode(v))
	}
}

// printResult prints res and maps a failed Result to errOperationFailed.
func printResult(w io.Writer, format string, res auth.Result) error {
	if err := writeValue(w, format, res); err != nil {
		return err
	}
	if !res.Succeeded {
		return errOperationFailed
	}
	return nil
}
