// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AuthLib Contributors

// Package errutil holds helpers for logging and asserting oops errors.
package errutil

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samber/oops"
)

// LogError logs err at ERROR level, expanding oops code and context when present.
func LogError(logger *slog.Logger, msg string, err error, attrs ...any) {
	log(context.Background(), logger, slog.LevelError, msg, err, attrs...)
}

// LogErrorContext is LogError with a context, so trace IDs reach the record.
func LogErrorContext(ctx context.Context, logger *slog.Logger, msg string, err error, attrs ...any) {
	log(ctx, logger, slog.LevelError, msg, err, attrs...)
}

// LogWarn is LogError at WARN level. Used for failures the caller tolerates.
func LogWarn(ctx context.Context, logger *slog.Logger, msg string, err error, attrs ...any) {
	log(ctx, logger, slog.LevelWarn, msg, err, attrs...)
}

func log(ctx context.Context, logger *slog.Logger, level slog.Level, msg string, err error, attrs ...any) {
	if logger == nil {
		logger = slog.Default()
	}
	all := make([]any, 0, len(attrs)+6)
	all = append(all, attrs...)
	if oopsErr, ok := oops.AsOops(err); ok {
		all = append(all, "error", oopsErr.Error())
		if code := Code(err); code != "" {
			all = append(all, "code", code)
		}
		if octx := oopsErr.Context(); len(octx) > 0 {
			all = append(all, "context", octx)
		}
	} else {
		all = append(all, "error", err)
	}
	logger.Log(ctx, level, msg, all...)
}

// Code returns the oops code carried by err, or "" when err is not an oops error.
func Code(err error) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	code := oopsErr.Code()
	if code == nil {
		return ""
	}
	if s, ok := code.(string); ok {
		return s
	}
	return fmt.Sprint(code)
}
