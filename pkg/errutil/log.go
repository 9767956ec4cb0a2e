// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package errutil

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
)

// LogError logs an error at error level with structured context if it's an oops error.
func LogError(logger *slog.Logger, msg string, err error) {
	LogErrorLevel(context.Background(), logger, slog.LevelError, msg, err)
}

// LogErrorContext is LogError with a context, so trace-aware handlers can
// attach span identifiers.
func LogErrorContext(ctx context.Context, logger *slog.Logger, msg string, err error) {
	LogErrorLevel(ctx, logger, slog.LevelError, msg, err)
}

// LogErrorLevel logs err at level.
// For oops errors, it extracts and logs the message, code and context.
// For standard errors, it logs the error string.
func LogErrorLevel(ctx context.Context, logger *slog.Logger, level slog.Level, msg string, err error) {
	attrs := Attrs(err)
	logger.Log(ctx, level, msg, attrs...)
}

// Attrs returns the slog attributes describing err.
func Attrs(err error) []any {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return []any{"error", err}
	}
	attrs := []any{
		"error", oopsErr.Error(),
	}
	if code := oopsErr.Code(); code != nil && code != "" {
		attrs = append(attrs, "code", code)
	}
	if ctx := oopsErr.Context(); len(ctx) > 0 {
		attrs = append(attrs, "context", ctx)
	}
	return attrs
}
