// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlexDesk Contributors

// Package errutil bridges oops errors into slog records and test assertions.
package errutil

import (
	"context"
	"log/slog"
	"maps"
	"slices"

	"github.com/samber/oops"
)

// LogError logs err at error level. See Log.
func LogError(logger *slog.Logger, msg string, err error) {
	Log(logger, slog.LevelError, msg, err)
}

// Log writes err to logger at level. Oops errors contribute their code,
// domain, hint and a "context" group whose keys are sorted so records
// for the same failure compare equal. Other errors log only their text.
func Log(logger *slog.Logger, level slog.Level, msg string, err error) {
	if err == nil {
		return
	}
	logger.LogAttrs(context.Background(), level, msg, Attrs(err)...)
}

// Attrs returns the slog attributes describing err.
func Attrs(err error) []slog.Attr {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return []slog.Attr{slog.String("error", err.Error())}
	}

	attrs := []slog.Attr{slog.String("error", oopsErr.Error())}
	if code := oopsErr.Code(); code != nil {
		attrs = append(attrs, slog.Any("code", code))
	}
	if domain := oopsErr.Domain(); domain != "" {
		attrs = append(attrs, slog.String("domain", domain))
	}
	if hint := oopsErr.Hint(); hint != "" {
		attrs = append(attrs, slog.String("hint", hint))
	}
	if ctx := oopsErr.Context(); len(ctx) > 0 {
		group := make([]any, 0, len(ctx))
		for _, k := range slices.Sorted(maps.Keys(ctx)) {
			group = append(group, slog.Any(k, ctx[k]))
		}
		attrs = append(attrs, slog.Group("context", group...))
	}
	return attrs
}
