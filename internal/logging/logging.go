// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package logging builds the process logger and the child loggers that
// tag each harvest session.
package logging

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New returns a logger writing to w at level. Format "console" selects
// human-readable output; anything else writes JSON lines.
func New(level, format string, w io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	if strings.EqualFold(format, "console") || strings.EqualFold(format, "pretty") {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	}
	return zerolog.New(w).With().Timestamp().Logger().Level(ParseLevel(level))
}

// ParseLevel maps a level name to zerolog's level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	l, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || l == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return l
}

// WithSession tags a logger with one (site, keyword) session.
func WithSession(logger zerolog.Logger, sessionID, site, keyword string) zerolog.Logger {
	return logger.With().
		Str("session", sessionID).
		Str("site", site).
		Str("keyword", keyword).
		Logger()
}
