// Package log builds the process-wide console logger. Handlers and services
// receive the *zerolog.Logger built here and attach their own fields.
package log

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New builds a console logger at the given level (debug, info, warn, error).
// An unknown level falls back to info instead of failing startup, so a bad
// log_level config value never takes the server down.
func New(level string) *zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	logger := zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}).Level(ParseLevel(level)).With().Timestamp().Logger()
	return &logger
}

// ParseLevel resolves a config level string to a zerolog level, defaulting
// to info.
func ParseLevel(level string) zerolog.Level {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "warning" {
		level = "warn"
	}
	parsed, err := zerolog.ParseLevel(level)
	if err != nil || parsed == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return parsed
}
