// Package logging builds the process logger and names the fields shared
// across packages.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Common field names for consistent logging.
const (
	FieldProvider = "provider"
	FieldRunID    = "run_id"
	FieldPath     = "path"
	FieldEvents   = "events"
	FieldShifts   = "shifts"
	FieldSessions = "sessions"
	FieldTokens   = "tokens"
	FieldState    = "state"
	FieldWorkers  = "workers"
)

// New creates a logger writing to w. format is "json" or "console"
// (default console).
func New(w io.Writer, level zerolog.Level, format string) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	if format != "json" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// ParseLevel converts a string log level to a zerolog level.
// Unknown values fall back to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}
