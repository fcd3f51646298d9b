// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package logger

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds the logger configuration
type Config struct {
	Level  string
	Format string
}

// Setup configures the global logger based on the provided config
func Setup(config Config) {
	// Set log level
	level := parseLogLevel(config.Level)
	zerolog.SetGlobalLevel(level)

	// Set log format
	if strings.ToLower(config.Format) == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		// Default to JSON format
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
}

// parseLogLevel converts string level to zerolog level
func parseLogLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel // Default to info
	}
}

// Common log field constants to avoid duplication and typos
const (
	FieldAccount        = "account"
	FieldPackage        = "package"
	FieldVersionID      = "version_id"
	FieldDigest         = "digest"
	FieldTag            = "tag"
	FieldDryRun         = "dry_run"
	FieldReason         = "reason"
	FieldStatusCode     = "status_code"
	FieldEndpoint       = "endpoint"
	FieldTagSelection   = "tag_selection"
	FieldVersionCount   = "version_count"
	FieldDeletedCount   = "deleted_count"
	FieldFailedCount    = "failed_count"
	FieldAttemptedCount = "attempted_count"
	FieldRetryAfter     = "retry_after"
	FieldRunID          = "run_id"
)

// Get returns the global logger
func Get() *zerolog.Logger {
	return &log.Logger
}

// WithRunID returns a logger derived from base that stamps every line with
// a run correlation id, so that a single run's log lines can be grepped out
// of a shared workflow log even when runs overlap.
func WithRunID(base *zerolog.Logger, runID string) *zerolog.Logger {
	l := base.With().Str(FieldRunID, runID).Logger()
	return &l
}