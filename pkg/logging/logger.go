// Package logging provides structured logging for studiosync using zerolog.
//
// A run inside the Stash plugin host logs in the host's plugin protocol on
// stderr. Manual CLI runs get console output on a terminal and JSON
// otherwise. Loggers travel in the context and pick up the run, studio and
// source being processed:
//
//	ctx = logging.WithRunID(ctx, runID)
//	ctx = logging.WithStudio(ctx, studio.ID, studio.Name)
//	logging.FromContext(ctx).Debug().Msg("Searching sources")
package logging

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Environment variables read by the default logger before any
// configuration is loaded.
const (
	EnvLevel  = "STUDIOSYNC_LOG_LEVEL"
	EnvFormat = "STUDIOSYNC_LOG_FORMAT"
)

var defaultLogger = NewLoggerFromConfig(&Config{
	Level:  os.Getenv(EnvLevel),
	Format: envOr(EnvFormat, FormatAuto),
})

// Default returns the process-wide logger.
func Default() *zerolog.Logger {
	return &defaultLogger
}

// SetDefault replaces the process-wide logger, including zerolog's global
// log.Logger.
func SetDefault(logger zerolog.Logger) {
	defaultLogger = logger
	log.Logger = logger
}

// With starts a child of the default logger.
func With() zerolog.Context {
	return defaultLogger.With()
}

// Info starts an info event on the default logger.
func Info() *zerolog.Event {
	return defaultLogger.Info()
}

// Warn starts a warning event on the default logger.
func Warn() *zerolog.Event {
	return defaultLogger.Warn()
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
