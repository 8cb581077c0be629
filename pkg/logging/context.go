package logging

import (
	"context"

	"github.com/rs/zerolog"
)

type contextKey int

const (
	loggerKey contextKey = iota
	runIDKey
)

// WithLogger stores logger in ctx.
func WithLogger(ctx context.Context, logger *zerolog.Logger) context.Context {
	if logger == nil {
		logger = Default()
	}
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the logger stored in ctx, or the default logger.
func FromContext(ctx context.Context) *zerolog.Logger {
	if ctx == nil {
		return Default()
	}
	if logger, ok := ctx.Value(loggerKey).(*zerolog.Logger); ok && logger != nil {
		return logger
	}
	return Default()
}

// WithField adds one string field to the logger in ctx.
func WithField(ctx context.Context, key, value string) context.Context {
	logger := FromContext(ctx).With().Str(key, value).Logger()
	return WithLogger(ctx, &logger)
}

// WithRunID tags ctx, and the logger in it, with a sync run id.
func WithRunID(ctx context.Context, runID string) context.Context {
	return WithField(context.WithValue(ctx, runIDKey, runID), "run_id", runID)
}

// RunID returns the sync run id stored in ctx.
func RunID(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey).(string)
	return id
}

// WithStudio adds the local studio being reconciled.
func WithStudio(ctx context.Context, studioID, name string) context.Context {
	logger := FromContext(ctx).With().Str("studio_id", studioID).Str("studio", name).Logger()
	return WithLogger(ctx, &logger)
}

// WithSource adds the source being searched.
func WithSource(ctx context.Context, source string) context.Context {
	return WithField(ctx, "source", source)
}
