package app

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/agentstation/studiosync/pkg/logging"
)

// NewLogger builds the process logger from config. An explicit --log-level
// (or STUDIOSYNC_LOG_LEVEL) beats --quiet, which beats --verbose.
func NewLogger(config *Config) zerolog.Logger {
	level := determineLogLevel(config)
	verbose := level == zerolog.LevelDebugValue || level == zerolog.LevelTraceValue
	return logging.NewLoggerFromConfig(&logging.Config{
		Level:      level,
		Format:     config.LogFormat,
		Output:     config.LogOutput,
		TimeFormat: "rfc3339",
		NoColor:    config.NoColor,
		AddCaller:  verbose,
	})
}

func determineLogLevel(config *Config) string {
	switch {
	case config.LogLevel != "":
		lvl, err := zerolog.ParseLevel(config.LogLevel)
		if err != nil || lvl < zerolog.TraceLevel || lvl > zerolog.ErrorLevel {
			fmt.Fprintf(os.Stderr, "Warning: invalid log level %q, using %q\n", config.LogLevel, zerolog.LevelInfoValue)
			return zerolog.LevelInfoValue
		}
		return lvl.String()
	case config.Quiet:
		if config.Verbose {
			fmt.Fprintln(os.Stderr, "Warning: both --verbose and --quiet specified, using --quiet")
		}
		return zerolog.LevelWarnValue
	case config.Verbose:
		return zerolog.LevelDebugValue
	}
	return zerolog.LevelInfoValue
}
