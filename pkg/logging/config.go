package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/studiosync/pkg/constants"
)

// Log formats.
const (
	FormatAuto    = "auto"
	FormatJSON    = "json"
	FormatConsole = "console"
	FormatPretty  = "pretty"
	// FormatStash writes the Stash plugin log protocol so the host shows
	// each line at its level.
	FormatStash = "stash"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum level: trace, debug, info, warn, error or off.
	Level string
	// Format is one of the Format constants. Auto picks console on a
	// terminal and JSON otherwise.
	Format string
	// Output is stderr, stdout, discard or a file path.
	Output string
	// TimeFormat is kitchen, rfc3339, log or a Go layout.
	TimeFormat string
	NoColor    bool
	AddCaller  bool
}

// NewLoggerFromConfig builds a logger from cfg. A file output that cannot be
// opened falls back to stderr.
func NewLoggerFromConfig(cfg *Config) zerolog.Logger {
	if cfg == nil {
		cfg = &Config{}
	}
	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	ctx := zerolog.New(newWriter(cfg)).Level(level).With().Timestamp()
	if cfg.AddCaller || level <= zerolog.DebugLevel {
		ctx = ctx.Caller()
	}
	return ctx.Logger()
}

// Configure replaces the default logger with one built from cfg.
func Configure(cfg *Config) {
	SetDefault(NewLoggerFromConfig(cfg))
}

func newWriter(cfg *Config) io.Writer {
	out, file := openOutput(cfg.Output)

	format := strings.ToLower(cfg.Format)
	if format == "" || format == FormatAuto {
		format = FormatJSON
		if file != nil && isTerminal(file) {
			format = FormatConsole
		}
	}

	switch format {
	case FormatConsole, FormatPretty:
		return zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: timeLayout(cfg.TimeFormat),
			NoColor:    cfg.NoColor || os.Getenv("NO_COLOR") != "",
		}
	case FormatStash:
		return stashWriter(out)
	default:
		return out
	}
}

// openOutput returns the writer for output and, when it is a file, the file
// for terminal detection.
func openOutput(output string) (io.Writer, *os.File) {
	switch strings.ToLower(output) {
	case "", "stderr":
		return os.Stderr, os.Stderr
	case "stdout":
		return os.Stdout, os.Stdout
	case "discard", "none":
		return io.Discard, nil
	}

	if dir := filepath.Dir(output); dir != "." {
		_ = os.MkdirAll(dir, constants.DirPermissions)
	}
	f, err := os.OpenFile(output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, constants.FilePermissions)
	if err != nil {
		return os.Stderr, os.Stderr
	}
	return f, f
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "", "info":
		return zerolog.InfoLevel
	case "warning":
		return zerolog.WarnLevel
	case "off", "none":
		return zerolog.Disabled
	}
	if l, err := zerolog.ParseLevel(strings.ToLower(level)); err == nil {
		return l
	}
	return zerolog.InfoLevel
}

func timeLayout(format string) string {
	switch strings.ToLower(format) {
	case "", "kitchen":
		return time.Kitchen
	case "rfc3339":
		return time.RFC3339
	case "log":
		return constants.TimeFormatLog
	}
	if strings.Contains(format, "2006") || strings.Contains(format, "15:04") {
		return format
	}
	return time.Kitchen
}
