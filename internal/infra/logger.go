package infra

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogFileOptions configures the optional rotating log file sink.
type LogFileOptions struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// NewLogger constructs a zerolog.Logger with sane defaults for the service.
// Extra sinks receive the same JSON records as stdout.
func NewLogger(appEnv string, sinks ...io.Writer) zerolog.Logger {
	level := zerolog.InfoLevel
	if appEnv == "development" {
		level = zerolog.DebugLevel
	}

	var stdout io.Writer = os.Stdout
	if appEnv == "development" {
		stdout = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	var out io.Writer = stdout
	if len(sinks) > 0 {
		writers := append([]io.Writer{stdout}, sinks...)
		out = zerolog.MultiLevelWriter(writers...)
	}

	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// NewRotatingFile returns a size-rotated log file writer, or nil when no path is set.
func NewRotatingFile(opts LogFileOptions) io.WriteCloser {
	if opts.Path == "" {
		return nil
	}
	return &lumberjack.Logger{
		Filename:   opts.Path,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   true,
	}
}

// Logger aliases the zerolog.Logger so callers outside the infra package can
// depend on the logging contract without importing the third-party module
// directly.
type Logger = zerolog.Logger

// NopLogger returns a logger that discards everything; handy for tests and
// optional dependencies.
func NopLogger() Logger {
	return zerolog.Nop()
}
