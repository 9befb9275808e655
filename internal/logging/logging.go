// Package logging provides structured logging for the ark CLI.
//
// Loggers are zerolog instances carried through context.Context so that
// library packages never reach for a global. The root command builds one
// logger at startup and every component derives from it via
// ComponentLogger.
package logging

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Config controls logger construction.
type Config struct {
	// Level is a zerolog level string ("debug", "info", ...). Unparseable
	// values fall back to info.
	Level string

	// Format is "console" or "json". Console output goes through
	// zerolog.ConsoleWriter with RFC3339 timestamps.
	Format string

	// File, when set, duplicates output to the named file in append mode.
	File string
}

// FormatConsole and FormatJSON are the accepted Config.Format values.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// New builds a logger from cfg. The returned closer releases the log file
// handle when file output is enabled; it is a no-op otherwise.
func New(cfg Config) (zerolog.Logger, func() error, error) {
	lvl, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	var writers []io.Writer
	if cfg.Format == FormatJSON {
		writers = append(writers, os.Stderr)
	} else {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		})
	}

	closer := func() error { return nil }
	if cfg.File != "" {
		f, fileErr := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
		if fileErr != nil {
			return zerolog.Nop(), nil, fileErr
		}
		writers = append(writers, f)
		closer = f.Close
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(lvl).
		With().
		Timestamp().
		Logger()

	return logger, closer, nil
}

// ComponentLogger returns a child logger tagged with a component field.
func ComponentLogger(logger zerolog.Logger, component string) zerolog.Logger {
	return logger.With().Str("component", component).Logger()
}

// WithContext stores logger in ctx for later retrieval with FromContext.
func WithContext(ctx context.Context, logger zerolog.Logger) context.Context {
	return logger.WithContext(ctx)
}

// FromContext returns the logger stored in ctx, or a disabled logger when
// none was attached.
func FromContext(ctx context.Context) *zerolog.Logger {
	return zerolog.Ctx(ctx)
}
