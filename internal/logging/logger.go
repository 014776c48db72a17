// Package logging builds the process-wide slog logger from CLI options.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

type Options struct {
	Level  string `yaml:"level"`
	File   string `yaml:"file"`
	Format string `yaml:"format"`
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New returns a logger for options and a closer releasing its output file.
// Unparseable values fall back to defaults and the fallback is logged through
// the resulting logger.
func New(options Options) (*slog.Logger, io.Closer) {
	var opts slog.HandlerOptions
	switch strings.ToLower(options.Level) {
	case "", "info":
		opts.Level = slog.LevelInfo
	case "debug":
		opts.Level = slog.LevelDebug
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		bad := options.Level
		options.Level = ""
		logger, closer := New(options)
		logger.Warn("could not parse logger level", "level", bad)
		return logger, closer
	}

	var newHandler func(io.Writer, *slog.HandlerOptions) slog.Handler = func(w io.Writer, o *slog.HandlerOptions) slog.Handler {
		return slog.NewTextHandler(w, o)
	}
	switch strings.ToLower(options.Format) {
	case "json":
		newHandler = func(w io.Writer, o *slog.HandlerOptions) slog.Handler {
			return slog.NewJSONHandler(w, o)
		}
	case "", "text":
	default:
		options.Format = "text"
		logger, closer := New(options)
		logger.Warn("could not parse logger format")
		return logger, closer
	}

	var (
		output io.Writer
		closer io.Closer = nopCloser{}
	)
	switch options.File {
	case "":
		output = os.Stdout
	case os.DevNull:
		return slog.New(slog.DiscardHandler), closer
	default:
		f, err := os.OpenFile(options.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			options.File = ""
			logger, closer := New(options)
			logger.Warn("could not open logger output", "err", err)
			return logger, closer
		}
		output, closer = f, f
	}

	return slog.New(newHandler(output, &opts)), closer
}
