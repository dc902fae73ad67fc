// Package logger provides structured logging configuration for the gateway.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// LogFormat represents the output format for logs
type LogFormat string

const (
	// FormatJSON outputs logs in JSON format (production default)
	FormatJSON LogFormat = "json"
	// FormatText outputs logs in human-readable text format (development default)
	FormatText LogFormat = "text"
)

// Options configures New
type Options struct {
	Level   slog.Level
	Format  LogFormat
	Output  io.Writer
	Service string
}

// OptionsFromEnv reads LOG_LEVEL and LOG_FORMAT.
//
// LOG_LEVEL options: debug, info, warn, error (default: info)
// LOG_FORMAT options: json, text (default: json)
func OptionsFromEnv(service string) Options {
	return Options{
		Level:   ParseLevel(os.Getenv("LOG_LEVEL")),
		Format:  ParseFormat(os.Getenv("LOG_FORMAT")),
		Output:  os.Stdout,
		Service: service,
	}
}

// New creates a structured logger. Every record carries the service name
// when one is set.
func New(opts Options) *slog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	handlerOpts := &slog.HandlerOptions{
		Level: opts.Level,
		// Add source location for error and warn levels
		AddSource: opts.Level >= slog.LevelWarn,
	}

	var handler slog.Handler
	switch opts.Format {
	case FormatText:
		handler = slog.NewTextHandler(out, handlerOpts)
	default:
		handler = slog.NewJSONHandler(out, handlerOpts)
	}

	log := slog.New(handler)
	if opts.Service != "" {
		log = log.With("service_name", opts.Service)
	}
	return log
}

// ParseLevel maps a level name to slog.Level, defaulting to info
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseFormat maps a format name to LogFormat, defaulting to JSON
func ParseFormat(s string) LogFormat {
	if strings.ToLower(strings.TrimSpace(s)) == "text" {
		return FormatText
	}
	return FormatJSON
}

// SetDefault sets the given logger as the default slog logger
func SetDefault(logger *slog.Logger) {
	slog.SetDefault(logger)
}
