// Package logger builds the process *slog.Logger from the logging config.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

type options struct {
	w         io.Writer
	addSource bool
	attrs     []slog.Attr
}

// Option configures a logger built by New.
type Option func(*options)

// WithWriter sends output to w instead of stderr.
func WithWriter(w io.Writer) Option {
	return func(o *options) {
		o.w = w
	}
}

// WithSource records the caller's file and line on every record.
func WithSource(enabled bool) Option {
	return func(o *options) {
		o.addSource = enabled
	}
}

// WithAttrs attaches attrs to every record, e.g. service name and version.
func WithAttrs(attrs ...slog.Attr) Option {
	return func(o *options) {
		o.attrs = append(o.attrs, attrs...)
	}
}

// New creates a *slog.Logger with the given level and format.
// Level: "debug", "info", "warn", "error" in any case (default: "info").
// Format: "json" or "text" (default: "text").
func New(level, format string, opts ...Option) *slog.Logger {
	o := &options{w: os.Stderr}
	for _, opt := range opts {
		opt(o)
	}

	hopts := &slog.HandlerOptions{
		Level:     ParseLevel(level),
		AddSource: o.addSource,
	}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(o.w, hopts)
	} else {
		handler = slog.NewTextHandler(o.w, hopts)
	}
	if len(o.attrs) > 0 {
		handler = handler.WithAttrs(o.attrs)
	}

	return slog.New(handler)
}

// ParseLevel converts a level string to slog.Level. Unknown values,
// including the empty string, return LevelInfo.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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
