// Package logger builds the process slog.Logger and holds small attribute helpers.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

const (
	FormatJSON = "json"
	FormatText = "text"
)

// New returns a logger writing to w. format is "json" or "text"; level is a
// slog level name such as "debug" or "warn".
func New(format, level string, w io.Writer) (*slog.Logger, error) {
	var lvl slog.Level
	if level != "" {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
	}

	switch strings.ToLower(format) {
	case "", FormatJSON:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})), nil
	case FormatText:
		opts := *DefaultOptions
		opts.Level = lvl
		return slog.New(NewHandler(w, &opts)), nil
	}
	return nil, fmt.Errorf("invalid log format %q", format)
}

// Err is the attribute used for errors. Its text goes through Redact.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", Redact(err.Error()))
}

// Discard returns a logger that drops everything. Handy in tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
