// Package logging builds the slog loggers used by the rulegen CLI.
//
// Text output goes through charmbracelet/log, JSON output through the
// standard slog JSON handler. Library packages never construct loggers;
// they accept a *slog.Logger and fall back to slog.Default().
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/charmbracelet/log"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Options selects level, format and destination.
type Options struct {
	Level  string // debug, info, warn, error; empty means info
	Format string // text or json; empty means text
	Writer io.Writer
}

// ParseLevel maps a level name onto a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}

// New creates a logger for opts.
func New(opts Options) (*slog.Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	w := opts.Writer
	if w == nil {
		w = io.Discard
	}

	switch strings.ToLower(opts.Format) {
	case "", FormatText:
		handler := log.NewWithOptions(w, log.Options{
			Level:           log.Level(level),
			Prefix:          "rulegen",
			ReportTimestamp: true,
		})
		return slog.New(handler), nil
	case FormatJSON:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", opts.Format)
	}
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
