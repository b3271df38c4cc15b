// Package logging builds the mailer's slog.Logger per §4.8: strict
// level-equality gating (preserved from the source rather than corrected —
// see SPEC_FULL.md §D.3), sensitive-field masking, and a choice of JSON or
// line-oriented text output to a file destination. Shaped after the
// teacher's cmd/mailit/main.go setupLogger and internal/observability's
// handler-wrapping pattern (slog_handler.go).
package logging

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/sendbridge/mailer/internal/observability"
)

// Config mirrors the logging block of §3's configuration.
type Config struct {
	Level        string // debug, info, warn, error
	Format       string // json, text
	CustomFields []string
	Destination  string // absolute or cwd-relative path; empty discards all log output
}

// sensitiveKeys are masked case-insensitively wherever they appear as an
// attribute key, per §4.8.
var sensitiveKeys = map[string]struct{}{
	"password": {},
	"auth":     {},
	"token":    {},
	"key":      {},
}

// New builds the logger described by cfg. If cfg.Destination is empty,
// logging silently no-ops; if it is set but cannot be opened, a single
// warning is written to stderr and logging silently no-ops thereafter
// (§4.8) — callers still get a usable *no-op* logger rather than a nil one
// or a construction error.
func New(cfg Config) *slog.Logger {
	level := parseLevel(cfg.Level)

	var out *os.File
	if cfg.Destination != "" {
		f, err := openDestination(cfg.Destination)
		if err != nil {
			fmt.Fprintf(os.Stderr, "logging: destination %q unavailable, discarding log output: %v\n", cfg.Destination, err)
			out = nil
		} else {
			out = f
		}
	}

	var sink slog.Handler
	if out == nil {
		sink = slog.NewJSONHandler(discardWriter{}, &slog.HandlerOptions{Level: level})
	} else {
		sink = newFormatHandler(out, cfg.Format, level)
	}

	handler := &maskingHandler{
		inner:        sink,
		level:        level,
		customFields: cfg.CustomFields,
	}

	return slog.New(observability.NewTracingHandler(handler))
}

func openDestination(path string) (*os.File, error) {
	resolved := path
	if !filepath.IsAbs(resolved) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		resolved = filepath.Join(cwd, resolved)
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(resolved, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
}

func newFormatHandler(out *os.File, format string, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(format) {
	case "text":
		return &textLineHandler{out: out, opts: opts}
	default:
		return slog.NewJSONHandler(out, opts)
	}
}

// parseLevel maps the four configured names to slog levels, defaulting to
// info for anything unrecognized — matching the teacher's setupLogger.
func parseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
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

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
