package app

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/ashutoshgairola/Riddhi-sub001/internal/security"
)

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q (want debug, info, warn or error)", s)
	}
	return level, nil
}

// NewLogger builds the process logger. Every record passes through the
// redactor before reaching w.
func NewLogger(w io.Writer, level slog.Level, format string, redactor *security.Redactor) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{Level: level}

	var inner slog.Handler
	switch strings.ToLower(format) {
	case "", "text":
		inner = slog.NewTextHandler(w, opts)
	case "json":
		inner = slog.NewJSONHandler(w, opts)
	default:
		return nil, fmt.Errorf("invalid log format %q (want text or json)", format)
	}
	return slog.New(security.NewRedactingHandler(inner, redactor)), nil
}
