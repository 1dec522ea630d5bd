package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// newLogger writes JSON lines to path. The TUI owns the terminal, so nothing
// is logged to stdout or stderr once the UI is running. An empty path
// discards everything.
func newLogger(path, level string) (zerolog.Logger, func() error, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	if strings.TrimSpace(path) == "" {
		return zerolog.Nop(), func() error { return nil }, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("create log dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("open log file: %w", err)
	}

	logger := zerolog.New(file).
		Level(lvl).
		With().
		Timestamp().
		Str("component", "clinicflow").
		Logger()
	return logger, file.Close, nil
}

// stderrLogger is used before the log file is known, so configuration
// failures still reach the operator.
func stderrLogger() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		With().
		Timestamp().
		Logger()
}
