// Package logging builds the zerolog loggers used by commands and the TUI.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// Console returns a human-readable logger on w
func Console(w io.Writer, level string) zerolog.Logger {
	out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	return zerolog.New(out).Level(parseLevel(level)).With().Timestamp().Logger()
}

// File returns a JSON-lines logger appending to path, for when the terminal
// belongs to the TUI. The returned closer must be closed on exit.
func File(path, level string) (zerolog.Logger, io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return zerolog.New(f).Level(parseLevel(level)).With().Timestamp().Logger(), f, nil
}

func parseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		return zerolog.InfoLevel
	}
	return lvl
}
