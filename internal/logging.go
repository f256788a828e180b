package internal

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// NewLogger creates the text logger used across the app. Debug records are
// written only when verbose is set.
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewFileLogger logs to name inside logDir. The stdio MCP transport owns
// stdout, so its logs go to a file instead. If the file cannot be opened the
// returned logger discards everything.
func NewFileLogger(logDir, name string, verbose bool) (*slog.Logger, func() error) {
	noop := func() error { return nil }

	if err := EnsureDirs(logDir); err != nil {
		return slog.New(slog.DiscardHandler), noop
	}

	logFile, err := os.OpenFile(filepath.Join(logDir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return slog.New(slog.DiscardHandler), noop
	}

	return NewLogger(logFile, verbose).With(slog.String("component", "mcp")), logFile.Close
}
