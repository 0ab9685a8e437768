package main

import (
	"io"
	"log/slog"
)

// newLogger creates a new slog.Logger that writes to the given writer.
// It does not modify the global logger state.
func newLogger(verbose bool, outW io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	handlerOpts := &slog.HandlerOptions{
		Level: level,
	}

	return slog.New(slog.NewTextHandler(outW, handlerOpts))
}
