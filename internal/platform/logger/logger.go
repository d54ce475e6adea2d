package logger

import (
	"log/slog"
	"os"
)

// New returns the root structured logger. Level defaults to info and can be
// raised to debug with TESSERA_LOG_DEBUG=true.
func New() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("TESSERA_LOG_DEBUG") == "true" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
