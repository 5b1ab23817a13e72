package config

import (
	"log/slog"
	"os"
)

// NewLogger builds the process logger from GO_ENV and LOG_LEVEL.
// Production emits JSON records; everywhere else the text handler is
// used.
func NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: logLevel()}
	if os.Getenv("GO_ENV") == "production" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// logLevel maps LOG_LEVEL (debug, info, warn, error) to a slog level,
// defaulting to info.
func logLevel() slog.Level {
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
