package common

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// SetupLogging installs a JSON slog handler as the process default.
// The level is read from LOG_LEVEL (debug, info, warn, error).
func SetupLogging() *slog.Logger {
	return setupLogging(os.Stdout, GetEnv("LOG_LEVEL", "info"))
}

func setupLogging(w io.Writer, level string) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)}))
	slog.SetDefault(logger)
	return logger
}

// ParseLevel maps a level name onto slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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
