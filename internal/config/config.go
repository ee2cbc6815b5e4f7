// Package config loads the small set of process-wide settings shared by
// both the broadcaster and player binaries: an optional .env file and the
// log verbosity, following the teacher's godotenv.Load()-then-flags
// pattern rather than a full env-var schema (neither binary takes enough
// configuration to warrant one).
package config

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

// Load reads a .env file from the working directory if present. A missing
// file is not an error; godotenv.Load already treats it that way.
func Load() {
	_ = godotenv.Load()
}

// LogLevel resolves FOUNDRY_LOG_LEVEL (debug|info|warn|error) to a slog
// level, defaulting to info.
func LogLevel() slog.Level {
	switch os.Getenv("FOUNDRY_LOG_LEVEL") {
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

// NewLogger builds the process-wide structured logger, text-formatted to
// stderr like the teacher's runner/server logging.
func NewLogger() *slog.Logger {
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: LogLevel()})
	return slog.New(h)
}
