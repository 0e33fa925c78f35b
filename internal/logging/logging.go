// Package logging provides structured logging with file rotation.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds logging configuration.
type Config struct {
	Level      string    // Log level: debug, info, warn, error
	FilePath   string    // Path to log file (empty = Writer)
	MaxSizeMB  int       // Max size in MB before rotation
	MaxBackups int       // Max number of old log files to retain
	MaxAgeDays int       // Max age in days to retain old log files
	Compress   bool      // Whether to compress rotated files
	Writer     io.Writer // Destination without FilePath (nil = stderr)
}

// DefaultConfig returns defaults for logging. Only warnings and errors are
// shown so that a normal run prints nothing but its report.
func DefaultConfig() Config {
	return Config{
		Level:      "warn",
		FilePath:   "",
		MaxSizeMB:  10,
		MaxBackups: 3,
		MaxAgeDays: 28,
		Compress:   true,
	}
}

// Setup initializes the global slog logger with the given configuration.
// Returns a cleanup function that should be called on shutdown.
func Setup(cfg Config) (func() error, error) {
	opts := &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
	}

	writer := cfg.Writer
	if writer == nil {
		writer = os.Stderr
	}
	cleanup := func() error { return nil }

	if cfg.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
			return nil, err
		}

		lj := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
			LocalTime:  true,
		}
		writer = lj
		cleanup = lj.Close
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(writer, opts)))

	return cleanup, nil
}

// ValidLevel reports whether s names a level Setup understands.
func ValidLevel(s string) bool {
	switch strings.ToLower(s) {
	case "debug", "info", "warn", "warning", "error":
		return true
	}
	return false
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
