// Package logging provides structured, leveled logging for the MCP server.
package logging

import (
	"io"
	"log/slog"
	"os"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls how the process-wide logger is constructed.
type Config struct {
	// Level is the minimum level emitted: "debug", "info", "warn"/"warning", "error", or "critical".
	Level string

	// FilePath, if set, receives rotated JSON log lines in addition to stdout.
	FilePath string

	// MaxSizeMB is the rotation threshold for FilePath (lumberjack MaxSize).
	MaxSizeMB int

	// MaxBackups is the number of rotated files to retain.
	MaxBackups int

	// MaxAgeDays is the max age in days of a rotated file before deletion.
	MaxAgeDays int
}

// DefaultConfig returns sane logging defaults for a production deployment.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		MaxSizeMB:  100,
		MaxBackups: 5,
		MaxAgeDays: 14,
	}
}

// LevelCritical sits above slog's built-in levels, for the
// {debug,info,warning,error,critical} level enum's top severity.
const LevelCritical = slog.Level(12)

func levelFromString(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "critical":
		return LevelCritical
	default:
		return slog.LevelInfo
	}
}

// New builds a *slog.Logger per cfg. When FilePath is empty it logs to
// stdout only; otherwise it fans out to stdout and a rotating file.
func New(cfg Config) *slog.Logger {
	var w io.Writer = os.Stdout
	if cfg.FilePath != "" {
		rot := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		w = io.MultiWriter(os.Stdout, rot)
	}

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: levelFromString(cfg.Level),
	})
	return slog.New(handler)
}

// NewWithWriter builds a logger that writes only to w, useful for tests.
func NewWithWriter(w io.Writer, level string) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: levelFromString(level),
	})
	return slog.New(handler)
}

var (
	globalLogger *slog.Logger
	globalMu     sync.RWMutex
)

// SetGlobal installs the process-wide logger.
func SetGlobal(l *slog.Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = l
}

// Global returns the process-wide logger, falling back to a discarding
// logger if none has been installed yet.
func Global() *slog.Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalLogger != nil {
		return globalLogger
	}
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}
