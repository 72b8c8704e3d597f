package log

import (
	"io"
	"log/slog"
	"strings"
)

// Config represents logging configuration.
type Config struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// DefaultConfig returns default logging configuration.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: "text",
	}
}

// ParseLevel parses string log level to slog.Level.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Build creates a logger from the config without installing it.
func (c Config) Build(w io.Writer) Logger {
	level := ParseLevel(c.Level)
	if strings.ToLower(c.Format) == "json" {
		return NewJSONLogger(w, level)
	}
	return NewTextLogger(w, level)
}

// Configure sets up the default logger based on config.
func Configure(cfg Config, w io.Writer) Logger {
	l := cfg.Build(w)
	SetDefault(l)
	return l
}
