// Package config resolves the demo's settings from the environment and an
// optional .env file, and builds its logger.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

const (
	defaultDBPath  = "tableforms.db"
	defaultLogFile = "tableforms.log"
)

// Environment variables read by Load
const (
	EnvDB       = "FORMS_DB"
	EnvForm     = "FORMS_FORM"
	EnvLogLevel = "FORMS_LOG_LEVEL"
	EnvLogFile  = "FORMS_LOG_FILE"
)

// Config holds the resolved settings
type Config struct {
	DBPath   string
	FormPath string
	LogLevel log.Level
	LogFile  string
}

// Load reads .env files (missing ones are ignored) and the FORMS_*
// environment variables
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		_ = godotenv.Load()
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	cfg := Config{
		DBPath:   envOr(EnvDB, defaultDBPath),
		FormPath: os.Getenv(EnvForm),
		LogLevel: log.InfoLevel,
		LogFile:  envOr(EnvLogFile, defaultLogFile),
	}
	if lvl := os.Getenv(EnvLogLevel); lvl != "" {
		parsed, err := ParseLevel(lvl)
		if err != nil {
			return Config{}, err
		}
		cfg.LogLevel = parsed
	}
	return cfg, nil
}

// ParseLevel accepts the charmbracelet/log level names
func ParseLevel(s string) (log.Level, error) {
	lvl, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return log.InfoLevel, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return lvl, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// NewLogger creates the application logger. The terminal belongs to the
// UI, so records go to LogFile; "-" means stderr and "" discards them.
// The returned closer releases the file.
func (c Config) NewLogger() (*log.Logger, io.Closer, error) {
	var (
		w      io.Writer
		closer io.Closer = io.NopCloser(nil)
	)
	switch c.LogFile {
	case "":
		w = io.Discard
	case "-":
		w = os.Stderr
	default:
		if dir := filepath.Dir(c.LogFile); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
			}
		}
		f, err := os.OpenFile(c.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		w, closer = f, f
	}

	logger := log.NewWithOptions(w, log.Options{
		Level:           c.LogLevel,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          "forms",
	})
	return logger, closer, nil
}
