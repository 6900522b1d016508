// Package logging configures the zap logger shared by abm commands.
//
// abm is an interactive CLI, so the default output is a human-readable
// console encoder on stderr at warn level; diagnostics are opted into
// with ABM_LOG_LEVEL, and machine-readable JSON with ABM_LOG_FORMAT=json.
package logging

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config controls logger construction.
type Config struct {
	// Level is one of debug, info, warn, error.
	Level string
	// Format is console or json.
	Format string
}

// FromEnv builds a Config from ABM_LOG_LEVEL and ABM_LOG_FORMAT.
func FromEnv() Config {
	cfg := Config{Level: "warn", Format: "console"}
	if v := os.Getenv("ABM_LOG_LEVEL"); v != "" {
		cfg.Level = v
	}
	if v := os.Getenv("ABM_LOG_FORMAT"); v != "" {
		cfg.Format = v
	}
	return cfg
}

// New creates a logger from config. Logs go to stderr so command output
// on stdout stays scriptable.
func New(cfg Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	switch cfg.Format {
	case "", "console":
		encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	case "json":
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	default:
		return nil, fmt.Errorf("invalid log format %q (expected console or json)", cfg.Format)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), level)
	return zap.New(core), nil
}

// Sync flushes the logger, ignoring the harmless EINVAL/ENOTTY errors
// that syncing stderr produces on Linux.
func Sync(logger *zap.Logger) error {
	err := logger.Sync()
	if err == nil {
		return nil
	}
	var errno syscall.Errno
	if errors.As(err, &errno) && (errno == syscall.EINVAL || errno == syscall.ENOTTY) {
		return nil
	}
	return err
}
