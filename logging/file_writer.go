package logging

import (
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation defaults for the run log. Design batches are short-lived, so the
// limits are smaller than a long-running service would use.
const (
	DefaultMaxSizeMB  = 20
	DefaultMaxBackups = 3
	DefaultMaxAgeDays = 14
)

// FileWriterConfig controls log file rotation. Zero values fall back to the defaults.
type FileWriterConfig struct {
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
	LocalTime  bool
}

// DefaultFileWriterConfig returns the rotation settings used by NewLogger.
func DefaultFileWriterConfig() FileWriterConfig {
	return FileWriterConfig{
		MaxSizeMB:  DefaultMaxSizeMB,
		MaxBackups: DefaultMaxBackups,
		MaxAgeDays: DefaultMaxAgeDays,
		Compress:   true,
		LocalTime:  true,
	}
}

// NewFileWriter returns a rotating WriteSyncer backed by lumberjack.
func NewFileWriter(path string, config FileWriterConfig) zapcore.WriteSyncer {
	cfg := applyFileWriterDefaults(config)
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
		LocalTime:  cfg.LocalTime,
	})
}

func applyFileWriterDefaults(config FileWriterConfig) FileWriterConfig {
	if config.MaxSizeMB <= 0 {
		config.MaxSizeMB = DefaultMaxSizeMB
	}
	if config.MaxBackups <= 0 {
		config.MaxBackups = DefaultMaxBackups
	}
	if config.MaxAgeDays <= 0 {
		config.MaxAgeDays = DefaultMaxAgeDays
	}
	return config
}
