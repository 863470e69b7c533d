package logging

import (
	"strings"

	"go.uber.org/zap/zapcore"
)

// LevelFor resolves LOG_LEVEL. An empty or unknown value means debug in
// development mode and info otherwise.
func LevelFor(levelStr string, isDevelopment bool) zapcore.Level {
	defaultLevel := zapcore.InfoLevel
	if isDevelopment {
		defaultLevel = zapcore.DebugLevel
	}
	return ParseLogLevelString(levelStr, defaultLevel)
}

// ParseLogLevelString parses debug, info, warn(ing), error or fatal, case-insensitively.
func ParseLogLevelString(levelStr string, defaultLevel zapcore.Level) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return defaultLevel
	}
}
