// Package logging wraps zap with the conventions used across the pipeline:
// a console + rotating file tee, named component loggers and redaction of
// provider credentials before anything reaches a sink.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a thin wrapper around *zap.Logger that redacts secrets.
//
// Example:
//
//	logger, err := logging.NewLogger(true, "trendmerch.log")
//	if err != nil {
//	    return err
//	}
//	defer logger.Sync()
//	logger.Named("inference").Info("request sent", zap.String("model", model))
type Logger struct {
	zap           *zap.Logger
	isDevelopment bool
	logFilePath   string
}

// NewLogger builds a logger writing to stdout and to logFilePath.
// Development mode logs at debug level with a colored console; otherwise info and JSON.
func NewLogger(isDevelopment bool, logFilePath string) (*Logger, error) {
	level := zapcore.InfoLevel
	if isDevelopment {
		level = zapcore.DebugLevel
	}
	return NewLoggerWithConfig(level, isDevelopment, logFilePath, DefaultFileWriterConfig())
}

// NewLoggerWithConfig builds a logger with an explicit level and rotation policy.
func NewLoggerWithConfig(level zapcore.Level, isDevelopment bool, logFilePath string, fileConfig FileWriterConfig) (*Logger, error) {
	core := NewMultiCore(level, logFilePath, isDevelopment, fileConfig)
	return &Logger{
		zap:           zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)),
		isDevelopment: isDevelopment,
		logFilePath:   logFilePath,
	}, nil
}

// NewFromCore wraps an existing core. Tests pass an observer core here.
func NewFromCore(core zapcore.Core) *Logger {
	return &Logger{zap: zap.New(core, zap.AddCallerSkip(1))}
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{zap: zap.NewNop()}
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	if l == nil || l.zap == nil {
		return nil
	}
	return l.zap.Sync()
}

func (l *Logger) Debug(msg string, fields ...zap.Field) {
	l.zap.Debug(msg, redactFields(fields)...)
}

func (l *Logger) Info(msg string, fields ...zap.Field) {
	l.zap.Info(msg, redactFields(fields)...)
}

func (l *Logger) Warn(msg string, fields ...zap.Field) {
	l.zap.Warn(msg, redactFields(fields)...)
}

func (l *Logger) Error(msg string, fields ...zap.Field) {
	l.zap.Error(msg, redactFields(fields)...)
}

// Fatal logs and exits the process with status 1.
func (l *Logger) Fatal(msg string, fields ...zap.Field) {
	l.zap.Fatal(msg, redactFields(fields)...)
}

// Infof logs a formatted message. Arguments are not redacted, so never pass credentials.
func (l *Logger) Infof(template string, args ...interface{}) {
	l.zap.Sugar().Infof(template, args...)
}

// With returns a child logger that adds fields to every entry.
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{
		zap:           l.zap.With(redactFields(fields)...),
		isDevelopment: l.isDevelopment,
		logFilePath:   l.logFilePath,
	}
}

// Named returns a child logger for a component, e.g. logger.Named("postprocess").
func (l *Logger) Named(name string) *Logger {
	return &Logger{
		zap:           l.zap.Named(name),
		isDevelopment: l.isDevelopment,
		logFilePath:   l.logFilePath,
	}
}

// Zap exposes the underlying logger.
func (l *Logger) Zap() *zap.Logger {
	return l.zap
}

// IsDevelopment reports whether the logger was built in development mode.
func (l *Logger) IsDevelopment() bool {
	return l.isDevelopment
}

// LogFilePath returns the rotated file path, empty for nop and core-backed loggers.
func (l *Logger) LogFilePath() string {
	return l.logFilePath
}

func redactFields(fields []zap.Field) []zap.Field {
	if len(fields) == 0 {
		return fields
	}
	out := make([]zap.Field, len(fields))
	for i, field := range fields {
		out[i] = redactField(field)
	}
	return out
}

func redactField(field zap.Field) zap.Field {
	if IsSensitiveField(field.Key) {
		return zap.String(field.Key, RedactedPlaceholder)
	}
	switch field.Type {
	case zapcore.StringType:
		if redacted := RedactSensitiveData(field.String); redacted != field.String {
			return zap.String(field.Key, redacted)
		}
	case zapcore.ErrorType:
		if err, ok := field.Interface.(error); ok && err != nil {
			msg := err.Error()
			if redacted := RedactSensitiveData(msg); redacted != msg {
				return zap.String(field.Key, redacted)
			}
		}
	}
	return field
}
