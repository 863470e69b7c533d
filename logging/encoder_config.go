package logging

import (
	"time"

	"go.uber.org/zap/zapcore"
)

// JSON keys used by the file encoder.
const (
	FieldTimestamp  = "ts"
	FieldLevel      = "level"
	FieldComponent  = "component"
	FieldCaller     = "caller"
	FieldMessage    = "msg"
	FieldStacktrace = "stacktrace"
)

// NewEncoderConfig returns the encoder config used for the rotated JSON log file.
func NewEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:       FieldTimestamp,
		LevelKey:      FieldLevel,
		NameKey:       FieldComponent,
		CallerKey:     FieldCaller,
		MessageKey:    FieldMessage,
		StacktraceKey: FieldStacktrace,
		LineEnding:    zapcore.DefaultLineEnding,

		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// NewConsoleEncoderConfig returns a human-readable encoder config with colored levels.
func NewConsoleEncoderConfig() zapcore.EncoderConfig {
	cfg := NewEncoderConfig()
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncodeTime = clockTimeEncoder
	return cfg
}

// clockTimeEncoder renders only the wall clock, the date is noise on a terminal.
func clockTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("15:04:05.000"))
}
