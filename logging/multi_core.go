package logging

import (
	"os"

	"go.uber.org/zap/zapcore"
)

// NewMultiCore tees log entries to stdout and to a rotating JSON file.
//
// The console encoder is human-readable in development mode and JSON otherwise;
// the file is always JSON so runs can be grepped or shipped later.
func NewMultiCore(level zapcore.LevelEnabler, filePath string, isDev bool, fileConfig FileWriterConfig) zapcore.Core {
	return NewMultiCoreWithWriters(level, zapcore.Lock(os.Stdout), NewFileWriter(filePath, fileConfig), isDev)
}

// NewMultiCoreWithWriters is NewMultiCore with caller-supplied writers.
func NewMultiCoreWithWriters(level zapcore.LevelEnabler, consoleWriter, fileWriter zapcore.WriteSyncer, isDev bool) zapcore.Core {
	var consoleEncoder zapcore.Encoder
	if isDev {
		consoleEncoder = zapcore.NewConsoleEncoder(NewConsoleEncoderConfig())
	} else {
		consoleEncoder = zapcore.NewJSONEncoder(NewEncoderConfig())
	}

	return zapcore.NewTee(
		zapcore.NewCore(consoleEncoder, consoleWriter, level),
		zapcore.NewCore(zapcore.NewJSONEncoder(NewEncoderConfig()), fileWriter, level),
	)
}
