package logging

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger_WritesJSONFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "run.log")

	logger, err := NewLogger(false, logPath)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	if logger.IsDevelopment() {
		t.Error("IsDevelopment() = true, want false")
	}
	if logger.LogFilePath() != logPath {
		t.Errorf("LogFilePath() = %q, want %q", logger.LogFilePath(), logPath)
	}

	logger.Named("pipeline").Info("design written", zap.String("file", "solar-eclipse.png"))
	_ = logger.Sync()

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	content := string(data)
	for _, want := range []string{`"msg":"design written"`, `"component":"pipeline"`, `"file":"solar-eclipse.png"`} {
		if !strings.Contains(content, want) {
			t.Errorf("log file missing %s; got %s", want, content)
		}
	}
}

func TestLogger_RedactsTokens(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewFromCore(core)

	logger.Info("calling backend",
		zap.String("hf_token", "hf_abcdefghijklmnopqrstuvwx"),
		zap.String("header", "Bearer abcdefghijklmnopqrstuvwxyz"),
		zap.Error(errors.New("401 for token=hf_abcdefghijklmnopqrstuvwx")),
		zap.String("topic", "Solar Eclipse"),
	)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["hf_token"] != RedactedPlaceholder {
		t.Errorf("hf_token = %v, want redacted", fields["hf_token"])
	}
	if strings.Contains(fields["header"].(string), "abcdefghijklmnop") {
		t.Errorf("header not redacted: %v", fields["header"])
	}
	if strings.Contains(fields["error"].(string), "hf_abcdef") {
		t.Errorf("error not redacted: %v", fields["error"])
	}
	if fields["topic"] != "Solar Eclipse" {
		t.Errorf("topic = %v, want unchanged", fields["topic"])
	}
}

func TestLogger_WithAndNamed(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := NewFromCore(core).Named("inference").With(zap.String("run_id", "r-1"))

	logger.Debug("dropped below level")
	logger.Warn("service busy", RetryFields(2, 5, 40*time.Second, "service_busy")...)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].LoggerName != "inference" {
		t.Errorf("LoggerName = %q, want inference", entries[0].LoggerName)
	}
	fields := entries[0].ContextMap()
	if fields["run_id"] != "r-1" || fields["attempt"] != int64(2) || fields["kind"] != "service_busy" {
		t.Errorf("unexpected fields: %v", fields)
	}
}

func TestNewNop(t *testing.T) {
	logger := NewNop()
	logger.Info("nothing happens")
	if err := logger.Sync(); err != nil {
		t.Errorf("Sync() error = %v", err)
	}
	var nilLogger *Logger
	if err := nilLogger.Sync(); err != nil {
		t.Errorf("nil Sync() error = %v", err)
	}
}

func TestTruncatedPrompt(t *testing.T) {
	field := TruncatedPrompt("a retro vaporwave t-shirt", 7)
	if field.String != "a retro..." {
		t.Errorf("TruncatedPrompt = %q", field.String)
	}
	if TruncatedPrompt("short", 50).String != "short" {
		t.Error("short prompts must be unchanged")
	}
}
