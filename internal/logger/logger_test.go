package logger

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{"info", LevelInfo},
		{" Info ", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"none", LevelNone},
		{"off", LevelNone},
		{"invalid", LevelInfo}, // defaults to info
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := ParseLevel(tt.input)
			if result != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestLevelString(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{LevelNone, "NONE"},
		{Level(42), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			result := tt.level.String()
			if result != tt.expected {
				t.Errorf("Level(%d).String() = %q, want %q", tt.level, result, tt.expected)
			}
		})
	}
}

func fixedLogger(buf *bytes.Buffer, level Level, prefix string) *Logger {
	l := NewWithWriter(buf, level, prefix)
	l.sink.now = func() time.Time { return time.Date(2024, 5, 1, 12, 30, 45, 123000000, time.UTC) }
	return l
}

func TestLineFormat(t *testing.T) {
	var buf bytes.Buffer
	l := fixedLogger(&buf, LevelInfo, "agent")

	l.Info("iteration %d done", 3)

	want := "2024-05-01 12:30:45.123 [INFO] [agent] iteration 3 done\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestNewLoggerFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "nested", "test.log")

	logger, err := New(LevelInfo, logPath, "test")
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}

	logger.Info("test message")
	logger.Debug("should not appear")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}

	contentStr := string(content)
	if !strings.Contains(contentStr, "test message") {
		t.Errorf("Log file missing info message")
	}
	if strings.Contains(contentStr, "should not appear") {
		t.Errorf("Log file contains debug message when level is INFO")
	}
	if !strings.Contains(contentStr, "[test]") {
		t.Errorf("Log file missing prefix")
	}
}

func TestLoggerWithPrefix(t *testing.T) {
	var buf bytes.Buffer
	logger := fixedLogger(&buf, LevelInfo, "parent")

	logger.WithPrefix("child").Info("test message")

	if !strings.Contains(buf.String(), "[parent:child]") {
		t.Errorf("missing combined prefix, got: %s", buf.String())
	}
}

func TestLoggerWithFields(t *testing.T) {
	var buf bytes.Buffer
	logger := fixedLogger(&buf, LevelDebug, "")

	child := logger.WithFields("repo", "octo/hello", "issue", 7).WithFields("phase", "explore", "dangling")
	child.Debug("calling tool")
	logger.Debug("parent line")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), buf.String())
	}
	if !strings.HasSuffix(lines[0], "calling tool dangling=MISSING issue=7 phase=explore repo=octo/hello") {
		t.Errorf("unexpected field rendering: %q", lines[0])
	}
	if strings.Contains(lines[1], "repo=") {
		t.Errorf("parent logger must not inherit child fields: %q", lines[1])
	}
}

func TestFieldQuoting(t *testing.T) {
	var buf bytes.Buffer
	logger := fixedLogger(&buf, LevelInfo, "")

	logger.WithFields("title", "fix the bug", "empty", "").Info("x")

	out := buf.String()
	if !strings.Contains(out, `title="fix the bug"`) || !strings.Contains(out, `empty=""`) {
		t.Errorf("values with spaces must be quoted: %q", out)
	}
}

func TestLoggerDisabled(t *testing.T) {
	logger, err := New(LevelNone, "", "test")
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Close()

	// These should not panic or error
	logger.Debug("debug")
	logger.Info("info")
	logger.Warn("warn")
	logger.Error("error")
}

func TestSetLevelPropagatesToChildren(t *testing.T) {
	var buf bytes.Buffer
	logger := fixedLogger(&buf, LevelInfo, "")
	child := logger.WithPrefix("child")

	child.Debug("debug1")
	logger.SetLevel(LevelDebug)
	child.Debug("debug2")

	out := buf.String()
	if strings.Contains(out, "debug1") {
		t.Errorf("debug1 should not appear (level was INFO)")
	}
	if !strings.Contains(out, "debug2") {
		t.Errorf("debug2 should appear (level changed to DEBUG)")
	}
}

func TestGlobalLogger(t *testing.T) {
	if Global() == nil {
		t.Errorf("Global() returned nil")
	}

	var buf bytes.Buffer
	SetGlobal(fixedLogger(&buf, LevelWarn, "global"))
	defer SetGlobal(nil)

	Info("hidden")
	Warn("shown")

	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "[WARN] [global] shown") {
		t.Errorf("unexpected global output: %q", buf.String())
	}
}

func TestSlogHandler(t *testing.T) {
	var buf bytes.Buffer
	base := fixedLogger(&buf, LevelInfo, "otel")

	slogger := slog.New(NewSlogHandler(base)).With("service", "autoresolve").WithGroup("span")
	slogger.Debug("dropped")
	slogger.Warn("export failed", "attempt", 2)

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Errorf("debug record should be filtered at INFO: %q", out)
	}
	if !strings.Contains(out, "[WARN] [otel] export failed service=autoresolve span.attempt=2") {
		t.Errorf("unexpected slog rendering: %q", out)
	}
}

func TestNewSlogHandlerNil(t *testing.T) {
	if NewSlogHandler(nil) != nil {
		t.Errorf("expected nil handler for nil logger")
	}
}
