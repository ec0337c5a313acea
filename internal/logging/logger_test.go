package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/askdb/askdb/internal/config"
)

func newBufferLogger(level, format string) (*Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	logger := &Logger{
		level:  parseLogLevel(level),
		format: format,
		output: buf,
		fields: make(map[string]interface{}),
	}

	return logger, buf
}

func TestLogLevelFiltering(t *testing.T) {
	logger, buf := newBufferLogger("warn", "text")

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	output := buf.String()

	if strings.Contains(output, "debug message") || strings.Contains(output, "info message") {
		t.Errorf("Expected sub-threshold messages filtered, got %q", output)
	}

	if !strings.Contains(output, "warn message") || !strings.Contains(output, "error message") {
		t.Errorf("Expected warn and error messages, got %q", output)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  LogLevel
	}{
		{"debug", DebugLevel},
		{"INFO", InfoLevel},
		{"warn", WarnLevel},
		{"warning", WarnLevel},
		{"error", ErrorLevel},
		{"bogus", InfoLevel},
	}

	for _, tt := range tests {
		if got := parseLogLevel(tt.input); got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestJSONFormat(t *testing.T) {
	logger, buf := newBufferLogger("info", "json")

	logger.WithField("question", "how many wells?").Info("Processing question")

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected valid JSON output, got %q: %v", buf.String(), err)
	}

	if entry.Level != "INFO" || entry.Message != "Processing question" {
		t.Errorf("Unexpected entry: %+v", entry)
	}

	if entry.Fields["question"] != "how many wells?" {
		t.Errorf("Expected question field, got %v", entry.Fields)
	}
}

func TestWithFieldsDoesNotMutateParent(t *testing.T) {
	logger, _ := newBufferLogger("info", "text")

	child := logger.WithField("session", "abc")

	if len(logger.fields) != 0 {
		t.Errorf("Parent logger mutated: %v", logger.fields)
	}

	if child.fields["session"] != "abc" {
		t.Errorf("Child missing field: %v", child.fields)
	}
}

func TestWithError(t *testing.T) {
	logger, buf := newBufferLogger("info", "text")

	logger.WithError(errors.New("boom")).Warn("Something degraded")

	if !strings.Contains(buf.String(), "error=boom") {
		t.Errorf("Expected error field in output, got %q", buf.String())
	}

	// nil error is a no-op
	if got := logger.WithError(nil); got != logger {
		t.Error("Expected WithError(nil) to return the same logger")
	}
}

func TestNewLoggerFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")

	logger, err := NewLogger(config.LoggingConfig{
		Level:  "info",
		Format: "text",
		Output: "file",
		File:   path,
	})
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	defer logger.Close()

	logger.Info("written to file")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}

	if !strings.Contains(string(data), "written to file") {
		t.Errorf("Expected message in log file, got %q", string(data))
	}
}

func TestNewLoggerInvalidOutput(t *testing.T) {
	_, err := NewLogger(config.LoggingConfig{Level: "info", Format: "text", Output: "syslog"})
	if err == nil {
		t.Fatal("Expected error for invalid output")
	}
}
