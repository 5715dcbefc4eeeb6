// internal/utils/logger_test.go

package utils

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected LogLevel
	}{
		{"debug", DebugLevel},
		{"DEBUG", DebugLevel},
		{"info", InfoLevel},
		{"warn", WarnLevel},
		{"warning", WarnLevel},
		{"error", ErrorLevel},
		{"", InfoLevel},
		{"nonsense", InfoLevel},
	}

	for _, tt := range tests {
		if got := ParseLogLevel(tt.input); got != tt.expected {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	old := logOutput
	logOutput = &buf
	defer func() { logOutput = old }()

	log := NewLoggerWithLevel(WarnLevel)
	log.Debug("quiet")
	log.Info("quiet too")
	log.Warn("loud")

	out := buf.String()
	if strings.Contains(out, "quiet") {
		t.Errorf("below-level messages emitted: %s", out)
	}
	if !strings.Contains(out, "[WARN] loud") {
		t.Errorf("warn message missing: %s", out)
	}
}

func TestLoggerFieldsStableOrder(t *testing.T) {
	var buf bytes.Buffer
	old := logOutput
	logOutput = &buf
	defer func() { logOutput = old }()

	log := NewLoggerWithLevel(InfoLevel).WithFields(map[string]interface{}{
		"zebra": 1,
		"alpha": 2,
	})
	log.Info("msg")

	out := buf.String()
	if !strings.Contains(out, "alpha=2 zebra=1") {
		t.Errorf("fields not in sorted order: %s", out)
	}
}

func TestComponentLogger(t *testing.T) {
	var buf bytes.Buffer
	old := logOutput
	logOutput = &buf
	defer func() { logOutput = old }()

	NewComponentLogger("crawler").Info("started")

	if !strings.Contains(buf.String(), "component=crawler") {
		t.Errorf("component field missing: %s", buf.String())
	}
}
