package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestJSONLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, WarnLevel)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 log lines, got %d: %q", len(lines), buf.String())
	}

	var entry LogEntry
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("Failed to unmarshal log line: %v", err)
	}
	if entry.Level != "WARN" {
		t.Errorf("Expected level WARN, got %s", entry.Level)
	}
	if entry.Message != "warn message" {
		t.Errorf("Expected 'warn message', got %q", entry.Message)
	}
}

func TestJSONLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)

	logger.Info("appended record",
		Sequence(42),
		NodeID("node-7"),
		RecordKind("NODE_CREATE"),
	)

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to unmarshal log line: %v", err)
	}

	if entry.Fields["sequence"] != float64(42) {
		t.Errorf("Expected sequence 42, got %v", entry.Fields["sequence"])
	}
	if entry.Fields["node_id"] != "node-7" {
		t.Errorf("Expected node_id node-7, got %v", entry.Fields["node_id"])
	}
	if entry.Fields["kind"] != "NODE_CREATE" {
		t.Errorf("Expected kind NODE_CREATE, got %v", entry.Fields["kind"])
	}
}

func TestJSONLogger_With(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)

	child := logger.With(Component("wal"))
	child.Info("recovery scan complete", Sequence(3))

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to unmarshal log line: %v", err)
	}
	if entry.Fields["component"] != "wal" {
		t.Errorf("Expected component wal, got %v", entry.Fields["component"])
	}
	if entry.Fields["sequence"] != float64(3) {
		t.Errorf("Expected sequence 3, got %v", entry.Fields["sequence"])
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   DebugLevel,
		"INFO":    InfoLevel,
		"warning": WarnLevel,
		"ERROR":   ErrorLevel,
		"bogus":   InfoLevel,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestErrorField_Nil(t *testing.T) {
	f := Error(nil)
	if f.Value != nil {
		t.Errorf("Expected nil value for nil error, got %v", f.Value)
	}
}
