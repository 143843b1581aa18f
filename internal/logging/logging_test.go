package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewJSONHonorsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "warn", Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("dropped")
	logger.Warn("kept", "path", "/dump")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one record, got %q", buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if rec["level"] != "warn" || rec["msg"] != "kept" || rec["path"] != "/dump" {
		t.Fatalf("unexpected record %#v", rec)
	}
	if _, ok := rec["ts"]; !ok {
		t.Fatalf("expected ts key, got %#v", rec)
	}
}

func TestNewConsole(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Debug("hidden")
	logger.Info("resolved", "game", "SM")
	if !strings.Contains(buf.String(), "game=SM") || strings.Contains(buf.String(), "hidden") {
		t.Fatalf("unexpected console output %q", buf.String())
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatalf("expected error for unknown format")
	}
	if ValidLevel("loud") || !ValidLevel("DEBUG") {
		t.Fatalf("unexpected level validation")
	}
}
