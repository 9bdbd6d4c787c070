package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/ziadkadry99/botkit/internal/config"
)

func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv("BOTKIT_LOG_LEVEL", "")
	t.Setenv("BOTKIT_LOG_FORMAT", "")
	t.Setenv("BOTKIT_LOG_ADD_SOURCE", "")
}

func TestJSONEntryShape(t *testing.T) {
	clearEnv(t)

	var out bytes.Buffer
	log, err := NewWithWriter(config.LoggingConfig{Format: "json", Level: "info"}, &out)
	if err != nil {
		t.Fatalf("NewWithWriter: %v", err)
	}

	log.With("component", "callbacks").Warn("Callback was not waited", "sync_id", "abc", "err", errors.New("boom"))

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(out.Bytes()), &entry); err != nil {
		t.Fatalf("unmarshal: %v (%q)", err, out.String())
	}
	if entry["level"] != "warn" {
		t.Errorf("level = %v, want warn", entry["level"])
	}
	if entry["msg"] != "Callback was not waited" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["component"] != "callbacks" {
		t.Errorf("component = %v, want callbacks", entry["component"])
	}
	if entry["sync_id"] != "abc" {
		t.Errorf("sync_id = %v", entry["sync_id"])
	}
	if entry["err"] != "boom" {
		t.Errorf("err = %v, want boom", entry["err"])
	}
	if _, ok := entry["time"]; !ok {
		t.Error("missing time")
	}
}

func TestLevelFiltering(t *testing.T) {
	clearEnv(t)

	var out bytes.Buffer
	log, err := NewWithWriter(config.LoggingConfig{Format: "json", Level: "error"}, &out)
	if err != nil {
		t.Fatalf("NewWithWriter: %v", err)
	}

	log.Info("ignored")
	if out.Len() != 0 {
		t.Fatalf("expected no output, got %q", out.String())
	}
	log.Error("kept")
	if !strings.Contains(out.String(), "kept") {
		t.Fatalf("expected error line, got %q", out.String())
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("BOTKIT_LOG_LEVEL", "debug")
	t.Setenv("BOTKIT_LOG_FORMAT", "text")

	var out bytes.Buffer
	log, err := NewWithWriter(config.LoggingConfig{Format: "json", Level: "error"}, &out)
	if err != nil {
		t.Fatalf("NewWithWriter: %v", err)
	}
	log.Debug("visible")
	if !strings.Contains(out.String(), "visible") {
		t.Fatalf("expected debug output in text format, got %q", out.String())
	}
	if strings.HasPrefix(strings.TrimSpace(out.String()), "{") {
		t.Fatalf("expected text output, got json: %q", out.String())
	}
}

func TestRejectsUnknownSettings(t *testing.T) {
	clearEnv(t)

	if _, err := NewWithWriter(config.LoggingConfig{Format: "xml"}, &bytes.Buffer{}); err == nil {
		t.Error("expected error for unknown format")
	}
	if _, err := NewWithWriter(config.LoggingConfig{Level: "loud"}, &bytes.Buffer{}); err == nil {
		t.Error("expected error for unknown level")
	}
}
