package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestNewWritesServiceAndFiltersLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "dyslexofly-api", "warn")

	logger.Info("hidden")
	logger.Warn("sweep_failed", "sweep", "registry")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("json.Unmarshal() error = %v (output %q)", err, buf.String())
	}
	if entry["msg"] != "sweep_failed" || entry["service"] != "dyslexofly-api" || entry["sweep"] != "registry" {
		t.Fatalf("unexpected log entry %v", entry)
	}
}

func TestComponentAddsAttribute(t *testing.T) {
	var buf bytes.Buffer
	Component(New(&buf, "svc", "debug"), "retention").Debug("sweep_completed")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if entry["component"] != "retention" {
		t.Fatalf("expected component attribute, got %v", entry)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
