package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := New("warn", "json", &buf)

	log.Info().Msg("hidden")
	log.Warn().Str("k", "v").Msg("shown")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %q", len(lines), buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("expected JSON output: %v", err)
	}
	if entry["message"] != "shown" || entry["k"] != "v" || entry["level"] != "warn" {
		t.Errorf("unexpected entry: %v", entry)
	}
}

func TestNew_InvalidLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := New("loud", "console", &buf)

	log.Debug().Msg("debug line")
	log.Info().Msg("info line")

	out := buf.String()
	if strings.Contains(out, "debug line") {
		t.Errorf("debug should be filtered: %q", out)
	}
	if !strings.Contains(out, "info line") {
		t.Errorf("info should be logged: %q", out)
	}
}
