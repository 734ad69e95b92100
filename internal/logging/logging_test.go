package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Config{Level: LevelWarn, Format: FormatJSON}, &buf)
	if err != nil {
		t.Fatal(err)
	}

	log.Info().Msg("hidden")
	log.Warn().Float64("x_max", 50).Msg("truncation insufficient")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %d: %q", len(lines), buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatal(err)
	}
	if entry["level"] != "warn" || entry["x_max"] != 50.0 {
		t.Errorf("unexpected entry %v", entry)
	}
}

func TestNewConsole(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(DefaultConfig(), &buf)
	if err != nil {
		t.Fatal(err)
	}
	log.Info().Msg("solve accepted")
	if !strings.Contains(buf.String(), "solve accepted") {
		t.Errorf("message missing from %q", buf.String())
	}
}

func TestNewInvalid(t *testing.T) {
	tests := []Config{
		{Level: "loud", Format: FormatJSON},
		{Level: LevelInfo, Format: "xml"},
	}
	for _, cfg := range tests {
		if _, err := New(cfg, nil); err == nil {
			t.Errorf("expected error for %+v", cfg)
		}
	}
}
