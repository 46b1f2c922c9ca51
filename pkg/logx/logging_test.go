package logx

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("invalid json line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestParseLevel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		raw  string
		want Level
	}{
		{"trace", LevelTrace},
		{" DEBUG ", LevelDebug},
		{"info", LevelInfo},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"critical", LevelCritical},
		{"bogus", LevelInfo},
		{"", LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.raw); got != tt.want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestJSONLoggerFieldsAndLevels(t *testing.T) {
	var buf bytes.Buffer
	log := NewJSON(&buf, "INFO").With(String("comp", "tracker"))

	log.Debug("hidden")
	log.Info("cycle done", Int("items", 2), Err(errors.New("boom")))
	log.Critical("missing config")

	lines := decodeLines(t, &buf)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %s", len(lines), buf.String())
	}
	if lines[0]["comp"] != "tracker" || lines[0]["message"] != "cycle done" {
		t.Fatalf("unexpected first line: %v", lines[0])
	}
	if lines[0]["err"] != "boom" {
		t.Fatalf("expected err field, got %v", lines[0]["err"])
	}
	if lines[1]["level"] != "fatal" {
		t.Fatalf("critical should log at fatal level, got %v", lines[1]["level"])
	}
	if c, _ := lines[0]["caller"].(string); !strings.HasPrefix(c, "logging_test.go:") {
		t.Fatalf("expected short caller, got %q", c)
	}
}

func TestZeroLoggerIsNoop(t *testing.T) {
	var l Logger
	if !l.IsZero() {
		t.Fatalf("zero logger should report IsZero")
	}
	l.Info("nothing happens")
	if Nop().IsZero() {
		t.Fatalf("Nop logger is not zero")
	}
}

func TestServiceApplyFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.log")
	svc, log := New(Config{Level: "INFO", File: FileConfig{Enabled: true, Path: path}})
	defer svc.Close()

	log.Debug("dropped")
	log.Info("kept")

	svc.Apply(Config{Level: "DEBUG", File: FileConfig{Enabled: true, Path: path}})
	log.Debug("now visible")
	if err := svc.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	s := string(b)
	if strings.Contains(s, "dropped") {
		t.Fatalf("debug line written at INFO level: %s", s)
	}
	if !strings.Contains(s, "kept") || !strings.Contains(s, "now visible") {
		t.Fatalf("missing expected lines: %s", s)
	}
	if svc.Config().Level != "DEBUG" {
		t.Fatalf("Config() = %q, want DEBUG", svc.Config().Level)
	}
}
