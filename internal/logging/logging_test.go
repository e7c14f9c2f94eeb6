package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNewHasComponent(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{Level: "debug", Output: &buf})

	New("extract").Info("hello", "run_id", "r1")

	output := buf.String()
	if !strings.Contains(output, "component=extract") {
		t.Fatalf("expected component=extract in output, got: %s", output)
	}
	if !strings.Contains(output, "run_id=r1") {
		t.Fatalf("expected run_id attribute, got: %s", output)
	}
}

func TestInitJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{Format: " JSON ", Output: &buf})

	New("judge").Info("json check")

	output := buf.String()
	if !strings.Contains(output, `"level":"INFO"`) {
		t.Fatalf("expected JSON level field, got: %s", output)
	}
	if !strings.Contains(output, `"component":"judge"`) {
		t.Fatalf("expected JSON component field, got: %s", output)
	}
}

func TestInitLevels(t *testing.T) {
	tests := []struct {
		in         string
		want       slog.Level
		infoShown  bool
		errorShown bool
	}{
		{"debug", slog.LevelDebug, true, true},
		{" INFO ", slog.LevelInfo, true, true},
		{"warning", slog.LevelWarn, false, true},
		{"warn", slog.LevelWarn, false, true},
		{"error+4", slog.LevelError + 4, false, false},
		{"", slog.LevelInfo, true, true},
		{"loud", slog.LevelInfo, true, true},
	}
	for _, tc := range tests {
		var buf bytes.Buffer
		if got := Init(Options{Level: tc.in, Output: &buf}); got != tc.want {
			t.Fatalf("Init(level %q) = %v, want %v", tc.in, got, tc.want)
		}
		logger := New("gate")
		logger.Info("info line")
		logger.Error("error line")
		output := buf.String()
		if got := strings.Contains(output, "info line"); got != tc.infoShown {
			t.Fatalf("level %q: info shown = %v, want %v", tc.in, got, tc.infoShown)
		}
		if got := strings.Contains(output, "error line"); got != tc.errorShown {
			t.Fatalf("level %q: error shown = %v, want %v", tc.in, got, tc.errorShown)
		}
	}
}
