package logger

import (
	"bytes"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"CRITICAL", zapcore.FatalLevel},
		{"error", zapcore.ErrorLevel},
		{"WARNING", zapcore.WarnLevel},
		{"INFO", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
		{"debug", zapcore.DebugLevel},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if err != nil {
			t.Fatalf("ParseLevel(%q) returned error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if _, err := ParseLevel("LOUD"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestZapLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWithWriter("WARNING", &buf)
	if err != nil {
		t.Fatal(err)
	}

	log.InfoObj("hidden message", "scrape", map[string]any{"url": "https://example.com"})
	log.WarnObj("visible message", "scrape", map[string]any{"url": "https://example.com/debates/x"})
	_ = log.Sync()

	out := buf.String()
	if strings.Contains(out, "hidden message") {
		t.Errorf("info entry should be filtered at WARNING level: %s", out)
	}
	if !strings.Contains(out, "visible message") {
		t.Errorf("warn entry missing: %s", out)
	}
	if !strings.Contains(out, "https://example.com/debates/x") {
		t.Errorf("structured field missing: %s", out)
	}
}
