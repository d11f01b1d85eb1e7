package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want slog.Level
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "info", want: slog.LevelInfo},
		{in: "warn", want: slog.LevelWarn},
		{in: "warning", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "unknown", want: slog.LevelInfo},
		{in: "", want: slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Fatalf("ParseLevel(%q): got %v want %v", tt.in, got, tt.want)
		}
	}
}

func TestJSONLoggerLevels(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := JSON(&buf, slog.LevelWarn)

	log.Debug("hidden")
	log.Info("hidden")
	log.Warn("visible warn")
	log.Error("visible error", "path", "m.bmodel")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("sub-level records logged: %s", out)
	}
	if !strings.Contains(out, "visible warn") || !strings.Contains(out, "visible error") {
		t.Fatalf("missing records: %s", out)
	}
	if !strings.Contains(out, `"path":"m.bmodel"`) {
		t.Fatalf("missing attribute: %s", out)
	}
}

func TestWithCarriesAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := JSON(&buf, slog.LevelInfo).With("chip", "BM1684X")
	log.Info("decoded")

	if !strings.Contains(buf.String(), `"chip":"BM1684X"`) {
		t.Fatalf("missing bound attribute: %s", buf.String())
	}
}

func TestPrettyHandler(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := Pretty(&buf, slog.LevelInfo)

	log.Debug("hidden")
	log.Info("opened", "nets", 2)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug record logged: %s", out)
	}
	if !strings.Contains(out, "opened") || !strings.Contains(out, "nets=2") {
		t.Fatalf("unexpected output: %s", out)
	}
	if !strings.Contains(out, "INFO") {
		t.Fatalf("missing level: %s", out)
	}
}

func TestPrettyHandlerWithAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	h := NewPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})
	log := New(h).With("file", "a.bmodel")
	log.Info("compare", "against", "b.bmodel")

	out := buf.String()
	if !strings.Contains(out, "file=a.bmodel") || !strings.Contains(out, "against=b.bmodel") {
		t.Fatalf("unexpected output: %s", out)
	}
}
