package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestColorHandlerLevels(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewColorHandler(&buf, slog.LevelInfo))

	log.Debug("hidden")
	log.Info("visible", "key", "value")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("debug message logged despite info level")
	}
	if !strings.Contains(out, "visible") || !strings.Contains(out, "key=value") {
		t.Errorf("info message missing or attrs dropped: %q", out)
	}
}

func TestColorHandlerColorsErrors(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewColorHandler(&buf, slog.LevelInfo))

	log.Error("something failed")
	if !strings.Contains(buf.String(), colorRed) {
		t.Errorf("error line not colored red: %q", buf.String())
	}
}

func TestColorHandlerWithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	handler := NewColorHandler(&buf, slog.LevelInfo).
		WithAttrs([]slog.Attr{slog.String("service", "mapper")})
	log := slog.New(handler.WithGroup("req"))

	log.Info("handled", "id", "42")

	out := buf.String()
	if !strings.Contains(out, "service=mapper") {
		t.Errorf("pre-set attr missing: %q", out)
	}
	if !strings.Contains(out, "req.id=42") {
		t.Errorf("group prefix missing: %q", out)
	}
}

func TestColorHandlerEnabled(t *testing.T) {
	h := NewColorHandler(&bytes.Buffer{}, slog.LevelWarn)
	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info enabled at warn level")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Error("error not enabled at warn level")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
