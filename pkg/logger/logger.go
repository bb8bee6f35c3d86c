// Package logger provides a colored slog handler for terminal output.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// ANSI color codes.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
)

// ColorHandler is a slog.Handler that colors log lines by level and message
// content. Warnings render yellow, errors red, and store population messages
// green so corpus reloads stand out during long runs.
type ColorHandler struct {
	mu     *sync.Mutex
	out    io.Writer
	level  slog.Leveler
	attrs  []slog.Attr
	groups []string
}

// NewColorHandler creates a ColorHandler writing to out.
func NewColorHandler(out io.Writer, level slog.Leveler) *ColorHandler {
	if level == nil {
		level = slog.LevelInfo
	}
	return &ColorHandler{
		mu:    &sync.Mutex{},
		out:   out,
		level: level,
	}
}

// Enabled implements slog.Handler.
func (h *ColorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle implements slog.Handler.
func (h *ColorHandler) Handle(_ context.Context, record slog.Record) error {
	color := h.colorFor(record)

	var b strings.Builder
	b.WriteString(record.Time.Format(time.RFC3339))
	b.WriteString(" ")
	b.WriteString(record.Level.String())
	b.WriteString(" ")
	b.WriteString(record.Message)

	for _, attr := range h.attrs {
		writeAttr(&b, h.groups, attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		writeAttr(&b, h.groups, attr)
		return true
	})

	line := b.String()
	if color != "" {
		line = color + line + colorReset
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := fmt.Fprintln(h.out, line)
	return err
}

func (h *ColorHandler) colorFor(record slog.Record) string {
	switch {
	case record.Level >= slog.LevelError:
		return colorRed
	case record.Level >= slog.LevelWarn:
		return colorYellow
	case strings.Contains(record.Message, "Populat") ||
		strings.Contains(record.Message, "populated"):
		return colorGreen
	}
	return ""
}

func writeAttr(b *strings.Builder, groups []string, attr slog.Attr) {
	if attr.Equal(slog.Attr{}) {
		return
	}
	key := attr.Key
	if len(groups) > 0 {
		key = strings.Join(groups, ".") + "." + key
	}
	fmt.Fprintf(b, " %s=%v", key, attr.Value.Resolve())
}

// WithAttrs implements slog.Handler.
func (h *ColorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &clone
}

// WithGroup implements slog.Handler.
func (h *ColorHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(append([]string{}, h.groups...), name)
	return &clone
}

// NewLogger creates a slog.Logger with the given handler.
func NewLogger(handler slog.Handler) *slog.Logger {
	return slog.New(handler)
}

// NewDefaultLogger creates a colored logger writing to stderr.
func NewDefaultLogger(level slog.Level) *slog.Logger {
	return slog.New(NewColorHandler(os.Stderr, level))
}

// ParseLevel maps a config string to a slog.Level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
