package ctxlog

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestFromContextFallsBackToDefault(t *testing.T) {
	if got := FromContext(context.Background()); got != slog.Default() {
		t.Error("expected slog.Default() without a logger in context")
	}
}

func TestWithLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "debug")
	ctx := WithLogger(context.Background(), logger)

	FromContext(ctx).Debug("solve finished", "evals", 3)

	if !strings.Contains(buf.String(), "solve finished") {
		t.Errorf("expected message in output, got %q", buf.String())
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
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
