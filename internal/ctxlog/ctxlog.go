// Package ctxlog carries a slog.Logger through context.Context.
package ctxlog

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/lmittmann/tint"
)

// key is unexported to prevent collisions with other packages' context keys.
type key struct{}

var loggerKey = key{}

func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the logger stored in ctx, or slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// New builds a colorized tint logger writing to w at the named level
// (debug, info, warn, error). Unknown levels fall back to info.
func New(w io.Writer, level string) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      ParseLevel(level),
		TimeFormat: "15:04:05",
	}))
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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
