package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

func New(service, level, format string) *slog.Logger {
	return newLogger(os.Stdout, service, level, format)
}

func newLogger(w io.Writer, service, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}

	var handler slog.Handler
	if strings.EqualFold(strings.TrimSpace(format), "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler).With("service", service)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

type attrsContextKey struct{}

// WithAttrs attaches log attributes to ctx; FromContext picks them up.
func WithAttrs(ctx context.Context, args ...any) context.Context {
	prev, _ := ctx.Value(attrsContextKey{}).([]any)
	merged := make([]any, 0, len(prev)+len(args))
	merged = append(merged, prev...)
	merged = append(merged, args...)
	return context.WithValue(ctx, attrsContextKey{}, merged)
}

// FromContext returns the default logger enriched with the attributes stored
// in ctx.
func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()
	if ctx == nil {
		return logger
	}
	if args, ok := ctx.Value(attrsContextKey{}).([]any); ok && len(args) > 0 {
		logger = logger.With(args...)
	}
	return logger
}
