package logger

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

// WithAttrs returns a context whose Ctx logger carries attrs in addition to
// any attributes already stored by outer callers.
func WithAttrs(ctx context.Context, attrs ...slog.Attr) context.Context {
	prev, _ := ctx.Value(ctxKey{}).([]slog.Attr)
	merged := make([]slog.Attr, 0, len(prev)+len(attrs))
	merged = append(merged, prev...)
	merged = append(merged, attrs...)
	return context.WithValue(ctx, ctxKey{}, merged)
}

// Ctx returns the default logger with the context's stored and trace attributes.
func Ctx(ctx context.Context) *slog.Logger {
	stored, _ := ctx.Value(ctxKey{}).([]slog.Attr)
	trace := AttrsFromCtx(ctx)
	if len(stored) == 0 && len(trace) == 0 {
		return L()
	}

	args := make([]any, 0, len(stored)+len(trace))
	for _, a := range stored {
		args = append(args, a)
	}
	for _, a := range trace {
		args = append(args, a)
	}
	return L().With(args...)
}
