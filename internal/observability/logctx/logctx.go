// Package logctx carries a request- or event-scoped logger in a context.
package logctx

import (
	"context"

	"github.com/Zhima-Mochi/storefront/internal/observability"
)

type loggerKey struct{}

func With(ctx context.Context, logger observability.Logger) context.Context {
	if logger == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerKey{}, logger)
}

// From returns the scoped logger, or nil when ctx has none.
func From(ctx context.Context) observability.Logger {
	logger, _ := ctx.Value(loggerKey{}).(observability.Logger)
	return logger
}

func FromOr(ctx context.Context, fallback observability.Logger) observability.Logger {
	if logger := From(ctx); logger != nil {
		return logger
	}
	if fallback == nil {
		return observability.NopLogger()
	}
	return fallback
}

// Enrich scopes the logger already in ctx (or base when there is none) with
// fields and stores the result back.
func Enrich(ctx context.Context, base observability.Logger, fields ...observability.Field) context.Context {
	return With(ctx, FromOr(ctx, base).With(fields...))
}
