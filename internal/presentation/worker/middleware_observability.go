package workerpresentation

import (
	"context"

	domoutbox "github.com/Zhima-Mochi/storefront/internal/domain/outbox"
	"github.com/Zhima-Mochi/storefront/internal/observability"
	"github.com/Zhima-Mochi/storefront/internal/observability/logctx"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// WithEventContext scopes the logger in ctx to one event delivery. Each
// delivery gets a fresh event_id; trace ids are added when ctx carries a
// valid span. Extra fields must stay low-cardinality.
func WithEventContext(ctx context.Context, base observability.Logger, e domoutbox.Event, extra ...observability.Field) context.Context {
	if base == nil {
		base = observability.NopLogger()
	}
	fields := make([]observability.Field, 0, 4+len(extra))
	fields = append(fields,
		observability.F("event", e.EventName()),
		observability.F("event_id", uuid.NewString()),
	)
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			observability.F("trace_id", sc.TraceID().String()),
			observability.F("span_id", sc.SpanID().String()),
		)
	}
	for _, f := range extra {
		if s, ok := f.Value.(string); ok && s == "" {
			continue
		}
		fields = append(fields, f)
	}
	return logctx.With(ctx, base.With(fields...))
}
