// Package oteltrace adapts an OpenTelemetry tracer to the observability port.
package oteltrace

import (
	"context"

	"github.com/Zhima-Mochi/storefront/internal/observability"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationVersion = "1.0.0"

type Option func(*options)

type options struct {
	provider trace.TracerProvider
}

// WithProvider uses tp instead of the global provider.
func WithProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.provider = tp }
}

type tracer struct{ t trace.Tracer }

// New returns a tracer named after the service. Without an SDK provider the
// spans are non-recording but still propagate context.
func New(service string, opts ...Option) observability.Tracer {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.provider == nil {
		o.provider = otel.GetTracerProvider()
	}
	if service == "" {
		service = "storefront"
	}
	return &tracer{t: o.provider.Tracer(service, trace.WithInstrumentationVersion(instrumentationVersion))}
}

// Start opens an internal span; use-case spans are never the process edge.
func (t *tracer) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.t.Start(ctx, name, trace.WithSpanKind(trace.SpanKindInternal), trace.WithAttributes(attrs...))
}
