package oteltrace

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestStartKeepsParentContext(t *testing.T) {
	tr := New("", WithProvider(noop.NewTracerProvider()))
	parent := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{1},
		SpanID:     trace.SpanID{2},
		TraceFlags: trace.FlagsSampled,
	}))

	ctx, span := tr.Start(parent, "UC.Test")
	defer span.End()

	assert.Equal(t, trace.TraceID{1}, trace.SpanContextFromContext(ctx).TraceID())
}
