package logctx

import (
	"context"
	"testing"

	"github.com/Zhima-Mochi/storefront/internal/infrastructure/observability/zaplogger"
	"github.com/Zhima-Mochi/storefront/internal/observability"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromOrFallsBack(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, From(ctx))
	assert.NotNil(t, FromOr(ctx, nil))
}

func TestEnrichStacksFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	base := zaplogger.Wrap(zap.New(core))

	ctx := Enrich(context.Background(), base, observability.F("request_id", "r1"))
	ctx = Enrich(ctx, base, observability.F("tenant_id", "t1"))
	FromOr(ctx, base).Info("hello")

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "r1", fields["request_id"])
		assert.Equal(t, "t1", fields["tenant_id"])
	}
}
