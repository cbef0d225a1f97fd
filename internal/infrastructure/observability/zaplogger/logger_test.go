package zaplogger

import (
	"errors"
	"testing"

	"github.com/Zhima-Mochi/storefront/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggerWithCarriesFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := Wrap(zap.New(core))

	l.With(observability.F("tenant_id", "t-1")).Warn("loyalty_award_failed",
		observability.F("error", errors.New("boom")),
		observability.F("order_id", "o-1"),
	)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "loyalty_award_failed", entry.Message)
	fields := entry.ContextMap()
	assert.Equal(t, "t-1", fields["tenant_id"])
	assert.Equal(t, "o-1", fields["order_id"])
	assert.Equal(t, "boom", fields["error"])
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New("storefront", "test", "loud")
	require.Error(t, err)
}
