package observability

import (
	"testing"

	"github.com/Zhima-Mochi/storefront/internal/infrastructure/observability/zaplogger"
	"github.com/Zhima-Mochi/storefront/internal/observability"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSetupRegistersCatalogue(t *testing.T) {
	reg := prometheus.NewRegistry()
	tel, err := Setup(Config{Service: "storefront", Env: "test", LogLevel: "error", Namespace: "sf", Registerer: reg})
	require.NoError(t, err)

	tel.Metrics().Counter(observability.MStockMovements).Add(1, observability.L("movement_type", "OUT"))
	tel.Metrics().Histogram(observability.MUsecaseDuration).Observe(0.2, observability.L("use_case", "order.create_from_cart"))

	n, err := testutil.GatherAndCount(reg, "sf_inventory_movements_total", "sf_usecase_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NotNil(t, tel.Tracer())
}

func TestSetupRejectsUnknownLevel(t *testing.T) {
	_, err := Setup(Config{Service: "storefront", LogLevel: "loud", Registerer: prometheus.NewRegistry()})
	assert.Error(t, err)
}

func TestNewFallsBackToNoops(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	tel := New(nil, zaplogger.Wrap(zap.New(core)), nil, nil)

	assert.NotPanics(t, func() {
		tel.Metrics().Counter(observability.MLoyaltyPoints).Add(5, observability.L("type", "earned"))
		tel.Metrics().Histogram(observability.MHTTPRequestDuration).Observe(1)
	})
	tel.Logger().Info("ready", observability.F("component", "test"))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "test", logs.All()[0].ContextMap()["component"])
	assert.NotNil(t, tel.Tracer())
}
