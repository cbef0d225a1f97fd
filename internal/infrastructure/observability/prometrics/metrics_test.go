package prometrics

import (
	"testing"

	"github.com/Zhima-Mochi/storefront/internal/observability"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstrumentsRegistersCatalogue(t *testing.T) {
	reg := prometheus.NewRegistry()
	counters, histograms := Instruments(New(reg, "storefront", ""))

	require.Len(t, counters, len(observability.CounterSpecs))
	require.Len(t, histograms, len(observability.HistogramSpecs))

	counters[observability.MUsecaseRequests].Add(1,
		observability.L("use_case", "cart.add_item"),
		observability.L("outcome", "success"),
	)
	counters[observability.MUsecaseRequests].Add(2,
		observability.L("use_case", "cart.add_item"),
		observability.L("outcome", "success"),
	)

	n, err := testutil.GatherAndCount(reg, "storefront_usecase_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCounterRegisteredOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg, "", "")
	a := r.Counter("x_total", "x", "k")
	b := r.Counter("x_total", "x", "k")
	a.Add(1, observability.L("k", "v"))
	b.Add(1, observability.L("k", "v"))

	n, err := testutil.GatherAndCount(reg, "x_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRegistriesShareARegisterer(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := New(reg, "", "").Counter("shared_total", "x", "k")
	b := New(reg, "", "").Counter("shared_total", "x", "k")

	a.Add(1, observability.L("k", "v"))
	b.Add(2, observability.L("k", "v"))

	n, err := testutil.GatherAndCount(reg, "shared_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMissingAndUnknownLabelsAreTolerated(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg, "", "").Counter("partial_total", "x", "peer", "outcome")

	assert.NotPanics(t, func() {
		c.Add(1, observability.L("peer", "currency"), observability.L("bogus", "x"))
	})

	n, err := testutil.GatherAndCount(reg, "partial_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
