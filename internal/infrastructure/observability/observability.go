// Package observability assembles the zap logger, the Prometheus instruments
// and the OpenTelemetry tracer into the observability.Observability handed
// to every service.
package observability

import (
	"fmt"

	"github.com/Zhima-Mochi/storefront/internal/infrastructure/observability/oteltrace"
	"github.com/Zhima-Mochi/storefront/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/storefront/internal/infrastructure/observability/zaplogger"
	"github.com/Zhima-Mochi/storefront/internal/observability"

	"github.com/prometheus/client_golang/prometheus"
)

type Config struct {
	Service  string
	Env      string
	LogLevel string
	// Namespace prefixes every metric name; empty keeps the bare names.
	Namespace string
	// Registerer receives the collectors; nil means the default registry.
	Registerer prometheus.Registerer
}

// Telemetry is the process-wide observability provider.
type Telemetry struct {
	observability.Observability
	logger *zaplogger.Logger
}

// Setup builds the logger, registers the metric catalogue and binds the tracer
// to the globally installed OpenTelemetry provider.
func Setup(cfg Config) (*Telemetry, error) {
	logger, err := zaplogger.New(cfg.Service, cfg.Env, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("observability: logger: %w", err)
	}
	counters, histograms := prometrics.Instruments(prometrics.New(cfg.Registerer, cfg.Namespace, ""))
	return &Telemetry{
		Observability: New(oteltrace.New(cfg.Service), logger, counters, histograms),
		logger:        logger,
	}, nil
}

// Close flushes buffered log entries.
func (t *Telemetry) Close() error {
	return t.logger.Sync()
}

// New combines already built parts. Missing parts fall back to no-ops, and a
// metric key without a registered instrument resolves to a no-op instrument.
func New(
	tracer observability.Tracer,
	logger observability.Logger,
	counters map[observability.MetricKey]observability.Counter,
	histograms map[observability.MetricKey]observability.Histogram,
) observability.Observability {
	if tracer == nil {
		tracer = observability.NopTracer()
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &provider{
		tracer: tracer,
		logger: logger,
		metrics: instruments{
			counters:   counters,
			histograms: histograms,
		},
	}
}

type provider struct {
	tracer  observability.Tracer
	logger  observability.Logger
	metrics instruments
}

func (p *provider) Tracer() observability.Tracer   { return p.tracer }
func (p *provider) Logger() observability.Logger   { return p.logger }
func (p *provider) Metrics() observability.Metrics { return p.metrics }

type instruments struct {
	counters   map[observability.MetricKey]observability.Counter
	histograms map[observability.MetricKey]observability.Histogram
}

func (m instruments) Counter(key observability.MetricKey) observability.Counter {
	if c, ok := m.counters[key]; ok && c != nil {
		return c
	}
	return observability.NopCounter()
}

func (m instruments) Histogram(key observability.MetricKey) observability.Histogram {
	if h, ok := m.histograms[key]; ok && h != nil {
		return h
	}
	return observability.NopHistogram()
}
