// Package prometrics backs the observability metric ports with Prometheus
// vectors registered from the metric catalogue.
package prometrics

import (
	"errors"
	"sync"

	"github.com/Zhima-Mochi/storefront/internal/observability"

	"github.com/prometheus/client_golang/prometheus"
)

type Registry interface {
	Counter(name, help string, labelKeys ...string) observability.Counter
	Histogram(name, help string, buckets []float64, labelKeys ...string) observability.Histogram
}

type registry struct {
	reg       prometheus.Registerer
	namespace string
	subsystem string

	mu         sync.Mutex
	counters   map[string]*counter
	histograms map[string]*histogram
}

// New returns a registry that registers collectors with reg; nil means the
// default registerer.
func New(reg prometheus.Registerer, namespace, subsystem string) Registry {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &registry{
		reg:        reg,
		namespace:  namespace,
		subsystem:  subsystem,
		counters:   map[string]*counter{},
		histograms: map[string]*histogram{},
	}
}

// Instruments registers the whole catalogue and keys the instruments for the
// telemetry provider.
func Instruments(r Registry) (map[observability.MetricKey]observability.Counter, map[observability.MetricKey]observability.Histogram) {
	counters := make(map[observability.MetricKey]observability.Counter, len(observability.CounterSpecs))
	for _, spec := range observability.CounterSpecs {
		counters[spec.Key] = r.Counter(string(spec.Key), spec.Help, spec.Labels...)
	}
	histograms := make(map[observability.MetricKey]observability.Histogram, len(observability.HistogramSpecs))
	for _, spec := range observability.HistogramSpecs {
		buckets := spec.Buckets
		if buckets == nil {
			buckets = prometheus.DefBuckets
		}
		histograms[spec.Key] = r.Histogram(string(spec.Key), spec.Help, buckets, spec.Labels...)
	}
	return counters, histograms
}

func (r *registry) Counter(name, help string, labelKeys ...string) observability.Counter {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.counters[name]; ok {
		return c
	}
	cv := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace, Subsystem: r.subsystem, Name: name, Help: help,
	}, labelKeys)
	c := &counter{v: register(r.reg, cv), keys: labelKeys}
	r.counters[name] = c
	return c
}

func (r *registry) Histogram(name, help string, buckets []float64, labelKeys ...string) observability.Histogram {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.histograms[name]; ok {
		return h
	}
	hv := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: r.namespace, Subsystem: r.subsystem, Name: name, Help: help, Buckets: buckets,
	}, labelKeys)
	h := &histogram{v: register(r.reg, hv), keys: labelKeys}
	r.histograms[name] = h
	return h
}

// register adopts an identical collector that another registry already put
// on reg, so two providers can share the default registerer.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

type counter struct {
	v    *prometheus.CounterVec
	keys []string
}

func (c *counter) Add(d float64, labels ...observability.Label) {
	c.v.With(labelMap(c.keys, labels)).Add(d)
}

type histogram struct {
	v    *prometheus.HistogramVec
	keys []string
}

func (h *histogram) Observe(v float64, labels ...observability.Label) {
	h.v.With(labelMap(h.keys, labels)).Observe(v)
}

// labelMap keeps only declared keys and fills missing ones with "", so a
// call site can never make With panic.
func labelMap(keys []string, ls []observability.Label) prometheus.Labels {
	m := make(prometheus.Labels, len(keys))
	for _, k := range keys {
		m[k] = ""
	}
	for _, l := range ls {
		if _, ok := m[l.Key]; ok {
			m[l.Key] = l.Value
		}
	}
	return m
}
