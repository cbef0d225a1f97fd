// Package httppresentation serves the ops surface of the service: Prometheus
// metrics and health checks. Every route passes through tracing, request
// logging, HTTP metrics and an access log.
package httppresentation

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Zhima-Mochi/storefront/internal/observability"
	"github.com/Zhima-Mochi/storefront/internal/observability/logctx"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	componentHTTPHandler = "ops_http"
	headerRequestID      = "X-Request-ID"
	headerTenantID       = "X-Tenant-ID"
	checkTimeout         = 2 * time.Second
)

// Checker probes one dependency, e.g. the database or Redis.
type Checker interface {
	Check(ctx context.Context) error
}

type CheckFunc func(ctx context.Context) error

func (f CheckFunc) Check(ctx context.Context) error { return f(ctx) }

type Handler struct {
	gatherer prometheus.Gatherer
	checks   map[string]Checker
	log      observability.Logger
	tel      observability.Observability
	requests observability.Counter
	duration observability.Histogram
}

// NewHandler builds the ops handler. A nil gatherer serves the default registry.
func NewHandler(gatherer prometheus.Gatherer, checks map[string]Checker, tel observability.Observability) *Handler {
	if tel == nil {
		tel = observability.Nop()
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Handler{
		gatherer: gatherer,
		checks:   checks,
		log:      tel.Logger().With(observability.F("component", componentHTTPHandler)),
		tel:      tel,
		requests: tel.Metrics().Counter(observability.MHTTPRequests),
		duration: tel.Metrics().Histogram(observability.MHTTPRequestDuration),
	}
}

func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()
	h.muxHandle(mux, http.MethodGet, "/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}).ServeHTTP)
	h.muxHandle(mux, http.MethodGet, "/healthz", h.handleHealth)
	h.muxHandle(mux, http.MethodGet, "/readyz", h.handleReady)
	return mux
}

func (h *Handler) muxHandle(mux *http.ServeMux, method, route string, handler http.HandlerFunc) {
	wrapped := h.withTrace(
		ObservabilityMiddleware(
			h.log,
			func(r *http.Request) string { return r.Header.Get(headerRequestID) },
			func(r *http.Request) string { return r.Header.Get(headerTenantID) },
		)(
			h.withAccessLog(
				h.withHTTPMetrics(handler),
			),
		),
	)
	mux.HandleFunc(route, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		wrapped.ServeHTTP(w, r.WithContext(contextWithRoute(r.Context(), route)))
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type readiness struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// handleReady runs every dependency check concurrently and reports 503 when
// any of them fails.
func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make([]error, len(names))
	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = h.checks[name].Check(ctx)
		}()
	}
	wg.Wait()

	body := readiness{Status: "ok", Checks: make(map[string]string, len(names))}
	status := http.StatusOK
	for i, name := range names {
		if err := results[i]; err != nil {
			body.Status = "unavailable"
			body.Checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			logctx.FromOr(r.Context(), h.log).Warn("readiness_check_failed",
				observability.F("check", name),
				observability.Err(err),
			)
			continue
		}
		body.Checks[name] = "ok"
	}
	writeJSON(w, status, body)
}

// withAccessLog writes a single access log after the handler completes.
func (h *Handler) withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(lrw, r)

		logctx.FromOr(r.Context(), h.log).Debug("http_access",
			observability.F("method", r.Method),
			observability.F("route", routeFromContext(r.Context())),
			observability.F("status", lrw.status),
			observability.F("latency_ms", time.Since(start).Milliseconds()),
		)
	})
}

// withTrace opens a server span, continuing a W3C trace from the request headers.
func (h *Handler) withTrace(next http.Handler) http.Handler {
	tracer := otel.Tracer("storefront.ops")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parent := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		route := routeFromContext(parent)
		spanName := r.Method + " " + route
		if route == "unknown" {
			spanName = r.Method + " " + r.URL.Path
		}

		ctx, span := tracer.Start(parent, spanName,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.route", strings.TrimSpace(route)),
				attribute.String("http.user_agent", r.UserAgent()),
			),
		)
		defer span.End()

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// withHTTPMetrics records request count and latency on the injected instruments.
func (h *Handler) withHTTPMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(lrw, r)

		labels := []observability.Label{
			observability.L("method", r.Method),
			observability.L("route", routeFromContext(r.Context())),
			observability.L("status", strconv.Itoa(lrw.status)),
		}
		h.requests.Add(1, labels...)
		h.duration.Observe(time.Since(start).Seconds(), labels...)
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type routeKey struct{}

// contextWithRoute stores the route template so labels stay low-cardinality.
func contextWithRoute(ctx context.Context, route string) context.Context {
	if route == "" {
		return ctx
	}
	return context.WithValue(ctx, routeKey{}, route)
}

func routeFromContext(ctx context.Context) string {
	if route, ok := ctx.Value(routeKey{}).(string); ok && route != "" {
		return route
	}
	return "unknown"
}
