package application

import (
	"context"
	"errors"
	"time"

	"github.com/Zhima-Mochi/storefront/internal/domain/failure"
	"github.com/Zhima-Mochi/storefront/internal/observability"
	"github.com/Zhima-Mochi/storefront/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const spanPrefix = "UC."

type UseCase[C any, R any] interface {
	Execute(ctx context.Context, cmd C) (R, error)
}

// Instrument holds the logger, tracer and RED instruments of one service.
// Build it once in a constructor and start a Run per use-case invocation.
type Instrument struct {
	log          observability.Logger
	tracer       observability.Tracer
	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}
	extCounter   observability.Counter   // external_requests_total{peer,endpoint,outcome}
	extHistogram observability.Histogram // external_request_duration_seconds{peer,endpoint}
	metrics      observability.Metrics
}

func NewInstrument(tel observability.Observability, service string) Instrument {
	if tel == nil {
		tel = observability.Nop()
	}
	m := tel.Metrics()
	return Instrument{
		log:          tel.Logger().With(observability.F("service", service)),
		tracer:       tel.Tracer(),
		reqCounter:   m.Counter(observability.MUsecaseRequests),
		durHistogram: m.Histogram(observability.MUsecaseDuration),
		extCounter:   m.Counter(observability.MExternalRequests),
		extHistogram: m.Histogram(observability.MExternalRequestDuration),
		metrics:      m,
	}
}

func (in Instrument) Logger() observability.Logger { return in.log }

func (in Instrument) Counter(key observability.MetricKey) observability.Counter {
	return in.metrics.Counter(key)
}

// Run is one in-flight use case.
type Run struct {
	useCase    string
	start      time.Time
	span       trace.Span
	logger     observability.Logger
	in         Instrument
	outcome    string
	statusText string
	fields     []observability.Field
}

// Start opens a span named UC.<spanName> and returns a context carrying a
// logger scoped to the use case.
func (in Instrument) Start(ctx context.Context, useCase, spanName string, attrs ...attribute.KeyValue) (context.Context, *Run) {
	attrs = append(attrs, attribute.String("use_case", useCase))
	ctx, span := in.tracer.Start(ctx, spanPrefix+spanName, attrs...)
	logger := logctx.FromOr(ctx, in.log).With(observability.F("use_case", useCase))
	ctx = logctx.With(ctx, logger)
	return ctx, &Run{
		useCase:    useCase,
		start:      time.Now(),
		span:       span,
		logger:     logger,
		in:         in,
		outcome:    "success",
		statusText: "OK",
	}
}

func (r *Run) Logger() observability.Logger { return r.logger }

func (r *Run) Span() trace.Span { return r.span }

// Fail marks the run as failed with a short machine-readable status.
func (r *Run) Fail(status string) {
	r.outcome, r.statusText = "error", status
}

// Status overrides the status text without changing the outcome.
func (r *Run) Status(status string) {
	r.statusText = status
}

// Field adds a field to the final use_case_done line.
func (r *Run) Field(k string, v any) {
	r.fields = append(r.fields, observability.F(k, v))
}

// End closes the span, records RED metrics and writes the use_case_done line.
// Call it deferred with a pointer to the named error result.
func (r *Run) End(errp *error) {
	var err error
	if errp != nil {
		err = *errp
	}
	if err != nil && r.outcome == "success" {
		r.Fail(statusFromError(err))
	}
	lat := time.Since(r.start).Seconds()

	if r.span != nil {
		if err != nil {
			r.span.RecordError(err)
			r.span.SetStatus(codes.Error, r.statusText)
		} else {
			r.span.SetStatus(codes.Ok, r.statusText)
		}
		r.span.End()
	}

	r.in.reqCounter.Add(1,
		observability.L("use_case", r.useCase),
		observability.L("outcome", r.outcome),
	)
	r.in.durHistogram.Observe(lat,
		observability.L("use_case", r.useCase),
	)

	fields := []observability.Field{
		observability.F("outcome", r.outcome),
		observability.F("status", r.statusText),
		observability.F("latency_seconds", lat),
	}
	if r.span != nil {
		if sc := r.span.SpanContext(); sc.IsValid() {
			fields = append(fields,
				observability.F("trace_id", sc.TraceID().String()),
				observability.F("span_id", sc.SpanID().String()),
			)
		}
	}
	fields = append(fields, r.fields...)
	if err != nil {
		fields = append(fields, observability.F("error", err.Error()))
	}
	r.logger.Info("use_case_done", fields...)
}

// External records a call made to an external collaborator.
func (in Instrument) External(peer, endpoint, outcome string, started time.Time) {
	in.extCounter.Add(1,
		observability.L("peer", peer),
		observability.L("endpoint", endpoint),
		observability.L("outcome", outcome),
	)
	in.extHistogram.Observe(time.Since(started).Seconds(),
		observability.L("peer", peer),
		observability.L("endpoint", endpoint),
	)
}

func statusFromError(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "CONTEXT_CANCELED"
	case errors.Is(err, failure.ErrCheckoutFailed):
		return "CHECKOUT_FAILED"
	case errors.Is(err, failure.ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, failure.ErrInvalidArgument):
		return "INVALID_ARGUMENT"
	case errors.Is(err, failure.ErrInsufficientStock):
		return "INSUFFICIENT_STOCK"
	case errors.Is(err, failure.ErrEmptyCart):
		return "EMPTY_CART"
	case errors.Is(err, failure.ErrInactiveCart):
		return "INACTIVE_CART"
	case errors.Is(err, failure.ErrInvalidTransition):
		return "INVALID_TRANSITION"
	default:
		return "INTERNAL"
	}
}
