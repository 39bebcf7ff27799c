package polaris

import (
	"context"

	"github.com/fjacquet/rubrik_polaris/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// TracerWrapper starts spans from an injected TracerProvider and falls back
// to a noop tracer, so callers never check for nil.
type TracerWrapper struct {
	tracer trace.Tracer
}

// NewTracerWrapper returns a wrapper around tp. A nil provider yields noop spans.
func NewTracerWrapper(tp trace.TracerProvider, instrumentation string) *TracerWrapper {
	if tp == nil {
		tp = noop.NewTracerProvider()
	}
	return &TracerWrapper{tracer: tp.Tracer(instrumentation)}
}

// StartSpan starts a span of the given kind. The returned span is never nil.
func (w *TracerWrapper) StartSpan(ctx context.Context, name string, kind trace.SpanKind, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return w.tracer.Start(ctx, name, trace.WithSpanKind(kind), trace.WithAttributes(attrs...))
}

// recordError marks the span as failed.
func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attribute.String(telemetry.AttrError, err.Error()))
}
