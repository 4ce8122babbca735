package tracing

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys.
const (
	AttrSlot    = attribute.Key("relaybench.slot")
	AttrTarget  = attribute.Key("relaybench.target")
	AttrLocal   = attribute.Key("relaybench.local_addr")
	AttrOutcome = attribute.Key("relaybench.outcome")
	AttrKind    = attribute.Key("relaybench.error_kind")
)

// StartSlotSpan starts the span covering one connection slot, from admission
// to its terminal outcome.
func StartSlotSpan(ctx context.Context, tracer trace.Tracer, slot int, target, local string) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, "websocket connection",
		trace.WithSpanKind(trace.SpanKindClient),
	)
	span.SetAttributes(
		attribute.String("network.protocol.name", "websocket"),
		AttrSlot.Int(slot),
		AttrTarget.String(target),
	)
	if local != "" {
		span.SetAttributes(AttrLocal.String(local))
	}
	return ctx, span
}

// EndSpan finishes a span, recording error status if applicable.
func EndSpan(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// InjectHTTPHeaders injects W3C trace context into HTTP headers.
func InjectHTTPHeaders(ctx context.Context, headers http.Header) {
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(headers))
}
