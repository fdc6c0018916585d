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

// StartConnectionSpan starts a span covering one connection lifecycle.
func StartConnectionSpan(ctx context.Context, tracer trace.Tracer, target string, id int) (context.Context, trace.Span) {
	if tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	ctx, span := tracer.Start(ctx, "websocket connection",
		trace.WithSpanKind(trace.SpanKindClient),
	)
	span.SetAttributes(
		attribute.String("rpc.system", "websocket"),
		attribute.String("server.address", target),
		attribute.Int("wsdrill.connection", id),
	)
	return ctx, span
}

// EndSpan finishes a span, recording error status if applicable.
func EndSpan(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if span == nil {
		return
	}
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

// InjectHandshakeHeaders injects W3C trace context into the WebSocket
// handshake headers. A no-op until a propagator has been installed.
func InjectHandshakeHeaders(ctx context.Context, headers http.Header) {
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(headers))
}
