package trace

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

func InstrumentConnectionCreated(ctx context.Context, connID, connType string) (context.Context, trace.Span) {
	return StartSpan(ctx, "connection.created",
		trace.WithAttributes(
			ConnectionAttrs(connID, connType, "created")...,
		),
	)
}

// InstrumentConnectionMessage creates a span for a message sent or received
// over a connection.
func InstrumentConnectionMessage(ctx context.Context, connID, connType, direction string, dataSize int) (context.Context, trace.Span) {
	attrs := ConnectionAttrs(connID, connType, "active")
	attrs = append(attrs,
		attribute.String("message.direction", direction),
		attribute.Int("message.size", dataSize),
	)

	return StartSpan(ctx, fmt.Sprintf("connection.message.%s", direction),
		trace.WithAttributes(attrs...),
	)
}

// InstrumentConnectionError records err on a fresh span and returns it.
func InstrumentConnectionError(ctx context.Context, connID, connType string, err error) (context.Context, trace.Span) {
	attrs := ConnectionAttrs(connID, connType, "error")
	if err != nil {
		attrs = append(attrs, ErrorAttrs(fmt.Sprintf("%T", err), err.Error())...)
	}
	ctx, span := StartSpan(ctx, "connection.error", trace.WithAttributes(attrs...))

	RecordError(span, err)
	return ctx, span
}

func InstrumentConnectionClosed(ctx context.Context, connID, connType string) (context.Context, trace.Span) {
	return StartSpan(ctx, "connection.closed",
		trace.WithAttributes(
			ConnectionAttrs(connID, connType, "closed")...,
		),
	)
}
