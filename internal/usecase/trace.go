package usecase

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	attrReference  = attribute.Key("matchlog.reference")
	attrExternalID = attribute.Key("matchlog.match.external_id")
	attrErrorKind  = attribute.Key("matchlog.error.kind")
)

var usecaseTracer = otel.Tracer("matchlog/internal/usecase")
var usecaseNoopSpan = trace.SpanFromContext(context.Background())

// startUsecaseSpan opens a child span tagged with attrs. Without a recording
// parent it returns a no-op span so library callers pay nothing.
func startUsecaseSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if strings.TrimSpace(name) == "" {
		return ctx, usecaseNoopSpan
	}
	parent := trace.SpanFromContext(ctx)
	if !parent.SpanContext().IsValid() {
		return ctx, usecaseNoopSpan
	}
	return usecaseTracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// endUsecaseSpan records err with its taxonomy kind and ends span.
func endUsecaseSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attrErrorKind.String(KindOf(err)))
		span.SetStatus(codes.Error, KindOf(err))
	}
	span.End()
}
