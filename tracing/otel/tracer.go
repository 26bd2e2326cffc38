// Package otel provides an OpenTelemetry-based implementation of
// tracing.Tracer.
package otel

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/blockberries/tokenberry/tracing"
)

// Tracer implements tracing.Tracer using OpenTelemetry.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer creates a tracer using the global TracerProvider.
func NewTracer(serviceName string) *Tracer {
	return &Tracer{tracer: otel.Tracer(serviceName)}
}

// NewTracerWithProvider creates a tracer using a specific TracerProvider.
func NewTracerWithProvider(serviceName string, provider trace.TracerProvider) *Tracer {
	return &Tracer{tracer: provider.Tracer(serviceName)}
}

// StartSpan starts a new span with the given name.
func (t *Tracer) StartSpan(ctx context.Context, name string) (context.Context, tracing.Span) {
	ctx, otelSpan := t.tracer.Start(ctx, name)
	return ctx, &Span{span: otelSpan}
}

// Span wraps an OpenTelemetry span to implement tracing.Span.
type Span struct {
	span trace.Span
}

// End completes the span.
func (s *Span) End() {
	s.span.End()
}

// SetAttribute sets a key-value attribute on the span.
func (s *Span) SetAttribute(key string, value any) {
	s.span.SetAttributes(convertAttribute(key, value))
}

// RecordError records an error on the span.
func (s *Span) RecordError(err error) {
	s.span.RecordError(err)
}

// SetStatus sets the span status.
func (s *Span) SetStatus(code tracing.StatusCode, description string) {
	var otelCode codes.Code
	switch code {
	case tracing.StatusOK:
		otelCode = codes.Ok
	case tracing.StatusError:
		otelCode = codes.Error
	default:
		otelCode = codes.Unset
	}
	s.span.SetStatus(otelCode, description)
}

// convertAttribute converts a key-value pair to an OTel attribute.
func convertAttribute(key string, value any) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case uint64:
		return attribute.String(key, fmt.Sprintf("%d", v))
	case float64:
		return attribute.Float64(key, v)
	case bool:
		return attribute.Bool(key, v)
	case []byte:
		return attribute.String(key, fmt.Sprintf("%x", v))
	default:
		return attribute.String(key, fmt.Sprintf("%v", v))
	}
}

var (
	_ tracing.Tracer = (*Tracer)(nil)
	_ tracing.Span   = (*Span)(nil)
)
