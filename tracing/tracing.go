// Package tracing provides span-based tracing for transaction execution.
// The Tracer interface keeps the execution path independent of the
// OpenTelemetry SDK; the otel-backed implementation lives alongside it.
package tracing

import "context"

// StatusCode is the final status of a traced operation.
type StatusCode int

const (
	StatusUnset StatusCode = iota
	StatusOK
	StatusError
)

// Tracer starts spans for traced operations.
type Tracer interface {
	// StartSpan starts a new span with the given name. The returned
	// context carries the span; call End when the operation completes.
	StartSpan(ctx context.Context, name string) (context.Context, Span)
}

// Span represents a single operation within a trace.
type Span interface {
	// End completes the span.
	End()

	// SetAttribute sets a key-value attribute on the span.
	SetAttribute(key string, value any)

	// RecordError records an error on the span.
	RecordError(err error)

	// SetStatus sets the span status.
	SetStatus(code StatusCode, description string)
}

// NopTracer discards all spans.
type NopTracer struct{}

// NewNopTracer creates a tracer that records nothing.
func NewNopTracer() *NopTracer {
	return &NopTracer{}
}

// StartSpan returns the context unchanged and a span that does nothing.
func (t *NopTracer) StartSpan(ctx context.Context, name string) (context.Context, Span) {
	return ctx, nopSpan{}
}

type nopSpan struct{}

func (nopSpan) End()                                   {}
func (nopSpan) SetAttribute(key string, value any)     {}
func (nopSpan) RecordError(err error)                  {}
func (nopSpan) SetStatus(code StatusCode, desc string) {}

var _ Tracer = (*NopTracer)(nil)
