package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNopTracer(t *testing.T) {
	tracer := NewNopTracer()

	ctx := context.Background()
	spanCtx, span := tracer.StartSpan(ctx, "anything")
	require.Equal(t, ctx, spanCtx, "nop tracer leaves the context alone")

	// All span operations are safe no-ops.
	span.SetAttribute("key", "value")
	span.RecordError(errors.New("ignored"))
	span.SetStatus(StatusError, "ignored")
	span.End()
}
