package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func recordingLayer(t *testing.T) (*TraceLayer, *tracetest.SpanRecorder) {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return NewTraceLayer(tp.Tracer("test")), rec
}

func attrMap(kvs []attribute.KeyValue) map[string]string {
	out := make(map[string]string, len(kvs))
	for _, kv := range kvs {
		out[string(kv.Key)] = kv.Value.Emit()
	}
	return out
}

func TestTraceStoreOperation(t *testing.T) {
	layer, rec := recordingLayer(t)

	_, span := layer.TraceStoreOperation(context.Background(), "mongodb", "find", "pins")
	EndSpan(span, nil)

	ended := rec.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "pins.find", ended[0].Name())
	assert.Equal(t, trace.SpanKindClient, ended[0].SpanKind())
	attrs := attrMap(ended[0].Attributes())
	assert.Equal(t, "mongodb", attrs["db.system"])
	assert.Equal(t, "pins", attrs["db.collection"])
	assert.Equal(t, codes.Unset, ended[0].Status().Code)
}

func TestEndSpan_RecordsError(t *testing.T) {
	layer, rec := recordingLayer(t)

	ctx, parent := layer.TraceServiceCall(context.Background(), "engagement", "ToggleLike")
	_, child := layer.TraceRedisOperation(ctx, "hset")
	EndSpan(child, errors.New("connection refused"))
	EndSpan(parent, nil)

	ended := rec.Ended()
	require.Len(t, ended, 2)
	assert.Equal(t, "redis.hset", ended[0].Name())
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Equal(t, "connection refused", ended[0].Status().Description)
	require.Len(t, ended[0].Events(), 1)
	assert.Equal(t, ended[1].SpanContext().SpanID(), ended[0].Parent().SpanID())

	assert.Equal(t, "engagement.ToggleLike", ended[1].Name())
	assert.Equal(t, "ToggleLike", attrMap(ended[1].Attributes())["creaza.method"])
}

func TestInitTracing_Disabled(t *testing.T) {
	shutdown, err := InitTracing(TracingConfig{Enabled: false})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
	assert.NotNil(t, Tracer)
}
