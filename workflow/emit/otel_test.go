package emit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTestTracer(t *testing.T) (*OTelEmitter, *tracetest.InMemoryExporter) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return NewOTelEmitter(tp.Tracer("test")), exporter
}

func attrs(kvs []attribute.KeyValue) map[string]interface{} {
	out := make(map[string]interface{}, len(kvs))
	for _, kv := range kvs {
		out[string(kv.Key)] = kv.Value.AsInterface()
	}
	return out
}

func TestOTelEmitter_Emit(t *testing.T) {
	emitter, exporter := newTestTracer(t)

	emitter.Emit(Event{
		RunID:      "run-1",
		WorkflowID: "wf-1",
		Step:       3,
		NodeID:     "ask",
		Msg:        MsgNodeEnd,
		Meta: map[string]interface{}{
			"status":      "Completed",
			"tokens_in":   12,
			"duration_ms": int64(40),
			"elapsed":     2 * time.Second,
		},
	})

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, MsgNodeEnd, span.Name)

	got := attrs(span.Attributes)
	assert.Equal(t, "run-1", got["workflow.run_id"])
	assert.Equal(t, "wf-1", got["workflow.id"])
	assert.Equal(t, int64(3), got["workflow.step"])
	assert.Equal(t, "ask", got["workflow.node_id"])
	assert.Equal(t, "Completed", got["status"])
	assert.Equal(t, int64(12), got["workflow.llm.tokens_in"])
	assert.Equal(t, int64(40), got["workflow.node.duration_ms"])
	assert.Equal(t, int64(2000), got["elapsed"])
	assert.Equal(t, codes.Unset, span.Status.Code)
}

func TestOTelEmitter_ErrorStatus(t *testing.T) {
	emitter, exporter := newTestTracer(t)

	emitter.Emit(Event{RunID: "r", NodeID: "n", Msg: MsgNodeEnd, Meta: map[string]interface{}{"error": "boom"}})

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Equal(t, "boom", spans[0].Status.Description)
	assert.NotEmpty(t, spans[0].Events, "error should be recorded as a span event")
}

func TestOTelEmitter_EmitBatch(t *testing.T) {
	emitter, exporter := newTestTracer(t)

	err := emitter.EmitBatch(context.Background(), []Event{
		{RunID: "r", Msg: MsgRunStart},
		{RunID: "r", Msg: MsgRunEnd},
	})
	require.NoError(t, err)
	assert.Len(t, exporter.GetSpans(), 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, emitter.EmitBatch(ctx, []Event{{RunID: "r"}}), context.Canceled)
}
