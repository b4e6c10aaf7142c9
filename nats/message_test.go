package nats

import (
	"context"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

func TestTracedMsg_Context(t *testing.T) {
	assert.Equal(t, context.Background(), (&TracedMsg{}).Context())

	type ctxKey string
	ctx := context.WithValue(context.Background(), ctxKey("key"), "value")
	msg := &TracedMsg{ctx: ctx}
	assert.Equal(t, "value", msg.Context().Value(ctxKey("key")))
}

func TestNewTracedMsg(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(testPropagator)
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	tp, _ := newProvider(t)
	ctx, parent := tp.Tracer("test").Start(context.Background(), "parent")
	headers := headersFrom(ctx)
	parent.End()

	traced := NewTracedMsg(&mockMsg{subject: "test.subject", headers: headers})
	assert.Equal(t, parent.SpanContext().TraceID(), trace.SpanContextFromContext(traced.Context()).TraceID())

	traced = NewTracedMsg(&mockMsg{subject: "test.subject"})
	assert.False(t, trace.SpanContextFromContext(traced.Context()).IsValid())

	traced = NewTracedMsg(nil)
	assert.Nil(t, traced.Msg)
	assert.NotNil(t, traced.Context())
}

func TestNewTracedMsgWithPropagator(t *testing.T) {
	prop := &trackingPropagator{}
	NewTracedMsgWithPropagator(&mockMsg{headers: make(nats.Header)}, prop)
	assert.True(t, prop.extracted)
}

func TestTracedMsg_StartProcessSpan(t *testing.T) {
	tp, exp := newProvider(t)

	ctx, parent := tp.Tracer("test").Start(context.Background(), "parent")
	headers := headersFrom(ctx)
	parent.End()

	msg := NewTracedMsgWithPropagator(&mockMsg{
		subject: "orders.created",
		data:    []byte("test-data"),
		headers: headers,
		metadata: &jetstream.MsgMetadata{
			Consumer: "order-processor",
			Stream:   "ORDERS",
		},
	}, testPropagator)

	spanCtx, end := msg.StartProcessSpanWithTracer(tp)
	assert.True(t, trace.SpanContextFromContext(spanCtx).IsValid())
	end(nil)

	spans := exp.GetSpans()
	require.Len(t, spans, 2)
	process := spans[1]
	assert.Equal(t, "process ORDERS", process.Name)
	assert.Equal(t, trace.SpanKindConsumer, process.SpanKind)
	assert.Equal(t, parent.SpanContext().SpanID(), process.Parent.SpanID())
	assert.Equal(t, codes.Unset, process.Status.Code)
	assert.NotContains(t, spanAttrMap(process), "messaging.message.id")
}

func TestTracedMsg_StartProcessSpan_Error(t *testing.T) {
	tp, exp := newProvider(t)

	msg := NewTracedMsgWithPropagator(&mockMsg{subject: "orders.created"}, testPropagator)
	_, end := msg.StartProcessSpanWithTracer(tp, WithStream("ORDERS"), WithTracerName("custom.tracer"))
	end(assert.AnError)

	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "process ORDERS", spans[0].Name)
	assert.Equal(t, "custom.tracer", spans[0].InstrumentationScope.Name)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	require.Len(t, spans[0].Events, 1)
}

func TestTracedMessageBatch_Messages(t *testing.T) {
	batch := &TracedMessageBatch{
		batch: &fakeBatch{msgs: []jetstream.Msg{&mockMsg{}, &mockMsg{}, &mockMsg{}}, err: assert.AnError},
		ctx:   context.Background(),
		prop:  testPropagator,
	}

	var n int
	for range batch.Messages() {
		n++
	}
	assert.Equal(t, 3, n)
	assert.Equal(t, batch.Messages(), batch.Messages())
	assert.ErrorIs(t, batch.Error(), assert.AnError)
}
