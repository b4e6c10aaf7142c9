package tracebind

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zoobzio/clockz"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

func TestOTelTracerProvider_RecordsThroughProvider(t *testing.T) {
	clock := clockz.NewFakeClock()
	tp, rec := newRecordingProvider(t, WithClock(clock))
	otp := OTelTracerProvider(tp)

	tracer := otp.Tracer("otelhttp", trace.WithInstrumentationVersion("0.64.0"))
	ctx, span := tracer.Start(context.Background(), "GET /users",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String("http.method", "GET")),
	)
	require.True(t, span.IsRecording())
	assert.Equal(t, span, trace.SpanFromContext(ctx))
	assert.Equal(t, otp, span.TracerProvider())

	span.SetName("GET /users/{id}")
	span.SetAttributes(attribute.Int("http.status_code", 500))
	span.AddEvent("retry", trace.WithAttributes(attribute.Int("attempt", 2)))
	span.RecordError(errors.New("upstream"))
	span.SetStatus(codes.Error, "upstream failed")
	span.AddLink(trace.Link{})

	end := clock.Now().Add(time.Second)
	span.End(trace.WithTimestamp(end))
	span.End()

	_, child := tracer.Start(ctx, "child")
	child.End()

	require.Len(t, rec.spans, 2)
	data := rec.spans[0]
	assert.Equal(t, "GET /users/{id}", data.Name)
	assert.Equal(t, trace.SpanKindServer, data.Kind)
	assert.Equal(t, "otelhttp", data.Scope.Name)
	assert.Equal(t, "0.64.0", data.Scope.Version)
	assert.Equal(t, end, data.EndTime)
	assert.Contains(t, data.Attributes, attribute.Int("http.status_code", 500))
	require.Len(t, data.Events, 2)
	assert.Equal(t, "retry", data.Events[0].Name)
	assert.Equal(t, "exception", data.Events[1].Name)
	assert.Equal(t, Status{Code: codes.Error, Description: "upstream failed"}, data.Status)

	assert.Equal(t, data.SpanContext, rec.spans[1].Parent, "otel context carries the parent")
}

func TestOTelTracerProvider_NewRoot(t *testing.T) {
	tp, _ := newRecordingProvider(t)
	tracer := OTelTracerProvider(tp).Tracer("lib")

	ctx, parent := tracer.Start(context.Background(), "parent")
	defer parent.End()
	_, root := tracer.Start(ctx, "root", trace.WithNewRoot())
	defer root.End()

	assert.NotEqual(t, parent.SpanContext().TraceID(), root.SpanContext().TraceID())
}

func TestOTelTracerProvider_Deferred(t *testing.T) {
	resetGlobals(t)

	tracer := OTelTracerProvider(nil).Tracer("lib")
	ctx := context.Background()

	ctx2, span := tracer.Start(ctx, "before")
	assert.False(t, span.IsRecording())
	assert.False(t, span.SpanContext().IsValid())
	assert.Equal(t, ctx, ctx2)
	span.End()

	tp, rec := newRecordingProvider(t)
	require.NoError(t, SetDefault(tp))

	_, span = tracer.Start(ctx, "after")
	assert.True(t, span.IsRecording())
	span.End()
	assert.Len(t, rec.spans, 1)
}

func TestOTelTracerProvider_InteropWithContext(t *testing.T) {
	tp, rec := newRecordingProvider(t)

	ctx, native := tp.Tracer("native").Start(context.Background(), "native")
	_, bridged := OTelTracerProvider(tp).Tracer("otel").Start(ctx, "bridged")
	bridged.End()
	native.End()

	require.Len(t, rec.spans, 2)
	assert.Equal(t, native.SpanContext(), rec.spans[0].Parent)
}
