package tracebind

import (
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/instrumentation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// Status is the outcome of a span.
type Status struct {
	Code        codes.Code
	Description string
}

// Event is a timestamped annotation on a span.
type Event struct {
	Name              string
	Time              time.Time
	Attributes        []attribute.KeyValue
	DroppedAttributes int
}

// SpanData is the immutable snapshot of a completed span handed to span
// processors. Processors must treat it as read-only.
type SpanData struct {
	Name              string
	SpanContext       SpanContext
	Parent            SpanContext
	Kind              trace.SpanKind
	StartTime         time.Time
	EndTime           time.Time
	Attributes        []attribute.KeyValue
	Events            []Event
	Status            Status
	DroppedAttributes int
	DroppedEvents     int
	Scope             instrumentation.Scope
	Resource          *resource.Resource
}

// Duration returns the elapsed time between start and end.
func (d SpanData) Duration() time.Duration {
	return d.EndTime.Sub(d.StartTime)
}

// ReadOnly converts d into the OpenTelemetry SDK representation consumed by
// span exporters.
func (d SpanData) ReadOnly() sdktrace.ReadOnlySpan {
	events := make([]sdktrace.Event, 0, len(d.Events))
	for _, ev := range d.Events {
		events = append(events, sdktrace.Event{
			Name:                  ev.Name,
			Time:                  ev.Time,
			Attributes:            ev.Attributes,
			DroppedAttributeCount: ev.DroppedAttributes,
		})
	}

	stub := tracetest.SpanStub{
		Name:                 d.Name,
		SpanContext:          d.SpanContext.OTel(),
		Parent:               d.Parent.OTel(),
		SpanKind:             d.Kind,
		StartTime:            d.StartTime,
		EndTime:              d.EndTime,
		Attributes:           d.Attributes,
		Events:               events,
		Status:               sdktrace.Status{Code: d.Status.Code, Description: d.Status.Description},
		DroppedAttributes:    d.DroppedAttributes,
		DroppedEvents:        d.DroppedEvents,
		Resource:             d.Resource,
		InstrumentationScope: d.Scope,
	}

	return stub.Snapshot()
}

func readOnlySpans(batch []SpanData) []sdktrace.ReadOnlySpan {
	out := make([]sdktrace.ReadOnlySpan, len(batch))
	for i := range batch {
		out[i] = batch[i].ReadOnly()
	}

	return out
}
