package tracebind

import (
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/instrumentation"
	"go.opentelemetry.io/otel/trace"
)

// Span is one unit of traced work.
//
// Mutators never fail and never panic: empty keys, unsupported attribute
// values and calls on an ended span are silently ignored.
type Span interface {
	// SpanContext returns the identity of the span.
	SpanContext() SpanContext
	// IsRecording reports whether the span records mutations.
	IsRecording() bool
	// SetName replaces the span name.
	SetName(name string)
	// SetAttributes sets attributes; the last value written for a key wins.
	SetAttributes(attrs ...attribute.KeyValue)
	// AddEvent appends a timestamped event.
	AddEvent(name string, attrs ...attribute.KeyValue)
	// SetStatus sets the span status. Ok is final, Unset is ignored and the
	// description is only kept for Error.
	SetStatus(code codes.Code, description string)
	// RecordError adds an exception event for err. A nil err is ignored.
	RecordError(err error, attrs ...attribute.KeyValue)
	// End completes the span. Only the first call has an effect.
	End()
}

type noopSpan struct{}

var noopSpanInstance Span = noopSpan{}

// NoopSpan returns the shared inert span. Its context is invalid and it never
// records.
func NoopSpan() Span { return noopSpanInstance }

func (noopSpan) SpanContext() SpanContext { return SpanContext{} }
func (noopSpan) IsRecording() bool { return false }
func (noopSpan) SetName(string) {}
func (noopSpan) SetAttributes(...attribute.KeyValue) {}
func (noopSpan) AddEvent(string, ...attribute.KeyValue) {}
func (noopSpan) SetStatus(codes.Code, string) {}
func (noopSpan) RecordError(error, ...attribute.KeyValue) {}
func (noopSpan) End() {}

// nonRecordingSpan carries an identity without a body. It is returned for
// dropped sampling decisions and for remote parents found in a context.
type nonRecordingSpan struct {
	sc SpanContext
}

func (s nonRecordingSpan) SpanContext() SpanContext { return s.sc }
func (nonRecordingSpan) IsRecording() bool { return false }
func (nonRecordingSpan) SetName(string) {}
func (nonRecordingSpan) SetAttributes(...attribute.KeyValue) {}
func (nonRecordingSpan) AddEvent(string, ...attribute.KeyValue) {}
func (nonRecordingSpan) SetStatus(codes.Code, string) {}
func (nonRecordingSpan) RecordError(error, ...attribute.KeyValue) {}
func (nonRecordingSpan) End() {}

// Attribute builds a KeyValue from a loosely typed value. Values that are not
// a string, bool, integer or float produce an invalid KeyValue that spans
// ignore.
func Attribute(key string, value any) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case bool:
		return attribute.Bool(key, v)
	case int:
		return attribute.Int(key, v)
	case int32:
		return attribute.Int64(key, int64(v))
	case int64:
		return attribute.Int64(key, v)
	case float32:
		return attribute.Float64(key, float64(v))
	case float64:
		return attribute.Float64(key, v)
	default:
		return attribute.KeyValue{Key: attribute.Key(key)}
	}
}

func validAttribute(kv attribute.KeyValue) bool {
	if kv.Key == "" {
		return false
	}
	switch kv.Value.Type() {
	case attribute.BOOL, attribute.INT64, attribute.FLOAT64, attribute.STRING:
		return true
	default:
		return false
	}
}

type recordingSpan struct {
	provider *Provider
	scope    instrumentation.Scope
	sc       SpanContext
	parent   SpanContext
	kind     trace.SpanKind
	start    time.Time

	mu            sync.Mutex
	name          string
	attrs         []attribute.KeyValue
	attrIndex     map[attribute.Key]int
	droppedAttrs  int
	events        []Event
	droppedEvents int
	status        Status
	end           time.Time
	ended         bool
}

func (s *recordingSpan) SpanContext() SpanContext { return s.sc }

func (s *recordingSpan) IsRecording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return !s.ended
}

func (s *recordingSpan) SetName(name string) {
	if name == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	s.name = name
}

func (s *recordingSpan) SetAttributes(attrs ...attribute.KeyValue) {
	if len(attrs) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	s.setAttributesLocked(attrs)
}

func (s *recordingSpan) setAttributesLocked(attrs []attribute.KeyValue) {
	limit := s.provider.limits.AttributeCountLimit
	for _, kv := range attrs {
		if !validAttribute(kv) {
			continue
		}
		if i, ok := s.attrIndex[kv.Key]; ok {
			s.attrs[i] = kv
			continue
		}
		if limit >= 0 && len(s.attrs) >= limit {
			s.droppedAttrs++
			continue
		}
		if s.attrIndex == nil {
			s.attrIndex = make(map[attribute.Key]int)
		}
		s.attrIndex[kv.Key] = len(s.attrs)
		s.attrs = append(s.attrs, kv)
	}
}

func (s *recordingSpan) AddEvent(name string, attrs ...attribute.KeyValue) {
	if name == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	s.addEventLocked(name, attrs)
}

func (s *recordingSpan) addEventLocked(name string, attrs []attribute.KeyValue) {
	limits := s.provider.limits
	if limits.EventCountLimit >= 0 && len(s.events) >= limits.EventCountLimit {
		s.droppedEvents++
		return
	}

	ev := Event{Name: name, Time: s.provider.clock.Now()}
	for _, kv := range attrs {
		if !validAttribute(kv) {
			continue
		}
		if limits.AttributePerEventCountLimit >= 0 && len(ev.Attributes) >= limits.AttributePerEventCountLimit {
			ev.DroppedAttributes++
			continue
		}
		ev.Attributes = append(ev.Attributes, kv)
	}
	s.events = append(s.events, ev)
}

func (s *recordingSpan) SetStatus(code codes.Code, description string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	switch code {
	case codes.Error:
		if s.status.Code == codes.Ok {
			return
		}
		s.status = Status{Code: codes.Error, Description: description}
	case codes.Ok:
		s.status = Status{Code: codes.Ok}
	}
}

func (s *recordingSpan) RecordError(err error, attrs ...attribute.KeyValue) {
	if err == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}

	evAttrs := make([]attribute.KeyValue, 0, len(attrs)+2)
	evAttrs = append(evAttrs,
		attribute.String("exception.type", fmt.Sprintf("%T", err)),
		attribute.String("exception.message", err.Error()),
	)
	evAttrs = append(evAttrs, attrs...)
	s.addEventLocked("exception", evAttrs)
}

func (s *recordingSpan) End() {
	s.endAt(time.Time{})
}

func (s *recordingSpan) endAt(ts time.Time) {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.ended = true
	if ts.IsZero() {
		ts = s.provider.clock.Now()
	}
	s.end = ts
	data := s.snapshotLocked()
	s.mu.Unlock()

	s.provider.onEnd(data)
}

// snapshotLocked copies the span state; the result shares nothing mutable
// with the span.
func (s *recordingSpan) snapshotLocked() SpanData {
	data := SpanData{
		Name:              s.name,
		SpanContext:       s.sc,
		Parent:            s.parent,
		Kind:              s.kind,
		StartTime:         s.start,
		EndTime:           s.end,
		Status:            s.status,
		DroppedAttributes: s.droppedAttrs,
		DroppedEvents:     s.droppedEvents,
		Scope:             s.scope,
		Resource:          s.provider.resource,
	}
	if len(s.attrs) > 0 {
		data.Attributes = make([]attribute.KeyValue, len(s.attrs))
		copy(data.Attributes, s.attrs)
	}
	if len(s.events) > 0 {
		data.Events = make([]Event, len(s.events))
		for i, ev := range s.events {
			data.Events[i] = ev
			if len(ev.Attributes) > 0 {
				data.Events[i].Attributes = append([]attribute.KeyValue(nil), ev.Attributes...)
			}
		}
	}

	return data
}
