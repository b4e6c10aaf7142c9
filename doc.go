// Package tracebind is a tracing instrumentation runtime that lets libraries
// obtain tracers and start spans before the application has configured a
// tracing backend.
//
// # Deferred binding
//
// [GetTracer] never fails. Before [SetDefault] it hands out a [ProxyTracer]
// per (name, version) that produces no-op spans; [SetDefault] is write-once
// and rebinds every proxy issued so far, so cached tracers start recording
// without being fetched again:
//
//	var tracer = tracebind.GetTracer("billing", tracebind.WithInstrumentationVersion(tracebind.SemVersion()))
//
//	func main() {
//	    tp := tracebind.NewProvider(tracebind.WithBatcher(exporter))
//	    if err := tracebind.SetDefault(tp); err != nil {
//	        log.Fatal(err)
//	    }
//	    defer tp.Shutdown(context.Background())
//	    // tracer now records
//	}
//
// A second SetDefault returns [ErrAlreadyInitialized]; a nil provider returns
// an error matching [ErrInvalidArgument].
//
// # Spans
//
// Span mutators never fail: empty keys, unsupported values and calls after
// End are ignored. [NoopSpan] is the shared inert span returned whenever
// nothing records. Completed spans are handed to [SpanProcessor]s exactly
// once as an immutable [SpanData].
//
//	func ProcessBatch(ctx context.Context, batch []Item) error {
//	    ctx, span := tracebind.Start(ctx, "ProcessBatch")
//	    defer span.End()
//
//	    tracebind.SetAttributes(ctx, attribute.Int("batch.size", len(batch)))
//
//	    if err := process(ctx, batch); err != nil {
//	        tracebind.RecordError(ctx, err)
//	        return err
//	    }
//
//	    tracebind.SetSuccess(ctx)
//	    return nil
//	}
//
// # Configuration
//
// [Setup] wires a process from a [TelemetryConfig], loaded with [LoadConfig]
// from YAML, JSON or OTel environment variables:
//
//	enabled: true
//	serviceName: "my-service"  # OTEL_SERVICE_NAME
//	traces:
//	  exporter: "otlp"         # OTEL_TRACES_EXPORTER
//	  sampling:
//	    sampler: "parentbased_traceidratio"
//	    samplerArg: 0.1
//	propagation:
//	  propagators: "tracecontext,baggage"
//	  carrier: "context"
//
// # Correlation context
//
// The correlation sub-package carries immutable key/value entries along
// context.Context. [Inject] and [Extract] send them as W3C baggage together
// with the span context.
//
// # Instrumentation
//
// The http, grpc and nats sub-packages instrument transports on top of this
// package. [OTelTracerProvider] exposes any tracebind provider through the
// OpenTelemetry API for third-party instrumentation.
package tracebind
