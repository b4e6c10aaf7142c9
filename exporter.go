package tracebind

import (
	"context"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// exporterParams holds the resolved settings of one signal's exporter.
type exporterParams struct {
	Type        string            // "otlp", "console", "nop"
	Protocol    string            // "grpc", "http/protobuf"
	Endpoint    string            // host:port or URL
	Headers     map[string]string // custom headers
	Timeout     time.Duration     // request timeout
	Compression string            // "gzip", "none"
	Insecure    bool              // disable TLS
}

// resolveExporterParams merges the shared OTLP settings with a signal's
// exporter type and endpoint override.
func resolveExporterParams(cfg *TelemetryConfig, exporterType, endpoint string) exporterParams {
	params := exporterParams{
		Type:     "otlp",
		Protocol: "grpc",
		Endpoint: "localhost:4317",
		Timeout:  10 * time.Second,
		Insecure: true,
	}

	otlp := cfg.GetOTLPConfig()
	if otlp.Endpoint != "" {
		params.Endpoint = otlp.Endpoint
	}
	if otlp.Protocol != "" {
		params.Protocol = otlp.Protocol
	}
	if otlp.Timeout > 0 {
		params.Timeout = normalizeDuration(otlp.Timeout)
	}
	if otlp.Headers != nil {
		params.Headers = otlp.Headers
	}
	params.Compression = otlp.Compression
	params.Insecure = otlp.IsInsecure()

	if exporterType != "" {
		params.Type = exporterType
	}
	if endpoint != "" {
		params.Endpoint = endpoint
	}
	params.Type = normalizeExporterType(params.Type)

	return params
}

// exporterFactory builds the exporter of one signal for each exporter type.
type exporterFactory[E any] struct {
	console func() (E, error)
	nop     E
	http    func(context.Context, exporterParams) (E, error)
	grpc    func(context.Context, exporterParams) (E, error)
}

func (f exporterFactory[E]) build(ctx context.Context, params exporterParams) (E, error) {
	switch params.Type {
	case "console":
		return f.console()
	case "none", "nop":
		return f.nop, nil
	}
	if isHTTPProtocol(params.Protocol) {
		return f.http(ctx, params)
	}

	return f.grpc(ctx, params)
}

func isHTTPProtocol(protocol string) bool {
	return protocol == "http/protobuf" || protocol == "http"
}

type nopSpanExporter struct{}

func (nopSpanExporter) ExportSpans(context.Context, []sdktrace.ReadOnlySpan) error { return nil }
func (nopSpanExporter) Shutdown(context.Context) error { return nil }

var spanExporters = exporterFactory[sdktrace.SpanExporter]{
	console: func() (sdktrace.SpanExporter, error) {
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	},
	nop: nopSpanExporter{},
	http: func(ctx context.Context, p exporterParams) (sdktrace.SpanExporter, error) {
		opts := otlpOptionSet[otlptracehttp.Option]{
			endpoint:    otlptracehttp.WithEndpoint,
			endpointURL: otlptracehttp.WithEndpointURL,
			headers:     otlptracehttp.WithHeaders,
			timeout:     otlptracehttp.WithTimeout,
			insecure:    otlptracehttp.WithInsecure,
			gzip:        func() otlptracehttp.Option { return otlptracehttp.WithCompression(otlptracehttp.GzipCompression) },
		}.build(p)

		return otlptrace.New(ctx, otlptracehttp.NewClient(opts...))
	},
	grpc: func(ctx context.Context, p exporterParams) (sdktrace.SpanExporter, error) {
		opts := otlpOptionSet[otlptracegrpc.Option]{
			endpoint: otlptracegrpc.WithEndpoint,
			headers:  otlptracegrpc.WithHeaders,
			timeout:  otlptracegrpc.WithTimeout,
			insecure: otlptracegrpc.WithInsecure,
			gzip:     func() otlptracegrpc.Option { return otlptracegrpc.WithCompressor("gzip") },
		}.build(p)

		return otlptrace.New(ctx, otlptracegrpc.NewClient(opts...))
	},
}

// buildTraceExporter creates the span exporter fed by the batch processor.
func buildTraceExporter(ctx context.Context, cfg *TelemetryConfig) (sdktrace.SpanExporter, error) {
	var exporterType, endpoint string
	if cfg != nil && cfg.Traces != nil {
		exporterType, endpoint = cfg.Traces.Exporter, cfg.Traces.Endpoint
	}

	return spanExporters.build(ctx, resolveExporterParams(cfg, exporterType, endpoint))
}

type nopLogExporter struct{}

func (nopLogExporter) Export(context.Context, []sdklog.Record) error { return nil }
func (nopLogExporter) Shutdown(context.Context) error { return nil }
func (nopLogExporter) ForceFlush(context.Context) error { return nil }

var logExporters = exporterFactory[sdklog.Exporter]{
	console: func() (sdklog.Exporter, error) {
		return stdoutlog.New(stdoutlog.WithPrettyPrint())
	},
	nop: nopLogExporter{},
	http: func(ctx context.Context, p exporterParams) (sdklog.Exporter, error) {
		return otlploghttp.New(ctx, otlpOptionSet[otlploghttp.Option]{
			endpoint:    otlploghttp.WithEndpoint,
			endpointURL: otlploghttp.WithEndpointURL,
			headers:     otlploghttp.WithHeaders,
			timeout:     otlploghttp.WithTimeout,
			insecure:    otlploghttp.WithInsecure,
			gzip:        func() otlploghttp.Option { return otlploghttp.WithCompression(otlploghttp.GzipCompression) },
		}.build(p)...)
	},
	grpc: func(ctx context.Context, p exporterParams) (sdklog.Exporter, error) {
		return otlploggrpc.New(ctx, otlpOptionSet[otlploggrpc.Option]{
			endpoint: otlploggrpc.WithEndpoint,
			headers:  otlploggrpc.WithHeaders,
			timeout:  otlploggrpc.WithTimeout,
			insecure: otlploggrpc.WithInsecure,
			gzip:     func() otlploggrpc.Option { return otlploggrpc.WithCompressor("gzip") },
		}.build(p)...)
	},
}

func buildLogExporter(ctx context.Context, cfg *TelemetryConfig) (sdklog.Exporter, error) {
	var exporterType, endpoint string
	if cfg != nil && cfg.Logs != nil {
		exporterType, endpoint = cfg.Logs.Exporter, cfg.Logs.Endpoint
	}

	return logExporters.build(ctx, resolveExporterParams(cfg, exporterType, endpoint))
}

type nopMetricExporter struct{}

func (nopMetricExporter) Export(context.Context, *metricdata.ResourceMetrics) error { return nil }

func (nopMetricExporter) Temporality(k sdkmetric.InstrumentKind) metricdata.Temporality {
	return sdkmetric.DefaultTemporalitySelector(k)
}

func (nopMetricExporter) Aggregation(k sdkmetric.InstrumentKind) sdkmetric.Aggregation {
	return sdkmetric.DefaultAggregationSelector(k)
}

func (nopMetricExporter) ForceFlush(context.Context) error { return nil }
func (nopMetricExporter) Shutdown(context.Context) error { return nil }

var metricExporters = exporterFactory[sdkmetric.Exporter]{
	console: func() (sdkmetric.Exporter, error) {
		return stdoutmetric.New(stdoutmetric.WithPrettyPrint())
	},
	nop: nopMetricExporter{},
	http: func(ctx context.Context, p exporterParams) (sdkmetric.Exporter, error) {
		return otlpmetrichttp.New(ctx, otlpOptionSet[otlpmetrichttp.Option]{
			endpoint:    otlpmetrichttp.WithEndpoint,
			endpointURL: otlpmetrichttp.WithEndpointURL,
			headers:     otlpmetrichttp.WithHeaders,
			timeout:     otlpmetrichttp.WithTimeout,
			insecure:    otlpmetrichttp.WithInsecure,
			gzip:        func() otlpmetrichttp.Option { return otlpmetrichttp.WithCompression(otlpmetrichttp.GzipCompression) },
		}.build(p)...)
	},
	grpc: func(ctx context.Context, p exporterParams) (sdkmetric.Exporter, error) {
		return otlpmetricgrpc.New(ctx, otlpOptionSet[otlpmetricgrpc.Option]{
			endpoint: otlpmetricgrpc.WithEndpoint,
			headers:  otlpmetricgrpc.WithHeaders,
			timeout:  otlpmetricgrpc.WithTimeout,
			insecure: otlpmetricgrpc.WithInsecure,
			gzip:     func() otlpmetricgrpc.Option { return otlpmetricgrpc.WithCompressor("gzip") },
		}.build(p)...)
	},
}

func buildMetricExporter(ctx context.Context, cfg *TelemetryConfig) (sdkmetric.Exporter, error) {
	var exporterType, endpoint string
	if cfg != nil && cfg.Metrics != nil {
		exporterType, endpoint = cfg.Metrics.Exporter, cfg.Metrics.Endpoint
	}

	return metricExporters.build(ctx, resolveExporterParams(cfg, exporterType, endpoint))
}

func normalizeExporterType(value string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	switch v {
	case "":
		return "otlp"
	case "stdout":
		return "console"
	case "noop":
		return "nop"
	default:
		return v
	}
}

// normalizeDuration treats sub-millisecond values as milliseconds per OTel spec for numeric env vars.
func normalizeDuration(value time.Duration) time.Duration {
	if value > 0 && value < time.Millisecond {
		//nolint:durationcheck // required to interpret numeric env values as milliseconds
		return value * time.Millisecond
	}

	return value
}

func isHTTPScheme(scheme string) bool {
	switch strings.ToLower(scheme) {
	case "http", "https":
		return true
	default:
		return false
	}
}

// otlpOptionSet maps exporter params onto the option constructors of one
// OTLP client package. endpointURL is nil for gRPC clients.
type otlpOptionSet[T any] struct {
	endpoint    func(string) T
	endpointURL func(string) T
	headers     func(map[string]string) T
	timeout     func(time.Duration) T
	insecure    func() T
	gzip        func() T
}

func (s otlpOptionSet[T]) build(params exporterParams) []T {
	var opts []T
	if u, err := url.Parse(params.Endpoint); s.endpointURL != nil && err == nil && isHTTPScheme(u.Scheme) {
		opts = append(opts, s.endpointURL(params.Endpoint))
	} else {
		opts = append(opts, s.endpoint(params.Endpoint))
	}
	if len(params.Headers) > 0 {
		opts = append(opts, s.headers(params.Headers))
	}
	if params.Timeout > 0 {
		opts = append(opts, s.timeout(params.Timeout))
	}
	if params.Insecure {
		opts = append(opts, s.insecure())
	}
	if params.Compression == "gzip" {
		opts = append(opts, s.gzip())
	}

	return opts
}
