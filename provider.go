package tracebind

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arloliu/tracebind/correlation"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// ErrDisabled is returned when telemetry is disabled.
var ErrDisabled = errors.New("tracebind: telemetry is disabled")

// ErrLogsDisabled is returned when log export is disabled.
var ErrLogsDisabled = errors.New("tracebind: logs export is disabled")

// ErrMetricsDisabled is returned when metrics export is disabled.
var ErrMetricsDisabled = errors.New("tracebind: metrics export is disabled")

// ErrServiceNameRequired is returned when ServiceName is empty but telemetry is enabled.
var ErrServiceNameRequired = errors.New("tracebind: service name is required")

// ============================================================================
// Tracer Provider
// ============================================================================

// NewTracerProvider builds a recording [Provider] from cfg: resource, sampler,
// span limits and a batch processor in front of the configured exporter.
// opts are applied after the config-derived options.
// Returns ErrDisabled if telemetry or tracing is disabled.
//
// The provider is not installed as the default; see [Setup] and [SetDefault].
func NewTracerProvider(ctx context.Context, cfg *TelemetryConfig, opts ...ProviderOption) (*Provider, error) {
	if !cfg.IsEnabled() || !cfg.Traces.IsEnabled() {
		return nil, ErrDisabled
	}

	res, err := buildResource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	exporter, err := buildTraceExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("build trace exporter: %w", err)
	}

	var (
		batch  *BatchConfig
		limits *LimitsConfig
	)
	if cfg.Traces != nil {
		batch, limits = cfg.Traces.Batch, cfg.Traces.Limits
	}

	base := []ProviderOption{
		WithResource(res),
		WithSampler(buildSampler(cfg.GetSamplingConfig())),
		WithSpanLimits(limits.SpanLimits()),
		WithBatcher(exporter, batch.options()...),
	}

	return NewProvider(append(base, opts...)...), nil
}

// ============================================================================
// Logger Provider
// ============================================================================

// NewLoggerProvider initializes the OpenTelemetry LoggerProvider.
// Returns ErrLogsDisabled if logs export is not enabled in config.
func NewLoggerProvider(ctx context.Context, cfg *TelemetryConfig) (*sdklog.LoggerProvider, error) {
	if !cfg.IsEnabled() {
		return nil, ErrDisabled
	}
	if !cfg.Logs.IsEnabled() {
		return nil, ErrLogsDisabled
	}

	res, err := buildResource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	exporter, err := buildLogExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("build log exporter: %w", err)
	}

	return sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
	), nil
}

// ============================================================================
// Meter Provider
// ============================================================================

// NewMeterProvider initializes the OpenTelemetry MeterProvider.
// Returns ErrMetricsDisabled if metrics export is not enabled in config.
func NewMeterProvider(ctx context.Context, cfg *TelemetryConfig) (*sdkmetric.MeterProvider, error) {
	if !cfg.IsEnabled() {
		return nil, ErrDisabled
	}
	if !cfg.Metrics.IsEnabled() {
		return nil, ErrMetricsDisabled
	}

	res, err := buildResource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	exporter, err := buildMetricExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("build metric exporter: %w", err)
	}

	interval := normalizeMetricInterval(cfg.Metrics.Interval, 60*time.Second)

	return sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(interval),
		)),
	), nil
}

// ============================================================================
// Setup
// ============================================================================

// Telemetry holds the providers installed by [Setup]. Logger and Meter are
// nil when their signal is disabled.
type Telemetry struct {
	Tracer *Provider
	Logger *sdklog.LoggerProvider
	Meter  *sdkmetric.MeterProvider
}

// Shutdown flushes and stops every provider, tracer first.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil {
		return nil
	}

	var errs []error
	if t.Tracer != nil {
		errs = append(errs, t.Tracer.Shutdown(ctx))
	}
	if t.Logger != nil {
		errs = append(errs, t.Logger.Shutdown(ctx))
	}
	if t.Meter != nil {
		errs = append(errs, t.Meter.Shutdown(ctx))
	}

	return errors.Join(errs...)
}

// Setup is the configuration entry point of a process. It builds the
// providers described by cfg, makes the tracer provider the default with
// [SetDefault], installs the correlation carrier and the text map propagator,
// and registers the providers with the OpenTelemetry globals so that
// OpenTelemetry instrumentation reports through tracebind.
//
// Setup returns ErrDisabled when telemetry or tracing is disabled and
// ErrAlreadyInitialized when a default provider was already set; in both
// cases nothing global is changed.
func Setup(ctx context.Context, cfg *TelemetryConfig, opts ...ProviderOption) (*Telemetry, error) {
	if IsInitialized() {
		return nil, ErrAlreadyInitialized
	}

	tel := &Telemetry{}

	mp, err := NewMeterProvider(ctx, cfg)
	switch {
	case err == nil:
		tel.Meter = mp
	case !errors.Is(err, ErrMetricsDisabled):
		return nil, err
	}

	lp, err := NewLoggerProvider(ctx, cfg)
	switch {
	case err == nil:
		tel.Logger = lp
	case !errors.Is(err, ErrLogsDisabled):
		return nil, errors.Join(err, tel.Shutdown(ctx))
	}

	tp, err := NewTracerProvider(ctx, cfg, opts...)
	if err != nil {
		return nil, errors.Join(err, tel.Shutdown(ctx))
	}
	tel.Tracer = tp

	if err := SetDefault(tp); err != nil {
		return nil, errors.Join(err, tel.Shutdown(ctx))
	}

	if cfg.Propagation.CarrierName() == CarrierNoop {
		correlation.SetCarrier(correlation.NoopCarrier{})
	} else {
		correlation.SetCarrier(correlation.ContextCarrier{})
	}
	otel.SetTextMapPropagator(buildPropagator(cfg.Propagation))
	otel.SetTracerProvider(OTelTracerProvider(GlobalTracerProvider()))
	if tel.Meter != nil {
		otel.SetMeterProvider(tel.Meter)
	}
	if tel.Logger != nil {
		global.SetLoggerProvider(tel.Logger)
	}

	return tel, nil
}

// ============================================================================
// Shared Helpers
// ============================================================================

// buildResource creates a common resource for all providers.
func buildResource(ctx context.Context, cfg *TelemetryConfig) (*resource.Resource, error) {
	if cfg.ServiceName == "" {
		return nil, ErrServiceNameRequired
	}

	attrs := []attribute.KeyValue{
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.Version),
		semconv.DeploymentEnvironment(cfg.Environment),
	}
	for key, value := range cfg.ResourceAttributes {
		if key == "" {
			continue
		}
		attrs = append(attrs, attribute.String(key, value))
	}

	res, err := resource.New(ctx,
		resource.WithSchemaURL(semconv.SchemaURL),
		resource.WithAttributes(attrs...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	return res, nil
}

// normalizeMetricInterval treats sub-millisecond values as milliseconds per OTel spec for numeric env vars.
func normalizeMetricInterval(value time.Duration, defaultValue time.Duration) time.Duration {
	if value <= 0 {
		return defaultValue
	}

	return normalizeDuration(value)
}

// buildSampler maps OTEL_TRACES_SAMPLER names to SDK samplers.
// https://opentelemetry.io/docs/specs/otel/configuration/sdk-environment-variables/
func buildSampler(cfg *SamplingConfig) Sampler {
	if cfg == nil {
		cfg = &SamplingConfig{Sampler: "parentbased_always_on", SamplerArg: 1.0}
	}

	switch cfg.Sampler {
	case "always_on":
		return sdktrace.AlwaysSample()
	case "always_off":
		return sdktrace.NeverSample()
	case "traceidratio":
		return sdktrace.TraceIDRatioBased(cfg.SamplerArg)
	case "parentbased_always_off":
		return sdktrace.ParentBased(sdktrace.NeverSample())
	case "parentbased_traceidratio":
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SamplerArg))
	default:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	}
}
