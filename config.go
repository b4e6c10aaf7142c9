//revive:disable:line-length-limit
package tracebind

import (
	"slices"
	"strings"
	"time"
)

// Carrier names accepted by PropConfig.Carrier.
const (
	CarrierContext = "context"
	CarrierNoop    = "noop"
)

// TelemetryConfig configures tracing, logs and metrics.
// Environment variable names follow the OTel specification:
// https://opentelemetry.io/docs/specs/otel/configuration/sdk-environment-variables/
type TelemetryConfig struct {
	// Enabled controls whether telemetry is active. When false, Setup leaves
	// every tracer a no-op.
	Enabled *bool `yaml:"enabled" default:"false" env:"TRACEBIND_ENABLED"`

	// ServiceName maps to OTEL_SERVICE_NAME.
	ServiceName string `yaml:"serviceName" env:"OTEL_SERVICE_NAME" validate:"required_if=Enabled true"`

	// Version is used as the service.version resource attribute.
	Version string `yaml:"version" env:"OTEL_SERVICE_VERSION"`

	// Environment is used as the deployment.environment resource attribute.
	Environment string `yaml:"environment" env:"OTEL_DEPLOYMENT_ENVIRONMENT" default:"development"`

	// ResourceAttributes maps to OTEL_RESOURCE_ATTRIBUTES.
	ResourceAttributes map[string]string `yaml:"resourceAttributes,omitempty" env:"OTEL_RESOURCE_ATTRIBUTES"`

	// OTLP holds exporter settings shared by all signals.
	OTLP *OTLPConfig `yaml:"otlp,omitempty"`

	Traces  *TracesConfig  `yaml:"traces,omitempty"`
	Logs    *LogsConfig    `yaml:"logs,omitempty"`
	Metrics *MetricsConfig `yaml:"metrics,omitempty"`

	// Propagation selects wire propagators and the correlation carrier.
	Propagation *PropConfig `yaml:"propagation,omitempty"`
}

// OTLPConfig contains shared OTLP exporter settings.
type OTLPConfig struct {
	// Endpoint maps to OTEL_EXPORTER_OTLP_ENDPOINT.
	//
	// Format depends on protocol:
	//   - gRPC: "host:port" (e.g., "localhost:4317"). Do NOT include scheme.
	//   - HTTP: Full URL with scheme (e.g., "http://localhost:4318/v1/traces").
	Endpoint string `yaml:"endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT" default:"localhost:4317"`

	// Insecure maps to OTEL_EXPORTER_OTLP_INSECURE.
	Insecure *bool `yaml:"insecure" env:"OTEL_EXPORTER_OTLP_INSECURE" default:"true"`

	// Headers maps to OTEL_EXPORTER_OTLP_HEADERS.
	// Avoid logging this value, as it may contain sensitive credentials.
	Headers map[string]string `yaml:"headers,omitempty" env:"OTEL_EXPORTER_OTLP_HEADERS"`

	// Protocol maps to OTEL_EXPORTER_OTLP_PROTOCOL.
	Protocol string `yaml:"protocol" env:"OTEL_EXPORTER_OTLP_PROTOCOL" default:"grpc" validate:"oneof=grpc http/protobuf http"`

	// Timeout maps to OTEL_EXPORTER_OTLP_TIMEOUT.
	Timeout time.Duration `yaml:"timeout" env:"OTEL_EXPORTER_OTLP_TIMEOUT" default:"10s" validate:"gte=0"`

	// Compression maps to OTEL_EXPORTER_OTLP_COMPRESSION.
	Compression string `yaml:"compression,omitempty" env:"OTEL_EXPORTER_OTLP_COMPRESSION" validate:"omitempty,oneof=gzip none"`
}

// IsInsecure returns true if insecure connection is enabled.
func (c *OTLPConfig) IsInsecure() bool {
	return c == nil || c.Insecure == nil || *c.Insecure
}

// TracesConfig configures the tracing subsystem.
type TracesConfig struct {
	// Enabled defaults to true if the parent is enabled.
	Enabled *bool `yaml:"enabled" default:"true"`

	// Exporter maps to OTEL_TRACES_EXPORTER.
	// Options: "otlp", "console", "stdout", "none".
	Exporter string `yaml:"exporter" env:"OTEL_TRACES_EXPORTER" default:"otlp" validate:"oneof=otlp console stdout none"`

	// Endpoint overrides OTLP.Endpoint for traces.
	// Maps to OTEL_EXPORTER_OTLP_TRACES_ENDPOINT.
	Endpoint string `yaml:"endpoint,omitempty" env:"OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"`

	Sampling *SamplingConfig `yaml:"sampling,omitempty"`

	// Batch configures the batch span processor.
	Batch *BatchConfig `yaml:"batch,omitempty"`

	// Limits bounds the data kept per span.
	Limits *LimitsConfig `yaml:"limits,omitempty"`
}

// IsEnabled returns true if tracing is enabled.
func (c *TracesConfig) IsEnabled() bool {
	return c == nil || c.Enabled == nil || *c.Enabled
}

// BatchConfig configures the batch span processor.
type BatchConfig struct {
	// MaxQueueSize maps to OTEL_BSP_MAX_QUEUE_SIZE.
	MaxQueueSize int `yaml:"maxQueueSize" env:"OTEL_BSP_MAX_QUEUE_SIZE" default:"2048" validate:"gte=0"`

	// MaxExportBatchSize maps to OTEL_BSP_MAX_EXPORT_BATCH_SIZE.
	MaxExportBatchSize int `yaml:"maxExportBatchSize" env:"OTEL_BSP_MAX_EXPORT_BATCH_SIZE" default:"512" validate:"gte=0"`

	// ScheduleDelay maps to OTEL_BSP_SCHEDULE_DELAY (milliseconds if numeric).
	ScheduleDelay time.Duration `yaml:"scheduleDelay" env:"OTEL_BSP_SCHEDULE_DELAY" default:"5s" validate:"gte=0"`

	// ExportTimeout maps to OTEL_BSP_EXPORT_TIMEOUT (milliseconds if numeric).
	ExportTimeout time.Duration `yaml:"exportTimeout" env:"OTEL_BSP_EXPORT_TIMEOUT" default:"30s" validate:"gte=0"`
}

func (c *BatchConfig) options() []BatchOption {
	if c == nil {
		return nil
	}

	return []BatchOption{
		WithMaxQueueSize(c.MaxQueueSize),
		WithMaxExportBatchSize(c.MaxExportBatchSize),
		WithBatchTimeout(normalizeDuration(c.ScheduleDelay)),
		WithExportTimeout(normalizeDuration(c.ExportTimeout)),
	}
}

// LimitsConfig bounds span data. Zero means the default, negative means
// unlimited.
type LimitsConfig struct {
	// AttributeCountLimit maps to OTEL_SPAN_ATTRIBUTE_COUNT_LIMIT.
	AttributeCountLimit int `yaml:"attributeCountLimit" env:"OTEL_SPAN_ATTRIBUTE_COUNT_LIMIT"`

	// EventCountLimit maps to OTEL_SPAN_EVENT_COUNT_LIMIT.
	EventCountLimit int `yaml:"eventCountLimit" env:"OTEL_SPAN_EVENT_COUNT_LIMIT"`

	// AttributePerEventCountLimit maps to OTEL_EVENT_ATTRIBUTE_COUNT_LIMIT.
	AttributePerEventCountLimit int `yaml:"attributePerEventCountLimit" env:"OTEL_EVENT_ATTRIBUTE_COUNT_LIMIT"`
}

// SpanLimits converts the config; a nil config yields the defaults.
func (c *LimitsConfig) SpanLimits() SpanLimits {
	if c == nil {
		return SpanLimits{}.normalize()
	}

	return SpanLimits{
		AttributeCountLimit:         c.AttributeCountLimit,
		EventCountLimit:             c.EventCountLimit,
		AttributePerEventCountLimit: c.AttributePerEventCountLimit,
	}.normalize()
}

// LogsConfig configures OTel log export. Logs are opt-in.
type LogsConfig struct {
	Enabled *bool `yaml:"enabled" default:"false"`

	// Exporter maps to OTEL_LOGS_EXPORTER.
	Exporter string `yaml:"exporter" env:"OTEL_LOGS_EXPORTER" default:"otlp" validate:"oneof=otlp console stdout none"`

	// Endpoint maps to OTEL_EXPORTER_OTLP_LOGS_ENDPOINT.
	Endpoint string `yaml:"endpoint,omitempty" env:"OTEL_EXPORTER_OTLP_LOGS_ENDPOINT"`
}

// IsEnabled returns true if OTel log export is enabled.
func (c *LogsConfig) IsEnabled() bool {
	return c != nil && c.Enabled != nil && *c.Enabled
}

// MetricsConfig configures metrics export. Metrics are opt-in.
type MetricsConfig struct {
	Enabled *bool `yaml:"enabled" default:"false"`

	// Exporter maps to OTEL_METRICS_EXPORTER.
	Exporter string `yaml:"exporter" env:"OTEL_METRICS_EXPORTER" default:"otlp" validate:"oneof=otlp console stdout none"`

	// Endpoint maps to OTEL_EXPORTER_OTLP_METRICS_ENDPOINT.
	Endpoint string `yaml:"endpoint,omitempty" env:"OTEL_EXPORTER_OTLP_METRICS_ENDPOINT"`

	// Interval maps to OTEL_METRIC_EXPORT_INTERVAL (milliseconds if numeric).
	Interval time.Duration `yaml:"interval,omitempty" env:"OTEL_METRIC_EXPORT_INTERVAL" default:"60s" validate:"omitempty,gt=0"`
}

// IsEnabled returns true if metrics collection is enabled.
func (c *MetricsConfig) IsEnabled() bool {
	return c != nil && c.Enabled != nil && *c.Enabled
}

// SamplingConfig maps to OTEL_TRACES_SAMPLER and OTEL_TRACES_SAMPLER_ARG.
type SamplingConfig struct {
	// Sampler options: "always_on", "always_off", "traceidratio",
	// "parentbased_always_on", "parentbased_always_off", "parentbased_traceidratio".
	Sampler string `yaml:"sampler" env:"OTEL_TRACES_SAMPLER" default:"parentbased_always_on" validate:"oneof=always_on always_off traceidratio parentbased_always_on parentbased_always_off parentbased_traceidratio"`

	// SamplerArg is the probability for ratio-based samplers, 0.0 to 1.0.
	SamplerArg float64 `yaml:"samplerArg" env:"OTEL_TRACES_SAMPLER_ARG" default:"1.0" validate:"gte=0,lte=1"`
}

// PropConfig configures context propagation.
type PropConfig struct {
	// Propagators maps to OTEL_PROPAGATORS (comma-separated list).
	// Known values: "tracecontext", "baggage", "b3", "b3multi", "jaeger", "xray", "none".
	Propagators string `yaml:"propagators" env:"OTEL_PROPAGATORS" default:"tracecontext,baggage"`

	// Carrier selects where the current correlation context lives:
	// "context" (inherited by derived contexts) or "noop".
	Carrier string `yaml:"carrier" env:"TRACEBIND_CARRIER" default:"context" validate:"omitempty,oneof=context noop"`
}

// HasTraceContext returns true if tracecontext propagator is enabled.
func (c *PropConfig) HasTraceContext() bool {
	if c == nil || c.Propagators == "" {
		return true
	}

	return containsPropagator(c.Propagators, "tracecontext")
}

// HasBaggage returns true if baggage propagator is enabled.
func (c *PropConfig) HasBaggage() bool {
	if c == nil || c.Propagators == "" {
		return true
	}

	return containsPropagator(c.Propagators, "baggage")
}

// CarrierName returns the effective carrier name.
func (c *PropConfig) CarrierName() string {
	if c == nil || c.Carrier == "" {
		return CarrierContext
	}

	return strings.ToLower(strings.TrimSpace(c.Carrier))
}

func containsPropagator(propagators, name string) bool {
	return slices.Contains(splitPropagators(propagators), name)
}

func splitPropagators(propagators string) []string {
	if propagators == "" {
		return nil
	}

	var result []string
	for p := range strings.SplitSeq(propagators, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}

	return result
}

// IsEnabled returns true if telemetry is enabled. Defaults to false if nil.
func (c *TelemetryConfig) IsEnabled() bool {
	return c != nil && c.Enabled != nil && *c.Enabled
}

// GetSamplingConfig returns the trace sampling config, or nil.
func (c *TelemetryConfig) GetSamplingConfig() *SamplingConfig {
	if c == nil || c.Traces == nil {
		return nil
	}

	return c.Traces.Sampling
}

// GetOTLPConfig returns the shared OTLP config, never nil.
func (c *TelemetryConfig) GetOTLPConfig() *OTLPConfig {
	if c == nil || c.OTLP == nil {
		return &OTLPConfig{}
	}

	return c.OTLP
}

func boolPtr(v bool) *bool { return &v }
