// Package engine plays simulator scenarios as traces and logs through
// tracebind.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/arloliu/tracebind"
	"github.com/arloliu/tracebind/cmd/tracebind-sim/scenario"
	"github.com/arloliu/tracebind/correlation"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const (
	instrumentationName = "tracebind-sim"

	// correlationAttrPrefix prefixes correlation entries copied onto spans.
	correlationAttrPrefix = "correlation."
)

// Engine generates traces and logs from a scenario.
type Engine struct {
	scenario     *scenario.Scenario
	telemetry    *tracebind.Telemetry
	tracers      map[string]tracebind.Tracer
	logger       otellog.Logger
	jitterPct    int
	errorRateMul float64
}

// Config holds engine configuration.
type Config struct {
	Endpoint    string
	UseHTTP     bool
	Insecure    bool
	// ServiceName is the resource service.name, tracebind-sim when empty.
	// Spans report their scenario service as instrumentation scope.
	ServiceName string
	EnableLogs  bool
	JitterPct   int

	// Exporter selects the trace and log exporter: "otlp" (default),
	// "console" or "none".
	Exporter string

	// DisableErrors turns off error simulation.
	DisableErrors bool
}

// New prepares s for playback and configures telemetry with
// [tracebind.Setup]. The tracers of every service are requested before
// Setup runs and start recording once it has installed the default
// provider. opts are passed to Setup.
func New(ctx context.Context, cfg Config, s *scenario.Scenario, opts ...tracebind.ProviderOption) (*Engine, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: scenario is nil", tracebind.ErrInvalidArgument)
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = instrumentationName
	}

	e := &Engine{
		scenario:     s,
		tracers:      make(map[string]tracebind.Tracer),
		jitterPct:    cfg.JitterPct,
		errorRateMul: 1,
	}
	if cfg.DisableErrors {
		e.errorRateMul = 0
	}
	e.requestTracers(s.RootSpan)

	protocol := "grpc"
	if cfg.UseHTTP {
		protocol = "http"
	}
	enabled := true
	telCfg := &tracebind.TelemetryConfig{
		Enabled:     &enabled,
		ServiceName: serviceName,
		OTLP: &tracebind.OTLPConfig{
			Endpoint: cfg.Endpoint,
			Protocol: protocol,
			Insecure: &cfg.Insecure,
		},
		Traces: &tracebind.TracesConfig{Exporter: cfg.Exporter},
		Logs:   &tracebind.LogsConfig{Enabled: &cfg.EnableLogs, Exporter: cfg.Exporter},
	}

	tel, err := tracebind.Setup(ctx, telCfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("setup telemetry: %w", err)
	}
	e.telemetry = tel
	if tel.Logger != nil {
		e.logger = tel.Logger.Logger(instrumentationName,
			otellog.WithInstrumentationVersion(tracebind.Version))
	}

	return e, nil
}

func (e *Engine) requestTracers(tmpl scenario.SpanTemplate) {
	e.requestTracer(tmpl.Service)
	for _, c := range tmpl.Children {
		e.requestTracers(c)
	}
}

func (e *Engine) requestTracer(service string) {
	if _, ok := e.tracers[service]; !ok {
		e.tracers[service] = tracebind.GetTracer(service)
	}
}

// Telemetry returns the providers installed by New.
func (e *Engine) Telemetry() *tracebind.Telemetry {
	return e.telemetry
}

// Shutdown flushes and closes the providers.
func (e *Engine) Shutdown(ctx context.Context) error {
	if err := e.telemetry.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown telemetry: %w", err)
	}

	return nil
}

// GenerateTrace plays the scenario once. It returns ctx.Err() if ctx is
// canceled before the trace is complete; spans started so far are ended.
func (e *Engine) GenerateTrace(ctx context.Context) error {
	return e.generateSpan(ctx, e.scenario.RootSpan)
}

// generateSpan plays tmpl and its subtree. Correlation entries of tmpl are
// current for the whole subtree and are released when tmpl is done.
func (e *Engine) generateSpan(ctx context.Context, tmpl scenario.SpanTemplate) error {
	if len(tmpl.Correlation) > 0 {
		b := correlation.NewBuilder(ctx, true)
		for k, v := range tmpl.Correlation {
			b.Add(k, v)
		}

		var scope *correlation.Scope
		ctx, scope = correlation.SetCurrent(ctx, b.Build())
		defer scope.Close()
	}

	attrs := parseAttributes(tmpl.Attributes)
	for _, entry := range correlation.Current(ctx).Entries() {
		attrs = append(attrs, attribute.String(correlationAttrPrefix+entry.Key, entry.Value))
	}

	start := time.Now()
	ctx, span := e.tracer(tmpl.Service).Start(ctx, tmpl.Name,
		tracebind.WithSpanKind(toTraceSpanKind(tmpl.Kind)),
		tracebind.WithAttributes(attrs...),
	)
	defer span.End()

	if e.logger != nil {
		e.emitLogs(ctx, start, tmpl.Logs)
	}

	if rate := tmpl.ErrorRate * e.errorRateMul; rate > 0 && rand.Float64() < rate { //nolint:gosec // weak rand is fine for simulation
		err := errors.New(tmpl.ErrorStatus)
		span.RecordError(err)
		span.SetStatus(codes.Error, tmpl.ErrorStatus)
	}

	if err := e.generateChildren(ctx, tmpl); err != nil {
		return err
	}

	return sleep(ctx, e.applyJitter(tmpl.Duration.AsDuration()))
}

func (e *Engine) generateChildren(ctx context.Context, tmpl scenario.SpanTemplate) error {
	if !tmpl.Parallel {
		for _, child := range tmpl.Children {
			if err := e.generateSpan(ctx, child); err != nil {
				return err
			}
		}

		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, child := range tmpl.Children {
		g.Go(func() error {
			return e.generateSpan(gctx, child)
		})
	}

	return g.Wait()
}

func (e *Engine) tracer(service string) tracebind.Tracer {
	if t, ok := e.tracers[service]; ok {
		return t
	}

	return tracebind.GetTracer(service)
}

// emitLogs emits the log records of a span, correlated through ctx.
func (e *Engine) emitLogs(ctx context.Context, start time.Time, logs []scenario.LogTemplate) {
	entries := correlation.Current(ctx).Entries()

	for _, l := range logs {
		var rec otellog.Record
		rec.SetTimestamp(start.Add(l.Delay.AsDuration()))
		rec.SetBody(otellog.StringValue(l.Message))
		rec.SetSeverity(toLogSeverity(l.Level))
		rec.SetSeverityText(l.Level)

		attrs := make([]otellog.KeyValue, 0, len(l.Attributes)+len(entries))
		for k, v := range l.Attributes {
			attrs = append(attrs, otellog.String(k, v))
		}
		for _, entry := range entries {
			attrs = append(attrs, otellog.String(correlationAttrPrefix+entry.Key, entry.Value))
		}
		rec.AddAttributes(attrs...)

		e.logger.Emit(ctx, rec)
	}
}

// applyJitter adds random timing variation to a duration.
func (e *Engine) applyJitter(d time.Duration) time.Duration {
	if e.jitterPct <= 0 {
		return d
	}
	jitter := float64(d) * float64(e.jitterPct) / 100.0
	offset := (rand.Float64() * 2 * jitter) - jitter //nolint:gosec // weak rand is fine for jitter

	return d + time.Duration(offset)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func toTraceSpanKind(k scenario.SpanKind) trace.SpanKind {
	switch k {
	case scenario.SpanKindServer:
		return trace.SpanKindServer
	case scenario.SpanKindClient:
		return trace.SpanKindClient
	case scenario.SpanKindProducer:
		return trace.SpanKindProducer
	case scenario.SpanKindConsumer:
		return trace.SpanKindConsumer
	default:
		return trace.SpanKindInternal
	}
}

func toLogSeverity(level string) otellog.Severity {
	switch level {
	case "DEBUG":
		return otellog.SeverityDebug
	case "INFO":
		return otellog.SeverityInfo
	case "WARN":
		return otellog.SeverityWarn
	case "ERROR":
		return otellog.SeverityError
	default:
		return otellog.SeverityInfo
	}
}

// parseAttributes converts string map to OTel attributes with type inference.
func parseAttributes(attrs map[string]string) []attribute.KeyValue {
	result := make([]attribute.KeyValue, 0, len(attrs))
	for k, v := range attrs {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			result = append(result, attribute.Int64(k, i))
			continue
		}
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			result = append(result, attribute.Float64(k, f))
			continue
		}
		if b, err := strconv.ParseBool(v); err == nil {
			result = append(result, attribute.Bool(k, b))
			continue
		}
		result = append(result, attribute.String(k, v))
	}

	return result
}
