package tracebind

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/zoobzio/clockz"
	"go.opentelemetry.io/otel/sdk/instrumentation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Sampler decides whether a span is recorded and sampled.
type Sampler = sdktrace.Sampler

// Default span limits.
const (
	DefaultAttributeCountLimit         = 128
	DefaultEventCountLimit             = 128
	DefaultAttributePerEventCountLimit = 128
)

// SpanLimits bounds the data a recording span keeps. A zero field takes its
// default; a negative field means unlimited.
type SpanLimits struct {
	AttributeCountLimit         int
	EventCountLimit             int
	AttributePerEventCountLimit int
}

func (l SpanLimits) normalize() SpanLimits {
	if l.AttributeCountLimit == 0 {
		l.AttributeCountLimit = DefaultAttributeCountLimit
	}
	if l.EventCountLimit == 0 {
		l.EventCountLimit = DefaultEventCountLimit
	}
	if l.AttributePerEventCountLimit == 0 {
		l.AttributePerEventCountLimit = DefaultAttributePerEventCountLimit
	}

	return l
}

type providerConfig struct {
	sampler    Sampler
	idGen      IDGenerator
	clock      clockz.Clock
	limits     SpanLimits
	resource   *resource.Resource
	namer      SpanNamer
	processors []SpanProcessor
}

// ProviderOption configures a [Provider].
type ProviderOption func(*providerConfig)

// WithSampler sets the sampler. The default is parent based always-on.
func WithSampler(s Sampler) ProviderOption {
	return func(c *providerConfig) {
		if s != nil {
			c.sampler = s
		}
	}
}

// WithIDGenerator replaces the random id generator.
func WithIDGenerator(g IDGenerator) ProviderOption {
	return func(c *providerConfig) {
		if g != nil {
			c.idGen = g
		}
	}
}

// WithClock sets the clock used for span and event timestamps.
func WithClock(clock clockz.Clock) ProviderOption {
	return func(c *providerConfig) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithSpanLimits sets the span limits.
func WithSpanLimits(l SpanLimits) ProviderOption {
	return func(c *providerConfig) {
		c.limits = l
	}
}

// WithResource sets the resource attached to every span.
func WithResource(r *resource.Resource) ProviderOption {
	return func(c *providerConfig) {
		c.resource = r
	}
}

// WithNamer sets the namer applied to span names at start.
func WithNamer(n SpanNamer) ProviderOption {
	return func(c *providerConfig) {
		if n != nil {
			c.namer = n
		}
	}
}

// WithSpanProcessor registers a processor for completed spans.
func WithSpanProcessor(sp SpanProcessor) ProviderOption {
	return func(c *providerConfig) {
		if sp != nil {
			c.processors = append(c.processors, sp)
		}
	}
}

// WithBatcher registers a batching processor for exporter.
func WithBatcher(exporter sdktrace.SpanExporter, opts ...BatchOption) ProviderOption {
	return WithSpanProcessor(NewBatchSpanProcessor(exporter, opts...))
}

// WithSyncer registers a processor that exports every span synchronously.
// Intended for tests and debugging.
func WithSyncer(exporter sdktrace.SpanExporter) ProviderOption {
	return WithSpanProcessor(NewSimpleSpanProcessor(exporter))
}

// Provider is the recording [TracerProvider].
type Provider struct {
	sampler    Sampler
	idGen      IDGenerator
	clock      clockz.Clock
	limits     SpanLimits
	resource   *resource.Resource
	namer      SpanNamer
	processors []SpanProcessor

	mu       sync.Mutex
	tracers  map[instrumentation.Scope]*sdkTracer
	shutdown atomic.Bool
	stopOnce sync.Once
	stopErr  error
}

// NewProvider creates a recording provider.
func NewProvider(opts ...ProviderOption) *Provider {
	cfg := providerConfig{
		sampler: sdktrace.ParentBased(sdktrace.AlwaysSample()),
		clock:   clockz.RealClock,
		namer:   DefaultNamer{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.idGen == nil {
		cfg.idGen = newRandomIDGenerator()
	}
	if cfg.resource == nil {
		cfg.resource = resource.Default()
	}

	return &Provider{
		sampler:    cfg.sampler,
		idGen:      cfg.idGen,
		clock:      cfg.clock,
		limits:     cfg.limits.normalize(),
		resource:   cfg.resource,
		namer:      cfg.namer,
		processors: cfg.processors,
		tracers:    make(map[instrumentation.Scope]*sdkTracer),
	}
}

// Tracer returns the tracer for name and version, creating it on first use.
// After Shutdown it returns a no-op tracer.
func (p *Provider) Tracer(name string, opts ...TracerOption) Tracer {
	if p.shutdown.Load() {
		return noopTracer{}
	}

	cfg := newTracerConfig(opts)
	scope := instrumentation.Scope{Name: name, Version: cfg.version}

	p.mu.Lock()
	defer p.mu.Unlock()

	t, ok := p.tracers[scope]
	if !ok {
		t = &sdkTracer{provider: p, scope: scope}
		p.tracers[scope] = t
	}

	return t
}

// Sampler returns the configured sampler.
func (p *Provider) Sampler() Sampler { return p.sampler }

// Resource returns the resource attached to spans.
func (p *Provider) Resource() *resource.Resource { return p.resource }

// ForceFlush exports all completed spans held by processors.
func (p *Provider) ForceFlush(ctx context.Context) error {
	if p.shutdown.Load() {
		return nil
	}

	var errs []error
	for _, sp := range p.processors {
		if err := sp.ForceFlush(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Shutdown flushes and stops every processor. Subsequent calls return the
// result of the first one.
func (p *Provider) Shutdown(ctx context.Context) error {
	p.stopOnce.Do(func() {
		p.shutdown.Store(true)

		var errs []error
		for _, sp := range p.processors {
			if err := sp.Shutdown(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		p.stopErr = errors.Join(errs...)
	})

	return p.stopErr
}

func (p *Provider) onEnd(data SpanData) {
	if !data.SpanContext.IsValid() {
		return
	}
	for _, sp := range p.processors {
		sp.OnEnd(data)
	}
}

type sdkTracer struct {
	provider *Provider
	scope    instrumentation.Scope
}

// Start implements [Tracer].
func (t *sdkTracer) Start(ctx context.Context, name string, opts ...SpanStartOption) (context.Context, Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	p := t.provider
	if p.shutdown.Load() {
		return ctx, NoopSpan()
	}

	cfg := newSpanStartConfig(opts)
	name = p.namer.Name(name)
	parent := cfg.parentSpanContext(ctx)

	var (
		tid trace.TraceID
		sid trace.SpanID
	)
	if parent.IsValid() {
		tid = parent.TraceID()
		sid = p.idGen.NewSpanID(ctx, tid)
	} else {
		tid, sid = p.idGen.NewIDs(ctx)
	}

	result := p.sampler.ShouldSample(sdktrace.SamplingParameters{
		ParentContext: trace.ContextWithSpanContext(ctx, parent.OTel()),
		TraceID:       tid,
		Name:          name,
		Kind:          cfg.kind,
		Attributes:    cfg.attributes,
	})

	flags := parent.TraceFlags() &^ trace.FlagsSampled
	if result.Decision == sdktrace.RecordAndSample {
		flags |= trace.FlagsSampled
	}
	sc := NewSpanContext(SpanContextConfig{TraceID: tid, SpanID: sid, TraceFlags: flags})

	if result.Decision == sdktrace.Drop {
		span := nonRecordingSpan{sc: sc}
		return ContextWithSpan(ctx, span), span
	}

	start := cfg.timestamp
	if start.IsZero() {
		start = p.clock.Now()
	}
	span := &recordingSpan{
		provider: p,
		scope:    t.scope,
		sc:       sc,
		parent:   parent,
		kind:     cfg.kind,
		start:    start,
		name:     name,
	}
	span.setAttributesLocked(cfg.attributes)
	span.setAttributesLocked(result.Attributes)

	return ContextWithSpan(ctx, span), span
}
