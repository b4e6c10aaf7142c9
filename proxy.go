package tracebind

import (
	"context"
	"sync/atomic"
)

type tracerRef struct {
	tracer Tracer
}

// ProxyTracer is handed out by [GetTracer] before a default provider is
// configured. It serves no-op spans until it is bound, then forwards to the
// tracer of the configured provider. A proxy is bound at most once.
type ProxyTracer struct {
	name     string
	version  string
	bound    atomic.Bool
	delegate atomic.Pointer[tracerRef]
}

func newProxyTracer(name, version string) *ProxyTracer {
	return &ProxyTracer{name: name, version: version}
}

// Name returns the instrumentation name the proxy was requested with.
func (p *ProxyTracer) Name() string { return p.name }

// Version returns the instrumentation version the proxy was requested with.
func (p *ProxyTracer) Version() string { return p.version }

// IsBound reports whether the proxy forwards to a real tracer.
func (p *ProxyTracer) IsBound() bool {
	return p.delegate.Load() != nil
}

// Start implements [Tracer].
func (p *ProxyTracer) Start(ctx context.Context, name string, opts ...SpanStartOption) (context.Context, Span) {
	if ref := p.delegate.Load(); ref != nil {
		return ref.tracer.Start(ctx, name, opts...)
	}

	return noopTracer{}.Start(ctx, name, opts...)
}

// bind installs t as the delegate. It reports false if the proxy was
// already bound.
func (p *ProxyTracer) bind(t Tracer) bool {
	if t == nil || !p.bound.CompareAndSwap(false, true) {
		return false
	}
	p.delegate.Store(&tracerRef{tracer: t})

	return true
}
