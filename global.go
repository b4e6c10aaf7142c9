package tracebind

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/arloliu/tracebind/internal/tracker"
)

// ErrInvalidArgument is returned when a required argument is missing.
var ErrInvalidArgument = errors.New("tracebind: invalid argument")

// ErrNilProvider is returned by [SetDefault] for a nil provider.
var ErrNilProvider = fmt.Errorf("%w: tracer provider is nil", ErrInvalidArgument)

// ErrAlreadyInitialized is returned when the default provider is set twice.
var ErrAlreadyInitialized = errors.New("tracebind: default tracer provider already initialized")

type proxyKey struct {
	name    string
	version string
}

type defaultProvider struct {
	tp TracerProvider
}

var registry tracker.Registry[proxyKey, *ProxyTracer, defaultProvider]

// GetTracer returns a tracer for the given instrumentation name.
//
// Before [SetDefault] it returns a [ProxyTracer], the same one for repeated
// requests with the same name and version, which starts forwarding once a
// default provider is set. Afterwards it returns the configured provider's
// tracer directly. GetTracer never fails.
func GetTracer(name string, opts ...TracerOption) Tracer {
	if d := registry.Target(); d != nil {
		return d.tp.Tracer(name, opts...)
	}

	cfg := newTracerConfig(opts)
	proxy, d := registry.Issue(proxyKey{name: name, version: cfg.version}, func(k proxyKey) *ProxyTracer {
		return newProxyTracer(k.name, k.version)
	})
	if d != nil {
		return d.tp.Tracer(name, opts...)
	}

	return proxy
}

// SetDefault configures the process-wide tracer provider. It succeeds once;
// later calls return [ErrAlreadyInitialized] and leave the first provider
// active. Every proxy issued by [GetTracer] so far is rebound to tp before
// SetDefault returns.
func SetDefault(tp TracerProvider) error {
	if isNilProvider(tp) {
		return ErrNilProvider
	}
	if _, ok := tp.(globalTracerProvider); ok {
		return fmt.Errorf("%w: the global tracer provider cannot be its own default", ErrInvalidArgument)
	}

	bound := registry.Bind(&defaultProvider{tp: tp}, func(k proxyKey, proxy *ProxyTracer) {
		proxy.bind(tp.Tracer(k.name, WithInstrumentationVersion(k.version)))
	})
	if !bound {
		return ErrAlreadyInitialized
	}

	return nil
}

// isNilProvider reports nil and typed nil of any nillable kind.
func isNilProvider(tp TracerProvider) bool {
	if tp == nil {
		return true
	}
	v := reflect.ValueOf(tp)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return v.IsNil()
	default:
		return false
	}
}

// IsInitialized reports whether a default provider has been set.
func IsInitialized() bool {
	return registry.Target() != nil
}

// DefaultTracerProvider returns the provider set by [SetDefault], or the
// no-op provider before that.
func DefaultTracerProvider() TracerProvider {
	if d := registry.Target(); d != nil {
		return d.tp
	}

	return NoopTracerProvider()
}

type globalTracerProvider struct{}

func (globalTracerProvider) Tracer(name string, opts ...TracerOption) Tracer {
	return GetTracer(name, opts...)
}

// GlobalTracerProvider returns a provider that resolves every request through
// [GetTracer]. Components built before configuration can hold it and still
// produce real spans after [SetDefault].
func GlobalTracerProvider() TracerProvider { return globalTracerProvider{} }

// Reset clears the default provider and every issued proxy. Proxies handed out
// earlier keep their current delegate. Reset is meant for tests only.
func Reset() {
	registry.Reset()
}
