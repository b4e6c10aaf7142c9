package http

import (
	"net"
	"net/http"
	"time"

	"github.com/arloliu/tracebind"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
)

// Timeouts are transport timeouts. Zero fields keep the base transport's
// value.
type Timeouts struct {
	Dial           time.Duration
	TLSHandshake   time.Duration
	ResponseHeader time.Duration
	ExpectContinue time.Duration
	IdleConn       time.Duration
}

// ConnLimits are connection pool limits. Zero fields keep the base
// transport's value.
type ConnLimits struct {
	MaxIdle        int
	MaxIdlePerHost int
	MaxPerHost     int
}

type clientConfig struct {
	timeout  time.Duration
	timeouts Timeouts
	limits   ConnLimits
	base     http.RoundTripper
	otelOpts []otelhttp.Option
}

// ClientOption configures a client built by [NewClient].
type ClientOption func(*clientConfig)

// WithTimeout sets http.Client.Timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *clientConfig) { c.timeout = d }
}

// WithTransportTimeouts sets the transport timeouts.
func WithTransportTimeouts(t Timeouts) ClientOption {
	return func(c *clientConfig) { c.timeouts = t }
}

// WithConnLimits sets the connection pool limits.
func WithConnLimits(l ConnLimits) ClientOption {
	return func(c *clientConfig) { c.limits = l }
}

// WithTransport replaces http.DefaultTransport as the base. Timeouts and
// limits apply to a clone of it when it is an *http.Transport and are
// ignored otherwise.
func WithTransport(rt http.RoundTripper) ClientOption {
	return func(c *clientConfig) { c.base = rt }
}

// WithInstrumentation passes options to the otelhttp transport.
func WithInstrumentation(opts ...otelhttp.Option) ClientOption {
	return func(c *clientConfig) { c.otelOpts = append(c.otelOpts, opts...) }
}

// NewClient creates an http.Client whose requests are traced through the
// tracebind default provider and carry the current correlation context.
//
// Usage:
//
//	client := tbhttp.NewClient(
//	    tbhttp.WithTimeout(30 * time.Second),
//	    tbhttp.WithConnLimits(tbhttp.ConnLimits{MaxIdlePerHost: 10}),
//	)
func NewClient(opts ...ClientOption) *http.Client {
	return NewClientWithProviders(nil, nil, nil, opts...)
}

// NewClientWithProviders is [NewClient] with explicit providers, see
// [TransportWithProviders] for the nil fallbacks.
func NewClientWithProviders(
	tp tracebind.TracerProvider,
	mp metric.MeterProvider,
	prop propagation.TextMapPropagator,
	opts ...ClientOption,
) *http.Client {
	cfg := &clientConfig{base: http.DefaultTransport}
	for _, opt := range opts {
		opt(cfg)
	}

	return &http.Client{
		Transport: TransportWithProviders(cfg.transport(), tp, mp, prop, cfg.otelOpts...),
		Timeout:   cfg.timeout,
	}
}

// transport clones the base and applies timeouts and limits. Opaque round
// trippers are returned as is.
func (c *clientConfig) transport() http.RoundTripper {
	base, ok := c.base.(*http.Transport)
	if !ok {
		return c.base
	}
	t := base.Clone()

	if c.timeouts.Dial > 0 {
		t.DialContext = (&net.Dialer{
			Timeout:   c.timeouts.Dial,
			KeepAlive: 30 * time.Second,
		}).DialContext
	}
	setIfPositive(&t.TLSHandshakeTimeout, c.timeouts.TLSHandshake)
	setIfPositive(&t.ResponseHeaderTimeout, c.timeouts.ResponseHeader)
	setIfPositive(&t.ExpectContinueTimeout, c.timeouts.ExpectContinue)
	setIfPositive(&t.IdleConnTimeout, c.timeouts.IdleConn)
	setIfPositive(&t.MaxIdleConns, c.limits.MaxIdle)
	setIfPositive(&t.MaxIdleConnsPerHost, c.limits.MaxIdlePerHost)
	setIfPositive(&t.MaxConnsPerHost, c.limits.MaxPerHost)

	return t
}

func setIfPositive[T int | time.Duration](dst *T, v T) {
	if v > 0 {
		*dst = v
	}
}
