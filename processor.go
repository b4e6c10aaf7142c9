package tracebind

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zoobzio/clockz"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// SpanProcessor receives completed spans. OnEnd is called exactly once per
// recording span with a valid context; the SpanData must not be modified.
type SpanProcessor interface {
	OnEnd(data SpanData)
	ForceFlush(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// ErrProcessorShutdown is returned when flushing a stopped processor.
var ErrProcessorShutdown = errors.New("tracebind: span processor is shut down")

// SimpleSpanProcessor exports each sampled span as soon as it ends.
type SimpleSpanProcessor struct {
	mu       sync.Mutex
	exporter sdktrace.SpanExporter
	stopped  bool
}

// NewSimpleSpanProcessor creates a synchronous processor for exporter.
func NewSimpleSpanProcessor(exporter sdktrace.SpanExporter) *SimpleSpanProcessor {
	return &SimpleSpanProcessor{exporter: exporter}
}

// OnEnd implements [SpanProcessor].
func (p *SimpleSpanProcessor) OnEnd(data SpanData) {
	if !data.SpanContext.IsSampled() {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped || p.exporter == nil {
		return
	}
	if err := p.exporter.ExportSpans(context.Background(), readOnlySpans([]SpanData{data})); err != nil {
		otel.Handle(err)
	}
}

// ForceFlush implements [SpanProcessor]; spans are never buffered.
func (p *SimpleSpanProcessor) ForceFlush(context.Context) error { return nil }

// Shutdown implements [SpanProcessor].
func (p *SimpleSpanProcessor) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return nil
	}
	p.stopped = true
	if p.exporter == nil {
		return nil
	}

	return p.exporter.Shutdown(ctx)
}

// Default batch settings.
const (
	DefaultMaxQueueSize       = 2048
	DefaultMaxExportBatchSize = 512
	DefaultBatchTimeout       = 5 * time.Second
	DefaultExportTimeout      = 30 * time.Second
)

type batchConfig struct {
	maxQueueSize       int
	maxExportBatchSize int
	batchTimeout       time.Duration
	exportTimeout      time.Duration
	clock              clockz.Clock
	meterProvider      metric.MeterProvider
}

// BatchOption configures a [BatchSpanProcessor].
type BatchOption func(*batchConfig)

// WithMaxQueueSize bounds the number of queued spans; spans beyond it are
// dropped.
func WithMaxQueueSize(n int) BatchOption {
	return func(c *batchConfig) {
		if n > 0 {
			c.maxQueueSize = n
		}
	}
}

// WithMaxExportBatchSize bounds the number of spans per export call.
func WithMaxExportBatchSize(n int) BatchOption {
	return func(c *batchConfig) {
		if n > 0 {
			c.maxExportBatchSize = n
		}
	}
}

// WithBatchTimeout sets the maximum delay before a partial batch is exported.
func WithBatchTimeout(d time.Duration) BatchOption {
	return func(c *batchConfig) {
		if d > 0 {
			c.batchTimeout = d
		}
	}
}

// WithExportTimeout bounds a single export call.
func WithExportTimeout(d time.Duration) BatchOption {
	return func(c *batchConfig) {
		if d > 0 {
			c.exportTimeout = d
		}
	}
}

// WithBatchClock sets the clock driving the batch timer.
func WithBatchClock(clock clockz.Clock) BatchOption {
	return func(c *batchConfig) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithProcessorMeterProvider sets the meter provider for processor metrics.
// Defaults to the global meter provider.
func WithProcessorMeterProvider(mp metric.MeterProvider) BatchOption {
	return func(c *batchConfig) {
		if mp != nil {
			c.meterProvider = mp
		}
	}
}

// BatchStats is a point-in-time view of a batch processor.
type BatchStats struct {
	Queued   int
	Exported int64
	Dropped  int64
	Failed   int64
}

// BatchSpanProcessor queues sampled spans and exports them in batches from a
// single goroutine. When the queue is full new spans are dropped and counted;
// OnEnd never blocks.
type BatchSpanProcessor struct {
	exporter sdktrace.SpanExporter
	cfg      batchConfig

	queue   chan SpanData
	flushCh chan chan error
	stopCh  chan struct{}
	done    chan struct{}

	exported atomic.Int64
	dropped  atomic.Int64
	failed   atomic.Int64
	// stopMu orders enqueues before the close of stopCh so the final drain
	// sees every accepted span.
	stopMu   sync.RWMutex
	stopped  atomic.Bool
	stopOnce sync.Once
	stopErr  error

	exportedCounter metric.Int64Counter
	droppedCounter  metric.Int64Counter
}

// NewBatchSpanProcessor creates and starts a batching processor.
func NewBatchSpanProcessor(exporter sdktrace.SpanExporter, opts ...BatchOption) *BatchSpanProcessor {
	cfg := batchConfig{
		maxQueueSize:       DefaultMaxQueueSize,
		maxExportBatchSize: DefaultMaxExportBatchSize,
		batchTimeout:       DefaultBatchTimeout,
		exportTimeout:      DefaultExportTimeout,
		clock:              clockz.RealClock,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.maxExportBatchSize > cfg.maxQueueSize {
		cfg.maxExportBatchSize = cfg.maxQueueSize
	}
	if cfg.meterProvider == nil {
		cfg.meterProvider = otel.GetMeterProvider()
	}

	p := &BatchSpanProcessor{
		exporter: exporter,
		cfg:      cfg,
		queue:    make(chan SpanData, cfg.maxQueueSize),
		flushCh:  make(chan chan error),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
	p.initMetrics()

	go p.run()

	return p
}

func (p *BatchSpanProcessor) initMetrics() {
	meter := p.cfg.meterProvider.Meter(ScopeName)

	var err error
	p.exportedCounter, err = meter.Int64Counter("tracebind.processor.spans.exported",
		metric.WithDescription("Spans successfully exported"),
		metric.WithUnit("{span}"))
	if err != nil {
		otel.Handle(err)
	}
	p.droppedCounter, err = meter.Int64Counter("tracebind.processor.spans.dropped",
		metric.WithDescription("Spans dropped because the queue was full"),
		metric.WithUnit("{span}"))
	if err != nil {
		otel.Handle(err)
	}
}

// OnEnd implements [SpanProcessor].
func (p *BatchSpanProcessor) OnEnd(data SpanData) {
	if !data.SpanContext.IsSampled() {
		return
	}

	p.stopMu.RLock()
	defer p.stopMu.RUnlock()
	if p.stopped.Load() {
		return
	}

	select {
	case p.queue <- data:
	default:
		p.dropped.Add(1)
		if p.droppedCounter != nil {
			p.droppedCounter.Add(context.Background(), 1)
		}
	}
}

// ForceFlush exports every queued span and waits for the export to finish.
func (p *BatchSpanProcessor) ForceFlush(ctx context.Context) error {
	if p.stopped.Load() {
		return ErrProcessorShutdown
	}

	reply := make(chan error, 1)
	select {
	case p.flushCh <- reply:
	case <-p.done:
		return ErrProcessorShutdown
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown drains the queue, exports what remains and shuts the exporter
// down. Only the first call does any work.
func (p *BatchSpanProcessor) Shutdown(ctx context.Context) error {
	p.stopOnce.Do(func() {
		p.stopMu.Lock()
		p.stopped.Store(true)
		close(p.stopCh)
		p.stopMu.Unlock()

		select {
		case <-p.done:
		case <-ctx.Done():
			p.stopErr = ctx.Err()
			return
		}
		if p.exporter != nil {
			p.stopErr = p.exporter.Shutdown(ctx)
		}
	})

	return p.stopErr
}

// Stats returns the current counters.
func (p *BatchSpanProcessor) Stats() BatchStats {
	return BatchStats{
		Queued:   len(p.queue),
		Exported: p.exported.Load(),
		Dropped:  p.dropped.Load(),
		Failed:   p.failed.Load(),
	}
}

func (p *BatchSpanProcessor) run() {
	defer close(p.done)

	batch := make([]SpanData, 0, p.cfg.maxExportBatchSize)
	timer := p.cfg.clock.After(p.cfg.batchTimeout)

	for {
		select {
		case <-p.stopCh:
			batch = p.drain(batch)
			p.export(batch)
			return
		case reply := <-p.flushCh:
			batch = p.drain(batch)
			reply <- p.export(batch)
			batch = batch[:0]
			timer = p.cfg.clock.After(p.cfg.batchTimeout)
		case data := <-p.queue:
			batch = append(batch, data)
			if len(batch) >= p.cfg.maxExportBatchSize {
				p.export(batch)
				batch = batch[:0]
				timer = p.cfg.clock.After(p.cfg.batchTimeout)
			}
		case <-timer:
			p.export(batch)
			batch = batch[:0]
			timer = p.cfg.clock.After(p.cfg.batchTimeout)
		}
	}
}

// drain moves everything queued into batch, exporting full batches on the way.
func (p *BatchSpanProcessor) drain(batch []SpanData) []SpanData {
	for {
		select {
		case data := <-p.queue:
			batch = append(batch, data)
			if len(batch) >= p.cfg.maxExportBatchSize {
				p.export(batch)
				batch = batch[:0]
			}
		default:
			return batch
		}
	}
}

func (p *BatchSpanProcessor) export(batch []SpanData) error {
	if len(batch) == 0 || p.exporter == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.exportTimeout)
	defer cancel()

	if err := p.exporter.ExportSpans(ctx, readOnlySpans(batch)); err != nil {
		p.failed.Add(int64(len(batch)))
		otel.Handle(err)

		return err
	}
	p.exported.Add(int64(len(batch)))
	if p.exportedCounter != nil {
		p.exportedCounter.Add(ctx, int64(len(batch)))
	}

	return nil
}
