package tracebind

import (
	"github.com/prometheus/client_golang/prometheus"
)

// BatchProcessorCollector exposes the counters of a [BatchSpanProcessor] as
// Prometheus metrics.
type BatchProcessorCollector struct {
	processor *BatchSpanProcessor
	exported  *prometheus.Desc
	dropped   *prometheus.Desc
	failed    *prometheus.Desc
	queued    *prometheus.Desc
}

var _ prometheus.Collector = (*BatchProcessorCollector)(nil)

// NewBatchProcessorCollector creates a collector for p. constLabels are
// attached to every metric.
func NewBatchProcessorCollector(p *BatchSpanProcessor, constLabels prometheus.Labels) *BatchProcessorCollector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName("tracebind", "processor", name), help, nil, constLabels)
	}

	return &BatchProcessorCollector{
		processor: p,
		exported:  desc("spans_exported_total", "Spans successfully exported."),
		dropped:   desc("spans_dropped_total", "Spans dropped because the queue was full."),
		failed:    desc("spans_failed_total", "Spans whose export returned an error."),
		queued:    desc("spans_queued", "Spans waiting in the queue."),
	}
}

// Describe implements prometheus.Collector.
func (c *BatchProcessorCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.exported
	ch <- c.dropped
	ch <- c.failed
	ch <- c.queued
}

// Collect implements prometheus.Collector.
func (c *BatchProcessorCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.processor.Stats()
	ch <- prometheus.MustNewConstMetric(c.exported, prometheus.CounterValue, float64(s.Exported))
	ch <- prometheus.MustNewConstMetric(c.dropped, prometheus.CounterValue, float64(s.Dropped))
	ch <- prometheus.MustNewConstMetric(c.failed, prometheus.CounterValue, float64(s.Failed))
	ch <- prometheus.MustNewConstMetric(c.queued, prometheus.GaugeValue, float64(s.Queued))
}
