// Package metrics exposes queuer statistics as prometheus metrics. A
// Collector reads a Stats snapshot on every scrape, so it never caches and
// never touches engine internals.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sluice-dev/sluice/pkg/queue"
)

// StatsSource is anything that can report queue stats. Both queuer flavors
// satisfy it.
type StatsSource interface {
	Stats() queue.Stats
}

// Collector implements prometheus.Collector over a StatsSource.
type Collector struct {
	source StatsSource

	size     *prometheus.Desc
	active   *prometheus.Desc
	running  *prometheus.Desc
	executed *prometheus.Desc
	rejected *prometheus.Desc
	expired  *prometheus.Desc
	outcomes *prometheus.Desc
}

// NewCollector creates a Collector labeled with the queue name.
func NewCollector(name string, source StatsSource) *Collector {
	constLabels := prometheus.Labels{"queue": name}
	return &Collector{
		source: source,
		size: prometheus.NewDesc("sluice_queue_size",
			"Number of pending items.", nil, constLabels),
		active: prometheus.NewDesc("sluice_queue_active",
			"Number of items currently executing.", nil, constLabels),
		running: prometheus.NewDesc("sluice_queue_running",
			"Whether the scheduler admits work (1) or is stopped (0).", nil, constLabels),
		executed: prometheus.NewDesc("sluice_queue_executed_total",
			"Items handed to the worker.", nil, constLabels),
		rejected: prometheus.NewDesc("sluice_queue_rejected_total",
			"Items refused by the capacity bound.", nil, constLabels),
		expired: prometheus.NewDesc("sluice_queue_expired_total",
			"Items removed by the expiration sweeper.", nil, constLabels),
		outcomes: prometheus.NewDesc("sluice_queue_settled_total",
			"Async settlements by outcome.", []string{"outcome"}, constLabels),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.size
	ch <- c.active
	ch <- c.running
	ch <- c.executed
	ch <- c.rejected
	ch <- c.expired
	ch <- c.outcomes
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.source.Stats()
	running := 0.0
	if s.Running {
		running = 1.0
	}
	ch <- prometheus.MustNewConstMetric(c.size, prometheus.GaugeValue, float64(s.Size))
	ch <- prometheus.MustNewConstMetric(c.active, prometheus.GaugeValue, float64(s.ActiveCount))
	ch <- prometheus.MustNewConstMetric(c.running, prometheus.GaugeValue, running)
	ch <- prometheus.MustNewConstMetric(c.executed, prometheus.CounterValue, float64(s.Executed))
	ch <- prometheus.MustNewConstMetric(c.rejected, prometheus.CounterValue, float64(s.Rejected))
	ch <- prometheus.MustNewConstMetric(c.expired, prometheus.CounterValue, float64(s.Expired))
	ch <- prometheus.MustNewConstMetric(c.outcomes, prometheus.CounterValue, float64(s.Succeeded), "success")
	ch <- prometheus.MustNewConstMetric(c.outcomes, prometheus.CounterValue, float64(s.Errored), "error")
}
