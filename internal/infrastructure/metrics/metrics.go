// Package metrics exposes the bot's operational Prometheus metrics: wake
// count, fleet-save count, the retry error-counter gauge, and scheduler
// queue depth, grounded on the teacher's prometheus_collector.go registry
// pattern.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const (
	namespace = "ogame"
	subsystem = "bot"
)

// Collector owns the bot's Prometheus metrics and a private registry.
type Collector struct {
	Registry *prometheus.Registry

	wakesTotal        *prometheus.CounterVec
	fleetsSavedTotal  *prometheus.CounterVec
	errorCount        prometheus.Gauge
	schedulerQueueLen prometheus.Gauge
	expeditionsActive prometheus.Gauge
}

// NewCollector creates a Collector and registers every metric with a fresh
// registry.
func NewCollector() *Collector {
	c := &Collector{
		Registry: prometheus.NewRegistry(),

		wakesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "wakes_total",
				Help:      "Total number of decision-loop wakes, by outcome.",
			},
			[]string{"outcome"},
		),
		fleetsSavedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "fleets_saved_total",
				Help:      "Total number of fleet-save attempts, by outcome.",
			},
			[]string{"outcome"},
		),
		errorCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "consecutive_error_count",
			Help:      "Current consecutive decision-loop error count driving retry backoff.",
		}),
		schedulerQueueLen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "scheduler_queue_length",
			Help:      "Current number of pending scheduler entries.",
		}),
		expeditionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "expeditions_active",
			Help:      "Current number of running expedition intents.",
		}),
	}

	c.Registry.MustRegister(
		c.wakesTotal,
		c.fleetsSavedTotal,
		c.errorCount,
		c.schedulerQueueLen,
		c.expeditionsActive,
	)
	return c
}

func (c *Collector) RecordWake(outcome string) {
	c.wakesTotal.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordFleetSaved(outcome string) {
	c.fleetsSavedTotal.WithLabelValues(outcome).Inc()
}

func (c *Collector) SetErrorCount(n int) {
	c.errorCount.Set(float64(n))
}

func (c *Collector) SetSchedulerQueueLength(n int) {
	c.schedulerQueueLen.Set(float64(n))
}

func (c *Collector) SetExpeditionsActive(n int) {
	c.expeditionsActive.Set(float64(n))
}
