package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the runtime-level metrics
type Metrics struct {
	CyclesTotal        *prometheus.CounterVec
	CycleDuration      *prometheus.HistogramVec
	TriggerWait        *prometheus.HistogramVec
	NodeErrors         *prometheus.CounterVec
	NodeDuration       *prometheus.HistogramVec
	StorePublishes     *prometheus.CounterVec
	TelemetryDropped   *prometheus.CounterVec
	CyclerHealthStatus *prometheus.GaugeVec
	NATSConnected      prometheus.Gauge
}

var cycleBuckets = []float64{.0005, .001, .002, .005, .01, .02, .05, .1, .25}

// NewMetrics creates the runtime metrics
func NewMetrics() *Metrics {
	return &Metrics{
		CyclesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "hulk",
				Subsystem: "cycler",
				Name:      "cycles_total",
				Help:      "Total number of completed cycles",
			},
			[]string{"cycler"},
		),

		CycleDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "hulk",
				Subsystem: "cycler",
				Name:      "cycle_duration_seconds",
				Help:      "Time from trigger to publication of a cycle",
				Buckets:   cycleBuckets,
			},
			[]string{"cycler"},
		),

		TriggerWait: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "hulk",
				Subsystem: "cycler",
				Name:      "trigger_wait_seconds",
				Help:      "Time a cycler spent suspended waiting for its trigger",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"cycler"},
		),

		NodeErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "hulk",
				Subsystem: "node",
				Name:      "errors_total",
				Help:      "Total number of failed node cycles",
			},
			[]string{"cycler", "node"},
		),

		NodeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "hulk",
				Subsystem: "node",
				Name:      "duration_seconds",
				Help:      "Duration of one node cycle",
				Buckets:   cycleBuckets,
			},
			[]string{"cycler", "node"},
		),

		StorePublishes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "hulk",
				Subsystem: "store",
				Name:      "publishes_total",
				Help:      "Total number of values published into the value store",
			},
			[]string{"cycler"},
		),

		TelemetryDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "hulk",
				Subsystem: "telemetry",
				Name:      "dropped_total",
				Help:      "Total number of telemetry messages dropped by a sink",
			},
			[]string{"sink"},
		),

		CyclerHealthStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "hulk",
				Subsystem: "cycler",
				Name:      "health_status",
				Help:      "Cycler health (0=unhealthy, 1=degraded, 2=healthy)",
			},
			[]string{"cycler"},
		),

		NATSConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "hulk",
				Subsystem: "nats",
				Name:      "connected",
				Help:      "NATS connection status (0=disconnected, 1=connected)",
			},
		),
	}
}

func (c *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		c.CyclesTotal,
		c.CycleDuration,
		c.TriggerWait,
		c.NodeErrors,
		c.NodeDuration,
		c.StorePublishes,
		c.TelemetryDropped,
		c.CyclerHealthStatus,
		c.NATSConnected,
	}
}

// RecordCycle records a completed cycle
func (c *Metrics) RecordCycle(cycler string, waited, duration time.Duration) {
	c.CyclesTotal.WithLabelValues(cycler).Inc()
	c.TriggerWait.WithLabelValues(cycler).Observe(waited.Seconds())
	c.CycleDuration.WithLabelValues(cycler).Observe(duration.Seconds())
}

// RecordNode records one node cycle
func (c *Metrics) RecordNode(cycler, node string, duration time.Duration, failed bool) {
	c.NodeDuration.WithLabelValues(cycler, node).Observe(duration.Seconds())
	if failed {
		c.NodeErrors.WithLabelValues(cycler, node).Inc()
	}
}

// RecordPublishes counts values published by a cycler
func (c *Metrics) RecordPublishes(cycler string, count int) {
	c.StorePublishes.WithLabelValues(cycler).Add(float64(count))
}

// RecordTelemetryDropped counts messages a sink could not deliver
func (c *Metrics) RecordTelemetryDropped(sink string, count int) {
	c.TelemetryDropped.WithLabelValues(sink).Add(float64(count))
}

// RecordCyclerHealth updates the health gauge of a cycler
func (c *Metrics) RecordCyclerHealth(cycler string, status string) {
	value := 0.0
	switch status {
	case "healthy":
		value = 2
	case "degraded":
		value = 1
	}
	c.CyclerHealthStatus.WithLabelValues(cycler).Set(value)
}

// RecordNATSStatus updates NATS connection status
func (c *Metrics) RecordNATSStatus(connected bool) {
	value := 0.0
	if connected {
		value = 1.0
	}
	c.NATSConnected.Set(value)
}
