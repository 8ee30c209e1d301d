// Package telemetry exposes validation progress counters over Prometheus.
package telemetry

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector tracks batch/image throughput and per-stage wall-clock time.
type Collector struct {
	BatchesProcessed atomic.Uint64
	ImagesProcessed  atomic.Uint64
	RunsCompleted    atomic.Uint64

	stageSeconds *prometheus.CounterVec
	registry     *prometheus.Registry
}

// New creates a Collector with its own registry.
func New() *Collector {
	c := &Collector{registry: prometheus.NewRegistry()}

	c.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "multival_batches_processed_total",
			Help: "Total validation batches processed",
		},
		func() float64 { return float64(c.BatchesProcessed.Load()) },
	))
	c.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "multival_images_processed_total",
			Help: "Total images processed",
		},
		func() float64 { return float64(c.ImagesProcessed.Load()) },
	))
	c.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "multival_runs_completed_total",
			Help: "Total validation runs completed",
		},
		func() float64 { return float64(c.RunsCompleted.Load()) },
	))

	c.stageSeconds = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "multival_stage_seconds_total",
			Help: "Cumulative wall-clock seconds per pipeline stage",
		},
		[]string{"stage"},
	)
	c.registry.MustRegister(c.stageSeconds)

	return c
}

// ObserveStage accumulates wall-clock time for one pipeline stage.
func (c *Collector) ObserveStage(stage string, d time.Duration) {
	c.stageSeconds.WithLabelValues(stage).Add(d.Seconds())
}

// Handler returns the Prometheus HTTP handler for this collector.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// StartServer serves /metrics on addr. Blocks.
func (c *Collector) StartServer(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	return http.ListenAndServe(addr, mux)
}
