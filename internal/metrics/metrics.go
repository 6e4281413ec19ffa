// Package metrics exposes per-run Prometheus metrics on a private registry
// and optionally pushes them to a Pushgateway when the run ends.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/valpere/sheetpub/internal"
)

const (
	namespace = "sheetpub"
	jobName   = "sheetpub"
)

type Metrics struct {
	registry    *prometheus.Registry
	rowsTotal   *prometheus.CounterVec
	rowDuration prometheus.Histogram
	lastRun     prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		rowsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_total",
			Help:      "Rows processed, by outcome.",
		}, []string{"outcome"}),
		rowDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "row_duration_seconds",
			Help:      "Time spent processing a single row.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time at which the last run finished.",
		}),
	}
	m.registry.MustRegister(m.rowsTotal, m.rowDuration, m.lastRun)
	return m
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) ObserveRow(outcome internal.Outcome, d time.Duration) {
	m.rowsTotal.WithLabelValues(string(outcome)).Inc()
	m.rowDuration.Observe(d.Seconds())
}

func (m *Metrics) RunFinished(at time.Time) {
	m.lastRun.Set(float64(at.Unix()))
}

// Push sends the registry to the Pushgateway at url, replacing earlier
// metrics for the job.
func (m *Metrics) Push(ctx context.Context, url string) error {
	if url == "" {
		return nil
	}
	if err := push.New(url, jobName).Gatherer(m.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
