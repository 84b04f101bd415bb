package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the live-update module.
type Metrics struct {
	ActiveSubscriptions prometheus.Gauge
	Pushes              *prometheus.CounterVec
	Removals            *prometheus.CounterVec
	FanoutDuration      prometheus.Histogram
}

// New creates a new Metrics instance with all stream metrics registered.
func New() *Metrics {
	return &Metrics{
		ActiveSubscriptions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "maintrack_stream_active_subscriptions",
			Help: "Number of currently active push subscriptions",
		}),
		Pushes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "maintrack_stream_pushes_total",
			Help: "Total pushes to live subscriptions, by result",
		}, []string{"result"}),
		Removals: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "maintrack_stream_removals_total",
			Help: "Total subscription removals, by reason",
		}, []string{"reason"}),
		FanoutDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "maintrack_stream_fanout_duration_seconds",
			Help:    "Duration of one event fan-out pass over all subscriptions",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 5},
		}),
	}
}

// ObserveFanout records the duration of a fan-out pass.
func (m *Metrics) ObserveFanout(start time.Time) {
	m.FanoutDuration.Observe(time.Since(start).Seconds())
}
