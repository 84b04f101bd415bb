package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for derived-report generation.
type Metrics struct {
	Generated prometheus.Counter
	Skipped   *prometheus.CounterVec
}

// New creates a new Metrics instance with all report metrics registered.
func New() *Metrics {
	return &Metrics{
		Generated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "maintrack_reports_generated_total",
			Help: "Total number of derived reports created from completed tickets",
		}),
		Skipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "maintrack_reports_skipped_total",
			Help: "Total generation attempts skipped, by reason",
		}, []string{"reason"}),
	}
}

// IncrementGenerated records a created report.
func (m *Metrics) IncrementGenerated() {
	m.Generated.Inc()
}

// IncrementSkipped records a skipped generation attempt.
func (m *Metrics) IncrementSkipped(reason string) {
	m.Skipped.WithLabelValues(reason).Inc()
}
