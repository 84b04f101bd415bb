package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the application-wide Prometheus metrics. Module-specific
// metrics live in each module's own metrics package.
type Metrics struct {
	EventsPublished      *prometheus.CounterVec
	EventHandlerFailures *prometheus.CounterVec
}

// New creates and registers all application-level metrics.
func New() *Metrics {
	return &Metrics{
		EventsPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "maintrack_events_published_total",
			Help: "Total number of domain events published, by event type",
		}, []string{"type"}),
		EventHandlerFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "maintrack_event_handler_failures_total",
			Help: "Total number of post-commit handler failures, by handler",
		}, []string{"handler"}),
	}
}
