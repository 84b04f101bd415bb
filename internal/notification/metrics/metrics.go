package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the notification module.
type Metrics struct {
	Created  *prometheus.CounterVec
	Excluded prometheus.Counter
	Read     prometheus.Counter
}

// New creates a new Metrics instance with all notification metrics registered.
func New() *Metrics {
	return &Metrics{
		Created: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "maintrack_notifications_created_total",
			Help: "Total number of notifications persisted, by scope",
		}, []string{"scope"}),
		Excluded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "maintrack_notifications_excluded_total",
			Help: "Total number of notifications skipped because the module is excluded",
		}),
		Read: promauto.NewCounter(prometheus.CounterOpts{
			Name: "maintrack_notifications_read_total",
			Help: "Total number of notifications marked read",
		}),
	}
}

// IncrementCreated records a persisted notification for a scope ("user" or
// "module").
func (m *Metrics) IncrementCreated(scope string) {
	m.Created.WithLabelValues(scope).Inc()
}

// IncrementExcluded records a skipped notification.
func (m *Metrics) IncrementExcluded() {
	m.Excluded.Inc()
}

// IncrementRead records a notification marked read.
func (m *Metrics) IncrementRead() {
	m.Read.Inc()
}
