package incidents

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "statuspage"

var (
	incidentWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "incidents",
			Name:      "writes_total",
			Help:      "Committed incident writes by operation",
		},
		[]string{"operation"},
	)

	notifyFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "incidents",
			Name:      "notify_failures_total",
			Help:      "Post-commit publish failures by event name",
		},
		[]string{"event"},
	)
)

// recordIncidentWrite records a committed create or update.
func recordIncidentWrite(operation string) {
	incidentWrites.WithLabelValues(operation).Inc()
}

// recordNotifyFailure records a failed post-commit publish. The write stays
// successful; this counter is how operators see the divergence.
func recordNotifyFailure(event string) {
	notifyFailures.WithLabelValues(event).Inc()
}
