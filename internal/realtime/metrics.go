package realtime

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "statuspage"

var (
	publishesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "publishes_total",
			Help:      "Total publish attempts by outcome",
		},
		[]string{"status"},
	)

	publishDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "publish_duration_seconds",
			Help:      "Time to publish an event to the transport",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
	)
)

// recordPublish records a publish attempt outcome.
func recordPublish(status string) {
	publishesTotal.WithLabelValues(status).Inc()
}

// recordPublishDuration records how long a successful publish took.
func recordPublishDuration(d time.Duration) {
	publishDuration.Observe(d.Seconds())
}
