package channel

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// requestsTotal counts rendezvous requests by kind
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scenegraph_rendezvous_requests_total",
		Help: "Total rendezvous requests by kind",
	}, []string{"kind"})

	// timeoutsTotal counts rendezvous that timed out, by kind
	timeoutsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scenegraph_rendezvous_timeouts_total",
		Help: "Total rendezvous timeouts by kind",
	}, []string{"kind"})

	rendezvousDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "scenegraph_rendezvous_duration_seconds",
		Help:    "Rendezvous duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.00005, 2, 14),
	})

	publishesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scenegraph_buffer_publishes_total",
		Help: "Total responses published in link buffers",
	})

	// discardedTotal counts consumed payloads that were dropped
	discardedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scenegraph_buffer_discarded_total",
		Help: "Total discarded buffer payloads by reason",
	}, []string{"reason"})

	updatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scenegraph_thread_updates_total",
		Help: "Total thread updates by direction",
	}, []string{"direction"})
)
